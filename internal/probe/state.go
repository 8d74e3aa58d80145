package probe

import "fmt"

// Phase is the probe state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuyInFlight
	PhaseSellInFlight
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuyInFlight:
		return "buy_in_flight"
	case PhaseSellInFlight:
		return "sell_in_flight"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var nextPhases = map[Phase][]Phase{
	PhaseIdle:         {PhaseBuyInFlight},
	PhaseBuyInFlight:  {PhaseSellInFlight, PhaseFailed},
	PhaseSellInFlight: {PhaseDone, PhaseFailed},
}

func canMove(from, to Phase) bool {
	for _, next := range nextPhases[from] {
		if next == to {
			return true
		}
	}
	return false
}
