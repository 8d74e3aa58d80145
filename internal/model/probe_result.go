package model

import (
	"fmt"
	"math/big"
)

// ProbeStage is the tag of a ProbeResult.
type ProbeStage int

const (
	StagePending ProbeStage = iota
	StageBuySucceeded
	StageBuyFailed
	StageSellSucceeded
	StageSellFailed
)

var stageNames = map[ProbeStage]string{
	StagePending:       "pending",
	StageBuySucceeded:  "buy_succeeded",
	StageBuyFailed:     "buy_failed",
	StageSellSucceeded: "sell_succeeded",
	StageSellFailed:    "sell_failed",
}

func (s ProbeStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MarshalText encodes the stage by name.
func (s ProbeStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is allowed from s.
func (s ProbeStage) Terminal() bool {
	return s == StageBuyFailed || s == StageSellSucceeded || s == StageSellFailed
}

// ProbeResult is the outcome of one honeypot probe. A fresh result starts Pending
// and moves forward exactly once per stage.
type ProbeResult struct {
	Stage ProbeStage `json:"stage"`
	// Balance is the candidate balance held after the buy stage.
	Balance *big.Int `json:"balance,omitempty"`
	// Remaining is the candidate balance held after the sell stage.
	Remaining *big.Int `json:"remaining,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	BuyTx     string   `json:"buy_tx,omitempty"`
	SellTx    string   `json:"sell_tx,omitempty"`
	BuyGas    uint64   `json:"buy_gas,omitempty"`
	SellGas   uint64   `json:"sell_gas,omitempty"`
	// BuyTax is the percentage of the quoted amount withheld on buy, when measurable.
	BuyTax string `json:"buy_tax,omitempty"`
}

// NewProbeResult returns a Pending result.
func NewProbeResult() *ProbeResult {
	return &ProbeResult{Stage: StagePending}
}

var allowedTransitions = map[ProbeStage][]ProbeStage{
	StagePending:      {StageBuySucceeded, StageBuyFailed},
	StageBuySucceeded: {StageSellSucceeded, StageSellFailed},
}

func (r *ProbeResult) transition(next ProbeStage) error {
	if r.Stage.Terminal() {
		return fmt.Errorf("probe already finished as %s", r.Stage)
	}
	for _, allowed := range allowedTransitions[r.Stage] {
		if allowed == next {
			r.Stage = next
			return nil
		}
	}
	return fmt.Errorf("invalid probe transition %s -> %s", r.Stage, next)
}

// BuySucceeded records a successful buy and the resulting candidate balance.
func (r *ProbeResult) BuySucceeded(balance *big.Int) error {
	if err := r.transition(StageBuySucceeded); err != nil {
		return err
	}
	r.Balance = balance
	return nil
}

// BuyFailed records a failed buy.
func (r *ProbeResult) BuyFailed(reason string) error {
	if err := r.transition(StageBuyFailed); err != nil {
		return err
	}
	r.Reason = reason
	return nil
}

// SellSucceeded records a successful sell.
func (r *ProbeResult) SellSucceeded() error {
	return r.transition(StageSellSucceeded)
}

// SellFailed records a failed sell, the honeypot signal.
func (r *ProbeResult) SellFailed(reason string) error {
	if err := r.transition(StageSellFailed); err != nil {
		return err
	}
	r.Reason = reason
	return nil
}

// Honeypot reports whether the token could be bought but not sold.
func (r *ProbeResult) Honeypot() bool {
	return r.Stage == StageSellFailed
}
