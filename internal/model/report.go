package model

import "time"

// ProbeReport is the exported record of one probe.
type ProbeReport struct {
	Venue      string       `json:"venue"`
	Base       string       `json:"base"`
	Token      string       `json:"token"`
	Pool       Pool         `json:"pool"`
	Result     *ProbeResult `json:"result"`
	ForkBlock  uint64       `json:"fork_block"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
