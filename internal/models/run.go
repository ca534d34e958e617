package models

import (
	"fmt"
	"time"
)

// Flow identifies which verification flow produced a run.
type Flow string

const (
	FlowSingle      Flow = "single"
	FlowCompose     Flow = "compose"
	FlowSecretGuard Flow = "secret-guard"
)

func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case FlowSingle, FlowCompose, FlowSecretGuard:
		return Flow(s), nil
	default:
		return "", fmt.Errorf("invalid flow: %s", s)
	}
}

type RunStatus string

const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
)

func (s RunStatus) Value() string {
	return string(s)
}

// Run is one execution of a flow against a server.
type Run struct {
	ID         string
	Flow       Flow
	Fixture    string
	Image      string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Checks     []CheckRecord
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failures counts the checks that did not pass.
func (r Run) Failures() int {
	n := 0
	for _, c := range r.Checks {
		if !c.Passed {
			n++
		}
	}
	return n
}

// CheckRecord is the outcome of a single check. Message is empty when the check passed.
type CheckRecord struct {
	Name     string
	Passed   bool
	Message  string
	Duration time.Duration
}
