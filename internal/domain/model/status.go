// Package model contains domain models passed between layers.
package model

import "fmt"

// Status is a submission's position in the review lifecycle.
type Status string

// Review lifecycle statuses, in progression order. Ineligible is terminal.
const (
	StatusScreening     Status = "screening"
	StatusIneligible    Status = "ineligible"
	StatusScoringPhase1 Status = "scoring_phase_1"
	StatusScoringPhase2 Status = "scoring_phase_2"
	StatusScoringPhase3 Status = "scoring_phase_3"
	StatusFinalist      Status = "finalist"
)

// statusOrder ranks statuses along the forward progression.
// Ineligible sits outside the ordering; it is reachable only from screening.
var statusOrder = map[Status]int{
	StatusScreening:     0,
	StatusScoringPhase1: 1,
	StatusScoringPhase2: 2,
	StatusScoringPhase3: 3,
	StatusFinalist:      4,
}

// ParseStatus validates a status label.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	if s == StatusIneligible {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusIneligible
}

// ScoringPhase returns the phase a scoring status corresponds to,
// or 0 when the status is not a scoring phase.
func (s Status) ScoringPhase() Phase {
	switch s {
	case StatusScoringPhase1:
		return Phase1
	case StatusScoringPhase2:
		return Phase2
	case StatusScoringPhase3:
		return Phase3
	default:
		return 0
	}
}

// CanTransitionTo reports whether moving from s to target follows the
// ordered progression. Ineligible is reachable only from screening.
func (s Status) CanTransitionTo(target Status) bool {
	if s.Terminal() || !target.Valid() {
		return false
	}
	if target == StatusIneligible {
		return s == StatusScreening
	}
	return statusOrder[target] > statusOrder[s]
}

// Phase is one of the sequential scoring rounds.
type Phase int

// Scoring phases a submission progresses through after passing screening.
const (
	Phase1 Phase = 1
	Phase2 Phase = 2
	Phase3 Phase = 3
)

// ParsePhase validates a numeric phase.
func ParsePhase(n int) (Phase, error) {
	p := Phase(n)
	if !p.Valid() {
		return 0, fmt.Errorf("unknown phase: %d", n)
	}
	return p, nil
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p >= Phase1 && p <= Phase3
}

// Status returns the lifecycle status in which judgments for p are accepted.
func (p Phase) Status() Status {
	switch p {
	case Phase1:
		return StatusScoringPhase1
	case Phase2:
		return StatusScoringPhase2
	case Phase3:
		return StatusScoringPhase3
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return fmt.Sprintf("phase_%d", int(p))
}
