package maintenance

import (
	"fmt"
	"strings"

	"buildingops/internal/shared"
)

// Status is the lifecycle state of a maintenance schedule. It is a closed
// enumeration; free-text values from the outside world go through ParseStatus.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusCancelled  Status = "CANCELLED"
)

// transitions is the authoritative table of allowed moves. A status missing
// from a list cannot be reached from that row. DONE has no outgoing moves.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled, StatusScheduled},
	StatusInProgress: {StatusDone, StatusScheduled, StatusCancelled},
	StatusDone:       {},
	StatusCancelled:  {StatusScheduled},
}

// ParseStatus normalizes and validates an externally supplied status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", shared.MarkKind(fmt.Errorf("unknown status %q", s), shared.KindValidation)
	}
	return st, nil
}

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Active reports whether the schedule still occupies its asset's calendar.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// AllowedTargets returns the statuses reachable from s.
func (s Status) AllowedTargets() []Status {
	return transitions[s]
}

// CanTransitionTo reports whether moving from s to the target is legal.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionError describes an illegal status change, naming the legal targets.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	targets := e.From.AllowedTargets()
	if len(targets) == 0 {
		return fmt.Sprintf("cannot change status from %s to %s: %s is terminal", e.From, e.To, e.From)
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return fmt.Sprintf("cannot change status from %s to %s; valid targets from %s: %s",
		e.From, e.To, e.From, strings.Join(names, ", "))
}

func (e *TransitionError) Is(target error) bool {
	return target == shared.ErrValidation
}

// CheckTransition returns a TransitionError when from→to is not in the table.
func CheckTransition(from, to Status) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
