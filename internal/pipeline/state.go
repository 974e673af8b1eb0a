package pipeline

import (
	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/domain"
)

// transitions lists the legal successors of each non-terminal state.
// Error is reachable from every non-terminal state and is not listed.
var transitions = map[domain.ProcessingState][]domain.ProcessingState{
	domain.StateStart:       {domain.StateAdapting},
	domain.StateAdapting:    {domain.StateSingleBatch, domain.StateBatching},
	domain.StateSingleBatch: {domain.StateClassified},
	domain.StateBatching:    {domain.StateClassified},
	domain.StateClassified:  {domain.StateExtracted},
	domain.StateExtracted:   {domain.StateValidated, domain.StateMerging},
	domain.StateMerging:     {domain.StateValidated},
	domain.StateValidated:   {domain.StateDone},
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s domain.ProcessingState) bool {
	return s == domain.StateDone || s == domain.StateError
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to domain.ProcessingState) bool {
	if IsTerminal(from) {
		return false
	}
	if to == domain.StateError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the state of one document.
type machine struct {
	state   domain.ProcessingState
	history []domain.ProcessingState
}

func newMachine() *machine {
	return &machine{state: domain.StateStart, history: []domain.ProcessingState{domain.StateStart}}
}

func (m *machine) advance(to domain.ProcessingState) error {
	if !CanTransition(m.state, to) {
		return errors.Newf("illegal state transition %s -> %s", m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}
