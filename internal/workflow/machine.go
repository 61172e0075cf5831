// Package workflow implements a closed transition table shared by the repair
// and reservation lifecycles. A state may only change through a listed
// (state, event) pair; everything else is rejected with
// *apperrors.TransitionError.
package workflow

import (
	"fmt"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
)

type Transition[S, E comparable] struct {
	From  S
	Event E
	To    S
}

type key[S, E comparable] struct {
	from  S
	event E
}

type Machine[S, E comparable] struct {
	entity string
	table  map[key[S, E]]S
	events map[S][]E
}

// New builds a machine from the given transitions. Listing the same
// (From, Event) pair twice with different targets panics since the table
// would be ambiguous.
func New[S, E comparable](entity string, transitions ...Transition[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		entity: entity,
		table:  make(map[key[S, E]]S, len(transitions)),
		events: make(map[S][]E),
	}

	for _, t := range transitions {
		k := key[S, E]{from: t.From, event: t.Event}

		if to, ok := m.table[k]; ok {
			if to != t.To {
				panic(fmt.Sprintf("workflow %s: conflicting targets for %v on %v", entity, t.From, t.Event))
			}
			continue
		}

		m.table[k] = t.To
		m.events[t.From] = append(m.events[t.From], t.Event)
	}

	return m
}

func (m *Machine[S, E]) Entity() string { return m.entity }

// Next returns the target state for event fired in state from.
func (m *Machine[S, E]) Next(from S, event E) (S, error) {
	to, ok := m.table[key[S, E]{from: from, event: event}]
	if !ok {
		var zero S
		return zero, &apperrors.TransitionError{
			Entity: m.entity,
			From:   fmt.Sprint(from),
			Event:  fmt.Sprint(event),
		}
	}

	return to, nil
}

func (m *Machine[S, E]) Can(from S, event E) bool {
	_, ok := m.table[key[S, E]{from: from, event: event}]
	return ok
}

// Events lists the events accepted in state s, in declaration order.
func (m *Machine[S, E]) Events(s S) []E {
	out := make([]E, len(m.events[s]))
	copy(out, m.events[s])

	return out
}

// Terminal reports whether no listed event moves s to a different state.
// Self-loops (e.g. a payout recorded on a completed job) do not count.
func (m *Machine[S, E]) Terminal(s S) bool {
	for _, e := range m.events[s] {
		if m.table[key[S, E]{from: s, event: e}] != s {
			return false
		}
	}

	return true
}
