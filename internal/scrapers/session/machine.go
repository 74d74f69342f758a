package session

import (
	"fmt"
	"strings"
)

// State is a named step of a scraper's protocol.
type State string

// Machine tracks a protocol run and rejects any step its transition table
// does not allow. It is not safe for concurrent use, each fetch owns one.
type Machine struct {
	name        string
	current     State
	transitions map[State][]State
	history     []State
}

// NewMachine starts a machine in initial.
func NewMachine(name string, initial State, transitions map[State][]State) *Machine {
	return &Machine{
		name:        name,
		current:     initial,
		transitions: transitions,
		history:     []State{initial},
	}
}

func (m *Machine) Current() State {
	return m.current
}

// Can reports whether to is reachable from the current state.
func (m *Machine) Can(to State) bool {
	for _, next := range m.transitions[m.current] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves to the given state.
func (m *Machine) Advance(to State) error {
	if !m.Can(to) {
		return fmt.Errorf("%s: illegal transition %s -> %s", m.name, m.current, to)
	}
	m.current = to
	m.history = append(m.history, to)
	return nil
}

// History returns every state visited in order, including the current one.
func (m *Machine) History() []State {
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Machine) String() string {
	names := make([]string, len(m.history))
	for i, s := range m.history {
		names[i] = string(s)
	}
	return strings.Join(names, " -> ")
}
