package fsm

import "fmt"

// State is one named step of a StatesGroup, e.g. "Form:waiting_for_name".
type State struct {
	group string
	name  string
}

// Name returns the canonical "<Group>:<attr>" identifier stored by a
// Storage backend.
func (s State) Name() string {
	if s.name == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.group, s.name)
}

func (s State) String() string { return s.Name() }

// IsZero reports whether this is the unset/no-state value.
func (s State) IsZero() bool { return s.name == "" }

// StatesGroup is a named collection of related States, built once at
// package-init time via NewStatesGroup — never via field reflection, so
// the group's states are fixed and ordered at construction.
type StatesGroup struct {
	name   string
	states []State
}

// NewStatesGroup registers a states group under name, with one State per
// attr, and returns the group plus its states in the given order.
//
//	var (
//	    Form        = fsm.NewStatesGroup
//	    FormStates  = ...
//	)
//
// Typical use:
//
//	group, states := fsm.NewStatesGroup("Form", "waiting_for_name", "waiting_for_age")
//	WaitingForName, WaitingForAge := states[0], states[1]
func NewStatesGroup(name string, attrs ...string) (*StatesGroup, []State) {
	g := &StatesGroup{name: name}
	g.states = make([]State, len(attrs))
	for i, attr := range attrs {
		g.states[i] = State{group: name, name: attr}
	}
	return g, g.states
}

// Name returns the group's registered name.
func (g *StatesGroup) Name() string { return g.name }

// States returns the group's states in registration order.
func (g *StatesGroup) States() []State { return g.states }

// Contains reports whether s belongs to this group.
func (g *StatesGroup) Contains(s State) bool {
	for _, gs := range g.states {
		if gs == s {
			return true
		}
	}
	return false
}
