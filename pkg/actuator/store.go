package actuator

import (
	"fmt"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/registry"
)

// UnknownActuatorError reports a dispatch against an unregistered name.
type UnknownActuatorError struct {
	Name string
}

func (e *UnknownActuatorError) Error() string {
	return fmt.Sprintf("unknown actuator: %s", e.Name)
}

// Store holds actuators keyed by name. A fresh store carries one
// internal actuator per built-in action kind, each with an empty
// policy; callers override them through AddOrReplace.
type Store struct {
	reg *registry.BaseRegistry[*Actuator]
}

func NewStore() *Store {
	s := &Store{reg: registry.NewBaseRegistry[*Actuator]()}
	for _, kind := range action.Kinds() {
		a := New(string(kind), Internal(kind))
		a.Description = fmt.Sprintf("built-in %s actuator", kind)
		_ = s.reg.Set(a.Name, a)
	}
	return s
}

// AddOrReplace validates and registers the actuator, replacing any
// existing entry with the same name. Replacement resets the execution
// counter.
func (s *Store) AddOrReplace(a *Actuator) error {
	if a == nil {
		return fmt.Errorf("actuator cannot be nil")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return s.reg.Set(a.Name, a)
}

func (s *Store) Get(name string) (*Actuator, error) {
	a, ok := s.reg.Get(name)
	if !ok {
		return nil, &UnknownActuatorError{Name: name}
	}
	return a, nil
}

// Snapshots returns name-sorted read-only views.
func (s *Store) Snapshots() []Snapshot {
	names := s.reg.Names()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		if a, ok := s.reg.Get(name); ok {
			out = append(out, a.Snapshot())
		}
	}
	return out
}

func (s *Store) Count() int {
	return s.reg.Count()
}
