package sensor

import (
	"fmt"

	"github.com/looperhq/looper/pkg/registry"
)

// UnknownSensorError reports an enqueue against a name that was never
// registered.
type UnknownSensorError struct {
	Name string
}

func (e *UnknownSensorError) Error() string {
	return fmt.Sprintf("unknown sensor: %s", e.Name)
}

// Store owns the sensor map. The chat sensor is seeded at construction
// and is always present.
type Store struct {
	reg *registry.BaseRegistry[*Sensor]
}

// NewStore creates a store pre-seeded with the chat sensor.
func NewStore() *Store {
	s := &Store{reg: registry.NewBaseRegistry[*Sensor]()}
	_ = s.reg.Set(ChatSensorName, NewChat())
	return s
}

// AddOrReplace validates and installs the sensor, replacing any
// previous entity (and its queue) under the same name.
func (s *Store) AddOrReplace(sn *Sensor) error {
	if err := sn.Validate(); err != nil {
		return err
	}
	return s.reg.Set(sn.Name, sn)
}

// Get returns the sensor when present.
func (s *Store) Get(name string) (*Sensor, bool) {
	return s.reg.Get(name)
}

// Enqueue appends a percept to the named sensor.
func (s *Store) Enqueue(name, content, chatID string) (Percept, error) {
	sn, ok := s.reg.Get(name)
	if !ok {
		return Percept{}, &UnknownSensorError{Name: name}
	}
	return sn.Enqueue(content, chatID), nil
}

// SenseUnread drains the unread window of every enabled sensor in name
// order. Disabled sensors keep accumulating without advancing.
func (s *Store) SenseUnread() []Percept {
	var out []Percept
	for _, name := range s.reg.Names() {
		sn, ok := s.reg.Get(name)
		if !ok || !sn.Enabled {
			continue
		}
		out = append(out, sn.SenseUnread()...)
	}
	return out
}

// Snapshots returns a stable name-sorted view of every sensor.
func (s *Store) Snapshots() []Snapshot {
	names := s.reg.Names()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		if sn, ok := s.reg.Get(name); ok {
			out = append(out, sn.Snapshot())
		}
	}
	return out
}

// Count returns the number of registered sensors.
func (s *Store) Count() int {
	return s.reg.Count()
}
