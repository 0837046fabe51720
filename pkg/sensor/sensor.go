// Package sensor holds the percept queues the loop reads from. Each
// sensor keeps an ordered queue and a monotonic unread cursor; percepts
// are never removed once enqueued.
package sensor

import (
	"fmt"
	"sync"
	"time"
)

// Percept is one content item received by a sensor. Immutable after
// enqueue.
type Percept struct {
	SensorName    string `json:"sensor_name"`
	Content       string `json:"content"`
	ChatID        string `json:"chat_id,omitempty"`
	CreatedAtUnix int64  `json:"created_at_unix"`
}

// IngressMode says how percepts arrive at a sensor.
type IngressMode string

const (
	// IngressInternal sensors are fed by in-process hooks only.
	IngressInternal IngressMode = "internal"
	// IngressDirectory sensors ingest files appearing under a watched
	// directory.
	IngressDirectory IngressMode = "directory"
	// IngressREST sensors ingest over the HTTP API.
	IngressREST IngressMode = "rest"
)

// PayloadFormat applies to REST ingress.
type PayloadFormat string

const (
	FormatText PayloadFormat = "text"
	FormatJSON PayloadFormat = "json"
)

// Ingress describes a sensor's intake.
type Ingress struct {
	Mode      IngressMode   `json:"mode"`
	Directory string        `json:"directory,omitempty"`
	Format    PayloadFormat `json:"format,omitempty"`
}

// DefaultSensitivity is assigned when a sensor is registered without a
// score. Scores at or above ForceSurpriseThreshold make every percept
// from the sensor surprising.
const (
	DefaultSensitivity     = 50
	ForceSurpriseThreshold = 90
	MaxSensitivity         = 100
	ChatSensorName         = "chat"
	ChatSensorSensitivity  = 100
)

// Sensor is a named, mutable percept queue. The unread cursor never
// decreases; SenseUnread returns queue[unreadStart:] and advances the
// cursor to the queue end.
type Sensor struct {
	Name             string
	Description      string
	Enabled          bool
	SensitivityScore int
	Ingress          Ingress

	mu          sync.Mutex
	queue       []Percept
	unreadStart int
}

// New creates an enabled internal sensor with the default sensitivity.
func New(name string) *Sensor {
	return &Sensor{
		Name:             name,
		Enabled:          true,
		SensitivityScore: DefaultSensitivity,
		Ingress:          Ingress{Mode: IngressInternal},
	}
}

// NewChat creates the always-present chat sensor: sensitivity 100,
// REST text ingress.
func NewChat() *Sensor {
	return &Sensor{
		Name:             ChatSensorName,
		Description:      "conversational percepts from the operator",
		Enabled:          true,
		SensitivityScore: ChatSensorSensitivity,
		Ingress:          Ingress{Mode: IngressREST, Format: FormatText},
	}
}

// Validate checks the sensor definition.
func (s *Sensor) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("sensor name cannot be empty")
	}
	if s.SensitivityScore < 0 || s.SensitivityScore > MaxSensitivity {
		return fmt.Errorf("sensor %q sensitivity_score must be in [0, %d], got %d",
			s.Name, MaxSensitivity, s.SensitivityScore)
	}
	switch s.Ingress.Mode {
	case IngressInternal:
	case IngressDirectory:
		if s.Ingress.Directory == "" {
			return fmt.Errorf("sensor %q directory ingress requires a directory", s.Name)
		}
	case IngressREST:
		switch s.Ingress.Format {
		case FormatText, FormatJSON:
		default:
			return fmt.Errorf("sensor %q rest ingress format must be text or json, got %q",
				s.Name, s.Ingress.Format)
		}
	default:
		return fmt.Errorf("sensor %q has unknown ingress mode %q", s.Name, s.Ingress.Mode)
	}
	return nil
}

// Enqueue appends a percept, stamping the sensor name and receive time.
func (s *Sensor) Enqueue(content, chatID string) Percept {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Percept{
		SensorName:    s.Name,
		Content:       content,
		ChatID:        chatID,
		CreatedAtUnix: time.Now().Unix(),
	}
	s.queue = append(s.queue, p)
	return p
}

// SenseUnread returns the unread slice and advances the cursor to the
// queue end.
func (s *Sensor) SenseUnread() []Percept {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unreadStart >= len(s.queue) {
		return nil
	}
	unread := make([]Percept, len(s.queue)-s.unreadStart)
	copy(unread, s.queue[s.unreadStart:])
	s.unreadStart = len(s.queue)
	return unread
}

// QueueLen returns the total number of percepts ever enqueued.
func (s *Sensor) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// UnreadStart returns the current cursor position.
func (s *Sensor) UnreadStart() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadStart
}

// Snapshot is the read-only view served over the API.
type Snapshot struct {
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	Enabled          bool    `json:"enabled"`
	SensitivityScore int     `json:"sensitivity_score"`
	Ingress          Ingress `json:"ingress"`
	QueueLen         int     `json:"queue_len"`
	UnreadStart      int     `json:"unread_start"`
}

// Snapshot captures the sensor's current state.
func (s *Sensor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Name:             s.Name,
		Description:      s.Description,
		Enabled:          s.Enabled,
		SensitivityScore: s.SensitivityScore,
		Ingress:          s.Ingress,
		QueueLen:         len(s.queue),
		UnreadStart:      s.unreadStart,
	}
}
