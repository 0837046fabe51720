package actuator

import (
	"errors"
	"testing"

	"github.com/looperhq/looper/pkg/action"
)

func TestActuatorValidate(t *testing.T) {
	tests := []struct {
		name     string
		actuator *Actuator
		wantErr  bool
	}{
		{
			name:     "valid internal",
			actuator: New("shell", Internal(action.KindShell)),
			wantErr:  false,
		},
		{
			name:     "valid mcp",
			actuator: New("tickets", MCP("jira", "create_issue")),
			wantErr:  false,
		},
		{
			name:     "valid workflow",
			actuator: New("deploy", Workflow("release")),
			wantErr:  false,
		},
		{
			name:     "empty name",
			actuator: New("", Internal(action.KindChat)),
			wantErr:  true,
		},
		{
			name:     "unknown internal kind",
			actuator: New("bad", Internal(action.Kind("teleport"))),
			wantErr:  true,
		},
		{
			name:     "mcp missing tool",
			actuator: New("tickets", MCP("jira", "")),
			wantErr:  true,
		},
		{
			name:     "mcp missing server",
			actuator: New("tickets", MCP("", "create_issue")),
			wantErr:  true,
		},
		{
			name:     "workflow missing name",
			actuator: New("deploy", Workflow("")),
			wantErr:  true,
		},
		{
			name:     "unknown kind type",
			actuator: &Actuator{Name: "x", Kind: Kind{Type: "quantum"}},
			wantErr:  true,
		},
		{
			name: "allowlist and denylist together",
			actuator: &Actuator{
				Name: "shell",
				Kind: Internal(action.KindShell),
				Policy: SafetyPolicy{
					Allowlist: []string{"shell"},
					Denylist:  []string{"chat"},
				},
			},
			wantErr: true,
		},
		{
			name: "rate limit zero max",
			actuator: &Actuator{
				Name:   "shell",
				Kind:   Internal(action.KindShell),
				Policy: SafetyPolicy{RateLimit: &RateLimit{Max: 0, Period: PeriodHour}},
			},
			wantErr: true,
		},
		{
			name: "rate limit bad period",
			actuator: &Actuator{
				Name:   "shell",
				Kind:   Internal(action.KindShell),
				Policy: SafetyPolicy{RateLimit: &RateLimit{Max: 5, Period: "fortnight"}},
			},
			wantErr: true,
		},
		{
			name: "rate limit valid",
			actuator: &Actuator{
				Name:   "shell",
				Kind:   Internal(action.KindShell),
				Policy: SafetyPolicy{RateLimit: &RateLimit{Max: 5, Period: PeriodDay}},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.actuator.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolicyDeniesAndOmits(t *testing.T) {
	p := SafetyPolicy{Denylist: []string{"shell"}}
	if !p.Denies("shell") {
		t.Error("expected denylist to match shell")
	}
	if p.Denies("chat") {
		t.Error("did not expect denylist to match chat")
	}

	p = SafetyPolicy{Allowlist: []string{"glob", "grep"}}
	if p.Omits("glob") {
		t.Error("allowlist contains glob, should not omit")
	}
	if !p.Omits("shell") {
		t.Error("allowlist omits shell, should report omission")
	}

	p = SafetyPolicy{}
	if p.Omits("anything") {
		t.Error("empty allowlist never omits")
	}
}

func TestRateLimitedCounter(t *testing.T) {
	a := New("shell", Internal(action.KindShell))
	a.Policy.RateLimit = &RateLimit{Max: 2, Period: PeriodMinute}

	if a.RateLimited() {
		t.Fatal("fresh actuator should not be rate limited")
	}
	a.RecordExecution()
	if a.RateLimited() {
		t.Fatal("one execution of two should not be rate limited")
	}
	a.RecordExecution()
	if !a.RateLimited() {
		t.Fatal("counter at max should be rate limited")
	}
	if got := a.ExecCount(); got != 2 {
		t.Errorf("ExecCount() = %d, want 2", got)
	}
}

func TestStoreSeedsBuiltins(t *testing.T) {
	s := NewStore()
	if got := s.Count(); got != len(action.Kinds()) {
		t.Fatalf("Count() = %d, want %d", got, len(action.Kinds()))
	}
	for _, kind := range action.Kinds() {
		a, err := s.Get(string(kind))
		if err != nil {
			t.Fatalf("Get(%q) error: %v", kind, err)
		}
		if a.Kind.Type != KindInternal || a.Kind.ActionKind != kind {
			t.Errorf("built-in %q has kind %+v", kind, a.Kind)
		}
	}
}

func TestStoreAddOrReplace(t *testing.T) {
	s := NewStore()

	replacement := New("shell", Internal(action.KindShell))
	replacement.Policy.Denylist = []string{"shell"}
	replacement.RecordExecution()

	if err := s.AddOrReplace(replacement); err != nil {
		t.Fatalf("AddOrReplace() error: %v", err)
	}
	got, err := s.Get("shell")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.Policy.Denies("shell") {
		t.Error("replacement policy not stored")
	}

	invalid := New("", Internal(action.KindChat))
	if err := s.AddOrReplace(invalid); err == nil {
		t.Error("expected validation error for empty name")
	}
}

func TestStoreUnknownActuator(t *testing.T) {
	s := NewStore()
	_, err := s.Get("rocketry")
	if err == nil {
		t.Fatal("expected error for unknown actuator")
	}
	var unknown *UnknownActuatorError
	if !errors.As(err, &unknown) {
		t.Fatalf("error type = %T, want *UnknownActuatorError", err)
	}
	if unknown.Name != "rocketry" {
		t.Errorf("Name = %q, want rocketry", unknown.Name)
	}
}

func TestStoreSnapshotsSorted(t *testing.T) {
	s := NewStore()
	snaps := s.Snapshots()
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].Name > snaps[i].Name {
			t.Fatalf("snapshots out of order: %q before %q", snaps[i-1].Name, snaps[i].Name)
		}
	}
}
