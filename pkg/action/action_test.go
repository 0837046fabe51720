package action

import (
	"encoding/json"
	"testing"
)

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		act     Action
		wantErr bool
	}{
		{
			name:    "valid chat",
			act:     NewChatResponse("hello"),
			wantErr: false,
		},
		{
			name:    "chat without message",
			act:     Action{Type: KindChat},
			wantErr: true,
		},
		{
			name:    "valid grep",
			act:     NewGrep("TODO", "src"),
			wantErr: false,
		},
		{
			name:    "grep without pattern",
			act:     Action{Type: KindGrep, Path: "src"},
			wantErr: true,
		},
		{
			name:    "glob with empty path is workspace root",
			act:     NewGlob("*.go", ""),
			wantErr: false,
		},
		{
			name:    "valid shell",
			act:     NewShell("ls -la"),
			wantErr: false,
		},
		{
			name:    "shell without command",
			act:     Action{Type: KindShell},
			wantErr: true,
		},
		{
			name:    "valid web search",
			act:     NewWebSearch("release notes"),
			wantErr: false,
		},
		{
			name:    "web search without query",
			act:     Action{Type: KindWebSearch},
			wantErr: true,
		},
		{
			name:    "unknown type",
			act:     Action{Type: Kind("teleport")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.act.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAction_Keyword(t *testing.T) {
	tests := []struct {
		act  Action
		want string
	}{
		{NewChatResponse("hi"), "chat"},
		{NewGrep("x", ""), "grep"},
		{NewGlob("*", ""), "glob"},
		{NewShell("pwd"), "shell"},
		{NewWebSearch("docs"), "web_search"},
	}

	for _, tt := range tests {
		if got := tt.act.Keyword(); got != tt.want {
			t.Errorf("Keyword() = %q, want %q", got, tt.want)
		}
	}
}

func TestAction_JSONRoundTrip(t *testing.T) {
	in := NewGrep("func main", "cmd")
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out Action
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}

	// The wire form uses the type tag and omits unused fields.
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if raw["type"] != "grep" {
		t.Errorf("wire type = %v, want grep", raw["type"])
	}
	if _, present := raw["command"]; present {
		t.Error("wire form should omit unused shell field")
	}
}

func TestExecutionResult_Constructors(t *testing.T) {
	if r := Executed("done"); r.Status != StatusExecuted || r.Output != "done" {
		t.Errorf("Executed() = %+v", r)
	}
	if r := Denied("rate limit reached"); r.Status != StatusDenied || r.Reason != "rate limit reached" {
		t.Errorf("Denied() = %+v", r)
	}
	if r := RequiresHITL(7); r.Status != StatusRequiresHITL || r.ApprovalID != 7 {
		t.Errorf("RequiresHITL() = %+v", r)
	}
}
