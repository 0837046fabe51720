// Package action defines the action variants a plan can carry, the
// policy keywords they map to, and the execution outcome types.
package action

import "fmt"

// ValidationError reports a malformed action payload. The HTTP layer
// maps it to a client error.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Kind discriminates the action variants. The string value doubles as
// the policy keyword and the internal executor key.
type Kind string

const (
	KindChat      Kind = "chat"
	KindGrep      Kind = "grep"
	KindGlob      Kind = "glob"
	KindShell     Kind = "shell"
	KindWebSearch Kind = "web_search"
)

// Kinds lists every internal action kind.
func Kinds() []Kind {
	return []Kind{KindChat, KindGrep, KindGlob, KindShell, KindWebSearch}
}

// Action is a tagged variant. Type selects the variant; only that
// variant's fields are meaningful.
type Action struct {
	Type Kind `json:"type"`

	// chat
	Message string `json:"message,omitempty"`

	// grep, glob. Path is relative to the workspace root; empty means
	// the root itself.
	Pattern string `json:"pattern,omitempty"`
	Path    string `json:"path,omitempty"`

	// shell
	Command string `json:"command,omitempty"`

	// web_search
	Query string `json:"query,omitempty"`
}

func NewChatResponse(message string) Action {
	return Action{Type: KindChat, Message: message}
}

func NewGrep(pattern, path string) Action {
	return Action{Type: KindGrep, Pattern: pattern, Path: path}
}

func NewGlob(pattern, path string) Action {
	return Action{Type: KindGlob, Pattern: pattern, Path: path}
}

func NewShell(command string) Action {
	return Action{Type: KindShell, Command: command}
}

func NewWebSearch(query string) Action {
	return Action{Type: KindWebSearch, Query: query}
}

// Keyword returns the stable policy keyword for the action.
func (a Action) Keyword() string {
	return string(a.Type)
}

// Validate checks the variant carries its required fields.
func (a Action) Validate() error {
	switch a.Type {
	case KindChat:
		if a.Message == "" {
			return &ValidationError{Message: "chat action requires a message"}
		}
	case KindGrep, KindGlob:
		if a.Pattern == "" {
			return &ValidationError{Message: fmt.Sprintf("%s action requires a pattern", a.Type)}
		}
	case KindShell:
		if a.Command == "" {
			return &ValidationError{Message: "shell action requires a command"}
		}
	case KindWebSearch:
		if a.Query == "" {
			return &ValidationError{Message: "web_search action requires a query"}
		}
	default:
		return &ValidationError{Message: fmt.Sprintf("unknown action type: %q", a.Type)}
	}
	return nil
}

// Describe renders a short human-readable form used in journals and
// descriptive dispatch output.
func (a Action) Describe() string {
	switch a.Type {
	case KindChat:
		return fmt.Sprintf("chat: %s", a.Message)
	case KindGrep:
		return fmt.Sprintf("grep %q in %q", a.Pattern, a.Path)
	case KindGlob:
		return fmt.Sprintf("glob %q in %q", a.Pattern, a.Path)
	case KindShell:
		return fmt.Sprintf("shell: %s", a.Command)
	case KindWebSearch:
		return fmt.Sprintf("web_search: %s", a.Query)
	default:
		return fmt.Sprintf("unknown action %q", a.Type)
	}
}

// Recommended pairs an action with the actuator the planner chose for it.
type Recommended struct {
	ActuatorName string `json:"actuator_name"`
	Action       Action `json:"action"`
}

// ResultStatus discriminates execution outcomes.
type ResultStatus string

const (
	StatusExecuted     ResultStatus = "executed"
	StatusDenied       ResultStatus = "denied"
	StatusRequiresHITL ResultStatus = "requires_hitl"
)

// ExecutionResult is the outcome of dispatching one recommended action.
// Denied and RequiresHITL are outcomes, not errors.
type ExecutionResult struct {
	Status     ResultStatus `json:"status"`
	Output     string       `json:"output,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	ApprovalID uint64       `json:"approval_id,omitempty"`
}

func Executed(output string) ExecutionResult {
	return ExecutionResult{Status: StatusExecuted, Output: output}
}

func Denied(reason string) ExecutionResult {
	return ExecutionResult{Status: StatusDenied, Reason: reason}
}

func RequiresHITL(approvalID uint64) ExecutionResult {
	return ExecutionResult{Status: StatusRequiresHITL, ApprovalID: approvalID}
}
