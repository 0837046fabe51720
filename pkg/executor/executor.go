// Package executor binds internal action kinds to side-effecting
// executors. External actuator kinds never reach this package.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/registry"
)

// Executor runs one action variant. Implementations return output text
// or fail; they never encode policy decisions.
type Executor interface {
	Execute(ctx context.Context, act action.Action) (string, error)
}

// NoExecutorError reports an internal action kind with no registered
// executor.
type NoExecutorError struct {
	Kind action.Kind
}

func (e *NoExecutorError) Error() string {
	return fmt.Sprintf("no executor registered for action kind: %s", e.Kind)
}

// ExecutorError wraps a runtime failure inside an executor.
type ExecutorError struct {
	Kind    action.Kind
	Message string
	Err     error
}

func (e *ExecutorError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// Table maps action kinds to executors. A fresh table binds every
// built-in kind against the given workspace root; the workspace path is
// captured here once and never reloaded.
type Table struct {
	reg *registry.BaseRegistry[Executor]
}

// NewTable seeds the built-in executors rooted at workspace.
func NewTable(workspace string) *Table {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	t := &Table{reg: registry.NewBaseRegistry[Executor]()}
	_ = t.reg.Set(string(action.KindChat), &ChatExecutor{})
	_ = t.reg.Set(string(action.KindGlob), &GlobExecutor{workspace: abs})
	_ = t.reg.Set(string(action.KindGrep), &GrepExecutor{workspace: abs})
	_ = t.reg.Set(string(action.KindShell), &ShellExecutor{workspace: abs})
	_ = t.reg.Set(string(action.KindWebSearch), &WebSearchExecutor{})
	return t
}

// Set registers or replaces the executor for a kind.
func (t *Table) Set(kind action.Kind, exec Executor) error {
	return t.reg.Set(string(kind), exec)
}

// Get resolves the executor for a kind.
func (t *Table) Get(kind action.Kind) (Executor, error) {
	exec, ok := t.reg.Get(string(kind))
	if !ok {
		return nil, &NoExecutorError{Kind: kind}
	}
	return exec, nil
}

// resolvePath anchors a relative path at the workspace root. Absolute
// paths pass through; empty means the root itself.
func resolvePath(workspace, path string) string {
	if path == "" {
		return workspace
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

// displayPath renders a walked file path relative to the workspace when
// it sits underneath it.
func displayPath(workspace, path string) string {
	rel, err := filepath.Rel(workspace, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
