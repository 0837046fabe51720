//go:build !windows

package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/looperhq/looper/pkg/action"
)

func TestShellCapturesStdout(t *testing.T) {
	exec := &ShellExecutor{workspace: t.TempDir()}
	out, err := exec.Execute(context.Background(), action.NewShell("echo hello"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.HasPrefix(out, "status: exit status 0") {
		t.Errorf("output = %q, want status prefix", out)
	}
	if !strings.Contains(out, "stdout:\nhello\n") {
		t.Errorf("output = %q, want stdout block", out)
	}
	if strings.Contains(out, "stderr:") {
		t.Errorf("output = %q, unexpected stderr block", out)
	}
}

func TestShellCapturesStderrAndExitCode(t *testing.T) {
	exec := &ShellExecutor{workspace: t.TempDir()}
	out, err := exec.Execute(context.Background(), action.NewShell("echo oops >&2; exit 3"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.HasPrefix(out, "status: exit status 3") {
		t.Errorf("output = %q, want exit status 3", out)
	}
	if !strings.Contains(out, "stderr:\noops\n") {
		t.Errorf("output = %q, want stderr block", out)
	}
}

func TestShellRunsInWorkspace(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "marker.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := &ShellExecutor{workspace: workspace}
	out, err := exec.Execute(context.Background(), action.NewShell("ls"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out, "marker.txt") {
		t.Errorf("output = %q, want workspace listing", out)
	}
}

func TestShellRejectsEmptyCommand(t *testing.T) {
	exec := &ShellExecutor{workspace: t.TempDir()}
	_, err := exec.Execute(context.Background(), action.Action{Type: action.KindShell})
	var verr *action.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error type = %T, want *action.ValidationError", err)
	}
}
