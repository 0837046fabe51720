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

func TestTableSeedsAllKinds(t *testing.T) {
	table := NewTable(t.TempDir())
	for _, kind := range action.Kinds() {
		if _, err := table.Get(kind); err != nil {
			t.Errorf("Get(%q) error: %v", kind, err)
		}
	}

	_, err := table.Get(action.Kind("teleport"))
	var noExec *NoExecutorError
	if !errors.As(err, &noExec) {
		t.Fatalf("error type = %T, want *NoExecutorError", err)
	}
	if noExec.Kind != "teleport" {
		t.Errorf("Kind = %q, want teleport", noExec.Kind)
	}
}

func TestChatEchoesMessage(t *testing.T) {
	exec := &ChatExecutor{}
	out, err := exec.Execute(context.Background(), action.NewChatResponse("hello there"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "hello there" {
		t.Errorf("output = %q, want %q", out, "hello there")
	}

	_, err = exec.Execute(context.Background(), action.Action{Type: action.KindChat})
	var verr *action.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("empty message error type = %T, want *action.ValidationError", err)
	}
}

func TestGlobExecutor(t *testing.T) {
	workspace := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "notes.md"} {
		if err := os.WriteFile(filepath.Join(workspace, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	exec := &GlobExecutor{workspace: workspace}

	out, err := exec.Execute(context.Background(), action.NewGlob("*.txt", ""))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "a.txt\nb.txt" {
		t.Errorf("output = %q, want sorted txt matches", out)
	}

	out, err = exec.Execute(context.Background(), action.NewGlob("*.rs", ""))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != noFilesMatched {
		t.Errorf("output = %q, want %q", out, noFilesMatched)
	}

	_, err = exec.Execute(context.Background(), action.Action{Type: action.KindGlob})
	var verr *action.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("missing pattern error type = %T, want *action.ValidationError", err)
	}
}

func TestGrepExecutor(t *testing.T) {
	workspace := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workspace, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"alpha.txt":    "first line\nsecond target line\nthird line",
		"sub/beta.txt": "target at the top\nnothing here",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(workspace, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Files containing NUL bytes are treated as binary and skipped.
	if err := os.WriteFile(filepath.Join(workspace, "blob.bin"), []byte("target\x00target"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := &GrepExecutor{workspace: workspace}

	out, err := exec.Execute(context.Background(), action.NewGrep("target", ""))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	lines := strings.Split(out, "\n")
	wantLines := []string{
		"alpha.txt:2:second target line",
		filepath.Join("sub", "beta.txt") + ":1:target at the top",
	}
	if len(lines) != len(wantLines) {
		t.Fatalf("got %d match lines, want %d: %q", len(lines), len(wantLines), out)
	}
	for i, line := range lines {
		if line != wantLines[i] {
			t.Errorf("line %d = %q, want %q", i, line, wantLines[i])
		}
	}

	out, err = exec.Execute(context.Background(), action.NewGrep("nosuchword", ""))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != noMatchesFound {
		t.Errorf("output = %q, want %q", out, noMatchesFound)
	}

	_, err = exec.Execute(context.Background(), action.NewGrep("(unclosed", ""))
	var verr *action.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("invalid regex error type = %T, want *action.ValidationError", err)
	}

	_, err = exec.Execute(context.Background(), action.NewGrep("target", "missing-dir"))
	var execErr *ExecutorError
	if !errors.As(err, &execErr) {
		t.Errorf("missing path error type = %T, want *ExecutorError", err)
	}
}

func TestWebSearchExecutor(t *testing.T) {
	exec := &WebSearchExecutor{}
	out, err := exec.Execute(context.Background(), action.NewWebSearch("model guidance"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	want := "web search request accepted for query: 'model guidance'"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
