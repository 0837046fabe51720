package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"github.com/looperhq/looper/pkg/action"
)

// ShellExecutor spawns the command through the platform shell with the
// workspace root as working directory. A non-zero exit is output, not
// an error; only spawn failures fail.
type ShellExecutor struct {
	workspace string
}

func (e *ShellExecutor) Execute(ctx context.Context, act action.Action) (string, error) {
	if act.Command == "" {
		return "", &action.ValidationError{Message: "shell action requires a command"}
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", act.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", act.Command)
	}
	cmd.Dir = e.workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", &ExecutorError{Kind: action.KindShell, Message: "command failed to start", Err: err}
		}
	}

	var b strings.Builder
	b.WriteString("status: ")
	b.WriteString(cmd.ProcessState.String())
	if stdout.Len() > 0 {
		b.WriteString("\nstdout:\n")
		b.Write(stdout.Bytes())
	}
	if stderr.Len() > 0 {
		b.WriteString("\nstderr:\n")
		b.Write(stderr.Bytes())
	}
	return b.String(), nil
}
