package executor

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/looperhq/looper/pkg/action"
)

const noFilesMatched = "no files matched"

// GlobExecutor expands a glob pattern under the workspace root.
type GlobExecutor struct {
	workspace string
}

func (e *GlobExecutor) Execute(ctx context.Context, act action.Action) (string, error) {
	if act.Pattern == "" {
		return "", &action.ValidationError{Message: "glob action requires a pattern"}
	}

	root := resolvePath(e.workspace, act.Path)
	matches, err := filepath.Glob(filepath.Join(root, act.Pattern))
	if err != nil {
		return "", &action.ValidationError{Message: "invalid glob pattern", Err: err}
	}
	if len(matches) == 0 {
		return noFilesMatched, nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, displayPath(e.workspace, m))
	}
	sort.Strings(out)
	return strings.Join(out, "\n"), nil
}
