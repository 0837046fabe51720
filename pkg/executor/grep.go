package executor

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/looperhq/looper/pkg/action"
)

const (
	noMatchesFound  = "no matches found"
	grepMaxFileSize = 10 << 20
)

// GrepExecutor walks a subtree under the workspace and reports matching
// lines as file:line:text. Binary and oversized files are skipped.
type GrepExecutor struct {
	workspace string
}

func (e *GrepExecutor) Execute(ctx context.Context, act action.Action) (string, error) {
	if act.Pattern == "" {
		return "", &action.ValidationError{Message: "grep action requires a pattern"}
	}

	regex, err := regexp.Compile(act.Pattern)
	if err != nil {
		return "", &action.ValidationError{Message: "invalid regex pattern", Err: err}
	}

	root := resolvePath(e.workspace, act.Path)
	if _, err := os.Stat(root); err != nil {
		return "", &ExecutorError{Kind: action.KindGrep, Message: "search path unavailable", Err: err}
	}

	var lines []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > grepMaxFileSize {
			return nil
		}
		lines = append(lines, e.searchFile(path, regex)...)
		return nil
	})
	if err != nil {
		return "", &ExecutorError{Kind: action.KindGrep, Message: "walk failed", Err: err}
	}

	if len(lines) == 0 {
		return noMatchesFound, nil
	}
	return strings.Join(lines, "\n"), nil
}

func (e *GrepExecutor) searchFile(path string, regex *regexp.Regexp) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil
	}

	display := displayPath(e.workspace, path)
	var out []string
	for i, line := range strings.Split(string(content), "\n") {
		if regex.MatchString(line) {
			out = append(out, fmt.Sprintf("%s:%d:%s", display, i+1, line))
		}
	}
	return out
}
