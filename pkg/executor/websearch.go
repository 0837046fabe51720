package executor

import (
	"context"
	"fmt"

	"github.com/looperhq/looper/pkg/action"
)

// WebSearchExecutor acknowledges the request. Provider integration sits
// behind this seam; the acceptance text is a stable contract.
type WebSearchExecutor struct{}

func (e *WebSearchExecutor) Execute(ctx context.Context, act action.Action) (string, error) {
	if act.Query == "" {
		return "", &action.ValidationError{Message: "web_search action requires a query"}
	}
	return fmt.Sprintf("web search request accepted for query: '%s'", act.Query), nil
}
