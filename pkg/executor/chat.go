package executor

import (
	"context"

	"github.com/looperhq/looper/pkg/action"
)

// ChatExecutor echoes the planned message. Delivery to a session is the
// caller's concern.
type ChatExecutor struct{}

func (e *ChatExecutor) Execute(ctx context.Context, act action.Action) (string, error) {
	if act.Message == "" {
		return "", &action.ValidationError{Message: "chat action requires a message"}
	}
	return act.Message, nil
}
