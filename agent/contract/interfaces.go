package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Decider chooses the next step of the conversation: one or more tool calls
// or a final answer.
type Decider interface {
	Decide(ctx context.Context, history []*schema.Message) (Decision, error)
}

type ToolGateway interface {
	Infos() []*schema.ToolInfo
	Execute(ctx context.Context, reqs []ToolRequest) []ToolResult
}

type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]*schema.Message, error)
	Append(ctx context.Context, sessionID string, msgs ...*schema.Message) error
	Reset(ctx context.Context, sessionID string) error
}
