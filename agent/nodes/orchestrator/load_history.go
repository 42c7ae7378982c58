package orchestratornode

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
)

func LoadHistory(
	ctx context.Context,
	in *GraphState,
	history contractx.HistoryStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	msgs, err := history.Load(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	in.History = msgs
	in.Turn = []*schema.Message{schema.UserMessage(in.Text)}
	return in, nil
}
