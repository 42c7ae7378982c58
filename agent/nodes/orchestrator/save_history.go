package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
)

func SaveHistory(
	ctx context.Context,
	in *GraphState,
	history contractx.HistoryStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if err := history.Append(ctx, in.SessionID, in.Turn...); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	return in, nil
}
