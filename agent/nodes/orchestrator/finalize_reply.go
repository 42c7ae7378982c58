package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: agent returned empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:      reply,
		Iterations: in.Iterations,
		ToolCalls:  in.ToolCalls,
		Stopped:    in.Stopped,
	}, nil
}
