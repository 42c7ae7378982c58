package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
)

// StoppedReply is returned when a turn runs out of iterations or time.
const StoppedReply = "Agent stopped due to iteration limit or time limit."

type Limits struct {
	MaxIterations    int
	MaxExecutionTime time.Duration
}

// RunAgent alternates model decisions and tool execution until the model
// answers or a limit is reached. Tool calls run one at a time.
func RunAgent(
	ctx context.Context,
	in *GraphState,
	decider contractx.Decider,
	tools contractx.ToolGateway,
	limits Limits,
) (*GraphState, error) {
	if in == nil || len(in.Turn) == 0 {
		return nil, fmt.Errorf("%w: graph state has no user message", contractx.ErrValidation)
	}

	runCtx := ctx
	if limits.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limits.MaxExecutionTime)
		defer cancel()
	}

	for in.Iterations < limits.MaxIterations {
		if runCtx.Err() != nil {
			break
		}

		decision, err := decider.Decide(runCtx, in.Conversation())
		if err != nil {
			if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				break
			}
			return nil, err
		}
		in.Iterations++

		if decision.Message != nil {
			in.Turn = append(in.Turn, decision.Message)
		}
		if decision.IsFinal() {
			if decision.Message == nil {
				in.Turn = append(in.Turn, schema.AssistantMessage(decision.Answer, nil))
			}
			in.Reply = decision.Answer
			return in, nil
		}

		for _, res := range tools.Execute(runCtx, decision.ToolRequests) {
			in.ToolCalls++
			in.Turn = append(in.Turn, schema.ToolMessage(res.Content(), res.CallID, schema.WithToolName(res.Tool)))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Warn().
		Str("session_id", in.SessionID).
		Int("iterations", in.Iterations).
		Int("tool_calls", in.ToolCalls).
		Msg("agent stopped before a final answer")

	in.Stopped = true
	in.Reply = StoppedReply
	in.Turn = append(in.Turn, schema.AssistantMessage(StoppedReply, nil))
	return in, nil
}
