package assistant

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
)

var _ contractx.Decider = (*Decider)(nil)

// Decider asks a tool-calling chat model for the next step of a conversation.
type Decider struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func NewDecider(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	tools []*schema.ToolInfo,
) (*Decider, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt is required", contractx.ErrValidation)
	}

	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	runner, err := compileDecisionGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &Decider{runner: runner}, nil
}

// Decide returns either the tool calls the model wants to make or its final
// answer. The returned Decision.Message is safe to append to the history.
func (d *Decider) Decide(ctx context.Context, history []*schema.Message) (contractx.Decision, error) {
	if len(history) == 0 {
		return contractx.Decision{}, fmt.Errorf("%w: history is empty", contractx.ErrValidation)
	}

	msg, err := d.runner.Invoke(ctx, map[string]any{
		historyKey: history,
	})
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: decide: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.Decision{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	if msg.Role == "" {
		msg.Role = schema.Assistant
	}

	reqs, err := toToolRequests(msg)
	if err != nil {
		return contractx.Decision{}, err
	}
	if len(reqs) > 0 {
		log.Debug().Int("tool_calls", len(reqs)).Msg("model requested tools")
		return contractx.Decision{Message: msg, ToolRequests: reqs}, nil
	}

	answer := strings.TrimSpace(msg.Content)
	if answer == "" {
		return contractx.Decision{}, fmt.Errorf("%w: response has neither tool calls nor content", contractx.ErrSchemaViolation)
	}
	return contractx.Decision{Message: msg, Answer: answer}, nil
}

// toToolRequests maps tool calls to requests. Calls without an id get one so
// tool results can be matched in the history.
func toToolRequests(msg *schema.Message) ([]contractx.ToolRequest, error) {
	if len(msg.ToolCalls) == 0 {
		return nil, nil
	}

	reqs := make([]contractx.ToolRequest, 0, len(msg.ToolCalls))
	for i := range msg.ToolCalls {
		call := &msg.ToolCalls[i]
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}
		if strings.TrimSpace(call.ID) == "" {
			call.ID = "call_" + uuid.NewString()
		}

		reqs = append(reqs, contractx.ToolRequest{
			CallID: call.ID,
			Tool:   tool,
			Input:  call.Function.Arguments,
		})
	}
	return reqs, nil
}
