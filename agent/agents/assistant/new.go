package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	llmx "github.com/tanpawarit/vehicle-order-agent/agent/llm"
	promptx "github.com/tanpawarit/vehicle-order-agent/agent/prompt"
)

// New builds a Decider backed by the configured OpenRouter model and the
// embedded assistant prompt.
func New(ctx context.Context, cfg llmx.Config, tools []*schema.ToolInfo) (*Decider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	modelCfg := cfg.OpenRouter()
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create assistant model: %v", contractx.ErrModelInvoke, err)
	}

	return NewDecider(ctx, chatModel, promptx.LoadPromptSet().Assistant, tools)
}
