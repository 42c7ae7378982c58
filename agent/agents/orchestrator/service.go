package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	nodex "github.com/tanpawarit/vehicle-order-agent/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/vehicle-order-agent/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

const StoppedReply = nodex.StoppedReply

type Config struct {
	MaxIterations      int           `split_words:"true" default:"10"`
	MaxExecutionTime   time.Duration `split_words:"true" default:"10m"`
	MaxHistoryMessages int           `split_words:"true" default:"0"`
}

// Orchestrator runs one user turn at a time through the turn graph.
type Orchestrator struct {
	decider contractx.Decider
	tools   contractx.ToolGateway
	history contractx.HistoryStore
	limits  nodex.Limits

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	decider contractx.Decider,
	tools contractx.ToolGateway,
	history contractx.HistoryStore,
	cfg Config,
) (*Orchestrator, error) {
	if decider == nil {
		return nil, errors.New("decider is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if history == nil {
		history = statex.NewConversationBuffer(statex.WithMaxMessages(cfg.MaxHistoryMessages))
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}
	maxExecutionTime := cfg.MaxExecutionTime
	if maxExecutionTime <= 0 {
		maxExecutionTime = 10 * time.Minute
	}

	o := &Orchestrator{
		decider: decider,
		tools:   tools,
		history: history,
		limits: nodex.Limits{
			MaxIterations:    maxIterations,
			MaxExecutionTime: maxExecutionTime,
		},
		now: time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return "", err
	}

	log.Info().
		Str("session_id", sessionID).
		Int("iterations", out.Iterations).
		Int("tool_calls", out.ToolCalls).
		Bool("stopped", out.Stopped).
		Msg("turn handled")
	return out.Reply, nil
}

// Reset forgets the conversation of a session. Placed orders are kept.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	return o.history.Reset(ctx, sessionID)
}
