package orchestratornode

import (
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply      string
	Iterations int
	ToolCalls  int
	Stopped    bool
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	// History is the conversation before this turn; Turn holds the messages
	// produced by it, starting with the user message.
	History []*schema.Message
	Turn    []*schema.Message

	Reply      string
	Iterations int
	ToolCalls  int
	Stopped    bool
}

// Conversation is the full message list sent to the model.
func (s *GraphState) Conversation() []*schema.Message {
	out := make([]*schema.Message, 0, len(s.History)+len(s.Turn))
	out = append(out, s.History...)
	return append(out, s.Turn...)
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
