package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

var ErrInvalidSession = errors.New("session id is empty")

// ConversationBuffer keeps each session's message history in memory.
type ConversationBuffer struct {
	mu          sync.RWMutex
	sessions    map[string][]*schema.Message
	maxMessages int
}

// BufferOption customizes ConversationBuffer.
type BufferOption func(*ConversationBuffer)

// WithMaxMessages keeps only the newest n messages per session. n <= 0
// means unbounded.
func WithMaxMessages(n int) BufferOption {
	return func(b *ConversationBuffer) {
		b.maxMessages = n
	}
}

func NewConversationBuffer(opts ...BufferOption) *ConversationBuffer {
	b := &ConversationBuffer{
		sessions: make(map[string][]*schema.Message, 4),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Load returns a copy of the session history; unknown sessions are empty.
func (b *ConversationBuffer) Load(_ context.Context, sessionID string) ([]*schema.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]*schema.Message(nil), b.sessions[sessionID]...), nil
}

func (b *ConversationBuffer) Append(_ context.Context, sessionID string, msgs ...*schema.Message) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	history := b.sessions[sessionID]
	for _, m := range msgs {
		if m != nil {
			history = append(history, m)
		}
	}
	b.sessions[sessionID] = trimHistory(history, b.maxMessages)
	return nil
}

func (b *ConversationBuffer) Reset(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.sessions, sessionID)
	return nil
}

// trimHistory drops the oldest messages beyond max. A tool message is never
// left at the head without the assistant call that produced it.
func trimHistory(history []*schema.Message, max int) []*schema.Message {
	if max <= 0 || len(history) <= max {
		return history
	}

	trimmed := history[len(history)-max:]
	for len(trimmed) > 0 && trimmed[0].Role == schema.Tool {
		trimmed = trimmed[1:]
	}
	return append([]*schema.Message(nil), trimmed...)
}
