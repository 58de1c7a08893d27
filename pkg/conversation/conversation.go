// Package conversation defines the read-only boundary to the chat transport.
//
// The memory core never owns conversation history; it only reads recent
// turns from whatever system stores the thread (app backend, chat service).
package conversation

import (
	"context"
	"time"
)

// Turn is a single message in a conversation.
type Turn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is when the message was sent.
	Timestamp time.Time `json:"timestamp"`
}

// Provider supplies raw turn history for a session.
//
// Implementations are read-only from the memory core's perspective.
type Provider interface {
	// RecentTurns returns up to limit most recent turns for the session,
	// oldest first.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}
