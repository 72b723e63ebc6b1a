// Package chat defines the transcript types shared by the turn engine,
// the session store, and the app layer.
package chat

import (
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleUser marks a message typed (or spoken) by the user.
	RoleUser Role = "user"
	// RoleModel marks a message authored by the model.
	RoleModel Role = "model"
)

// Message is one turn in the visible transcript. Messages are immutable
// once created; the transcript only ever grows, except for an explicit
// session reset.
type Message struct {
	// ID is the unique message identifier.
	ID string `json:"id"`
	// Role is who authored the message.
	Role Role `json:"role"`
	// Text is the display string.
	Text string `json:"text"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
	// IsAudio marks messages that originated from a live audio session.
	IsAudio bool `json:"isAudio,omitempty"`
	// Thinking holds the model's reasoning trace, shown collapsed.
	// Only ever set on model messages, and never replayed to the provider.
	Thinking string `json:"thinking,omitempty"`
	// Suggestions are short reply options offered with the message.
	Suggestions []string `json:"suggestions,omitempty"`
}
