// Package provider abstracts the hosted AI backends behind two small
// interfaces: a request/response completion surface for text turns and a
// bidirectional realtime surface for live audio sessions. The protocol
// components depend only on these interfaces so they can be exercised
// against fakes.
package provider

import (
	"context"
	"encoding/json"
)

// Turn is one prior exchange replayed as conversation history.
// Reasoning traces are stripped before a message becomes a Turn.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Attachment is a single binary payload with a declared media type,
// sent inline ahead of the user text.
type Attachment struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// Operation is a schema-typed action the model may request.
// Parameters holds a JSON-schema parameter definition.
type Operation struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Invocation is one operation call returned by the model.
type Invocation struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Request is a single text-mode completion request.
type Request struct {
	Model             string
	SystemInstruction string
	History           []Turn
	UserInput         string
	Attachment        *Attachment
	Operations        []Operation
	// WebSearch declares the provider's own search capability for this turn.
	WebSearch   bool
	Temperature float64
}

// Response is the parsed provider response: free text plus zero or more
// structured operation invocations.
type Response struct {
	Text        string
	Invocations []Invocation
}

// CompletionProvider is the text-mode request/response surface.
type CompletionProvider interface {
	// Complete runs one turn. It has no side effects; callers apply
	// whatever the invocations ask for.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name (e.g. "gemini", "openai").
	Name() string
}

// RealtimeConfig is fixed for the whole live session, unlike text mode
// where the persona varies per turn.
type RealtimeConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
	Operations        []Operation
	// InputSampleRate and OutputSampleRate must match the provider's
	// encode/decode rates exactly; no local resampling is performed.
	InputSampleRate  int
	OutputSampleRate int
}

// ToolResult acknowledges one invocation so the provider's turn can proceed.
type ToolResult struct {
	ID       string
	Name     string
	Response map[string]any
}

// ServerEvent is one inbound event on a realtime connection.
type ServerEvent struct {
	// Invocations carries a batch of tool calls, each requiring an
	// explicit ToolResult before the turn continues.
	Invocations []Invocation
	// Audio is a synthesized PCM16 chunk at the output sample rate.
	Audio []byte
	// Interrupted signals user barge-in: discard all scheduled audio.
	Interrupted bool
	// TurnComplete marks the end of the model's turn.
	TurnComplete bool
	// Transcript carries incremental input transcription text, if any.
	Transcript string
}

// RealtimeConn is an open bidirectional session.
type RealtimeConn interface {
	// SendAudio sends one captured audio frame.
	SendAudio(frame []byte) error

	// SendToolResult acknowledges tool invocations.
	SendToolResult(results []ToolResult) error

	// Receive blocks for the next inbound event. It returns io.EOF
	// after the provider closes the stream.
	Receive() (*ServerEvent, error)

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// RealtimeProvider opens live sessions.
type RealtimeProvider interface {
	Connect(ctx context.Context, cfg RealtimeConfig) (RealtimeConn, error)
}
