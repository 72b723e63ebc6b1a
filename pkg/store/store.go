// Package store persists the conversational workspace: chat history, the
// canvas document, and the provider credential. Backends share one typed
// interface so the application can run against memory, local files, or
// Redis without caring which.
package store

import (
	"context"
	"errors"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/pkg/chat"
)

// Common store errors.
var (
	// ErrNotFound is returned when the requested value has never been saved.
	ErrNotFound = errors.New("store: not found")
	// ErrStoreClosed is returned for operations on a closed store.
	ErrStoreClosed = errors.New("store: closed")
)

// Store is the persistence interface for one workspace.
type Store interface {
	// LoadHistory returns the saved chat transcript.
	LoadHistory(ctx context.Context) ([]chat.Message, error)
	// SaveHistory replaces the saved chat transcript.
	SaveHistory(ctx context.Context, messages []chat.Message) error

	// LoadDocument returns the saved canvas state.
	LoadDocument(ctx context.Context) (document.State, error)
	// SaveDocument replaces the saved canvas state.
	SaveDocument(ctx context.Context, state document.State) error

	// LoadCredential returns the saved provider API key.
	LoadCredential(ctx context.Context) (string, error)
	// SaveCredential replaces the saved provider API key. Saving the empty
	// string clears it.
	SaveCredential(ctx context.Context, key string) error

	// Reset discards history and document. The credential survives a reset.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
