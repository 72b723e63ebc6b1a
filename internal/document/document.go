// Package document holds the single mutable Markdown artifact shared
// between the chat panel and the canvas.
package document

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ExportTitle is the title field of the JSON export envelope.
const ExportTitle = "Architect AI Design Document"

// State is a snapshot of the canvas document.
type State struct {
	Content     string    `json:"content"`
	Version     int       `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Model owns the live document. Exactly one Model exists per session.
// A provider-issued update is an atomic full replacement, never a patch:
// the provider returns the complete desired content.
type Model struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time
}

// New creates a Model seeded with the given content at version zero.
func New(content string) *Model {
	return &Model{
		state: State{Content: content, LastUpdated: time.Now()},
		now:   time.Now,
	}
}

// FromState restores a Model from a persisted snapshot.
func FromState(state State) *Model {
	return &Model{state: state, now: time.Now}
}

// Snapshot returns the current document state.
func (m *Model) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Content returns the current Markdown text.
func (m *Model) Content() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Content
}

// Apply replaces the whole document with content and bumps the version.
// Concurrent event sources (a finishing text turn racing a live tool call)
// both funnel through here; last write wins, no merge.
func (m *Model) Apply(content string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{
		Content:     content,
		Version:     m.state.Version + 1,
		LastUpdated: m.now(),
	}
	return m.state
}

// Reset restores the default template and bumps the version.
func (m *Model) Reset() State {
	return m.Apply(DefaultTemplate)
}

// ExportMarkdown returns the raw document bytes.
func (m *Model) ExportMarkdown() []byte {
	return []byte(m.Content())
}

// exportEnvelope is the JSON export shape.
type exportEnvelope struct {
	Title      string `json:"title"`
	ExportedAt string `json:"exportedAt"`
	Content    string `json:"content"`
}

// ExportJSON returns the document wrapped in the export envelope with an
// ISO-8601 export timestamp.
func (m *Model) ExportJSON() ([]byte, error) {
	env := exportEnvelope{
		Title:      ExportTitle,
		ExportedAt: m.now().UTC().Format(time.RFC3339),
		Content:    m.Content(),
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export envelope: %w", err)
	}
	return data, nil
}
