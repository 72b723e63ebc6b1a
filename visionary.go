// Package visionary is the application core of the design assistant: a
// chat transcript on one side, a living Markdown document on the other,
// and an AI persona that edits the document through tool invocations.
package visionary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/internal/live"
	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
	"github.com/visionary-dev/visionary/internal/turn"
	"github.com/visionary-dev/visionary/pkg/chat"
	"github.com/visionary-dev/visionary/pkg/config"
	"github.com/visionary-dev/visionary/pkg/observability"
	"github.com/visionary-dev/visionary/pkg/store"
)

// User-facing notification texts.
const (
	authErrorMessage = "Authentication Error: The API key provided is invalid or does not support the requested model. Please provide a valid API key."

	genericErrorMessage = "Sorry, I encountered an error. Please try again."
)

// Control errors.
var (
	// ErrBusy is returned when a turn is submitted while one is in flight.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrNoCredential is returned when an operation needs an API key and
	// none is set.
	ErrNoCredential = errors.New("no API key configured")
)

// EventType identifies what changed.
type EventType string

const (
	EventMessage   EventType = "message"
	EventDocument  EventType = "document"
	EventLiveState EventType = "live_state"
	EventSpeaking  EventType = "speaking"
	EventPersona   EventType = "persona"
	EventReset     EventType = "reset"
)

// Event is pushed to subscribers whenever observable state changes.
type Event struct {
	Type      EventType       `json:"type"`
	Message   *chat.Message   `json:"message,omitempty"`
	Document  *document.State `json:"document,omitempty"`
	LiveState string          `json:"liveState,omitempty"`
	Speaking  bool            `json:"speaking,omitempty"`
	PersonaID string          `json:"personaId,omitempty"`
}

// App owns the whole conversational workspace: transcript, document,
// active persona, credential, and the optional voice session.
type App struct {
	cfg        *config.Config
	store      store.Store
	engine     *turn.Engine
	rtProvider provider.RealtimeProvider
	source     live.Source
	sink       live.Sink

	mu         sync.Mutex
	messages   []chat.Message
	doc        *document.Model
	personaID  persona.ID
	credential string
	loading    bool
	session    *live.Session

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

// New creates the application core. Persisted state is restored from the
// store; a fresh workspace starts from the default document template.
func New(ctx context.Context, cfg *config.Config, st store.Store, completion provider.CompletionProvider, rt provider.RealtimeProvider, source live.Source, sink live.Sink) (*App, error) {
	a := &App{
		cfg:         cfg,
		store:       st,
		engine:      turn.NewEngine(completion, cfg.Model, cfg.Temperature),
		rtProvider:  rt,
		source:      source,
		sink:        sink,
		personaID:   persona.Architect,
		doc:         document.New(document.DefaultTemplate),
		subscribers: make(map[int]func(Event)),
	}

	if messages, err := st.LoadHistory(ctx); err == nil {
		a.messages = messages
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if state, err := st.LoadDocument(ctx); err == nil {
		a.doc = document.FromState(state)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load document: %w", err)
	}

	if cred, err := st.LoadCredential(ctx); err == nil {
		a.credential = cred
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if a.credential == "" {
		a.credential = cfg.APIKey()
	}

	return a, nil
}

// Subscribe registers a listener for state change events. The returned
// function unsubscribes it.
func (a *App) Subscribe(fn func(Event)) func() {
	a.subMu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subscribers, id)
		a.subMu.Unlock()
	}
}

func (a *App) publish(ev Event) {
	a.subMu.Lock()
	subs := make([]func(Event), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Messages returns a copy of the transcript.
func (a *App) Messages() []chat.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]chat.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Document returns the current canvas state.
func (a *App) Document() document.State {
	return a.doc.Snapshot()
}

// Persona returns the active persona.
func (a *App) Persona() persona.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return persona.Resolve(a.personaID)
}

// SwitchPersona changes the active persona. Unknown ids fall back to the
// architect.
func (a *App) SwitchPersona(id string) {
	p := persona.Resolve(persona.ID(id))
	a.mu.Lock()
	a.personaID = p.ID
	a.mu.Unlock()
	a.publish(Event{Type: EventPersona, PersonaID: string(p.ID)})
}

// HasCredential reports whether an API key is set.
func (a *App) HasCredential() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.credential != ""
}

// SetCredential stores a new API key.
func (a *App) SetCredential(ctx context.Context, key string) error {
	a.mu.Lock()
	a.credential = key
	a.mu.Unlock()
	return a.store.SaveCredential(ctx, key)
}

// Loading reports whether a turn is in flight.
func (a *App) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// SubmitTurn runs one chat turn: the user message is appended to the
// transcript, the provider is called with the active persona's
// instruction and operations, and any document update or suggestions are
// applied. Concurrent submissions are rejected rather than queued.
func (a *App) SubmitTurn(ctx context.Context, input string, attachment *provider.Attachment) error {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return ErrBusy
	}
	if a.credential == "" {
		a.mu.Unlock()
		return ErrNoCredential
	}
	a.loading = true
	p := persona.Resolve(a.personaID)
	history := a.historyLocked()
	docContent := a.doc.Content()
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}()

	userMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Text:      input,
		Timestamp: time.Now(),
	}
	a.appendMessage(ctx, userMsg)

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "turn.submit")
	defer span.End()

	result, err := a.engine.Submit(ctx, history, docContent, input, p, attachment)
	if err != nil {
		observability.RecordTurn(string(p.ID), "error", time.Since(start))
		a.handleTurnError(ctx, err)
		return err
	}
	observability.RecordTurn(string(p.ID), "ok", time.Since(start))

	if result.DocumentUpdate != nil {
		a.applyDocument(ctx, *result.DocumentUpdate)
		observability.RecordToolInvocation(persona.OpUpdateDocument, "ok")
	}
	if len(result.Suggestions) > 0 {
		observability.RecordToolInvocation(persona.OpSuggestNextSteps, "ok")
	}

	modelMsg := chat.Message{
		ID:          uuid.NewString(),
		Role:        chat.RoleModel,
		Text:        result.DisplayText,
		Thinking:    result.Thinking,
		Suggestions: result.Suggestions,
		Timestamp:   time.Now(),
	}
	a.appendMessage(ctx, modelMsg)

	return nil
}

// handleTurnError translates a provider failure into a transcript
// notification. Authentication failures also clear the stored credential
// so the user is prompted for a fresh key.
func (a *App) handleTurnError(ctx context.Context, err error) {
	text := genericErrorMessage
	if provider.Classify(err) == provider.KindAuth {
		text = authErrorMessage
		a.mu.Lock()
		a.credential = ""
		a.mu.Unlock()
		if saveErr := a.store.SaveCredential(ctx, ""); saveErr != nil {
			log.Printf("[App] failed to clear credential: %v", saveErr)
		}
	}
	log.Printf("[App] turn failed: %v", err)

	a.appendMessage(ctx, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleModel,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// historyLocked converts the transcript to provider turns. Reasoning
// traces never re-enter the context window.
func (a *App) historyLocked() []provider.Turn {
	out := make([]provider.Turn, 0, len(a.messages))
	for _, m := range a.messages {
		if m.Text == "" {
			continue
		}
		role := "user"
		if m.Role == chat.RoleModel {
			role = "model"
		}
		out = append(out, provider.Turn{Role: role, Text: m.Text})
	}
	return out
}

func (a *App) appendMessage(ctx context.Context, msg chat.Message) {
	a.mu.Lock()
	a.messages = append(a.messages, msg)
	snapshot := make([]chat.Message, len(a.messages))
	copy(snapshot, a.messages)
	a.mu.Unlock()

	if err := a.store.SaveHistory(ctx, snapshot); err != nil {
		log.Printf("[App] failed to persist history: %v", err)
	}
	a.publish(Event{Type: EventMessage, Message: &msg})
}

func (a *App) applyDocument(ctx context.Context, content string) {
	state := a.doc.Apply(content)
	observability.SetDocumentVersion(state.Version)

	if err := a.store.SaveDocument(ctx, state); err != nil {
		log.Printf("[App] failed to persist document: %v", err)
	}
	a.publish(Event{Type: EventDocument, Document: &state})
}

// SetAudioIO replaces the audio endpoints used by the next live session.
// The serve mode calls this when a browser attaches its audio stream.
func (a *App) SetAudioIO(source live.Source, sink live.Sink) {
	a.mu.Lock()
	a.source = source
	a.sink = sink
	a.mu.Unlock()
}

// OutputSampleRate returns the playback rate of voice sessions.
func (a *App) OutputSampleRate() int {
	return a.cfg.Live.OutputSampleRate
}

// LiveState returns the realtime session state.
func (a *App) LiveState() live.State {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session == nil {
		return live.Disconnected
	}
	return session.State()
}

// ToggleLive connects the voice session if disconnected and disconnects
// it otherwise.
func (a *App) ToggleLive(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	credential := a.credential
	source, sink := a.source, a.sink
	a.mu.Unlock()

	if session != nil && session.State() != live.Disconnected {
		session.Disconnect()
		observability.SetLiveConnections(0)
		return nil
	}

	if credential == "" {
		return ErrNoCredential
	}
	if a.rtProvider == nil || source == nil || sink == nil {
		return errors.New("voice session is not available")
	}

	session = live.NewSession(a.rtProvider, source, sink, live.Config{
		Model:             a.cfg.Live.Model,
		Voice:             a.cfg.Live.Voice,
		SystemInstruction: persona.LiveInstruction,
		InputSampleRate:   a.cfg.Live.InputSampleRate,
		OutputSampleRate:  a.cfg.Live.OutputSampleRate,
	}, live.Callbacks{
		OnDocumentUpdate: func(content string) {
			a.applyDocument(context.Background(), content)
			observability.RecordToolInvocation(persona.OpUpdateDocument, "ok")
		},
		OnSuggestions: func(options []string) {
			observability.RecordToolInvocation(persona.OpSuggestNextSteps, "ok")
			a.appendMessage(context.Background(), chat.Message{
				ID:          uuid.NewString(),
				Role:        chat.RoleModel,
				Text:        "I've updated the canvas. Here are some options for us to discuss:",
				Suggestions: options,
				IsAudio:     true,
				Timestamp:   time.Now(),
			})
		},
		OnTranscript: func(text string) {
			a.appendTranscript(text)
		},
		OnSpeaking: func(speaking bool) {
			a.publish(Event{Type: EventSpeaking, Speaking: speaking})
		},
		OnError: func(err error) {
			// Same notification path as text mode: auth failures clear the
			// credential, everything else gets the generic apology.
			a.handleTurnError(context.Background(), err)
		},
		OnStateChange: func(state live.State) {
			if state == live.Open {
				observability.SetLiveConnections(1)
			} else if state == live.Disconnected {
				observability.SetLiveConnections(0)
			}
			a.publish(Event{Type: EventLiveState, LiveState: state.String()})
		},
	})

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	return session.Connect(ctx, credential)
}

// appendTranscript folds incremental voice transcription into the last
// audio message instead of creating one message per fragment. The tail
// message is replaced with a new value, never mutated, and each fragment
// persists through the same path as any other message.
func (a *App) appendTranscript(text string) {
	ctx := context.Background()

	a.mu.Lock()
	if n := len(a.messages); n > 0 && a.messages[n-1].IsAudio && a.messages[n-1].Role == chat.RoleUser {
		updated := a.messages[n-1]
		updated.Text += text
		a.messages[n-1] = updated
		snapshot := make([]chat.Message, n)
		copy(snapshot, a.messages)
		a.mu.Unlock()

		if err := a.store.SaveHistory(ctx, snapshot); err != nil {
			log.Printf("[App] failed to persist history: %v", err)
		}
		a.publish(Event{Type: EventMessage, Message: &updated})
		return
	}
	a.mu.Unlock()

	a.appendMessage(ctx, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Text:      text,
		IsAudio:   true,
		Timestamp: time.Now(),
	})
}

// ClearSession disconnects any live session and resets transcript and
// document to their initial state. The credential survives.
func (a *App) ClearSession(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.messages = nil
	a.mu.Unlock()

	if session != nil {
		session.Disconnect()
	}

	state := a.doc.Reset()
	observability.SetDocumentVersion(state.Version)

	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	a.publish(Event{Type: EventReset})
	return nil
}

// ExportMarkdown returns the document as Markdown.
func (a *App) ExportMarkdown() []byte {
	return a.doc.ExportMarkdown()
}

// ExportJSON returns the document wrapped in the export envelope.
func (a *App) ExportJSON() ([]byte, error) {
	return a.doc.ExportJSON()
}

// Close shuts everything down.
func (a *App) Close() error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session != nil {
		session.Disconnect()
	}
	return a.store.Close()
}
