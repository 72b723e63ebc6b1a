package visionary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/internal/live"
	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
	"github.com/visionary-dev/visionary/pkg/chat"
	"github.com/visionary-dev/visionary/pkg/config"
	"github.com/visionary-dev/visionary/pkg/store"
)

// stubSource and stubSink satisfy the live audio interfaces without
// hardware.
type stubSource struct {
	frames chan []byte
}

func (s *stubSource) Start(ctx context.Context) (<-chan []byte, error) { return s.frames, nil }
func (s *stubSource) Close() error                                    { return nil }

type stubPlay struct{ done chan struct{} }

func (p *stubPlay) Stop()                 { close(p.done) }
func (p *stubPlay) Done() <-chan struct{} { return p.done }

type stubSink struct{ mu sync.Mutex }

func (s *stubSink) Now() time.Duration { return 0 }
func (s *stubSink) PlayAt(pcm []byte, at time.Duration) (live.Playing, error) {
	return &stubPlay{done: make(chan struct{})}, nil
}
func (s *stubSink) Close() error { return nil }

func newTestApp(t *testing.T, completion *provider.MockCompletion) (*App, store.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.GeminiKey = "test-key"

	st := store.NewMemoryStore()
	rt := &provider.MockRealtime{Conn: provider.NewMockRealtimeConn()}
	app, err := New(context.Background(), cfg, st, completion, rt,
		&stubSource{frames: make(chan []byte, 4)}, &stubSink{})
	require.NoError(t, err)
	return app, st
}

func TestApp_SubmitTurnAppliesDocumentUpdate(t *testing.T) {
	completion := &provider.MockCompletion{
		Responses: []*provider.Response{{
			Text: "<thinking>outline the modules first</thinking>I drafted the architecture.",
			Invocations: []provider.Invocation{{
				Name: "updateDocument",
				Args: map[string]any{"content": "# CRM Design\n\n## Modules"},
			}},
		}},
	}
	app, _ := newTestApp(t, completion)

	before := app.Document().Version
	require.NoError(t, app.SubmitTurn(context.Background(), "design a crm", nil))

	doc := app.Document()
	assert.Equal(t, "# CRM Design\n\n## Modules", doc.Content)
	assert.Equal(t, before+1, doc.Version)

	msgs := app.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, "design a crm", msgs[0].Text)
	assert.Equal(t, chat.RoleModel, msgs[1].Role)
	assert.Equal(t, "I drafted the architecture.", msgs[1].Text)
	assert.Equal(t, "outline the modules first", msgs[1].Thinking)
	assert.NotEmpty(t, msgs[0].ID)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}

func TestApp_SubmitTurnSendsPersonaInstruction(t *testing.T) {
	completion := &provider.MockCompletion{}
	app, _ := newTestApp(t, completion)

	require.NoError(t, app.SubmitTurn(context.Background(), "hello", nil))

	require.Len(t, completion.Calls, 1)
	req := completion.Calls[0]
	assert.Contains(t, req.SystemInstruction, document.DefaultTemplate)
	assert.False(t, req.WebSearch)
}

func TestApp_ResearchPersonaEnablesSearch(t *testing.T) {
	completion := &provider.MockCompletion{}
	app, _ := newTestApp(t, completion)

	app.SwitchPersona("deep-search")
	require.NoError(t, app.SubmitTurn(context.Background(), "latest rag papers", nil))

	require.Len(t, completion.Calls, 1)
	assert.True(t, completion.Calls[0].WebSearch)
}

func TestApp_HistoryExcludesThinking(t *testing.T) {
	completion := &provider.MockCompletion{
		Responses: []*provider.Response{
			{Text: "<thinking>hidden trace</thinking>First answer."},
			{Text: "Second answer."},
		},
	}
	app, _ := newTestApp(t, completion)

	require.NoError(t, app.SubmitTurn(context.Background(), "one", nil))
	require.NoError(t, app.SubmitTurn(context.Background(), "two", nil))

	require.Len(t, completion.Calls, 2)
	for _, h := range completion.Calls[1].History {
		assert.NotContains(t, h.Text, "hidden trace")
	}
}

func TestApp_AuthErrorClearsCredential(t *testing.T) {
	completion := &provider.MockCompletion{
		Errors: []error{errors.New("error 401: unauthenticated")},
	}
	app, st := newTestApp(t, completion)

	err := app.SubmitTurn(context.Background(), "hello", nil)
	require.Error(t, err)

	assert.False(t, app.HasCredential())
	cred, err := st.LoadCredential(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cred)

	msgs := app.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, chat.RoleModel, last.Role)
	assert.True(t, strings.HasPrefix(last.Text, "Authentication Error:"), last.Text)
}

func TestApp_TransportErrorKeepsCredential(t *testing.T) {
	completion := &provider.MockCompletion{
		Errors: []error{errors.New("connection reset by peer")},
	}
	app, _ := newTestApp(t, completion)

	err := app.SubmitTurn(context.Background(), "hello", nil)
	require.Error(t, err)

	assert.True(t, app.HasCredential())
	msgs := app.Messages()
	assert.Equal(t, "Sorry, I encountered an error. Please try again.", msgs[len(msgs)-1].Text)
}

func TestApp_SubmitRequiresCredential(t *testing.T) {
	app, _ := newTestApp(t, &provider.MockCompletion{})
	require.NoError(t, app.SetCredential(context.Background(), ""))

	err := app.SubmitTurn(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Empty(t, app.Messages())
}

func TestApp_SwitchPersonaFallsBackToArchitect(t *testing.T) {
	app, _ := newTestApp(t, &provider.MockCompletion{})

	app.SwitchPersona("nonsense")
	assert.Equal(t, persona.Architect, app.Persona().ID)
}

func TestApp_ClearSessionKeepsCredential(t *testing.T) {
	completion := &provider.MockCompletion{
		Responses: []*provider.Response{{
			Text: "Done.",
			Invocations: []provider.Invocation{{
				Name: "updateDocument",
				Args: map[string]any{"content": "# Changed"},
			}},
		}},
	}
	app, _ := newTestApp(t, completion)
	require.NoError(t, app.SubmitTurn(context.Background(), "change it", nil))
	require.Equal(t, "# Changed", app.Document().Content)

	require.NoError(t, app.ClearSession(context.Background()))

	assert.Empty(t, app.Messages())
	assert.Equal(t, document.DefaultTemplate, app.Document().Content)
	assert.True(t, app.HasCredential())
}

func TestApp_ExportJSONEnvelope(t *testing.T) {
	app, _ := newTestApp(t, &provider.MockCompletion{})

	data, err := app.ExportJSON()
	require.NoError(t, err)

	var env struct {
		Title      string `json:"title"`
		ExportedAt string `json:"exportedAt"`
		Content    string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "Architect AI Design Document", env.Title)
	assert.Equal(t, document.DefaultTemplate, env.Content)
	_, err = time.Parse(time.RFC3339, env.ExportedAt)
	assert.NoError(t, err)
}

func TestApp_ToggleLiveConnectsAndDisconnects(t *testing.T) {
	app, _ := newTestApp(t, &provider.MockCompletion{})

	require.NoError(t, app.ToggleLive(context.Background()))
	assert.Equal(t, live.Open, app.LiveState())

	require.NoError(t, app.ToggleLive(context.Background()))
	assert.Equal(t, live.Disconnected, app.LiveState())
}

func TestApp_LiveDocumentUpdateRaisesVersion(t *testing.T) {
	rtConn := provider.NewMockRealtimeConn()
	cfg := config.Default()
	cfg.GeminiKey = "test-key"
	st := store.NewMemoryStore()
	app, err := New(context.Background(), cfg, st, &provider.MockCompletion{},
		&provider.MockRealtime{Conn: rtConn},
		&stubSource{frames: make(chan []byte, 4)}, &stubSink{})
	require.NoError(t, err)

	require.NoError(t, app.ToggleLive(context.Background()))
	before := app.Document().Version

	rtConn.Emit(&provider.ServerEvent{
		Invocations: []provider.Invocation{{
			ID:   "c1",
			Name: "updateDocument",
			Args: map[string]any{"content": "# Voice Update"},
		}},
	})

	require.Eventually(t, func() bool {
		return app.Document().Content == "# Voice Update"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, before+1, app.Document().Version)

	require.NoError(t, app.ToggleLive(context.Background()))
}

func newLiveTestApp(t *testing.T, rtConn *provider.MockRealtimeConn) (*App, store.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.GeminiKey = "test-key"
	st := store.NewMemoryStore()
	app, err := New(context.Background(), cfg, st, &provider.MockCompletion{},
		&provider.MockRealtime{Conn: rtConn},
		&stubSource{frames: make(chan []byte, 4)}, &stubSink{})
	require.NoError(t, err)
	return app, st
}

func TestApp_LiveTransportErrorSurfacesNotification(t *testing.T) {
	rtConn := provider.NewMockRealtimeConn()
	app, _ := newLiveTestApp(t, rtConn)

	require.NoError(t, app.ToggleLive(context.Background()))
	rtConn.Fail(errors.New("stream reset by peer"))

	require.Eventually(t, func() bool {
		msgs := app.Messages()
		return len(msgs) > 0 && msgs[len(msgs)-1].Text == genericErrorMessage
	}, time.Second, 5*time.Millisecond)
	assert.True(t, app.HasCredential())
	assert.Equal(t, live.Disconnected, app.LiveState())
}

func TestApp_LiveTranscriptFoldsAndPersists(t *testing.T) {
	rtConn := provider.NewMockRealtimeConn()
	app, st := newLiveTestApp(t, rtConn)

	require.NoError(t, app.ToggleLive(context.Background()))
	rtConn.Emit(&provider.ServerEvent{Transcript: "design a "})
	rtConn.Emit(&provider.ServerEvent{Transcript: "chat app"})

	require.Eventually(t, func() bool {
		saved, err := st.LoadHistory(context.Background())
		return err == nil && len(saved) == 1 && saved[0].Text == "design a chat app"
	}, time.Second, 5*time.Millisecond)

	msgs := app.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.True(t, msgs[0].IsAudio)
	assert.Equal(t, "design a chat app", msgs[0].Text)

	require.NoError(t, app.ToggleLive(context.Background()))
}

func TestApp_EventsPublished(t *testing.T) {
	completion := &provider.MockCompletion{
		Responses: []*provider.Response{{
			Text: "Done.",
			Invocations: []provider.Invocation{{
				Name: "updateDocument",
				Args: map[string]any{"content": "# V2"},
			}},
		}},
	}
	app, _ := newTestApp(t, completion)

	var mu sync.Mutex
	var types []EventType
	unsubscribe := app.Subscribe(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, app.SubmitTurn(context.Background(), "go", nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, types, EventMessage)
	assert.Contains(t, types, EventDocument)
}

func TestApp_RestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.SaveHistory(ctx, []chat.Message{
		{ID: "m1", Role: chat.RoleUser, Text: "earlier message"},
	}))
	require.NoError(t, st.SaveDocument(ctx, document.State{Content: "# Restored", Version: 7}))
	require.NoError(t, st.SaveCredential(ctx, "stored-key"))

	cfg := config.Default()
	app, err := New(ctx, cfg, st, &provider.MockCompletion{}, nil, nil, nil)
	require.NoError(t, err)

	assert.Len(t, app.Messages(), 1)
	assert.Equal(t, "# Restored", app.Document().Content)
	assert.Equal(t, 7, app.Document().Version)
	assert.True(t, app.HasCredential())
}
