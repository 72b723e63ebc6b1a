// Package server exposes the application over HTTP: a JSON API for
// turns, persona switching, and exports, plus a WebSocket feed of state
// change events for browser frontends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	visionary "github.com/visionary-dev/visionary"
	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
	"github.com/visionary-dev/visionary/pkg/config"
	"github.com/visionary-dev/visionary/pkg/observability"
)

// Server bridges HTTP clients to the application core.
type Server struct {
	app     *visionary.App
	cfg     config.ServerConfig
	limiter *rate.Limiter

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a server over the given application.
func New(app *visionary.App, cfg config.ServerConfig) *Server {
	return &Server{
		app:     app,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The assistant UI is served from anywhere during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/turn", s.handleTurn)
	mux.HandleFunc("POST /api/persona", s.handlePersona)
	mux.HandleFunc("GET /api/personas", s.handlePersonas)
	mux.HandleFunc("POST /api/credential", s.handleCredential)
	mux.HandleFunc("POST /api/live/toggle", s.handleLiveToggle)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/export/markdown", s.handleExportMarkdown)
	mux.HandleFunc("GET /api/export/json", s.handleExportJSON)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /ws/audio", s.handleAudioWebSocket)

	return s.withMetrics(s.withRateLimit(mux))
}

// Run serves the API and the observability endpoints until ctx is
// canceled.
func (s *Server) Run(ctx context.Context, metricsAddr string) error {
	observability.InitMetrics()

	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived websocket writes
		IdleTimeout:  120 * time.Second,
	}

	obsServer := observability.NewServer(metricsAddr, observability.NewHealthChecker())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[Server] listening on %s", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Printf("[Server] metrics on %s", metricsAddr)
		if err := obsServer.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = obsServer.Shutdown(shutdownCtx)
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// stateResponse is the full workspace snapshot handed to new clients.
type stateResponse struct {
	Messages      []messageJSON `json:"messages"`
	Document      documentJSON  `json:"document"`
	PersonaID     string        `json:"personaId"`
	LiveState     string        `json:"liveState"`
	HasCredential bool          `json:"hasCredential"`
	Loading       bool          `json:"loading"`
	// ExamplePrompts is populated only while the transcript is empty, for
	// the client's empty-state screen.
	ExamplePrompts []string `json:"examplePrompts,omitempty"`
}

type messageJSON struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Text        string    `json:"text"`
	Thinking    string    `json:"thinking,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	IsAudio     bool      `json:"isAudio,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type documentJSON struct {
	Content     string    `json:"content"`
	Version     int       `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	msgs := s.app.Messages()
	out := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = messageJSON{
			ID:          m.ID,
			Role:        string(m.Role),
			Text:        m.Text,
			Thinking:    m.Thinking,
			Suggestions: m.Suggestions,
			IsAudio:     m.IsAudio,
			Timestamp:   m.Timestamp,
		}
	}

	resp := stateResponse{
		Messages:      out,
		PersonaID:     string(s.app.Persona().ID),
		LiveState:     s.app.LiveState().String(),
		HasCredential: s.app.HasCredential(),
		Loading:       s.app.Loading(),
	}
	doc := s.app.Document()
	resp.Document = documentJSON{
		Content:     doc.Content,
		Version:     doc.Version,
		LastUpdated: doc.LastUpdated,
	}
	if len(msgs) == 0 {
		resp.ExamplePrompts = persona.ExamplePrompts
	}
	writeJSON(w, http.StatusOK, resp)
}

type turnRequest struct {
	Input      string `json:"input"`
	Attachment *struct {
		MIMEType string `json:"mimeType"`
		Data     []byte `json:"data"`
	} `json:"attachment,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var attachment *provider.Attachment
	if req.Attachment != nil {
		attachment = &provider.Attachment{
			MIMEType: req.Attachment.MIMEType,
			Data:     req.Attachment.Data,
		}
	}

	err := s.app.SubmitTurn(r.Context(), req.Input, attachment)
	switch {
	case errors.Is(err, visionary.ErrBusy):
		writeError(w, http.StatusConflict, "a turn is already in progress")
	case errors.Is(err, visionary.ErrNoCredential):
		writeError(w, http.StatusUnauthorized, "no API key configured")
	case err != nil:
		// The transcript already carries the user-facing notification;
		// clients refresh from events.
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type personaRequest struct {
	ID string `json:"id"`
}

func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.app.SwitchPersona(req.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"personaId": string(s.app.Persona().ID),
	})
}

type personaJSON struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	all := persona.All()
	out := make([]personaJSON, len(all))
	for i, p := range all {
		out[i] = personaJSON{ID: string(p.ID), Label: p.Label, Description: p.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

type credentialRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SetCredential(r.Context(), req.Key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasCredential": req.Key != ""})
}

func (s *Server) handleLiveToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ToggleLive(context.WithoutCancel(r.Context())); err != nil {
		if errors.Is(err, visionary.ErrNoCredential) {
			writeError(w, http.StatusUnauthorized, "no API key configured")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"liveState": s.app.LiveState().String(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearSession(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="architect-design.md"`)
	_, _ = w.Write(s.app.ExportMarkdown())
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := s.app.ExportJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="architect-design.json"`)
	_, _ = w.Write(data)
}

// handleWebSocket streams application events to the client. Each client
// gets its own subscription and a buffered send queue; slow clients are
// dropped rather than allowed to stall the publisher.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	events := make(chan visionary.Event, 64)
	unsubscribe := s.app.Subscribe(func(ev visionary.Event) {
		select {
		case events <- ev:
		default:
			// Client is not keeping up; it will resync via /api/state.
		}
	})
	defer unsubscribe()

	// Reader goroutine detects client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The event and audio streams are long-lived and exempt.
		if !isStream(r.URL.Path) && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isStream(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		observability.RecordHTTPRequest(r.Method, r.URL.Path,
			fmt.Sprintf("%d", rec.status), time.Since(start))
	})
}

func isStream(path string) bool {
	return path == "/ws" || path == "/ws/audio"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
