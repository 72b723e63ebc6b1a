package live

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
	"github.com/visionary-dev/visionary/pkg/observability"
)

// State is the connection state of a realtime session.
type State int

const (
	// Disconnected means no session exists.
	Disconnected State = iota
	// Connecting means the handshake is in flight.
	Connecting
	// Open means the bidirectional stream is live.
	Open
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "disconnected"
	}
}

// Sentinel errors for session control.
var (
	// ErrAlreadyConnected is returned when Connect is called while a
	// session exists; connect/disconnect is toggle semantics at the caller.
	ErrAlreadyConnected = errors.New("live session already connected")
	// ErrNoCredential is returned when Connect is attempted without a credential.
	ErrNoCredential = errors.New("live session requires a credential")
)

// outboundBuffer is how many captured frames may wait on the network
// before overflow frames are dropped. Capture must never stall on
// backpressure, so the pump drops instead of queueing further.
const outboundBuffer = 8

// Config fixes the parameters of a live session up front.
type Config struct {
	Model             string
	Voice             string
	SystemInstruction string
	InputSampleRate   int
	OutputSampleRate  int
}

// Callbacks deliver session events to the UI-owning context. All of them
// may be nil.
type Callbacks struct {
	// OnDocumentUpdate receives the full replacement content of an
	// updateDocument invocation.
	OnDocumentUpdate func(content string)
	// OnSuggestions receives the options of a suggestNextSteps invocation.
	OnSuggestions func(options []string)
	// OnTranscript receives incremental input transcription text.
	OnTranscript func(text string)
	// OnSpeaking observes the Speaking/Idle sub-state.
	OnSpeaking func(speaking bool)
	// OnError receives connection and stream failures.
	OnError func(err error)
	// OnStateChange observes connection state transitions.
	OnStateChange func(state State)
}

// Session drives one realtime connection. Exactly one Session should be
// live per application instance.
type Session struct {
	rt        provider.RealtimeProvider
	cfg       Config
	callbacks Callbacks

	mu     sync.Mutex
	state  State
	conn   provider.RealtimeConn
	source Source
	sink   Sink
	sched  *Scheduler
	cancel context.CancelFunc
	wg     sync.WaitGroup

	framesDropped uint64
}

// NewSession creates a session over the given realtime provider and audio
// endpoints. Nothing connects until Connect.
func NewSession(rt provider.RealtimeProvider, source Source, sink Sink, cfg Config, cb Callbacks) *Session {
	return &Session{
		rt:        rt,
		cfg:       cfg,
		callbacks: cb,
		source:    source,
		sink:      sink,
		state:     Disconnected,
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Speaking reports whether synthesized audio is currently scheduled.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()
	return sched != nil && sched.Speaking()
}

// Connect acquires the capture source, opens the provider stream with the
// fixed system instruction and both operation schemas, and starts the
// outbound pump and inbound receive loops. A failed microphone or
// handshake reports through OnError and lands back in Disconnected.
func (s *Session) Connect(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrNoCredential
	}

	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = Connecting
	s.mu.Unlock()
	s.notifyState(Connecting)

	ctx, cancel := context.WithCancel(ctx)

	frames, err := s.source.Start(ctx)
	if err != nil {
		cancel()
		s.fail(err)
		return err
	}

	conn, err := s.rt.Connect(ctx, provider.RealtimeConfig{
		Model:             s.cfg.Model,
		Voice:             s.cfg.Voice,
		SystemInstruction: s.cfg.SystemInstruction,
		Operations:        persona.LiveDeclarations(),
		InputSampleRate:   s.cfg.InputSampleRate,
		OutputSampleRate:  s.cfg.OutputSampleRate,
	})
	if err != nil {
		cancel()
		_ = s.source.Close()
		s.fail(err)
		return err
	}

	s.mu.Lock()
	// Disconnect may have raced the handshake; honor it.
	if s.state != Connecting {
		s.mu.Unlock()
		cancel()
		_ = conn.Close()
		_ = s.source.Close()
		return nil
	}
	s.conn = conn
	s.cancel = cancel
	s.sched = NewScheduler(s.sink, s.cfg.OutputSampleRate, s.callbacks.OnSpeaking)
	s.state = Open
	s.mu.Unlock()
	s.notifyState(Open)

	g, gctx := errgroup.WithContext(ctx)
	outbound := make(chan []byte, outboundBuffer)

	// Capture never blocks on the network: frames that would wait are
	// dropped here, at the boundary.
	g.Go(func() error {
		defer close(outbound)
		for {
			select {
			case <-gctx.Done():
				return nil
			case frame, ok := <-frames:
				if !ok {
					// Capture loss ends the session; EOF cancels the
					// group and reads as a clean shutdown.
					return io.EOF
				}
				select {
				case outbound <- frame:
				default:
					s.mu.Lock()
					s.framesDropped++
					s.mu.Unlock()
					observability.AddLiveFramesDropped(1)
				}
			}
		}
	})

	g.Go(func() error {
		for frame := range outbound {
			if err := conn.SendAudio(frame); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		return s.receiveLoop(conn)
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := g.Wait()
		// A slow Receive can outlive Disconnect and even a reconnect; once
		// another connection is current, this waiter owns nothing and must
		// neither report nor tear down.
		s.mu.Lock()
		current := s.conn == conn
		s.mu.Unlock()
		if current && err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
			s.notifyError(err)
		}
		s.teardownOwned(conn)
	}()

	return nil
}

// Disconnect tears the session down. It is idempotent and safe from any
// state, including mid-connect.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.teardown()
}

// FramesDropped returns how many capture frames were discarded due to
// network backpressure.
func (s *Session) FramesDropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesDropped
}

func (s *Session) receiveLoop(conn provider.RealtimeConn) error {
	for {
		ev, err := conn.Receive()
		if err != nil {
			// Returning EOF cancels the group so the outbound pump
			// stops too; the waiter treats it as a clean shutdown.
			return err
		}
		s.handleEvent(conn, ev)
	}
}

func (s *Session) handleEvent(conn provider.RealtimeConn, ev *provider.ServerEvent) {
	// Tool invocations are dispatched like text mode and acknowledged
	// immediately so the provider's turn can proceed.
	var results []provider.ToolResult
	for _, inv := range ev.Invocations {
		switch inv.Name {
		case persona.OpUpdateDocument:
			if content, ok := inv.Args["content"].(string); ok && content != "" {
				if s.callbacks.OnDocumentUpdate != nil {
					s.callbacks.OnDocumentUpdate(content)
				}
			}
			results = append(results, provider.ToolResult{
				ID:       inv.ID,
				Name:     inv.Name,
				Response: map[string]any{"result": "Canvas updated."},
			})
		case persona.OpSuggestNextSteps:
			if options, ok := inv.Args["options"].([]any); ok {
				strs := make([]string, 0, len(options))
				for _, o := range options {
					if str, ok := o.(string); ok {
						strs = append(strs, str)
					}
				}
				if len(strs) > 0 && s.callbacks.OnSuggestions != nil {
					s.callbacks.OnSuggestions(strs)
				}
			}
			results = append(results, provider.ToolResult{
				ID:       inv.ID,
				Name:     inv.Name,
				Response: map[string]any{"result": "Suggestions displayed to user."},
			})
		default:
			// Unrecognized operations are ignored, not surfaced.
		}
	}
	if len(results) > 0 {
		if err := conn.SendToolResult(results); err != nil {
			s.notifyError(err)
		}
	}

	if len(ev.Audio) > 0 {
		s.mu.Lock()
		sched := s.sched
		s.mu.Unlock()
		if sched != nil {
			if err := sched.Schedule(ev.Audio); err != nil {
				s.notifyError(err)
			} else {
				observability.IncLiveAudioChunks()
			}
		}
	}

	if ev.Interrupted {
		s.mu.Lock()
		sched := s.sched
		s.mu.Unlock()
		if sched != nil {
			sched.Interrupt()
		}
	}

	if ev.Transcript != "" && s.callbacks.OnTranscript != nil {
		s.callbacks.OnTranscript(ev.Transcript)
	}
}

// teardown closes every resource handle and resets all refs. Reentrant.
func (s *Session) teardown() {
	s.teardownOwned(nil)
}

// teardownOwned is teardown scoped to one connection. The waiter passes
// the conn it drove and becomes a no-op when a newer session has replaced
// it; Disconnect passes nil to tear down whatever is current.
func (s *Session) teardownOwned(owner provider.RealtimeConn) {
	s.mu.Lock()
	if owner != nil && s.conn != owner {
		s.mu.Unlock()
		return
	}
	if s.state == Disconnected && s.conn == nil && s.cancel == nil {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	sched := s.sched
	cancel := s.cancel
	s.conn = nil
	s.sched = nil
	s.cancel = nil
	s.state = Disconnected
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sched != nil {
		sched.Interrupt()
	}
	if conn != nil {
		_ = conn.Close()
	}
	_ = s.source.Close()
	_ = s.sink.Close()

	s.notifyState(Disconnected)
	if os.Getenv("VISIONARY_DEBUG") == "true" {
		log.Printf("[Live] session closed")
	}
}

// fail resets a half-open connect attempt and reports the error.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = Disconnected
	s.mu.Unlock()
	s.notifyState(Disconnected)
	s.notifyError(err)
}

func (s *Session) notifyError(err error) {
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(err)
	}
}

func (s *Session) notifyState(state State) {
	if s.callbacks.OnStateChange != nil {
		s.callbacks.OnStateChange(state)
	}
}
