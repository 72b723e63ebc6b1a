package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visionary-dev/visionary/internal/live"
)

// AudioBridge carries PCM16 audio over one WebSocket connection: binary
// messages from the client are capture frames, binary messages to the
// client are synthesized speech. It satisfies both audio interfaces of
// the live session.
type AudioBridge struct {
	conn       *websocket.Conn
	start      time.Time
	sampleRate int

	writeMu sync.Mutex

	mu     sync.Mutex
	frames chan []byte
	closed bool
	done   chan struct{}
}

// NewAudioBridge wraps an established websocket connection. sampleRate is
// the playback rate of the PCM16 chunks handed to PlayAt.
func NewAudioBridge(conn *websocket.Conn, sampleRate int) *AudioBridge {
	return &AudioBridge{
		conn:       conn,
		start:      time.Now(),
		sampleRate: sampleRate,
		done:       make(chan struct{}),
	}
}

// Start implements live.Source: it begins reading capture frames from
// the client.
func (b *AudioBridge) Start(ctx context.Context) (<-chan []byte, error) {
	b.mu.Lock()
	if b.frames == nil {
		b.frames = make(chan []byte, 16)
		go b.readLoop()
	}
	frames := b.frames
	b.mu.Unlock()
	return frames, nil
}

func (b *AudioBridge) readLoop() {
	defer func() {
		b.mu.Lock()
		frames := b.frames
		b.frames = nil
		b.mu.Unlock()
		if frames != nil {
			close(frames)
		}
	}()

	for {
		msgType, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		b.mu.Lock()
		frames := b.frames
		closed := b.closed
		b.mu.Unlock()
		if closed || frames == nil {
			return
		}
		select {
		case frames <- data:
		default:
			// The session pump applies its own drop policy; a full local
			// buffer means the bridge is being torn down.
		}
	}
}

// Now implements live.Sink using wall clock time since the bridge opened.
func (b *AudioBridge) Now() time.Duration {
	return time.Since(b.start)
}

// bridgePlaying is one chunk scheduled for delivery to the client.
type bridgePlaying struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

func (p *bridgePlaying) Stop() {
	p.timer.Stop()
	p.once.Do(func() { close(p.done) })
}

func (p *bridgePlaying) Done() <-chan struct{} { return p.done }

// PlayAt implements live.Sink: the chunk is sent to the client when the
// output clock reaches at, and Done closes when its playback window ends.
// The client plays frames as they arrive, so server-side pacing keeps the
// stream gapless and makes barge-in discard effective.
func (b *AudioBridge) PlayAt(pcm []byte, at time.Duration) (live.Playing, error) {
	p := &bridgePlaying{done: make(chan struct{})}

	delay := at - b.Now()
	if delay < 0 {
		delay = 0
	}
	duration := live.PCMDuration(len(pcm), b.sampleRate)

	p.timer = time.AfterFunc(delay, func() {
		b.writeMu.Lock()
		err := b.conn.WriteMessage(websocket.BinaryMessage, pcm)
		b.writeMu.Unlock()
		if err != nil {
			p.once.Do(func() { close(p.done) })
			return
		}
		time.AfterFunc(duration, func() {
			p.once.Do(func() { close(p.done) })
		})
	})

	return p, nil
}

// Close implements both interfaces. Safe to call more than once.
func (b *AudioBridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	return b.conn.Close()
}

// Done is closed when the bridge shuts down.
func (b *AudioBridge) Done() <-chan struct{} { return b.done }

// handleAudioWebSocket attaches a browser audio stream. The bridge
// becomes the session's microphone and speaker; the client still toggles
// the session through the API.
func (s *Server) handleAudioWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] audio upgrade failed: %v", err)
		return
	}

	bridge := NewAudioBridge(conn, s.app.OutputSampleRate())
	s.app.SetAudioIO(bridge, bridge)
	defer s.app.SetAudioIO(nil, nil)

	select {
	case <-bridge.Done():
	case <-r.Context().Done():
		_ = bridge.Close()
	}
}
