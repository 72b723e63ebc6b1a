package provider

import (
	"context"
	"io"
	"sync"
)

// MockCompletion is a scripted CompletionProvider for tests.
type MockCompletion struct {
	// Responses to return for each call, in order.
	Responses []*Response
	// Errors to return for each call, in order. A nil entry means the
	// corresponding response is returned instead.
	Errors []error

	// Calls records every request received.
	Calls []Request

	index int
}

// Complete implements CompletionProvider.
func (m *MockCompletion) Complete(ctx context.Context, req Request) (*Response, error) {
	m.Calls = append(m.Calls, req)

	if m.index < len(m.Errors) && m.Errors[m.index] != nil {
		err := m.Errors[m.index]
		m.index++
		return nil, err
	}
	if m.index < len(m.Responses) {
		resp := m.Responses[m.index]
		m.index++
		return resp, nil
	}
	return &Response{Text: "Mock response"}, nil
}

// Name implements CompletionProvider.
func (m *MockCompletion) Name() string { return "mock" }

// MockRealtime is a scripted RealtimeProvider for tests.
type MockRealtime struct {
	// ConnectErr, when set, fails the handshake.
	ConnectErr error
	// Conn is handed out by Connect.
	Conn *MockRealtimeConn

	ConnectCalls []RealtimeConfig
}

// Connect implements RealtimeProvider.
func (m *MockRealtime) Connect(ctx context.Context, cfg RealtimeConfig) (RealtimeConn, error) {
	m.ConnectCalls = append(m.ConnectCalls, cfg)
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}
	if m.Conn == nil {
		m.Conn = NewMockRealtimeConn()
	}
	return m.Conn, nil
}

// MockRealtimeConn is a RealtimeConn fed by a test through Emit.
type MockRealtimeConn struct {
	mu      sync.Mutex
	events  chan *ServerEvent
	closed  bool
	failErr error

	SentFrames  [][]byte
	ToolResults []ToolResult
}

// NewMockRealtimeConn creates a mock connection with a buffered event queue.
func NewMockRealtimeConn() *MockRealtimeConn {
	return &MockRealtimeConn{events: make(chan *ServerEvent, 64)}
}

// Emit queues an inbound event for Receive.
func (c *MockRealtimeConn) Emit(ev *ServerEvent) {
	c.events <- ev
}

// Fail ends the event stream with err instead of io.EOF.
func (c *MockRealtimeConn) Fail(err error) {
	c.mu.Lock()
	c.failErr = err
	c.mu.Unlock()
	_ = c.Close()
}

// SendAudio implements RealtimeConn.
func (c *MockRealtimeConn) SendAudio(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(frame))
	copy(buf, frame)
	c.SentFrames = append(c.SentFrames, buf)
	return nil
}

// SendToolResult implements RealtimeConn.
func (c *MockRealtimeConn) SendToolResult(results []ToolResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolResults = append(c.ToolResults, results...)
	return nil
}

// Results returns a snapshot of acknowledged tool results.
func (c *MockRealtimeConn) Results() []ToolResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolResult, len(c.ToolResults))
	copy(out, c.ToolResults)
	return out
}

// Frames returns a snapshot of sent audio frames.
func (c *MockRealtimeConn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.SentFrames))
	copy(out, c.SentFrames)
	return out
}

// Receive implements RealtimeConn.
func (c *MockRealtimeConn) Receive() (*ServerEvent, error) {
	ev, ok := <-c.events
	if !ok {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.failErr != nil {
			return nil, c.failErr
		}
		return nil, io.EOF
	}
	return ev, nil
}

// Close implements RealtimeConn. Closing twice is safe.
func (c *MockRealtimeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// Closed reports whether Close was called.
func (c *MockRealtimeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
