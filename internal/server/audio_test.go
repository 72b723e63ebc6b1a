package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialBridge stands up a websocket pair and returns the server-side
// bridge plus the client connection.
func dialBridge(t *testing.T, sampleRate int) (*AudioBridge, *websocket.Conn) {
	t.Helper()

	bridgeCh := make(chan *AudioBridge, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		b := NewAudioBridge(conn, sampleRate)
		bridgeCh <- b
		<-b.Done()
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return <-bridgeCh, client
}

func TestAudioBridge_CaptureFrames(t *testing.T) {
	bridge, client := dialBridge(t, 24000)
	defer func() { _ = bridge.Close() }()

	frames, err := bridge.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}))

	select {
	case frame := <-frames:
		assert.Equal(t, []byte{1, 2, 3, 4}, frame)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestAudioBridge_ClientDisconnectClosesFrames(t *testing.T) {
	bridge, client := dialBridge(t, 24000)
	defer func() { _ = bridge.Close() }()

	frames, err := bridge.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, client.Close())

	select {
	case _, ok := <-frames:
		assert.False(t, ok, "frames channel should close")
	case <-time.After(2 * time.Second):
		t.Fatal("frames channel did not close")
	}
}

func TestAudioBridge_PlayAtDeliversAudio(t *testing.T) {
	bridge, client := dialBridge(t, 24000)
	defer func() { _ = bridge.Close() }()

	pcm := make([]byte, 480) // 10ms at 24kHz
	p, err := bridge.PlayAt(pcm, 0)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Len(t, data, 480)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("chunk never finished")
	}
}

func TestAudioBridge_PacingFollowsSampleRate(t *testing.T) {
	bridge, client := dialBridge(t, 8000)
	defer func() { _ = bridge.Close() }()

	// 4800 bytes is 300ms at 8kHz; at 24kHz it would be only 100ms.
	p, err := bridge.PlayAt(make([]byte, 4800), 0)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = client.ReadMessage()
	require.NoError(t, err)

	select {
	case <-p.Done():
		t.Fatal("chunk finished at a faster pace than the configured rate")
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("chunk never finished")
	}
}

func TestAudioBridge_StopSilencesChunk(t *testing.T) {
	bridge, client := dialBridge(t, 24000)
	defer func() { _ = bridge.Close() }()
	_ = client

	// Scheduled a second out, then stopped before delivery.
	p, err := bridge.PlayAt(make([]byte, 4800), time.Second)
	require.NoError(t, err)
	p.Stop()

	select {
	case <-p.Done():
	default:
		t.Fatal("stop should close done immediately")
	}
}
