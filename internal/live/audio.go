// Package live manages the bidirectional realtime session: microphone
// frames out, synthesized speech and tool invocations in, with barge-in
// interruption. Device I/O stays behind the Source/Sink interfaces so the
// state machine and the scheduler are testable without hardware.
package live

import (
	"context"
	"time"
)

// Source produces captured PCM16 frames at a fixed sample rate.
type Source interface {
	// Start begins capture. The returned channel yields fixed-size frames
	// and is closed when the source stops.
	Start(ctx context.Context) (<-chan []byte, error)

	// Close releases the capture device. Safe to call more than once.
	Close() error
}

// Playing is one scheduled chunk of output audio.
type Playing interface {
	// Stop discards the chunk immediately, wherever playback stands.
	Stop()

	// Done is closed when the chunk finishes playing or is stopped.
	Done() <-chan struct{}
}

// Sink plays PCM16 audio against a monotonic output clock, mirroring the
// schedule-at-time model the playback scheduler needs.
type Sink interface {
	// Now returns the current output-clock position.
	Now() time.Duration

	// PlayAt schedules pcm to begin at the given clock position.
	PlayAt(pcm []byte, at time.Duration) (Playing, error)

	// Close releases the playback device. Safe to call more than once.
	Close() error
}

// PCMDuration returns the playback duration of a PCM16 mono buffer at the
// given sample rate.
func PCMDuration(byteLen, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := byteLen / 2 // 16-bit mono
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
