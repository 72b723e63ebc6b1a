package live

import (
	"sync"
	"time"
)

// Scheduler owns the monotonic "next playback time" cursor. Chunks are
// scheduled back to back: each starts at the later of the output clock's
// current position and the end of the previously scheduled chunk, so
// playback is ordered and gapless without caller-side buffering.
type Scheduler struct {
	sink       Sink
	sampleRate int

	mu       sync.Mutex
	next     time.Duration
	active   map[Playing]struct{}
	speaking bool

	// onSpeaking, when set, observes Speaking transitions.
	onSpeaking func(bool)
}

// NewScheduler creates a playback scheduler over sink at the output
// sample rate.
func NewScheduler(sink Sink, sampleRate int, onSpeaking func(bool)) *Scheduler {
	return &Scheduler{
		sink:       sink,
		sampleRate: sampleRate,
		active:     make(map[Playing]struct{}),
		onSpeaking: onSpeaking,
	}
}

// Schedule queues one PCM16 chunk for gapless playback.
func (s *Scheduler) Schedule(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	s.mu.Lock()
	if now := s.sink.Now(); s.next < now {
		s.next = now
	}
	start := s.next
	s.next += PCMDuration(len(pcm), s.sampleRate)
	s.mu.Unlock()

	p, err := s.sink.PlayAt(pcm, start)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.active[p] = struct{}{}
	s.setSpeakingLocked(true)
	s.mu.Unlock()

	go func() {
		<-p.Done()
		s.mu.Lock()
		delete(s.active, p)
		if len(s.active) == 0 {
			s.setSpeakingLocked(false)
		}
		s.mu.Unlock()
	}()

	return nil
}

// Interrupt implements barge-in: every not-yet-finished chunk is stopped
// and discarded and the scheduling cursor resets.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := make([]Playing, 0, len(s.active))
	for p := range s.active {
		stopped = append(stopped, p)
	}
	s.active = make(map[Playing]struct{})
	s.next = 0
	s.setSpeakingLocked(false)
	s.mu.Unlock()

	for _, p := range stopped {
		p.Stop()
	}
}

// Speaking reports whether any scheduled audio remains.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Pending returns the number of chunks still scheduled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) setSpeakingLocked(v bool) {
	if s.speaking == v {
		return
	}
	s.speaking = v
	if s.onSpeaking != nil {
		go s.onSpeaking(v)
	}
}
