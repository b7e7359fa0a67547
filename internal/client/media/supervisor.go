// Package media owns the local participant's outgoing stream. Acquisition
// may be slow or fail; until it succeeds the participant is receive-only.
package media

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type Stream struct {
	Tracks []webrtc.TrackLocal
}

// Acquirer obtains the local stream. It may block, e.g. on a device prompt.
type Acquirer func(ctx context.Context) (*Stream, error)

type Supervisor struct {
	acquire Acquirer

	mu      sync.Mutex
	current *Stream
	subs    []func(*Stream)

	primeOnce sync.Once
}

func NewSupervisor(acquire Acquirer) *Supervisor {
	return &Supervisor{acquire: acquire}
}

// Current returns the local stream, or nil while none is available.
func (s *Supervisor) Current() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnAvailable registers fn for the first availability of the stream. If
// the stream is already available fn runs immediately.
func (s *Supervisor) OnAvailable(fn func(*Stream)) {
	s.mu.Lock()
	if cur := s.current; cur != nil {
		s.mu.Unlock()
		fn(cur)
		return
	}
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Prime starts acquisition in the background. Only the first call does
// anything; it never blocks the caller.
func (s *Supervisor) Prime(ctx context.Context) {
	if s.acquire == nil {
		return
	}
	s.primeOnce.Do(func() {
		go func() {
			st, err := s.acquire(ctx)
			if err != nil {
				log.Warn().Err(err).Str("module", "media").Msg("local media unavailable, continuing receive-only")
				return
			}
			s.Publish(st)
		}()
	})
}

// Publish makes st the local stream. Later calls are ignored.
func (s *Supervisor) Publish(st *Stream) bool {
	if st == nil || len(st.Tracks) == 0 {
		return false
	}
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return false
	}
	s.current = st
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	log.Info().Str("module", "media").Int("tracks", len(st.Tracks)).Msg("local media available")
	for _, fn := range subs {
		fn(st)
	}
	return true
}
