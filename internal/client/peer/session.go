// Package peer negotiates one WebRTC connection with one remote
// participant. Each Session is an actor: every input, including native
// callbacks, is queued and processed in order on the session goroutine.
package peer

import (
	"sync"

	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Remote   domain.ConnectionID
	Role     Role
	Native   Native
	Signaler Signaler
	// Tracks are the local tracks available at construction; may be empty.
	Tracks []webrtc.TrackLocal
}

// Info is a point-in-time view of a session.
type Info struct {
	Remote         domain.ConnectionID
	Role           Role
	State          State
	TracksAttached bool
	Pending        int
}

type Session struct {
	remote domain.ConnectionID
	role   Role
	native Native
	sig    Signaler
	log    zerolog.Logger

	mu      sync.Mutex
	ops     []func()
	closing bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once

	// owned by the run goroutine
	state          State
	gate           candidateGate
	tracksAttached bool
	renegotiate    bool
	connected      bool
}

func New(cfg Config) *Session {
	s := &Session{
		remote: cfg.Remote,
		role:   cfg.Role,
		native: cfg.Native,
		sig:    cfg.Signaler,
		log: log.With().
			Str("module", "peer").
			Str("remote", string(cfg.Remote)).
			Str("role", cfg.Role.String()).
			Logger(),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	s.native.OnNegotiationNeeded(func() { s.post(s.negotiate) })
	s.native.OnICECandidate(func(c webrtc.ICECandidateInit) {
		s.post(func() { s.sendLocalCandidate(c) })
	})
	s.native.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		s.post(func() { s.connectionState(st) })
	})

	tracks := append([]webrtc.TrackLocal(nil), cfg.Tracks...)
	s.post(func() { s.setup(tracks) })

	go s.run()
	return s
}

func (s *Session) Remote() domain.ConnectionID { return s.remote }

// HandleOffer applies a remote offer and answers it.
func (s *Session) HandleOffer(sdp webrtc.SessionDescription) {
	s.post(func() { s.offer(sdp) })
}

// HandleAnswer applies the remote answer to our outstanding offer.
func (s *Session) HandleAnswer(sdp webrtc.SessionDescription) {
	s.post(func() { s.answer(sdp) })
}

// AddCandidate applies a remote candidate, or buffers it until the remote
// description is set.
func (s *Session) AddCandidate(c webrtc.ICECandidateInit) {
	s.post(func() { s.candidate(c) })
}

// AttachTracks adds local tracks to a session created without them. Only
// the first call with a non-empty track list has an effect.
func (s *Session) AttachTracks(tracks []webrtc.TrackLocal) {
	tracks = append([]webrtc.TrackLocal(nil), tracks...)
	s.post(func() { s.attach(tracks) })
}

// Info waits until the session has no queued inputs and reports its state.
func (s *Session) Info() Info {
	reply := make(chan Info, 1)
	var probe func()
	probe = func() {
		s.mu.Lock()
		busy := len(s.ops) > 0
		s.mu.Unlock()
		if busy && s.post(probe) {
			return
		}
		reply <- s.snapshot()
	}
	if s.post(probe) {
		select {
		case i := <-reply:
			return i
		case <-s.done:
		}
	}
	<-s.done
	return s.snapshot()
}

// Close releases the native connection and drops buffered candidates and
// queued inputs. Safe to call more than once; returns after teardown.
func (s *Session) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.ops = nil
		s.mu.Unlock()
		close(s.stop)
	})
	<-s.done
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) post(op func()) bool {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return false
	}
	s.ops = append(s.ops, op)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			s.teardown()
			return
		case <-s.wake:
		}

		s.mu.Lock()
		ops := s.ops
		s.ops = nil
		s.mu.Unlock()

		for _, op := range ops {
			select {
			case <-s.stop:
				s.teardown()
				return
			default:
			}
			op()
		}
	}
}

func (s *Session) teardown() {
	dropped := s.gate.Discard()
	s.state = StateClosed
	if err := s.native.Close(); err != nil {
		s.log.Warn().Err(err).Msg("native close")
	}
	s.log.Info().Int("dropped_candidates", dropped).Msg("session closed")
}

func (s *Session) snapshot() Info {
	return Info{
		Remote:         s.remote,
		Role:           s.role,
		State:          s.state,
		TracksAttached: s.tracksAttached,
		Pending:        s.gate.Pending(),
	}
}
