// Package room runs the local participant's membership in one room: it
// reacts to relay events by creating and closing peer sessions and
// upgrades them when local media shows up.
package room

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Mesh/internal/client/media"
	"github.com/dkeye/Mesh/internal/client/peer"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var ErrTransportLost = errors.New("signaling connection lost")

// Transport is the signaling connection as the controller sees it.
type Transport interface {
	Send(typ string, payload any) error
	Incoming() <-chan protocol.Message
	Close()
}

type Dialer func(ctx context.Context) (Transport, error)

type NativeFactory func(ctx context.Context, remote domain.ConnectionID) (peer.Native, error)

type Config struct {
	Room        string
	DisplayName string
	Dial        Dialer
	NewNative   NativeFactory
	// Media may be nil for a participant that never sends.
	Media *media.Supervisor
}

type Controller struct {
	cfg Config

	events    chan func()
	leave     chan struct{}
	leaveOnce sync.Once
	done      chan struct{}
	started   atomic.Bool

	// owned by the Run loop
	ctx       context.Context
	transport Transport
	self      domain.ConnectionID
	peers     map[domain.ConnectionID]*peer.Session
	names     map[domain.ConnectionID]string
}

func New(cfg Config) *Controller {
	return &Controller{
		cfg:    cfg,
		events: make(chan func(), 16),
		leave:  make(chan struct{}),
		done:   make(chan struct{}),
		peers:  make(map[domain.ConnectionID]*peer.Session),
		names:  make(map[domain.ConnectionID]string),
	}
}

// Run enters the room and processes events until Leave is called, ctx is
// done or the signaling connection drops. Every exit goes through the same
// teardown.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("controller already running")
	}
	defer close(c.done)

	t, err := c.cfg.Dial(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx
	c.transport = t

	if err := t.Send(protocol.TypeJoin, protocol.JoinPayload{RoomID: c.cfg.Room, DisplayName: c.cfg.DisplayName}); err != nil {
		c.teardown(false)
		return err
	}
	log.Info().Str("module", "room").Str("room", c.cfg.Room).Str("name", c.cfg.DisplayName).Msg("joining")

	if c.cfg.Media != nil {
		c.cfg.Media.Prime(ctx)
		c.cfg.Media.OnAvailable(func(st *media.Stream) {
			c.post(func() { c.attachAll(st) })
		})
	}

	incoming := t.Incoming()
	for {
		select {
		case <-ctx.Done():
			c.teardown(true)
			return nil
		case <-c.leave:
			c.teardown(true)
			return nil
		case fn := <-c.events:
			fn()
		case msg, ok := <-incoming:
			if !ok {
				log.Warn().Str("module", "room").Msg("signaling connection lost")
				c.teardown(false)
				return ErrTransportLost
			}
			c.handle(msg)
		}
	}
}

// Leave exits the room. Safe to call any number of times and from any
// goroutine; returns once teardown finished.
func (c *Controller) Leave() {
	c.leaveOnce.Do(func() { close(c.leave) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Controller) Done() <-chan struct{} { return c.done }

// Self is the connection id assigned by the server, once known.
func (c *Controller) Self() domain.ConnectionID {
	ch := make(chan domain.ConnectionID, 1)
	if !c.post(func() { ch <- c.self }) {
		return ""
	}
	select {
	case id := <-ch:
		return id
	case <-c.done:
		return ""
	}
}

// Peers reports every open peer session.
func (c *Controller) Peers() []peer.Info {
	ch := make(chan []peer.Info, 1)
	if !c.post(func() {
		out := make([]peer.Info, 0, len(c.peers))
		for _, s := range c.peers {
			out = append(out, s.Info())
		}
		ch <- out
	}) {
		return nil
	}
	select {
	case infos := <-ch:
		return infos
	case <-c.done:
		return nil
	}
}

func (c *Controller) post(fn func()) bool {
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) teardown(sendLeave bool) {
	if sendLeave {
		if err := c.transport.Send(protocol.TypeLeave, protocol.LeavePayload{RoomID: c.cfg.Room}); err != nil {
			log.Warn().Err(err).Str("module", "room").Msg("send leave")
		}
	}

	// Sessions may be blocked sending on the transport; closing it first
	// releases them.
	c.transport.Close()

	var wg conc.WaitGroup
	for id, s := range c.peers {
		wg.Go(s.Close)
		delete(c.peers, id)
	}
	wg.Wait()

	log.Info().Str("module", "room").Str("room", c.cfg.Room).Msg("left room")
}

func (c *Controller) currentTracks() []webrtc.TrackLocal {
	if c.cfg.Media == nil {
		return nil
	}
	if st := c.cfg.Media.Current(); st != nil {
		return st.Tracks
	}
	return nil
}

func (c *Controller) attachAll(st *media.Stream) {
	log.Info().Str("module", "room").Int("peers", len(c.peers)).Msg("local media ready, attaching")
	for _, s := range c.peers {
		s.AttachTracks(st.Tracks)
	}
}

func (c *Controller) openSession(remote domain.ConnectionID, role peer.Role) *peer.Session {
	native, err := c.cfg.NewNative(c.ctx, remote)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Str("remote", string(remote)).Msg("create peer connection")
		return nil
	}
	s := peer.New(peer.Config{
		Remote:   remote,
		Role:     role,
		Native:   native,
		Signaler: &relaySignaler{t: c.transport},
		Tracks:   c.currentTracks(),
	})
	c.peers[remote] = s
	return s
}

func (c *Controller) closeSession(remote domain.ConnectionID) {
	s, ok := c.peers[remote]
	if !ok {
		return
	}
	delete(c.peers, remote)
	s.Close()
}
