package app

import (
	"errors"
	"sync"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUnknownConnection = errors.New("unknown connection")

type connEntry struct {
	Conn  core.SignalConnection
	Token string
	Room  domain.RoomID
	Name  string
}

// Connections is the transport session table: one entry per live signal
// channel, keyed by a process-unique connection id, plus the room the
// connection currently belongs to.
type Connections struct {
	mu      sync.RWMutex
	entries map[domain.ConnectionID]*connEntry
	policy  Policy
}

func NewConnections(policy Policy) *Connections {
	if policy == nil {
		policy = SimplePolicy{Action: DropMessage}
	}
	return &Connections{
		entries: make(map[domain.ConnectionID]*connEntry),
		policy:  policy,
	}
}

// Register allocates a new connection id for conn. token is the client
// cookie token and is kept for diagnostics only.
func (c *Connections) Register(conn core.SignalConnection, token string) domain.ConnectionID {
	id := domain.NewConnectionID()
	c.mu.Lock()
	c.entries[id] = &connEntry{Conn: conn, Token: token}
	c.mu.Unlock()
	log.Info().Str("module", "app.conns").Str("conn", string(id)).Str("token", token).Msg("registered")
	return id
}

// Unregister releases the id. Only the first call for an id reports true.
func (c *Connections) Unregister(id domain.ConnectionID) bool {
	c.mu.Lock()
	_, ok := c.entries[id]
	delete(c.entries, id)
	c.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.conns").Str("conn", string(id)).Msg("unregistered")
	}
	return ok
}

// Bind records the room membership of a registered connection.
func (c *Connections) Bind(id domain.ConnectionID, roomID domain.RoomID, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	e.Room = roomID
	e.Name = name
	return true
}

// Unbind clears and returns the room membership. Concurrent callers race
// for it; exactly one of them observes ok == true.
func (c *Connections) Unbind(id domain.ConnectionID) (domain.Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.Room.IsZero() {
		return domain.Participant{}, false
	}
	p := domain.Participant{ConnectionID: id, RoomID: e.Room, DisplayName: e.Name}
	e.Room = ""
	e.Name = ""
	return p, true
}

func (c *Connections) RoomOf(id domain.ConnectionID) (domain.RoomID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.Room.IsZero() {
		return "", false
	}
	return e.Room, true
}

func (c *Connections) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Send queues f for id without blocking. On backpressure the policy decides
// whether the slow connection is closed; the frame is dropped either way.
func (c *Connections) Send(id domain.ConnectionID, f core.Frame) error {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}
	err := e.Conn.TrySend(f)
	if errors.Is(err, core.ErrBackpressure) {
		action := c.policy.OnBackPressure(id)
		log.Warn().Str("module", "app.conns").Str("conn", string(id)).Int("action", int(action)).Msg("send buffer full")
		if action == CloseConnection {
			e.Conn.Close()
		}
	}
	return err
}

// Fanout sends f to every member except exclude.
func (c *Connections) Fanout(members []domain.Member, exclude domain.ConnectionID, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, m := range members {
		if m.ID == exclude {
			continue
		}
		if err := c.Send(m.ID, f); err != nil {
			res.Dropped = append(res.Dropped, m.ID)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.conns").Str("from", string(exclude)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("fanout result")
	return res
}
