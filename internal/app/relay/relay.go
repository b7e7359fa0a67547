// Package relay routes signaling messages between connections. It keeps
// no negotiation state: membership lives in app.RoomRegistry and the
// channel table in app.Connections.
package relay

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Mesh/internal/app"
	"github.com/dkeye/Mesh/internal/app/metrics"
	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Relay struct {
	Rooms   *app.RoomRegistry
	Conns   *app.Connections
	Metrics *metrics.Collector
}

func New(rooms *app.RoomRegistry, conns *app.Connections, m *metrics.Collector) *Relay {
	return &Relay{Rooms: rooms, Conns: conns, Metrics: m}
}

// Connect registers conn and tells the client its connection id.
func (r *Relay) Connect(conn core.SignalConnection, token string) domain.ConnectionID {
	id := r.Conns.Register(conn, token)
	r.Metrics.Connected()
	r.send(id, protocol.TypeWelcome, protocol.WelcomePayload{ID: id})
	return id
}

// Join moves the connection into the requested room. The joiner receives
// the members present before it; exactly those members receive
// member-joined, so every pair is introduced once.
func (r *Relay) Join(from domain.ConnectionID, p protocol.JoinPayload) {
	roomID := domain.NormalizeRoomID(p.RoomID)
	if roomID.IsZero() {
		log.Warn().Str("module", "relay").Str("conn", string(from)).Msg("join without room id ignored")
		return
	}
	if _, ok := r.Conns.RoomOf(from); ok {
		r.leave(from)
	}

	name := domain.SanitizeDisplayName(p.DisplayName)
	existing, ok := r.Rooms.Join(from, roomID, name)
	if !ok {
		return
	}
	if !r.Conns.Bind(from, roomID, name) {
		// Connection vanished between the read and the join.
		r.Rooms.Leave(from, roomID)
		return
	}
	r.Metrics.Joined()

	r.send(from, protocol.TypeExistingMembers, existing)
	r.fanout(existing, from, protocol.TypeMemberJoined, domain.Member{ID: from, DisplayName: name})
}

// Leave handles an explicit leave. The connection stays open.
func (r *Relay) Leave(from domain.ConnectionID, p protocol.LeavePayload) {
	if roomID, ok := r.Conns.RoomOf(from); ok && p.RoomID != "" && domain.NormalizeRoomID(p.RoomID) != roomID {
		log.Warn().
			Str("module", "relay").
			Str("conn", string(from)).
			Str("room", string(roomID)).
			Str("requested", p.RoomID).
			Msg("leave for a room the connection is not in")
		return
	}
	r.leave(from)
}

// Disconnect is the channel-loss path: an implicit leave followed by
// releasing the id. Calling it again is a no-op.
func (r *Relay) Disconnect(id domain.ConnectionID) {
	r.leave(id)
	if r.Conns.Unregister(id) {
		r.Metrics.Disconnected()
	}
}

func (r *Relay) leave(id domain.ConnectionID) {
	p, ok := r.Conns.Unbind(id)
	if !ok {
		return
	}
	remaining, ok := r.Rooms.Leave(id, p.RoomID)
	if !ok {
		return
	}
	r.fanout(remaining, id, protocol.TypeMemberLeft, protocol.MemberLeftPayload{ID: id})
}

// Forward relays an offer, answer or ICE candidate to its recipient with
// the sender id attached. Payload content is not inspected.
func (r *Relay) Forward(typ string, from, to domain.ConnectionID, payload json.RawMessage) {
	if to == "" {
		log.Warn().Str("module", "relay").Str("type", typ).Str("from", string(from)).Msg("relay without recipient dropped")
		r.Metrics.Dropped(typ, metrics.ReasonGone)
		return
	}
	var out any
	switch typ {
	case protocol.TypeOffer, protocol.TypeAnswer:
		out = protocol.SessionPayload{SDP: payload, From: from}
	case protocol.TypeICECandidate:
		out = protocol.CandidatePayload{Candidate: payload, From: from}
	default:
		log.Warn().Str("module", "relay").Str("type", typ).Msg("not a relay message")
		return
	}
	r.send(to, typ, out)
}

func (r *Relay) send(to domain.ConnectionID, typ string, payload any) {
	frame, err := protocol.Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Str("type", typ).Msg("encode")
		return
	}
	if err := r.Conns.Send(to, frame); err != nil {
		reason := metrics.ReasonGone
		if errors.Is(err, core.ErrBackpressure) {
			reason = metrics.ReasonBackpressure
		}
		log.Debug().Err(err).Str("module", "relay").Str("type", typ).Str("to", string(to)).Msg("message dropped")
		r.Metrics.Dropped(typ, reason)
		return
	}
	r.Metrics.Relayed(typ, 1)
}

func (r *Relay) fanout(members []domain.Member, exclude domain.ConnectionID, typ string, payload any) {
	if len(members) == 0 {
		return
	}
	frame, err := protocol.Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Str("type", typ).Msg("encode")
		return
	}
	res := r.Conns.Fanout(members, exclude, frame)
	r.Metrics.Relayed(typ, res.SendTo)
	for range res.Dropped {
		r.Metrics.Dropped(typ, metrics.ReasonBackpressure)
	}
}
