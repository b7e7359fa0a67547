package room

import (
	"encoding/json"

	"github.com/dkeye/Mesh/internal/client/peer"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func (c *Controller) handle(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeWelcome:
		var p protocol.WelcomePayload
		if err := msg.Into(&p); err == nil {
			c.self = p.ID
			log.Info().Str("module", "room").Str("self", string(p.ID)).Msg("welcome")
		}
	case protocol.TypeExistingMembers:
		var members []domain.Member
		if len(msg.Payload) > 0 {
			if err := msg.Into(&members); err != nil {
				log.Error().Err(err).Str("module", "room").Msg("bad existing-members")
				return
			}
		}
		c.existingMembers(members)
	case protocol.TypeMemberJoined:
		var m domain.Member
		if err := msg.Into(&m); err != nil {
			log.Error().Err(err).Str("module", "room").Msg("bad member-joined")
			return
		}
		// The newcomer offers to us; nothing to do until it does.
		c.names[m.ID] = m.DisplayName
		log.Info().Str("module", "room").Str("remote", string(m.ID)).Str("name", m.DisplayName).Msg("member joined")
	case protocol.TypeMemberLeft:
		var p protocol.MemberLeftPayload
		if err := msg.Into(&p); err != nil {
			log.Error().Err(err).Str("module", "room").Msg("bad member-left")
			return
		}
		log.Info().Str("module", "room").Str("remote", string(p.ID)).Str("name", c.names[p.ID]).Msg("member left")
		delete(c.names, p.ID)
		c.closeSession(p.ID)
	case protocol.TypeOffer:
		c.offer(msg)
	case protocol.TypeAnswer:
		c.answer(msg)
	case protocol.TypeICECandidate:
		c.candidate(msg)
	case protocol.TypePong:
	default:
		log.Warn().Str("module", "room").Str("type", msg.Type).Msg("unknown message")
	}
}

func (c *Controller) existingMembers(members []domain.Member) {
	log.Info().Str("module", "room").Int("members", len(members)).Msg("existing members")
	for _, m := range members {
		if m.ID == c.self {
			continue
		}
		c.names[m.ID] = m.DisplayName
		c.closeSession(m.ID)
		c.openSession(m.ID, peer.Initiator)
	}
}

func (c *Controller) offer(msg protocol.Message) {
	var p protocol.SessionPayload
	var sdp webrtc.SessionDescription
	if err := decodeSession(msg, &p, &sdp); err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad offer")
		return
	}
	s, ok := c.peers[p.From]
	if !ok {
		if s = c.openSession(p.From, peer.Responder); s == nil {
			return
		}
	}
	s.HandleOffer(sdp)
}

func (c *Controller) answer(msg protocol.Message) {
	var p protocol.SessionPayload
	var sdp webrtc.SessionDescription
	if err := decodeSession(msg, &p, &sdp); err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad answer")
		return
	}
	s, ok := c.peers[p.From]
	if !ok {
		log.Warn().Str("module", "room").Str("remote", string(p.From)).Msg("answer for unknown peer discarded")
		return
	}
	s.HandleAnswer(sdp)
}

func (c *Controller) candidate(msg protocol.Message) {
	var p protocol.CandidatePayload
	if err := msg.Into(&p); err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad candidate")
		return
	}
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(p.Candidate, &ci); err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad candidate body")
		return
	}
	s, ok := c.peers[p.From]
	if !ok {
		log.Warn().Str("module", "room").Str("remote", string(p.From)).Msg("candidate for unknown peer discarded")
		return
	}
	s.AddCandidate(ci)
}

func decodeSession(msg protocol.Message, p *protocol.SessionPayload, sdp *webrtc.SessionDescription) error {
	if err := msg.Into(p); err != nil {
		return err
	}
	return json.Unmarshal(p.SDP, sdp)
}
