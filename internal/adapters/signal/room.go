package signal

import (
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(id domain.ConnectionID, msg protocol.Message) {
	var p protocol.JoinPayload
	if err := msg.Into(&p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad join payload")
		return
	}
	if !ctl.limiter.Allow(id) {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("room", p.RoomID).Msg("join rate limited")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", p.RoomID).Msg("join")
	ctl.Relay.Join(id, p)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(id domain.ConnectionID, msg protocol.Message) {
	var p protocol.LeavePayload
	if len(msg.Payload) > 0 {
		if err := msg.Into(&p); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad leave payload")
			return
		}
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("leave")
	ctl.Relay.Leave(id, p)
}
