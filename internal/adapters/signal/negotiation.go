package signal

import (
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleSession(id domain.ConnectionID, msg protocol.Message) {
	var p protocol.SessionPayload
	if err := msg.Into(&p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Str("type", msg.Type).Msg("bad sdp payload")
		return
	}
	ctl.Relay.Forward(msg.Type, id, p.To, p.SDP)
}

func (ctl *SignalWSController) handleCandidate(id domain.ConnectionID, msg protocol.Message) {
	var p protocol.CandidatePayload
	if err := msg.Into(&p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad candidate payload")
		return
	}
	ctl.Relay.Forward(msg.Type, id, p.To, p.Candidate)
}
