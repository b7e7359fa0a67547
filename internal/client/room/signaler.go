package room

import (
	"encoding/json"

	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/protocol"
	"github.com/pion/webrtc/v4"
)

// relaySignaler addresses a session's messages to its remote via the relay.
type relaySignaler struct {
	t Transport
}

func (r *relaySignaler) SendOffer(to domain.ConnectionID, sdp webrtc.SessionDescription) error {
	return r.sendSession(protocol.TypeOffer, to, sdp)
}

func (r *relaySignaler) SendAnswer(to domain.ConnectionID, sdp webrtc.SessionDescription) error {
	return r.sendSession(protocol.TypeAnswer, to, sdp)
}

func (r *relaySignaler) SendCandidate(to domain.ConnectionID, c webrtc.ICECandidateInit) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.t.Send(protocol.TypeICECandidate, protocol.CandidatePayload{Candidate: raw, To: to})
}

func (r *relaySignaler) sendSession(typ string, to domain.ConnectionID, sdp webrtc.SessionDescription) error {
	raw, err := json.Marshal(sdp)
	if err != nil {
		return err
	}
	return r.t.Send(typ, protocol.SessionPayload{SDP: raw, To: to})
}
