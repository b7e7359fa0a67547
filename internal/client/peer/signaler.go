package peer

//go:generate mockgen -destination=mocks/mock_signaler.go -package=mocks github.com/dkeye/Mesh/internal/client/peer Signaler

import (
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Signaler delivers a session's outbound negotiation messages to the relay.
type Signaler interface {
	SendOffer(to domain.ConnectionID, sdp webrtc.SessionDescription) error
	SendAnswer(to domain.ConnectionID, sdp webrtc.SessionDescription) error
	SendCandidate(to domain.ConnectionID, c webrtc.ICECandidateInit) error
}
