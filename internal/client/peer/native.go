package peer

import "github.com/pion/webrtc/v4"

// Native is the peer-connection primitive a Session drives. Event
// callbacks may fire on any goroutine.
type Native interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	AddTrack(webrtc.TrackLocal) error
	// AddReceiver adds a recvonly transceiver of the given kind.
	AddReceiver(kind webrtc.RTPCodecType) error

	OnNegotiationNeeded(func())
	OnICECandidate(func(webrtc.ICECandidateInit))
	OnConnectionStateChange(func(webrtc.PeerConnectionState))

	Close() error
}
