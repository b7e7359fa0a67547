package peer

import "github.com/pion/webrtc/v4"

type State int

const (
	StateCreated State = iota
	StateHaveLocalOffer
	StateHaveRemoteDescription
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateHaveLocalOffer:
		return "have-local-offer"
	case StateHaveRemoteDescription:
		return "have-remote-description"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type Role int

const (
	// Initiator sends the first offer; it is the side that joined later.
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// candidateGate holds remote candidates until a remote description exists.
// It opens once; after that every candidate is applied directly.
type candidateGate struct {
	open    bool
	pending []webrtc.ICECandidateInit
}

// Offer reports whether c may be applied now. Otherwise c is queued.
func (g *candidateGate) Offer(c webrtc.ICECandidateInit) bool {
	if g.open {
		return true
	}
	g.pending = append(g.pending, c)
	return false
}

// Open returns the queued candidates in arrival order. Only the first
// call returns anything.
func (g *candidateGate) Open() []webrtc.ICECandidateInit {
	if g.open {
		return nil
	}
	g.open = true
	p := g.pending
	g.pending = nil
	return p
}

func (g *candidateGate) Discard() int {
	n := len(g.pending)
	g.pending = nil
	return n
}

func (g *candidateGate) Pending() int { return len(g.pending) }
