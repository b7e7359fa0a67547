// Package peertest provides an in-memory peer.Native for tests. It keeps
// the signaling state of a real peer connection and raises
// negotiation-needed the way browsers and pion do: when a track or
// transceiver is added while signaling is stable, again when signaling
// returns to stable with changes still unnegotiated, and after every local
// answer while all transceivers came from the remote offer.
package peertest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Mesh/internal/client/peer"
	"github.com/pion/webrtc/v4"
)

var _ peer.Native = (*FakeNative)(nil)

var (
	ErrClosed          = errors.New("fake: connection closed")
	ErrWrongState      = errors.New("fake: wrong signaling state")
	ErrNoRemoteDesc    = errors.New("fake: remote description not set")
	ErrInjectedFailure = errors.New("fake: injected failure")
)

type FakeNative struct {
	mu               sync.Mutex
	signaling        webrtc.SignalingState
	remote           *webrtc.SessionDescription
	needsNegotiation bool
	offers           int
	tracks           []webrtc.TrackLocal
	receivers        []webrtc.RTPCodecType
	applied          []webrtc.ICECandidateInit
	closed           bool
	failures         map[string]error

	onNegotiation func()
	onICE         func(webrtc.ICECandidateInit)
	onState       func(webrtc.PeerConnectionState)
}

func New() *FakeNative {
	return &FakeNative{
		signaling: webrtc.SignalingStateStable,
		failures:  make(map[string]error),
	}
}

// FailNext makes the next call of method (e.g. "CreateAnswer") return err.
func (f *FakeNative) FailNext(method string, err error) {
	if err == nil {
		err = ErrInjectedFailure
	}
	f.mu.Lock()
	f.failures[method] = err
	f.mu.Unlock()
}

func (f *FakeNative) takeFailure(method string) error {
	if err, ok := f.failures[method]; ok {
		delete(f.failures, method)
		return err
	}
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *FakeNative) CreateOffer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CreateOffer"); err != nil {
		return webrtc.SessionDescription{}, err
	}
	f.offers++
	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  fmt.Sprintf("offer %d tracks=%d receivers=%d", f.offers, len(f.tracks), len(f.receivers)),
	}, nil
}

func (f *FakeNative) CreateAnswer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CreateAnswer"); err != nil {
		return webrtc.SessionDescription{}, err
	}
	if f.signaling != webrtc.SignalingStateHaveRemoteOffer {
		return webrtc.SessionDescription{}, ErrWrongState
	}
	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  fmt.Sprintf("answer tracks=%d", len(f.tracks)),
	}, nil
}

func (f *FakeNative) SetLocalDescription(sd webrtc.SessionDescription) error {
	f.mu.Lock()
	if err := f.takeFailure("SetLocalDescription"); err != nil {
		f.mu.Unlock()
		return err
	}
	switch sd.Type {
	case webrtc.SDPTypeOffer:
		if f.signaling != webrtc.SignalingStateStable && f.signaling != webrtc.SignalingStateHaveLocalOffer {
			f.mu.Unlock()
			return ErrWrongState
		}
		f.signaling = webrtc.SignalingStateHaveLocalOffer
		f.needsNegotiation = false
	case webrtc.SDPTypeAnswer:
		if f.signaling != webrtc.SignalingStateHaveRemoteOffer {
			f.mu.Unlock()
			return ErrWrongState
		}
		f.signaling = webrtc.SignalingStateStable
		f.needsNegotiation = false
		if len(f.tracks) == 0 && len(f.receivers) == 0 {
			cb := f.onNegotiation
			f.mu.Unlock()
			if cb != nil {
				cb()
			}
			return nil
		}
	case webrtc.SDPTypeRollback:
		if f.signaling != webrtc.SignalingStateHaveLocalOffer {
			f.mu.Unlock()
			return ErrWrongState
		}
		f.signaling = webrtc.SignalingStateStable
		f.needsNegotiation = true
	default:
		f.mu.Unlock()
		return ErrWrongState
	}
	f.mu.Unlock()
	return nil
}

func (f *FakeNative) SetRemoteDescription(sd webrtc.SessionDescription) error {
	f.mu.Lock()
	if err := f.takeFailure("SetRemoteDescription"); err != nil {
		f.mu.Unlock()
		return err
	}
	fire := false
	switch sd.Type {
	case webrtc.SDPTypeOffer:
		if f.signaling != webrtc.SignalingStateStable {
			f.mu.Unlock()
			return ErrWrongState
		}
		f.signaling = webrtc.SignalingStateHaveRemoteOffer
	case webrtc.SDPTypeAnswer:
		if f.signaling != webrtc.SignalingStateHaveLocalOffer {
			f.mu.Unlock()
			return ErrWrongState
		}
		f.signaling = webrtc.SignalingStateStable
		fire = f.needsNegotiation
	default:
		f.mu.Unlock()
		return ErrWrongState
	}
	desc := sd
	f.remote = &desc
	cb := f.onNegotiation
	f.mu.Unlock()

	if fire && cb != nil {
		cb()
	}
	return nil
}

func (f *FakeNative) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("AddICECandidate"); err != nil {
		return err
	}
	if f.remote == nil {
		return ErrNoRemoteDesc
	}
	f.applied = append(f.applied, c)
	return nil
}

func (f *FakeNative) AddTrack(t webrtc.TrackLocal) error {
	f.mu.Lock()
	if err := f.takeFailure("AddTrack"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.tracks = append(f.tracks, t)
	return f.changed()
}

func (f *FakeNative) AddReceiver(kind webrtc.RTPCodecType) error {
	f.mu.Lock()
	if err := f.takeFailure("AddReceiver"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.receivers = append(f.receivers, kind)
	return f.changed()
}

// changed must be called with f.mu held; it releases it.
func (f *FakeNative) changed() error {
	f.needsNegotiation = true
	fire := f.signaling == webrtc.SignalingStateStable
	cb := f.onNegotiation
	f.mu.Unlock()
	if fire && cb != nil {
		cb()
	}
	return nil
}

func (f *FakeNative) OnNegotiationNeeded(fn func()) {
	f.mu.Lock()
	f.onNegotiation = fn
	f.mu.Unlock()
}

func (f *FakeNative) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	f.mu.Lock()
	f.onICE = fn
	f.mu.Unlock()
}

func (f *FakeNative) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	f.mu.Lock()
	f.onState = fn
	f.mu.Unlock()
}

func (f *FakeNative) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// NeedNegotiation raises negotiation-needed regardless of state, the way
// pion does for transceivers whose direction differs from the last offer.
func (f *FakeNative) NeedNegotiation() {
	f.mu.Lock()
	cb := f.onNegotiation
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// EmitCandidate simulates a locally gathered ICE candidate.
func (f *FakeNative) EmitCandidate(c webrtc.ICECandidateInit) {
	f.mu.Lock()
	cb := f.onICE
	f.mu.Unlock()
	if cb != nil {
		cb(c)
	}
}

func (f *FakeNative) SetConnectionState(st webrtc.PeerConnectionState) {
	f.mu.Lock()
	cb := f.onState
	f.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}

func (f *FakeNative) Applied() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), f.applied...)
}

func (f *FakeNative) Tracks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tracks)
}

func (f *FakeNative) Receivers() []webrtc.RTPCodecType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.RTPCodecType(nil), f.receivers...)
}

func (f *FakeNative) Offers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offers
}

func (f *FakeNative) SignalingState() webrtc.SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaling
}

func (f *FakeNative) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
