package peer_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/dkeye/Mesh/internal/client/peer"
	"github.com/dkeye/Mesh/internal/client/peer/mocks"
	"github.com/dkeye/Mesh/internal/client/peer/peertest"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/webrtc/v4"
	"go.uber.org/mock/gomock"
)

const remote = domain.ConnectionID("remote-1")

var (
	remoteOffer  = webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "remote offer"}
	remoteAnswer = webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "remote answer"}
)

func audioTrack(t *testing.T) webrtc.TrackLocal {
	t.Helper()
	tr, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "mesh-test")
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func cand(s string) webrtc.ICECandidateInit { return webrtc.ICECandidateInit{Candidate: s} }

func newSession(t *testing.T, role peer.Role, sig peer.Signaler, tracks ...webrtc.TrackLocal) (*peer.Session, *peertest.FakeNative) {
	t.Helper()
	native := peertest.New()
	s := peer.New(peer.Config{Remote: remote, Role: role, Native: native, Signaler: sig, Tracks: tracks})
	t.Cleanup(s.Close)
	return s, native
}

// offers records every offer sent through a mock signaler.
type offers struct {
	mu   sync.Mutex
	sdps []string
}

func (o *offers) record(_ domain.ConnectionID, sdp webrtc.SessionDescription) error {
	o.mu.Lock()
	o.sdps = append(o.sdps, sdp.SDP)
	o.mu.Unlock()
	return nil
}

func (o *offers) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.sdps...)
}

func TestInitiatorWithoutMediaOffersReceiveOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendOffer(remote, gomock.Any()).Return(nil).Times(1)

	s, native := newSession(t, peer.Initiator, sig)
	info := s.Info()

	if info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state = %s", info.State)
	}
	if info.TracksAttached {
		t.Fatal("tracks attached without media")
	}
	if got := native.Receivers(); len(got) != 2 {
		t.Fatalf("receivers = %v, want audio and video", got)
	}
}

func TestInitiatorWithMediaOffersOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendOffer(remote, gomock.Any()).Return(nil).Times(1)

	s, native := newSession(t, peer.Initiator, sig, audioTrack(t))
	info := s.Info()

	if !info.TracksAttached || native.Tracks() != 1 {
		t.Fatalf("info = %+v, tracks = %d", info, native.Tracks())
	}
	if len(native.Receivers()) != 0 {
		t.Fatal("session with media must not add receive-only transceivers")
	}
}

func TestResponderWithoutMediaAnswers(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).DoAndReturn(
		func(_ domain.ConnectionID, sdp webrtc.SessionDescription) error {
			if sdp.Type != webrtc.SDPTypeAnswer {
				t.Errorf("sent %s, want answer", sdp.Type)
			}
			return nil
		}).Times(1)

	s, native := newSession(t, peer.Responder, sig)
	s.HandleOffer(remoteOffer)
	info := s.Info()

	if info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("state = %s", info.State)
	}
	if native.SignalingState() != webrtc.SignalingStateStable {
		t.Fatalf("signaling = %s", native.SignalingState())
	}
	if native.Offers() != 0 {
		t.Fatal("responder must not offer before the remote does")
	}
}

func TestResponderBuffersCandidatesUntilOffer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).Return(nil)

	s, native := newSession(t, peer.Responder, sig)
	for _, c := range []string{"c1", "c2", "c3"} {
		s.AddCandidate(cand(c))
	}
	if info := s.Info(); info.Pending != 3 {
		t.Fatalf("pending = %d, want 3", info.Pending)
	}
	if len(native.Applied()) != 0 {
		t.Fatal("candidate applied before remote description")
	}

	s.HandleOffer(remoteOffer)
	s.AddCandidate(cand("c4"))
	info := s.Info()

	if info.Pending != 0 {
		t.Fatalf("pending after drain = %d", info.Pending)
	}
	applied := native.Applied()
	want := []string{"c1", "c2", "c3", "c4"}
	if len(applied) != len(want) {
		t.Fatalf("applied %d candidates, want %d", len(applied), len(want))
	}
	for i, c := range applied {
		if c.Candidate != want[i] {
			t.Fatalf("applied[%d] = %s, want %s", i, c.Candidate, want[i])
		}
	}
}

func TestInitiatorBuffersCandidatesUntilAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendOffer(remote, gomock.Any()).Return(nil)

	s, native := newSession(t, peer.Initiator, sig)
	s.AddCandidate(cand("early-1"))
	s.AddCandidate(cand("early-2"))
	if info := s.Info(); info.Pending != 2 {
		t.Fatalf("pending = %d", info.Pending)
	}

	s.HandleAnswer(remoteAnswer)
	info := s.Info()
	if info.State != peer.StateHaveRemoteDescription || info.Pending != 0 {
		t.Fatalf("info = %+v", info)
	}
	if got := native.Applied(); len(got) != 2 || got[0].Candidate != "early-1" || got[1].Candidate != "early-2" {
		t.Fatalf("applied = %v", got)
	}
}

func TestAttachTracksTwiceRenegotiatesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sent := &offers{}
	sig.EXPECT().SendOffer(remote, gomock.Any()).DoAndReturn(sent.record).Times(2)

	s, native := newSession(t, peer.Initiator, sig)
	s.Info()
	if n := len(sent.list()); n != 1 {
		t.Fatalf("initial offers = %d, want 1", n)
	}
	s.HandleAnswer(remoteAnswer)
	native.SetConnectionState(webrtc.PeerConnectionStateConnected)
	if info := s.Info(); info.State != peer.StateConnected {
		t.Fatalf("state = %s", info.State)
	}

	track := audioTrack(t)
	s.AttachTracks([]webrtc.TrackLocal{track})
	s.AttachTracks([]webrtc.TrackLocal{track})
	info := s.Info()

	if native.Tracks() != 1 {
		t.Fatalf("tracks added %d times", native.Tracks())
	}
	if !info.TracksAttached || info.State != peer.StateHaveLocalOffer {
		t.Fatalf("info = %+v", info)
	}
	got := sent.list()
	if len(got) != 2 || !strings.Contains(got[1], "tracks=1") {
		t.Fatalf("offers = %v", got)
	}
}

func TestAttachDuringOutstandingOfferWaitsForAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sent := &offers{}
	sig.EXPECT().SendOffer(remote, gomock.Any()).DoAndReturn(sent.record).Times(2)

	s, _ := newSession(t, peer.Initiator, sig)
	if info := s.Info(); info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state = %s", info.State)
	}
	s.AttachTracks([]webrtc.TrackLocal{audioTrack(t)})
	s.Info()
	if n := len(sent.list()); n != 1 {
		t.Fatalf("offers before answer = %d, want 1", n)
	}

	s.HandleAnswer(remoteAnswer)
	s.Info()
	if n := len(sent.list()); n != 2 {
		t.Fatalf("offers after answer = %d, want 2", n)
	}
}

func TestResponderLateAttachOffers(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).Return(nil)
	sig.EXPECT().SendOffer(remote, gomock.Any()).Return(nil).Times(1)

	s, _ := newSession(t, peer.Responder, sig)
	s.HandleOffer(remoteOffer)
	s.AttachTracks([]webrtc.TrackLocal{audioTrack(t)})

	if info := s.Info(); info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state = %s", info.State)
	}
}

func TestResponderIgnoresNegotiationFromRemoteTransceivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).Return(nil).Times(1)

	s, native := newSession(t, peer.Responder, sig)
	s.HandleOffer(remoteOffer)
	for i := 0; i < 5; i++ {
		native.NeedNegotiation()
	}

	info := s.Info()
	if info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("state = %s", info.State)
	}
	if native.Offers() != 0 {
		t.Fatalf("responder offered %d times without new tracks", native.Offers())
	}
}

func TestResponderRenegotiatesOncePerAttach(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sent := &offers{}
	sig.EXPECT().SendAnswer(remote, gomock.Any()).Return(nil).Times(1)
	sig.EXPECT().SendOffer(remote, gomock.Any()).DoAndReturn(sent.record).Times(1)

	s, native := newSession(t, peer.Responder, sig)
	s.HandleOffer(remoteOffer)
	track := audioTrack(t)
	s.AttachTracks([]webrtc.TrackLocal{track})
	s.AttachTracks([]webrtc.TrackLocal{track})
	if info := s.Info(); info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state = %s", info.State)
	}

	s.HandleAnswer(remoteAnswer)
	native.NeedNegotiation()
	native.NeedNegotiation()
	info := s.Info()

	if info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("state = %s", info.State)
	}
	if got := sent.list(); len(got) != 1 || !strings.Contains(got[0], "tracks=1") {
		t.Fatalf("offers = %v", got)
	}
	if native.Tracks() != 1 {
		t.Fatalf("tracks added %d times", native.Tracks())
	}
}

func TestResponderWithMediaAnswersWithoutOffer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).DoAndReturn(
		func(_ domain.ConnectionID, sdp webrtc.SessionDescription) error {
			if !strings.Contains(sdp.SDP, "tracks=1") {
				t.Errorf("answer %q does not carry the local track", sdp.SDP)
			}
			return nil
		}).Times(1)

	s, native := newSession(t, peer.Responder, sig, audioTrack(t))
	s.HandleOffer(remoteOffer)
	native.NeedNegotiation()

	if info := s.Info(); !info.TracksAttached || info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("info = %+v", info)
	}
	if native.Offers() != 0 {
		t.Fatal("tracks present at answer time must not trigger an offer")
	}
}

func TestUnexpectedAnswerIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)

	s, native := newSession(t, peer.Responder, sig)
	s.HandleAnswer(remoteAnswer)

	if info := s.Info(); info.State != peer.StateCreated {
		t.Fatalf("state = %s", info.State)
	}
	if native.SignalingState() != webrtc.SignalingStateStable {
		t.Fatal("answer applied without a local offer")
	}
}

func TestFailedAnswerLeavesSessionStalled(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)

	s, native := newSession(t, peer.Responder, sig)
	native.FailNext("CreateAnswer", nil)
	s.HandleOffer(remoteOffer)

	info := s.Info()
	if info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("state = %s", info.State)
	}
	if native.Closed() {
		t.Fatal("failure must not tear the session down")
	}
}

func TestFailedRemoteDescriptionKeepsCandidatesBuffered(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)

	s, native := newSession(t, peer.Responder, sig)
	s.AddCandidate(cand("c1"))
	native.FailNext("SetRemoteDescription", nil)
	s.HandleOffer(remoteOffer)

	info := s.Info()
	if info.State != peer.StateCreated || info.Pending != 1 {
		t.Fatalf("info = %+v", info)
	}
	if len(native.Applied()) != 0 {
		t.Fatal("candidate applied after failed remote description")
	}
}

func TestGlareResponderRollsBackAndAnswers(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).Return(nil).Times(2)
	sig.EXPECT().SendOffer(remote, gomock.Any()).Return(nil).Times(1)

	s, native := newSession(t, peer.Responder, sig)
	s.HandleOffer(remoteOffer)
	s.AttachTracks([]webrtc.TrackLocal{audioTrack(t)})
	if info := s.Info(); info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state = %s", info.State)
	}

	s.HandleOffer(remoteOffer)
	info := s.Info()
	if info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("state after glare = %s", info.State)
	}
	if native.SignalingState() != webrtc.SignalingStateStable {
		t.Fatalf("signaling = %s", native.SignalingState())
	}
}

func TestGlareInitiatorKeepsOffer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendOffer(remote, gomock.Any()).Return(nil).Times(1)

	s, native := newSession(t, peer.Initiator, sig)
	if info := s.Info(); info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state before collision = %s", info.State)
	}
	s.HandleOffer(remoteOffer)

	if info := s.Info(); info.State != peer.StateHaveLocalOffer {
		t.Fatalf("state = %s", info.State)
	}
	if native.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		t.Fatalf("signaling = %s", native.SignalingState())
	}
}

func TestLocalCandidatesFollowOffer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)

	var native *peertest.FakeNative
	gomock.InOrder(
		sig.EXPECT().SendOffer(remote, gomock.Any()).DoAndReturn(
			func(domain.ConnectionID, webrtc.SessionDescription) error {
				// Gathering starts while the offer is still being sent.
				native.EmitCandidate(cand("local-1"))
				return nil
			}),
		sig.EXPECT().SendCandidate(remote, cand("local-1")).Return(nil),
	)

	native = peertest.New()
	s := peer.New(peer.Config{Remote: remote, Role: peer.Initiator, Native: native, Signaler: sig})
	t.Cleanup(s.Close)
	s.Info()
}

func TestCloseDiscardsPendingCandidates(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)

	s, native := newSession(t, peer.Responder, sig)
	s.AddCandidate(cand("c1"))
	s.AddCandidate(cand("c2"))
	s.Info()

	s.Close()
	s.Close()
	s.HandleOffer(remoteOffer)

	info := s.Info()
	if info.State != peer.StateClosed || info.Pending != 0 {
		t.Fatalf("info = %+v", info)
	}
	if !native.Closed() {
		t.Fatal("native connection not released")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestConnectionStateTracking(t *testing.T) {
	ctrl := gomock.NewController(t)
	sig := mocks.NewMockSignaler(ctrl)
	sig.EXPECT().SendAnswer(remote, gomock.Any()).Return(nil)

	s, native := newSession(t, peer.Responder, sig)
	s.HandleOffer(remoteOffer)
	native.SetConnectionState(webrtc.PeerConnectionStateConnected)
	if info := s.Info(); info.State != peer.StateConnected {
		t.Fatalf("state = %s", info.State)
	}
	native.SetConnectionState(webrtc.PeerConnectionStateDisconnected)
	if info := s.Info(); info.State != peer.StateHaveRemoteDescription {
		t.Fatalf("state = %s", info.State)
	}
}
