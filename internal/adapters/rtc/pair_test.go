package rtc_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Mesh/internal/adapters/rtc"
	"github.com/dkeye/Mesh/internal/client/media"
	"github.com/dkeye/Mesh/internal/client/peer"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/webrtc/v4"
)

// link delivers one side's signaling to the other session, counting what
// it carried.
type link struct {
	ready chan struct{}
	to    *peer.Session

	offers  atomic.Int32
	answers atomic.Int32
}

func newLink() *link { return &link{ready: make(chan struct{})} }

func (l *link) connect(s *peer.Session) {
	l.to = s
	close(l.ready)
}

func (l *link) peer() *peer.Session {
	<-l.ready
	return l.to
}

func (l *link) SendOffer(_ domain.ConnectionID, sdp webrtc.SessionDescription) error {
	l.offers.Add(1)
	l.peer().HandleOffer(sdp)
	return nil
}

func (l *link) SendAnswer(_ domain.ConnectionID, sdp webrtc.SessionDescription) error {
	l.answers.Add(1)
	l.peer().HandleAnswer(sdp)
	return nil
}

func (l *link) SendCandidate(_ domain.ConnectionID, c webrtc.ICECandidateInit) error {
	l.peer().AddCandidate(c)
	return nil
}

type trackCounter struct {
	mu  sync.Mutex
	got map[domain.ConnectionID]int
}

func (tc *trackCounter) handle(ctx context.Context, remote domain.ConnectionID, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	tc.mu.Lock()
	tc.got[remote]++
	tc.mu.Unlock()
	go func() { _, _ = rtc.Drain(ctx, track) }()
}

func (tc *trackCounter) from(remote domain.ConnectionID) int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.got[remote]
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestPairLateResponderMedia pairs two pion connections: b joins later and
// offers receive-only, a answers without media and attaches a silence
// track afterwards.
func TestPairLateResponderMedia(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real ICE connections")
	}
	tracks := &trackCounter{got: make(map[domain.ConnectionID]int)}
	f, err := rtc.NewFactory(rtc.DefaultWebRTCConfig(nil), tracks.handle)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nativeA, err := f.New(ctx, "b")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nativeB, err := f.New(ctx, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	aToB, bToA := newLink(), newLink()
	a := peer.New(peer.Config{Remote: "b", Role: peer.Responder, Native: nativeA, Signaler: aToB})
	b := peer.New(peer.Config{Remote: "a", Role: peer.Initiator, Native: nativeB, Signaler: bToA})
	aToB.connect(b)
	bToA.connect(a)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	connected := func() bool {
		return a.Info().State == peer.StateConnected && b.Info().State == peer.StateConnected
	}
	waitFor(t, 15*time.Second, "connection", connected)

	// Give stray negotiation-needed events time to surface.
	time.Sleep(500 * time.Millisecond)
	if n := bToA.offers.Load(); n != 1 {
		t.Fatalf("initiator offers = %d, want 1", n)
	}
	if n := aToB.offers.Load(); n != 0 {
		t.Fatalf("receive-only responder offered %d times", n)
	}
	if n := aToB.answers.Load(); n != 1 {
		t.Fatalf("responder answers = %d, want 1", n)
	}

	src, err := media.NewSilence("a-stream")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = src.Run(ctx) }()
	a.AttachTracks([]webrtc.TrackLocal{src.Track()})
	a.AttachTracks([]webrtc.TrackLocal{src.Track()})

	waitFor(t, 10*time.Second, "remote track on b", func() bool { return tracks.from("a") == 1 })
	waitFor(t, 5*time.Second, "renegotiation to settle", connected)

	time.Sleep(500 * time.Millisecond)
	if n := aToB.offers.Load(); n != 1 {
		t.Fatalf("responder renegotiation offers = %d, want 1", n)
	}
	if n := bToA.offers.Load(); n != 1 {
		t.Fatalf("initiator offers after attach = %d, want 1", n)
	}
	if n := tracks.from("a"); n != 1 {
		t.Fatalf("tracks from a = %d, want 1", n)
	}
	if n := tracks.from("b"); n != 0 {
		t.Fatalf("tracks from b = %d, want 0", n)
	}
	if info := a.Info(); !info.TracksAttached {
		t.Fatalf("info = %+v", info)
	}
}
