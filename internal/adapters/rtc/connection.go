package rtc

import (
	"context"
	"errors"
	"io"

	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCConnection adapts a pion PeerConnection to peer.Native.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	remote domain.ConnectionID
	ctx    context.Context
	cancel context.CancelFunc
}

func newConnection(ctx context.Context, pc *webrtc.PeerConnection, remote domain.ConnectionID, onTrack TrackHandler) *WebRTCConnection {
	ctx, cancel := context.WithCancel(ctx)
	c := &WebRTCConnection{pc: pc, remote: remote, ctx: ctx, cancel: cancel}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "webrtc").Str("remote", string(remote)).Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("remote", string(remote)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if onTrack != nil {
			onTrack(ctx, remote, track, receiver)
		}
	})
	return c
}

func (c *WebRTCConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *WebRTCConnection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *WebRTCConnection) SetLocalDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sd)
}

func (c *WebRTCConnection) SetRemoteDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sd)
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

// AddTrack attaches a local track and drains RTCP from its sender so the
// interceptors keep running.
func (c *WebRTCConnection) AddTrack(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	go c.readRTCP(sender)
	return nil
}

func (c *WebRTCConnection) AddReceiver(kind webrtc.RTPCodecType) error {
	_, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

func (c *WebRTCConnection) OnNegotiationNeeded(fn func()) {
	c.pc.OnNegotiationNeeded(fn)
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil {
			fn(cand.ToJSON())
		}
	})
}

func (c *WebRTCConnection) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *WebRTCConnection) Close() error {
	c.cancel()
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("remote", string(c.remote)).Msg("close error")
		return err
	}
	log.Info().Str("module", "webrtc").Str("remote", string(c.remote)).Msg("closed")
	return nil
}

func (c *WebRTCConnection) readRTCP(sender *webrtc.RTPSender) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Debug().Err(err).Str("module", "webrtc").Str("remote", string(c.remote)).Msg("rtcp read")
			}
			return
		}
		for _, p := range packets {
			switch pkt := p.(type) {
			case *rtcp.PictureLossIndication:
				log.Debug().Str("module", "webrtc").Str("remote", string(c.remote)).Uint32("ssrc", pkt.MediaSSRC).Msg("PLI")
			case *rtcp.ReceiverReport:
				for _, r := range pkt.Reports {
					log.Trace().Str("module", "webrtc").Str("remote", string(c.remote)).Uint32("ssrc", r.SSRC).Uint8("loss", r.FractionLost).Msg("receiver report")
				}
			}
		}
	}
}
