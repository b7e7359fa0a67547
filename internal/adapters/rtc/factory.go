package rtc

import (
	"context"
	"time"

	"github.com/dkeye/Mesh/internal/client/peer"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const DefaultPLIInterval = 3 * time.Second

// TrackHandler receives every remote track of every connection.
type TrackHandler func(ctx context.Context, remote domain.ConnectionID, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// Factory builds peer connections sharing one configured pion API.
type Factory struct {
	api     *webrtc.API
	config  webrtc.Configuration
	onTrack TrackHandler
}

func DefaultWebRTCConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceServers}},
	}
}

func NewFactory(cfg webrtc.Configuration, onTrack TrackHandler) (*Factory, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, i); err != nil {
		return nil, err
	}
	pli, err := intervalpli.NewReceiverInterceptor(intervalpli.GeneratorInterval(DefaultPLIInterval))
	if err != nil {
		return nil, err
	}
	i.Add(pli)

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(i))
	log.Debug().Str("module", "webrtc").Int("ice_servers", len(cfg.ICEServers)).Msg("factory initialized")
	return &Factory{api: api, config: cfg, onTrack: onTrack}, nil
}

// New opens a peer connection towards remote. ctx bounds the lifetime of
// the remote track handlers.
func (f *Factory) New(ctx context.Context, remote domain.ConnectionID) (peer.Native, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}
	return newConnection(ctx, pc, remote, f.onTrack), nil
}
