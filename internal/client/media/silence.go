package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

const frameDuration = 20 * time.Millisecond

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Silence is a synthetic audio source for headless participants.
type Silence struct {
	track *webrtc.TrackLocalStaticSample
}

func NewSilence(streamID string) (*Silence, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", streamID)
	if err != nil {
		return nil, err
	}
	return &Silence{track: track}, nil
}

func (s *Silence) Track() webrtc.TrackLocal { return s.track }

// Run writes silence frames until ctx is done.
func (s *Silence) Run(ctx context.Context) error {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.track.WriteSample(pionmedia.Sample{Data: opusSilence, Duration: frameDuration})
			if err != nil && !errors.Is(err, io.ErrClosedPipe) {
				return err
			}
		}
	}
}

// SilenceAcquirer yields a silence stream after delay, which stands in for
// the time a real device takes to become available.
func SilenceAcquirer(streamID string, delay time.Duration) Acquirer {
	return func(ctx context.Context) (*Stream, error) {
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		src, err := NewSilence(streamID)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := src.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Str("module", "media").Msg("silence source stopped")
			}
		}()
		return &Stream{Tracks: []webrtc.TrackLocal{src.Track()}}, nil
	}
}
