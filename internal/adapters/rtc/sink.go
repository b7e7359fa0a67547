package rtc

import (
	"context"
	"errors"
	"io"

	"github.com/dkeye/Mesh/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// PacketReader is the part of *webrtc.TrackRemote a sink needs.
type PacketReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// SinkStats summarizes a consumed remote track.
type SinkStats struct {
	Packets int
	Bytes   int
	LastSeq uint16
}

// Drain reads RTP packets until the track ends or ctx is done.
func Drain(ctx context.Context, r PacketReader) (SinkStats, error) {
	var st SinkStats
	for {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		pkt, _, err := r.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return st, nil
			}
			return st, err
		}
		st.Packets++
		st.Bytes += len(pkt.Payload)
		st.LastSeq = pkt.SequenceNumber
	}
}

// LogSink consumes remote tracks and logs how much arrived.
func LogSink(ctx context.Context, remote domain.ConnectionID, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	go func() {
		st, err := Drain(ctx, track)
		ev := log.Info()
		if err != nil && !errors.Is(err, context.Canceled) {
			ev = log.Warn().Err(err)
		}
		ev.Str("module", "webrtc").
			Str("remote", string(remote)).
			Str("kind", track.Kind().String()).
			Int("packets", st.Packets).
			Int("bytes", st.Bytes).
			Msg("remote track ended")
	}()
}
