package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkeye/Mesh/internal/adapters/rtc"
	"github.com/dkeye/Mesh/internal/adapters/wsclient"
	"github.com/dkeye/Mesh/internal/client/media"
	"github.com/dkeye/Mesh/internal/client/room"
	"github.com/dkeye/Mesh/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const statusInterval = 15 * time.Second

var joinCmd = &cobra.Command{
	Use:   "join [room-id]",
	Short: "Join a room and stay until interrupted",
	Long: `Join a room and negotiate with every member.

Examples:
  peer join ABC123 --name bob
  peer join --room ABC123 --media silence --media-delay 3s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadPeer(cmd.Flags())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.Room = args[0]
		}
		if cfg.Room == "" {
			return errors.New("room id required")
		}
		config.SetupLogger(cfg.LogLevel)
		return joinRoom(cmd.Context(), cfg)
	},
}

func joinRoom(parent context.Context, cfg *config.PeerConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := rtc.NewFactory(rtc.DefaultWebRTCConfig(cfg.ICEServers), rtc.LogSink)
	if err != nil {
		return err
	}

	var acquire media.Acquirer
	if cfg.Media == "silence" {
		acquire = media.SilenceAcquirer("mesh-"+cfg.DisplayName, cfg.MediaDelay)
	}

	ctrl := room.New(room.Config{
		Room:        cfg.Room,
		DisplayName: cfg.DisplayName,
		Dial: func(ctx context.Context) (room.Transport, error) {
			c := wsclient.NewClient(cfg.ServerURL)
			if err := c.Connect(ctx); err != nil {
				return nil, err
			}
			return c, nil
		},
		NewNative: factory.New,
		Media:     media.NewSupervisor(acquire),
	})

	go reportStatus(ctx, ctrl)
	return ctrl.Run(ctx)
}

func reportStatus(ctx context.Context, ctrl *room.Controller) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ctrl.Done():
			return
		case <-ticker.C:
			for _, p := range ctrl.Peers() {
				log.Info().
					Str("module", "peer").
					Str("remote", string(p.Remote)).
					Str("role", p.Role.String()).
					Str("state", p.State.String()).
					Bool("sending", p.TracksAttached).
					Msg("peer status")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().String("room", "", "Room id to join")
	joinCmd.Flags().StringP("name", "n", "", "Display name")
	joinCmd.Flags().StringSlice("ice", nil, "ICE server URLs")
	joinCmd.Flags().StringP("media", "m", "none", "Local media source (none, silence)")
	joinCmd.Flags().Duration("media-delay", 0, "Delay before local media becomes available")
}
