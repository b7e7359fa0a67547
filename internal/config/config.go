package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MESH"

type JoinRate struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

// Config is the signaling server configuration.
type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Secret       string        `mapstructure:"secret"`
	LogLevel     string        `mapstructure:"log_level"`
	JoinRate     JoinRate      `mapstructure:"join_rate"`
	SlowConsumer string        `mapstructure:"slow_consumer"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// PeerConfig configures the headless participant.
type PeerConfig struct {
	ServerURL   string        `mapstructure:"server_url"`
	DisplayName string        `mapstructure:"display_name"`
	Room        string        `mapstructure:"room"`
	ICEServers  []string      `mapstructure:"ice_servers"`
	MediaDelay  time.Duration `mapstructure:"media_delay"`
	Media       string        `mapstructure:"media"`
	LogLevel    string        `mapstructure:"log_level"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readFile(v *viper.Viper) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
		return
	}
	log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
}

func Load() (*Config, error) {
	v := newViper()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "mesh-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("join_rate.limit", 5)
	v.SetDefault("join_rate.interval", "10s")
	v.SetDefault("slow_consumer", "drop")
	v.SetDefault("cors_origins", []string{})

	readFile(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.PingPeriod >= cfg.PongWait {
		return nil, fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", cfg.PingPeriod, cfg.PongWait)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("server config")
	return &cfg, nil
}

// peerFlags maps config keys to the CLI flags that override them.
var peerFlags = map[string]string{
	"server_url":   "server",
	"display_name": "name",
	"room":         "room",
	"ice_servers":  "ice",
	"media":        "media",
	"media_delay":  "media-delay",
	"log_level":    "log-level",
}

// LoadPeer resolves the participant configuration. Flags that were set
// on the command line win over env, file and defaults.
func LoadPeer(flags *pflag.FlagSet) (*PeerConfig, error) {
	v := newViper()

	v.SetDefault("server_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("display_name", "")
	v.SetDefault("room", "")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("media_delay", "0s")
	v.SetDefault("media", "none")
	v.SetDefault("log_level", "info")

	if flags != nil {
		for key, name := range peerFlags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	readFile(v)

	var cfg PeerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse peer config: %w", err)
	}
	switch cfg.Media {
	case "none", "silence":
	default:
		return nil, fmt.Errorf("unknown media source %q", cfg.Media)
	}
	return &cfg, nil
}

// SetupLogger installs the console writer and the configured level.
func SetupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
