// File: internal/config/config.go
// Author: momentics <momentics@gmail.com>
//
// rawsockctl configuration: defaults, file/env/flag loading through viper,
// validation through validator.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete rawsockctl configuration.
type Config struct {
	Interface string        `mapstructure:"interface" validate:"omitempty,ifname"`
	Capture   CaptureConfig `mapstructure:"capture"`
	Network   NetworkConfig `mapstructure:"network"`
	Reactor   ReactorConfig `mapstructure:"reactor"`
	Logging   LogConfig     `mapstructure:"logging"`
}

// CaptureConfig controls receive loops.
type CaptureConfig struct {
	EtherType  string        `mapstructure:"ethertype" validate:"oneof=all ipv4 ipv6"`
	Count      int           `mapstructure:"count" validate:"gte=0"`
	BufferSize int           `mapstructure:"buffer_size" validate:"min=64,max=65535"`
	Decode     bool          `mapstructure:"decode"`
	Duration   time.Duration `mapstructure:"duration" validate:"gte=0"`
}

// NetworkConfig selects the raw IP socket parameters.
type NetworkConfig struct {
	Family   int `mapstructure:"family" validate:"oneof=4 6"`
	Protocol int `mapstructure:"protocol" validate:"min=0,max=255"`
}

// ReactorConfig tunes the epoll poller.
type ReactorConfig struct {
	PollerCPU int `mapstructure:"poller_cpu" validate:"gte=-1,lt=1024"`
	MaxEvents int `mapstructure:"max_events" validate:"min=1,max=4096"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level     string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb" validate:"min=1"`
	MaxFiles  int    `mapstructure:"max_files" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			EtherType:  "all",
			BufferSize: 1518,
		},
		Network: NetworkConfig{
			Family:   4,
			Protocol: 255,
		},
		Reactor: ReactorConfig{
			PollerCPU: -1,
			MaxEvents: 128,
		},
		Logging: LogConfig{
			Level:     "warn",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// EnvPrefix is the prefix of environment overrides, e.g. RAWSOCK_CAPTURE_COUNT.
const EnvPrefix = "RAWSOCK"

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("interface", d.Interface)
	v.SetDefault("capture.ethertype", d.Capture.EtherType)
	v.SetDefault("capture.count", d.Capture.Count)
	v.SetDefault("capture.buffer_size", d.Capture.BufferSize)
	v.SetDefault("capture.decode", d.Capture.Decode)
	v.SetDefault("capture.duration", d.Capture.Duration)
	v.SetDefault("network.family", d.Network.Family)
	v.SetDefault("network.protocol", d.Network.Protocol)
	v.SetDefault("reactor.poller_cpu", d.Reactor.PollerCPU)
	v.SetDefault("reactor.max_events", d.Reactor.MaxEvents)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_files", d.Logging.MaxFiles)
}

// Load resolves the configuration from defaults, the optional file, RAWSOCK_*
// environment variables and whatever flags the caller bound into v, in
// increasing precedence, then validates it.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("rawsockctl")
		v.AddConfigPath("/etc/rawsockctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
