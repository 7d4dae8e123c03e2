// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the compositor's configuration
type Config struct {
	// Socket is the name of the Wayland socket, or an absolute path.
	// Empty picks the first free wayland-N.
	Socket string `mapstructure:"socket"`

	FrameRate int    `mapstructure:"frame_rate"`
	FrameSize string `mapstructure:"frame_size"`

	LogLevel string `mapstructure:"log_level"` // Overrides WAYLAND_DEBUG

	RequireRole   bool `mapstructure:"require_role"`   // Reject content on role-less surfaces
	TrackSurfaces bool `mapstructure:"track_surfaces"` // Report surfaces that are never initialized
	TextureUpload bool `mapstructure:"texture_upload"` // Copy buffer contents into textures

	// Snapshot is a PNG file that the last rendered frame is written to
	// at shutdown.
	Snapshot string `mapstructure:"snapshot"`
}

// DefaultConfig provides sensible defaults
var DefaultConfig = Config{
	FrameRate:     60,
	FrameSize:     "1280x720",
	TextureUpload: true,
}

// EnvPrefix is the prefix of environment variables that override
// configuration values.
const EnvPrefix = "WLCOMPOSITOR"

// New returns a Viper instance with the defaults, environment binding
// and search paths set up. If path is not empty, only that file is
// read.
func New(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "wlcompositor"))
		}
		v.AddConfigPath("/etc/wlcompositor")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("socket", DefaultConfig.Socket)
	v.SetDefault("frame_rate", DefaultConfig.FrameRate)
	v.SetDefault("frame_size", DefaultConfig.FrameSize)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("require_role", DefaultConfig.RequireRole)
	v.SetDefault("track_surfaces", DefaultConfig.TrackSurfaces)
	v.SetDefault("texture_upload", DefaultConfig.TextureUpload)
	v.SetDefault("snapshot", DefaultConfig.Snapshot)

	return v
}

// Load reads the config file, if there is one, and returns the
// resulting configuration.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration values make sense.
func (cfg *Config) Validate() error {
	if cfg.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, not %v", cfg.FrameRate)
	}
	if _, err := cfg.OutputSize(); err != nil {
		return err
	}
	return nil
}

// OutputSize parses FrameSize.
func (cfg *Config) OutputSize() (image.Point, error) {
	var size image.Point
	_, err := fmt.Sscanf(cfg.FrameSize, "%dx%d", &size.X, &size.Y)
	if err != nil {
		return image.Point{}, fmt.Errorf("parse frame size %q: %w", cfg.FrameSize, err)
	}
	if (size.X <= 0) || (size.Y <= 0) {
		return image.Point{}, fmt.Errorf("frame size %q is empty", cfg.FrameSize)
	}
	return size, nil
}
