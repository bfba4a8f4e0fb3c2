// Package config layers an optional YAML file under CLI flags using viper,
// following the cobra+viper wiring for device index, buffer sizes, and log
// level. log_level is read and validated here, but the commands under cmd/
// set their log level from --verbose only and do not apply it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "engine"
	ConfigType    = "yaml"
	DefaultConfig = `# engine configuration

output_device_index: -1   # -1 for default device
input_device_index: -1    # -1 for default device
sample_rate: 48000        # preferred output sample rate in Hz
channels: 2                # preferred output channel count
buffer_size: 262144        # SPSC ring capacity in samples (power of 2)
frames_per_buffer: 512     # PortAudio frames per device callback

log_level: "info"          # debug, info, warn, error
`
)

// Settings holds all application configuration.
type Settings struct {
	OutputDeviceIndex int    `mapstructure:"output_device_index"`
	InputDeviceIndex  int    `mapstructure:"input_device_index"`
	SampleRate        int    `mapstructure:"sample_rate"`
	Channels          int    `mapstructure:"channels"`
	BufferSize        uint64 `mapstructure:"buffer_size"`
	FramesPerBuffer   int    `mapstructure:"frames_per_buffer"`
	LogLevel          string `mapstructure:"log_level"`
}

// Init initializes viper with defaults and an optional config file. Search
// order: current directory, then ~/.config/engine/.
func Init() error {
	viper.SetDefault("output_device_index", -1)
	viper.SetDefault("input_device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 2)
	viper.SetDefault("buffer_size", 262144)
	viper.SetDefault("frames_per_buffer", 512)
	viper.SetDefault("log_level", "info")

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file anywhere on the search path: defaults alone
			// are enough to run, so this is not an error.
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Get returns the current settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges.
func (s *Settings) Validate() error {
	var errs []error

	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.BufferSize == 0 || s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size must be a power of 2, got %d", s.BufferSize))
	}
	if s.FramesPerBuffer < 32 || s.FramesPerBuffer > 8192 {
		errs = append(errs, fmt.Errorf("frames_per_buffer must be between 32 and 8192, got %d", s.FramesPerBuffer))
	}

	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
