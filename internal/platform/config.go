package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/glance/pkg/adapters/command"
	"github.com/aretw0/glance/pkg/adapters/fs"
	"github.com/aretw0/glance/pkg/core"
)

// ErrUnsupportedConfig is returned for config files that are neither YAML nor TOML.
var ErrUnsupportedConfig = errors.New("unsupported config format")

// Config is the on-disk session configuration. Durations are Go duration
// strings such as "5s".
type Config struct {
	CacheDir         string `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty"`
	DisplayDelay     string `yaml:"display_delay,omitempty" toml:"display_delay,omitempty"`
	SweepInterval    string `yaml:"sweep_interval,omitempty" toml:"sweep_interval,omitempty"`
	SweepPattern     string `yaml:"sweep_pattern,omitempty" toml:"sweep_pattern,omitempty"`
	ProtectInUse     bool   `yaml:"protect_in_use" toml:"protect_in_use"`
	EventBuffer      int    `yaml:"event_buffer,omitempty" toml:"event_buffer,omitempty"`
	CaptureCommand   string `yaml:"capture_command,omitempty" toml:"capture_command,omitempty"`
	RecognizeCommand string `yaml:"recognize_command,omitempty" toml:"recognize_command,omitempty"`
	Grant            string `yaml:"grant,omitempty" toml:"grant,omitempty"`
	StorageGrant     string `yaml:"storage_grant,omitempty" toml:"storage_grant,omitempty"`
}

// DefaultConfig is what `glance init` writes.
func DefaultConfig() Config {
	return Config{
		CacheDir:         DefaultCacheDir(),
		DisplayDelay:     core.DefaultDisplayDelay.String(),
		SweepInterval:    fs.DefaultSweepInterval.String(),
		SweepPattern:     fs.DefaultPattern,
		EventBuffer:      100,
		CaptureCommand:   "fswebcam --no-banner " + command.PathPlaceholder,
		RecognizeCommand: "tesseract " + command.PathPlaceholder + " stdout",
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&cfg); errors.Is(err, io.EOF) {
			// An empty file keeps the defaults.
			err = nil
		}
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedConfig, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the config in the format implied by the file extension.
func (c Config) Marshal(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".toml":
		return toml.Marshal(c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConfig, path)
	}
}

// Options converts the config into session options. Commands are wired to
// the command adapters; an empty grant means access is always granted.
func (c Config) Options(logger *slog.Logger) ([]Option, error) {
	var opts []Option

	if c.CacheDir != "" {
		opts = append(opts, WithCacheDir(c.CacheDir))
	}
	if c.DisplayDelay != "" {
		d, err := time.ParseDuration(c.DisplayDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid display_delay: %w", err)
		}
		opts = append(opts, WithDisplayDelay(d))
	}
	if c.SweepInterval != "" {
		d, err := time.ParseDuration(c.SweepInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid sweep_interval: %w", err)
		}
		opts = append(opts, WithSweepInterval(d))
	}
	if c.SweepPattern != "" {
		opts = append(opts, WithSweepPattern(c.SweepPattern))
	}
	if c.EventBuffer < 0 {
		return nil, fmt.Errorf("invalid event_buffer: %d", c.EventBuffer)
	}
	opts = append(opts, WithProtectInUse(c.ProtectInUse), WithEventBuffer(c.EventBuffer))

	if c.CaptureCommand != "" {
		opts = append(opts, WithCaptureCommand(c.CaptureCommand))
	}
	if c.RecognizeCommand != "" {
		opts = append(opts, WithRecognizer(command.Recognizer{
			Runner: command.NewRunner(c.RecognizeCommand, logger),
		}))
	}
	if c.Grant != "" {
		opts = append(opts, WithGate(command.NewGate(command.NewRunner(c.Grant, logger))))
	}
	if c.StorageGrant != "" {
		opts = append(opts, WithStorageGate(command.NewGate(command.NewRunner(c.StorageGrant, logger))))
	}
	return opts, nil
}
