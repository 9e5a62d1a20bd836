package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// document is the on-disk shape of the last-used settings file. Paths are
// intentionally excluded: they are per-run values, not defaults worth
// restoring.
type document struct {
	Version      int          `toml:"version"`
	Codec        Codec        `toml:"codec"`
	QualityMode  QualityMode  `toml:"quality_mode"`
	CRF          int          `toml:"crf_value"`
	Bitrate      string       `toml:"bitrate"`
	Resolution   Resolution   `toml:"resolution"`
	FPS          FrameRate    `toml:"fps"`
	Acceleration Acceleration `toml:"acceleration"`
	Preset       Preset       `toml:"preset"`
	AudioCodec   string       `toml:"audio_codec"`
	AudioBitrate string       `toml:"audio_bitrate"`
	Threads      int          `toml:"threads"`
}

// Store persists the last-used compression settings to a per-user TOML file.
type Store struct {
	path string
}

// DefaultStorePath returns the per-user settings file location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "compresspro_settings.toml"
	}
	return filepath.Join(home, ".config", "compresspro", "settings.toml")
}

// NewStore creates a settings store backed by the given path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultStorePath()
	}
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load returns the last-used settings overlaid on defaults. A missing or
// malformed file is not an error: defaults are returned unchanged so a
// corrupt settings file can never block a run.
func (s *Store) Load() CompressionSettings {
	base := Default()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return base
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return base
	}

	// Overlay only fields that parse to known values; unknown or missing
	// keys keep their defaults.
	if c, err := ParseCodec(string(doc.Codec)); err == nil {
		base.Codec = c
	}
	if m, err := ParseQualityMode(string(doc.QualityMode)); err == nil {
		base.QualityMode = m
	}
	if doc.CRF >= 0 && doc.CRF <= 51 {
		base.CRF = doc.CRF
	}
	if doc.Bitrate != "" {
		if _, err := ParseBitrate(doc.Bitrate); err == nil {
			base.Bitrate = doc.Bitrate
		}
	}
	if r, err := ParseResolution(string(doc.Resolution)); err == nil {
		base.Resolution = r
	}
	if f, err := ParseFrameRate(string(doc.FPS)); err == nil {
		base.FPS = f
	}
	if a, err := ParseAcceleration(string(doc.Acceleration)); err == nil {
		base.Acceleration = a
	}
	if p, err := ParsePreset(string(doc.Preset)); err == nil {
		base.Preset = p
	}
	if doc.AudioCodec != "" {
		base.AudioCodec = doc.AudioCodec
	}
	if doc.AudioBitrate != "" {
		if _, err := ParseBitrate(doc.AudioBitrate); err == nil {
			base.AudioBitrate = doc.AudioBitrate
		}
	}
	if doc.Threads >= 0 {
		base.Threads = doc.Threads
	}

	return base
}

// Save writes the settings as the new last-used defaults. Called only after
// a successful run.
func (s *Store) Save(cfg CompressionSettings) error {
	doc := document{
		Version:      1,
		Codec:        cfg.Codec,
		QualityMode:  cfg.QualityMode,
		CRF:          cfg.CRF,
		Bitrate:      cfg.Bitrate,
		Resolution:   cfg.Resolution,
		FPS:          cfg.FPS,
		Acceleration: cfg.Acceleration,
		Preset:       cfg.Preset,
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: cfg.AudioBitrate,
		Threads:      cfg.Threads,
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	return nil
}
