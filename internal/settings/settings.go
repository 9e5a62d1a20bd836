package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Codec identifies a video codec family.
type Codec string

// Supported codec families.
const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
	CodecVP9  Codec = "vp9"
	CodecAV1  Codec = "av1"
)

// QualityMode selects how output quality is controlled.
type QualityMode string

// Quality modes.
const (
	QualityCRF     QualityMode = "crf"
	QualityBitrate QualityMode = "bitrate"
)

// Resolution is an output resolution preset.
type Resolution string

// Resolution presets.
const (
	ResolutionOriginal Resolution = "original"
	Resolution1080p    Resolution = "1080p"
	Resolution720p     Resolution = "720p"
	Resolution480p     Resolution = "480p"
)

// Dimensions returns the fixed width/height for a resolution preset.
// ok is false for ResolutionOriginal, which preserves input dimensions.
func (r Resolution) Dimensions() (width, height int, ok bool) {
	switch r {
	case Resolution1080p:
		return 1920, 1080, true
	case Resolution720p:
		return 1280, 720, true
	case Resolution480p:
		return 854, 480, true
	default:
		return 0, 0, false
	}
}

// FrameRate is an output frame rate preset.
type FrameRate string

// Frame rate presets.
const (
	FPSOriginal FrameRate = "original"
	FPS24       FrameRate = "24"
	FPS30       FrameRate = "30"
	FPS60       FrameRate = "60"
)

// Value returns the fixed frame rate for a preset.
// ok is false for FPSOriginal, which preserves the input rate.
func (f FrameRate) Value() (fps int, ok bool) {
	switch f {
	case FPS24:
		return 24, true
	case FPS30:
		return 30, true
	case FPS60:
		return 60, true
	default:
		return 0, false
	}
}

// Acceleration is the user's hardware acceleration preference.
type Acceleration string

// Acceleration preferences.
const (
	AccelAuto  Acceleration = "auto"
	AccelNVENC Acceleration = "nvenc"
	AccelQSV   Acceleration = "qsv"
	AccelVAAPI Acceleration = "vaapi"
	AccelCPU   Acceleration = "cpu"
)

// Preset is the encoder speed/efficiency preset.
type Preset string

// Encoder presets.
const (
	PresetUltrafast Preset = "ultrafast"
	PresetFast      Preset = "fast"
	PresetMedium    Preset = "medium"
	PresetSlow      Preset = "slow"
	PresetVeryslow  Preset = "veryslow"
)

// CompressionSettings is one run's configuration snapshot. It is built from
// user input, validated before the run starts, and never mutated while the
// run is active.
type CompressionSettings struct {
	InputPath  string `toml:"input_path"`
	OutputPath string `toml:"output_path"`

	Codec       Codec       `toml:"codec"`
	QualityMode QualityMode `toml:"quality_mode"`
	CRF         int         `toml:"crf_value"`
	Bitrate     string      `toml:"bitrate"`

	Resolution   Resolution   `toml:"resolution"`
	FPS          FrameRate    `toml:"fps"`
	Acceleration Acceleration `toml:"acceleration"`
	Preset       Preset       `toml:"preset"`

	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`

	// Threads pins the encoder thread count; 0 lets the framework decide.
	Threads int `toml:"threads"`
}

// Default returns the settings used when no saved values exist.
func Default() CompressionSettings {
	return CompressionSettings{
		Codec:        CodecH264,
		QualityMode:  QualityCRF,
		CRF:          23,
		Bitrate:      "1M",
		Resolution:   ResolutionOriginal,
		FPS:          FPSOriginal,
		Acceleration: AccelAuto,
		Preset:       PresetMedium,
		AudioCodec:   "aac",
		AudioBitrate: "128K",
		Threads:      0,
	}
}

// ErrInputNotFound reports that the configured input path does not exist.
var ErrInputNotFound = errors.New("input file not found")

// Validate checks that the settings are complete and internally consistent.
// It is called before any resource is opened; a validation error is never
// retried.
func (s *CompressionSettings) Validate() error {
	if s.InputPath == "" {
		return errors.New("input path is required")
	}
	if s.OutputPath == "" {
		return errors.New("output path is required")
	}
	if _, err := os.Stat(s.InputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, s.InputPath)
		}
		return fmt.Errorf("input path not accessible: %w", err)
	}

	switch s.Codec {
	case CodecH264, CodecH265, CodecVP9, CodecAV1:
	default:
		return fmt.Errorf("unknown codec: %q", s.Codec)
	}

	switch s.QualityMode {
	case QualityCRF:
		if s.CRF < 0 || s.CRF > 51 {
			return fmt.Errorf("crf value %d out of range 0-51", s.CRF)
		}
	case QualityBitrate:
		bps, err := ParseBitrate(s.Bitrate)
		if err != nil {
			return fmt.Errorf("invalid bitrate %q: %w", s.Bitrate, err)
		}
		if bps <= 0 {
			return fmt.Errorf("bitrate must be positive, got %q", s.Bitrate)
		}
	default:
		return fmt.Errorf("unknown quality mode: %q", s.QualityMode)
	}

	switch s.Resolution {
	case ResolutionOriginal, Resolution1080p, Resolution720p, Resolution480p:
	default:
		return fmt.Errorf("unknown resolution: %q", s.Resolution)
	}

	switch s.FPS {
	case FPSOriginal, FPS24, FPS30, FPS60:
	default:
		return fmt.Errorf("unknown frame rate: %q", s.FPS)
	}

	switch s.Acceleration {
	case AccelAuto, AccelNVENC, AccelQSV, AccelVAAPI, AccelCPU:
	default:
		return fmt.Errorf("unknown acceleration preference: %q", s.Acceleration)
	}

	switch s.Preset {
	case PresetUltrafast, PresetFast, PresetMedium, PresetSlow, PresetVeryslow:
	default:
		return fmt.Errorf("unknown preset: %q", s.Preset)
	}

	if s.AudioCodec == "" {
		return errors.New("audio codec is required")
	}
	if _, err := ParseBitrate(s.AudioBitrate); err != nil {
		return fmt.Errorf("invalid audio bitrate %q: %w", s.AudioBitrate, err)
	}
	if s.Threads < 0 {
		return fmt.Errorf("thread count must be non-negative, got %d", s.Threads)
	}

	return nil
}
