package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBitrate converts a human bitrate string to bits per second.
// Accepts a plain integer, or a number with a K (x1000) or M (x1000000)
// suffix, e.g. "500K", "1M", "2.5M", "128000".
func ParseBitrate(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty bitrate")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		multiplier = 1000000
		s = s[:len(s)-1]
	}

	if multiplier == 1 {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		return v, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return int64(v * float64(multiplier)), nil
}

// ParseCodec maps an external codec string to a Codec.
// Unknown values are an explicit error rather than a silent default.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h264", "h.264", "avc":
		return CodecH264, nil
	case "h265", "h.265", "hevc":
		return CodecH265, nil
	case "vp9":
		return CodecVP9, nil
	case "av1":
		return CodecAV1, nil
	default:
		return "", fmt.Errorf("unknown codec: %q", s)
	}
}

// ParseQualityMode maps an external quality mode string to a QualityMode.
func ParseQualityMode(s string) (QualityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crf":
		return QualityCRF, nil
	case "bitrate":
		return QualityBitrate, nil
	default:
		return "", fmt.Errorf("unknown quality mode: %q", s)
	}
}

// ParseResolution maps an external resolution string to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original":
		return ResolutionOriginal, nil
	case "1080p":
		return Resolution1080p, nil
	case "720p":
		return Resolution720p, nil
	case "480p":
		return Resolution480p, nil
	default:
		return "", fmt.Errorf("unknown resolution: %q", s)
	}
}

// ParseFrameRate maps an external frame rate string to a FrameRate.
func ParseFrameRate(s string) (FrameRate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original":
		return FPSOriginal, nil
	case "24":
		return FPS24, nil
	case "30":
		return FPS30, nil
	case "60":
		return FPS60, nil
	default:
		return "", fmt.Errorf("unknown frame rate: %q", s)
	}
}

// ParseAcceleration maps an external acceleration string to an Acceleration.
func ParseAcceleration(s string) (Acceleration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return AccelAuto, nil
	case "nvenc":
		return AccelNVENC, nil
	case "qsv", "quicksync":
		return AccelQSV, nil
	case "vaapi":
		return AccelVAAPI, nil
	case "cpu", "none":
		return AccelCPU, nil
	default:
		return "", fmt.Errorf("unknown acceleration preference: %q", s)
	}
}

// ParsePreset maps an external preset string to a Preset.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ultrafast":
		return PresetUltrafast, nil
	case "fast":
		return PresetFast, nil
	case "medium":
		return PresetMedium, nil
	case "slow":
		return PresetSlow, nil
	case "veryslow":
		return PresetVeryslow, nil
	default:
		return "", fmt.Errorf("unknown preset: %q", s)
	}
}
