package ffmpegcli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alharthydev/compresspro/internal/media"
)

// probeResult mirrors the subset of `ffprobe -print_format json` output the
// adapter needs.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// fileInfo is the digested probe: at most one video and one audio stream.
type fileInfo struct {
	video    media.StreamInfo
	hasVideo bool
	audio    media.StreamInfo
	hasAudio bool
}

func probeFile(ctx context.Context, ffprobePath, path string) (fileInfo, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-hide_banner",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return fileInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (fileInfo, error) {
	var res probeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return fileInfo{}, fmt.Errorf("parse probe output: %w", err)
	}

	var info fileInfo
	formatDuration := parseFloat(res.Format.Duration)

	for _, s := range res.Streams {
		switch s.CodecType {
		case "video":
			if info.hasVideo {
				continue
			}
			duration := parseFloat(s.Duration)
			if duration == 0 {
				duration = formatDuration
			}
			info.video = media.StreamInfo{
				Width:      s.Width,
				Height:     s.Height,
				FrameRate:  parseRational(s.RFrameRate),
				FrameCount: parseInt(s.NbFrames),
				Duration:   duration,
			}
			info.hasVideo = true
		case "audio":
			if info.hasAudio {
				continue
			}
			info.audio = media.StreamInfo{
				SampleRate: int(parseInt(s.SampleRate)),
				Channels:   s.Channels,
				Duration:   parseFloat(s.Duration),
			}
			info.hasAudio = true
		}
	}
	return info, nil
}

// parseRational evaluates ffprobe rate strings such as "30000/1001" or
// "25". Zero for anything malformed or with a zero denominator.
func parseRational(s string) float64 {
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n := parseFloat(num)
	if !found {
		return n
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
