// Package capability probes the installed multimedia framework for available
// encoders and condenses the result into an immutable snapshot. Detection is
// advisory: it informs encoder selection but never blocks a compression run,
// so every failure path degrades to an empty snapshot.
package capability

import (
	"bufio"
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/alharthydev/compresspro/internal/settings"
)

// Snapshot is the process-wide view of encoder availability. It is built at
// most once per process and treated as read-only afterwards; callers receive
// it by value and pass it explicitly into the resolver.
type Snapshot struct {
	NVENC        bool
	QSV          bool
	VAAPI        bool
	VideoToolbox bool

	// encoders holds the concrete video encoder identifiers the framework
	// reports as usable.
	encoders map[string]bool

	// codecs holds the codec families with at least one usable encoder.
	codecs map[settings.Codec]bool
}

// HasEncoder reports whether the concrete encoder identifier is available.
func (s Snapshot) HasEncoder(name string) bool {
	return s.encoders[name]
}

// SupportsCodec reports whether any encoder exists for the codec family.
func (s Snapshot) SupportsCodec(c settings.Codec) bool {
	return s.codecs[c]
}

// Encoders returns the available encoder identifiers, for display.
func (s Snapshot) Encoders() []string {
	names := make([]string, 0, len(s.encoders))
	for name := range s.encoders {
		names = append(names, name)
	}
	return names
}

// Empty reports whether detection found no encoders at all.
func (s Snapshot) Empty() bool {
	return len(s.encoders) == 0
}

// Prober supplies the raw encoder listing from the framework.
// The production implementation shells out to ffmpeg; tests inject canned
// output.
type Prober interface {
	Encoders(ctx context.Context) (string, error)
}

// ExecProber queries the ffmpeg binary on PATH.
type ExecProber struct {
	// FFmpegPath overrides the binary name; empty means "ffmpeg".
	FFmpegPath string
}

// Encoders runs `ffmpeg -encoders` and returns its raw output.
func (p ExecProber) Encoders(ctx context.Context) (string, error) {
	bin := p.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, "-hide_banner", "-nostats", "-encoders")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// encoderLine matches one row of ffmpeg's encoder table:
// capability flags, encoder name, description.
var encoderLine = regexp.MustCompile(`^\s*([VASFXBD.]{6})\s+(\S+)\s+(.+)$`)

// Families that correspond to each accelerator boolean. Lists follow the
// encoders each vendor line actually ships.
var (
	nvencNames = []string{"h264_nvenc", "hevc_nvenc", "av1_nvenc"}
	qsvNames   = []string{"h264_qsv", "hevc_qsv", "av1_qsv"}
	vaapiNames = []string{"h264_vaapi", "hevc_vaapi", "vp9_vaapi", "av1_vaapi"}
	vtNames    = []string{"h264_videotoolbox", "hevc_videotoolbox"}

	// codecMarkers maps a codec family to substrings that identify its
	// encoders in the listing.
	codecMarkers = map[settings.Codec][]string{
		settings.CodecH264: {"x264", "h264"},
		settings.CodecH265: {"x265", "h265", "hevc"},
		settings.CodecVP9:  {"vp9"},
		settings.CodecAV1:  {"av1", "aom"},
	}
)

// Detect queries the framework once and builds a snapshot. Probing errors
// are logged and swallowed: an all-false snapshot simply means the resolver
// falls back to software encoders.
func Detect(ctx context.Context, prober Prober, logger *slog.Logger) Snapshot {
	snap := Snapshot{
		encoders: make(map[string]bool),
		codecs:   make(map[settings.Codec]bool),
	}

	output, err := prober.Encoders(ctx)
	if err != nil {
		logger.Warn("Encoder detection failed, assuming software-only", "error", err)
		return snap
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := scanner.Text()

		if !inTable {
			if strings.Contains(line, "-----") || strings.Contains(line, "Encoders:") {
				inTable = true
			}
			continue
		}

		m := encoderLine.FindStringSubmatch(line)
		if len(m) != 4 {
			continue
		}
		flags, name := m[1], m[2]

		// Video encoders only.
		if !strings.Contains(flags, "V") {
			continue
		}
		snap.encoders[name] = true
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Encoder detection output truncated", "error", err)
	}

	snap.NVENC = anyPresent(snap.encoders, nvencNames)
	snap.QSV = anyPresent(snap.encoders, qsvNames)
	snap.VAAPI = anyPresent(snap.encoders, vaapiNames)
	snap.VideoToolbox = anyPresent(snap.encoders, vtNames)

	for codec, markers := range codecMarkers {
		for name := range snap.encoders {
			if containsAny(name, markers) {
				snap.codecs[codec] = true
				break
			}
		}
	}

	logger.Info("Encoder capabilities detected",
		"encoders", len(snap.encoders),
		"nvenc", snap.NVENC,
		"qsv", snap.QSV,
		"vaapi", snap.VAAPI,
		"videotoolbox", snap.VideoToolbox,
	)

	return snap
}

func anyPresent(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
