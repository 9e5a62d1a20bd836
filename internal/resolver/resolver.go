// Package resolver turns a compression request into an ordered plan of
// encoder attempts. Selection is deliberately optimistic: the plan lists
// every encoder worth trying and the pipeline walks it until one opens
// successfully, so a wrong guess here costs one failed negotiation rather
// than a failed run.
package resolver

import (
	"fmt"
	"strconv"

	"github.com/alharthydev/compresspro/internal/capability"
	"github.com/alharthydev/compresspro/internal/settings"
)

// Candidate is one encoder the pipeline should attempt, with the options
// already resolved for that encoder's option surface.
type Candidate struct {
	// Name is the concrete encoder identifier passed to the framework.
	Name string

	// Options are encoder-private options (quality knob, preset). Bitrate
	// and thread count are carried separately because they are configured
	// on the stream rather than the encoder.
	Options map[string]string

	// Hardware reports whether the encoder uses a hardware accelerator.
	Hardware bool
}

// Plan is the ordered list of encoder attempts for one run. Primary
// candidates are tried first; Fallbacks are appended after the primaries
// are exhausted, skipping duplicates.
type Plan struct {
	Codec      settings.Codec
	Candidates []Candidate
}

// primaryOrder lists the encoders per codec family, software first. Hardware
// entries are promoted or dropped based on the acceleration preference.
var primaryOrder = map[settings.Codec][]string{
	settings.CodecH264: {"libx264", "h264_nvenc", "h264_qsv", "h264_vaapi", "h264_videotoolbox"},
	settings.CodecH265: {"libx265", "hevc_nvenc", "hevc_qsv", "hevc_vaapi", "hevc_videotoolbox"},
	settings.CodecVP9:  {"libvpx-vp9", "vp9_vaapi"},
	settings.CodecAV1:  {"libsvtav1", "av1_qsv", "av1_vaapi", "av1_nvenc"},
}

// fallbackOrder lists the last-resort encoders appended after the primary
// candidates. These are attempted even when detection did not report them,
// because detection is advisory and a software encoder may still open.
var fallbackOrder = map[settings.Codec][]string{
	settings.CodecH264: {"libx264", "h264_nvenc"},
	settings.CodecH265: {"libx265", "hevc_nvenc"},
	settings.CodecVP9:  {"libvpx-vp9"},
	settings.CodecAV1:  {"libsvtav1", "libaom-av1"},
}

var hardwareSuffix = map[string]settings.Acceleration{
	"_nvenc":        settings.AccelNVENC,
	"_qsv":          settings.AccelQSV,
	"_vaapi":        settings.AccelVAAPI,
	"_videotoolbox": settings.AccelAuto, // Apple only, no explicit preference maps to it
}

// encoderAccel returns the accelerator family an encoder belongs to, or
// false for software encoders.
func encoderAccel(name string) (settings.Acceleration, bool) {
	for suffix, accel := range hardwareSuffix {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return accel, true
		}
	}
	return settings.AccelAuto, false
}

// accelAvailable reports whether the snapshot saw any encoder for the
// accelerator family.
func accelAvailable(snap capability.Snapshot, accel settings.Acceleration) bool {
	switch accel {
	case settings.AccelNVENC:
		return snap.NVENC
	case settings.AccelQSV:
		return snap.QSV
	case settings.AccelVAAPI:
		return snap.VAAPI
	default:
		return false
	}
}

// Resolve builds the attempt plan for the requested settings against the
// detected capabilities.
//
// Ordering rules:
//   - software encoders always lead, so a broken driver never blocks a run
//   - with a specific hardware preference that the snapshot confirms, that
//     family's encoders move ahead of the other hardware entries
//   - AccelCPU removes hardware entries from the primaries entirely
//   - hardware primaries the snapshot did not report are filtered out
//   - the fallback tail is appended afterwards, minus duplicates
func Resolve(s settings.CompressionSettings, snap capability.Snapshot) (Plan, error) {
	primaries, ok := primaryOrder[s.Codec]
	if !ok {
		return Plan{}, fmt.Errorf("no encoders known for codec %q", s.Codec)
	}

	var software, preferred, hardware []string
	for _, name := range primaries {
		accel, hw := encoderAccel(name)
		switch {
		case !hw:
			software = append(software, name)
		case s.Acceleration == settings.AccelCPU:
			// dropped
		case !snap.HasEncoder(name):
			// detection is advisory for software, binding for hardware:
			// a hardware encoder the framework never listed cannot open
		case s.Acceleration != settings.AccelAuto && accel == s.Acceleration && accelAvailable(snap, accel):
			preferred = append(preferred, name)
		default:
			hardware = append(hardware, name)
		}
	}

	ordered := make([]string, 0, len(primaries)+len(fallbackOrder[s.Codec]))
	ordered = append(ordered, software...)
	ordered = append(ordered, preferred...)
	ordered = append(ordered, hardware...)

	seen := make(map[string]bool, len(ordered))
	for _, name := range ordered {
		seen[name] = true
	}
	for _, name := range fallbackOrder[s.Codec] {
		if !seen[name] {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}

	plan := Plan{Codec: s.Codec}
	for _, name := range ordered {
		_, hw := encoderAccel(name)
		plan.Candidates = append(plan.Candidates, Candidate{
			Name:     name,
			Options:  encoderOptions(name, s),
			Hardware: hw,
		})
	}
	if len(plan.Candidates) == 0 {
		return Plan{}, fmt.Errorf("no encoder candidates for codec %q", s.Codec)
	}
	return plan, nil
}

// encoderOptions maps the shared quality settings onto the option names a
// particular encoder understands. Bitrate mode carries no encoder-private
// options; the bitrate itself is set on the stream by the pipeline.
func encoderOptions(name string, s settings.CompressionSettings) map[string]string {
	opts := make(map[string]string)
	if s.QualityMode != settings.QualityCRF {
		return opts
	}

	crf := strconv.Itoa(s.CRF)
	accel, hw := encoderAccel(name)
	switch {
	case !hw:
		opts["crf"] = crf
		opts["preset"] = string(s.Preset)
	case accel == settings.AccelNVENC:
		// h264_nvenc takes crf, the newer NVENC encoders take cq. Preset
		// names also differ per encoder, medium exists everywhere.
		if name == "h264_nvenc" {
			opts["crf"] = crf
		} else {
			opts["cq"] = crf
		}
		opts["preset"] = "medium"
	case accel == settings.AccelQSV:
		opts["global_quality"] = crf
	default:
		opts["crf"] = crf
	}
	return opts
}
