package ffmpegcli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/alharthydev/compresspro/internal/media"
)

// probeEncodeTimeout bounds the tiny validation encode that decides whether
// an encoder candidate is usable.
const probeEncodeTimeout = 10 * time.Second

// output writes encoded packets to the destination file in arrival order.
type output struct {
	ctx  context.Context
	fw   *Framework
	path string
	file *os.File

	video *procEncoder
	audio *procEncoder
}

func newOutput(ctx context.Context, fw *Framework, path string) (*output, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &output{ctx: ctx, fw: fw, path: path, file: file}, nil
}

// NegotiateVideo validates the candidate with a short test-pattern encode,
// then starts the real encoder process. A candidate whose probe encode
// fails is reported unusable without touching the destination file.
func (out *output) NegotiateVideo(cfg media.VideoEncoderConfig) (media.VideoEncoder, error) {
	if err := out.probeEncode(cfg.Encoder, cfg.Options); err != nil {
		return nil, err
	}

	enc, err := startEncoder(out.ctx, out.fw.ffmpegPath, media.StreamVideo, videoEncodeArgs(cfg))
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Encoder, err)
	}
	out.video = enc
	out.fw.logger.Info("Video encoder opened", "encoder", cfg.Encoder, "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return enc, nil
}

func (out *output) NegotiateAudio(cfg media.AudioEncoderConfig) (media.AudioEncoder, error) {
	enc, err := startEncoder(out.ctx, out.fw.ffmpegPath, media.StreamAudio, audioEncodeArgs(cfg))
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Encoder, err)
	}
	out.audio = enc
	out.fw.logger.Info("Audio encoder opened", "encoder", cfg.Encoder, "rate", cfg.SampleRate, "channels", cfg.Channels)
	return enc, nil
}

func (out *output) WritePacket(pkt media.Packet) error {
	if _, err := out.file.Write(pkt.Data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

func (out *output) Close() error {
	if out.video != nil {
		out.video.stop()
	}
	if out.audio != nil {
		out.audio.stop()
	}
	return out.file.Close()
}

// probeEncode encodes a fraction of a second of test pattern through the
// candidate and discards the result. The exit status is the verdict.
func (out *output) probeEncode(encoder string, options map[string]string) error {
	ctx, cancel := context.WithTimeout(out.ctx, probeEncodeTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-f", "lavfi",
		"-i", "testsrc2=duration=0.1:size=128x72:rate=30",
		"-c:v", encoder,
	}
	args = append(args, optionArgs(options)...)
	args = append(args, "-f", "null", "-")

	cmd := exec.CommandContext(ctx, out.fw.ffmpegPath, args...)
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("encoder %s unusable: %w: %s", encoder, err, string(outBytes))
	}
	return nil
}

func videoEncodeArgs(cfg media.VideoEncoderConfig) []string {
	frameRate := cfg.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.FormatFloat(frameRate, 'f', -1, 64),
		"-i", "-",
		"-c:v", cfg.Encoder,
	}
	args = append(args, optionArgs(cfg.Options)...)
	if cfg.Bitrate > 0 {
		args = append(args, "-b:v", strconv.FormatInt(cfg.Bitrate, 10))
	}
	if cfg.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(cfg.Threads))
	}
	args = append(args, "-f", "mpegts", "-")
	return args
}

func audioEncodeArgs(cfg media.AudioEncoderConfig) []string {
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", "-",
		"-c:a", cfg.Encoder,
	}
	if cfg.Bitrate > 0 {
		args = append(args, "-b:a", strconv.FormatInt(cfg.Bitrate, 10))
	}
	args = append(args, "-f", "mpegts", "-")
	return args
}

// optionArgs renders encoder-private options in deterministic order.
func optionArgs(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, "-"+k, options[k])
	}
	return args
}
