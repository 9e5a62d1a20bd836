// Package ffmpegcli adapts the media ports onto ffmpeg and ffprobe child
// processes. Inputs are decoded to raw yuv420p video and s16le audio over
// pipes; encoders run as long-lived processes fed raw frames on stdin and
// producing MPEG-TS packets on stdout, which the output concatenates in
// production order.
package ffmpegcli

import (
	"context"
	"log/slog"

	"github.com/alharthydev/compresspro/internal/media"
)

// Framework is the ffmpeg-backed media.Framework.
type Framework struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

// Option configures the framework.
type Option func(*Framework)

// WithFFmpegPath overrides the ffmpeg binary location.
func WithFFmpegPath(path string) Option {
	return func(f *Framework) { f.ffmpegPath = path }
}

// WithFFprobePath overrides the ffprobe binary location.
func WithFFprobePath(path string) Option {
	return func(f *Framework) { f.ffprobePath = path }
}

// New builds a framework that finds ffmpeg and ffprobe on PATH unless
// overridden.
func New(logger *slog.Logger, opts ...Option) *Framework {
	f := &Framework{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		logger:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OpenInput probes the file and prepares lazy decoder processes.
func (f *Framework) OpenInput(ctx context.Context, path string) (media.Input, error) {
	info, err := probeFile(ctx, f.ffprobePath, path)
	if err != nil {
		return nil, err
	}
	return newInput(ctx, f, path, info), nil
}

// OpenOutput creates the destination file.
func (f *Framework) OpenOutput(ctx context.Context, path string) (media.Output, error) {
	return newOutput(ctx, f, path)
}
