// Package pipeline implements the compression run: open the input, walk
// the encoder attempt plan, pump frames through decode, scale, encode and
// mux, then flush and close. A pipeline executes one run and is not reused.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alharthydev/compresspro/internal/media"
	"github.com/alharthydev/compresspro/internal/metrics"
	"github.com/alharthydev/compresspro/internal/resolver"
	"github.com/alharthydev/compresspro/internal/settings"
)

// State is the pipeline's lifecycle position. Transitions are linear;
// failure and cancellation jump straight to StateClosed.
type State string

const (
	StateInit             State = "init"
	StateOpeningInput     State = "opening_input"
	StateNegotiatingVideo State = "negotiating_video_encoder"
	StateNegotiatingAudio State = "negotiating_audio_encoder"
	StateEncodingVideo    State = "encoding_video"
	StateEncodingAudio    State = "encoding_audio"
	StateFlushing         State = "flushing"
	StateClosed           State = "closed"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Result summarizes a finished run.
type Result struct {
	Outcome Outcome

	// Encoder is the video encoder that served the run, empty when
	// negotiation never succeeded.
	Encoder string

	// Frames is the number of video frames processed.
	Frames int64

	// Err describes the failure for OutcomeFailed, and wraps
	// ErrCancelled for OutcomeCancelled.
	Err error
}

// Sink receives pipeline notifications. All methods are called from the
// run's goroutine; implementations that fan out must not block.
type Sink interface {
	// StateChanged fires on every transition. Detail carries the
	// negotiated encoder name during encoding states.
	StateChanged(state State, detail string)

	// Progress fires after every encoded video frame and once more when
	// the run succeeds. Percent never decreases and never exceeds 100.
	Progress(percent int, frames int64)

	// Status carries a human-readable message: encoder attempts and
	// rejections, and a frame counter every statusInterval frames.
	Status(message string)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) StateChanged(State, string) {}
func (NopSink) Progress(int, int64)        {}
func (NopSink) Status(string)              {}

// statusInterval is how many video frames pass between status messages.
const statusInterval = 30

// Defaults applied when the input does not report audio parameters.
const (
	defaultSampleRate = 44100
	defaultChannels   = 2
)

// Pipeline executes one compression run.
type Pipeline struct {
	RunID    string
	Settings settings.CompressionSettings
	Plan     resolver.Plan
	Sink     Sink
	Logger   *slog.Logger

	framework media.Framework

	state       State
	lastPercent int
}

// New builds a pipeline over the given media framework. Sink may be nil.
func New(fw media.Framework, runID string, s settings.CompressionSettings, plan resolver.Plan, sink Sink, logger *slog.Logger) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	return &Pipeline{
		RunID:     runID,
		Settings:  s,
		Plan:      plan,
		Sink:      sink,
		Logger:    logger,
		framework: fw,
		state:     StateInit,
	}
}

// EstimateTotalFrames derives the expected frame count for progress
// reporting. It prefers the container's own count, then duration times
// frame rate with a 30fps assumption when the rate is unknown, then a
// constant so progress still moves on pathological inputs.
func EstimateTotalFrames(vi media.StreamInfo) int64 {
	if vi.FrameCount > 0 {
		return vi.FrameCount
	}
	if vi.Duration > 0 {
		rate := vi.FrameRate
		if rate <= 0 {
			rate = 30
		}
		return int64(vi.Duration * rate)
	}
	return 1000
}

// Run executes the pipeline to completion. It blocks until the run reaches
// a terminal outcome; cancel via ctx. Cancellation skips the flush stage
// but still closes both containers.
func (p *Pipeline) Run(ctx context.Context) Result {
	res := p.run(ctx)

	p.transition(StateClosed, string(res.Outcome))
	metrics.CountRunFinished(string(res.Outcome))

	switch res.Outcome {
	case OutcomeSuccess:
		p.Logger.Info("Run finished", "run_id", p.RunID, "encoder", res.Encoder, "frames", res.Frames)
	case OutcomeCancelled:
		p.Logger.Info("Run cancelled", "run_id", p.RunID, "frames", res.Frames)
	default:
		p.Logger.Error("Run failed", "run_id", p.RunID, "error", res.Err)
	}
	return res
}

func (p *Pipeline) run(ctx context.Context) Result {
	var res Result

	p.transition(StateOpeningInput, "")
	input, err := p.framework.OpenInput(ctx, p.Settings.InputPath)
	if err != nil {
		return terminal(res, fmt.Errorf("open input %s: %w", p.Settings.InputPath, err))
	}
	defer input.Close()

	videoInfo, ok := input.Video()
	if !ok {
		return terminal(res, ErrNoVideoStream)
	}
	totalFrames := EstimateTotalFrames(videoInfo)

	width, height := videoInfo.Width, videoInfo.Height
	if w, h, ok := p.Settings.Resolution.Dimensions(); ok {
		width, height = w, h
	}
	frameRate := videoInfo.FrameRate
	if v, ok := p.Settings.FPS.Value(); ok {
		frameRate = float64(v)
	}

	output, err := p.framework.OpenOutput(ctx, p.Settings.OutputPath)
	if err != nil {
		return terminal(res, fmt.Errorf("open output %s: %w", p.Settings.OutputPath, err))
	}
	defer output.Close()

	var videoBitrate int64
	if p.Settings.QualityMode == settings.QualityBitrate {
		videoBitrate, err = settings.ParseBitrate(p.Settings.Bitrate)
		if err != nil {
			return terminal(res, fmt.Errorf("video bitrate: %w", err))
		}
	}

	p.transition(StateNegotiatingVideo, "")
	videoEnc, encoderName, err := p.negotiateVideo(output, width, height, frameRate, videoBitrate)
	if err != nil {
		return terminal(res, err)
	}
	res.Encoder = encoderName

	audioInfo, hasAudio := input.Audio()
	var audioEnc media.AudioEncoder
	if hasAudio {
		p.transition(StateNegotiatingAudio, p.Settings.AudioCodec)
		audioBitrate, err := settings.ParseBitrate(p.Settings.AudioBitrate)
		if err != nil {
			return terminal(res, fmt.Errorf("audio bitrate: %w", err))
		}
		sampleRate := audioInfo.SampleRate
		if sampleRate == 0 {
			sampleRate = defaultSampleRate
		}
		channels := audioInfo.Channels
		if channels == 0 {
			channels = defaultChannels
		}
		audioEnc, err = output.NegotiateAudio(media.AudioEncoderConfig{
			Encoder:    p.Settings.AudioCodec,
			Bitrate:    audioBitrate,
			SampleRate: sampleRate,
			Channels:   channels,
		})
		if err != nil {
			// Audio has no fallback chain. A source with audio that
			// cannot be encoded fails the run rather than silently
			// dropping the track.
			return terminal(res, fmt.Errorf("open audio encoder %s: %w", p.Settings.AudioCodec, err))
		}
	}

	p.transition(StateEncodingVideo, encoderName)
	res.Frames, err = p.encodeVideo(ctx, input, output, videoEnc, width, height, totalFrames)
	if err != nil {
		return terminal(res, err)
	}

	if audioEnc != nil {
		p.transition(StateEncodingAudio, p.Settings.AudioCodec)
		if err := p.encodeAudio(ctx, input, output, audioEnc); err != nil {
			return terminal(res, err)
		}
	}

	if ctx.Err() != nil {
		return terminal(res, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err()))
	}

	p.transition(StateFlushing, "")
	if err := flush(output, videoEnc); err != nil {
		return terminal(res, fmt.Errorf("flush video: %w", err))
	}
	if audioEnc != nil {
		if err := flush(output, audioEnc); err != nil {
			return terminal(res, fmt.Errorf("flush audio: %w", err))
		}
	}

	res.Outcome = OutcomeSuccess
	p.reportProgress(res.Frames, totalFrames, true)
	return res
}

// negotiateVideo walks the attempt plan until one encoder opens.
func (p *Pipeline) negotiateVideo(output media.Output, width, height int, frameRate float64, bitrate int64) (media.VideoEncoder, string, error) {
	for _, cand := range p.Plan.Candidates {
		p.Sink.Status(fmt.Sprintf("Attempting encoder: %s", cand.Name))
		enc, err := output.NegotiateVideo(media.VideoEncoderConfig{
			Encoder:   cand.Name,
			Width:     width,
			Height:    height,
			FrameRate: frameRate,
			Bitrate:   bitrate,
			Options:   cand.Options,
			Threads:   p.Settings.Threads,
		})
		if err != nil {
			p.Logger.Warn("Encoder rejected, trying next candidate",
				"run_id", p.RunID, "encoder", cand.Name, "error", err)
			metrics.CountEncoderFallback(cand.Name)
			p.Sink.Status(fmt.Sprintf("Encoder %s failed: %v", cand.Name, err))
			continue
		}
		p.Sink.Status(fmt.Sprintf("Using encoder: %s", cand.Name))
		return enc, cand.Name, nil
	}
	return nil, "", fmt.Errorf("%w: tried %d candidates for %s", ErrNoEncoderAvailable, len(p.Plan.Candidates), p.Plan.Codec)
}

func (p *Pipeline) encodeVideo(ctx context.Context, input media.Input, output media.Output, enc media.VideoEncoder, width, height int, totalFrames int64) (int64, error) {
	var frames int64
	for {
		if err := ctx.Err(); err != nil {
			return frames, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		frame, err := input.ReadVideoFrame()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("decode video frame %d: %w", frames, err)
		}

		if frame.Width != width || frame.Height != height {
			frame, err = media.Scale(frame, width, height)
			if err != nil {
				return frames, fmt.Errorf("scale frame %d: %w", frames, err)
			}
		}

		pkts, err := enc.Encode(frame)
		if err != nil {
			return frames, fmt.Errorf("encode video frame %d: %w", frames, err)
		}
		if err := writePackets(output, pkts); err != nil {
			return frames, fmt.Errorf("mux video frame %d: %w", frames, err)
		}

		frames++
		p.reportProgress(frames, totalFrames, false)
		if frames%statusInterval == 0 {
			p.Sink.Status(fmt.Sprintf("Processed %d/%d frames", frames, totalFrames))
		}
	}
}

func (p *Pipeline) encodeAudio(ctx context.Context, input media.Input, output media.Output, enc media.AudioEncoder) error {
	var frames int64
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		frame, err := input.ReadAudioFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode audio frame %d: %w", frames, err)
		}

		pkts, err := enc.Encode(frame)
		if err != nil {
			return fmt.Errorf("encode audio frame %d: %w", frames, err)
		}
		if err := writePackets(output, pkts); err != nil {
			return fmt.Errorf("mux audio frame %d: %w", frames, err)
		}
		frames++
	}
}

// reportProgress caps the percentage at 100 and never lets it move
// backwards, so late frame-count corrections cannot make the progress
// display jump around.
func (p *Pipeline) reportProgress(frames, totalFrames int64, final bool) {
	percent := 100
	if !final && totalFrames > 0 {
		percent = int(frames * 100 / totalFrames)
		if percent > 100 {
			percent = 100
		}
	}
	if percent < p.lastPercent {
		percent = p.lastPercent
	}
	p.lastPercent = percent

	metrics.SetRunProgress(p.RunID, float64(percent))
	metrics.SetRunFrames(p.RunID, float64(frames))
	p.Sink.Progress(percent, frames)
}

func (p *Pipeline) transition(state State, detail string) {
	if p.state == state {
		return
	}
	p.state = state
	p.Logger.Debug("Pipeline state changed", "run_id", p.RunID, "state", string(state), "detail", detail)
	p.Sink.StateChanged(state, detail)
}

type flusher interface {
	Flush() ([]media.Packet, error)
}

// flush drains an encoder's buffered packets into the output. Packets
// returned alongside a flush error are still muxed before the error
// surfaces.
func flush(output media.Output, enc flusher) error {
	pkts, flushErr := enc.Flush()
	if err := writePackets(output, pkts); err != nil {
		return err
	}
	return flushErr
}

func writePackets(output media.Output, pkts []media.Packet) error {
	for _, pkt := range pkts {
		if err := output.WritePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

// terminal classifies an error into the run's outcome. Context
// cancellation surfacing through any stage counts as a cancelled run.
func terminal(res Result, err error) Result {
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		res.Outcome = OutcomeCancelled
	} else {
		res.Outcome = OutcomeFailed
	}
	res.Err = err
	return res
}
