package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/alharthydev/compresspro/internal/capability"
	"github.com/alharthydev/compresspro/internal/media"
	"github.com/alharthydev/compresspro/internal/media/mediatest"
	"github.com/alharthydev/compresspro/internal/resolver"
	"github.com/alharthydev/compresspro/internal/settings"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recordingSink captures every notification for assertions.
type recordingSink struct {
	mu       sync.Mutex
	states   []State
	details  map[State]string
	percents []int
	frames   []int64
	statuses []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{details: make(map[State]string)}
}

func (s *recordingSink) StateChanged(state State, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
	s.details[state] = detail
}

func (s *recordingSink) Progress(percent int, frames int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percents = append(s.percents, percent)
	s.frames = append(s.frames, frames)
}

func (s *recordingSink) Status(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, message)
}

func planFor(t *testing.T, s settings.CompressionSettings) resolver.Plan {
	t.Helper()
	plan, err := resolver.Resolve(s, capability.Snapshot{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return plan
}

func testSettings() settings.CompressionSettings {
	s := settings.Default()
	s.InputPath = "/in/source.mp4"
	s.OutputPath = "/out/dest.mp4"
	return s
}

func scriptedFramework(videoFrames, audioFrames int) *mediatest.Framework {
	fw := &mediatest.Framework{
		HasVideo: true,
		VideoInfo: media.StreamInfo{
			Width:      32,
			Height:     16,
			FrameRate:  30,
			FrameCount: int64(videoFrames),
		},
		VideoFrames: mediatest.Frames(videoFrames, 32, 16),
	}
	if audioFrames > 0 {
		fw.HasAudio = true
		fw.AudioInfo = media.StreamInfo{SampleRate: 48000, Channels: 2}
		fw.AudioFrames = mediatest.AudioFrames(audioFrames)
	}
	return fw
}

func TestRunSuccess(t *testing.T) {
	fw := scriptedFramework(90, 10)
	s := testSettings()
	sink := newRecordingSink()

	p := New(fw, "run-success", s, planFor(t, s), sink, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v (err %v), want success", res.Outcome, res.Err)
	}
	if res.Frames != 90 {
		t.Errorf("Frames = %d, want 90", res.Frames)
	}
	if res.Encoder != "libx264" {
		t.Errorf("Encoder = %q, want libx264", res.Encoder)
	}

	want := []State{
		StateOpeningInput,
		StateNegotiatingVideo,
		StateNegotiatingAudio,
		StateEncodingVideo,
		StateEncodingAudio,
		StateFlushing,
		StateClosed,
	}
	if len(sink.states) != len(want) {
		t.Fatalf("states = %v, want %v", sink.states, want)
	}
	for i, st := range want {
		if sink.states[i] != st {
			t.Errorf("state[%d] = %v, want %v", i, sink.states[i], st)
		}
	}
	if sink.details[StateEncodingVideo] != "libx264" {
		t.Errorf("encoding detail = %q, want libx264", sink.details[StateEncodingVideo])
	}

	if fw.Input().CloseCount != 1 {
		t.Errorf("input CloseCount = %d, want 1", fw.Input().CloseCount)
	}
	if fw.Output().CloseCount != 1 {
		t.Errorf("output CloseCount = %d, want 1", fw.Output().CloseCount)
	}
}

func TestRunMuxOrder(t *testing.T) {
	fw := scriptedFramework(3, 2)
	s := testSettings()

	p := New(fw, "run-order", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v (err %v), want success", res.Outcome, res.Err)
	}

	order := fw.Output().StreamOrder()
	want := []media.StreamKind{
		media.StreamVideo, media.StreamVideo, media.StreamVideo,
		media.StreamAudio, media.StreamAudio,
		media.StreamVideo, // video flush
		media.StreamAudio, // audio flush
	}
	if len(order) != len(want) {
		t.Fatalf("packet order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("packet[%d] = %v, want %v", i, order[i], want[i])
		}
	}
}

func TestRunEncoderFallback(t *testing.T) {
	fw := scriptedFramework(5, 0)
	fw.RejectEncoders = map[string]error{
		"libx264": errors.New("encoder not compiled in"),
	}
	s := testSettings()
	sink := newRecordingSink()

	p := New(fw, "run-fallback", s, planFor(t, s), sink, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v (err %v), want success", res.Outcome, res.Err)
	}
	if res.Encoder != "h264_nvenc" {
		t.Errorf("Encoder = %q, want h264_nvenc", res.Encoder)
	}

	attempts := fw.Output().VideoAttempts
	if len(attempts) != 2 || attempts[0] != "libx264" || attempts[1] != "h264_nvenc" {
		t.Errorf("attempts = %v, want [libx264 h264_nvenc]", attempts)
	}

	// Each attempt and its outcome shows up on the status stream.
	want := []string{
		"Attempting encoder: libx264",
		"Encoder libx264 failed: encoder not compiled in",
		"Attempting encoder: h264_nvenc",
		"Using encoder: h264_nvenc",
	}
	for _, msg := range want {
		found := false
		for _, got := range sink.statuses {
			if got == msg {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("status %q missing from %v", msg, sink.statuses)
		}
	}
}

func TestRunAllEncodersRejected(t *testing.T) {
	fw := scriptedFramework(5, 0)
	fw.RejectEncoders = map[string]error{
		"libx264":    errors.New("no"),
		"h264_nvenc": errors.New("no"),
	}
	s := testSettings()

	p := New(fw, "run-noenc", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, ErrNoEncoderAvailable) {
		t.Errorf("Err = %v, want ErrNoEncoderAvailable", res.Err)
	}
	if fw.Output().CloseCount != 1 {
		t.Errorf("output CloseCount = %d, want 1", fw.Output().CloseCount)
	}
}

func TestRunAudioNegotiationFailureIsTerminal(t *testing.T) {
	fw := scriptedFramework(5, 5)
	fw.AudioNegotiateErr = errors.New("aac unavailable")
	s := testSettings()

	p := New(fw, "run-audiofail", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if len(fw.Output().Packets) != 0 {
		t.Errorf("muxed %d packets before audio failure, want 0", len(fw.Output().Packets))
	}
}

func TestRunNoVideoStream(t *testing.T) {
	fw := &mediatest.Framework{HasVideo: false}
	s := testSettings()

	p := New(fw, "run-novideo", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, ErrNoVideoStream) {
		t.Errorf("Err = %v, want ErrNoVideoStream", res.Err)
	}
}

func TestRunOpenInputFailure(t *testing.T) {
	fw := &mediatest.Framework{OpenInputErr: errors.New("no such file")}
	s := testSettings()
	sink := newRecordingSink()

	p := New(fw, "run-badinput", s, planFor(t, s), sink, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	last := sink.states[len(sink.states)-1]
	if last != StateClosed {
		t.Errorf("final state = %v, want closed", last)
	}
}

func TestRunCancellationSkipsFlush(t *testing.T) {
	fw := scriptedFramework(200, 5)
	s := testSettings()
	sink := newRecordingSink()

	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()

	p := New(fw, "run-cancel", s, planFor(t, s), sink, testLogger)
	res := p.Run(ctx)

	if res.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %v, want cancelled", res.Outcome)
	}
	if !errors.Is(res.Err, ErrCancelled) {
		t.Errorf("Err = %v, want ErrCancelled", res.Err)
	}
	for _, st := range sink.states {
		if st == StateFlushing {
			t.Error("pipeline entered flushing after cancellation")
		}
	}
	if fw.Input().CloseCount != 1 || fw.Output().CloseCount != 1 {
		t.Error("containers not closed after cancellation")
	}
}

func TestRunDecodeErrorFails(t *testing.T) {
	fw := scriptedFramework(100, 0)
	fw.VideoReadErr = errors.New("corrupt packet")
	fw.FailAfterVideoFrames = 10

	s := testSettings()
	p := New(fw, "run-decodeerr", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if res.Frames != 10 {
		t.Errorf("Frames = %d, want 10", res.Frames)
	}
}

func TestRunProgressMonotonicAndCapped(t *testing.T) {
	// The container lies: it reports 30 frames but delivers 120, so the
	// naive percentage would pass 100 and the final report could regress.
	fw := scriptedFramework(120, 0)
	fw.VideoInfo.FrameCount = 30

	s := testSettings()
	sink := newRecordingSink()

	p := New(fw, "run-progress", s, planFor(t, s), sink, testLogger)
	res := p.Run(context.Background())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v (err %v), want success", res.Outcome, res.Err)
	}

	if len(sink.percents) == 0 {
		t.Fatal("no progress reports")
	}
	prev := -1
	for i, pct := range sink.percents {
		if pct < prev {
			t.Errorf("progress regressed at report %d: %d after %d", i, pct, prev)
		}
		if pct > 100 {
			t.Errorf("progress exceeded 100: %d", pct)
		}
		prev = pct
	}
	if final := sink.percents[len(sink.percents)-1]; final != 100 {
		t.Errorf("final progress = %d, want 100", final)
	}
}

func TestRunProgressCadence(t *testing.T) {
	fw := scriptedFramework(95, 0)
	s := testSettings()
	sink := newRecordingSink()

	p := New(fw, "run-cadence", s, planFor(t, s), sink, testLogger)
	if res := p.Run(context.Background()); res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}

	// A report after every frame plus the final one.
	if len(sink.frames) != 96 {
		t.Fatalf("got %d progress reports, want 96", len(sink.frames))
	}
	for i := 0; i < 95; i++ {
		if sink.frames[i] != int64(i+1) {
			t.Fatalf("report[%d] frames = %d, want %d", i, sink.frames[i], i+1)
		}
	}
	if sink.frames[95] != 95 {
		t.Errorf("final report frames = %d, want 95", sink.frames[95])
	}

	// Status messages at frames 30, 60 and 90.
	var counts []string
	for _, msg := range sink.statuses {
		if strings.HasPrefix(msg, "Processed ") {
			counts = append(counts, msg)
		}
	}
	want := []string{
		"Processed 30/95 frames",
		"Processed 60/95 frames",
		"Processed 90/95 frames",
	}
	if len(counts) != len(want) {
		t.Fatalf("frame status messages = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("status[%d] = %q, want %q", i, counts[i], want[i])
		}
	}
}

func TestRunFlushErrorFails(t *testing.T) {
	fw := scriptedFramework(3, 0)
	fw.VideoFlushErr = errors.New("encoder exited with status 1")
	s := testSettings()

	p := New(fw, "run-flusherr", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v (err %v), want failed", res.Outcome, res.Err)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "flush video") {
		t.Errorf("Err = %v, want flush video error", res.Err)
	}

	// The packets returned alongside the flush error are still muxed.
	pkts := fw.Output().Packets
	if len(pkts) != 4 {
		t.Fatalf("muxed %d packets, want 4 including the flush packet", len(pkts))
	}
	if got := string(pkts[3].Data); !strings.HasSuffix(got, "/flush") {
		t.Errorf("last packet = %q, want the flush packet", got)
	}
}

func TestRunAudioFlushErrorFails(t *testing.T) {
	fw := scriptedFramework(2, 2)
	fw.AudioFlushErr = errors.New("encoder exited with status 1")
	s := testSettings()

	p := New(fw, "run-audioflusherr", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())

	if res.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %v (err %v), want failed", res.Outcome, res.Err)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "flush audio") {
		t.Errorf("Err = %v, want flush audio error", res.Err)
	}
}

func TestRunScalesToTargetResolution(t *testing.T) {
	fw := scriptedFramework(4, 0)
	s := testSettings()
	s.Resolution = settings.Resolution480p

	p := New(fw, "run-scale", s, planFor(t, s), nil, testLogger)
	res := p.Run(context.Background())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v (err %v), want success", res.Outcome, res.Err)
	}

	cfg := fw.Output().VideoConfig
	if cfg.Width != 854 || cfg.Height != 480 {
		t.Errorf("encoder config = %dx%d, want 854x480", cfg.Width, cfg.Height)
	}
}

func TestRunFrameRateOverride(t *testing.T) {
	fw := scriptedFramework(4, 0)
	s := testSettings()
	s.FPS = settings.FPS24

	p := New(fw, "run-fps", s, planFor(t, s), nil, testLogger)
	if res := p.Run(context.Background()); res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}
	if got := fw.Output().VideoConfig.FrameRate; got != 24 {
		t.Errorf("encoder frame rate = %v, want 24", got)
	}
}

func TestRunAudioDefaultsApplied(t *testing.T) {
	fw := scriptedFramework(2, 2)
	fw.AudioInfo = media.StreamInfo{} // source reports nothing

	s := testSettings()
	p := New(fw, "run-audiodefaults", s, planFor(t, s), nil, testLogger)
	if res := p.Run(context.Background()); res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}

	cfg := fw.Output().AudioConfig
	if cfg.SampleRate != 44100 || cfg.Channels != 2 {
		t.Errorf("audio config = %d/%d, want 44100/2", cfg.SampleRate, cfg.Channels)
	}
	if cfg.Bitrate != 128000 {
		t.Errorf("audio bitrate = %d, want 128000", cfg.Bitrate)
	}
}

func TestRunVideoOnlySkipsAudioStates(t *testing.T) {
	fw := scriptedFramework(5, 0)
	s := testSettings()
	sink := newRecordingSink()

	p := New(fw, "run-videoonly", s, planFor(t, s), sink, testLogger)
	if res := p.Run(context.Background()); res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success", res.Outcome)
	}

	for _, st := range sink.states {
		if st == StateNegotiatingAudio || st == StateEncodingAudio {
			t.Errorf("entered %v for a video-only source", st)
		}
	}
	if fw.Output().AudioNegotiated {
		t.Error("audio encoder negotiated for a video-only source")
	}
}

func TestEstimateTotalFrames(t *testing.T) {
	tests := []struct {
		name string
		info media.StreamInfo
		want int64
	}{
		{"container count", media.StreamInfo{FrameCount: 2400, Duration: 10, FrameRate: 60}, 2400},
		{"duration times rate", media.StreamInfo{Duration: 10, FrameRate: 25}, 250},
		{"duration with unknown rate", media.StreamInfo{Duration: 10}, 300},
		{"nothing known", media.StreamInfo{}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTotalFrames(tt.info); got != tt.want {
				t.Errorf("EstimateTotalFrames = %d, want %d", got, tt.want)
			}
		})
	}
}
