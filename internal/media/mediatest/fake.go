// Package mediatest provides scripted in-memory implementations of the
// media ports for pipeline tests.
package mediatest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/alharthydev/compresspro/internal/media"
)

// Framework is a scripted media.Framework. Configure it before the run and
// inspect it afterwards; all mutating methods are safe for the single
// pipeline goroutine plus the test goroutine.
type Framework struct {
	mu sync.Mutex

	// Input script.
	OpenInputErr error
	VideoInfo    media.StreamInfo
	HasVideo     bool
	AudioInfo    media.StreamInfo
	HasAudio     bool
	VideoFrames  []media.Frame
	AudioFrames  []media.Frame

	// VideoReadErr, when set, is returned after FailAfterVideoFrames
	// frames have been read.
	VideoReadErr         error
	FailAfterVideoFrames int

	// Output script.
	OpenOutputErr error

	// RejectEncoders lists candidate names whose negotiation fails.
	RejectEncoders map[string]error

	// AudioNegotiateErr fails the audio encoder negotiation.
	AudioNegotiateErr error

	// EncodeErr fails video encoding after EncodeErrAfter frames.
	EncodeErr      error
	EncodeErrAfter int

	// VideoFlushErr and AudioFlushErr are returned by the matching
	// encoder's Flush, alongside its trailing packet.
	VideoFlushErr error
	AudioFlushErr error

	// PacketsPerFrame is how many packets each Encode call emits
	// (default 1). Flush always emits one trailing packet per encoder.
	PacketsPerFrame int

	input  *Input
	output *Output
}

// Input returns the opened input, nil before OpenInput.
func (f *Framework) Input() *Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// Output returns the opened output, nil before OpenOutput.
func (f *Framework) Output() *Output {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.output
}

func (f *Framework) OpenInput(_ context.Context, path string) (media.Input, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenInputErr != nil {
		return nil, f.OpenInputErr
	}
	f.input = &Input{fw: f, Path: path}
	return f.input, nil
}

func (f *Framework) OpenOutput(_ context.Context, path string) (media.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenOutputErr != nil {
		return nil, f.OpenOutputErr
	}
	f.output = &Output{fw: f, Path: path}
	return f.output, nil
}

// Input is the scripted source container.
type Input struct {
	fw   *Framework
	Path string

	mu         sync.Mutex
	videoPos   int
	audioPos   int
	CloseCount int
}

func (in *Input) Video() (media.StreamInfo, bool) { return in.fw.VideoInfo, in.fw.HasVideo }
func (in *Input) Audio() (media.StreamInfo, bool) { return in.fw.AudioInfo, in.fw.HasAudio }

func (in *Input) ReadVideoFrame() (media.Frame, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fw.VideoReadErr != nil && in.videoPos >= in.fw.FailAfterVideoFrames {
		return media.Frame{}, in.fw.VideoReadErr
	}
	if in.videoPos >= len(in.fw.VideoFrames) {
		return media.Frame{}, io.EOF
	}
	f := in.fw.VideoFrames[in.videoPos]
	in.videoPos++
	return f, nil
}

func (in *Input) ReadAudioFrame() (media.Frame, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.audioPos >= len(in.fw.AudioFrames) {
		return media.Frame{}, io.EOF
	}
	f := in.fw.AudioFrames[in.audioPos]
	in.audioPos++
	return f, nil
}

func (in *Input) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.CloseCount++
	return nil
}

// Output is the scripted destination container. It records negotiation
// attempts and every muxed packet in order.
type Output struct {
	fw   *Framework
	Path string

	mu              sync.Mutex
	VideoAttempts   []string
	VideoConfig     media.VideoEncoderConfig
	AudioConfig     media.AudioEncoderConfig
	AudioNegotiated bool
	Packets         []media.Packet
	CloseCount      int
}

func (out *Output) NegotiateVideo(cfg media.VideoEncoderConfig) (media.VideoEncoder, error) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.VideoAttempts = append(out.VideoAttempts, cfg.Encoder)
	out.VideoConfig = cfg
	if err, ok := out.fw.RejectEncoders[cfg.Encoder]; ok {
		return nil, err
	}
	return &encoder{fw: out.fw, kind: media.StreamVideo, name: cfg.Encoder}, nil
}

func (out *Output) NegotiateAudio(cfg media.AudioEncoderConfig) (media.AudioEncoder, error) {
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.fw.AudioNegotiateErr != nil {
		return nil, out.fw.AudioNegotiateErr
	}
	out.AudioNegotiated = true
	out.AudioConfig = cfg
	return &encoder{fw: out.fw, kind: media.StreamAudio, name: cfg.Encoder}, nil
}

func (out *Output) WritePacket(pkt media.Packet) error {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.Packets = append(out.Packets, pkt)
	return nil
}

func (out *Output) Close() error {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.CloseCount++
	return nil
}

// StreamOrder returns the kind of each muxed packet in write order.
func (out *Output) StreamOrder() []media.StreamKind {
	out.mu.Lock()
	defer out.mu.Unlock()
	kinds := make([]media.StreamKind, len(out.Packets))
	for i, p := range out.Packets {
		kinds[i] = p.Stream
	}
	return kinds
}

type encoder struct {
	fw      *Framework
	kind    media.StreamKind
	name    string
	encoded int
}

func (e *encoder) Encode(f media.Frame) ([]media.Packet, error) {
	if e.kind == media.StreamVideo && e.fw.EncodeErr != nil && e.encoded >= e.fw.EncodeErrAfter {
		return nil, e.fw.EncodeErr
	}
	e.encoded++
	n := e.fw.PacketsPerFrame
	if n <= 0 {
		n = 1
	}
	pkts := make([]media.Packet, n)
	for i := range pkts {
		pkts[i] = media.Packet{
			Data:   []byte(fmt.Sprintf("%s/%s/%d", e.name, e.kind, e.encoded)),
			Stream: e.kind,
		}
	}
	return pkts, nil
}

func (e *encoder) Flush() ([]media.Packet, error) {
	err := e.fw.VideoFlushErr
	if e.kind == media.StreamAudio {
		err = e.fw.AudioFlushErr
	}
	return []media.Packet{{
		Data:   []byte(fmt.Sprintf("%s/%s/flush", e.name, e.kind)),
		Stream: e.kind,
	}}, err
}

// Frames builds n yuv420p frames of the given size with sequential PTS.
func Frames(n, w, h int) []media.Frame {
	out := make([]media.Frame, n)
	for i := range out {
		out[i] = media.Frame{
			Data:   make([]byte, w*h*3/2),
			Width:  w,
			Height: h,
			PTS:    int64(i),
		}
	}
	return out
}

// AudioFrames builds n audio frames with sequential PTS.
func AudioFrames(n int) []media.Frame {
	out := make([]media.Frame, n)
	for i := range out {
		out[i] = media.Frame{Data: []byte{0, 0, 0, 0}, PTS: int64(i)}
	}
	return out
}
