// Package media defines the ports the compression pipeline runs against.
// The pipeline only sees these interfaces; the ffmpegcli package provides
// the production adapter and mediatest provides scripted fakes.
package media

import "context"

// StreamKind identifies which output stream a packet belongs to.
type StreamKind int

const (
	StreamVideo StreamKind = iota
	StreamAudio
)

func (k StreamKind) String() string {
	switch k {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// StreamInfo describes one elementary stream of an input container.
type StreamInfo struct {
	// Video fields.
	Width     int
	Height    int
	FrameRate float64

	// FrameCount is the container-reported frame total, 0 when the
	// container does not carry one.
	FrameCount int64

	// Duration is the stream duration in seconds, 0 when unknown.
	Duration float64

	// Audio fields.
	SampleRate int
	Channels   int
}

// Frame is one decoded frame. Video frames carry planar yuv420p data of
// exactly Width*Height*3/2 bytes; audio frames carry interleaved samples
// and leave Width and Height zero.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	PTS    int64
}

// Packet is one encoded packet ready for muxing.
type Packet struct {
	Data   []byte
	Stream StreamKind
}

// Framework opens containers. It is the single entry point the pipeline
// receives.
type Framework interface {
	OpenInput(ctx context.Context, path string) (Input, error)
	OpenOutput(ctx context.Context, path string) (Output, error)
}

// Input is an opened source container. The pipeline drains video first and
// audio second; implementations may rely on that order.
type Input interface {
	// Video returns the primary video stream, false when the container
	// has none.
	Video() (StreamInfo, bool)

	// Audio returns the primary audio stream, false when absent.
	Audio() (StreamInfo, bool)

	// ReadVideoFrame returns the next decoded video frame. io.EOF marks
	// end of stream.
	ReadVideoFrame() (Frame, error)

	// ReadAudioFrame returns the next decoded audio frame. io.EOF marks
	// end of stream.
	ReadAudioFrame() (Frame, error)

	Close() error
}

// VideoEncoderConfig carries everything an output needs to open one video
// encoder candidate.
type VideoEncoderConfig struct {
	Encoder   string
	Width     int
	Height    int
	FrameRate float64

	// Bitrate in bits per second, 0 in constant-quality mode.
	Bitrate int64

	// Options are encoder-private options such as crf or preset.
	Options map[string]string

	// Threads is the encoder thread count, 0 for automatic.
	Threads int
}

// AudioEncoderConfig configures the single audio encoder attempt.
type AudioEncoderConfig struct {
	Encoder    string
	Bitrate    int64
	SampleRate int
	Channels   int
}

// Output is an opened destination container.
type Output interface {
	// NegotiateVideo tries to open one encoder candidate. An error marks
	// the candidate unusable and the caller moves to the next one.
	NegotiateVideo(cfg VideoEncoderConfig) (VideoEncoder, error)

	// NegotiateAudio opens the audio encoder. Errors are terminal; there
	// is no audio fallback chain.
	NegotiateAudio(cfg AudioEncoderConfig) (AudioEncoder, error)

	// WritePacket muxes one packet. Packets are written in production
	// order, not interleaved by timestamp.
	WritePacket(pkt Packet) error

	Close() error
}

// VideoEncoder encodes frames into packets.
type VideoEncoder interface {
	// Encode submits one frame and returns any packets the encoder
	// produced. Encoders with lookahead may return none.
	Encode(f Frame) ([]Packet, error)

	// Flush drains buffered packets after the last frame.
	Flush() ([]Packet, error)
}

// AudioEncoder mirrors VideoEncoder for the audio stream.
type AudioEncoder interface {
	Encode(f Frame) ([]Packet, error)
	Flush() ([]Packet, error)
}
