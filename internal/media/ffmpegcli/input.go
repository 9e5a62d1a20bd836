package ffmpegcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/alharthydev/compresspro/internal/media"
)

// audioFrameSamples is how many samples per channel each decoded audio
// frame carries.
const audioFrameSamples = 1024

// input decodes a source file through two ffmpeg child processes, one per
// stream, started on first read. Video is delivered as fixed-size yuv420p
// buffers, audio as fixed-size s16le buffers.
type input struct {
	ctx  context.Context
	fw   *Framework
	path string
	info fileInfo

	video *decodeProc
	audio *decodeProc
}

func newInput(ctx context.Context, fw *Framework, path string, info fileInfo) *input {
	return &input{ctx: ctx, fw: fw, path: path, info: info}
}

func (in *input) Video() (media.StreamInfo, bool) { return in.info.video, in.info.hasVideo }
func (in *input) Audio() (media.StreamInfo, bool) { return in.info.audio, in.info.hasAudio }

func (in *input) ReadVideoFrame() (media.Frame, error) {
	if !in.info.hasVideo {
		return media.Frame{}, io.EOF
	}
	if in.video == nil {
		w, h := in.info.video.Width, in.info.video.Height
		proc, err := startDecode(in.ctx, in.fw.ffmpegPath, w*h*3/2, in.path,
			"-map", "0:v:0",
			"-f", "rawvideo",
			"-pix_fmt", "yuv420p",
		)
		if err != nil {
			return media.Frame{}, fmt.Errorf("start video decoder: %w", err)
		}
		in.video = proc
	}

	data, pts, err := in.video.next()
	if err != nil {
		return media.Frame{}, err
	}
	return media.Frame{
		Data:   data,
		Width:  in.info.video.Width,
		Height: in.info.video.Height,
		PTS:    pts,
	}, nil
}

func (in *input) ReadAudioFrame() (media.Frame, error) {
	if !in.info.hasAudio {
		return media.Frame{}, io.EOF
	}
	if in.audio == nil {
		channels := in.info.audio.Channels
		if channels == 0 {
			channels = 2
		}
		// s16le: two bytes per sample per channel.
		frameSize := audioFrameSamples * channels * 2
		proc, err := startDecode(in.ctx, in.fw.ffmpegPath, frameSize, in.path,
			"-map", "0:a:0",
			"-f", "s16le",
			"-ac", fmt.Sprint(channels),
		)
		if err != nil {
			return media.Frame{}, fmt.Errorf("start audio decoder: %w", err)
		}
		in.audio = proc
	}

	data, pts, err := in.audio.next()
	if err != nil {
		return media.Frame{}, err
	}
	return media.Frame{Data: data, PTS: pts}, nil
}

func (in *input) Close() error {
	var errs []error
	if in.video != nil {
		errs = append(errs, in.video.stop())
	}
	if in.audio != nil {
		errs = append(errs, in.audio.stop())
	}
	return errors.Join(errs...)
}

// decodeProc wraps one decoding ffmpeg process emitting fixed-size frames
// on stdout.
type decodeProc struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    *bytes.Buffer
	frameSize int
	frames    int64
	done      bool
}

func startDecode(ctx context.Context, ffmpegPath string, frameSize int, path string, outputArgs ...string) (*decodeProc, error) {
	args := []string{"-hide_banner", "-nostats", "-loglevel", "error", "-i", path}
	args = append(args, outputArgs...)
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &decodeProc{
		cmd:       cmd,
		stdout:    stdout,
		stderr:    &stderr,
		frameSize: frameSize,
	}, nil
}

// next reads one full frame. The final short read is discarded; a decoder
// that dies mid-stream surfaces its stderr.
func (d *decodeProc) next() ([]byte, int64, error) {
	if d.done {
		return nil, 0, io.EOF
	}
	buf := make([]byte, d.frameSize)
	_, err := io.ReadFull(d.stdout, buf)
	if err != nil {
		d.done = true
		waitErr := d.cmd.Wait()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if waitErr != nil {
				return nil, 0, fmt.Errorf("decoder exited: %w: %s", waitErr, d.stderr.String())
			}
			return nil, 0, io.EOF
		}
		return nil, 0, fmt.Errorf("read decoded frame: %w", err)
	}
	pts := d.frames
	d.frames++
	return buf, pts, nil
}

func (d *decodeProc) stop() error {
	if d.done {
		return nil
	}
	d.done = true
	d.stdout.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.cmd.Wait()
	return nil
}
