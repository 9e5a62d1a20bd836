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

// packetChunk is the read size for encoder stdout. Chunk boundaries carry
// no meaning; packets are concatenated verbatim on mux.
const packetChunk = 32 * 1024

// procEncoder is a long-lived ffmpeg process fed raw frames on stdin and
// emitting an MPEG-TS elementary stream on stdout. A reader goroutine
// forwards stdout chunks so Encode never blocks on a full pipe.
type procEncoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	kind   media.StreamKind

	packets chan []byte
	readErr error
	flushed bool
}

func startEncoder(ctx context.Context, ffmpegPath string, kind media.StreamKind, args []string) (*procEncoder, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	e := &procEncoder{
		cmd:     cmd,
		stdin:   stdin,
		stderr:  &stderr,
		kind:    kind,
		packets: make(chan []byte, 64),
	}
	go e.read(stdout)
	return e, nil
}

func (e *procEncoder) read(stdout io.Reader) {
	defer close(e.packets)
	for {
		buf := make([]byte, packetChunk)
		n, err := stdout.Read(buf)
		if n > 0 {
			e.packets <- buf[:n]
		}
		if err != nil {
			return
		}
	}
}

// Encode submits one raw frame and returns whatever packets the encoder
// has produced so far.
func (e *procEncoder) Encode(f media.Frame) ([]media.Packet, error) {
	if e.flushed {
		return nil, errors.New("encoder already flushed")
	}
	if _, err := e.stdin.Write(f.Data); err != nil {
		e.cmd.Wait()
		return nil, fmt.Errorf("feed encoder: %w: %s", err, e.stderr.String())
	}
	return e.drain(false), nil
}

// Flush closes stdin, waits for the process and returns the remaining
// packets.
func (e *procEncoder) Flush() ([]media.Packet, error) {
	if e.flushed {
		return nil, nil
	}
	e.flushed = true
	e.stdin.Close()
	waitErr := e.cmd.Wait()
	pkts := e.drain(true)
	if waitErr != nil {
		return pkts, fmt.Errorf("encoder exited: %w: %s", waitErr, e.stderr.String())
	}
	return pkts, nil
}

// drain collects queued packets. With wait set it reads until the channel
// closes; otherwise it returns whatever is immediately available.
func (e *procEncoder) drain(wait bool) []media.Packet {
	var pkts []media.Packet
	for {
		if wait {
			data, ok := <-e.packets
			if !ok {
				return pkts
			}
			pkts = append(pkts, media.Packet{Data: data, Stream: e.kind})
			continue
		}
		select {
		case data, ok := <-e.packets:
			if !ok {
				return pkts
			}
			pkts = append(pkts, media.Packet{Data: data, Stream: e.kind})
		default:
			return pkts
		}
	}
}

func (e *procEncoder) stop() {
	if e.flushed {
		return
	}
	e.flushed = true
	e.stdin.Close()
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd.Wait()
}
