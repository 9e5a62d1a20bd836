package media

import (
	"bytes"
	"testing"
)

func solidFrame(w, h int, y, u, v byte) Frame {
	data := make([]byte, w*h*3/2)
	for i := 0; i < w*h; i++ {
		data[i] = y
	}
	cs := w / 2 * h / 2
	for i := 0; i < cs; i++ {
		data[w*h+i] = u
		data[w*h+cs+i] = v
	}
	return Frame{Data: data, Width: w, Height: h, PTS: 7}
}

func TestScaleNoopWhenMatching(t *testing.T) {
	f := solidFrame(16, 8, 10, 20, 30)
	got, err := Scale(f, 16, 8)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if !bytes.Equal(got.Data, f.Data) {
		t.Error("matching dimensions should return the frame unchanged")
	}
}

func TestScaleDownPreservesSolidColor(t *testing.T) {
	f := solidFrame(32, 16, 100, 110, 120)
	got, err := Scale(f, 16, 8)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if got.Width != 16 || got.Height != 8 {
		t.Fatalf("dimensions = %dx%d, want 16x8", got.Width, got.Height)
	}
	if len(got.Data) != 16*8*3/2 {
		t.Fatalf("data length = %d, want %d", len(got.Data), 16*8*3/2)
	}
	for i := 0; i < 16*8; i++ {
		if got.Data[i] != 100 {
			t.Fatalf("Y[%d] = %d, want 100", i, got.Data[i])
		}
	}
	cs := 8 * 4
	for i := 0; i < cs; i++ {
		if got.Data[16*8+i] != 110 {
			t.Fatalf("U[%d] = %d, want 110", i, got.Data[16*8+i])
		}
		if got.Data[16*8+cs+i] != 120 {
			t.Fatalf("V[%d] = %d, want 120", i, got.Data[16*8+cs+i])
		}
	}
	if got.PTS != 7 {
		t.Errorf("PTS = %d, want 7", got.PTS)
	}
}

func TestScaleUp(t *testing.T) {
	f := solidFrame(8, 4, 50, 60, 70)
	got, err := Scale(f, 16, 8)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if got.Width != 16 || got.Height != 8 || len(got.Data) != 16*8*3/2 {
		t.Fatalf("got %dx%d len %d", got.Width, got.Height, len(got.Data))
	}
	if got.Data[0] != 50 || got.Data[16*8-1] != 50 {
		t.Error("Y plane corners not preserved")
	}
}

func TestScaleRejectsBadBuffer(t *testing.T) {
	f := Frame{Data: make([]byte, 10), Width: 16, Height: 8}
	if _, err := Scale(f, 8, 4); err == nil {
		t.Error("expected error for undersized buffer")
	}
}

func TestScaleRejectsBadDimensions(t *testing.T) {
	f := solidFrame(16, 8, 0, 0, 0)
	if _, err := Scale(f, 0, 8); err == nil {
		t.Error("expected error for zero target width")
	}
}
