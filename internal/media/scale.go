package media

import "fmt"

// Scale resizes a yuv420p frame to the target dimensions using nearest
// neighbor sampling. Returns the frame unchanged when it already matches.
//
// yuv420p layout: a full-resolution Y plane followed by quarter-resolution
// U and V planes. Target dimensions are expected to be even; the resolver's
// resolution table only produces even sizes.
func Scale(f Frame, width, height int) (Frame, error) {
	if f.Width == width && f.Height == height {
		return f, nil
	}
	if f.Width <= 0 || f.Height <= 0 || width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("scale: invalid dimensions %dx%d -> %dx%d", f.Width, f.Height, width, height)
	}
	want := f.Width * f.Height * 3 / 2
	if len(f.Data) != want {
		return Frame{}, fmt.Errorf("scale: frame has %d bytes, want %d for %dx%d yuv420p", len(f.Data), want, f.Width, f.Height)
	}

	out := Frame{
		Data:   make([]byte, width*height*3/2),
		Width:  width,
		Height: height,
		PTS:    f.PTS,
	}

	scalePlane(out.Data[:width*height], width, height, f.Data[:f.Width*f.Height], f.Width, f.Height)

	srcCW, srcCH := f.Width/2, f.Height/2
	dstCW, dstCH := width/2, height/2
	srcY := f.Width * f.Height
	dstY := width * height
	scalePlane(out.Data[dstY:dstY+dstCW*dstCH], dstCW, dstCH, f.Data[srcY:srcY+srcCW*srcCH], srcCW, srcCH)
	scalePlane(out.Data[dstY+dstCW*dstCH:], dstCW, dstCH, f.Data[srcY+srcCW*srcCH:], srcCW, srcCH)

	return out, nil
}

func scalePlane(dst []byte, dw, dh int, src []byte, sw, sh int) {
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		srcRow := src[sy*sw:]
		dstRow := dst[y*dw:]
		for x := 0; x < dw; x++ {
			dstRow[x] = srcRow[x*sw/dw]
		}
	}
}
