package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"testing"
)

var gifTestPalette = color.Palette{
	color.RGBA{0, 0, 0, 0},
	color.RGBA{0xFF, 0, 0, 0xFF},
	color.RGBA{0, 0, 0xFF, 0xFF},
}

func palettedFrame(r image.Rectangle, index uint8) *image.Paletted {
	f := image.NewPaletted(r, gifTestPalette)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			f.SetColorIndex(x, y, index)
		}
	}
	return f
}

func encodeGIF(t *testing.T, g *gif.GIF) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// A frame with background disposal must be cleared from the canvas
// before the next frame composes, not left underneath it.
func TestGIFDisposalBackground(t *testing.T) {
	t.Parallel()

	// Frame 0 fills the 2x1 canvas red and disposes to background;
	// frame 1 paints only pixel (0,0) blue.
	stream := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			palettedFrame(image.Rect(0, 0, 2, 1), 1),
			palettedFrame(image.Rect(0, 0, 1, 1), 2),
		},
		Delay:    []int{0, 0},
		Disposal: []byte{gif.DisposalBackground, gif.DisposalNone},
	})

	fc, err := Decode(context.Background(), bytes.NewReader(stream), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Len() != 2 {
		t.Fatalf("frame count = %d, want 2", fc.Len())
	}

	first := fc.Frames[0].Buffer.Pix
	if first[0] != 0xFF || first[4] != 0xFF {
		t.Errorf("first frame should be all red, got %v", first)
	}

	second := fc.Frames[1].Buffer.Pix
	if second[2] != 0xFF || second[3] != 0xFF {
		t.Errorf("pixel (0,0) of second frame should be blue, got %v", second[:4])
	}
	if second[7] != 0 {
		t.Errorf("pixel (1,0) should be cleared to transparent, got alpha %d", second[7])
	}
}

// Previous disposal restores the covered region after the frame.
func TestGIFDisposalPrevious(t *testing.T) {
	t.Parallel()

	// Frame 0 fills the canvas red; frame 1 paints pixel (0,0) blue and
	// disposes to previous; frame 2 touches only pixel (1,0).
	stream := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			palettedFrame(image.Rect(0, 0, 2, 1), 1),
			palettedFrame(image.Rect(0, 0, 1, 1), 2),
			palettedFrame(image.Rect(1, 0, 2, 1), 1),
		},
		Delay:    []int{0, 0, 0},
		Disposal: []byte{gif.DisposalNone, gif.DisposalPrevious, gif.DisposalNone},
	})

	fc, err := Decode(context.Background(), bytes.NewReader(stream), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Len() != 3 {
		t.Fatalf("frame count = %d, want 3", fc.Len())
	}

	second := fc.Frames[1].Buffer.Pix
	if second[2] != 0xFF {
		t.Errorf("pixel (0,0) of second frame should be blue, got %v", second[:4])
	}

	third := fc.Frames[2].Buffer.Pix
	if third[0] != 0xFF || third[2] != 0 {
		t.Errorf("pixel (0,0) of third frame should be restored to red, got %v", third[:4])
	}
	if third[4] != 0xFF {
		t.Errorf("pixel (1,0) of third frame should be red, got %v", third[4:8])
	}
}
