package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// modelChannels maps a color model onto the interleaved channel count a
// raw decode of that model produces.
func modelChannels(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.YCbCrModel, color.CMYKModel:
		return 3
	}
	return 4
}

func modelBits(m color.Model) int {
	switch m {
	case color.Gray16Model, color.NRGBA64Model, color.RGBA64Model:
		return 16
	}
	return 8
}

// imageToRaw flattens a decoded image into an interleaved raw frame at
// the requested channel count and bit depth.
func imageToRaw(img image.Image, channels, depth int) *RawFrame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	raw := AcquireRawFrame(w, h, channels, depth)

	// Fast path: 8-bit grayscale source into a 1-channel frame.
	if gray, ok := img.(*image.Gray); ok && channels == 1 && depth == 8 {
		for y := 0; y < h; y++ {
			copy(raw.Pix[y*w:], gray.Pix[y*gray.Stride:y*gray.Stride+w])
		}
		return raw
	}
	// Fast path: non-premultiplied RGBA into a 4-channel 8-bit frame.
	if nrgba, ok := img.(*image.NRGBA); ok && channels == 4 && depth == 8 {
		for y := 0; y < h; y++ {
			copy(raw.Pix[y*w*4:], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+w*4])
		}
		return raw
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			samples := [4]uint16{c.R, c.G, c.B, c.A}
			switch channels {
			case 1:
				writeSample(raw, &i, depth, luma16(c))
			case 2:
				writeSample(raw, &i, depth, luma16(c))
				writeSample(raw, &i, depth, c.A)
			case 3:
				for s := 0; s < 3; s++ {
					writeSample(raw, &i, depth, samples[s])
				}
			default:
				for s := 0; s < 4; s++ {
					writeSample(raw, &i, depth, samples[s])
				}
			}
		}
	}
	return raw
}

func luma16(c color.NRGBA64) uint16 {
	return uint16(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B))
}

func writeSample(raw *RawFrame, i *int, depth int, v uint16) {
	if depth == 16 {
		raw.Pix[*i] = byte(v >> 8)
		raw.Pix[*i+1] = byte(v)
		*i += 2
		return
	}
	raw.Pix[*i] = byte(v >> 8)
	*i++
}

// bufferToImage views or copies a pixel buffer as a stdlib image for
// the encoder side of the codecs.
func bufferToImage(b *PixelBuffer) (image.Image, error) {
	rect := image.Rect(0, 0, b.Width, b.Height)
	switch b.Format {
	case PixelFormatRGBA8:
		return &image.NRGBA{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case PixelFormatGray8:
		return &image.Gray{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case PixelFormatGray16:
		return &image.Gray16{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case PixelFormatRGBA16:
		return &image.NRGBA64{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	}
	// Everything else goes through an RGBA8 conversion copy.
	tmp, err := NewPixelBuffer(b.Width, b.Height, PixelFormatRGBA8)
	if err != nil {
		return nil, err
	}
	if err := Convert(b, tmp); err != nil {
		return nil, fmt.Errorf("failed to convert '%s' buffer for encoding: %w", b.Format, err)
	}
	return &image.NRGBA{Pix: tmp.Pix, Stride: tmp.Stride, Rect: rect}, nil
}
