package imaging

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"time"
)

/**
 * @brief A typed, contiguous pixel store. Stride may be larger than the
 * tight row size when rows are padded.
 */
type PixelBuffer struct {
	Width  int
	Height int
	Format PixelFormat
	/** @brief Row stride in bytes. */
	Stride int
	Pix    []byte
}

// NewPixelBuffer allocates a tightly packed buffer. Zero or negative
// dimensions are rejected, never clamped.
func NewPixelBuffer(width, height int, format PixelFormat) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pixel buffer dimensions must be positive, got %dx%d", width, height)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("cannot allocate pixel buffer with format '%s'", format)
	}
	stride := width * bpp
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Format: format,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}, nil
}

// NewPixelBufferFrom wraps existing storage without copying. The slice
// must hold at least stride*height bytes.
func NewPixelBufferFrom(width, height int, format PixelFormat, stride int, pix []byte) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pixel buffer dimensions must be positive, got %dx%d", width, height)
	}
	if stride < width*format.BytesPerPixel() {
		return nil, fmt.Errorf("stride %d too small for %d pixels of '%s'", stride, width, format)
	}
	if len(pix) < stride*height {
		return nil, fmt.Errorf("pixel storage too small: have %d bytes, need %d", len(pix), stride*height)
	}
	return &PixelBuffer{Width: width, Height: height, Format: format, Stride: stride, Pix: pix}, nil
}

// Row returns the tight byte slice of row y.
func (b *PixelBuffer) Row(y int) []byte {
	start := y * b.Stride
	return b.Pix[start : start+b.Width*b.Format.BytesPerPixel()]
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Format: b.Format, Stride: b.Stride, Pix: pix}
}

// PixelAt returns the pixel at (x, y) in the canonical 4-channel float
// representation (RGBA, 0..1 for unsigned formats).
func (b *PixelBuffer) PixelAt(x, y int) [4]float32 {
	off := y*b.Stride + x*b.Format.BytesPerPixel()
	return loadCanonical(b.Format, b.Pix[off:])
}

// SetPixel stores a canonical RGBA float pixel at (x, y).
func (b *PixelBuffer) SetPixel(x, y int, c [4]float32) {
	off := y*b.Stride + x*b.Format.BytesPerPixel()
	storeCanonical(b.Format, b.Pix[off:], c)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func loadCanonical(format PixelFormat, p []byte) [4]float32 {
	switch format {
	case PixelFormatAlpha8:
		return [4]float32{0, 0, 0, float32(p[0]) / 255}
	case PixelFormatGray8:
		l := float32(p[0]) / 255
		return [4]float32{l, l, l, 1}
	case PixelFormatGray16:
		l := float32(binary.BigEndian.Uint16(p)) / 65535
		return [4]float32{l, l, l, 1}
	case PixelFormatGrayAlpha8:
		l := float32(p[0]) / 255
		return [4]float32{l, l, l, float32(p[1]) / 255}
	case PixelFormatGrayAlpha16:
		l := float32(binary.BigEndian.Uint16(p)) / 65535
		a := float32(binary.BigEndian.Uint16(p[2:])) / 65535
		return [4]float32{l, l, l, a}
	case PixelFormatRGB8:
		return [4]float32{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, 1}
	case PixelFormatRGB16:
		return [4]float32{
			float32(binary.BigEndian.Uint16(p)) / 65535,
			float32(binary.BigEndian.Uint16(p[2:])) / 65535,
			float32(binary.BigEndian.Uint16(p[4:])) / 65535,
			1,
		}
	case PixelFormatRGBA8:
		return [4]float32{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
	case PixelFormatBGRA8:
		return [4]float32{float32(p[2]) / 255, float32(p[1]) / 255, float32(p[0]) / 255, float32(p[3]) / 255}
	case PixelFormatRGBA16:
		return [4]float32{
			float32(binary.BigEndian.Uint16(p)) / 65535,
			float32(binary.BigEndian.Uint16(p[2:])) / 65535,
			float32(binary.BigEndian.Uint16(p[4:])) / 65535,
			float32(binary.BigEndian.Uint16(p[6:])) / 65535,
		}
	case PixelFormatR32F:
		r := gomath.Float32frombits(binary.LittleEndian.Uint32(p))
		return [4]float32{r, 0, 0, 1}
	case PixelFormatRGBA32F:
		return [4]float32{
			gomath.Float32frombits(binary.LittleEndian.Uint32(p)),
			gomath.Float32frombits(binary.LittleEndian.Uint32(p[4:])),
			gomath.Float32frombits(binary.LittleEndian.Uint32(p[8:])),
			gomath.Float32frombits(binary.LittleEndian.Uint32(p[12:])),
		}
	}
	return [4]float32{}
}

func storeCanonical(format PixelFormat, p []byte, c [4]float32) {
	switch format {
	case PixelFormatAlpha8:
		p[0] = uint8(clamp01(c[3])*255 + 0.5)
	case PixelFormatGray8:
		p[0] = uint8(clamp01(luminance(c))*255 + 0.5)
	case PixelFormatGray16:
		binary.BigEndian.PutUint16(p, uint16(clamp01(luminance(c))*65535+0.5))
	case PixelFormatGrayAlpha8:
		p[0] = uint8(clamp01(luminance(c))*255 + 0.5)
		p[1] = uint8(clamp01(c[3])*255 + 0.5)
	case PixelFormatGrayAlpha16:
		binary.BigEndian.PutUint16(p, uint16(clamp01(luminance(c))*65535+0.5))
		binary.BigEndian.PutUint16(p[2:], uint16(clamp01(c[3])*65535+0.5))
	case PixelFormatRGB8:
		p[0] = uint8(clamp01(c[0])*255 + 0.5)
		p[1] = uint8(clamp01(c[1])*255 + 0.5)
		p[2] = uint8(clamp01(c[2])*255 + 0.5)
	case PixelFormatRGB16:
		binary.BigEndian.PutUint16(p, uint16(clamp01(c[0])*65535+0.5))
		binary.BigEndian.PutUint16(p[2:], uint16(clamp01(c[1])*65535+0.5))
		binary.BigEndian.PutUint16(p[4:], uint16(clamp01(c[2])*65535+0.5))
	case PixelFormatRGBA8:
		p[0] = uint8(clamp01(c[0])*255 + 0.5)
		p[1] = uint8(clamp01(c[1])*255 + 0.5)
		p[2] = uint8(clamp01(c[2])*255 + 0.5)
		p[3] = uint8(clamp01(c[3])*255 + 0.5)
	case PixelFormatBGRA8:
		p[0] = uint8(clamp01(c[2])*255 + 0.5)
		p[1] = uint8(clamp01(c[1])*255 + 0.5)
		p[2] = uint8(clamp01(c[0])*255 + 0.5)
		p[3] = uint8(clamp01(c[3])*255 + 0.5)
	case PixelFormatRGBA16:
		binary.BigEndian.PutUint16(p, uint16(clamp01(c[0])*65535+0.5))
		binary.BigEndian.PutUint16(p[2:], uint16(clamp01(c[1])*65535+0.5))
		binary.BigEndian.PutUint16(p[4:], uint16(clamp01(c[2])*65535+0.5))
		binary.BigEndian.PutUint16(p[6:], uint16(clamp01(c[3])*65535+0.5))
	case PixelFormatR32F:
		binary.LittleEndian.PutUint32(p, gomath.Float32bits(c[0]))
	case PixelFormatRGBA32F:
		binary.LittleEndian.PutUint32(p, gomath.Float32bits(c[0]))
		binary.LittleEndian.PutUint32(p[4:], gomath.Float32bits(c[1]))
		binary.LittleEndian.PutUint32(p[8:], gomath.Float32bits(c[2]))
		binary.LittleEndian.PutUint32(p[12:], gomath.Float32bits(c[3]))
	}
}

// Rec. 601 luma weights.
func luminance(c [4]float32) float32 {
	return 0.299*c[0] + 0.587*c[1] + 0.114*c[2]
}

/** @brief One decoded frame plus its display delay (zero for stills). */
type Frame struct {
	Buffer *PixelBuffer
	Delay  time.Duration
}

/** @brief An ordered frame sequence sharing one pixel format and size. */
type FrameCollection struct {
	Frames []Frame
}

// Append adds a frame, enforcing that all frames share the format and
// dimensions of the first.
func (fc *FrameCollection) Append(f Frame) error {
	if f.Buffer == nil {
		return fmt.Errorf("cannot append frame without pixel data")
	}
	if len(fc.Frames) > 0 {
		first := fc.Frames[0].Buffer
		if f.Buffer.Format != first.Format {
			return fmt.Errorf("frame format '%s' does not match collection format '%s'", f.Buffer.Format, first.Format)
		}
		if f.Buffer.Width != first.Width || f.Buffer.Height != first.Height {
			return fmt.Errorf("frame size %dx%d does not match collection size %dx%d",
				f.Buffer.Width, f.Buffer.Height, first.Width, first.Height)
		}
	}
	fc.Frames = append(fc.Frames, f)
	return nil
}

func (fc *FrameCollection) Len() int {
	return len(fc.Frames)
}
