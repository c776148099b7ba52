package imaging

import (
	"sync"
	"time"

	"github.com/emberworks/ember/engine/math"
)

/**
 * @brief The interleaved-channel intermediate produced by a codec's raw
 * decode step. Storage is pooled: every acquired frame must be released
 * exactly once, on every exit path.
 */
type RawFrame struct {
	Width    int
	Height   int
	/** @brief Interleaved channel count: 1, 2, 3 or 4. */
	Channels int
	/** @brief Bits per channel: 8 or 16. 16-bit samples are big-endian. */
	Depth int
	Pix    []byte
	/** @brief Display delay for animated sources. */
	Delay time.Duration
	/** @brief Region of the full image this frame updates. */
	Dirty math.Rect

	released bool
}

var rawFramePool = sync.Pool{
	New: func() interface{} { return &RawFrame{} },
}

// AcquireRawFrame fetches a pooled frame sized for the given shape.
func AcquireRawFrame(width, height, channels, depth int) *RawFrame {
	f := rawFramePool.Get().(*RawFrame)
	size := width * height * channels * depth / 8
	if cap(f.Pix) < size {
		f.Pix = make([]byte, size)
	}
	f.Pix = f.Pix[:size]
	f.Width = width
	f.Height = height
	f.Channels = channels
	f.Depth = depth
	f.Delay = 0
	f.Dirty = math.Rect{X: 0, Y: 0, Width: int32(width), Height: int32(height)}
	f.released = false
	return f
}

// Release returns the frame's storage to the pool. Double release is a
// no-op so error paths can release unconditionally.
func (f *RawFrame) Release() {
	if f == nil || f.released {
		return
	}
	f.released = true
	rawFramePool.Put(f)
}

// nativeFormat maps the frame's channel count and depth onto the pixel
// format with the same memory layout, allowing a zero-copy view.
func (f *RawFrame) nativeFormat() PixelFormat {
	switch f.Channels {
	case 1:
		if f.Depth == 16 {
			return PixelFormatGray16
		}
		return PixelFormatGray8
	case 2:
		if f.Depth == 16 {
			return PixelFormatGrayAlpha16
		}
		return PixelFormatGrayAlpha8
	case 3:
		if f.Depth == 16 {
			return PixelFormatRGB16
		}
		return PixelFormatRGB8
	case 4:
		if f.Depth == 16 {
			return PixelFormatRGBA16
		}
		return PixelFormatRGBA8
	}
	return PixelFormatUnknown
}
