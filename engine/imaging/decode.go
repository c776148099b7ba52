package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/emberworks/ember/engine/core"
	"github.com/emberworks/ember/engine/math"
)

/** @brief One unit of decode/encode progress, reported synchronously. */
type Progress struct {
	/** @brief Zero-based frame index. */
	Frame int
	/** @brief Overall completion in [0, 1] where the total is known. */
	Fraction float64
	/** @brief Region updated by this unit of work. */
	Dirty math.Rect
}

type ProgressFunc func(p Progress)

type DecodeOptions struct {
	/** @brief Stop after this many frames; 0 decodes everything. */
	FrameLimit int
	Progress   ProgressFunc
}

// Decode sniffs the stream format and decodes it into dst-formatted
// pixel buffers, one frame per animation step. The raw decode depth is
// 16 bits per channel when dst can exploit it, 8 otherwise.
//
// A failure on the first frame fails the whole decode. A failure on a
// later frame truncates the animation to the frames decoded so far;
// a stream only has to guarantee a valid first frame.
func Decode(ctx context.Context, r io.Reader, dst PixelFormat, opts *DecodeOptions) (*FrameCollection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if dst.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("cannot decode into pixel format '%s'", dst)
	}

	codec, pr, err := sniffCodec(r)
	if err != nil {
		return nil, err
	}
	dec, err := codec.NewDecoder(pr)
	if err != nil {
		return nil, &FormatError{Format: codec.Name(), Err: err}
	}

	depth := 8
	if dst.IsDeep() {
		depth = 16
	}

	limit := 0
	var progress ProgressFunc
	if opts != nil {
		limit = opts.FrameLimit
		progress = opts.Progress
	}

	frames := &FrameCollection{}
	for i := 0; ; i++ {
		if limit > 0 && i >= limit {
			break
		}
		// Cooperative cancellation, checked once per frame boundary.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := dec.DecodeFrame(depth)
		if errors.Is(err, ErrNoMoreFrames) {
			break
		}
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to decode first %s frame: %w", codec.Name(), err)
			}
			core.LogWarn("truncating %s animation at frame %d: %v", codec.Name(), i, err)
			break
		}

		delay := raw.Delay
		dirty := raw.Dirty
		buf, err := convertRawFrame(raw, dst)
		if err != nil {
			return nil, err
		}

		if progress != nil {
			progress(Progress{Frame: i, Fraction: decodeFraction(i, limit), Dirty: dirty})
		}
		if err := frames.Append(Frame{Buffer: buf, Delay: delay}); err != nil {
			return nil, err
		}
	}

	if frames.Len() == 0 {
		return nil, fmt.Errorf("%s stream contained no frames", codec.Name())
	}
	return frames, nil
}

// convertRawFrame turns the interleaved raw intermediate into a typed
// pixel buffer. The raw frame is released on every path.
func convertRawFrame(raw *RawFrame, dst PixelFormat) (*PixelBuffer, error) {
	defer raw.Release()

	native := raw.nativeFormat()
	if native == PixelFormatUnknown {
		return nil, fmt.Errorf("raw decode produced unsupported shape: %d channels at %d bits", raw.Channels, raw.Depth)
	}
	view, err := NewPixelBufferFrom(raw.Width, raw.Height, native, raw.Width*native.BytesPerPixel(), raw.Pix)
	if err != nil {
		return nil, err
	}
	out, err := NewPixelBuffer(raw.Width, raw.Height, dst)
	if err != nil {
		return nil, err
	}
	if err := Convert(view, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeFraction(frame, limit int) float64 {
	if limit <= 0 {
		return 1.0
	}
	f := float64(frame+1) / float64(limit)
	if f > 1.0 {
		f = 1.0
	}
	return f
}
