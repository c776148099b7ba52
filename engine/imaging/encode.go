package imaging

import (
	"context"
	"fmt"
	"io"

	"github.com/emberworks/ember/engine/math"
)

// Encode writes a frame collection to w using the named codec.
// Cancellation is checked once per frame; progress is reported
// synchronously after each frame is handed to the encoder.
func Encode(ctx context.Context, frames *FrameCollection, w io.Writer, format string, opts *EncodeOptions, progress ProgressFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if frames == nil || frames.Len() == 0 {
		return fmt.Errorf("cannot encode an empty frame collection")
	}

	codec, err := CodecByName(format)
	if err != nil {
		return err
	}
	enc, err := codec.NewEncoder(w, opts)
	if err != nil {
		return err
	}

	total := frames.Len()
	for i, f := range frames.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.WriteFrame(f); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
		if progress != nil {
			progress(Progress{
				Frame:    i,
				Fraction: float64(i+1) / float64(total),
				Dirty:    math.Rect{Width: int32(f.Buffer.Width), Height: int32(f.Buffer.Height)},
			})
		}
	}
	return enc.Close()
}
