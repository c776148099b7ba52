package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func encodeFrames(t *testing.T, format string, frames ...*PixelBuffer) []byte {
	t.Helper()
	fc := &FrameCollection{}
	for _, b := range frames {
		if err := fc.Append(Frame{Buffer: b, Delay: 100 * time.Millisecond}); err != nil {
			t.Fatal(err)
		}
	}
	var out bytes.Buffer
	if err := Encode(context.Background(), fc, &out, format, nil, nil); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func gradient(t *testing.T, w, h int, format PixelFormat) *PixelBuffer {
	t.Helper()
	buf, err := NewPixelBuffer(w, h, format)
	if err != nil {
		t.Fatal(err)
	}
	for i := range buf.Pix {
		buf.Pix[i] = byte(i * 5)
	}
	// Full alpha keeps lossless round trips comparable.
	if format == PixelFormatRGBA8 {
		for i := 3; i < len(buf.Pix); i += 4 {
			buf.Pix[i] = 0xFF
		}
	}
	return buf
}

func TestPNGRoundTripLossless(t *testing.T) {
	t.Parallel()

	src := gradient(t, 8, 6, PixelFormatRGBA8)
	data := encodeFrames(t, "png", src)

	fc, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Len() != 1 {
		t.Fatalf("decoded %d frames", fc.Len())
	}
	got := fc.Frames[0].Buffer
	if got.Width != 8 || got.Height != 6 {
		t.Fatalf("decoded %dx%d", got.Width, got.Height)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Error("png round trip is not pixel-equal")
	}
}

func TestPNGDeepRoundTrip(t *testing.T) {
	t.Parallel()

	src, err := NewPixelBuffer(4, 4, PixelFormatGray16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range src.Pix {
		src.Pix[i] = byte(i * 9)
	}
	data := encodeFrames(t, "png", src)

	fc, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatGray16, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := fc.Frames[0].Buffer
	if got.Format != PixelFormatGray16 {
		t.Fatalf("decoded format %s", got.Format)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Error("16-bit png round trip lost precision")
	}
}

func TestTGARoundTripLossless(t *testing.T) {
	t.Parallel()

	src := gradient(t, 5, 7, PixelFormatRGBA8)
	data := encodeFrames(t, "tga", src)

	fc, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(fc.Frames[0].Buffer.Pix, src.Pix) {
		t.Error("tga round trip is not pixel-equal")
	}
}

func TestBMPRoundTripShape(t *testing.T) {
	t.Parallel()

	src := gradient(t, 6, 3, PixelFormatRGBA8)
	data := encodeFrames(t, "bmp", src)

	fc, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := fc.Frames[0].Buffer
	if got.Width != 6 || got.Height != 3 {
		t.Errorf("decoded %dx%d", got.Width, got.Height)
	}
}

func TestJPEGRoundTripShape(t *testing.T) {
	t.Parallel()

	src := gradient(t, 16, 16, PixelFormatRGBA8)
	data := encodeFrames(t, "jpeg", src)

	fc, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := fc.Frames[0].Buffer
	// Lossy format: shape and frame count only.
	if got.Width != 16 || got.Height != 16 || fc.Len() != 1 {
		t.Errorf("decoded %d frames of %dx%d", fc.Len(), got.Width, got.Height)
	}
}

func TestGIFAnimationAndFrameLimit(t *testing.T) {
	t.Parallel()

	a := gradient(t, 8, 8, PixelFormatRGBA8)
	b := gradient(t, 8, 8, PixelFormatRGBA8)
	for i := range b.Pix {
		b.Pix[i] = 255 - b.Pix[i]
	}
	for i := 3; i < len(b.Pix); i += 4 {
		b.Pix[i] = 0xFF
	}
	data := encodeFrames(t, "gif", a, b)

	fc, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Len() != 2 {
		t.Fatalf("decoded %d frames, want 2", fc.Len())
	}
	if fc.Frames[0].Delay != 100*time.Millisecond {
		t.Errorf("frame delay = %v", fc.Frames[0].Delay)
	}

	limited, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8,
		&DecodeOptions{FrameLimit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if limited.Len() != 1 {
		t.Errorf("frame limit 1 decoded %d frames", limited.Len())
	}
}

func TestDecodeProgressCallback(t *testing.T) {
	t.Parallel()

	src := gradient(t, 4, 4, PixelFormatRGBA8)
	data := encodeFrames(t, "png", src)

	var calls []Progress
	_, err := Decode(context.Background(), bytes.NewReader(data), PixelFormatRGBA8,
		&DecodeOptions{Progress: func(p Progress) { calls = append(calls, p) }})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Fatalf("progress called %d times", len(calls))
	}
	if calls[0].Frame != 0 || calls[0].Fraction != 1.0 {
		t.Errorf("progress = %+v", calls[0])
	}
}

func TestDecodeCancellation(t *testing.T) {
	t.Parallel()

	src := gradient(t, 4, 4, PixelFormatRGBA8)
	data := encodeFrames(t, "png", src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Decode(ctx, bytes.NewReader(data), PixelFormatRGBA8, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	t.Parallel()

	junk := []byte("certainly not an image, padded to be long enough....")
	_, err := Decode(context.Background(), bytes.NewReader(junk), PixelFormatRGBA8, nil)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
}

func TestDecodeUnknownDestinationFormat(t *testing.T) {
	t.Parallel()

	if _, err := Decode(context.Background(), strings.NewReader(""), PixelFormatUnknown, nil); err == nil {
		t.Error("expected error for unknown destination format")
	}
}

func TestInspectInfoPNG(t *testing.T) {
	t.Parallel()

	src := gradient(t, 10, 5, PixelFormatRGBA8)
	data := encodeFrames(t, "png", src)

	info, format, err := InspectInfo(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" {
		t.Errorf("format = %q", format)
	}
	if info.Width != 10 || info.Height != 5 || info.ChannelCount != 4 {
		t.Errorf("info = %+v", info)
	}
}

func TestInspectInfoCorruptHeader(t *testing.T) {
	t.Parallel()

	// Valid PNG signature, garbage after it: recognized but malformed.
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0xFF}, 16)...)
	_, format, err := InspectInfo(bytes.NewReader(data))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FormatError", err)
	}
	if format != "png" || fe.Format != "png" {
		t.Errorf("format = %q / %q", format, fe.Format)
	}
}

func TestEncodeRejectsEmptyCollection(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := Encode(context.Background(), &FrameCollection{}, &out, "png", nil, nil); err == nil {
		t.Error("expected error for empty collection")
	}
	if err := Encode(context.Background(), nil, &out, "png", nil, nil); err == nil {
		t.Error("expected error for nil collection")
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	t.Parallel()

	src := gradient(t, 2, 2, PixelFormatRGBA8)
	fc := &FrameCollection{}
	fc.Append(Frame{Buffer: src})
	var out bytes.Buffer
	if err := Encode(context.Background(), fc, &out, "webp", nil, nil); err == nil {
		t.Error("expected error for unregistered format")
	}
}

func TestPNGRejectsSecondFrame(t *testing.T) {
	t.Parallel()

	src := gradient(t, 2, 2, PixelFormatRGBA8)
	fc := &FrameCollection{}
	fc.Append(Frame{Buffer: src})
	fc.Append(Frame{Buffer: src.Clone()})
	var out bytes.Buffer
	if err := Encode(context.Background(), fc, &out, "png", nil, nil); err == nil {
		t.Error("png must reject multi-frame encode")
	}
}

// Stub codec used to pin the frame-failure asymmetry: the first frame
// failing is fatal, a later frame failing truncates.

type stubCodec struct {
	name   string
	magic  []byte
	frames int // successful frames before the failure
}

func (c *stubCodec) Name() string       { return c.name }
func (c *stubCodec) HeaderSize() int    { return len(c.magic) }
func (c *stubCodec) Detect(h []byte) bool {
	return bytes.Equal(h, c.magic)
}

func (c *stubCodec) Inspect(r io.Reader) (Info, error) {
	return Info{Width: 2, Height: 2, ChannelCount: 4, BitsPerChannel: 8}, nil
}

func (c *stubCodec) NewDecoder(r io.Reader) (Decoder, error) {
	return &stubDecoder{good: c.frames}, nil
}

func (c *stubCodec) NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error) {
	return nil, fmt.Errorf("stub codec cannot encode")
}

type stubDecoder struct {
	good    int
	decoded int
}

func (d *stubDecoder) Info() Info {
	return Info{Width: 2, Height: 2, ChannelCount: 4, BitsPerChannel: 8}
}

func (d *stubDecoder) DecodeFrame(depth int) (*RawFrame, error) {
	if d.decoded >= d.good {
		return nil, fmt.Errorf("synthetic frame corruption")
	}
	d.decoded++
	return AcquireRawFrame(2, 2, 4, depth), nil
}

var onceStubCodecs sync.Once

func registerStubCodecs() {
	onceStubCodecs.Do(func() {
		RegisterCodec(&stubCodec{name: "stub-fail-first", magic: []byte("SF01"), frames: 0})
		RegisterCodec(&stubCodec{name: "stub-truncate", magic: []byte("ST02"), frames: 2})
	})
}

func stubStream(magic string) []byte {
	// Padded past the largest builtin header window.
	return append([]byte(magic), bytes.Repeat([]byte{0}, 32)...)
}

func TestDecodeFirstFrameFailureIsFatal(t *testing.T) {
	registerStubCodecs()
	_, err := Decode(context.Background(), bytes.NewReader(stubStream("SF01")), PixelFormatRGBA8, nil)
	if err == nil {
		t.Fatal("first-frame failure must fail the decode")
	}
	if !strings.Contains(err.Error(), "first") {
		t.Errorf("error = %v", err)
	}
}

func TestDecodeLaterFrameFailureTruncates(t *testing.T) {
	registerStubCodecs()
	fc, err := Decode(context.Background(), bytes.NewReader(stubStream("ST02")), PixelFormatRGBA8, nil)
	if err != nil {
		t.Fatalf("later-frame failure must truncate, got %v", err)
	}
	if fc.Len() != 2 {
		t.Errorf("decoded %d frames, want the 2 good ones", fc.Len())
	}
}

func TestDetectFormatPriority(t *testing.T) {
	t.Parallel()

	pngHeader := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 16)...)
	c, ok := DetectFormat(pngHeader)
	if !ok || c.Name() != "png" {
		t.Errorf("png header detected as %v", c)
	}

	gifHeader := append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 16)...)
	c, ok = DetectFormat(gifHeader)
	if !ok || c.Name() != "gif" {
		t.Errorf("gif header detected as %v", c)
	}
}
