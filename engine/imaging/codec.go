package imaging

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNoMoreFrames is returned by Decoder.DecodeFrame once the source is
// exhausted.
var ErrNoMoreFrames = errors.New("no more frames")

// ErrUnknownFormat is returned when no registered codec recognizes the
// stream header.
var ErrUnknownFormat = errors.New("unknown image format")

/**
 * @brief A container header that matched a codec but could not be
 * parsed. Distinguishable from format-not-matched (ErrUnknownFormat).
 */
type FormatError struct {
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s stream: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

/** @brief Container shape answered by info inspection, without pixel data. */
type Info struct {
	Width          int
	Height         int
	ChannelCount   int
	BitsPerChannel int
}

// Decoder is one decode session over a single stream. Frames are
// produced in order; DecodeFrame returns ErrNoMoreFrames when done.
type Decoder interface {
	Info() Info
	/** @brief Decodes the next frame at the requested bit depth (8 or 16). */
	DecodeFrame(depth int) (*RawFrame, error)
}

// Encoder writes frames to an output stream. Formats without animation
// support reject the second WriteFrame. Close flushes the container.
type Encoder interface {
	WriteFrame(f Frame) error
	Close() error
}

/** @brief Options honored by encoders where applicable. */
type EncodeOptions struct {
	/** @brief JPEG quality 1-100, 0 selects the codec default. */
	Quality int
}

// Codec is one container format plugin.
type Codec interface {
	Name() string
	/** @brief Number of header bytes Detect needs. */
	HeaderSize() int
	/** @brief Pure signature predicate over the header window. */
	Detect(header []byte) bool
	/** @brief Parses just enough of the container to answer shape questions. */
	Inspect(r io.Reader) (Info, error)
	NewDecoder(r io.Reader) (Decoder, error)
	NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error)
}

var (
	codecsMu sync.Mutex
	codecs   []Codec
)

// RegisterCodec appends a codec to the detection chain. Codecs with
// strong magic signatures must be registered before heuristic ones
// (TGA has no magic and is registered last by registerBuiltinCodecs).
func RegisterCodec(c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs = append(codecs, c)
}

func registeredCodecs() []Codec {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	out := make([]Codec, len(codecs))
	copy(out, codecs)
	return out
}

// CodecByName returns the codec registered under the given name.
func CodecByName(name string) (Codec, error) {
	for _, c := range registeredCodecs() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no codec registered for format '%s'", name)
}

// DetectFormat matches the header window against every registered codec
// in registration order.
func DetectFormat(header []byte) (Codec, bool) {
	for _, c := range registeredCodecs() {
		if len(header) >= c.HeaderSize() && c.Detect(header[:c.HeaderSize()]) {
			return c, true
		}
	}
	return nil, false
}

type peekReader interface {
	io.Reader
	Peek(int) ([]byte, error)
}

func asPeekReader(r io.Reader) peekReader {
	if pr, ok := r.(peekReader); ok {
		return pr
	}
	return bufio.NewReader(r)
}

func sniffCodec(r io.Reader) (Codec, peekReader, error) {
	pr := asPeekReader(r)
	max := 0
	for _, c := range registeredCodecs() {
		if c.HeaderSize() > max {
			max = c.HeaderSize()
		}
	}
	header, err := pr.Peek(max)
	if err != nil && len(header) == 0 {
		return nil, nil, fmt.Errorf("failed to read image header: %w", err)
	}
	c, ok := DetectFormat(header)
	if !ok {
		return nil, nil, ErrUnknownFormat
	}
	return c, pr, nil
}

// InspectInfo sniffs the stream's format and returns its shape without
// materializing pixel data. A recognized but corrupt header yields a
// *FormatError.
func InspectInfo(r io.Reader) (Info, string, error) {
	c, pr, err := sniffCodec(r)
	if err != nil {
		return Info{}, "", err
	}
	info, err := c.Inspect(pr)
	if err != nil {
		return Info{}, c.Name(), &FormatError{Format: c.Name(), Err: err}
	}
	return info, c.Name(), nil
}

// Registration order fixes detection priority; init order across files
// within a package is not guaranteed, so population is explicit.
func registerBuiltinCodecs() {
	RegisterCodec(&pngCodec{})
	RegisterCodec(&jpegCodec{})
	RegisterCodec(&gifCodec{})
	RegisterCodec(&bmpCodec{})
	RegisterCodec(&tgaCodec{})
}

func init() {
	registerBuiltinCodecs()
}
