package imaging

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TGA carries no magic signature; detection validates header
// plausibility instead, which is why this codec sits last in the
// detection chain.

const tgaHeaderSize = 18

const (
	tgaTypeTruecolor    = 2
	tgaTypeGrayscale    = 3
	tgaTypeRLETruecolor = 10
	tgaTypeRLEGrayscale = 11
)

type tgaHeader struct {
	idLength     uint8
	colorMapType uint8
	imageType    uint8
	width        int
	height       int
	pixelDepth   uint8
	descriptor   uint8
}

func parseTGAHeader(h []byte) tgaHeader {
	return tgaHeader{
		idLength:     h[0],
		colorMapType: h[1],
		imageType:    h[2],
		width:        int(binary.LittleEndian.Uint16(h[12:])),
		height:       int(binary.LittleEndian.Uint16(h[14:])),
		pixelDepth:   h[16],
		descriptor:   h[17],
	}
}

func (h tgaHeader) plausible() bool {
	if h.colorMapType > 1 {
		return false
	}
	switch h.imageType {
	case tgaTypeTruecolor, tgaTypeRLETruecolor:
		if h.pixelDepth != 24 && h.pixelDepth != 32 {
			return false
		}
	case tgaTypeGrayscale, tgaTypeRLEGrayscale:
		if h.pixelDepth != 8 {
			return false
		}
	default:
		return false
	}
	return h.width > 0 && h.height > 0
}

func (h tgaHeader) channels() int {
	switch h.pixelDepth {
	case 8:
		return 1
	case 24:
		return 3
	default:
		return 4
	}
}

func (h tgaHeader) topDown() bool {
	return h.descriptor&0x20 != 0
}

func (h tgaHeader) rle() bool {
	return h.imageType == tgaTypeRLETruecolor || h.imageType == tgaTypeRLEGrayscale
}

type tgaCodec struct{}

func (tgaCodec) Name() string {
	return "tga"
}

func (tgaCodec) HeaderSize() int {
	return tgaHeaderSize
}

func (tgaCodec) Detect(header []byte) bool {
	return parseTGAHeader(header).plausible()
}

func (tgaCodec) Inspect(r io.Reader) (Info, error) {
	var buf [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Info{}, err
	}
	h := parseTGAHeader(buf[:])
	if !h.plausible() {
		return Info{}, fmt.Errorf("implausible tga header")
	}
	return Info{
		Width:          h.width,
		Height:         h.height,
		ChannelCount:   h.channels(),
		BitsPerChannel: 8,
	}, nil
}

func (tgaCodec) NewDecoder(r io.Reader) (Decoder, error) {
	var buf [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	h := parseTGAHeader(buf[:])
	if !h.plausible() {
		return nil, fmt.Errorf("implausible tga header")
	}
	// Skip the image ID field; a color map cannot occur for the
	// supported image types.
	if h.idLength > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.idLength)); err != nil {
			return nil, fmt.Errorf("truncated tga id field: %w", err)
		}
	}
	return &tgaDecoder{h: h, r: r}, nil
}

func (tgaCodec) NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error) {
	return &tgaEncoder{w: w}, nil
}

type tgaDecoder struct {
	h    tgaHeader
	r    io.Reader
	done bool
}

func (d *tgaDecoder) Info() Info {
	return Info{
		Width:          d.h.width,
		Height:         d.h.height,
		ChannelCount:   d.h.channels(),
		BitsPerChannel: 8,
	}
}

func (d *tgaDecoder) DecodeFrame(depth int) (*RawFrame, error) {
	if d.done {
		return nil, ErrNoMoreFrames
	}
	d.done = true

	h := d.h
	channels := h.channels()
	srcBPP := int(h.pixelDepth) / 8
	pixels := make([]byte, h.width*h.height*srcBPP)
	if h.rle() {
		if err := tgaReadRLE(d.r, pixels, srcBPP); err != nil {
			return nil, err
		}
	} else {
		if _, err := io.ReadFull(d.r, pixels); err != nil {
			return nil, fmt.Errorf("truncated tga pixel data: %w", err)
		}
	}

	raw := AcquireRawFrame(h.width, h.height, channels, depth)
	for y := 0; y < h.height; y++ {
		srcY := y
		if !h.topDown() {
			srcY = h.height - 1 - y
		}
		for x := 0; x < h.width; x++ {
			src := pixels[(srcY*h.width+x)*srcBPP:]
			di := (y*h.width + x) * channels * depth / 8
			writeTGAPixel(raw.Pix[di:], src, srcBPP, depth)
		}
	}
	return raw, nil
}

// writeTGAPixel converts one BGR(A) or grayscale source pixel into
// interleaved RGB(A)/gray output at the frame depth.
func writeTGAPixel(dst, src []byte, srcBPP, depth int) {
	put := func(i int, v byte) {
		if depth == 16 {
			dst[i*2] = v
			dst[i*2+1] = v
			return
		}
		dst[i] = v
	}
	switch srcBPP {
	case 1:
		put(0, src[0])
	case 3:
		put(0, src[2])
		put(1, src[1])
		put(2, src[0])
	default:
		put(0, src[2])
		put(1, src[1])
		put(2, src[0])
		put(3, src[3])
	}
}

func tgaReadRLE(r io.Reader, dst []byte, bpp int) error {
	var ctrl [1]byte
	pixel := make([]byte, bpp)
	for off := 0; off < len(dst); {
		if _, err := io.ReadFull(r, ctrl[:]); err != nil {
			return fmt.Errorf("truncated tga rle stream: %w", err)
		}
		count := int(ctrl[0]&0x7F) + 1
		if count*bpp > len(dst)-off {
			return fmt.Errorf("tga rle packet overruns image by %d bytes", count*bpp-(len(dst)-off))
		}
		if ctrl[0]&0x80 != 0 {
			// Run packet: one pixel repeated count times.
			if _, err := io.ReadFull(r, pixel); err != nil {
				return fmt.Errorf("truncated tga rle run: %w", err)
			}
			for i := 0; i < count; i++ {
				copy(dst[off:], pixel)
				off += bpp
			}
		} else {
			// Raw packet: count literal pixels.
			if _, err := io.ReadFull(r, dst[off:off+count*bpp]); err != nil {
				return fmt.Errorf("truncated tga rle literals: %w", err)
			}
			off += count * bpp
		}
	}
	return nil
}

type tgaEncoder struct {
	w       io.Writer
	written bool
}

func (e *tgaEncoder) WriteFrame(f Frame) error {
	if e.written {
		return fmt.Errorf("tga does not support animation")
	}

	buf := f.Buffer
	if buf.Format != PixelFormatRGBA8 {
		tmp, err := NewPixelBuffer(buf.Width, buf.Height, PixelFormatRGBA8)
		if err != nil {
			return err
		}
		if err := Convert(buf, tmp); err != nil {
			return err
		}
		buf = tmp
	}

	var header [tgaHeaderSize]byte
	header[2] = tgaTypeTruecolor
	binary.LittleEndian.PutUint16(header[12:], uint16(buf.Width))
	binary.LittleEndian.PutUint16(header[14:], uint16(buf.Height))
	header[16] = 32
	header[17] = 0x28 // top-to-bottom, 8 alpha bits
	if _, err := e.w.Write(header[:]); err != nil {
		return err
	}

	row := make([]byte, buf.Width*4)
	for y := 0; y < buf.Height; y++ {
		src := buf.Row(y)
		for x := 0; x < buf.Width; x++ {
			row[x*4+0] = src[x*4+2]
			row[x*4+1] = src[x*4+1]
			row[x*4+2] = src[x*4+0]
			row[x*4+3] = src[x*4+3]
		}
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}
	e.written = true
	return nil
}

func (e *tgaEncoder) Close() error {
	if !e.written {
		return fmt.Errorf("no frame written to tga encoder")
	}
	return nil
}
