package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

type pngCodec struct{}

func (pngCodec) Name() string {
	return "png"
}

func (pngCodec) HeaderSize() int {
	return 8
}

func (pngCodec) Detect(header []byte) bool {
	return bytes.Equal(header, pngMagic)
}

func (pngCodec) Inspect(r io.Reader) (Info, error) {
	cfg, err := png.DecodeConfig(r)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Width:          cfg.Width,
		Height:         cfg.Height,
		ChannelCount:   modelChannels(cfg.ColorModel),
		BitsPerChannel: modelBits(cfg.ColorModel),
	}, nil
}

func (pngCodec) NewDecoder(r io.Reader) (Decoder, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	return &pngDecoder{img: img}, nil
}

func (pngCodec) NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error) {
	return &pngEncoder{w: w}, nil
}

type pngDecoder struct {
	img  image.Image
	done bool
}

func (d *pngDecoder) Info() Info {
	bounds := d.img.Bounds()
	return Info{
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		ChannelCount:   modelChannels(d.img.ColorModel()),
		BitsPerChannel: modelBits(d.img.ColorModel()),
	}
}

func (d *pngDecoder) DecodeFrame(depth int) (*RawFrame, error) {
	if d.done {
		return nil, ErrNoMoreFrames
	}
	d.done = true
	return imageToRaw(d.img, modelChannels(d.img.ColorModel()), depth), nil
}

type pngEncoder struct {
	w       io.Writer
	written bool
}

func (e *pngEncoder) WriteFrame(f Frame) error {
	if e.written {
		return fmt.Errorf("png does not support animation")
	}
	img, err := bufferToImage(f.Buffer)
	if err != nil {
		return err
	}
	if err := png.Encode(e.w, img); err != nil {
		return err
	}
	e.written = true
	return nil
}

func (e *pngEncoder) Close() error {
	if !e.written {
		return fmt.Errorf("no frame written to png encoder")
	}
	return nil
}
