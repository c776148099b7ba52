package imaging

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/bmp"
)

type bmpCodec struct{}

func (bmpCodec) Name() string {
	return "bmp"
}

func (bmpCodec) HeaderSize() int {
	return 2
}

func (bmpCodec) Detect(header []byte) bool {
	return header[0] == 'B' && header[1] == 'M'
}

func (bmpCodec) Inspect(r io.Reader) (Info, error) {
	cfg, err := bmp.DecodeConfig(r)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Width:          cfg.Width,
		Height:         cfg.Height,
		ChannelCount:   modelChannels(cfg.ColorModel),
		BitsPerChannel: 8,
	}, nil
}

func (bmpCodec) NewDecoder(r io.Reader) (Decoder, error) {
	img, err := bmp.Decode(r)
	if err != nil {
		return nil, err
	}
	return &bmpDecoder{img: img}, nil
}

func (bmpCodec) NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error) {
	return &bmpEncoder{w: w}, nil
}

type bmpDecoder struct {
	img  image.Image
	done bool
}

func (d *bmpDecoder) Info() Info {
	bounds := d.img.Bounds()
	return Info{
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		ChannelCount:   modelChannels(d.img.ColorModel()),
		BitsPerChannel: 8,
	}
}

func (d *bmpDecoder) DecodeFrame(depth int) (*RawFrame, error) {
	if d.done {
		return nil, ErrNoMoreFrames
	}
	d.done = true
	return imageToRaw(d.img, modelChannels(d.img.ColorModel()), depth), nil
}

type bmpEncoder struct {
	w       io.Writer
	written bool
}

func (e *bmpEncoder) WriteFrame(f Frame) error {
	if e.written {
		return fmt.Errorf("bmp does not support animation")
	}
	img, err := bufferToImage(f.Buffer)
	if err != nil {
		return err
	}
	if err := bmp.Encode(e.w, img); err != nil {
		return err
	}
	e.written = true
	return nil
}

func (e *bmpEncoder) Close() error {
	if !e.written {
		return fmt.Errorf("no frame written to bmp encoder")
	}
	return nil
}
