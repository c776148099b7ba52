package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

type jpegCodec struct{}

func (jpegCodec) Name() string {
	return "jpeg"
}

func (jpegCodec) HeaderSize() int {
	return 3
}

func (jpegCodec) Detect(header []byte) bool {
	return header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF
}

func (jpegCodec) Inspect(r io.Reader) (Info, error) {
	cfg, err := jpeg.DecodeConfig(r)
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

func (jpegCodec) NewDecoder(r io.Reader) (Decoder, error) {
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, err
	}
	return &jpegDecoder{img: img}, nil
}

func (jpegCodec) NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error) {
	quality := jpeg.DefaultQuality
	if opts != nil && opts.Quality > 0 {
		quality = opts.Quality
	}
	return &jpegEncoder{w: w, quality: quality}, nil
}

type jpegDecoder struct {
	img  image.Image
	done bool
}

func (d *jpegDecoder) Info() Info {
	bounds := d.img.Bounds()
	return Info{
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		ChannelCount:   modelChannels(d.img.ColorModel()),
		BitsPerChannel: 8,
	}
}

func (d *jpegDecoder) DecodeFrame(depth int) (*RawFrame, error) {
	if d.done {
		return nil, ErrNoMoreFrames
	}
	d.done = true
	return imageToRaw(d.img, modelChannels(d.img.ColorModel()), depth), nil
}

type jpegEncoder struct {
	w       io.Writer
	quality int
	written bool
}

func (e *jpegEncoder) WriteFrame(f Frame) error {
	if e.written {
		return fmt.Errorf("jpeg does not support animation")
	}
	img, err := bufferToImage(f.Buffer)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(e.w, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return err
	}
	e.written = true
	return nil
}

func (e *jpegEncoder) Close() error {
	if !e.written {
		return fmt.Errorf("no frame written to jpeg encoder")
	}
	return nil
}
