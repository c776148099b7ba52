package imaging

import (
	"bytes"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"time"

	"github.com/emberworks/ember/engine/math"
)

type gifCodec struct{}

func (gifCodec) Name() string {
	return "gif"
}

func (gifCodec) HeaderSize() int {
	return 6
}

func (gifCodec) Detect(header []byte) bool {
	return bytes.Equal(header, []byte("GIF87a")) || bytes.Equal(header, []byte("GIF89a"))
}

func (gifCodec) Inspect(r io.Reader) (Info, error) {
	cfg, err := gif.DecodeConfig(r)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Width:          cfg.Width,
		Height:         cfg.Height,
		ChannelCount:   4,
		BitsPerChannel: 8,
	}, nil
}

func (gifCodec) NewDecoder(r io.Reader) (Decoder, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() && len(g.Image) > 0 {
		bounds = g.Image[0].Bounds()
	}
	return &gifDecoder{
		g:      g,
		canvas: image.NewNRGBA(bounds),
	}, nil
}

func (gifCodec) NewEncoder(w io.Writer, opts *EncodeOptions) (Encoder, error) {
	return &gifEncoder{w: w}, nil
}

type gifDecoder struct {
	g      *gif.GIF
	canvas *image.NRGBA
	next   int
}

func (d *gifDecoder) Info() Info {
	return Info{
		Width:          d.canvas.Bounds().Dx(),
		Height:         d.canvas.Bounds().Dy(),
		ChannelCount:   4,
		BitsPerChannel: 8,
	}
}

func (d *gifDecoder) DecodeFrame(depth int) (*RawFrame, error) {
	if d.next >= len(d.g.Image) {
		return nil, ErrNoMoreFrames
	}
	frame := d.g.Image[d.next]
	var disposal byte
	if d.next < len(d.g.Disposal) {
		disposal = d.g.Disposal[d.next]
	}
	var saved *image.NRGBA
	if disposal == gif.DisposalPrevious {
		saved = image.NewNRGBA(frame.Bounds())
		draw.Draw(saved, frame.Bounds(), d.canvas, frame.Bounds().Min, draw.Src)
	}

	// Frames update a sub-rectangle of the logical screen; compose
	// over the running canvas.
	draw.Draw(d.canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

	raw := imageToRaw(d.canvas, 4, depth)
	if d.next < len(d.g.Delay) {
		raw.Delay = time.Duration(d.g.Delay[d.next]) * 10 * time.Millisecond
	}
	fb := frame.Bounds()
	raw.Dirty = math.Rect{
		X:      int32(fb.Min.X),
		Y:      int32(fb.Min.Y),
		Width:  int32(fb.Dx()),
		Height: int32(fb.Dy()),
	}
	// Apply this frame's disposal so the next frame composes onto the
	// right canvas state.
	switch disposal {
	case gif.DisposalBackground:
		draw.Draw(d.canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		draw.Draw(d.canvas, frame.Bounds(), saved, frame.Bounds().Min, draw.Src)
	}
	d.next++
	return raw, nil
}

type gifEncoder struct {
	w      io.Writer
	frames []*image.Paletted
	delays []int
}

func (e *gifEncoder) WriteFrame(f Frame) error {
	img, err := bufferToImage(f.Buffer)
	if err != nil {
		return err
	}
	pal := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(pal, img.Bounds(), img, image.Point{})
	e.frames = append(e.frames, pal)
	e.delays = append(e.delays, int(f.Delay/(10*time.Millisecond)))
	return nil
}

func (e *gifEncoder) Close() error {
	return gif.EncodeAll(e.w, &gif.GIF{
		Image:     e.frames,
		Delay:     e.delays,
		LoopCount: 0,
	})
}
