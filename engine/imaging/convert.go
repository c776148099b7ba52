package imaging

import (
	"encoding/binary"
	"fmt"
)

type conversionKey struct {
	src PixelFormat
	dst PixelFormat
}

type conversionFunc func(src, dst []byte, count int)

// Direct conversions for high-traffic pairs. Everything else goes
// through the canonical float RGBA intermediate.
var fastPaths = map[conversionKey]conversionFunc{
	{PixelFormatGray8, PixelFormatRGBA8}:   convertGray8ToRGBA8,
	{PixelFormatRGB8, PixelFormatRGBA8}:    convertRGB8ToRGBA8,
	{PixelFormatRGBA8, PixelFormatBGRA8}:   convertSwapRB8,
	{PixelFormatBGRA8, PixelFormatRGBA8}:   convertSwapRB8,
	{PixelFormatRGBA16, PixelFormatRGBA8}:  convertRGBA16ToRGBA8,
	{PixelFormatRGB16, PixelFormatRGBA16}:  convertRGB16ToRGBA16,
	{PixelFormatGray16, PixelFormatGray8}:  convertGray16ToGray8,
	{PixelFormatRGBA8, PixelFormatRGBA32F}: convertRGBA8ToRGBA32F,
}

// Convert rewrites every pixel of src into dst's pixel format. The
// destination must have capacity for at least src's element count; a
// larger destination keeps its dimensions and only the copied prefix is
// written. Identical formats degenerate to a raw byte copy.
func Convert(src, dst *PixelBuffer) error {
	if src == nil || dst == nil {
		return fmt.Errorf("convert requires non-nil source and destination buffers")
	}
	count := src.Width * src.Height
	dstCap := len(dst.Pix) / dst.Format.BytesPerPixel()
	if dstCap < count {
		return fmt.Errorf("destination too small: capacity %d pixels, need %d", dstCap, count)
	}

	// Same format: raw copy, bit-exact.
	if src.Format == dst.Format {
		if src.Stride == src.Width*src.Format.BytesPerPixel() && dst.Stride == src.Stride {
			copy(dst.Pix, src.Pix[:count*src.Format.BytesPerPixel()])
			return nil
		}
		bpp := src.Format.BytesPerPixel()
		for y := 0; y < src.Height; y++ {
			copy(dst.Pix[y*dst.Stride:], src.Row(y)[:src.Width*bpp])
		}
		return nil
	}

	if fast, ok := fastPaths[conversionKey{src.Format, dst.Format}]; ok &&
		src.Stride == src.Width*src.Format.BytesPerPixel() &&
		dst.Stride == dst.Width*dst.Format.BytesPerPixel() {
		fast(src.Pix, dst.Pix, count)
		return nil
	}

	// Generic path through the canonical intermediate.
	sbpp := src.Format.BytesPerPixel()
	dbpp := dst.Format.BytesPerPixel()
	di := 0
	for y := 0; y < src.Height; y++ {
		row := src.Row(y)
		for x := 0; x < src.Width; x++ {
			c := loadCanonical(src.Format, row[x*sbpp:])
			storeCanonical(dst.Format, dst.Pix[di:], c)
			di += dbpp
		}
	}
	return nil
}

func convertGray8ToRGBA8(src, dst []byte, count int) {
	for i := 0; i < count; i++ {
		l := src[i]
		dst[i*4+0] = l
		dst[i*4+1] = l
		dst[i*4+2] = l
		dst[i*4+3] = 0xFF
	}
}

func convertRGB8ToRGBA8(src, dst []byte, count int) {
	for i := 0; i < count; i++ {
		dst[i*4+0] = src[i*3+0]
		dst[i*4+1] = src[i*3+1]
		dst[i*4+2] = src[i*3+2]
		dst[i*4+3] = 0xFF
	}
}

// Symmetric: swaps channels 0 and 2, serves RGBA<->BGRA both ways.
func convertSwapRB8(src, dst []byte, count int) {
	for i := 0; i < count; i++ {
		dst[i*4+0] = src[i*4+2]
		dst[i*4+1] = src[i*4+1]
		dst[i*4+2] = src[i*4+0]
		dst[i*4+3] = src[i*4+3]
	}
}

func convertRGBA16ToRGBA8(src, dst []byte, count int) {
	for i := 0; i < count*4; i++ {
		// Take the high byte of each big-endian 16-bit sample.
		dst[i] = src[i*2]
	}
}

func convertRGB16ToRGBA16(src, dst []byte, count int) {
	for i := 0; i < count; i++ {
		copy(dst[i*8:i*8+6], src[i*6:i*6+6])
		binary.BigEndian.PutUint16(dst[i*8+6:], 0xFFFF)
	}
}

func convertGray16ToGray8(src, dst []byte, count int) {
	for i := 0; i < count; i++ {
		dst[i] = src[i*2]
	}
}

func convertRGBA8ToRGBA32F(src, dst []byte, count int) {
	for i := 0; i < count; i++ {
		c := loadCanonical(PixelFormatRGBA8, src[i*4:])
		storeCanonical(PixelFormatRGBA32F, dst[i*16:], c)
	}
}
