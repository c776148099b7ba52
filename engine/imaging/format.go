package imaging

/** @brief How the channel samples of a pixel format are encoded. */
type ChannelEncoding uint8

const (
	/** @brief Channels are unsigned normalized integers. */
	ChannelUnsigned ChannelEncoding = iota
	/** @brief Channels are IEEE-754 floats. */
	ChannelFloat
)

/** @brief Identifies the memory layout of a pixel buffer. */
type PixelFormat uint8

const (
	PixelFormatUnknown PixelFormat = iota
	/** @brief 8-bit alpha only. */
	PixelFormatAlpha8
	/** @brief 8-bit luminance. */
	PixelFormatGray8
	/** @brief 16-bit luminance, big-endian samples. */
	PixelFormatGray16
	/** @brief 8-bit luminance + 8-bit alpha. */
	PixelFormatGrayAlpha8
	/** @brief 16-bit luminance + 16-bit alpha. */
	PixelFormatGrayAlpha16
	/** @brief 8-bit red, green, blue. */
	PixelFormatRGB8
	/** @brief 16-bit red, green, blue. */
	PixelFormatRGB16
	/** @brief 8-bit red, green, blue, alpha. */
	PixelFormatRGBA8
	/** @brief 8-bit blue, green, red, alpha. */
	PixelFormatBGRA8
	/** @brief 16-bit red, green, blue, alpha. */
	PixelFormatRGBA16
	/** @brief Single 32-bit float channel. */
	PixelFormatR32F
	/** @brief Four 32-bit float channels. */
	PixelFormatRGBA32F
)

/** @brief Describes channel layout, per-channel depth and numeric encoding. */
type PixelFormatInfo struct {
	Name           string
	Channels       uint8
	BitsPerChannel uint8
	Encoding       ChannelEncoding
}

var pixelFormatInfos = map[PixelFormat]PixelFormatInfo{
	PixelFormatAlpha8:      {Name: "alpha8", Channels: 1, BitsPerChannel: 8, Encoding: ChannelUnsigned},
	PixelFormatGray8:       {Name: "gray8", Channels: 1, BitsPerChannel: 8, Encoding: ChannelUnsigned},
	PixelFormatGray16:      {Name: "gray16", Channels: 1, BitsPerChannel: 16, Encoding: ChannelUnsigned},
	PixelFormatGrayAlpha8:  {Name: "grayalpha8", Channels: 2, BitsPerChannel: 8, Encoding: ChannelUnsigned},
	PixelFormatGrayAlpha16: {Name: "grayalpha16", Channels: 2, BitsPerChannel: 16, Encoding: ChannelUnsigned},
	PixelFormatRGB8:        {Name: "rgb8", Channels: 3, BitsPerChannel: 8, Encoding: ChannelUnsigned},
	PixelFormatRGB16:       {Name: "rgb16", Channels: 3, BitsPerChannel: 16, Encoding: ChannelUnsigned},
	PixelFormatRGBA8:       {Name: "rgba8", Channels: 4, BitsPerChannel: 8, Encoding: ChannelUnsigned},
	PixelFormatBGRA8:       {Name: "bgra8", Channels: 4, BitsPerChannel: 8, Encoding: ChannelUnsigned},
	PixelFormatRGBA16:      {Name: "rgba16", Channels: 4, BitsPerChannel: 16, Encoding: ChannelUnsigned},
	PixelFormatR32F:        {Name: "r32f", Channels: 1, BitsPerChannel: 32, Encoding: ChannelFloat},
	PixelFormatRGBA32F:     {Name: "rgba32f", Channels: 4, BitsPerChannel: 32, Encoding: ChannelFloat},
}

// Info returns the descriptor for the format. Unknown formats report
// zero channels.
func (pf PixelFormat) Info() PixelFormatInfo {
	return pixelFormatInfos[pf]
}

// BytesPerPixel returns the tight per-pixel byte size of the format.
func (pf PixelFormat) BytesPerPixel() int {
	info := pixelFormatInfos[pf]
	return int(info.Channels) * int(info.BitsPerChannel) / 8
}

func (pf PixelFormat) String() string {
	if info, ok := pixelFormatInfos[pf]; ok {
		return info.Name
	}
	return "unknown"
}

// IsDeep reports whether the format carries at least 16 bits per channel,
// which makes a 16-bit raw decode worth the cost.
func (pf PixelFormat) IsDeep() bool {
	switch pf {
	case PixelFormatGray16, PixelFormatGrayAlpha16, PixelFormatRGB16,
		PixelFormatRGBA16, PixelFormatR32F, PixelFormatRGBA32F:
		return true
	}
	return false
}
