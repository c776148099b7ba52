package graphics

import (
	"fmt"

	"github.com/emberworks/ember/engine/imaging"
)

/** @brief A 2D texture resource owned by a graphics device. */
type Texture2D struct {
	device Device
	handle Handle

	Name     string
	Width    int
	Height   int
	MipCount int
	Format   imaging.PixelFormat

	destroyed bool
}

// NewTexture2D creates the device-side resource. Pixel data is uploaded
// per mip level afterwards.
func NewTexture2D(device Device, name string, width, height, mipCount int, format imaging.PixelFormat) (*Texture2D, error) {
	if device == nil {
		return nil, fmt.Errorf("texture '%s' requires a graphics device", name)
	}
	h, err := device.CreateTexture(name, width, height, mipCount, format)
	if err != nil {
		return nil, err
	}
	return &Texture2D{
		device:   device,
		handle:   h,
		Name:     name,
		Width:    width,
		Height:   height,
		MipCount: mipCount,
		Format:   format,
	}, nil
}

// UploadMip pushes one mip level's pixel bytes to the device.
func (t *Texture2D) UploadMip(level int, pixels []byte) error {
	if t.destroyed {
		return fmt.Errorf("upload to destroyed texture '%s'", t.Name)
	}
	return t.device.UploadTexturePixels(t.handle, level, pixels)
}

func (t *Texture2D) Handle() Handle {
	return t.handle
}

// Destroy releases the device resource. Safe to call twice.
func (t *Texture2D) Destroy() error {
	if t.destroyed {
		return nil
	}
	t.destroyed = true
	return t.device.DestroyResource(t.handle)
}
