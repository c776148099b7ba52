package testbed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/emberworks/ember/engine/config"
	"github.com/emberworks/ember/engine/content"
	"github.com/emberworks/ember/engine/core"
	"github.com/emberworks/ember/engine/graphics"
	"github.com/emberworks/ember/engine/imaging"
)

/**
 * @brief A device-less demo: authors a few compiled assets into a
 * scratch directory, loads them back through the content manager with
 * the in-memory graphics device, and prints what came out.
 */
type Demo struct {
	root    string
	device  *graphics.MemoryDevice
	manager *content.ContentManager
}

func NewDemo() *Demo {
	return &Demo{device: graphics.NewMemoryDevice()}
}

func (d *Demo) Initialize() error {
	core.EventInitialize()
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	root, err := os.MkdirTemp("", "ember-testbed-")
	if err != nil {
		return err
	}
	d.root = root

	if err := d.authorAssets(); err != nil {
		return err
	}

	cfg := config.DefaultContentConfig()
	cfg.RootPath = d.root
	d.manager, err = content.NewContentManager(cfg, d.device)
	if err != nil {
		return err
	}
	return d.manager.Initialize()
}

// authorAssets writes the demo's compiled streams: a greeting string
// and a texture carrying an embedded PNG.
func (d *Demo) authorAssets() error {
	sw := content.NewStreamWriter()
	idx := sw.AddReader("Ember.Content.StringReader", 1)
	sw.Body().Write7BitEncodedInt(idx)
	sw.Body().WriteString("hello from the content pipeline")
	if err := d.writeAsset("greeting", sw, content.CompressionZstd); err != nil {
		return err
	}

	png, err := d.renderCheckerboardPNG(64, 64)
	if err != nil {
		return err
	}
	sw = content.NewStreamWriter()
	idx = sw.AddReader("Ember.Content.Texture2DReader", 1)
	sw.Body().Write7BitEncodedInt(idx)
	sw.Body().WriteInt32(int32(content.SurfaceFormatEmbeddedImage))
	sw.Body().WriteInt32(64)
	sw.Body().WriteInt32(64)
	sw.Body().WriteUint32(1)
	sw.Body().WriteUint32(uint32(len(png)))
	sw.Body().WriteBytes(png)
	return d.writeAsset("textures/checker", sw, content.CompressionNone)
}

func (d *Demo) writeAsset(name string, sw *content.StreamWriter, method byte) error {
	path := filepath.Join(d.root, filepath.FromSlash(name)+content.AssetExtension)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return sw.Finish(f, method)
}

func (d *Demo) renderCheckerboardPNG(w, h int) ([]byte, error) {
	buf, err := imaging.NewPixelBuffer(w, h, imaging.PixelFormatRGBA8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		row := buf.Row(y)
		for x := 0; x < w; x++ {
			v := byte(0x30)
			if (x/8+y/8)%2 == 0 {
				v = 0xD0
			}
			row[x*4+0] = v
			row[x*4+1] = v
			row[x*4+2] = 0x40
			row[x*4+3] = 0xFF
		}
	}
	fc := &imaging.FrameCollection{}
	if err := fc.Append(imaging.Frame{Buffer: buf}); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := imaging.Encode(context.Background(), fc, &out, "png", nil, nil); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (d *Demo) Run() error {
	greeting, err := content.Load[string](d.manager, "greeting")
	if err != nil {
		return err
	}
	core.LogInfo("greeting asset: %q", greeting)

	tex, err := content.Load[*graphics.Texture2D](d.manager, "textures/checker")
	if err != nil {
		return err
	}
	core.LogInfo("texture asset: %dx%d %s, %d device resource(s) live",
		tex.Width, tex.Height, tex.Format, d.device.ResourceCount())

	// Second load must hit the cache.
	again, err := content.Load[*graphics.Texture2D](d.manager, "textures/checker")
	if err != nil {
		return err
	}
	if again != tex {
		return fmt.Errorf("cache miss on repeated load")
	}

	core.LogInfo("loads: %d, rolling average: %.2fms",
		core.MetricsLoadCount(), core.MetricsLoadAverageMS())
	return nil
}

func (d *Demo) Shutdown() error {
	var err error
	if d.manager != nil {
		err = d.manager.Shutdown()
	}
	if d.root != "" {
		os.RemoveAll(d.root)
	}
	core.EventShutdown()
	return err
}
