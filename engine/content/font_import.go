package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"

	"github.com/emberworks/ember/engine/graphics"
	"github.com/emberworks/ember/engine/imaging"
	"github.com/emberworks/ember/engine/math"
)

// ImportBitmapFont imports an AngelCode .fnt bitmap font straight from
// source files, bypassing the compiled asset pipeline. The page image
// is resolved relative to the .fnt file, decoded to RGBA8 and uploaded
// as the font's texture page. Only single-page fonts are supported.
func ImportBitmapFont(device graphics.Device, fntPath string) (*graphics.SpriteFont, error) {
	desc, err := bmfont.LoadDescriptor(fntPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font file '%s': %w", fntPath, err)
	}
	if len(desc.Pages) != 1 {
		return nil, fmt.Errorf("font '%s' has %d pages, only single-page fonts are supported", fntPath, len(desc.Pages))
	}

	var pageFile string
	for _, p := range desc.Pages {
		pageFile = p.File
	}
	pagePath := filepath.Join(filepath.Dir(fntPath), pageFile)
	f, err := os.Open(pagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open font page '%s': %w", pagePath, err)
	}
	defer f.Close()

	fc, err := imaging.Decode(context.Background(), f, imaging.PixelFormatRGBA8,
		&imaging.DecodeOptions{FrameLimit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to decode font page '%s': %w", pagePath, err)
	}
	page := fc.Frames[0].Buffer

	texture, err := graphics.NewTexture2D(device, pageFile, page.Width, page.Height, 1, imaging.PixelFormatRGBA8)
	if err != nil {
		return nil, err
	}
	if err := texture.UploadMip(0, page.Pix); err != nil {
		texture.Destroy()
		return nil, err
	}

	// GlyphIndex binary-searches the character table, so it must be
	// sorted ascending.
	chars := make([]rune, 0, len(desc.Chars))
	for r := range desc.Chars {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

	font := &graphics.SpriteFont{
		Texture:     texture,
		Glyphs:      make([]math.Rect, len(chars)),
		Cropping:    make([]math.Rect, len(chars)),
		Characters:  chars,
		Kerning:     make([]math.Vec3, len(chars)),
		LineSpacing: int32(desc.Common.LineHeight),
	}
	for i, r := range chars {
		g := desc.Chars[r]
		font.Glyphs[i] = math.Rect{
			X: int32(g.X), Y: int32(g.Y),
			Width: int32(g.Width), Height: int32(g.Height),
		}
		font.Cropping[i] = math.Rect{
			X: int32(g.XOffset), Y: int32(g.YOffset),
			Width: int32(g.Width), Height: int32(g.Height),
		}
		// left bearing, glyph width, right bearing
		font.Kerning[i] = math.Vec3{
			X: float32(g.XOffset),
			Y: float32(g.Width),
			Z: float32(g.XAdvance - g.XOffset - g.Width),
		}
	}
	if _, ok := desc.Chars['?']; ok {
		def := '?'
		font.DefaultCharacter = &def
	}
	return font, nil
}
