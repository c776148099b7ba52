package graphics

import (
	"github.com/emberworks/ember/engine/math"
)

/**
 * @brief A bitmap sprite font: one texture page plus per-character
 * placement tables. Glyphs, Cropping and Characters run parallel.
 */
type SpriteFont struct {
	Texture *Texture2D
	/** @brief Source rectangle of each glyph in the texture page. */
	Glyphs []math.Rect
	/** @brief Layout offsets applied when drawing each glyph. */
	Cropping []math.Rect
	/** @brief The characters the font covers, sorted ascending. */
	Characters []rune
	LineSpacing int32
	Spacing     float32
	/** @brief Per-character left bearing, width, right bearing. */
	Kerning []math.Vec3
	/** @brief Substitute for characters outside the covered set. */
	DefaultCharacter *rune
}

// GlyphIndex returns the table index for r, or the default character's
// index, or -1 when neither is covered.
func (f *SpriteFont) GlyphIndex(r rune) int {
	lo, hi := 0, len(f.Characters)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case f.Characters[mid] == r:
			return mid
		case f.Characters[mid] < r:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	if f.DefaultCharacter != nil && *f.DefaultCharacter != r {
		return f.GlyphIndex(*f.DefaultCharacter)
	}
	return -1
}

// MeasureString returns the width and height of text laid out with the
// font's spacing tables.
func (f *SpriteFont) MeasureString(text string) (float32, float32) {
	var width, lineWidth float32
	lines := int32(1)
	for _, r := range text {
		if r == '\n' {
			lines++
			if lineWidth > width {
				width = lineWidth
			}
			lineWidth = 0
			continue
		}
		i := f.GlyphIndex(r)
		if i < 0 {
			continue
		}
		k := f.Kerning[i]
		lineWidth += k.X + k.Y + k.Z + f.Spacing
	}
	if lineWidth > width {
		width = lineWidth
	}
	return width, float32(lines * f.LineSpacing)
}

// Destroy releases the font's texture page.
func (f *SpriteFont) Destroy() error {
	if f.Texture != nil {
		return f.Texture.Destroy()
	}
	return nil
}
