// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Glyph is the image of a code point. BaseX and BaseY locate the
// pen position inside the image, in pixels from its top left corner.
type Glyph struct {
	Image *ImageData
	BaseX float32
	BaseY float32
}

// PlacedGlyph is a glyph positioned by Layout.
type PlacedGlyph struct {
	Codepoint rune
	Image     *ImageData
	X, Y      float32
	W, H      float32
}

// FontData maps code points to glyph images. Metrics come from an
// OpenType font when one is loaded, from the glyph images otherwise.
type FontData struct {
	mutex  sync.RWMutex
	glyphs map[rune]Glyph
	face   font.Face
}

// NewFontData creates a font without glyphs.
func NewFontData() *FontData {
	return &FontData{glyphs: make(map[rune]Glyph)}
}

// SetGlyph sets the image of a code point, a nil image removes it.
func (f *FontData) SetGlyph(r rune, g Glyph) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if g.Image == nil {
		delete(f.glyphs, r)
		return
	}
	f.glyphs[r] = g
}

// Glyph returns the glyph of a code point.
func (f *FontData) Glyph(r rune) (Glyph, bool) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	g, ok := f.glyphs[r]
	return g, ok
}

// Load parses an OpenType or TrueType font used for advances,
// kerning and line metrics at size pixels per em.
func (f *FontData) Load(data []byte, size float64) error {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("creating font face: %w", err)
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.face != nil {
		f.face.Close()
	}
	f.face = face
	return nil
}

func toFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

// Layout places text so that origin of the text box lies at x, y.
// Y grows downwards.
func (f *FontData) Layout(text string, x, y float32, origin TextOrigin) []PlacedGlyph {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	var (
		placed          []PlacedGlyph
		pen             float32
		ascent, descent float32
		prev            rune = -1
	)
	if f.face != nil {
		m := f.face.Metrics()
		ascent, descent = toFloat(m.Ascent), toFloat(m.Descent)
	}

	for _, r := range text {
		g, ok := f.glyphs[r]
		if f.face != nil && prev >= 0 {
			pen += toFloat(f.face.Kern(prev, r))
		}
		prev = r

		var w, h float32
		if ok {
			e := g.Image.Extent()
			w, h = float32(e.Width), float32(e.Height)
			placed = append(placed, PlacedGlyph{
				Codepoint: r,
				Image:     g.Image,
				X:         pen - g.BaseX,
				Y:         -g.BaseY,
				W:         w,
				H:         h,
			})
			if f.face == nil {
				if g.BaseY > ascent {
					ascent = g.BaseY
				}
				if h-g.BaseY > descent {
					descent = h - g.BaseY
				}
			}
		}

		if f.face != nil {
			if adv, ok := f.face.GlyphAdvance(r); ok {
				pen += toFloat(adv)
				continue
			}
		}
		pen += w
	}

	var dx, dy float32
	switch origin {
	case TextTop, TextCenter, TextBottom:
		dx = -pen / 2
	case TextTopRight, TextRight, TextBottomRight:
		dx = -pen
	}
	switch origin {
	case TextTopLeft, TextTop, TextTopRight:
		dy = ascent
	case TextLeft, TextCenter, TextRight:
		dy = (ascent - descent) / 2
	case TextBottomLeft, TextBottom, TextBottomRight:
		dy = -descent
	}
	for i := range placed {
		placed[i].X += x + dx
		placed[i].Y += y + dy
	}
	return placed
}

// Close releases the loaded font face.
func (f *FontData) Close() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.face != nil {
		f.face.Close()
		f.face = nil
	}
}

// FontDataAlloc creates an empty font.
func (e *RenderEngine) FontDataAlloc() Handle {
	e.trace("FontData_Alloc")
	return e.fonts.add(NewFontData())
}

// FontDataFree releases a font.
func (e *RenderEngine) FontDataFree(h Handle) error {
	e.trace("FontData_Free")
	f, err := e.fonts.remove(h)
	if err != nil {
		return err
	}
	f.Close()
	return nil
}

// FontDataSetGlyph sets the image of a code point, the zero image
// handle removes it.
func (e *RenderEngine) FontDataSetGlyph(h Handle, codepoint uint32, image Handle, baseX, baseY float32) error {
	e.trace("FontData_SetGlyph")
	f, err := e.fonts.get(h)
	if err != nil {
		return err
	}
	img, err := e.images.optional(image)
	if err != nil {
		return err
	}
	f.SetGlyph(rune(codepoint), Glyph{Image: img, BaseX: baseX, BaseY: baseY})
	return nil
}

// FontDataLoad loads font metrics from an OpenType font file.
func (e *RenderEngine) FontDataLoad(h Handle, data Buffer, size float64) error {
	e.trace("FontData_Load")
	f, err := e.fonts.get(h)
	if err != nil {
		return err
	}
	raw, err := ReadAll(data)
	if err != nil {
		return err
	}
	return f.Load(raw, size)
}

// FontData returns the font behind h.
func (e *RenderEngine) FontData(h Handle) (*FontData, error) {
	return e.fonts.get(h)
}
