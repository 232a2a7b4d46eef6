// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/devblok/nice/driver"
)

type glyphFixture struct {
	engine *driver.RenderEngine
	font   driver.Handle
	a, b   *driver.ImageData
}

func newGlyphFixture(t *testing.T) *glyphFixture {
	c := qt.New(t)
	e, _ := start(t)

	alloc := func(w, h uint32) (driver.Handle, *driver.ImageData) {
		hnd, err := e.ImageDataAlloc(driver.ImageUsageGlyph, w, h, driver.PixelFormatRGBA8, nil, nil)
		c.Assert(err, qt.IsNil)
		img, err := e.ImageData(hnd)
		c.Assert(err, qt.IsNil)
		return hnd, img
	}
	f := &glyphFixture{engine: e, font: e.FontDataAlloc()}
	var ah, bh driver.Handle
	ah, f.a = alloc(4, 6)
	bh, f.b = alloc(3, 6)
	c.Assert(e.FontDataSetGlyph(f.font, 'A', ah, 0, 5), qt.IsNil)
	c.Assert(e.FontDataSetGlyph(f.font, 'B', bh, 1, 5), qt.IsNil)
	return f
}

func positions(glyphs []driver.PlacedGlyph) [][2]float32 {
	var out [][2]float32
	for _, g := range glyphs {
		out = append(out, [2]float32{g.X, g.Y})
	}
	return out
}

func TestLayoutOrigins(t *testing.T) {
	f := newGlyphFixture(t)
	font, err := f.engine.FontData(f.font)
	qt.New(t).Assert(err, qt.IsNil)

	tests := []struct {
		origin driver.TextOrigin
		want   [][2]float32
	}{
		{driver.TextBaseline, [][2]float32{{10, 15}, {13, 15}}},
		{driver.TextTopLeft, [][2]float32{{10, 20}, {13, 20}}},
		{driver.TextCenter, [][2]float32{{6.5, 17}, {9.5, 17}}},
		{driver.TextBottomRight, [][2]float32{{3, 14}, {6, 14}}},
	}
	for _, test := range tests {
		t.Run(string(rune('0'+test.origin)), func(t *testing.T) {
			c := qt.New(t)
			c.Assert(positions(font.Layout("AB", 10, 20, test.origin)), qt.DeepEquals, test.want)
		})
	}
}

func TestLayoutSkipsMissingGlyphs(t *testing.T) {
	c := qt.New(t)
	f := newGlyphFixture(t)
	font, err := f.engine.FontData(f.font)
	c.Assert(err, qt.IsNil)

	glyphs := font.Layout("ACB", 0, 0, driver.TextBaseline)
	c.Assert(glyphs, qt.HasLen, 2)
	c.Assert(glyphs[0].Image, qt.Equals, f.a)
	c.Assert(glyphs[1].Image, qt.Equals, f.b)
	c.Assert(glyphs[1].X, qt.Equals, float32(3))
	c.Assert([]float32{glyphs[1].W, glyphs[1].H}, qt.DeepEquals, []float32{3, 6})
}

func TestLayoutWithFontMetrics(t *testing.T) {
	c := qt.New(t)
	f := newGlyphFixture(t)

	c.Assert(f.engine.FontDataLoad(f.font, driver.NewBytesBuffer([]byte("not a font")), 16), qt.Not(qt.IsNil))
	c.Assert(f.engine.FontDataLoad(f.font, driver.NewBytesBuffer(goregular.TTF), 16), qt.IsNil)

	font, err := f.engine.FontData(f.font)
	c.Assert(err, qt.IsNil)
	glyphs := font.Layout("AA", 0, 0, driver.TextBaseline)
	c.Assert(glyphs, qt.HasLen, 2)
	advance := glyphs[1].X - glyphs[0].X
	c.Assert(advance > 4 && advance < 16, qt.Equals, true, qt.Commentf("advance %v", advance))
}

func TestDrawText(t *testing.T) {
	c := qt.New(t)
	f := newGlyphFixture(t)
	e := f.engine

	dst, err := e.ImageDataAlloc(driver.ImageUsageOverlay|driver.ImageUsageTarget, 64, 64, driver.PixelFormatRGBA8, nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(e.ImageDataDrawText(dst, f.font, 10, 20, driver.TextBaseline, "BAx"), qt.IsNil)

	img, err := e.ImageData(dst)
	c.Assert(err, qt.IsNil)
	ops := img.Ops()
	c.Assert(ops, qt.HasLen, 2)
	c.Assert(ops[0].Kind, qt.Equals, driver.DrawGlyph)
	c.Assert(ops[0].Codepoint, qt.Equals, 'B')
	c.Assert(ops[1].Codepoint, qt.Equals, 'A')
	c.Assert([]float32{ops[1].X, ops[1].Y}, qt.DeepEquals, []float32{13, 15})

	c.Assert(e.FontDataSetGlyph(f.font, 'A', 0, 0, 0), qt.IsNil)
	font, err := e.FontData(f.font)
	c.Assert(err, qt.IsNil)
	_, ok := font.Glyph('A')
	c.Assert(ok, qt.Equals, false)
	c.Assert(e.FontDataFree(f.font), qt.IsNil)
}
