// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package ntx

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/chewxy/math32"
)

// FromImage converts img into an 8 bit per channel texture,
// srgb selects the color encoding the pixels are tagged with.
func FromImage(img image.Image, srgb bool) *Texture {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	format := FormatUnorm8
	if srgb {
		format = FormatSrgb8
	}
	return &Texture{
		Format: format,
		Width:  uint16(b.Dx()),
		Height: uint16(b.Dy()),
		Pixels: rgba.Pix,
	}
}

// Image converts the texture to an image for inspection. High
// dynamic range formats are clamped to [0, 1].
func (t *Texture) Image() image.Image {
	w, h := int(t.Width), int(t.Height)
	switch t.Format {
	case FormatSrgb8, FormatUnorm8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		copy(img.Pix, t.Pixels)
		return img
	}

	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		var px [4]float32
		switch t.Format {
		case Format10Bit, Format10BitQ:
			v := binary.LittleEndian.Uint32(t.Pixels[i*4:])
			px = [4]float32{
				float32(v&0x3ff) / 1023,
				float32(v>>10&0x3ff) / 1023,
				float32(v>>20&0x3ff) / 1023,
				float32(v>>30) / 3,
			}
		case FormatFloat16:
			for c := 0; c < 4; c++ {
				px[c] = halfToFloat(binary.LittleEndian.Uint16(t.Pixels[i*8+c*2:]))
			}
		case FormatFloat32:
			for c := 0; c < 4; c++ {
				px[c] = math.Float32frombits(binary.LittleEndian.Uint32(t.Pixels[i*16+c*4:]))
			}
		}
		img.SetNRGBA64(i%w, i/w, color.NRGBA64{
			R: unit16(px[0]),
			G: unit16(px[1]),
			B: unit16(px[2]),
			A: unit16(px[3]),
		})
	}
	return img
}

func unit16(v float32) uint16 {
	return uint16(math32.Round(math32.Max(0, math32.Min(1, v)) * 0xffff))
}

// halfToFloat expands an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal
		v := float32(mant) / 1024 * math32.Pow(2, -14)
		if sign != 0 {
			return -v
		}
		return v
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}

// floatToHalf packs v into binary16, rounding toward zero.
func floatToHalf(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case math32.IsNaN(v):
		return sign | 0x7e00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		return sign | uint16(mant>>uint32(14-exp))
	}
	return sign | uint16(exp)<<10 | uint16(mant>>13)
}

// FromFloat16 packs rgba, four floats per pixel, into a half float texture.
func FromFloat16(width, height uint16, rgba []float32) *Texture {
	px := make([]byte, len(rgba)*2)
	for i, v := range rgba {
		binary.LittleEndian.PutUint16(px[i*2:], floatToHalf(v))
	}
	return &Texture{Format: FormatFloat16, Width: width, Height: height, Pixels: px}
}
