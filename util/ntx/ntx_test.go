// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package ntx_test

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/util/ntx"
)

func TestDecodeHeader(t *testing.T) {
	data := []byte{'n', 't', 'x', 1, 2, 0, 1, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	tex, err := ntx.DecodeBytes(data)
	require.NoError(t, err)

	assert.Equal(t, ntx.FormatUnorm8, tex.Format)
	assert.Equal(t, uint16(2), tex.Width)
	assert.Equal(t, uint16(1), tex.Height)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, tex.Pixels)
	assert.Equal(t, gfx.Extent2D{Width: 2, Height: 1}, tex.Extent())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"legacy", []byte{'n', 't', 'e', 'x', 0, 1, 0, 1, 0}, ntx.ErrLegacyMagic},
		{"magic", []byte{'p', 'n', 'g', 0, 1, 0, 1, 0}, ntx.ErrMagic},
		{"format", []byte{'n', 't', 'x', 9, 1, 0, 1, 0}, ntx.ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ntx.DecodeBytes(tt.data)
			assert.Equal(t, tt.err, err)
		})
	}

	_, err := ntx.DecodeBytes([]byte{'n', 't', 'x', 0, 4, 0, 4, 0, 1, 2})
	assert.Error(t, err, "truncated pixels must fail")
}

func TestPixelSize(t *testing.T) {
	assert.Equal(t, 4*3*3, ntx.PixelSize(ntx.FormatSrgb8, 3, 3))
	assert.Equal(t, 4*3*3, ntx.PixelSize(ntx.Format10BitQ, 3, 3))
	assert.Equal(t, 8*5, ntx.PixelSize(ntx.FormatFloat16, 5, 1))
	assert.Equal(t, 16*2*2, ntx.PixelSize(ntx.FormatFloat32, 2, 2))
}

func TestGfxFormat(t *testing.T) {
	tests := map[ntx.Format]gfx.Format{
		ntx.FormatSrgb8:   gfx.FormatR8G8B8A8Srgb,
		ntx.FormatUnorm8:  gfx.FormatR8G8B8A8Unorm,
		ntx.Format10Bit:   gfx.FormatA2B10G10R10UnormPack32,
		ntx.Format10BitQ:  gfx.FormatA2B10G10R10UnormPack32,
		ntx.FormatFloat16: gfx.FormatR16G16B16A16Sfloat,
		ntx.FormatFloat32: gfx.FormatR32G32B32A32Sfloat,
	}
	for in, want := range tests {
		got, err := in.GfxFormat()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ntx.Format(6).GfxFormat()
	assert.Equal(t, ntx.ErrFormat, err)
}

func TestEncodeDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	tex := ntx.FromImage(src, true)
	var buf bytes.Buffer
	require.NoError(t, ntx.Encode(&buf, tex))
	assert.Equal(t, ntx.HeaderSize+16, buf.Len())

	out, err := ntx.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, tex, out)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, out.Image().At(1, 1))
}

func TestEncodeSizeMismatch(t *testing.T) {
	err := ntx.Encode(&bytes.Buffer{}, &ntx.Texture{Format: ntx.FormatSrgb8, Width: 2, Height: 2, Pixels: []byte{1}})
	assert.Equal(t, ntx.ErrSize, err)
}

func TestFloat16(t *testing.T) {
	tex := ntx.FromFloat16(1, 1, []float32{1, 0.5, 0, 2})
	c := tex.Image().At(0, 0).(color.NRGBA64)
	assert.Equal(t, uint16(0xffff), c.R)
	assert.Equal(t, uint16(0x8000), c.G)
	assert.Equal(t, uint16(0), c.B)
	assert.Equal(t, uint16(0xffff), c.A, "values above one are clamped")
}
