// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/nice/driver"
	"github.com/devblok/nice/gfx"
)

func TestEnumValues(t *testing.T) {
	c := qt.New(t)
	c.Assert([]int64{
		int64(driver.StatusDriverInvalid), int64(driver.StatusDriverReady), int64(driver.StatusDriverError),
		int64(driver.StatusVersionInvalid), int64(driver.StatusSignatureInvalid),
	}, qt.DeepEquals, []int64{0, 1, 2, 3, 4})
	c.Assert(uint64(driver.PlatformOSX), qt.Equals, uint64(4))
	c.Assert(uint32(driver.VertexFormatPntlb7F32), qt.Equals, uint32(3))
	c.Assert(uint32(driver.IndexFormatStrip32U), qt.Equals, uint32(4))
	c.Assert(uint32(driver.DistanceFormatBound32F), qt.Equals, uint32(4))
	c.Assert(uint32(driver.PixelFormatRGBA16F), qt.Equals, uint32(7))
	c.Assert(uint32(driver.PixelFormatBC1), qt.Equals, uint32(13))
	c.Assert(uint32(driver.PixelFormatBC7Srgb), qt.Equals, uint32(26))
	c.Assert(uint32(driver.PixelFormatInvalid), qt.Equals, uint32(27))
	c.Assert([]int32{
		int32(driver.ImageUsageStatic), int32(driver.ImageUsageTarget), int32(driver.ImageUsageOverlay),
		int32(driver.ImageUsageGlyph), int32(driver.ImageUsageSkybox), int32(driver.ImageUsageEmissive),
	}, qt.DeepEquals, []int32{0, 1, 2, 4, 8, 16})
	c.Assert(int32(driver.BufferClosed), qt.Equals, int32(3))
	c.Assert(int32(driver.TextBottomRight), qt.Equals, int32(9))
}

func TestParsePlatform(t *testing.T) {
	c := qt.New(t)
	for tag, want := range map[uint64]driver.Platform{
		1: driver.PlatformWin32,
		2: driver.PlatformX11,
		3: driver.PlatformWayland,
		4: driver.PlatformOSX,
	} {
		got, err := driver.ParsePlatform(tag)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, want)
	}
	for _, tag := range []uint64{0, 5, 1 << 40} {
		_, err := driver.ParsePlatform(tag)
		c.Assert(errors.Is(err, driver.ErrUnknownPlatform), qt.Equals, true, qt.Commentf("tag %d", tag))
	}
	c.Assert(driver.PlatformWayland.String(), qt.Equals, "WAYLAND")
	c.Assert(driver.StatusVersionInvalid.String(), qt.Equals, "VERSION_INVALID")
}

func TestPixelFormats(t *testing.T) {
	c := qt.New(t)
	for pf, want := range map[driver.PixelFormat]gfx.Format{
		driver.PixelFormatRGBA8:     gfx.FormatR8G8B8A8Unorm,
		driver.PixelFormatRGBA8Srgb: gfx.FormatR8G8B8A8Srgb,
		driver.PixelFormatRGBA16F:   gfx.FormatR16G16B16A16Sfloat,
		driver.PixelFormatRGBA32F:   gfx.FormatR32G32B32A32Sfloat,
	} {
		got, err := pf.Format()
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, want)
	}
	for _, pf := range []driver.PixelFormat{driver.PixelFormatUndefined, driver.PixelFormatRG16F, driver.PixelFormatBC7, driver.PixelFormatInvalid} {
		_, err := pf.Format()
		c.Assert(errors.Is(err, gfx.ErrUnsupportedFormat), qt.Equals, true)
	}
}

func TestImageUsageFlags(t *testing.T) {
	c := qt.New(t)
	u := driver.ImageUsageTarget | driver.ImageUsageOverlay
	c.Assert(u.Has(driver.ImageUsageTarget), qt.Equals, true)
	c.Assert(u.Has(driver.ImageUsageGlyph), qt.Equals, false)
	c.Assert(u.Has(driver.ImageUsageStatic), qt.Equals, true)
}

func TestTransformConversion(t *testing.T) {
	c := qt.New(t)
	tr := driver.Transform{
		Position: [4]float32{1, 2, 3, 1},
		Rotation: [4]float32{0, 0.7071068, 0, 0.7071068},
	}.Core()
	c.Assert(tr.Pos, qt.Equals, mgl32.Vec4{1, 2, 3, 1})
	c.Assert(tr.Rot.W, qt.Equals, float32(0.7071068))
	c.Assert(tr.Rot.V, qt.Equals, mgl32.Vec3{0, 0.7071068, 0})
}
