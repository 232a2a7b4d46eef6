// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/chewxy/math32"
	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
)

func near(a, b float32) bool {
	return math32.Abs(a-b) < 1e-5
}

func TestCameraProjection(t *testing.T) {
	c := qt.New(t)
	cam := core.NewCamera()
	c.Assert(cam.Exposure(), qt.Equals, float32(1))

	cam.SetPerspective(16.0/9.0, math32.Pi/2, 1, 1000)
	proj := cam.Projection()
	want := mgl32.Vec4{1, 16.0 / 9.0, 1000.0 / -999.0, 1000.0 / -999.0}
	for i := range want {
		c.Assert(near(proj[i], want[i]), qt.Equals, true, qt.Commentf("component %d: %v != %v", i, proj[i], want[i]))
	}

	aspect, fovx, znear, zfar := cam.Perspective()
	c.Assert([]float32{aspect, fovx, znear, zfar}, qt.DeepEquals, []float32{16.0 / 9.0, math32.Pi / 2, 1, 1000})
}

func TestCameraSnapshot(t *testing.T) {
	c := qt.New(t)
	cam := core.NewCamera()
	group := core.NewMeshGroup()
	tr := core.IdentityTransform().Translate(mgl32.Vec3{0, 0, 5})

	cam.SetMeshGroup(group)
	cam.SetTransform(tr)
	cam.SetExposure(2)

	snap := cam.Snapshot()
	c.Assert(snap.Group, qt.Equals, group)
	c.Assert(snap.Transform, qt.DeepEquals, tr)
	c.Assert(snap.Exposure, qt.Equals, float32(2))
	c.Assert(snap.Projection, qt.DeepEquals, cam.Projection())
	c.Assert(cam.MeshGroup(), qt.Equals, group)
}

func TestTransform(t *testing.T) {
	c := qt.New(t)
	tr := core.IdentityTransform()
	c.Assert(tr.Position(), qt.DeepEquals, mgl32.Vec3{})
	c.Assert(tr.Rot, qt.DeepEquals, mgl32.QuatIdent())

	tr = tr.Translate(mgl32.Vec3{1, 2, 3}).Translate(mgl32.Vec3{1, 0, 0})
	c.Assert(tr.Position(), qt.DeepEquals, mgl32.Vec3{2, 2, 3})

	half := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})
	tr = tr.Rotate(half).Rotate(half)
	v := tr.Rot.Rotate(mgl32.Vec3{1, 0, 0})
	c.Assert(near(v[0], -1), qt.Equals, true)
	c.Assert(near(tr.Rot.Len(), 1), qt.Equals, true)

	n := core.NewTransform(mgl32.Vec3{4, 5, 6}, mgl32.Quat{W: 2})
	c.Assert(n.Position(), qt.DeepEquals, mgl32.Vec3{4, 5, 6})
	c.Assert(n.Rot, qt.DeepEquals, mgl32.QuatIdent())
}

func TestMipLevels(t *testing.T) {
	c := qt.New(t)
	for _, test := range []struct {
		extent gfx.Extent2D
		levels uint32
	}{
		{gfx.Extent2D{Width: 1, Height: 1}, 1},
		{gfx.Extent2D{Width: 2, Height: 1}, 2},
		{gfx.Extent2D{Width: 256, Height: 128}, 9},
		{gfx.Extent2D{Width: 300, Height: 1000}, 10},
	} {
		c.Assert(core.MipLevels(test.extent), qt.Equals, test.levels)
	}
}

func TestTextureResource(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	white := f.ctx.WhitePixel()

	res := core.NewTextureResource(white)
	c.Assert(res.Loaded(), qt.Equals, false)
	c.Assert(res.Current(), qt.Equals, core.Texture(white))

	target, err := core.NewTargetTexture(f.dev, gfx.Extent2D{Width: 2, Height: 2}, gfx.FormatR16G16B16A16Sfloat)
	c.Assert(err, qt.IsNil)
	defer target.Release()

	c.Assert(res.SetIfNone(target), qt.Equals, true)
	c.Assert(res.SetIfNone(white), qt.Equals, false)
	c.Assert(res.Image(), qt.Equals, target.Image())
	c.Assert(res.Replace(white), qt.Equals, core.Texture(target))
	c.Assert(res.Image(), qt.Equals, white.Image())

	_, err = core.NewTargetTexture(f.dev, gfx.Extent2D{}, gfx.FormatR8G8B8A8Unorm)
	c.Assert(err, qt.Equals, gfx.ErrUnsupportedDimensions)
}
