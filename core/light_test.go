// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"
)

func floatsOf(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func TestLightPacking(t *testing.T) {
	c := qt.New(t)
	l := DirectLight{Position: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec3{4, 5, 6}, Radius: 2}
	c.Assert(l.packedPosition(), qt.DeepEquals, mgl32.Vec4{1, 2, 3, 0.25})
	c.Assert(l.packedColor(), qt.DeepEquals, mgl32.Vec4{4, 5, 6, lightCutoff * 4})

	c.Assert(DirectLight{}.packedPosition()[3], qt.Equals, float32(0))
}

func TestPushConstants(t *testing.T) {
	c := qt.New(t)
	cam := NewCamera()
	cam.SetTransform(NewTransform(mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent()))
	snap := cam.Snapshot()
	mesh := NewTransform(mgl32.Vec3{7, 8, 9}, mgl32.QuatIdent())

	geometry := geometryPushConstants(snap, mesh)
	c.Assert(geometry, qt.HasLen, geometryPushSize)
	fs := floatsOf(geometry)
	c.Assert(fs[4:8], qt.DeepEquals, []float32{1, 2, 3, 0})
	c.Assert(fs[8:12], qt.DeepEquals, []float32{0, 0, 0, 1}, qt.Commentf("quaternions are packed xyzw"))
	c.Assert(fs[12:16], qt.DeepEquals, []float32{7, 8, 9, 0})

	light := lightPushConstants([2]float32{800, 400}, snap, DirectLight{Radius: 1})
	c.Assert(light, qt.HasLen, lightPushSize)
	c.Assert(floatsOf(light)[:4], qt.DeepEquals, []float32{800, 400, 1.0 / 800, 1.0 / 400})

	cam.SetPerspective(2, math.Pi/2, 0.1, 100)
	cam.SetExposure(1.5)
	snap = cam.Snapshot()
	composite := compositePushConstants(snap)
	c.Assert(composite, qt.HasLen, compositePushSize)
	fs = floatsOf(composite)
	c.Assert(fs[0:4], qt.DeepEquals, []float32{snap.Projection[0], snap.Projection[1], snap.Projection[2], snap.Projection[3]})
	c.Assert(fs[4:8], qt.DeepEquals, []float32{0, 0, 0, 1})
	c.Assert(fs[8], qt.Equals, float32(1.5))
}

func TestU16Bytes(t *testing.T) {
	c := qt.New(t)
	c.Assert(U16Bytes([]uint16{1, 0x0203}), qt.DeepEquals, []byte{1, 0, 3, 2})
	c.Assert(U32Bytes([]uint32{0x01020304}), qt.DeepEquals, []byte{4, 3, 2, 1})
}
