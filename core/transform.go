// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an object in the world. Only Pos.XYZ is used,
// the fourth component is kept for layout compatibility with callers.
type Transform struct {
	Pos mgl32.Vec4
	Rot mgl32.Quat
}

// IdentityTransform is positioned at the origin without rotation.
func IdentityTransform() Transform {
	return Transform{Rot: mgl32.QuatIdent()}
}

// NewTransform creates a transform from a position and a rotation.
func NewTransform(pos mgl32.Vec3, rot mgl32.Quat) Transform {
	return Transform{Pos: pos.Vec4(0), Rot: rot.Normalize()}
}

// Position returns the translation part.
func (t Transform) Position() mgl32.Vec3 {
	return t.Pos.Vec3()
}

// Translate moves the transform by d.
func (t Transform) Translate(d mgl32.Vec3) Transform {
	t.Pos = t.Pos.Add(d.Vec4(0))
	return t
}

// Rotate applies q after the current rotation.
func (t Transform) Rotate(q mgl32.Quat) Transform {
	t.Rot = q.Mul(t.Rot).Normalize()
	return t
}
