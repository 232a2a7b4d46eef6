// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// lightCutoff is the intensity below which a light stops contributing.
const lightCutoff = 0.003035269835488375

// DirectLight is a point light with a finite radius.
type DirectLight struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Radius   float32
}

// packedPosition is [x, y, z, 1/r^2].
func (l DirectLight) packedPosition() mgl32.Vec4 {
	inv := float32(0)
	if l.Radius > 0 {
		inv = 1 / (l.Radius * l.Radius)
	}
	return l.Position.Vec4(inv)
}

// packedColor is [r, g, b, cutoff*r^2].
func (l DirectLight) packedColor() mgl32.Vec4 {
	return l.Color.Vec4(lightCutoff * l.Radius * l.Radius)
}

// lightPushConstants is the push constant block of the lighting pass.
func lightPushConstants(extent [2]float32, cam CameraSnapshot, l DirectLight) []byte {
	return pushConstants(make([]byte, 0, lightPushSize)).
		floats(extent[0], extent[1], 1/extent[0], 1/extent[1]).
		vec4(cam.Projection).
		quat(cam.Transform.Rot).
		vec4(cam.Transform.Pos).
		vec4(l.packedPosition()).
		vec4(l.packedColor())
}

// geometryPushConstants is the push constant block of the geometry pass.
func geometryPushConstants(cam CameraSnapshot, mesh Transform) []byte {
	return pushConstants(make([]byte, 0, geometryPushSize)).
		vec4(cam.Projection).
		vec3(cam.Transform.Position()).
		quat(cam.Transform.Rot).
		vec3(mesh.Position()).
		quat(mesh.Rot)
}

// compositePushConstants is the push constant block of the composite
// pass. The projection and rotation reconstruct view rays for the sky.
func compositePushConstants(cam CameraSnapshot) []byte {
	return pushConstants(make([]byte, 0, compositePushSize)).
		vec4(cam.Projection).
		quat(cam.Transform.Rot).
		floats(cam.Exposure)
}

// Push constant block sizes
const (
	geometryPushSize  = 80
	lightPushSize     = 96
	compositePushSize = 36
)
