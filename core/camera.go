// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera views a MeshGroup. Setters may be called from any goroutine.
type Camera struct {
	mutex      sync.RWMutex
	aspect     float32
	fovx       float32
	znear      float32
	zfar       float32
	projection mgl32.Vec4
	transform  Transform
	group      *MeshGroup
	exposure   float32
}

// CameraSnapshot is the state of a camera for one frame.
type CameraSnapshot struct {
	Projection mgl32.Vec4
	Transform  Transform
	Group      *MeshGroup
	Exposure   float32
}

// NewCamera creates a camera with a 16:9, 90 degree perspective.
func NewCamera() *Camera {
	c := &Camera{transform: IdentityTransform(), exposure: 1}
	c.SetPerspective(16.0/9.0, math32.Pi/2, 0.1, 1000)
	return c
}

// SetPerspective sets a perspective projection from the aspect
// ratio, the horizontal field of view in radians and the clip planes.
// The projection is packed as
// [1/tan(fovx/2), aspect/tan(fovx/2), f/(n-f), n*f/(n-f)].
func (c *Camera) SetPerspective(aspect, fovx, znear, zfar float32) {
	t := math32.Tan(fovx / 2)
	proj := mgl32.Vec4{
		1 / t,
		aspect / t,
		zfar / (znear - zfar),
		znear * zfar / (znear - zfar),
	}

	c.mutex.Lock()
	c.aspect, c.fovx, c.znear, c.zfar = aspect, fovx, znear, zfar
	c.projection = proj
	c.mutex.Unlock()
}

// Perspective returns the parameters of the last SetPerspective.
func (c *Camera) Perspective() (aspect, fovx, znear, zfar float32) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.aspect, c.fovx, c.znear, c.zfar
}

// Projection returns the packed projection.
func (c *Camera) Projection() mgl32.Vec4 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.projection
}

// SetTransform places the camera.
func (c *Camera) SetTransform(t Transform) {
	c.mutex.Lock()
	c.transform = t
	c.mutex.Unlock()
}

// Transform returns the placement of the camera.
func (c *Camera) Transform() Transform {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.transform
}

// SetMeshGroup selects the meshes the camera draws.
func (c *Camera) SetMeshGroup(g *MeshGroup) {
	c.mutex.Lock()
	c.group = g
	c.mutex.Unlock()
}

// MeshGroup returns the drawn group, nil when none is set.
func (c *Camera) MeshGroup() *MeshGroup {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.group
}

// SetExposure sets the exposure used when compositing.
func (c *Camera) SetExposure(e float32) {
	c.mutex.Lock()
	c.exposure = e
	c.mutex.Unlock()
}

// Exposure returns the exposure.
func (c *Camera) Exposure() float32 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.exposure
}

// Snapshot returns a consistent copy of the camera state.
func (c *Camera) Snapshot() CameraSnapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return CameraSnapshot{
		Projection: c.projection,
		Transform:  c.transform,
		Group:      c.group,
		Exposure:   c.exposure,
	}
}
