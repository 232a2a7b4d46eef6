// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"fmt"

	"github.com/devblok/nice/core"
)

// MeshDataAllocPolygon uploads a polygon mesh. Only Pntl32F vertices
// are supported. The cache buffer is accepted for compatibility.
func (e *RenderEngine) MeshDataAllocPolygon(vf VertexFormat, vertices Buffer, ifmt IndexFormat, indices Buffer, cache Buffer) (Handle, error) {
	e.trace("MeshData_Alloc_Polygon")
	if vf != VertexFormatPntl32F {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVertexFormat, vf)
	}
	indexType, topology, err := ifmt.Index()
	if err != nil {
		return 0, err
	}

	vertexBytes, err := ReadAll(vertices)
	if err != nil {
		return 0, fmt.Errorf("reading vertices: %w", err)
	}
	indexBytes, err := ReadAll(indices)
	if err != nil {
		return 0, fmt.Errorf("reading indices: %w", err)
	}
	dev, err := e.ctx.Device()
	if err != nil {
		return 0, err
	}
	data, err := core.NewMeshData(dev, vertexBytes, core.IndexData{Type: indexType, Raw: indexBytes}, topology)
	if err != nil {
		return 0, err
	}
	return e.meshData.add(data), nil
}

// MeshDataFree drops the host reference to mesh data. Instances
// drawing it keep it alive.
func (e *RenderEngine) MeshDataFree(h Handle) error {
	e.trace("MeshData_Free")
	data, err := e.meshData.remove(h)
	if err != nil {
		return err
	}
	data.Release()
	return nil
}

// MeshData returns the mesh data behind h.
func (e *RenderEngine) MeshData(h Handle) (*core.MeshData, error) {
	return e.meshData.get(h)
}

// MeshGroupAlloc creates an empty mesh group.
func (e *RenderEngine) MeshGroupAlloc(cache Buffer) Handle {
	e.trace("MeshGroup_Alloc")
	return e.groups.add(core.NewMeshGroup())
}

// MeshGroupFree drops a mesh group. Instances in it stay
// valid until freed.
func (e *RenderEngine) MeshGroupFree(h Handle) error {
	e.trace("MeshGroup_Free")
	_, err := e.groups.remove(h)
	return err
}

// MeshGroupSetSky sets the skybox of a group, the zero handle removes it.
func (e *RenderEngine) MeshGroupSetSky(h, image Handle) error {
	e.trace("MeshGroup_SetSky")
	group, err := e.groups.get(h)
	if err != nil {
		return err
	}
	img, err := e.images.optional(image)
	if err != nil {
		return err
	}
	if img == nil {
		group.SetSky(nil)
		return nil
	}
	group.SetSky(img.texture)
	return nil
}

// MeshGroup returns the mesh group behind h.
func (e *RenderEngine) MeshGroup(h Handle) (*core.MeshGroup, error) {
	return e.groups.get(h)
}

// MeshInstanceAlloc creates a mesh in a group.
func (e *RenderEngine) MeshInstanceAlloc(group Handle, cache Buffer) (Handle, error) {
	e.trace("MeshInstance_Alloc")
	g, err := e.groups.get(group)
	if err != nil {
		return 0, err
	}
	m, err := core.NewMesh(e.ctx, g)
	if err != nil {
		return 0, err
	}
	return e.meshes.add(m), nil
}

// MeshInstanceFree removes a mesh from its group.
func (e *RenderEngine) MeshInstanceFree(h Handle) error {
	e.trace("MeshInstance_Free")
	m, err := e.meshes.remove(h)
	if err != nil {
		return err
	}
	m.Release()
	return nil
}

// MeshInstanceSetMeshData sets the drawn mesh data. The index selects
// a buffer of multi buffer mesh data and is ignored.
func (e *RenderEngine) MeshInstanceSetMeshData(h, data Handle, index uint32) error {
	e.trace("MeshInstance_SetMeshData")
	m, err := e.meshes.get(h)
	if err != nil {
		return err
	}
	d, err := e.meshData.optional(data)
	if err != nil {
		return err
	}
	return m.SetMeshData(d)
}

// MeshInstanceSetMeshSubset limits drawing to count indices from offset.
func (e *RenderEngine) MeshInstanceSetMeshSubset(h Handle, offset, count uint32) error {
	e.trace("MeshInstance_SetMeshSubset")
	m, err := e.meshes.get(h)
	if err != nil {
		return err
	}
	return m.SetRange(offset, offset+count)
}

// MeshInstanceSetImageData sets a texture layer. Images without pixels
// show the white pixel until their data arrives.
func (e *RenderEngine) MeshInstanceSetImageData(h, image Handle, layer int32) error {
	e.trace("MeshInstance_SetImageData")
	m, err := e.meshes.get(h)
	if err != nil {
		return err
	}
	if layer < 0 || layer >= core.MeshLayers {
		return fmt.Errorf("%w: %d", core.ErrLayerRange, layer)
	}
	img, err := e.images.optional(image)
	if err != nil {
		return err
	}
	if img == nil {
		return m.SetTexture(int(layer), e.ctx.WhitePixel())
	}
	return m.SetTexture(int(layer), img.texture)
}

// MeshInstanceSetAnimation is accepted but skeletal animation is not
// implemented.
func (e *RenderEngine) MeshInstanceSetAnimation(h Handle, firstIndex, lastIndex uint32, frameRate float32) error {
	e.trace("MeshInstance_SetAnimation")
	_, err := e.meshes.get(h)
	return err
}

// MeshInstanceSetTransform places a mesh.
func (e *RenderEngine) MeshInstanceSetTransform(h Handle, pose Transform) error {
	e.trace("MeshInstance_SetTransform")
	m, err := e.meshes.get(h)
	if err != nil {
		return err
	}
	t := pose.Core()
	t.Pos[3] = 0
	return m.SetTransform(t)
}

// MeshInstanceSetBoneTransform is accepted but skeletal animation is
// not implemented.
func (e *RenderEngine) MeshInstanceSetBoneTransform(h Handle, bone uint32, pose Transform) error {
	e.trace("MeshInstance_SetBoneTransform")
	_, err := e.meshes.get(h)
	return err
}

// MeshInstance returns the mesh behind h.
func (e *RenderEngine) MeshInstance(h Handle) (*core.Mesh, error) {
	return e.meshes.get(h)
}

// CameraAlloc creates a camera.
func (e *RenderEngine) CameraAlloc() Handle {
	e.trace("Camera_Alloc")
	c := core.NewCamera()
	c.SetExposure(e.ctx.Configuration().Renderer.Exposure)
	return e.cameras.add(c)
}

// CameraFree drops a camera. Windows showing it keep drawing it.
func (e *RenderEngine) CameraFree(h Handle) error {
	e.trace("Camera_Free")
	_, err := e.cameras.remove(h)
	return err
}

// CameraSetPerspective sets a perspective projection, fovx in radians.
func (e *RenderEngine) CameraSetPerspective(h Handle, aspect, fovx, znear, zfar float32) error {
	e.trace("Camera_SetPerspective")
	c, err := e.cameras.get(h)
	if err != nil {
		return err
	}
	c.SetPerspective(aspect, fovx, znear, zfar)
	return nil
}

// CameraSetMeshGroup selects the group a camera sees.
func (e *RenderEngine) CameraSetMeshGroup(h, group Handle) error {
	e.trace("Camera_SetMeshGroup")
	c, err := e.cameras.get(h)
	if err != nil {
		return err
	}
	g, err := e.groups.optional(group)
	if err != nil {
		return err
	}
	c.SetMeshGroup(g)
	return nil
}

// CameraSetTransform places a camera.
func (e *RenderEngine) CameraSetTransform(h Handle, pose Transform) error {
	e.trace("Camera_SetTransform")
	c, err := e.cameras.get(h)
	if err != nil {
		return err
	}
	c.SetTransform(pose.Core())
	return nil
}

// Camera returns the camera behind h.
func (e *RenderEngine) Camera(h Handle) (*core.Camera, error) {
	return e.cameras.get(h)
}
