// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/model"
)

// package errors
var (
	ErrNotInitialized = errors.New("engine context is not initialized")
	ErrNoMeshData     = errors.New("mesh has no mesh data")
	ErrLayerRange     = errors.New("texture layer out of range")
	ErrIndexData      = errors.New("index data is not a whole number of indices")
	ErrVertexData     = errors.New("vertex data is not a whole number of vertices")
)

// IndexData is raw index data of a given width.
type IndexData struct {
	Type gfx.IndexType
	Raw  []byte
}

// U16Indices wraps 16 bit indices.
func U16Indices(indices []uint16) IndexData {
	return IndexData{Type: gfx.IndexTypeU16, Raw: U16Bytes(indices)}
}

// U32Indices wraps 32 bit indices.
func U32Indices(indices []uint32) IndexData {
	return IndexData{Type: gfx.IndexTypeU32, Raw: U32Bytes(indices)}
}

// IndexBuffer is an index buffer tagged with its index width.
type IndexBuffer struct {
	Type   gfx.IndexType
	Buffer gfx.Buffer
	Count  uint32
}

// MeshData is an immutable pair of vertex and index buffers. It is
// shared by every mesh that draws it and freed with the last Release.
type MeshData struct {
	vertices    gfx.Buffer
	vertexCount uint32
	indices     IndexBuffer
	topology    gfx.Topology

	refs int32
}

// NewMeshData uploads Pntl32F vertices and indices.
func NewMeshData(dev gfx.Device, vertices []byte, indices IndexData, topology gfx.Topology) (*MeshData, error) {
	if len(vertices)%model.Pntl32FStride != 0 {
		return nil, ErrVertexData
	}
	size := indices.Type.Size()
	if len(indices.Raw)%size != 0 {
		return nil, ErrIndexData
	}

	vb, err := dev.NewBuffer(gfx.BufferUsageVertex, vertices)
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	ib, err := dev.NewBuffer(gfx.BufferUsageIndex, indices.Raw)
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("index buffer: %w", err)
	}
	return &MeshData{
		vertices:    vb,
		vertexCount: uint32(len(vertices) / model.Pntl32FStride),
		indices: IndexBuffer{
			Type:   indices.Type,
			Buffer: ib,
			Count:  uint32(len(indices.Raw) / size),
		},
		topology: topology,
		refs:     1,
	}, nil
}

// Vertices returns the vertex buffer.
func (d *MeshData) Vertices() gfx.Buffer { return d.vertices }

// VertexCount returns the number of vertices.
func (d *MeshData) VertexCount() uint32 { return d.vertexCount }

// IndexBuffer returns the tagged index buffer.
func (d *MeshData) IndexBuffer() IndexBuffer { return d.indices }

// Topology returns the primitive topology.
func (d *MeshData) Topology() gfx.Topology { return d.topology }

// Indices reads the index buffer back, widened to 32 bits.
func (d *MeshData) Indices() ([]uint32, error) {
	raw := make([]byte, d.indices.Buffer.Size())
	if _, err := d.indices.Buffer.Read(raw, 0); err != nil {
		return nil, err
	}
	out := make([]uint32, d.indices.Count)
	for i := range out {
		if d.indices.Type == gfx.IndexTypeU16 {
			out[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		} else {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	}
	return out, nil
}

// Retain adds a reference.
func (d *MeshData) Retain() *MeshData {
	atomic.AddInt32(&d.refs, 1)
	return d
}

// Release drops a reference, the buffers are freed with the last one.
func (d *MeshData) Release() {
	if atomic.AddInt32(&d.refs, -1) == 0 {
		gfx.ReleaseAll(d.vertices, d.indices.Buffer)
	}
}
