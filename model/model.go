// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model defines the vertex formats the renderer consumes and
// converts model files into them.
package model

import (
	"encoding/binary"
	"math"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/util/nmdl"
)

// Pntl32F is a static mesh vertex: position, normal, texture and
// lightmap coordinates, all 32 bit floats.
type Pntl32F struct {
	Pos      [3]float32
	Normal   [3]float32
	Tex      [2]float32
	Lightmap [2]float32
}

// Pntlb3F32 is a Pntl32F skinned by up to three bones.
type Pntlb3F32 struct {
	Pntl32F
	BoneIDs     [3]float32
	BoneWeights [3]float32
}

// Pntlb7F32 is a Pntl32F skinned by up to seven bones.
type Pntlb7F32 struct {
	Pntl32F
	BoneIDs     [7]float32
	BoneWeights [7]float32
}

// Vert2D is a screen space vertex used by full screen passes.
type Vert2D struct {
	Pos [2]float32
	Tex [2]float32
}

// Vertex strides in bytes
const (
	Pntl32FStride   = 40
	Pntlb3F32Stride = Pntl32FStride + 24
	Pntlb7F32Stride = Pntl32FStride + 56
	Vert2DStride    = 16
)

// Pntl32FLayout is the vertex input of the geometry pipelines.
func Pntl32FLayout() gfx.VertexLayout {
	return gfx.VertexLayout{
		Stride: Pntl32FStride,
		Attributes: []gfx.VertexAttribute{
			{Location: 0, Offset: 0, Format: gfx.AttributeFloat3},
			{Location: 1, Offset: 12, Format: gfx.AttributeFloat3},
			{Location: 2, Offset: 24, Format: gfx.AttributeFloat2},
			{Location: 3, Offset: 32, Format: gfx.AttributeFloat2},
		},
	}
}

// Vert2DLayout is the vertex input of the full screen passes.
func Vert2DLayout() gfx.VertexLayout {
	return gfx.VertexLayout{
		Stride: Vert2DStride,
		Attributes: []gfx.VertexAttribute{
			{Location: 0, Offset: 0, Format: gfx.AttributeFloat2},
			{Location: 1, Offset: 8, Format: gfx.AttributeFloat2},
		},
	}
}

func putFloats(dst []byte, fs ...float32) []byte {
	for _, f := range fs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// PackPntl32F serializes vertices the way the GPU reads them.
func PackPntl32F(vs []Pntl32F) []byte {
	out := make([]byte, 0, len(vs)*Pntl32FStride)
	for _, v := range vs {
		out = putFloats(out, v.Pos[:]...)
		out = putFloats(out, v.Normal[:]...)
		out = putFloats(out, v.Tex[:]...)
		out = putFloats(out, v.Lightmap[:]...)
	}
	return out
}

// UnpackPntl32F is the inverse of PackPntl32F. Trailing bytes that do
// not form a whole vertex are ignored.
func UnpackPntl32F(data []byte) []Pntl32F {
	vs := make([]Pntl32F, len(data)/Pntl32FStride)
	for i := range vs {
		var f [10]float32
		for j := range f {
			f[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*Pntl32FStride+j*4:]))
		}
		vs[i] = Pntl32F{
			Pos:      [3]float32{f[0], f[1], f[2]},
			Normal:   [3]float32{f[3], f[4], f[5]},
			Tex:      [2]float32{f[6], f[7]},
			Lightmap: [2]float32{f[8], f[9]},
		}
	}
	return vs
}

// PackVert2D serializes screen space vertices.
func PackVert2D(vs []Vert2D) []byte {
	out := make([]byte, 0, len(vs)*Vert2DStride)
	for _, v := range vs {
		out = putFloats(out, v.Pos[:]...)
		out = putFloats(out, v.Tex[:]...)
	}
	return out
}

// Model is mesh data ready to be uploaded: a vertex soup indexed by
// triangle lists and split into material ranges.
type Model struct {
	Vertices  []Pntl32F
	Indices   []uint32
	Materials []nmdl.Material
}

// FromNmdl interleaves the vertex streams of an nmdl model.
func FromNmdl(m *nmdl.Model) *Model {
	out := &Model{
		Vertices:  make([]Pntl32F, len(m.Positions)),
		Indices:   m.Indices,
		Materials: m.Materials,
	}
	for i := range out.Vertices {
		out.Vertices[i] = Pntl32F{
			Pos:      m.Positions[i],
			Normal:   m.Normals[i],
			Tex:      m.TexCoords[i],
			Lightmap: m.Lightmap[i],
		}
	}
	return out
}

// VertexData returns the packed vertex buffer contents.
func (m *Model) VertexData() []byte {
	return PackPntl32F(m.Vertices)
}

// Ranges returns the index range of every material.
func (m *Model) Ranges() []nmdl.Range {
	return (&nmdl.Model{Materials: m.Materials}).Ranges()
}
