// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package nmdl reads and writes nmdl models.
//
// All values are little endian. The file starts with the magic "nmdl",
// four version bytes and a header of absolute offsets:
//
//	u32 vertex count
//	u32 positions offset   ([3]f32 per vertex)
//	u32 normals offset     ([3]f32 per vertex)
//	u32 texcoords offset   ([2]f32 per vertex)
//	u32 lightmap offset    ([2]f32 per vertex)
//	u32 index count
//	u32 indices offset     (u32 per index)
//	u8  material count
//	u32 materials offset
//
// Every material covers the next IndexCount indices and names up to two
// textures relative to the model file.
package nmdl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"path"
)

// package errors
var (
	ErrMagic     = errors.New("nmdl: not an nmdl model")
	ErrTruncated = errors.New("nmdl: offset points past the end of the model")
)

// Magic starts every nmdl file.
const Magic = "nmdl"

// DefaultTexture is used for materials without a texture name.
const DefaultTexture = "default.ntx"

const (
	headerSize   = 4 + 4 + 7*4 + 1 + 4
	materialSize = 4 + 2 + 4 + 2 + 4 + 1 + 1 + 2 + 3
)

// Model is a decoded nmdl file.
type Model struct {
	Version   [4]byte
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	Lightmap  [][2]float32
	Indices   []uint32
	Materials []Material
}

// Material describes the surface of a consecutive index range.
type Material struct {
	IndexCount           uint32
	Texture1             string
	Texture2             string
	LightPenetration     uint8
	SubsurfaceScattering uint8
	EmissiveBrightness   uint16
	BaseColor            [3]uint8
}

// Texture1Path resolves the primary texture next to the model at modelPath.
func (m Material) Texture1Path(modelPath string) string {
	return texturePath(modelPath, m.Texture1)
}

// Texture2Path resolves the secondary texture next to the model at modelPath.
func (m Material) Texture2Path(modelPath string) string {
	return texturePath(modelPath, m.Texture2)
}

func texturePath(modelPath, name string) string {
	if name == "" {
		name = DefaultTexture
	}
	return path.Join(path.Dir(modelPath), name)
}

// Range is a half open index range.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of indices in the range.
func (r Range) Len() uint32 {
	return r.End - r.Start
}

// Ranges returns the index range of every material.
func (m *Model) Ranges() []Range {
	ranges := make([]Range, len(m.Materials))
	var start uint32
	for i, mat := range m.Materials {
		ranges[i] = Range{Start: start, End: start + mat.IndexCount}
		start += mat.IndexCount
	}
	return ranges
}

// Decode reads a whole model from r.
func Decode(r io.Reader) (*Model, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

type header struct {
	VertexCount     uint32
	PositionsOffset uint32
	NormalsOffset   uint32
	TexCoordsOffset uint32
	LightmapOffset  uint32
	IndexCount      uint32
	IndicesOffset   uint32
	MaterialCount   uint8
	MaterialsOffset uint32
}

type material struct {
	IndexCount           uint32
	Texture1Size         uint16
	Texture1Offset       uint32
	Texture2Size         uint16
	Texture2Offset       uint32
	LightPenetration     uint8
	SubsurfaceScattering uint8
	EmissiveBrightness   uint16
	BaseColor            [3]uint8
}

// DecodeBytes decodes a model held in memory.
func DecodeBytes(data []byte) (*Model, error) {
	if len(data) < headerSize || string(data[:4]) != Magic {
		return nil, ErrMagic
	}

	m := &Model{}
	copy(m.Version[:], data[4:8])

	var h header
	if err := binary.Read(bytes.NewReader(data[8:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("nmdl: reading header: %w", err)
	}

	read := func(offset uint32, v interface{}) error {
		if int(offset) > len(data) {
			return ErrTruncated
		}
		if err := binary.Read(bytes.NewReader(data[offset:]), binary.LittleEndian, v); err != nil {
			return ErrTruncated
		}
		return nil
	}

	m.Positions = make([][3]float32, h.VertexCount)
	m.Normals = make([][3]float32, h.VertexCount)
	m.TexCoords = make([][2]float32, h.VertexCount)
	m.Lightmap = make([][2]float32, h.VertexCount)
	m.Indices = make([]uint32, h.IndexCount)
	for _, block := range []struct {
		offset uint32
		dst    interface{}
	}{
		{h.PositionsOffset, m.Positions},
		{h.NormalsOffset, m.Normals},
		{h.TexCoordsOffset, m.TexCoords},
		{h.LightmapOffset, m.Lightmap},
		{h.IndicesOffset, m.Indices},
	} {
		if err := read(block.offset, block.dst); err != nil {
			return nil, err
		}
	}

	materials := make([]material, h.MaterialCount)
	if err := read(h.MaterialsOffset, materials); err != nil {
		return nil, err
	}

	name := func(offset uint32, size uint16) (string, error) {
		end := int(offset) + int(size)
		if end > len(data) {
			return "", ErrTruncated
		}
		return string(data[offset:end]), nil
	}

	for _, raw := range materials {
		mat := Material{
			IndexCount:           raw.IndexCount,
			LightPenetration:     raw.LightPenetration,
			SubsurfaceScattering: raw.SubsurfaceScattering,
			EmissiveBrightness:   raw.EmissiveBrightness,
			BaseColor:            raw.BaseColor,
		}
		var err error
		if mat.Texture1, err = name(raw.Texture1Offset, raw.Texture1Size); err != nil {
			return nil, err
		}
		if mat.Texture2, err = name(raw.Texture2Offset, raw.Texture2Size); err != nil {
			return nil, err
		}
		m.Materials = append(m.Materials, mat)
	}
	return m, nil
}

// Encode writes m to w. Vertex streams must all have the same length.
func Encode(w io.Writer, m *Model) error {
	count := len(m.Positions)
	if len(m.Normals) != count || len(m.TexCoords) != count || len(m.Lightmap) != count {
		return errors.New("nmdl: vertex streams differ in length")
	}
	if len(m.Materials) > 255 {
		return errors.New("nmdl: too many materials")
	}

	h := header{
		VertexCount:   uint32(count),
		IndexCount:    uint32(len(m.Indices)),
		MaterialCount: uint8(len(m.Materials)),
	}
	offset := uint32(headerSize)
	h.PositionsOffset, offset = offset, offset+uint32(count*12)
	h.NormalsOffset, offset = offset, offset+uint32(count*12)
	h.TexCoordsOffset, offset = offset, offset+uint32(count*8)
	h.LightmapOffset, offset = offset, offset+uint32(count*8)
	h.IndicesOffset, offset = offset, offset+uint32(len(m.Indices)*4)
	h.MaterialsOffset, offset = offset, offset+uint32(len(m.Materials)*materialSize)

	var names bytes.Buffer
	materials := make([]material, len(m.Materials))
	for i, mat := range m.Materials {
		materials[i] = material{
			IndexCount:           mat.IndexCount,
			Texture1Size:         uint16(len(mat.Texture1)),
			Texture1Offset:       offset + uint32(names.Len()),
			LightPenetration:     mat.LightPenetration,
			SubsurfaceScattering: mat.SubsurfaceScattering,
			EmissiveBrightness:   mat.EmissiveBrightness,
			BaseColor:            mat.BaseColor,
		}
		names.WriteString(mat.Texture1)
		materials[i].Texture2Size = uint16(len(mat.Texture2))
		materials[i].Texture2Offset = offset + uint32(names.Len())
		names.WriteString(mat.Texture2)
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write(m.Version[:])
	for _, v := range []interface{}{h, m.Positions, m.Normals, m.TexCoords, m.Lightmap, m.Indices, materials} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	buf.Write(names.Bytes())

	_, err := w.Write(buf.Bytes())
	return err
}
