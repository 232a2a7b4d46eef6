// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver_test

import (
	"encoding/binary"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/nice/driver"
	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/model"
)

func triangleVertices() []byte {
	return model.PackPntl32F([]model.Pntl32F{
		{Pos: [3]float32{0, 1, -2}, Normal: [3]float32{0, 0, 1}},
		{Pos: [3]float32{-1, -1, -2}, Normal: [3]float32{0, 0, 1}},
		{Pos: [3]float32{1, -1, -2}, Normal: [3]float32{0, 0, 1}},
	})
}

func u32Bytes(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func u16Bytes(vs ...uint16) []byte {
	out := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

func TestStripIndexRoundTrip(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	indices := []uint32{0, 1, 2, 1, 70000, 2}
	h, err := e.MeshDataAllocPolygon(
		driver.VertexFormatPntl32F, driver.NewBytesBuffer(triangleVertices()),
		driver.IndexFormatStrip32U, driver.NewBytesBuffer(u32Bytes(indices...)),
		nil,
	)
	c.Assert(err, qt.IsNil)
	data, err := e.MeshData(h)
	c.Assert(err, qt.IsNil)
	c.Assert(data.Topology(), qt.Equals, gfx.TopologyTriangleStrip)
	c.Assert(data.IndexBuffer().Type, qt.Equals, gfx.IndexTypeU32)
	c.Assert(data.VertexCount(), qt.Equals, uint32(3))

	got, err := data.Indices()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, indices)
}

func TestSoup16Indices(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	h, err := e.MeshDataAllocPolygon(
		driver.VertexFormatPntl32F, driver.NewBytesBuffer(triangleVertices()),
		driver.IndexFormatSoup16U, driver.NewBytesBuffer(u16Bytes(2, 1, 0)),
		nil,
	)
	c.Assert(err, qt.IsNil)
	data, err := e.MeshData(h)
	c.Assert(err, qt.IsNil)
	c.Assert(data.Topology(), qt.Equals, gfx.TopologyTriangleList)
	got, err := data.Indices()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []uint32{2, 1, 0})
}

func TestUnsupportedMeshFormats(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	vertices := driver.NewBytesBuffer(triangleVertices())
	indices := driver.NewBytesBuffer(u32Bytes(0, 1, 2))

	_, err := e.MeshDataAllocPolygon(driver.VertexFormatPntlb3F32, vertices, driver.IndexFormatSoup32U, indices, nil)
	c.Assert(errors.Is(err, driver.ErrUnsupportedVertexFormat), qt.Equals, true)
	_, err = e.MeshDataAllocPolygon(driver.VertexFormatUndefined, vertices, driver.IndexFormatSoup32U, indices, nil)
	c.Assert(errors.Is(err, driver.ErrUnsupportedVertexFormat), qt.Equals, true)
	_, err = e.MeshDataAllocPolygon(driver.VertexFormatPntl32F, vertices, driver.IndexFormatUndefined, indices, nil)
	c.Assert(errors.Is(err, driver.ErrUnsupportedIndexFormat), qt.Equals, true)

	// a trailing partial index
	_, err = e.MeshDataAllocPolygon(driver.VertexFormatPntl32F, vertices, driver.IndexFormatSoup32U, driver.NewBytesBuffer([]byte{1, 2}), nil)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestMeshGroupSky(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	group := e.MeshGroupAlloc(nil)
	img, err := e.ImageDataAlloc(driver.ImageUsageSkybox, 2, 2, driver.PixelFormatRGBA8Srgb, nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(e.MeshGroupSetSky(group, img), qt.IsNil)

	g, err := e.MeshGroup(group)
	c.Assert(err, qt.IsNil)
	data, err := e.ImageData(img)
	c.Assert(err, qt.IsNil)
	c.Assert(g.Sky(), qt.Equals, data.Texture())

	c.Assert(e.MeshGroupSetSky(group, 0), qt.IsNil)
	c.Assert(g.Sky() == nil, qt.Equals, true)
}
