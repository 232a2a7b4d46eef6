// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/nice/model"
	"github.com/devblok/nice/util/nmdl"
)

const triangleDocument = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Tri-mesh" name="Tri">
      <mesh>
        <source id="Tri-mesh-positions">
          <float_array id="Tri-mesh-positions-array" count="9">0 0 0
            1 0 0
            0 1 0</float_array>
          <technique_common>
            <accessor source="#Tri-mesh-positions-array" count="3" stride="3"/>
          </technique_common>
        </source>
        <source id="Tri-mesh-normals">
          <float_array id="Tri-mesh-normals-array" count="3">0 0 1</float_array>
          <technique_common>
            <accessor source="#Tri-mesh-normals-array" count="1" stride="3"/>
          </technique_common>
        </source>
        <source id="Tri-mesh-map-0">
          <float_array id="Tri-mesh-map-0-array" count="6">0 0 1 0 0 1</float_array>
          <technique_common>
            <accessor source="#Tri-mesh-map-0-array" count="3" stride="2"/>
          </technique_common>
        </source>
        <vertices id="Tri-mesh-vertices">
          <input semantic="POSITION" source="#Tri-mesh-positions"/>
        </vertices>
        <triangles material="Material-material" count="1">
          <input semantic="VERTEX" source="#Tri-mesh-vertices" offset="0"/>
          <input semantic="NORMAL" source="#Tri-mesh-normals" offset="1"/>
          <input semantic="TEXCOORD" source="#Tri-mesh-map-0" offset="2" set="0"/>
          <p>0 0 0 1 0 1 2 0 2</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestImportCollada(t *testing.T) {
	c := qt.New(t)
	m, err := model.ImportCollada([]byte(triangleDocument))
	c.Assert(err, qt.IsNil)

	c.Assert(m.Vertices, qt.HasLen, 3)
	c.Assert(m.Indices, qt.DeepEquals, []uint32{0, 1, 2})
	c.Assert(m.Materials, qt.HasLen, 1)
	c.Assert(m.Materials[0].IndexCount, qt.Equals, uint32(3))

	c.Assert(m.Vertices[1].Pos, qt.Equals, [3]float32{1, 0, 0})
	c.Assert(m.Vertices[2].Normal, qt.Equals, [3]float32{0, 0, 1})
	c.Assert(m.Vertices[2].Tex, qt.Equals, [2]float32{0, 0})
	c.Assert(m.Vertices[0].Tex, qt.Equals, [2]float32{0, 1})
}

func TestImportColladaErrors(t *testing.T) {
	c := qt.New(t)
	_, err := model.ImportCollada([]byte(`<COLLADA></COLLADA>`))
	c.Assert(err, qt.Equals, model.ErrNoGeometry)

	_, err = model.ImportCollada([]byte(`<COLLADA><library_geometries><geometry><mesh>
		<triangles count="1"><input semantic="NORMAL" source="#n" offset="0"/><p>0 0 0</p></triangles>
	</mesh></geometry></library_geometries></COLLADA>`))
	c.Assert(err, qt.ErrorMatches, "collada source #n not found")
}

func TestPackPntl32F(t *testing.T) {
	c := qt.New(t)
	vs := []model.Pntl32F{
		{Pos: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}, Tex: [2]float32{0.5, 0.25}},
		{Pos: [3]float32{-1, 0, 4}, Lightmap: [2]float32{1, 1}},
	}
	data := model.PackPntl32F(vs)
	c.Assert(data, qt.HasLen, 2*model.Pntl32FStride)
	c.Assert(model.UnpackPntl32F(data), qt.DeepEquals, vs)
	c.Assert(model.PackVert2D([]model.Vert2D{{}}), qt.HasLen, model.Vert2DStride)
}

func TestLayouts(t *testing.T) {
	c := qt.New(t)
	c.Assert(model.Pntl32FLayout().Stride, qt.Equals, uint32(model.Pntl32FStride))
	c.Assert(model.Pntl32FLayout().Attributes, qt.HasLen, 4)
	c.Assert(model.Vert2DLayout().Stride, qt.Equals, uint32(model.Vert2DStride))
}

func TestFromNmdl(t *testing.T) {
	c := qt.New(t)
	m := model.FromNmdl(&nmdl.Model{
		Positions: [][3]float32{{1, 2, 3}},
		Normals:   [][3]float32{{0, 0, 1}},
		TexCoords: [][2]float32{{0.5, 0.5}},
		Lightmap:  [][2]float32{{0.1, 0.2}},
		Indices:   []uint32{0, 0, 0, 0},
		Materials: []nmdl.Material{{IndexCount: 1}, {IndexCount: 3}},
	})
	c.Assert(m.Vertices, qt.DeepEquals, []model.Pntl32F{{
		Pos:      [3]float32{1, 2, 3},
		Normal:   [3]float32{0, 0, 1},
		Tex:      [2]float32{0.5, 0.5},
		Lightmap: [2]float32{0.1, 0.2},
	}})
	c.Assert(m.Ranges(), qt.DeepEquals, []nmdl.Range{{Start: 0, End: 1}, {Start: 1, End: 4}})
}
