// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/devblok/nice/util/collada"
	"github.com/devblok/nice/util/nmdl"
)

// package errors
var (
	ErrNoGeometry = errors.New("collada document has no geometry")
	ErrNoPosition = errors.New("collada triangles have no vertex positions")
)

// ImportCollada reads a Collada document and converts the first geometry
// into a Model. Every triangles element becomes one material.
func ImportCollada(fileContents []byte) (*Model, error) {
	var colladaModel collada.Collada
	if err := xml.Unmarshal(fileContents, &colladaModel); err != nil {
		return nil, err
	}
	if len(colladaModel.Geometries) == 0 {
		return nil, ErrNoGeometry
	}

	mesh := &colladaModel.Geometries[0].Mesh
	out := &Model{}
	for _, tris := range mesh.Triangles {
		start := len(out.Indices)
		if err := appendTriangles(out, mesh, tris); err != nil {
			return nil, err
		}
		out.Materials = append(out.Materials, nmdl.Material{
			IndexCount: uint32(len(out.Indices) - start),
			BaseColor:  [3]uint8{255, 255, 255},
		})
	}
	return out, nil
}

type channel struct {
	offset int
	stride int
	data   []float32
}

func (c *channel) at(index, i int) float32 {
	pos := index*c.stride + i
	if c.data == nil || i >= c.stride || pos >= len(c.data) {
		return 0
	}
	return c.data[pos]
}

func resolve(mesh *collada.Mesh, input collada.Input, width int) (*channel, error) {
	src, ok := mesh.FindSource(input.Source)
	if !ok {
		return nil, fmt.Errorf("collada source %s not found", input.Source)
	}
	stride := src.Accessor.Stride
	if stride == 0 {
		stride = width
	}
	return &channel{offset: int(input.Offset), stride: stride, data: src.Floats.Data}, nil
}

// appendTriangles expands every triangle corner into its own vertex.
func appendTriangles(out *Model, mesh *collada.Mesh, tris collada.Triangles) error {
	var (
		pos, nor, tex *channel
		err           error
	)
	stride := 0
	for _, in := range tris.Inputs {
		if int(in.Offset)+1 > stride {
			stride = int(in.Offset) + 1
		}
		switch in.Semantic {
		case "VERTEX":
			for _, vin := range mesh.Vertices.Inputs {
				if vin.Semantic == "POSITION" {
					vin.Offset = in.Offset
					if pos, err = resolve(mesh, vin, 3); err != nil {
						return err
					}
				}
			}
		case "NORMAL":
			if nor, err = resolve(mesh, in, 3); err != nil {
				return err
			}
		case "TEXCOORD":
			if tex == nil {
				if tex, err = resolve(mesh, in, 2); err != nil {
					return err
				}
			}
		}
	}
	if pos == nil {
		return ErrNoPosition
	}
	if nor == nil {
		nor = &channel{}
	}
	if tex == nil {
		tex = &channel{}
	}

	for corner := 0; corner+stride <= len(tris.Index); corner += stride {
		p := tris.Index[corner : corner+stride]
		var v Pntl32F
		for i := 0; i < 3; i++ {
			v.Pos[i] = pos.at(p[pos.offset], i)
			v.Normal[i] = nor.at(p[nor.offset], i)
		}
		if tex.data != nil {
			// collada puts v=0 at the bottom of the image
			v.Tex = [2]float32{tex.at(p[tex.offset], 0), 1 - tex.at(p[tex.offset], 1)}
		}
		out.Indices = append(out.Indices, uint32(len(out.Vertices)))
		out.Vertices = append(out.Vertices, v)
	}
	return nil
}
