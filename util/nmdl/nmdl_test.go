// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package nmdl_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/nice/util/nmdl"
)

func triangleModel() *nmdl.Model {
	return &nmdl.Model{
		Version:   [4]byte{0, 1, 0, 0},
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Lightmap:  [][2]float32{{0, 0}, {0, 0}, {0, 0}, {0, 0}},
		Indices:   []uint32{0, 1, 2, 2, 1, 3},
		Materials: []nmdl.Material{
			{IndexCount: 3, Texture1: "brick.ntx", BaseColor: [3]uint8{255, 0, 0}},
			{IndexCount: 3, Texture2: "lightmap.ntx", EmissiveBrightness: 300},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	in := triangleModel()
	var buf bytes.Buffer
	require.NoError(t, nmdl.Encode(&buf, in))

	out, err := nmdl.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRanges(t *testing.T) {
	ranges := triangleModel().Ranges()
	require.Len(t, ranges, 2)
	assert.Equal(t, nmdl.Range{Start: 0, End: 3}, ranges[0])
	assert.Equal(t, nmdl.Range{Start: 3, End: 6}, ranges[1])
	assert.Equal(t, uint32(3), ranges[1].Len())
}

func TestTexturePaths(t *testing.T) {
	m := triangleModel()
	assert.Equal(t, "models/brick.ntx", m.Materials[0].Texture1Path("models/wall.nmdl"))
	assert.Equal(t, "models/default.ntx", m.Materials[1].Texture1Path("models/wall.nmdl"))
	assert.Equal(t, "models/lightmap.ntx", m.Materials[1].Texture2Path("models/wall.nmdl"))
	assert.Equal(t, "models/default.ntx", m.Materials[0].Texture2Path("models/wall.nmdl"))
}

func TestDecodeErrors(t *testing.T) {
	_, err := nmdl.DecodeBytes([]byte("ntx"))
	assert.Equal(t, nmdl.ErrMagic, err)

	var buf bytes.Buffer
	require.NoError(t, nmdl.Encode(&buf, triangleModel()))
	data := buf.Bytes()

	_, err = nmdl.DecodeBytes(data[:len(data)-4])
	assert.Equal(t, nmdl.ErrTruncated, err, "texture names cut short")

	_, err = nmdl.DecodeBytes(data[:60])
	assert.Equal(t, nmdl.ErrTruncated, err, "vertex data cut short")
}

func TestEncodeMismatch(t *testing.T) {
	m := triangleModel()
	m.Normals = m.Normals[:1]
	assert.Error(t, nmdl.Encode(&bytes.Buffer{}, m))
}
