// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"image"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas.
// rowPitch is applied only when it is large enough to hold a row.
func GetPixels(img image.Image, rowPitch int) []uint8 {
	bounds := img.Bounds()
	newImg := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if rowPitch > newImg.Stride {
		newImg.Pix = make([]uint8, rowPitch*bounds.Dy())
		newImg.Stride = rowPitch
	}
	draw.Draw(newImg, newImg.Bounds(), img, bounds.Min, draw.Src)
	return newImg.Pix
}

// pushConstants packs float32 values for a push constant block.
type pushConstants []byte

func (p pushConstants) floats(fs ...float32) pushConstants {
	for _, f := range fs {
		p = binary.LittleEndian.AppendUint32(p, math.Float32bits(f))
	}
	return p
}

func (p pushConstants) vec4(v mgl32.Vec4) pushConstants {
	return p.floats(v[0], v[1], v[2], v[3])
}

// vec3 writes v padded to 16 bytes as std140 expects.
func (p pushConstants) vec3(v mgl32.Vec3) pushConstants {
	return p.floats(v[0], v[1], v[2], 0)
}

// quat writes q as [x, y, z, w].
func (p pushConstants) quat(q mgl32.Quat) pushConstants {
	return p.floats(q.V[0], q.V[1], q.V[2], q.W)
}

// U16Bytes packs indices as little endian u16 values.
func U16Bytes(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

// U32Bytes packs indices as little endian u32 values.
func U32Bytes(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}
