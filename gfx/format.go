// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "fmt"

// Format is a pixel format of an image.
type Format int

// Supported formats
const (
	FormatUndefined Format = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatA2B10G10R10UnormPack32
	FormatR16G16B16A16Sfloat
	FormatR32G32B32A32Sfloat
	FormatD16Unorm
)

var formatNames = map[Format]string{
	FormatUndefined:              "Undefined",
	FormatR8G8B8A8Unorm:          "R8G8B8A8Unorm",
	FormatR8G8B8A8Srgb:           "R8G8B8A8Srgb",
	FormatB8G8R8A8Unorm:          "B8G8R8A8Unorm",
	FormatB8G8R8A8Srgb:           "B8G8R8A8Srgb",
	FormatA2B10G10R10UnormPack32: "A2B10G10R10UnormPack32",
	FormatR16G16B16A16Sfloat:     "R16G16B16A16Sfloat",
	FormatR32G32B32A32Sfloat:     "R32G32B32A32Sfloat",
	FormatD16Unorm:               "D16Unorm",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// BitsPerPixel returns the storage size of one pixel, 0 for unknown formats.
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatD16Unorm:
		return 16
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatB8G8R8A8Srgb, FormatA2B10G10R10UnormPack32:
		return 32
	case FormatR16G16B16A16Sfloat:
		return 64
	case FormatR32G32B32A32Sfloat:
		return 128
	default:
		return 0
	}
}

// ByteSize returns the number of bytes a w by h image takes, rounded up.
func (f Format) ByteSize(extent Extent2D) int {
	return (int(extent.Width)*int(extent.Height)*f.BitsPerPixel() + 7) / 8
}

// IsDepth reports whether the format holds depth.
func (f Format) IsDepth() bool {
	return f == FormatD16Unorm
}

// ImageUsage flags how an image is going to be used.
type ImageUsage uint32

// Image usage flags
const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageColorAttachment
	ImageUsageDepthAttachment
	ImageUsageInputAttachment
	ImageUsageTransient
)

// Has reports whether all flags in o are set.
func (u ImageUsage) Has(o ImageUsage) bool {
	return u&o == o
}

// BufferUsage flags how a buffer is going to be used.
type BufferUsage uint32

// Buffer usage flags
const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

// ShaderStage flags the shader stages of a pipeline.
type ShaderStage uint32

// Shader stages
const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

// IndexType is the width of a single index.
type IndexType int

// Index types
const (
	IndexTypeU16 IndexType = iota
	IndexTypeU32
)

// Size returns the size of one index in bytes.
func (t IndexType) Size() int {
	if t == IndexTypeU16 {
		return 2
	}
	return 4
}

func (t IndexType) String() string {
	if t == IndexTypeU16 {
		return "U16"
	}
	return "U32"
}

// Topology is the primitive assembly mode.
type Topology int

// Primitive topologies
const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

func (t Topology) String() string {
	if t == TopologyTriangleStrip {
		return "TriangleStrip"
	}
	return "TriangleList"
}
