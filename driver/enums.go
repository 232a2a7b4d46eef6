// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
)

// DriverStatus is returned by DriverMain.
type DriverStatus int32

// Driver statuses
const (
	StatusDriverInvalid DriverStatus = iota
	StatusDriverReady
	StatusDriverError
	StatusVersionInvalid
	StatusSignatureInvalid
)

var driverStatusNames = map[DriverStatus]string{
	StatusDriverInvalid:    "DRIVER_INVALID",
	StatusDriverReady:      "DRIVER_READY",
	StatusDriverError:      "DRIVER_ERROR",
	StatusVersionInvalid:   "VERSION_INVALID",
	StatusSignatureInvalid: "SIGNATURE_INVALID",
}

func (s DriverStatus) String() string {
	if name, ok := driverStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DriverStatus(%d)", int32(s))
}

// ErrUnknownPlatform is returned for platform tags outside the known set.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform identifies the windowing system of a window handle.
type Platform uint64

// Platforms
const (
	PlatformUndefined Platform = iota
	PlatformWin32
	PlatformX11
	PlatformWayland
	PlatformOSX
)

var platformNames = [...]string{"UNDEFINED", "WIN32", "X11", "WAYLAND", "OSX"}

// ParsePlatform validates a platform tag received from a host.
func ParsePlatform(tag uint64) (Platform, error) {
	if tag == uint64(PlatformUndefined) || tag > uint64(PlatformOSX) {
		return PlatformUndefined, fmt.Errorf("%w: %d", ErrUnknownPlatform, tag)
	}
	return Platform(tag), nil
}

func (p Platform) String() string {
	if p <= PlatformOSX {
		return platformNames[p]
	}
	return fmt.Sprintf("Platform(%d)", uint64(p))
}

// VertexFormat is the layout of vertices handed to MeshDataAllocPolygon.
type VertexFormat uint32

// Vertex formats
const (
	VertexFormatUndefined VertexFormat = iota
	VertexFormatPntl32F
	VertexFormatPntlb3F32
	VertexFormatPntlb7F32
)

// IndexFormat is the primitive assembly and width of indices.
type IndexFormat uint32

// Index formats
const (
	IndexFormatUndefined IndexFormat = iota
	IndexFormatSoup16U
	IndexFormatSoup32U
	IndexFormatStrip16U
	IndexFormatStrip32U
)

// Index returns the index width and topology of f.
func (f IndexFormat) Index() (gfx.IndexType, gfx.Topology, error) {
	switch f {
	case IndexFormatSoup16U:
		return gfx.IndexTypeU16, gfx.TopologyTriangleList, nil
	case IndexFormatSoup32U:
		return gfx.IndexTypeU32, gfx.TopologyTriangleList, nil
	case IndexFormatStrip16U:
		return gfx.IndexTypeU16, gfx.TopologyTriangleStrip, nil
	case IndexFormatStrip32U:
		return gfx.IndexTypeU32, gfx.TopologyTriangleStrip, nil
	default:
		return 0, 0, fmt.Errorf("%w: %d", ErrUnsupportedIndexFormat, f)
	}
}

// DistanceFormat is the encoding of distance field meshes.
type DistanceFormat uint32

// Distance formats
const (
	DistanceFormatUndefined DistanceFormat = iota
	DistanceFormatExact8
	DistanceFormatExact32F
	DistanceFormatBound8
	DistanceFormatBound32F
)

// PixelFormat is the encoding of image data.
type PixelFormat uint32

// Pixel formats
const (
	PixelFormatUndefined PixelFormat = iota
	PixelFormatRGBA8
	PixelFormatRGBA8Srgb
	PixelFormatRGBE8Srgb
	PixelFormatA2BGR10
	PixelFormatA2BGR10QRGB
	PixelFormatRGB9E5QRGB
	PixelFormatRGBA16F
	PixelFormatRG16F
	PixelFormatR16F
	PixelFormatRGBA32F
	PixelFormatRG32F
	PixelFormatR32F
	PixelFormatBC1
	PixelFormatBC1Srgb
	PixelFormatBC2
	PixelFormatBC2Srgb
	PixelFormatBC3
	PixelFormatBC3Srgb
	PixelFormatBC4
	PixelFormatBC4Signed
	PixelFormatBC5
	PixelFormatBC5Signed
	PixelFormatBC6H
	PixelFormatBC6HSigned
	PixelFormatBC7
	PixelFormatBC7Srgb
	PixelFormatInvalid
)

// Format returns the GPU format for p. Only the uncompressed four
// channel formats are supported.
func (p PixelFormat) Format() (gfx.Format, error) {
	switch p {
	case PixelFormatRGBA8:
		return gfx.FormatR8G8B8A8Unorm, nil
	case PixelFormatRGBA8Srgb:
		return gfx.FormatR8G8B8A8Srgb, nil
	case PixelFormatRGBA16F:
		return gfx.FormatR16G16B16A16Sfloat, nil
	case PixelFormatRGBA32F:
		return gfx.FormatR32G32B32A32Sfloat, nil
	default:
		return gfx.FormatUndefined, fmt.Errorf("%w: pixel format %d", gfx.ErrUnsupportedFormat, p)
	}
}

// ImageUsage flags describe how an image is used. The zero value is a
// static texture.
type ImageUsage int32

// Image usages
const (
	ImageUsageStatic   ImageUsage = 0
	ImageUsageTarget   ImageUsage = 1
	ImageUsageOverlay  ImageUsage = 2
	ImageUsageGlyph    ImageUsage = 4
	ImageUsageSkybox   ImageUsage = 8
	ImageUsageEmissive ImageUsage = 16
)

// Has reports whether every flag of f is set.
func (u ImageUsage) Has(f ImageUsage) bool {
	return u&f == f
}

// BufferStatus is the state of a Buffer.
type BufferStatus int32

// Buffer statuses
const (
	BufferNop BufferStatus = iota
	BufferRead
	BufferWrite
	BufferClosed
)

// TextOrigin is the point of a text run placed at the draw position.
type TextOrigin int32

// Text origins
const (
	TextBaseline TextOrigin = iota
	TextTopLeft
	TextTop
	TextTopRight
	TextLeft
	TextCenter
	TextRight
	TextBottomLeft
	TextBottom
	TextBottomRight
)

// Transform is a pose as passed by hosts, rotation is a quaternion
// with the scalar in W.
type Transform struct {
	Position [4]float32
	Rotation [4]float32
}

// Core converts t to an engine transform.
func (t Transform) Core() core.Transform {
	return core.Transform{
		Pos: mgl32.Vec4(t.Position),
		Rot: mgl32.Quat{W: t.Rotation[3], V: mgl32.Vec3{t.Rotation[0], t.Rotation[1], t.Rotation[2]}},
	}
}
