// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the vulkan renderer.
//
// Instance loads the Vulkan API and enumerates physical devices, Device
// implements gfx.Device on top of a logical device with a single graphics
// queue that is also used for presentation.
package vkr

import (
	"errors"
	"fmt"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// package errors
var (
	ErrNoDevice        = errors.New("no suitable vulkan device found")
	ErrForeignResource = errors.New("resource was not created by a vulkan device")
)

// vkError converts a vulkan result into an error prefixed with the
// name of the call, mapping results the engine reacts to onto gfx errors.
func vkError(call string, res vk.Result) error {
	switch res {
	case vk.Success, vk.Suboptimal:
		return nil
	case vk.ErrorOutOfDate:
		return gfx.ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return gfx.ErrTimeout
	case vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfHostMemory:
		return fmt.Errorf("%s: %w", call, gfx.ErrOutOfDeviceMemory)
	case vk.ErrorFormatNotSupported:
		return fmt.Errorf("%s: %w", call, gfx.ErrUnsupportedFormat)
	}
	if err := vk.Error(res); err != nil {
		return errors.New(call + ": " + err.Error())
	}
	return nil
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

func vkFormat(f gfx.Format) vk.Format {
	switch f {
	case gfx.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gfx.FormatR8G8B8A8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case gfx.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gfx.FormatB8G8R8A8Srgb:
		return vk.FormatB8g8r8a8Srgb
	case gfx.FormatA2B10G10R10UnormPack32:
		return vk.FormatA2b10g10r10UnormPack32
	case gfx.FormatR16G16B16A16Sfloat:
		return vk.FormatR16g16b16a16Sfloat
	case gfx.FormatR32G32B32A32Sfloat:
		return vk.FormatR32g32b32a32Sfloat
	case gfx.FormatD16Unorm:
		return vk.FormatD16Unorm
	default:
		return vk.FormatUndefined
	}
}

func gfxFormat(f vk.Format) gfx.Format {
	for _, g := range []gfx.Format{
		gfx.FormatR8G8B8A8Unorm,
		gfx.FormatR8G8B8A8Srgb,
		gfx.FormatB8G8R8A8Unorm,
		gfx.FormatB8G8R8A8Srgb,
		gfx.FormatA2B10G10R10UnormPack32,
		gfx.FormatR16G16B16A16Sfloat,
		gfx.FormatR32G32B32A32Sfloat,
		gfx.FormatD16Unorm,
	} {
		if vkFormat(g) == f {
			return g
		}
	}
	return gfx.FormatUndefined
}

func aspectMask(f gfx.Format) vk.ImageAspectFlags {
	if f.IsDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func imageUsage(u gfx.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	for bit, vkBit := range map[gfx.ImageUsage]vk.ImageUsageFlagBits{
		gfx.ImageUsageTransferSrc:     vk.ImageUsageTransferSrcBit,
		gfx.ImageUsageTransferDst:     vk.ImageUsageTransferDstBit,
		gfx.ImageUsageSampled:         vk.ImageUsageSampledBit,
		gfx.ImageUsageColorAttachment: vk.ImageUsageColorAttachmentBit,
		gfx.ImageUsageDepthAttachment: vk.ImageUsageDepthStencilAttachmentBit,
		gfx.ImageUsageInputAttachment: vk.ImageUsageInputAttachmentBit,
		gfx.ImageUsageTransient:       vk.ImageUsageTransientAttachmentBit,
	} {
		if u.Has(bit) {
			flags |= vkBit
		}
	}
	return vk.ImageUsageFlags(flags)
}

func bufferUsage(u gfx.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u&gfx.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if u&gfx.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u&gfx.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u&gfx.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}

func shaderStages(s gfx.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if s&gfx.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if s&gfx.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(flags)
}

func imageLayout(l gfx.Layout, f gfx.Format) vk.ImageLayout {
	switch l {
	case gfx.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gfx.LayoutDepthAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gfx.LayoutShaderRead:
		if f.IsDepth() {
			return vk.ImageLayoutDepthStencilReadOnlyOptimal
		}
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gfx.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

func attributeFormat(f gfx.AttributeFormat) vk.Format {
	switch f {
	case gfx.AttributeFloat2:
		return vk.FormatR32g32Sfloat
	case gfx.AttributeFloat3:
		return vk.FormatR32g32b32Sfloat
	case gfx.AttributeFloat4:
		return vk.FormatR32g32b32a32Sfloat
	case gfx.AttributeUint4:
		return vk.FormatR8g8b8a8Uint
	default:
		return vk.FormatUndefined
	}
}

func indexType(t gfx.IndexType) vk.IndexType {
	if t == gfx.IndexTypeU16 {
		return vk.IndexTypeUint16
	}
	return vk.IndexTypeUint32
}

func topology(t gfx.Topology) vk.PrimitiveTopology {
	if t == gfx.TopologyTriangleStrip {
		return vk.PrimitiveTopologyTriangleStrip
	}
	return vk.PrimitiveTopologyTriangleList
}
