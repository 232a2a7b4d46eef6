// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"io"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// Buffer implements gfx.Buffer on host visible memory.
type Buffer struct {
	device *Device
	handle gfx.Handle
	buffer vk.Buffer
	memory Memory
	size   int
	usage  gfx.BufferUsage
}

// Handle implements gfx.Buffer.
func (b *Buffer) Handle() gfx.Handle { return b.handle }

// Size implements gfx.Buffer.
func (b *Buffer) Size() int { return b.size }

// Usage implements gfx.Buffer.
func (b *Buffer) Usage() gfx.BufferUsage { return b.usage }

// Read implements gfx.Buffer.
func (b *Buffer) Read(p []byte, off int) (int, error) {
	if off < 0 || off >= b.size {
		return 0, io.EOF
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return 0, err
	}
	return copy(p, mapped[off:b.size]), nil
}

// Write implements gfx.Buffer.
func (b *Buffer) Write(p []byte, off int) (int, error) {
	if off < 0 || off+len(p) > b.size {
		return 0, io.ErrShortWrite
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return 0, err
	}
	return copy(mapped[off:b.size], p), nil
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	if b.buffer == nil {
		return
	}
	vk.DestroyBuffer(b.device.device, b.buffer, nil)
	b.memory.Release()
	b.buffer = nil
}

// Image implements gfx.Image. Swapchain images are not owned, releasing
// them only destroys the view.
type Image struct {
	device *Device
	handle gfx.Handle
	image  vk.Image
	view   vk.ImageView
	memory Memory
	owned  bool
	desc   gfx.ImageDesc
}

// Handle implements gfx.Image.
func (i *Image) Handle() gfx.Handle { return i.handle }

// Format implements gfx.Image.
func (i *Image) Format() gfx.Format { return i.desc.Format }

// Extent implements gfx.Image.
func (i *Image) Extent() gfx.Extent2D { return i.desc.Extent }

// MipLevels implements gfx.Image.
func (i *Image) MipLevels() uint32 { return i.desc.MipLevels }

// Release implements gfx.Image.
func (i *Image) Release() {
	if i.view != nil {
		vk.DestroyImageView(i.device.device, i.view, nil)
		i.view = nil
	}
	if i.owned && i.image != nil {
		vk.DestroyImage(i.device.device, i.image, nil)
		i.memory.Release()
		i.image = nil
	}
}

func (d *Device) createImageView(img vk.Image, desc gfx.ImageDesc) (vk.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   vkFormat(desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectMask(desc.Format),
			LevelCount: desc.MipLevels,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	if err := vkError("vk.CreateImageView()", vk.CreateImageView(d.device, &ivci, nil, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

// NewImage implements gfx.Device. Images are optimally tiled in device local memory.
func (d *Device) NewImage(desc gfx.ImageDesc) (gfx.Image, error) {
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, gfx.ErrUnsupportedDimensions
	}
	format := vkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, gfx.ErrUnsupportedFormat
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}

	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  1,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var image vk.Image
	if err := vkError("vk.CreateImage()", vk.CreateImage(d.device, &ici, nil, &image)); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &req)
	req.Deref()

	memory, err := d.memory.Malloc(req, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.device, image, nil)
		return nil, err
	}
	if err := vkError("vk.BindImageMemory()", vk.BindImageMemory(d.device, image, memory.Get(), 0)); err != nil {
		memory.Release()
		vk.DestroyImage(d.device, image, nil)
		return nil, err
	}

	view, err := d.createImageView(image, desc)
	if err != nil {
		memory.Release()
		vk.DestroyImage(d.device, image, nil)
		return nil, err
	}

	return &Image{
		device: d,
		handle: d.nextHandle(),
		image:  image,
		view:   view,
		memory: memory,
		owned:  true,
		desc:   desc,
	}, nil
}

func imageBarrier(cmd vk.CommandBuffer, img *Image, baseLevel, levels uint32, old, new vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits, srcStage, dstStage vk.PipelineStageFlagBits) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           old,
		NewLayout:           new,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:   aspectMask(img.desc.Format),
			BaseMipLevel: baseLevel,
			LevelCount:   levels,
			LayerCount:   1,
		},
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// UploadImage implements gfx.Device. Pixels go through a staging buffer
// that is freed once the returned fence is observed signaled.
func (d *Device) UploadImage(image gfx.Image, pixels []byte, generateMips bool) (gfx.Fence, error) {
	img, ok := image.(*Image)
	if !ok || !img.owned {
		return nil, ErrForeignResource
	}
	if want := img.desc.Format.ByteSize(img.desc.Extent); len(pixels) != want {
		return nil, fmt.Errorf("upload of %d bytes into a %d byte image", len(pixels), want)
	}

	staging, memory, err := d.createBuffer(len(pixels), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	release := func() {
		vk.DestroyBuffer(d.device, staging, nil)
		memory.Release()
	}
	mapped, err := memory.Map()
	if err != nil {
		release()
		return nil, err
	}
	copy(mapped, pixels)
	memory.Unmap()

	cmd, err := d.allocateCommandBuffer()
	if err != nil {
		release()
		return nil, err
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vkError("vk.BeginCommandBuffer()", vk.BeginCommandBuffer(cmd, &cbbi)); err != nil {
		d.freeCommandBuffer(cmd)
		release()
		return nil, err
	}

	levels := img.desc.MipLevels
	final := vk.ImageLayoutShaderReadOnlyOptimal
	if img.desc.Format.IsDepth() {
		final = vk.ImageLayoutDepthStencilReadOnlyOptimal
	}

	imageBarrier(cmd, img, 0, levels, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessTransferWriteBit, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit)

	bic := vk.BufferImageCopy{
		ImageExtent: vk.Extent3D{
			Width:  img.desc.Extent.Width,
			Height: img.desc.Extent.Height,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: aspectMask(img.desc.Format),
			LayerCount: 1,
		},
	}
	vk.CmdCopyBufferToImage(cmd, staging, img.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{bic})

	if !generateMips {
		levels = 1
		if img.desc.MipLevels > 1 {
			// levels past the base stay undefined
			imageBarrier(cmd, img, 1, img.desc.MipLevels-1, vk.ImageLayoutTransferDstOptimal, final,
				vk.AccessTransferWriteBit, vk.AccessShaderReadBit, vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)
		}
	}

	width, height := int32(img.desc.Extent.Width), int32(img.desc.Extent.Height)
	for level := uint32(1); level < levels; level++ {
		imageBarrier(cmd, img, level-1, 1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal,
			vk.AccessTransferWriteBit, vk.AccessTransferReadBit, vk.PipelineStageTransferBit, vk.PipelineStageTransferBit)

		next := func(v int32) int32 {
			if v > 1 {
				return v / 2
			}
			return 1
		}
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: aspectMask(img.desc.Format),
				MipLevel:   level - 1,
				LayerCount: 1,
			},
			SrcOffsets: [2]vk.Offset3D{{}, {X: width, Y: height, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: aspectMask(img.desc.Format),
				MipLevel:   level,
				LayerCount: 1,
			},
			DstOffsets: [2]vk.Offset3D{{}, {X: next(width), Y: next(height), Z: 1}},
		}
		vk.CmdBlitImage(cmd, img.image, vk.ImageLayoutTransferSrcOptimal, img.image, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		imageBarrier(cmd, img, level-1, 1, vk.ImageLayoutTransferSrcOptimal, final,
			vk.AccessTransferReadBit, vk.AccessShaderReadBit, vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)
		width, height = next(width), next(height)
	}
	imageBarrier(cmd, img, levels-1, 1, vk.ImageLayoutTransferDstOptimal, final,
		vk.AccessTransferWriteBit, vk.AccessShaderReadBit, vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)

	if err := vkError("vk.EndCommandBuffer()", vk.EndCommandBuffer(cmd)); err != nil {
		d.freeCommandBuffer(cmd)
		release()
		return nil, err
	}

	fence, err := d.queue.submit(cmd, nil, nil)
	if err != nil {
		d.freeCommandBuffer(cmd)
		release()
		return nil, err
	}
	fence.onSignaled(func() {
		d.freeCommandBuffer(cmd)
		release()
	})
	return fence, nil
}
