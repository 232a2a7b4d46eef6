// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering related features that renderers must implement.
// Backends (Vulkan, headless) implement Device and hand out the resources
// declared here, the engine core only ever talks to these interfaces.
package gfx

import (
	"errors"
	"time"
)

// package errors
var (
	ErrOutOfDate             = errors.New("swapchain is out of date")
	ErrUnsupportedDimensions = errors.New("surface dimensions are not supported")
	ErrUnsupportedFormat     = errors.New("format is not supported by the device")
	ErrOutOfDeviceMemory     = errors.New("out of device memory")
	ErrTimeout               = errors.New("wait timed out")
)

// Handle uniquely identifies a GPU object for the lifetime of the device.
// Handles are never reused, so comparing them tells object identity apart.
type Handle uint64

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Extent2D is a width and height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Extent3D is a width, height and depth triplet.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// ImageDesc describes an image to be created.
type ImageDesc struct {
	Extent    Extent2D
	Format    Format
	Usage     ImageUsage
	MipLevels uint32
}

// Image is a GPU image together with its default view.
type Image interface {
	Releasable

	// Handle identifies the image.
	Handle() Handle

	// Format returns the pixel format of the image.
	Format() Format

	// Extent returns the size of the base mip level.
	Extent() Extent2D

	// MipLevels returns the number of mip levels.
	MipLevels() uint32
}

// Buffer is a host visible GPU buffer.
type Buffer interface {
	Releasable

	// Handle identifies the buffer.
	Handle() Handle

	// Size returns the size of the buffer in bytes.
	Size() int

	// Usage returns the usage flags the buffer was created with.
	Usage() BufferUsage

	// Read copies buffer contents starting at off into p.
	Read(p []byte, off int) (int, error)

	// Write copies p into the buffer starting at off.
	Write(p []byte, off int) (int, error)
}

// SamplerDesc describes a texture sampler. Filtering is always linear
// with linear mip interpolation and repeat addressing.
type SamplerDesc struct {
	MaxAnisotropy float32
	MinLod        float32
	MaxLod        float32
}

// Sampler samples images in shaders.
type Sampler interface {
	Releasable
	Handle() Handle
}

// Shader is a compiled shader module.
type Shader interface {
	Releasable
	Handle() Handle
	Stage() ShaderStage
	Name() string
}

// RenderPass is a compiled render pass.
type RenderPass interface {
	Releasable
	Handle() Handle
	Desc() RenderPassDesc
}

// Framebuffer binds concrete images to the attachments of a render pass.
type Framebuffer interface {
	Releasable
	Handle() Handle
	Extent() Extent2D
	Attachments() []Image
}

// DescriptorSetLayout describes the bindings of a descriptor set.
type DescriptorSetLayout interface {
	Releasable
	Handle() Handle
	Bindings() []DescriptorBinding
}

// DescriptorSet is an allocated set of shader resource bindings.
type DescriptorSet interface {
	Releasable
	Handle() Handle

	// Image returns the image written at binding, nil when the binding
	// holds no image.
	Image(binding uint32) Image
}

// PipelineLayout is the interface between pipelines and their resources.
type PipelineLayout interface {
	Releasable
	Handle() Handle
	Desc() PipelineLayoutDesc
}

// GraphicsPipeline is a compiled graphics pipeline.
type GraphicsPipeline interface {
	Releasable
	Handle() Handle
	Desc() PipelineDesc
}

// Semaphore orders work on the GPU.
type Semaphore interface {
	Releasable
	Handle() Handle
}

// Fence signals GPU completion to the host.
type Fence interface {
	Releasable

	// Wait blocks until the fence is signaled or timeout passes,
	// returning ErrTimeout in the latter case.
	Wait(timeout time.Duration) error

	// Signaled reports the fence state without blocking.
	Signaled() bool
}

// CommandBuffer records GPU commands. Recording must happen
// between Begin and End, on a single goroutine.
type CommandBuffer interface {
	Releasable
	Handle() Handle

	Begin() error
	BeginRenderPass(rp RenderPass, fb Framebuffer, clear []ClearValue)
	NextSubpass()
	EndRenderPass()
	BindPipeline(p GraphicsPipeline)
	BindDescriptorSets(layout PipelineLayout, first uint32, sets ...DescriptorSet)
	BindVertexBuffer(b Buffer)
	BindIndexBuffer(b Buffer, t IndexType)
	PushConstants(layout PipelineLayout, stages ShaderStage, offset uint32, data []byte)
	Draw(vertexCount, firstVertex uint32)
	DrawIndexed(indexCount, firstIndex uint32)
	End() error
}

// SurfaceCapabilities describe what a presentation surface supports.
type SurfaceCapabilities struct {
	MinImageCount uint32
	MaxImageCount uint32

	// CurrentExtent is nil when the platform lets the
	// swapchain decide the surface size.
	CurrentExtent *Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D
}

// Surface is a platform window surface images get presented to.
type Surface interface {
	Releasable
	Capabilities() (SurfaceCapabilities, error)
}

// SwapchainDesc describes a swapchain to be created.
type SwapchainDesc struct {
	ImageCount uint32
	Extent     Extent2D
	Format     Format
}

// Swapchain is a ring of presentable images.
type Swapchain interface {
	Releasable
	Images() []Image
	Extent() Extent2D
	Format() Format

	// AcquireNextImage returns the index of the next image to render
	// into and the semaphore signaled once it is available.
	// ErrOutOfDate is returned when the swapchain needs recreation.
	AcquireNextImage(timeout time.Duration) (uint32, Semaphore, error)
}

// Queue executes recorded command buffers.
type Queue interface {

	// Submit submits cmd for execution. The work waits on wait when
	// it is not nil and signals signal when it is not nil. The
	// returned fence is signaled when the work completes. A nil cmd
	// submits no work, only the waits and signals.
	Submit(cmd CommandBuffer, wait, signal Semaphore) (Fence, error)

	// Present queues the swapchain image for presentation after wait.
	Present(sc Swapchain, index uint32, wait Semaphore) error
}

// Device creates GPU resources and owns the queue they are used on.
type Device interface {
	Releasable

	Queue() Queue
	WaitIdle() error

	NewImage(desc ImageDesc) (Image, error)
	NewBuffer(usage BufferUsage, data []byte) (Buffer, error)
	NewSampler(desc SamplerDesc) (Sampler, error)
	NewShader(stage ShaderStage, name string, code []byte) (Shader, error)
	NewRenderPass(desc RenderPassDesc) (RenderPass, error)
	NewFramebuffer(rp RenderPass, attachments []Image, extent Extent2D) (Framebuffer, error)
	NewDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	NewDescriptorSet(layout DescriptorSetLayout, writes []DescriptorWrite) (DescriptorSet, error)
	NewPipelineLayout(desc PipelineLayoutDesc) (PipelineLayout, error)
	NewGraphicsPipeline(desc PipelineDesc) (GraphicsPipeline, error)
	NewCommandBuffer() (CommandBuffer, error)
	NewSemaphore() (Semaphore, error)

	// NewSwapchain creates a swapchain for surface. When old is not nil
	// it is retired and released once the new swapchain exists, on
	// failure it stays usable.
	NewSwapchain(surface Surface, desc SwapchainDesc, old Swapchain) (Swapchain, error)

	// UploadImage copies pixels into the base level of img, optionally
	// generating the rest of the mip chain, and leaves the image ready
	// for sampling. The returned fence is signaled once the upload is done.
	UploadImage(img Image, pixels []byte, generateMips bool) (Fence, error)
}

// ReleaseAll releases every non-nil resource in order.
func ReleaseAll(rs ...Releasable) {
	for _, r := range rs {
		if r != nil {
			r.Release()
		}
	}
}
