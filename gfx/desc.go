// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "time"

// LoadOp is what happens to an attachment when a render pass begins.
type LoadOp int

// Load operations
const (
	LoadOpDontCare LoadOp = iota
	LoadOpClear
	LoadOpLoad
)

// StoreOp is what happens to an attachment when a render pass ends.
type StoreOp int

// Store operations
const (
	StoreOpDontCare StoreOp = iota
	StoreOpStore
)

// Layout is the final layout of an attachment.
type Layout int

// Image layouts
const (
	LayoutUndefined Layout = iota
	LayoutColorAttachment
	LayoutDepthAttachment
	LayoutShaderRead
	LayoutPresent
)

// AttachmentDesc describes one render pass attachment.
type AttachmentDesc struct {
	Format      Format
	Load        LoadOp
	Store       StoreOp
	FinalLayout Layout
}

// NoAttachment marks an absent depth attachment in a subpass.
const NoAttachment = -1

// SubpassDesc lists attachment indices a subpass reads and writes.
type SubpassDesc struct {
	Colors []int
	Inputs []int
	Depth  int
}

// RenderPassDesc describes a render pass. Subpasses are
// executed in order, each one depending on the previous.
type RenderPassDesc struct {
	Attachments []AttachmentDesc
	Subpasses   []SubpassDesc
}

// DescriptorType is the kind of resource a binding holds.
type DescriptorType int

// Descriptor types
const (
	DescriptorCombinedImageSampler DescriptorType = iota
	DescriptorInputAttachment
)

// DescriptorBinding is one binding of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  ShaderStage
}

// DescriptorWrite fills a binding of a descriptor set.
// Sampler is ignored for input attachments.
type DescriptorWrite struct {
	Binding uint32
	Image   Image
	Sampler Sampler
}

// PipelineLayoutDesc describes a pipeline layout.
type PipelineLayoutDesc struct {
	SetLayouts       []DescriptorSetLayout
	PushConstantSize uint32
	PushStages       ShaderStage
}

// AttributeFormat is the format of a single vertex attribute.
type AttributeFormat int

// Vertex attribute formats
const (
	AttributeFloat2 AttributeFormat = iota
	AttributeFloat3
	AttributeFloat4
	AttributeUint4
)

// VertexAttribute places one attribute inside a vertex.
type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   AttributeFormat
}

// VertexLayout describes interleaved vertices of a single binding.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// BlendMode is the color blending applied to all color attachments.
type BlendMode int

// Blend modes
const (
	BlendNone BlendMode = iota
	BlendAdditive
)

// CullMode selects faces to be culled.
type CullMode int

// Cull modes
const (
	CullNone CullMode = iota
	CullBack
)

// PipelineDesc describes a graphics pipeline. Viewport and
// scissor are fixed to Extent.
type PipelineDesc struct {
	Name     string
	Vertex   Shader
	Fragment Shader
	Layout   PipelineLayout

	VertexLayout VertexLayout
	Topology     Topology
	Cull         CullMode
	DepthTest    bool
	DepthWrite   bool
	Blend        BlendMode

	RenderPass RenderPass
	Subpass    uint32
	Extent     Extent2D
}

// ClearValue is the clear color or depth of one attachment,
// which one is used depends on the attachment format.
type ClearValue struct {
	Color [4]float32
	Depth float32
}

// ClearColor returns a color clear value.
func ClearColor(r, g, b, a float32) ClearValue {
	return ClearValue{Color: [4]float32{r, g, b, a}}
}

// ClearDepth returns a depth clear value.
func ClearDepth(d float32) ClearValue {
	return ClearValue{Depth: d}
}

type completedFence struct{}

func (completedFence) Wait(time.Duration) error { return nil }
func (completedFence) Signaled() bool           { return true }
func (completedFence) Release()                 {}

// CompletedFence is a fence that is always signaled. It stands in for
// work that never made it to the GPU.
var CompletedFence Fence = completedFence{}
