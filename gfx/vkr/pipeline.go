// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"fmt"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// Sampler implements gfx.Sampler.
type Sampler struct {
	device  *Device
	handle  gfx.Handle
	sampler vk.Sampler
}

// Handle implements gfx.Sampler.
func (s *Sampler) Handle() gfx.Handle { return s.handle }

// Release implements gfx.Sampler.
func (s *Sampler) Release() {
	if s.sampler != nil {
		vk.DestroySampler(s.device.device, s.sampler, nil)
		s.sampler = nil
	}
}

// NewSampler implements gfx.Device.
func (d *Device) NewSampler(desc gfx.SamplerDesc) (gfx.Sampler, error) {
	anisotropy := vk.Bool32(vk.False)
	if desc.MaxAnisotropy > 1 {
		anisotropy = vk.True
	}
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        anisotropy,
		MaxAnisotropy:           desc.MaxAnisotropy,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MinLod:                  desc.MinLod,
		MaxLod:                  desc.MaxLod,
	}

	var sampler vk.Sampler
	if err := vkError("vk.CreateSampler()", vk.CreateSampler(d.device, &sci, nil, &sampler)); err != nil {
		return nil, err
	}
	return &Sampler{device: d, handle: d.nextHandle(), sampler: sampler}, nil
}

// Shader implements gfx.Shader.
type Shader struct {
	device *Device
	handle gfx.Handle
	stage  gfx.ShaderStage
	name   string
	shader vk.ShaderModule
}

// Handle implements gfx.Shader.
func (s *Shader) Handle() gfx.Handle { return s.handle }

// Stage implements gfx.Shader.
func (s *Shader) Stage() gfx.ShaderStage { return s.stage }

// Name implements gfx.Shader.
func (s *Shader) Name() string { return s.name }

// Release implements gfx.Shader.
func (s *Shader) Release() {
	if s.shader != nil {
		vk.DestroyShaderModule(s.device.device, s.shader, nil)
		s.shader = nil
	}
}

// sliceUint32 reslices SPIR-V bytes into the words vulkan expects.
func sliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}

// NewShader implements gfx.Device.
func (d *Device) NewShader(stage gfx.ShaderStage, name string, code []byte) (gfx.Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader %s: code size %d is not a multiple of 4", name, len(code))
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var shader vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.device, &smci, nil, &shader)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(%s): %s", name, err.Error())
	}
	return &Shader{device: d, handle: d.nextHandle(), stage: stage, name: name, shader: shader}, nil
}

// RenderPass implements gfx.RenderPass.
type RenderPass struct {
	device *Device
	handle gfx.Handle
	desc   gfx.RenderPassDesc
	pass   vk.RenderPass
}

// Handle implements gfx.RenderPass.
func (r *RenderPass) Handle() gfx.Handle { return r.handle }

// Desc implements gfx.RenderPass.
func (r *RenderPass) Desc() gfx.RenderPassDesc { return r.desc }

// Release implements gfx.RenderPass.
func (r *RenderPass) Release() {
	if r.pass != nil {
		vk.DestroyRenderPass(r.device.device, r.pass, nil)
		r.pass = nil
	}
}

func loadOp(op gfx.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gfx.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case gfx.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func storeOp(op gfx.StoreOp) vk.AttachmentStoreOp {
	if op == gfx.StoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

// NewRenderPass implements gfx.Device. Every subpass depends on the
// previous one by region, attachment writes become visible to input
// attachment reads of the next subpass.
func (d *Device) NewRenderPass(desc gfx.RenderPassDesc) (gfx.RenderPass, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		if vkFormat(a.Format) == vk.FormatUndefined {
			return nil, gfx.ErrUnsupportedFormat
		}
		attachments[i] = vk.AttachmentDescription{
			Format:         vkFormat(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp(a.Load),
			StoreOp:        storeOp(a.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    imageLayout(a.FinalLayout, a.Format),
		}
	}

	subpasses := make([]vk.SubpassDescription, len(desc.Subpasses))
	for i, sp := range desc.Subpasses {
		colors := make([]vk.AttachmentReference, len(sp.Colors))
		for j, c := range sp.Colors {
			colors[j] = vk.AttachmentReference{Attachment: uint32(c), Layout: vk.ImageLayoutColorAttachmentOptimal}
		}
		inputs := make([]vk.AttachmentReference, len(sp.Inputs))
		for j, in := range sp.Inputs {
			inputs[j] = vk.AttachmentReference{
				Attachment: uint32(in),
				Layout:     imageLayout(gfx.LayoutShaderRead, desc.Attachments[in].Format),
			}
		}
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colors)),
			PColorAttachments:    colors,
			InputAttachmentCount: uint32(len(inputs)),
			PInputAttachments:    inputs,
		}
		if sp.Depth != gfx.NoAttachment {
			layout := vk.ImageLayoutDepthStencilAttachmentOptimal
			for _, in := range sp.Inputs {
				if in == sp.Depth {
					layout = vk.ImageLayoutDepthStencilReadOnlyOptimal
				}
			}
			subpasses[i].PDepthStencilAttachment = &vk.AttachmentReference{
				Attachment: uint32(sp.Depth),
				Layout:     layout,
			}
		}
	}

	writes := vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | writes),
	}}
	for i := 1; i < len(subpasses); i++ {
		dependencies = append(dependencies, vk.SubpassDependency{
			SrcSubpass:      uint32(i - 1),
			DstSubpass:      uint32(i),
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageLateFragmentTestsBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask:   vk.AccessFlags(writes),
			DstAccessMask:   vk.AccessFlags(vk.AccessInputAttachmentReadBit | vk.AccessDepthStencilAttachmentReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		})
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	if err := vkError("vk.CreateRenderPass()", vk.CreateRenderPass(d.device, &rpci, nil, &renderPass)); err != nil {
		return nil, err
	}
	return &RenderPass{device: d, handle: d.nextHandle(), desc: desc, pass: renderPass}, nil
}

// Framebuffer implements gfx.Framebuffer.
type Framebuffer struct {
	device      *Device
	handle      gfx.Handle
	framebuffer vk.Framebuffer
	extent      gfx.Extent2D
	attachments []gfx.Image
}

// Handle implements gfx.Framebuffer.
func (f *Framebuffer) Handle() gfx.Handle { return f.handle }

// Extent implements gfx.Framebuffer.
func (f *Framebuffer) Extent() gfx.Extent2D { return f.extent }

// Attachments implements gfx.Framebuffer.
func (f *Framebuffer) Attachments() []gfx.Image { return f.attachments }

// Release implements gfx.Framebuffer.
func (f *Framebuffer) Release() {
	if f.framebuffer != nil {
		vk.DestroyFramebuffer(f.device.device, f.framebuffer, nil)
		f.framebuffer = nil
	}
}

// NewFramebuffer implements gfx.Device.
func (d *Device) NewFramebuffer(rp gfx.RenderPass, attachments []gfx.Image, extent gfx.Extent2D) (gfx.Framebuffer, error) {
	pass, ok := rp.(*RenderPass)
	if !ok {
		return nil, ErrForeignResource
	}
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		img, ok := a.(*Image)
		if !ok {
			return nil, ErrForeignResource
		}
		views[i] = img.view
	}

	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if err := vkError("vk.CreateFramebuffer()", vk.CreateFramebuffer(d.device, &fci, nil, &framebuffer)); err != nil {
		return nil, err
	}
	return &Framebuffer{
		device:      d,
		handle:      d.nextHandle(),
		framebuffer: framebuffer,
		extent:      extent,
		attachments: append([]gfx.Image(nil), attachments...),
	}, nil
}

// DescriptorSetLayout implements gfx.DescriptorSetLayout.
type DescriptorSetLayout struct {
	device   *Device
	handle   gfx.Handle
	layout   vk.DescriptorSetLayout
	bindings []gfx.DescriptorBinding
}

// Handle implements gfx.DescriptorSetLayout.
func (l *DescriptorSetLayout) Handle() gfx.Handle { return l.handle }

// Bindings implements gfx.DescriptorSetLayout.
func (l *DescriptorSetLayout) Bindings() []gfx.DescriptorBinding { return l.bindings }

// Release implements gfx.DescriptorSetLayout.
func (l *DescriptorSetLayout) Release() {
	if l.layout != nil {
		vk.DestroyDescriptorSetLayout(l.device.device, l.layout, nil)
		l.layout = nil
	}
}

func descriptorType(t gfx.DescriptorType) vk.DescriptorType {
	if t == gfx.DescriptorInputAttachment {
		return vk.DescriptorTypeInputAttachment
	}
	return vk.DescriptorTypeCombinedImageSampler
}

// NewDescriptorSetLayout implements gfx.Device.
func (d *Device) NewDescriptorSetLayout(bindings []gfx.DescriptorBinding) (gfx.DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: 1,
			StageFlags:      shaderStages(b.Stages),
		}
	}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var layout vk.DescriptorSetLayout
	if err := vkError("vk.CreateDescriptorSetLayout()", vk.CreateDescriptorSetLayout(d.device, &dslci, nil, &layout)); err != nil {
		return nil, err
	}
	return &DescriptorSetLayout{
		device:   d,
		handle:   d.nextHandle(),
		layout:   layout,
		bindings: append([]gfx.DescriptorBinding(nil), bindings...),
	}, nil
}

// DescriptorSet implements gfx.DescriptorSet.
type DescriptorSet struct {
	device *Device
	handle gfx.Handle
	set    vk.DescriptorSet
	images map[uint32]gfx.Image
}

// Handle implements gfx.DescriptorSet.
func (s *DescriptorSet) Handle() gfx.Handle { return s.handle }

// Image implements gfx.DescriptorSet.
func (s *DescriptorSet) Image(binding uint32) gfx.Image { return s.images[binding] }

// Release returns the set to the device pool.
func (s *DescriptorSet) Release() {
	if s.set == nil {
		return
	}
	s.device.poolMutex.Lock()
	vk.FreeDescriptorSets(s.device.device, s.device.descriptorPool, 1, []vk.DescriptorSet{s.set})
	s.device.poolMutex.Unlock()
	s.set = nil
}

// NewDescriptorSet implements gfx.Device.
func (d *Device) NewDescriptorSet(layout gfx.DescriptorSetLayout, writes []gfx.DescriptorWrite) (gfx.DescriptorSet, error) {
	l, ok := layout.(*DescriptorSetLayout)
	if !ok {
		return nil, ErrForeignResource
	}
	types := make(map[uint32]gfx.DescriptorType, len(l.bindings))
	for _, b := range l.bindings {
		types[b.Binding] = b.Type
	}

	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{l.layout},
	}

	var set vk.DescriptorSet
	d.poolMutex.Lock()
	res := vk.AllocateDescriptorSets(d.device, &dsai, &set)
	d.poolMutex.Unlock()
	if err := vkError("vk.AllocateDescriptorSets()", res); err != nil {
		return nil, err
	}

	s := &DescriptorSet{device: d, handle: d.nextHandle(), set: set, images: make(map[uint32]gfx.Image)}
	wds := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		t, ok := types[w.Binding]
		if !ok {
			s.Release()
			return nil, fmt.Errorf("descriptor binding %d is not part of the layout", w.Binding)
		}
		img, ok := w.Image.(*Image)
		if !ok {
			s.Release()
			return nil, ErrForeignResource
		}
		dii := vk.DescriptorImageInfo{
			ImageView:   img.view,
			ImageLayout: imageLayout(gfx.LayoutShaderRead, img.desc.Format),
		}
		if t == gfx.DescriptorCombinedImageSampler {
			sampler, ok := w.Sampler.(*Sampler)
			if !ok {
				s.Release()
				return nil, ErrForeignResource
			}
			dii.Sampler = sampler.sampler
		}
		wds = append(wds, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      w.Binding,
			DescriptorType:  descriptorType(t),
			DescriptorCount: 1,
			PImageInfo:      []vk.DescriptorImageInfo{dii},
		})
		s.images[w.Binding] = w.Image
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(wds)), wds, 0, nil)
	return s, nil
}

// PipelineLayout implements gfx.PipelineLayout.
type PipelineLayout struct {
	device *Device
	handle gfx.Handle
	desc   gfx.PipelineLayoutDesc
	layout vk.PipelineLayout
}

// Handle implements gfx.PipelineLayout.
func (l *PipelineLayout) Handle() gfx.Handle { return l.handle }

// Desc implements gfx.PipelineLayout.
func (l *PipelineLayout) Desc() gfx.PipelineLayoutDesc { return l.desc }

// Release implements gfx.PipelineLayout.
func (l *PipelineLayout) Release() {
	if l.layout != nil {
		vk.DestroyPipelineLayout(l.device.device, l.layout, nil)
		l.layout = nil
	}
}

// NewPipelineLayout implements gfx.Device.
func (d *Device) NewPipelineLayout(desc gfx.PipelineLayoutDesc) (gfx.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(desc.SetLayouts))
	for i, sl := range desc.SetLayouts {
		l, ok := sl.(*DescriptorSetLayout)
		if !ok {
			return nil, ErrForeignResource
		}
		setLayouts[i] = l.layout
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if desc.PushConstantSize > 0 {
		plci.PushConstantRangeCount = 1
		plci.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: shaderStages(desc.PushStages),
			Size:       desc.PushConstantSize,
		}}
	}

	var layout vk.PipelineLayout
	if err := vkError("vk.CreatePipelineLayout()", vk.CreatePipelineLayout(d.device, &plci, nil, &layout)); err != nil {
		return nil, err
	}
	return &PipelineLayout{device: d, handle: d.nextHandle(), desc: desc, layout: layout}, nil
}

// GraphicsPipeline implements gfx.GraphicsPipeline.
type GraphicsPipeline struct {
	device   *Device
	handle   gfx.Handle
	desc     gfx.PipelineDesc
	pipeline vk.Pipeline
}

// Handle implements gfx.GraphicsPipeline.
func (p *GraphicsPipeline) Handle() gfx.Handle { return p.handle }

// Desc implements gfx.GraphicsPipeline.
func (p *GraphicsPipeline) Desc() gfx.PipelineDesc { return p.desc }

// Release implements gfx.GraphicsPipeline.
func (p *GraphicsPipeline) Release() {
	if p.pipeline != nil {
		vk.DestroyPipeline(p.device.device, p.pipeline, nil)
		p.pipeline = nil
	}
}

// NewGraphicsPipeline implements gfx.Device.
func (d *Device) NewGraphicsPipeline(desc gfx.PipelineDesc) (gfx.GraphicsPipeline, error) {
	vert, ok1 := desc.Vertex.(*Shader)
	frag, ok2 := desc.Fragment.(*Shader)
	layout, ok3 := desc.Layout.(*PipelineLayout)
	pass, ok4 := desc.RenderPass.(*RenderPass)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, ErrForeignResource
	}
	if int(desc.Subpass) >= len(pass.desc.Subpasses) {
		return nil, fmt.Errorf("pipeline %s: subpass %d out of range", desc.Name, desc.Subpass)
	}

	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: vert.shader,
		PName:  safeString("main"),
	}, {
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFragmentBit,
		Module: frag.shader,
		PName:  safeString("main"),
	}}

	vertexInput := &vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if desc.VertexLayout.Stride > 0 {
		bindings := []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    desc.VertexLayout.Stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		attributes := make([]vk.VertexInputAttributeDescription, len(desc.VertexLayout.Attributes))
		for i, a := range desc.VertexLayout.Attributes {
			attributes[i] = vk.VertexInputAttributeDescription{
				Binding:  0,
				Location: a.Location,
				Format:   attributeFormat(a.Format),
				Offset:   a.Offset,
			}
		}
		vertexInput.VertexBindingDescriptionCount = uint32(len(bindings))
		vertexInput.PVertexBindingDescriptions = bindings
		vertexInput.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInput.PVertexAttributeDescriptions = attributes
	}

	cull := vk.CullModeFlags(vk.CullModeNone)
	if desc.Cull == gfx.CullBack {
		cull = vk.CullModeFlags(vk.CullModeBackBit)
	}
	boolean := func(b bool) vk.Bool32 {
		if b {
			return vk.True
		}
		return vk.False
	}

	colorCount := len(pass.desc.Subpasses[desc.Subpass].Colors)
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, colorCount)
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: 0xF,
			BlendEnable:    vk.False,
		}
		if desc.Blend == gfx.BlendAdditive {
			blendAttachments[i].BlendEnable = vk.True
			blendAttachments[i].SrcColorBlendFactor = vk.BlendFactorOne
			blendAttachments[i].DstColorBlendFactor = vk.BlendFactorOne
			blendAttachments[i].ColorBlendOp = vk.BlendOpAdd
			blendAttachments[i].SrcAlphaBlendFactor = vk.BlendFactorOne
			blendAttachments[i].DstAlphaBlendFactor = vk.BlendFactorOne
			blendAttachments[i].AlphaBlendOp = vk.BlendOpAdd
		}
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:        uint32(len(stages)),
		PStages:           stages,
		PVertexInputState: vertexInput,
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: topology(desc.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			PViewports: []vk.Viewport{{
				Width:    float32(desc.Extent.Width),
				Height:   float32(desc.Extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			}},
			ScissorCount: 1,
			PScissors: []vk.Rect2D{{
				Extent: vk.Extent2D{Width: desc.Extent.Width, Height: desc.Extent.Height},
			}},
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    cull,
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       boolean(desc.DepthTest),
			DepthWriteEnable:      boolean(desc.DepthWrite),
			DepthCompareOp:        vk.CompareOpLessOrEqual,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: uint32(len(blendAttachments)),
			PAttachments:    blendAttachments,
		},
		Layout:     layout.layout,
		RenderPass: pass.pass,
		Subpass:    desc.Subpass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(d.device, d.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return nil, fmt.Errorf("vk.CreateGraphicsPipelines(%s): %s", desc.Name, err.Error())
	}
	return &GraphicsPipeline{device: d, handle: d.nextHandle(), desc: desc, pipeline: pipelines[0]}, nil
}
