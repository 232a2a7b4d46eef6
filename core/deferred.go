// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"time"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/model"
)

// Deferred render pass attachments
const (
	attachmentDepth = iota
	attachmentDiffuse
	attachmentNormal
	attachmentPosition
	attachmentLight
	attachmentSwap
)

var gbufferFormats = [...]gfx.Format{
	attachmentDepth:    gfx.FormatD16Unorm,
	attachmentDiffuse:  gfx.FormatA2B10G10R10UnormPack32,
	attachmentNormal:   gfx.FormatR16G16B16A16Sfloat,
	attachmentPosition: gfx.FormatR16G16B16A16Sfloat,
	attachmentLight:    gfx.FormatR16G16B16A16Sfloat,
}

// SwapchainFormat is the format of presented images.
const SwapchainFormat = gfx.FormatB8G8R8A8Srgb

// DeferredShaders are the shaders the deferred pipeline loads.
var DeferredShaders = []string{
	"geometry.vert", "geometry.frag",
	"light.vert", "light.frag",
	"composite.vert", "composite.frag",
}

var quadVertices = []model.Vert2D{
	{Pos: [2]float32{-1, 1}, Tex: [2]float32{0, 0}},
	{Pos: [2]float32{1, 1}, Tex: [2]float32{1, 0}},
	{Pos: [2]float32{1, -1}, Tex: [2]float32{1, 1}},
	{Pos: [2]float32{-1, -1}, Tex: [2]float32{0, 1}},
}

var quadIndices = []uint32{0, 1, 2, 2, 3, 0}

// DeferredContext holds what deferred pipelines of all surfaces share:
// the render pass, layouts, shaders and the full screen quad.
type DeferredContext struct {
	dev      gfx.Device
	material gfx.DescriptorSetLayout
	sampler  gfx.Sampler

	renderPass      gfx.RenderPass
	gbufferLayout   gfx.DescriptorSetLayout
	geometryLayout  gfx.PipelineLayout
	lightLayout     gfx.PipelineLayout
	compositeLayout gfx.PipelineLayout
	shaders         map[string]gfx.Shader
	quadVertices    gfx.Buffer
	quadIndices     gfx.Buffer
	noSky           *ImmutableTexture

	owned releaser
}

// NewDeferredContext builds the shared deferred state. material is
// the single sampler layout mesh layers are bound with. Nothing is
// left allocated when it fails.
func NewDeferredContext(dev gfx.Device, shaders ShaderSource, material gfx.DescriptorSetLayout, sampler gfx.Sampler) (*DeferredContext, error) {
	dc := &DeferredContext{dev: dev, material: material, sampler: sampler, shaders: make(map[string]gfx.Shader)}
	if err := dc.build(shaders); err != nil {
		dc.owned.release()
		return nil, err
	}
	return dc, nil
}

func (dc *DeferredContext) build(src ShaderSource) error {
	var err error

	/* Render pass */
	gbuffer := gfx.AttachmentDesc{Load: gfx.LoadOpClear, Store: gfx.StoreOpDontCare, FinalLayout: gfx.LayoutColorAttachment}
	attachments := make([]gfx.AttachmentDesc, attachmentSwap+1)
	for i, f := range gbufferFormats {
		attachments[i] = gbuffer
		attachments[i].Format = f
	}
	attachments[attachmentDepth].FinalLayout = gfx.LayoutDepthAttachment
	attachments[attachmentSwap] = gfx.AttachmentDesc{
		Format:      SwapchainFormat,
		Load:        gfx.LoadOpClear,
		Store:       gfx.StoreOpStore,
		FinalLayout: gfx.LayoutPresent,
	}
	if dc.renderPass, err = dc.dev.NewRenderPass(gfx.RenderPassDesc{
		Attachments: attachments,
		Subpasses: []gfx.SubpassDesc{
			{Colors: []int{attachmentDiffuse, attachmentNormal, attachmentPosition}, Depth: attachmentDepth},
			{Inputs: []int{attachmentDepth, attachmentDiffuse, attachmentNormal, attachmentPosition}, Colors: []int{attachmentLight}, Depth: gfx.NoAttachment},
			{Inputs: []int{attachmentLight, attachmentDepth}, Colors: []int{attachmentSwap}, Depth: gfx.NoAttachment},
		},
	}); err != nil {
		return fmt.Errorf("deferred render pass: %w", err)
	}
	dc.owned.add(dc.renderPass)

	/* Layouts */
	var bindings []gfx.DescriptorBinding
	for i := attachmentDepth; i <= attachmentLight; i++ {
		bindings = append(bindings, gfx.DescriptorBinding{Binding: uint32(i), Type: gfx.DescriptorInputAttachment, Stages: gfx.ShaderStageFragment})
	}
	if dc.gbufferLayout, err = dc.dev.NewDescriptorSetLayout(bindings); err != nil {
		return fmt.Errorf("g-buffer layout: %w", err)
	}
	dc.owned.add(dc.gbufferLayout)

	for _, l := range []struct {
		dst  *gfx.PipelineLayout
		desc gfx.PipelineLayoutDesc
	}{
		{&dc.geometryLayout, gfx.PipelineLayoutDesc{
			SetLayouts:       []gfx.DescriptorSetLayout{dc.material},
			PushConstantSize: geometryPushSize,
			PushStages:       gfx.ShaderStageVertex | gfx.ShaderStageFragment,
		}},
		{&dc.lightLayout, gfx.PipelineLayoutDesc{
			SetLayouts:       []gfx.DescriptorSetLayout{dc.gbufferLayout},
			PushConstantSize: lightPushSize,
			PushStages:       gfx.ShaderStageVertex | gfx.ShaderStageFragment,
		}},
		{&dc.compositeLayout, gfx.PipelineLayoutDesc{
			SetLayouts:       []gfx.DescriptorSetLayout{dc.gbufferLayout, dc.material},
			PushConstantSize: compositePushSize,
			PushStages:       gfx.ShaderStageFragment,
		}},
	} {
		if *l.dst, err = dc.dev.NewPipelineLayout(l.desc); err != nil {
			return fmt.Errorf("pipeline layout: %w", err)
		}
		dc.owned.add(*l.dst)
	}

	/* Shaders */
	shaders, err := loadShaders(dc.dev, src, DeferredShaders...)
	if err != nil {
		return err
	}
	for _, s := range shaders {
		dc.owned.add(s)
		dc.shaders[s.Name()] = s
	}

	/* Quad */
	if dc.quadVertices, err = dc.dev.NewBuffer(gfx.BufferUsageVertex, model.PackVert2D(quadVertices)); err != nil {
		return fmt.Errorf("quad vertices: %w", err)
	}
	dc.owned.add(dc.quadVertices)
	if dc.quadIndices, err = dc.dev.NewBuffer(gfx.BufferUsageIndex, U32Bytes(quadIndices)); err != nil {
		return fmt.Errorf("quad indices: %w", err)
	}
	dc.owned.add(dc.quadIndices)

	/* Empty sky */
	if dc.noSky, err = NewImmutableTexture(dc.dev, []byte{0, 0, 0, 255}, gfx.Extent2D{Width: 1, Height: 1}, gfx.FormatR8G8B8A8Unorm); err != nil {
		return fmt.Errorf("sky placeholder: %w", err)
	}
	dc.owned.add(dc.noSky)
	return dc.noSky.Wait(time.Second * 5)
}

// RenderPass returns the deferred render pass.
func (dc *DeferredContext) RenderPass() gfx.RenderPass { return dc.renderPass }

// Release frees the shared state. Pipelines made from the
// context must be released first.
func (dc *DeferredContext) Release() {
	dc.owned.release()
	dc.owned = nil
}

// DeferredPipeline renders a deferred frame into swapchain images.
type DeferredPipeline struct {
	ctx     *DeferredContext
	targets *deferredTargets

	skySet gfx.DescriptorSet
}

type deferredTargets struct {
	extent       gfx.Extent2D
	attachments  [attachmentLight + 1]gfx.Image
	framebuffers []gfx.Framebuffer
	geometry     meshPipelines
	light        gfx.GraphicsPipeline
	composite    gfx.GraphicsPipeline
	gbuffer      gfx.DescriptorSet
	frames       *frameResources

	owned releaser
}

// MakePipeline builds a pipeline rendering into images. Nothing is
// left allocated when it fails.
func (dc *DeferredContext) MakePipeline(images []gfx.Image, extent gfx.Extent2D) (*DeferredPipeline, error) {
	targets, err := dc.buildTargets(images, extent)
	if err != nil {
		return nil, err
	}
	return &DeferredPipeline{ctx: dc, targets: targets}, nil
}

func (dc *DeferredContext) buildTargets(images []gfx.Image, extent gfx.Extent2D) (*deferredTargets, error) {
	t := &deferredTargets{extent: extent}
	if err := dc.fillTargets(t, images); err != nil {
		t.owned.release()
		return nil, err
	}
	return t, nil
}

func (dc *DeferredContext) fillTargets(t *deferredTargets, images []gfx.Image) error {
	var err error
	if len(images) == 0 {
		return fmt.Errorf("deferred pipeline needs at least one image")
	}

	/* G-buffer */
	for i, f := range gbufferFormats {
		usage := gfx.ImageUsageColorAttachment | gfx.ImageUsageInputAttachment | gfx.ImageUsageTransient
		if f.IsDepth() {
			usage = gfx.ImageUsageDepthAttachment | gfx.ImageUsageInputAttachment | gfx.ImageUsageTransient
		}
		if t.attachments[i], err = dc.dev.NewImage(gfx.ImageDesc{Extent: t.extent, Format: f, Usage: usage, MipLevels: 1}); err != nil {
			return fmt.Errorf("g-buffer %s: %w", f, err)
		}
		t.owned.add(t.attachments[i])
	}

	/* Framebuffers */
	for _, img := range images {
		views := append(t.attachments[:len(t.attachments):len(t.attachments)], img)
		fb, err := dc.dev.NewFramebuffer(dc.renderPass, views, t.extent)
		if err != nil {
			return fmt.Errorf("framebuffer: %w", err)
		}
		t.owned.add(fb)
		t.framebuffers = append(t.framebuffers, fb)
	}

	/* Pipelines */
	if t.geometry, err = newMeshPipelines(dc.dev, gfx.PipelineDesc{
		Name:         "geometry",
		Vertex:       dc.shaders["geometry.vert"],
		Fragment:     dc.shaders["geometry.frag"],
		Layout:       dc.geometryLayout,
		VertexLayout: model.Pntl32FLayout(),
		Cull:         gfx.CullBack,
		DepthTest:    true,
		DepthWrite:   true,
		RenderPass:   dc.renderPass,
		Subpass:      0,
		Extent:       t.extent,
	}, &t.owned); err != nil {
		return err
	}

	for _, p := range []struct {
		dst  *gfx.GraphicsPipeline
		desc gfx.PipelineDesc
	}{
		{&t.light, gfx.PipelineDesc{
			Name:         "light",
			Vertex:       dc.shaders["light.vert"],
			Fragment:     dc.shaders["light.frag"],
			Layout:       dc.lightLayout,
			VertexLayout: model.Vert2DLayout(),
			Topology:     gfx.TopologyTriangleList,
			Blend:        gfx.BlendAdditive,
			RenderPass:   dc.renderPass,
			Subpass:      1,
			Extent:       t.extent,
		}},
		{&t.composite, gfx.PipelineDesc{
			Name:         "composite",
			Vertex:       dc.shaders["composite.vert"],
			Fragment:     dc.shaders["composite.frag"],
			Layout:       dc.compositeLayout,
			VertexLayout: model.Vert2DLayout(),
			Topology:     gfx.TopologyTriangleList,
			RenderPass:   dc.renderPass,
			Subpass:      2,
			Extent:       t.extent,
		}},
	} {
		if *p.dst, err = dc.dev.NewGraphicsPipeline(p.desc); err != nil {
			return fmt.Errorf("pipeline %s: %w", p.desc.Name, err)
		}
		t.owned.add(*p.dst)
	}

	/* G-buffer inputs */
	var writes []gfx.DescriptorWrite
	for i, img := range t.attachments {
		writes = append(writes, gfx.DescriptorWrite{Binding: uint32(i), Image: img})
	}
	if t.gbuffer, err = dc.dev.NewDescriptorSet(dc.gbufferLayout, writes); err != nil {
		return fmt.Errorf("g-buffer descriptor set: %w", err)
	}
	t.owned.add(t.gbuffer)

	/* Command buffers */
	t.frames, err = newFrameResources(dc.dev, len(images), &t.owned)
	return err
}

func (t *deferredTargets) release() {
	t.frames.releaseHeld()
	t.owned.release()
}

func (*DeferredPipeline) pipeline() {}

// Extent implements Pipeline.
func (p *DeferredPipeline) Extent() gfx.Extent2D { return p.targets.extent }

// Framebuffers implements Pipeline.
func (p *DeferredPipeline) Framebuffers() int { return len(p.targets.framebuffers) }

// Resize implements Pipeline.
func (p *DeferredPipeline) Resize(images []gfx.Image, extent gfx.Extent2D) error {
	targets, err := p.ctx.buildTargets(images, extent)
	if err != nil {
		return err
	}
	p.targets.release()
	p.targets = targets
	return nil
}

// Release implements Pipeline.
func (p *DeferredPipeline) Release() {
	p.targets.release()
	if p.skySet != nil {
		p.skySet.Release()
		p.skySet = nil
	}
}

// skyDescriptor returns a descriptor set sampling the sky of
// group, rebuilt when the sky image changed.
func (p *DeferredPipeline) skyDescriptor(group *MeshGroup) (gfx.DescriptorSet, error) {
	img := p.ctx.noSky.Image()
	if group != nil {
		if sky := group.skyImage(); sky != nil {
			img = sky
		}
	}
	if p.skySet != nil {
		if cur := p.skySet.Image(0); cur != nil && cur.Handle() == img.Handle() {
			return p.skySet, nil
		}
	}
	set, err := p.ctx.dev.NewDescriptorSet(p.ctx.material, []gfx.DescriptorWrite{{Binding: 0, Image: img, Sampler: p.ctx.sampler}})
	if err != nil {
		return nil, fmt.Errorf("sky descriptor set: %w", err)
	}
	if p.skySet != nil {
		p.skySet.Release()
	}
	p.skySet = set
	return set, nil
}

// Draw implements Pipeline. The command buffer of imageIndex is reset,
// so the frame that used it last must have completed.
func (p *DeferredPipeline) Draw(imageIndex uint32, cam *Camera, lights []DirectLight) (gfx.CommandBuffer, error) {
	if cam == nil {
		return nil, ErrNoCamera
	}
	t := p.targets
	if int(imageIndex) >= len(t.framebuffers) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}
	snap := cam.Snapshot()

	meshes, err := frameMeshes(snap.Group)
	if err != nil {
		return nil, err
	}
	t.frames.hold(imageIndex, meshes)

	sky, err := p.skyDescriptor(snap.Group)
	if err != nil {
		return nil, err
	}

	cmd := t.frames.commands[imageIndex]
	if err := cmd.Begin(); err != nil {
		return nil, err
	}
	cmd.BeginRenderPass(p.ctx.renderPass, t.framebuffers[imageIndex], []gfx.ClearValue{
		gfx.ClearDepth(1),
		gfx.ClearColor(0, 0, 0, 1),
		gfx.ClearColor(0, 0, 0, 0),
		gfx.ClearColor(0, 0, 0, 0),
		gfx.ClearColor(0, 0, 0, 0),
		gfx.ClearColor(0, 0, 0, 0),
	})

	/* Geometry */
	for _, m := range meshes {
		drawMesh(cmd, t.geometry, p.ctx.geometryLayout, snap, m)
	}

	/* Lighting */
	cmd.NextSubpass()
	cmd.BindPipeline(t.light)
	cmd.BindDescriptorSets(p.ctx.lightLayout, 0, t.gbuffer)
	cmd.BindVertexBuffer(p.ctx.quadVertices)
	cmd.BindIndexBuffer(p.ctx.quadIndices, gfx.IndexTypeU32)
	extent := [2]float32{float32(t.extent.Width), float32(t.extent.Height)}
	for _, l := range lights {
		cmd.PushConstants(p.ctx.lightLayout, gfx.ShaderStageVertex|gfx.ShaderStageFragment, 0, lightPushConstants(extent, snap, l))
		cmd.DrawIndexed(uint32(len(quadIndices)), 0)
	}

	/* Composite */
	cmd.NextSubpass()
	cmd.BindPipeline(t.composite)
	cmd.BindDescriptorSets(p.ctx.compositeLayout, 0, t.gbuffer, sky)
	cmd.PushConstants(p.ctx.compositeLayout, gfx.ShaderStageFragment, 0, compositePushConstants(snap))
	cmd.BindVertexBuffer(p.ctx.quadVertices)
	cmd.BindIndexBuffer(p.ctx.quadIndices, gfx.IndexTypeU32)
	cmd.DrawIndexed(uint32(len(quadIndices)), 0)

	cmd.EndRenderPass()
	if err := cmd.End(); err != nil {
		return nil, err
	}
	return cmd, nil
}
