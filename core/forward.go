// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/model"
)

// ForwardShaders are the shaders the forward pipeline loads.
var ForwardShaders = []string{
	"forward_depth.vert", "forward_depth.frag",
	"forward.vert", "forward.frag",
}

// ForwardContext holds what forward pipelines of all surfaces share.
// The forward path draws every mesh twice: a depth prepass, then
// the textured color pass against the finished depth.
type ForwardContext struct {
	dev     gfx.Device
	layout  gfx.PipelineLayout
	pass    gfx.RenderPass
	shaders map[string]gfx.Shader

	owned releaser
}

// NewForwardContext builds the shared forward state.
func NewForwardContext(dev gfx.Device, shaders ShaderSource, material gfx.DescriptorSetLayout) (*ForwardContext, error) {
	fc := &ForwardContext{dev: dev, shaders: make(map[string]gfx.Shader)}
	if err := fc.build(shaders, material); err != nil {
		fc.owned.release()
		return nil, err
	}
	return fc, nil
}

func (fc *ForwardContext) build(src ShaderSource, material gfx.DescriptorSetLayout) error {
	var err error
	if fc.pass, err = fc.dev.NewRenderPass(gfx.RenderPassDesc{
		Attachments: []gfx.AttachmentDesc{
			{Format: gfx.FormatD16Unorm, Load: gfx.LoadOpClear, Store: gfx.StoreOpDontCare, FinalLayout: gfx.LayoutDepthAttachment},
			{Format: SwapchainFormat, Load: gfx.LoadOpClear, Store: gfx.StoreOpStore, FinalLayout: gfx.LayoutPresent},
		},
		Subpasses: []gfx.SubpassDesc{
			{Depth: 0},
			{Colors: []int{1}, Depth: 0},
		},
	}); err != nil {
		return fmt.Errorf("forward render pass: %w", err)
	}
	fc.owned.add(fc.pass)

	if fc.layout, err = fc.dev.NewPipelineLayout(gfx.PipelineLayoutDesc{
		SetLayouts:       []gfx.DescriptorSetLayout{material},
		PushConstantSize: geometryPushSize,
		PushStages:       gfx.ShaderStageVertex | gfx.ShaderStageFragment,
	}); err != nil {
		return fmt.Errorf("forward pipeline layout: %w", err)
	}
	fc.owned.add(fc.layout)

	shaders, err := loadShaders(fc.dev, src, ForwardShaders...)
	if err != nil {
		return err
	}
	for _, s := range shaders {
		fc.owned.add(s)
		fc.shaders[s.Name()] = s
	}
	return nil
}

// Release frees the shared state.
func (fc *ForwardContext) Release() {
	fc.owned.release()
	fc.owned = nil
}

// ForwardPipeline renders meshes straight into swapchain images.
type ForwardPipeline struct {
	ctx     *ForwardContext
	targets *forwardTargets
}

type forwardTargets struct {
	extent       gfx.Extent2D
	depth        gfx.Image
	framebuffers []gfx.Framebuffer
	prepass      meshPipelines
	color        meshPipelines
	frames       *frameResources

	owned releaser
}

// MakePipeline builds a forward pipeline rendering into images.
func (fc *ForwardContext) MakePipeline(images []gfx.Image, extent gfx.Extent2D) (*ForwardPipeline, error) {
	t, err := fc.buildTargets(images, extent)
	if err != nil {
		return nil, err
	}
	return &ForwardPipeline{ctx: fc, targets: t}, nil
}

func (fc *ForwardContext) buildTargets(images []gfx.Image, extent gfx.Extent2D) (*forwardTargets, error) {
	t := &forwardTargets{extent: extent}
	if err := fc.fillTargets(t, images); err != nil {
		t.owned.release()
		return nil, err
	}
	return t, nil
}

func (fc *ForwardContext) fillTargets(t *forwardTargets, images []gfx.Image) error {
	var err error
	if len(images) == 0 {
		return fmt.Errorf("forward pipeline needs at least one image")
	}
	if t.depth, err = fc.dev.NewImage(gfx.ImageDesc{
		Extent:    t.extent,
		Format:    gfx.FormatD16Unorm,
		Usage:     gfx.ImageUsageDepthAttachment,
		MipLevels: 1,
	}); err != nil {
		return fmt.Errorf("depth image: %w", err)
	}
	t.owned.add(t.depth)

	for _, img := range images {
		fb, err := fc.dev.NewFramebuffer(fc.pass, []gfx.Image{t.depth, img}, t.extent)
		if err != nil {
			return fmt.Errorf("framebuffer: %w", err)
		}
		t.owned.add(fb)
		t.framebuffers = append(t.framebuffers, fb)
	}

	base := gfx.PipelineDesc{
		Layout:       fc.layout,
		VertexLayout: model.Pntl32FLayout(),
		Cull:         gfx.CullBack,
		DepthTest:    true,
		RenderPass:   fc.pass,
		Extent:       t.extent,
	}

	prepass := base
	prepass.Name = "forward-depth"
	prepass.Vertex = fc.shaders["forward_depth.vert"]
	prepass.Fragment = fc.shaders["forward_depth.frag"]
	prepass.DepthWrite = true
	if t.prepass, err = newMeshPipelines(fc.dev, prepass, &t.owned); err != nil {
		return err
	}

	color := base
	color.Name = "forward"
	color.Vertex = fc.shaders["forward.vert"]
	color.Fragment = fc.shaders["forward.frag"]
	color.Subpass = 1
	if t.color, err = newMeshPipelines(fc.dev, color, &t.owned); err != nil {
		return err
	}

	t.frames, err = newFrameResources(fc.dev, len(images), &t.owned)
	return err
}

func (t *forwardTargets) release() {
	t.frames.releaseHeld()
	t.owned.release()
}

func (*ForwardPipeline) pipeline() {}

// Extent implements Pipeline.
func (p *ForwardPipeline) Extent() gfx.Extent2D { return p.targets.extent }

// Framebuffers implements Pipeline.
func (p *ForwardPipeline) Framebuffers() int { return len(p.targets.framebuffers) }

// Resize implements Pipeline.
func (p *ForwardPipeline) Resize(images []gfx.Image, extent gfx.Extent2D) error {
	t, err := p.ctx.buildTargets(images, extent)
	if err != nil {
		return err
	}
	p.targets.release()
	p.targets = t
	return nil
}

// Release implements Pipeline.
func (p *ForwardPipeline) Release() {
	p.targets.release()
}

// Draw implements Pipeline. Lights are not used by the forward path.
func (p *ForwardPipeline) Draw(imageIndex uint32, cam *Camera, lights []DirectLight) (gfx.CommandBuffer, error) {
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

	cmd := t.frames.commands[imageIndex]
	if err := cmd.Begin(); err != nil {
		return nil, err
	}
	cmd.BeginRenderPass(p.ctx.pass, t.framebuffers[imageIndex], []gfx.ClearValue{
		gfx.ClearDepth(1),
		gfx.ClearColor(0, 0, 0.25, 1),
	})
	for _, m := range meshes {
		drawMesh(cmd, t.prepass, p.ctx.layout, snap, m)
	}
	cmd.NextSubpass()
	for _, m := range meshes {
		drawMesh(cmd, t.color, p.ctx.layout, snap, m)
	}
	cmd.EndRenderPass()
	if err := cmd.End(); err != nil {
		return nil, err
	}
	return cmd, nil
}
