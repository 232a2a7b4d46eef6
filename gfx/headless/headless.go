// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package headless implements gfx.Device without a GPU. Every object is a
// plain Go value and command buffers record what would have been sent to
// the GPU, which makes it usable for tests and dry runs.
package headless

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devblok/nice/gfx"
)

// Object kinds tracked by the Device
const (
	KindImage               = "image"
	KindBuffer              = "buffer"
	KindSampler             = "sampler"
	KindShader              = "shader"
	KindRenderPass          = "renderpass"
	KindFramebuffer         = "framebuffer"
	KindDescriptorSetLayout = "descriptorsetlayout"
	KindDescriptorSet       = "descriptorset"
	KindPipelineLayout      = "pipelinelayout"
	KindPipeline            = "pipeline"
	KindCommandBuffer       = "commandbuffer"
	KindSemaphore           = "semaphore"
	KindSwapchain           = "swapchain"
)

// New creates a new headless device.
func New() *Device {
	d := &Device{
		live:     make(map[gfx.Handle]string),
		failures: make(map[string]failure),
	}
	d.queue = &Queue{device: d}
	return d
}

type failure struct {
	after int
	err   error
}

// Device is an in-memory gfx.Device.
type Device struct {
	counter uint64

	mu       sync.Mutex
	live     map[gfx.Handle]string
	failures map[string]failure
	uploads  int

	queue *Queue
}

// FailAfter makes creation of kind fail with err once n more objects
// of that kind have been created. A nil err clears the failure.
func (d *Device) FailAfter(kind string, n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, kind)
		return
	}
	d.failures[kind] = failure{after: n, err: err}
}

// Live returns the number of unreleased objects of kind.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Uploads returns the number of image uploads performed.
func (d *Device) Uploads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploads
}

func (d *Device) track(kind string) (gfx.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.failures[kind]; ok {
		if f.after <= 0 {
			return 0, f.err
		}
		f.after--
		d.failures[kind] = f
	}
	h := gfx.Handle(atomic.AddUint64(&d.counter, 1))
	d.live[h] = kind
	return h, nil
}

func (d *Device) untrack(h gfx.Handle) {
	d.mu.Lock()
	delete(d.live, h)
	d.mu.Unlock()
}

// Queue implements gfx.Device.
func (d *Device) Queue() gfx.Queue {
	return d.queue
}

// HeadlessQueue returns the recording queue.
func (d *Device) HeadlessQueue() *Queue {
	return d.queue
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	return nil
}

// Release implements gfx.Device.
func (d *Device) Release() {}

// NewImage implements gfx.Device.
func (d *Device) NewImage(desc gfx.ImageDesc) (gfx.Image, error) {
	if desc.Format.BitsPerPixel() == 0 {
		return nil, gfx.ErrUnsupportedFormat
	}
	h, err := d.track(KindImage)
	if err != nil {
		return nil, err
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	return &Image{device: d, handle: h, desc: desc}, nil
}

// NewBuffer implements gfx.Device.
func (d *Device) NewBuffer(usage gfx.BufferUsage, data []byte) (gfx.Buffer, error) {
	h, err := d.track(KindBuffer)
	if err != nil {
		return nil, err
	}
	b := &Buffer{device: d, handle: h, usage: usage, data: make([]byte, len(data))}
	copy(b.data, data)
	return b, nil
}

// NewSampler implements gfx.Device.
func (d *Device) NewSampler(desc gfx.SamplerDesc) (gfx.Sampler, error) {
	h, err := d.track(KindSampler)
	if err != nil {
		return nil, err
	}
	return &object{device: d, handle: h}, nil
}

// NewShader implements gfx.Device.
func (d *Device) NewShader(stage gfx.ShaderStage, name string, code []byte) (gfx.Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader %s: code size %d is not a multiple of 4", name, len(code))
	}
	h, err := d.track(KindShader)
	if err != nil {
		return nil, err
	}
	return &Shader{object: object{device: d, handle: h}, stage: stage, name: name}, nil
}

// NewRenderPass implements gfx.Device.
func (d *Device) NewRenderPass(desc gfx.RenderPassDesc) (gfx.RenderPass, error) {
	for i, sp := range desc.Subpasses {
		for _, a := range append(append([]int{}, sp.Colors...), sp.Inputs...) {
			if a < 0 || a >= len(desc.Attachments) {
				return nil, fmt.Errorf("subpass %d references attachment %d out of range", i, a)
			}
		}
	}
	h, err := d.track(KindRenderPass)
	if err != nil {
		return nil, err
	}
	return &RenderPass{object: object{device: d, handle: h}, desc: desc}, nil
}

// NewFramebuffer implements gfx.Device.
func (d *Device) NewFramebuffer(rp gfx.RenderPass, attachments []gfx.Image, extent gfx.Extent2D) (gfx.Framebuffer, error) {
	if n := len(rp.Desc().Attachments); n != len(attachments) {
		return nil, fmt.Errorf("framebuffer has %d attachments, render pass expects %d", len(attachments), n)
	}
	h, err := d.track(KindFramebuffer)
	if err != nil {
		return nil, err
	}
	return &Framebuffer{
		object:      object{device: d, handle: h},
		extent:      extent,
		attachments: append([]gfx.Image{}, attachments...),
	}, nil
}

// NewDescriptorSetLayout implements gfx.Device.
func (d *Device) NewDescriptorSetLayout(bindings []gfx.DescriptorBinding) (gfx.DescriptorSetLayout, error) {
	h, err := d.track(KindDescriptorSetLayout)
	if err != nil {
		return nil, err
	}
	return &DescriptorSetLayout{object: object{device: d, handle: h}, bindings: bindings}, nil
}

// NewDescriptorSet implements gfx.Device.
func (d *Device) NewDescriptorSet(layout gfx.DescriptorSetLayout, writes []gfx.DescriptorWrite) (gfx.DescriptorSet, error) {
	images := make(map[uint32]gfx.Image, len(writes))
	for _, w := range writes {
		var found bool
		for _, b := range layout.Bindings() {
			if b.Binding == w.Binding {
				found = true
				if b.Type == gfx.DescriptorCombinedImageSampler && w.Sampler == nil {
					return nil, fmt.Errorf("binding %d needs a sampler", w.Binding)
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("binding %d is not in the layout", w.Binding)
		}
		images[w.Binding] = w.Image
	}
	h, err := d.track(KindDescriptorSet)
	if err != nil {
		return nil, err
	}
	return &DescriptorSet{object: object{device: d, handle: h}, layout: layout, images: images}, nil
}

// NewPipelineLayout implements gfx.Device.
func (d *Device) NewPipelineLayout(desc gfx.PipelineLayoutDesc) (gfx.PipelineLayout, error) {
	h, err := d.track(KindPipelineLayout)
	if err != nil {
		return nil, err
	}
	return &PipelineLayout{object: object{device: d, handle: h}, desc: desc}, nil
}

// NewGraphicsPipeline implements gfx.Device.
func (d *Device) NewGraphicsPipeline(desc gfx.PipelineDesc) (gfx.GraphicsPipeline, error) {
	if desc.RenderPass == nil || desc.Layout == nil || desc.Vertex == nil || desc.Fragment == nil {
		return nil, errors.New("pipeline description is incomplete")
	}
	if int(desc.Subpass) >= len(desc.RenderPass.Desc().Subpasses) {
		return nil, fmt.Errorf("pipeline %s: subpass %d out of range", desc.Name, desc.Subpass)
	}
	h, err := d.track(KindPipeline)
	if err != nil {
		return nil, err
	}
	return &Pipeline{object: object{device: d, handle: h}, desc: desc}, nil
}

// NewCommandBuffer implements gfx.Device.
func (d *Device) NewCommandBuffer() (gfx.CommandBuffer, error) {
	h, err := d.track(KindCommandBuffer)
	if err != nil {
		return nil, err
	}
	return &CommandBuffer{object: object{device: d, handle: h}}, nil
}

// NewSemaphore implements gfx.Device.
func (d *Device) NewSemaphore() (gfx.Semaphore, error) {
	h, err := d.track(KindSemaphore)
	if err != nil {
		return nil, err
	}
	return &object{device: d, handle: h}, nil
}

// NewSwapchain implements gfx.Device.
func (d *Device) NewSwapchain(surface gfx.Surface, desc gfx.SwapchainDesc, old gfx.Swapchain) (gfx.Swapchain, error) {
	s, ok := surface.(*Surface)
	if !ok {
		return nil, fmt.Errorf("surface %T does not belong to a headless device", surface)
	}
	if s.rejects(desc.Extent) {
		return nil, gfx.ErrUnsupportedDimensions
	}
	h, err := d.track(KindSwapchain)
	if err != nil {
		return nil, err
	}
	sc := &Swapchain{
		object:  object{device: d, handle: h},
		surface: s,
		extent:  desc.Extent,
		format:  desc.Format,
	}
	count := desc.ImageCount
	if count == 0 {
		count = 1
	}
	for i := uint32(0); i < count; i++ {
		img, err := d.NewImage(gfx.ImageDesc{
			Extent:    desc.Extent,
			Format:    desc.Format,
			Usage:     gfx.ImageUsageColorAttachment,
			MipLevels: 1,
		})
		if err != nil {
			sc.Release()
			return nil, err
		}
		sc.images = append(sc.images, img)
	}
	if sc.acquired, err = d.NewSemaphore(); err != nil {
		sc.Release()
		return nil, err
	}
	if old != nil {
		old.Release()
	}
	return sc, nil
}

// UploadImage implements gfx.Device.
func (d *Device) UploadImage(img gfx.Image, pixels []byte, generateMips bool) (gfx.Fence, error) {
	i, ok := img.(*Image)
	if !ok {
		return nil, fmt.Errorf("image %T does not belong to a headless device", img)
	}
	if want := i.desc.Format.ByteSize(i.desc.Extent); len(pixels) != want {
		return nil, fmt.Errorf("upload of %d bytes into a %d byte image", len(pixels), want)
	}
	i.mu.Lock()
	i.pixels = append(i.pixels[:0], pixels...)
	i.mu.Unlock()

	d.mu.Lock()
	d.uploads++
	d.mu.Unlock()
	return gfx.CompletedFence, nil
}

type object struct {
	device   *Device
	handle   gfx.Handle
	released int32
}

func (o *object) Handle() gfx.Handle {
	return o.handle
}

func (o *object) Release() {
	if atomic.CompareAndSwapInt32(&o.released, 0, 1) {
		o.device.untrack(o.handle)
	}
}

// Released reports whether Release was called.
func (o *object) Released() bool {
	return atomic.LoadInt32(&o.released) == 1
}

// Image is a headless image that keeps uploaded pixels.
type Image struct {
	device   *Device
	handle   gfx.Handle
	desc     gfx.ImageDesc
	released int32

	mu     sync.Mutex
	pixels []byte
}

// Handle implements gfx.Image.
func (i *Image) Handle() gfx.Handle { return i.handle }

// Format implements gfx.Image.
func (i *Image) Format() gfx.Format { return i.desc.Format }

// Extent implements gfx.Image.
func (i *Image) Extent() gfx.Extent2D { return i.desc.Extent }

// MipLevels implements gfx.Image.
func (i *Image) MipLevels() uint32 { return i.desc.MipLevels }

// Usage returns the usage flags of the image.
func (i *Image) Usage() gfx.ImageUsage { return i.desc.Usage }

// Pixels returns a copy of the uploaded pixels.
func (i *Image) Pixels() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]byte{}, i.pixels...)
}

// Release implements gfx.Image.
func (i *Image) Release() {
	if atomic.CompareAndSwapInt32(&i.released, 0, 1) {
		i.device.untrack(i.handle)
	}
}

// Released reports whether Release was called.
func (i *Image) Released() bool {
	return atomic.LoadInt32(&i.released) == 1
}

// Buffer is a byte slice backed buffer.
type Buffer struct {
	device   *Device
	handle   gfx.Handle
	usage    gfx.BufferUsage
	released int32

	mu   sync.RWMutex
	data []byte
}

// Handle implements gfx.Buffer.
func (b *Buffer) Handle() gfx.Handle { return b.handle }

// Size implements gfx.Buffer.
func (b *Buffer) Size() int { return len(b.data) }

// Usage implements gfx.Buffer.
func (b *Buffer) Usage() gfx.BufferUsage { return b.usage }

// Read implements gfx.Buffer.
func (b *Buffer) Read(p []byte, off int) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if off < 0 || off > len(b.data) {
		return 0, fmt.Errorf("read offset %d out of range", off)
	}
	return copy(p, b.data[off:]), nil
}

// Write implements gfx.Buffer.
func (b *Buffer) Write(p []byte, off int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off < 0 || off+len(p) > len(b.data) {
		return 0, fmt.Errorf("write of %d bytes at %d out of range", len(p), off)
	}
	return copy(b.data[off:], p), nil
}

// Release implements gfx.Buffer.
func (b *Buffer) Release() {
	if atomic.CompareAndSwapInt32(&b.released, 0, 1) {
		b.device.untrack(b.handle)
	}
}

// Shader is a headless shader module.
type Shader struct {
	object
	stage gfx.ShaderStage
	name  string
}

// Stage implements gfx.Shader.
func (s *Shader) Stage() gfx.ShaderStage { return s.stage }

// Name implements gfx.Shader.
func (s *Shader) Name() string { return s.name }

// RenderPass is a headless render pass.
type RenderPass struct {
	object
	desc gfx.RenderPassDesc
}

// Desc implements gfx.RenderPass.
func (r *RenderPass) Desc() gfx.RenderPassDesc { return r.desc }

// Framebuffer is a headless framebuffer.
type Framebuffer struct {
	object
	extent      gfx.Extent2D
	attachments []gfx.Image
}

// Extent implements gfx.Framebuffer.
func (f *Framebuffer) Extent() gfx.Extent2D { return f.extent }

// Attachments implements gfx.Framebuffer.
func (f *Framebuffer) Attachments() []gfx.Image { return f.attachments }

// DescriptorSetLayout is a headless descriptor set layout.
type DescriptorSetLayout struct {
	object
	bindings []gfx.DescriptorBinding
}

// Bindings implements gfx.DescriptorSetLayout.
func (l *DescriptorSetLayout) Bindings() []gfx.DescriptorBinding { return l.bindings }

// DescriptorSet remembers the images written into it.
type DescriptorSet struct {
	object
	layout gfx.DescriptorSetLayout
	images map[uint32]gfx.Image
}

// Image implements gfx.DescriptorSet.
func (s *DescriptorSet) Image(binding uint32) gfx.Image { return s.images[binding] }

// PipelineLayout is a headless pipeline layout.
type PipelineLayout struct {
	object
	desc gfx.PipelineLayoutDesc
}

// Desc implements gfx.PipelineLayout.
func (l *PipelineLayout) Desc() gfx.PipelineLayoutDesc { return l.desc }

// Pipeline is a headless graphics pipeline.
type Pipeline struct {
	object
	desc gfx.PipelineDesc
}

// Desc implements gfx.GraphicsPipeline.
func (p *Pipeline) Desc() gfx.PipelineDesc { return p.desc }

type fence struct {
	done chan struct{}
}

func (f *fence) Wait(timeout time.Duration) error {
	select {
	case <-f.done:
		return nil
	case <-time.After(timeout):
		return gfx.ErrTimeout
	}
}

func (f *fence) Signaled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *fence) Release() {}
