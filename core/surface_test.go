// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/gfx/headless"
)

func newSurface(t *testing.T, f *fixture, width, height uint32) (*core.Surface, *headless.Surface) {
	c := qt.New(t)
	hs := headless.NewSurface(nil)
	s, err := core.NewSurface(f.ctx, hs, width, height)
	c.Assert(err, qt.IsNil)
	t.Cleanup(s.Release)
	return s, hs
}

func draws(cmds []headless.Command, subpass int) []uint32 {
	var counts []uint32
	for _, cmd := range cmds {
		if cmd.Op == headless.OpDrawIndexed && cmd.Subpass == subpass {
			counts = append(counts, cmd.Count)
		}
	}
	return counts
}

func TestSingleTriangleScene(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, _ := newSurface(t, f, 1280, 720)

	group := core.NewMeshGroup()
	data := triangle(t, f.dev)
	defer data.Release()
	mesh, err := core.NewMesh(f.ctx, group)
	c.Assert(err, qt.IsNil)
	defer mesh.Release()
	c.Assert(mesh.SetMeshData(data), qt.IsNil)

	cam := core.NewCamera()
	cam.SetPerspective(16.0/9.0, math32.Pi/2, 1, 1000)
	cam.SetMeshGroup(group)
	surface.SetCamera(cam)
	surface.SetLights([]core.DirectLight{{Position: mgl32.Vec3{0, 0, 0}, Color: mgl32.Vec3{1, 1, 1}, Radius: 10}})

	c.Assert(surface.Draw(), qt.Equals, true)
	c.Assert(surface.Draw(), qt.Equals, true)

	queue := f.dev.HeadlessQueue()
	subs := queue.Submissions()
	c.Assert(subs, qt.HasLen, 2)
	for _, sub := range subs {
		c.Assert(draws(sub.Commands, 0), qt.DeepEquals, []uint32{3})
		c.Assert(draws(sub.Commands, 1), qt.DeepEquals, []uint32{6})
		c.Assert(draws(sub.Commands, 2), qt.DeepEquals, []uint32{6})
	}
	c.Assert(queue.Presents(), qt.DeepEquals, []uint32{0, 1})

	begin := subs[0].Commands[0]
	c.Assert(begin.Op, qt.Equals, headless.OpBeginRenderPass)
	c.Assert(begin.Clear, qt.HasLen, 6)
	c.Assert(begin.Clear[0], qt.DeepEquals, gfx.ClearDepth(1))
	c.Assert(begin.Clear[1], qt.DeepEquals, gfx.ClearColor(0, 0, 0, 1))
}

func TestDrawSkipsOutOfDate(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, hs := newSurface(t, f, 640, 480)

	// nothing to draw from yet
	c.Assert(surface.Draw(), qt.Equals, false)

	surface.SetCamera(core.NewCamera())
	hs.SetOutOfDate(1)
	c.Assert(surface.Draw(), qt.Equals, false)
	c.Assert(f.dev.HeadlessQueue().Submissions(), qt.HasLen, 0)

	c.Assert(surface.Draw(), qt.Equals, true)
	c.Assert(f.dev.HeadlessQueue().Submissions(), qt.HasLen, 1)
}

func TestDrawAbsorbsSubmitErrors(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, _ := newSurface(t, f, 640, 480)
	surface.SetCamera(core.NewCamera())

	f.dev.HeadlessQueue().FailSubmit(errors.New("device lost"))
	c.Assert(surface.Draw(), qt.Equals, false)
	c.Assert(f.logs.LastEntry().Message, qt.Equals, "submitting frame")

	f.dev.HeadlessQueue().FailSubmit(nil)
	c.Assert(surface.Draw(), qt.Equals, true)
}

func TestResizeRoundTrip(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, hs := newSurface(t, f, 640, 480)

	p := surface.Pipeline()
	c.Assert(p.Framebuffers(), qt.Equals, 2)
	c.Assert(p.Extent(), qt.Equals, gfx.Extent2D{Width: 640, Height: 480})

	c.Assert(surface.Resize(800, 600), qt.IsNil)
	c.Assert(surface.Extent(), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(p.Extent(), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(p.Framebuffers(), qt.Equals, 2)
	c.Assert(f.dev.Live(headless.KindFramebuffer), qt.Equals, 2)

	// the platform decides when it reports an extent
	current := gfx.Extent2D{Width: 1024, Height: 768}
	hs.SetCurrentExtent(&current)
	c.Assert(surface.Resize(1, 1), qt.IsNil)
	c.Assert(p.Extent(), qt.Equals, current)
	hs.SetCurrentExtent(nil)

	hs.RejectExtents(func(e gfx.Extent2D) bool { return e.Width > 4000 })
	c.Assert(surface.Resize(5000, 100), qt.IsNil)
	c.Assert(p.Extent(), qt.Equals, current)
}

func TestPipelineResizeIsAtomic(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, _ := newSurface(t, f, 640, 480)
	p := surface.Pipeline()

	images := f.dev.Live(headless.KindImage)
	framebuffers := f.dev.Live(headless.KindFramebuffer)

	var swap []gfx.Image
	for i := 0; i < 2; i++ {
		img, err := f.dev.NewImage(gfx.ImageDesc{Extent: gfx.Extent2D{Width: 320, Height: 240}, Format: core.SwapchainFormat})
		c.Assert(err, qt.IsNil)
		defer img.Release()
		swap = append(swap, img)
	}

	f.dev.FailAfter(headless.KindFramebuffer, 1, gfx.ErrOutOfDeviceMemory)
	err := p.Resize(swap, gfx.Extent2D{Width: 320, Height: 240})
	c.Assert(err, qt.Not(qt.IsNil))
	f.dev.FailAfter(headless.KindFramebuffer, 0, nil)

	c.Assert(p.Extent(), qt.Equals, gfx.Extent2D{Width: 640, Height: 480})
	c.Assert(f.dev.Live(headless.KindImage), qt.Equals, images+2)
	c.Assert(f.dev.Live(headless.KindFramebuffer), qt.Equals, framebuffers)

	surface.SetCamera(core.NewCamera())
	c.Assert(surface.Draw(), qt.Equals, true)
}

func TestForwardPipeline(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineForward)
	surface, _ := newSurface(t, f, 640, 480)
	c.Assert(surface.Pipeline(), qt.Not(qt.IsNil))

	group := core.NewMeshGroup()
	data := triangle(t, f.dev)
	defer data.Release()
	mesh, err := core.NewMesh(f.ctx, group)
	c.Assert(err, qt.IsNil)
	defer mesh.Release()
	c.Assert(mesh.SetMeshData(data), qt.IsNil)

	cam := core.NewCamera()
	cam.SetMeshGroup(group)
	surface.SetCamera(cam)
	c.Assert(surface.Draw(), qt.Equals, true)

	subs := f.dev.HeadlessQueue().Submissions()
	c.Assert(subs, qt.HasLen, 1)
	cmds := subs[0].Commands
	c.Assert(draws(cmds, 0), qt.DeepEquals, []uint32{3})
	c.Assert(draws(cmds, 1), qt.DeepEquals, []uint32{3})
	c.Assert(cmds[0].Clear, qt.DeepEquals, []gfx.ClearValue{gfx.ClearDepth(1), gfx.ClearColor(0, 0, 0.25, 1)})
}

func TestFailedResizeStopsDrawing(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, _ := newSurface(t, f, 640, 480)
	surface.SetCamera(core.NewCamera())

	f.dev.FailAfter(headless.KindFramebuffer, 0, gfx.ErrOutOfDeviceMemory)
	c.Assert(surface.Resize(800, 600), qt.ErrorMatches, ".*out of device memory")
	f.dev.FailAfter(headless.KindFramebuffer, 0, nil)

	c.Assert(surface.Pipeline(), qt.IsNil)
	c.Assert(f.dev.Live(headless.KindFramebuffer), qt.Equals, 0)
	c.Assert(surface.Draw(), qt.Equals, false)
	c.Assert(f.dev.HeadlessQueue().Submissions(), qt.HasLen, 0)

	c.Assert(surface.Resize(800, 600), qt.IsNil)
	c.Assert(surface.Pipeline().Extent(), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(surface.Draw(), qt.Equals, true)

	subs := f.dev.HeadlessQueue().Submissions()
	c.Assert(subs, qt.HasLen, 1)
	fb := subs[0].Commands[0].Framebuffer.(*headless.Framebuffer)
	c.Assert(fb.Extent(), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	for _, img := range fb.Attachments() {
		c.Assert(img.(*headless.Image).Released(), qt.Equals, false)
	}
}

func TestFailedRecordingConsumesAcquire(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, _ := newSurface(t, f, 640, 480)
	surface.SetCamera(core.NewCamera())

	// the first frame builds the sky descriptor set
	f.dev.FailAfter(headless.KindDescriptorSet, 0, gfx.ErrOutOfDeviceMemory)
	c.Assert(surface.Draw(), qt.Equals, false)
	f.dev.FailAfter(headless.KindDescriptorSet, 0, nil)

	subs := f.dev.HeadlessQueue().Submissions()
	c.Assert(subs, qt.HasLen, 1)
	c.Assert(subs[0].Handle, qt.Equals, gfx.Handle(0))
	c.Assert(subs[0].Commands, qt.HasLen, 0)
	c.Assert(subs[0].Waited, qt.Not(qt.IsNil))
	c.Assert(f.dev.HeadlessQueue().Presents(), qt.HasLen, 0)

	c.Assert(surface.Draw(), qt.Equals, true)
	subs = f.dev.HeadlessQueue().Submissions()
	c.Assert(subs, qt.HasLen, 2)
	c.Assert(subs[1].Waited, qt.Equals, subs[0].Waited)
}

func TestDrawRangeStaysInsideIndices(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	surface, _ := newSurface(t, f, 640, 480)

	group := core.NewMeshGroup()
	data := triangle(t, f.dev)
	defer data.Release()
	mesh, err := core.NewMesh(f.ctx, group)
	c.Assert(err, qt.IsNil)
	defer mesh.Release()
	c.Assert(mesh.SetMeshData(data), qt.IsNil)

	cam := core.NewCamera()
	cam.SetMeshGroup(group)
	surface.SetCamera(cam)

	geometry := func() []headless.Command {
		subs := f.dev.HeadlessQueue().Submissions()
		var out []headless.Command
		for _, cmd := range subs[len(subs)-1].Commands {
			if cmd.Op == headless.OpDrawIndexed && cmd.Subpass == 0 {
				out = append(out, cmd)
			}
		}
		return out
	}

	c.Assert(mesh.SetRange(1, 50), qt.IsNil)
	c.Assert(surface.Draw(), qt.Equals, true)
	cmds := geometry()
	c.Assert(cmds, qt.HasLen, 1)
	c.Assert(cmds[0].First, qt.Equals, uint32(1))
	c.Assert(cmds[0].Count, qt.Equals, uint32(2))

	c.Assert(mesh.SetRange(3, 9), qt.IsNil)
	c.Assert(surface.Draw(), qt.Equals, true)
	c.Assert(geometry(), qt.HasLen, 0)

	c.Assert(mesh.SetRange(0, 0), qt.IsNil)
	c.Assert(surface.Draw(), qt.Equals, true)
	cmds = geometry()
	c.Assert(cmds, qt.HasLen, 1)
	c.Assert(cmds[0].Count, qt.Equals, uint32(3))
}
