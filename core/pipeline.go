// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"

	"github.com/devblok/nice/gfx"
)

// ErrNoCamera is returned when drawing without a camera.
var ErrNoCamera = errors.New("no camera to draw")

// Pipeline records the frame of one surface. It is implemented by
// *DeferredPipeline and *ForwardPipeline only.
type Pipeline interface {
	gfx.Releasable

	// Draw records the frame for the swapchain image at imageIndex.
	Draw(imageIndex uint32, cam *Camera, lights []DirectLight) (gfx.CommandBuffer, error)

	// Resize rebuilds the size dependent resources for new swapchain
	// images. On failure the previous resources stay in place.
	Resize(images []gfx.Image, extent gfx.Extent2D) error

	// Extent returns the size the pipeline renders at.
	Extent() gfx.Extent2D

	// Framebuffers returns the number of framebuffers, one per image.
	Framebuffers() int

	pipeline()
}

// releaser collects resources built so far so a failed construction
// can release them in reverse order.
type releaser []gfx.Releasable

func (r *releaser) add(rs ...gfx.Releasable) {
	*r = append(*r, rs...)
}

func (r releaser) release() {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] != nil {
			r[i].Release()
		}
	}
}

// frameMeshes refreshes the meshes of group and snapshots the drawable
// ones. Snapshot data is retained and released with releaseSnapshots.
func frameMeshes(group *MeshGroup) ([]MeshSnapshot, error) {
	if group == nil {
		return nil, nil
	}
	var out []MeshSnapshot
	for _, e := range group.meshes() {
		if err := e.refresh(); err != nil {
			releaseSnapshots(out)
			return nil, err
		}
		s := e.snapshot()
		if s.Data == nil {
			s.Release()
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func releaseSnapshots(snaps []MeshSnapshot) {
	for _, s := range snaps {
		s.Release()
	}
}

// meshPipelines holds one pipeline per topology.
type meshPipelines struct {
	list  gfx.GraphicsPipeline
	strip gfx.GraphicsPipeline
}

func (p meshPipelines) forTopology(t gfx.Topology) gfx.GraphicsPipeline {
	if t == gfx.TopologyTriangleStrip {
		return p.strip
	}
	return p.list
}

// newMeshPipelines builds the list and strip variants of desc.
func newMeshPipelines(dev gfx.Device, desc gfx.PipelineDesc, r *releaser) (meshPipelines, error) {
	var out meshPipelines
	for _, v := range []struct {
		topology gfx.Topology
		dst      *gfx.GraphicsPipeline
	}{
		{gfx.TopologyTriangleList, &out.list},
		{gfx.TopologyTriangleStrip, &out.strip},
	} {
		d := desc
		d.Topology = v.topology
		d.Name = fmt.Sprintf("%s-%s", desc.Name, v.topology)
		p, err := dev.NewGraphicsPipeline(d)
		if err != nil {
			return out, fmt.Errorf("pipeline %s: %w", d.Name, err)
		}
		r.add(p)
		*v.dst = p
	}
	return out, nil
}

// drawRange returns the indices a snapshot draws. An empty range is the
// whole index buffer, a range past its end is cut at the end.
func drawRange(s MeshSnapshot) (start, count uint32, ok bool) {
	total := s.Data.IndexBuffer().Count
	if s.End == s.Start {
		return 0, total, total > 0
	}
	if s.Start >= total {
		return 0, 0, false
	}
	end := s.End
	if end > total {
		end = total
	}
	return s.Start, end - s.Start, true
}

// drawMesh records an indexed draw of one mesh snapshot. It reports
// false when the range holds no indices of the mesh data.
func drawMesh(cmd gfx.CommandBuffer, pipes meshPipelines, layout gfx.PipelineLayout, cam CameraSnapshot, s MeshSnapshot) bool {
	start, count, ok := drawRange(s)
	if !ok {
		return false
	}
	cmd.BindPipeline(pipes.forTopology(s.Data.Topology()))
	cmd.BindDescriptorSets(layout, 0, s.Set)
	cmd.PushConstants(layout, gfx.ShaderStageVertex|gfx.ShaderStageFragment, 0, geometryPushConstants(cam, s.Transform))
	cmd.BindVertexBuffer(s.Data.Vertices())
	ib := s.Data.IndexBuffer()
	cmd.BindIndexBuffer(ib.Buffer, ib.Type)
	cmd.DrawIndexed(count, start)
	return true
}

// frameResources holds per swapchain image command buffers and the
// mesh data and descriptor sets their last recording referenced.
type frameResources struct {
	commands []gfx.CommandBuffer
	held     [][]MeshSnapshot
}

func newFrameResources(dev gfx.Device, count int, r *releaser) (*frameResources, error) {
	f := &frameResources{held: make([][]MeshSnapshot, count)}
	for i := 0; i < count; i++ {
		cmd, err := dev.NewCommandBuffer()
		if err != nil {
			return nil, fmt.Errorf("command buffer: %w", err)
		}
		r.add(cmd)
		f.commands = append(f.commands, cmd)
	}
	return f, nil
}

// hold replaces the snapshots referenced by image index.
func (f *frameResources) hold(index uint32, snaps []MeshSnapshot) {
	releaseSnapshots(f.held[index])
	f.held[index] = snaps
}

// releaseHeld drops every held snapshot, the command
// buffers are owned by the releaser they were built with.
func (f *frameResources) releaseHeld() {
	for i, h := range f.held {
		releaseSnapshots(h)
		f.held[i] = nil
	}
}
