// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package headless

import (
	"errors"
	"sync"
	"time"

	"github.com/devblok/nice/gfx"
)

// Op is a recorded command type.
type Op int

// Recorded operations
const (
	OpBeginRenderPass Op = iota
	OpNextSubpass
	OpEndRenderPass
	OpBindPipeline
	OpBindDescriptorSets
	OpBindVertexBuffer
	OpBindIndexBuffer
	OpPushConstants
	OpDraw
	OpDrawIndexed
)

var opNames = [...]string{
	"BeginRenderPass", "NextSubpass", "EndRenderPass", "BindPipeline", "BindDescriptorSets",
	"BindVertexBuffer", "BindIndexBuffer", "PushConstants", "Draw", "DrawIndexed",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "Unknown"
}

// Command is one recorded command. Subpass and Pipeline hold the
// state current at the time the command was recorded.
type Command struct {
	Op          Op
	Subpass     int
	Pipeline    gfx.GraphicsPipeline
	Framebuffer gfx.Framebuffer
	Clear       []gfx.ClearValue
	Sets        []gfx.DescriptorSet
	Buffer      gfx.Buffer
	IndexType   gfx.IndexType
	Data        []byte
	Count       uint32
	First       uint32
}

// ErrNotRecording is returned when End is called without Begin.
var ErrNotRecording = errors.New("command buffer is not recording")

// CommandBuffer records commands into memory.
type CommandBuffer struct {
	object

	mu        sync.Mutex
	recording bool
	subpass   int
	pipeline  gfx.GraphicsPipeline
	commands  []Command
}

// Begin implements gfx.CommandBuffer, discarding previous commands.
func (c *CommandBuffer) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = true
	c.subpass = -1
	c.pipeline = nil
	c.commands = nil
	return nil
}

func (c *CommandBuffer) record(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd.Op {
	case OpBeginRenderPass:
		c.subpass = 0
	case OpNextSubpass:
		c.subpass++
	case OpEndRenderPass:
		c.subpass = -1
	case OpBindPipeline:
		c.pipeline = cmd.Pipeline
	}
	cmd.Subpass = c.subpass
	cmd.Pipeline = c.pipeline
	c.commands = append(c.commands, cmd)
}

// BeginRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(rp gfx.RenderPass, fb gfx.Framebuffer, clear []gfx.ClearValue) {
	c.record(Command{Op: OpBeginRenderPass, Framebuffer: fb, Clear: append([]gfx.ClearValue{}, clear...)})
}

// NextSubpass implements gfx.CommandBuffer.
func (c *CommandBuffer) NextSubpass() {
	c.record(Command{Op: OpNextSubpass})
}

// EndRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() {
	c.record(Command{Op: OpEndRenderPass})
}

// BindPipeline implements gfx.CommandBuffer.
func (c *CommandBuffer) BindPipeline(p gfx.GraphicsPipeline) {
	c.record(Command{Op: OpBindPipeline, Pipeline: p})
}

// BindDescriptorSets implements gfx.CommandBuffer.
func (c *CommandBuffer) BindDescriptorSets(layout gfx.PipelineLayout, first uint32, sets ...gfx.DescriptorSet) {
	c.record(Command{Op: OpBindDescriptorSets, First: first, Sets: append([]gfx.DescriptorSet{}, sets...)})
}

// BindVertexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindVertexBuffer(b gfx.Buffer) {
	c.record(Command{Op: OpBindVertexBuffer, Buffer: b})
}

// BindIndexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindIndexBuffer(b gfx.Buffer, t gfx.IndexType) {
	c.record(Command{Op: OpBindIndexBuffer, Buffer: b, IndexType: t})
}

// PushConstants implements gfx.CommandBuffer.
func (c *CommandBuffer) PushConstants(layout gfx.PipelineLayout, stages gfx.ShaderStage, offset uint32, data []byte) {
	c.record(Command{Op: OpPushConstants, First: offset, Data: append([]byte{}, data...)})
}

// Draw implements gfx.CommandBuffer.
func (c *CommandBuffer) Draw(vertexCount, firstVertex uint32) {
	c.record(Command{Op: OpDraw, Count: vertexCount, First: firstVertex})
}

// DrawIndexed implements gfx.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(indexCount, firstIndex uint32) {
	c.record(Command{Op: OpDrawIndexed, Count: indexCount, First: firstIndex})
}

// End implements gfx.CommandBuffer.
func (c *CommandBuffer) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return ErrNotRecording
	}
	c.recording = false
	return nil
}

// Commands returns a copy of the recorded commands.
func (c *CommandBuffer) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command{}, c.commands...)
}

// Submission is a command buffer snapshot taken at submit time.
// Handle is zero for submissions without a command buffer.
type Submission struct {
	Handle   gfx.Handle
	Commands []Command
	Waited   gfx.Semaphore
}

// Queue records submissions and presents.
type Queue struct {
	device *Device

	mu          sync.Mutex
	submissions []Submission
	presents    []uint32
	submitErr   error
	presentErr  error
}

// FailSubmit makes the following submissions fail with err, nil clears it.
func (q *Queue) FailSubmit(err error) {
	q.mu.Lock()
	q.submitErr = err
	q.mu.Unlock()
}

// FailPresent makes the following presents fail with err, nil clears it.
func (q *Queue) FailPresent(err error) {
	q.mu.Lock()
	q.presentErr = err
	q.mu.Unlock()
}

// Submit implements gfx.Queue.
func (q *Queue) Submit(cmd gfx.CommandBuffer, wait, signal gfx.Semaphore) (gfx.Fence, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.submitErr != nil {
		return nil, q.submitErr
	}
	s := Submission{Waited: wait}
	if cmd != nil {
		s.Handle = cmd.Handle()
	}
	if cb, ok := cmd.(*CommandBuffer); ok {
		s.Commands = cb.Commands()
	}
	q.submissions = append(q.submissions, s)
	f := &fence{done: make(chan struct{})}
	close(f.done)
	return f, nil
}

// Present implements gfx.Queue.
func (q *Queue) Present(sc gfx.Swapchain, index uint32, wait gfx.Semaphore) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.presentErr != nil {
		return q.presentErr
	}
	q.presents = append(q.presents, index)
	return nil
}

// Submissions returns all submissions so far.
func (q *Queue) Submissions() []Submission {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Submission{}, q.submissions...)
}

// Presents returns presented image indices in order.
func (q *Queue) Presents() []uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uint32{}, q.presents...)
}

// NewSurface creates a surface reporting current as its extent,
// nil leaves the extent up to the swapchain.
func NewSurface(current *gfx.Extent2D) *Surface {
	return &Surface{
		caps: gfx.SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 8,
			CurrentExtent: current,
			MinExtent:     gfx.Extent2D{Width: 1, Height: 1},
			MaxExtent:     gfx.Extent2D{Width: 16384, Height: 16384},
		},
	}
}

// Surface is a fake presentation surface.
type Surface struct {
	mu        sync.Mutex
	caps      gfx.SurfaceCapabilities
	outOfDate int
	reject    func(gfx.Extent2D) bool
}

// Capabilities implements gfx.Surface.
func (s *Surface) Capabilities() (gfx.SurfaceCapabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caps := s.caps
	if caps.CurrentExtent != nil {
		e := *caps.CurrentExtent
		caps.CurrentExtent = &e
	}
	return caps, nil
}

// SetCurrentExtent changes the extent reported by Capabilities.
func (s *Surface) SetCurrentExtent(e *gfx.Extent2D) {
	s.mu.Lock()
	s.caps.CurrentExtent = e
	s.mu.Unlock()
}

// SetMinImageCount changes the minimum swapchain image count.
func (s *Surface) SetMinImageCount(n uint32) {
	s.mu.Lock()
	s.caps.MinImageCount = n
	s.mu.Unlock()
}

// SetOutOfDate makes the next n acquires on swapchains of this surface
// return gfx.ErrOutOfDate.
func (s *Surface) SetOutOfDate(n int) {
	s.mu.Lock()
	s.outOfDate = n
	s.mu.Unlock()
}

// RejectExtents makes swapchain creation fail with
// gfx.ErrUnsupportedDimensions for extents f returns true for.
func (s *Surface) RejectExtents(f func(gfx.Extent2D) bool) {
	s.mu.Lock()
	s.reject = f
	s.mu.Unlock()
}

func (s *Surface) rejects(e gfx.Extent2D) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reject != nil && s.reject(e)
}

func (s *Surface) takeOutOfDate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outOfDate > 0 {
		s.outOfDate--
		return true
	}
	return false
}

// Release implements gfx.Surface.
func (s *Surface) Release() {}

// Swapchain hands out its images round robin.
type Swapchain struct {
	object
	surface  *Surface
	extent   gfx.Extent2D
	format   gfx.Format
	images   []gfx.Image
	acquired gfx.Semaphore

	mu   sync.Mutex
	next uint32
}

// Images implements gfx.Swapchain.
func (s *Swapchain) Images() []gfx.Image { return s.images }

// Extent implements gfx.Swapchain.
func (s *Swapchain) Extent() gfx.Extent2D { return s.extent }

// Format implements gfx.Swapchain.
func (s *Swapchain) Format() gfx.Format { return s.format }

// AcquireNextImage implements gfx.Swapchain.
func (s *Swapchain) AcquireNextImage(timeout time.Duration) (uint32, gfx.Semaphore, error) {
	if s.Released() {
		return 0, nil, gfx.ErrOutOfDate
	}
	if s.surface.takeOutOfDate() {
		return 0, nil, gfx.ErrOutOfDate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.next
	s.next = (s.next + 1) % uint32(len(s.images))
	return idx, s.acquired, nil
}

// Release implements gfx.Swapchain.
func (s *Swapchain) Release() {
	for _, img := range s.images {
		img.Release()
	}
	if s.acquired != nil {
		s.acquired.Release()
	}
	s.object.Release()
}
