// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"sync"
	"unsafe"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// NewCommandBuffer implements gfx.Device.
func (d *Device) NewCommandBuffer() (gfx.CommandBuffer, error) {
	cmd, err := d.allocateCommandBuffer()
	if err != nil {
		return nil, err
	}
	return &CommandBuffer{device: d, handle: d.nextHandle(), cmd: cmd}, nil
}

// CommandBuffer implements gfx.CommandBuffer. Begin resets previous contents.
type CommandBuffer struct {
	device *Device
	handle gfx.Handle
	cmd    vk.CommandBuffer
}

// Handle implements gfx.CommandBuffer.
func (c *CommandBuffer) Handle() gfx.Handle { return c.handle }

// Release implements gfx.CommandBuffer.
func (c *CommandBuffer) Release() {
	if c.cmd != nil {
		c.device.freeCommandBuffer(c.cmd)
		c.cmd = nil
	}
}

// Begin implements gfx.CommandBuffer.
func (c *CommandBuffer) Begin() error {
	if err := vkError("vk.ResetCommandBuffer()", vk.ResetCommandBuffer(c.cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))); err != nil {
		return err
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return vkError("vk.BeginCommandBuffer()", vk.BeginCommandBuffer(c.cmd, &cbbi))
}

// BeginRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(rp gfx.RenderPass, fb gfx.Framebuffer, clear []gfx.ClearValue) {
	pass, framebuffer := rp.(*RenderPass), fb.(*Framebuffer)
	clearValues := make([]vk.ClearValue, len(clear))
	for i, cv := range clear {
		if i < len(pass.desc.Attachments) && pass.desc.Attachments[i].Format.IsDepth() {
			clearValues[i].SetDepthStencil(cv.Depth, 0)
		} else {
			clearValues[i].SetColor(cv.Color[:])
		}
	}

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.pass,
		Framebuffer: framebuffer.framebuffer,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{
				Width:  framebuffer.extent.Width,
				Height: framebuffer.extent.Height,
			},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.cmd, &rpbi, vk.SubpassContentsInline)
}

// NextSubpass implements gfx.CommandBuffer.
func (c *CommandBuffer) NextSubpass() {
	vk.CmdNextSubpass(c.cmd, vk.SubpassContentsInline)
}

// EndRenderPass implements gfx.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.cmd)
}

// BindPipeline implements gfx.CommandBuffer.
func (c *CommandBuffer) BindPipeline(p gfx.GraphicsPipeline) {
	vk.CmdBindPipeline(c.cmd, vk.PipelineBindPointGraphics, p.(*GraphicsPipeline).pipeline)
}

// BindDescriptorSets implements gfx.CommandBuffer.
func (c *CommandBuffer) BindDescriptorSets(layout gfx.PipelineLayout, first uint32, sets ...gfx.DescriptorSet) {
	vkSets := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		vkSets[i] = s.(*DescriptorSet).set
	}
	vk.CmdBindDescriptorSets(c.cmd, vk.PipelineBindPointGraphics, layout.(*PipelineLayout).layout,
		first, uint32(len(vkSets)), vkSets, 0, nil)
}

// BindVertexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindVertexBuffer(b gfx.Buffer) {
	vk.CmdBindVertexBuffers(c.cmd, 0, 1, []vk.Buffer{b.(*Buffer).buffer}, []vk.DeviceSize{0})
}

// BindIndexBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) BindIndexBuffer(b gfx.Buffer, t gfx.IndexType) {
	vk.CmdBindIndexBuffer(c.cmd, b.(*Buffer).buffer, 0, indexType(t))
}

// PushConstants implements gfx.CommandBuffer.
func (c *CommandBuffer) PushConstants(layout gfx.PipelineLayout, stages gfx.ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(c.cmd, layout.(*PipelineLayout).layout, shaderStages(stages), offset,
		uint32(len(data)), unsafe.Pointer(&data[0]))
}

// Draw implements gfx.CommandBuffer.
func (c *CommandBuffer) Draw(vertexCount, firstVertex uint32) {
	vk.CmdDraw(c.cmd, vertexCount, 1, firstVertex, 0)
}

// DrawIndexed implements gfx.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(indexCount, firstIndex uint32) {
	vk.CmdDrawIndexed(c.cmd, indexCount, 1, firstIndex, 0, 0)
}

// End implements gfx.CommandBuffer.
func (c *CommandBuffer) End() error {
	return vkError("vk.EndCommandBuffer()", vk.EndCommandBuffer(c.cmd))
}

// Queue implements gfx.Queue. Submissions from different goroutines
// are serialized, vulkan queues are externally synchronized.
type Queue struct {
	device *Device
	queue  vk.Queue
	mutex  sync.Mutex
}

func (q *Queue) submit(cmd vk.CommandBuffer, wait, signal *Semaphore) (*Fence, error) {
	fence, err := q.device.newFence()
	if err != nil {
		return nil, err
	}

	si := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
	}
	if cmd != nil {
		si.CommandBufferCount = 1
		si.PCommandBuffers = []vk.CommandBuffer{cmd}
	}
	if wait != nil {
		si.WaitSemaphoreCount = 1
		si.PWaitSemaphores = []vk.Semaphore{wait.semaphore}
		si.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	if signal != nil {
		si.SignalSemaphoreCount = 1
		si.PSignalSemaphores = []vk.Semaphore{signal.semaphore}
	}

	q.mutex.Lock()
	res := vk.QueueSubmit(q.queue, 1, []vk.SubmitInfo{si}, fence.fence)
	q.mutex.Unlock()
	if err := vkError("vk.QueueSubmit()", res); err != nil {
		vk.DestroyFence(q.device.device, fence.fence, nil)
		return nil, err
	}
	return fence, nil
}

func semaphore(s gfx.Semaphore) *Semaphore {
	if s == nil {
		return nil
	}
	return s.(*Semaphore)
}

// Submit implements gfx.Queue.
func (q *Queue) Submit(cmd gfx.CommandBuffer, wait, signal gfx.Semaphore) (gfx.Fence, error) {
	if cmd == nil {
		return q.submit(nil, semaphore(wait), semaphore(signal))
	}
	c, ok := cmd.(*CommandBuffer)
	if !ok {
		return nil, ErrForeignResource
	}
	return q.submit(c.cmd, semaphore(wait), semaphore(signal))
}

// Present implements gfx.Queue.
func (q *Queue) Present(sc gfx.Swapchain, index uint32, wait gfx.Semaphore) error {
	swapchain, ok := sc.(*Swapchain)
	if !ok {
		return ErrForeignResource
	}
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{swapchain.swapchain},
		PImageIndices:  []uint32{index},
	}
	if s := semaphore(wait); s != nil {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{s.semaphore}
	}

	q.mutex.Lock()
	defer q.mutex.Unlock()
	return vkError("vk.QueuePresent()", vk.QueuePresent(q.queue, &presentInfo))
}
