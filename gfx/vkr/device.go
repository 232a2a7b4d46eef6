// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// descriptorPoolSize bounds the number of descriptor sets alive at once.
const descriptorPoolSize = 4096

// NewDevice creates a logical device on the first physical device that
// can render to surface. A nil surface selects any graphics capable device.
func NewDevice(instance *Instance, surface *Surface) (*Device, error) {
	for _, physical := range instance.availableDevices {
		family, ok := graphicsQueueFamily(physical, surface)
		if !ok {
			continue
		}
		d, err := newDevice(physical, family)
		if err != nil {
			return nil, err
		}
		if surface != nil {
			surface.physical = physical
		}
		return d, nil
	}
	return nil, ErrNoDevice
}

// BindSurface prepares a surface created after the device for
// swapchain creation. It fails when the device queue cannot present to it.
func (d *Device) BindSurface(s *Surface) error {
	var supportsPresent vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(d.physical, d.family, s.surface, &supportsPresent)
	if err := vkError("vk.GetPhysicalDeviceSurfaceSupport()", res); err != nil {
		return err
	}
	if !supportsPresent.B() {
		return fmt.Errorf("%s can not present to the surface", d)
	}
	s.physical = d.physical
	return nil
}

// graphicsQueueFamily finds a queue family that can both draw and present.
func graphicsQueueFamily(physical vk.PhysicalDevice, surface *Surface) (uint32, bool) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if surface == nil {
			return i, true
		}
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(physical, i, surface.surface, &supportsPresent)
		if supportsPresent.B() {
			return i, true
		}
	}
	return 0, false
}

func newDevice(physical vk.PhysicalDevice, family uint32) (*Device, error) {
	requiredExtensions := []string{
		vk.KhrSwapchainExtensionName,
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredExtensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}

	var device vk.Device
	if err := vkError("vk.CreateDevice()", vk.CreateDevice(physical, &dci, nil, &device)); err != nil {
		return nil, err
	}

	d := &Device{
		physical: physical,
		device:   device,
		family:   family,
		memory:   NewMemoryAllocator(device, physical),
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	d.queue = &Queue{device: d, queue: queue}

	if err := d.createPools(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

// Device implements gfx.Device for a Vulkan logical device.
type Device struct {
	counter uint64

	physical vk.PhysicalDevice
	device   vk.Device
	family   uint32
	queue    *Queue
	memory   *MemoryAllocator

	// pools are externally synchronized
	poolMutex      sync.Mutex
	commandPool    vk.CommandPool
	descriptorPool vk.DescriptorPool
	pipelineCache  vk.PipelineCache
}

var _ gfx.Device = (*Device)(nil)

func (d *Device) createPools() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.family,
	}
	if err := vkError("vk.CreateCommandPool()", vk.CreateCommandPool(d.device, &cpci, nil, &d.commandPool)); err != nil {
		return err
	}

	poolSizes := []vk.DescriptorPoolSize{{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: descriptorPoolSize,
	}, {
		Type:            vk.DescriptorTypeInputAttachment,
		DescriptorCount: descriptorPoolSize,
	}}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descriptorPoolSize,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if err := vkError("vk.CreateDescriptorPool()", vk.CreateDescriptorPool(d.device, &dpci, nil, &d.descriptorPool)); err != nil {
		return err
	}

	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	return vkError("vk.CreatePipelineCache()", vk.CreatePipelineCache(d.device, &pcci, nil, &d.pipelineCache))
}

func (d *Device) nextHandle() gfx.Handle {
	return gfx.Handle(atomic.AddUint64(&d.counter, 1))
}

// Queue implements gfx.Device.
func (d *Device) Queue() gfx.Queue {
	return d.queue
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	d.queue.mutex.Lock()
	defer d.queue.mutex.Unlock()
	return vkError("vk.DeviceWaitIdle()", vk.DeviceWaitIdle(d.device))
}

// Release waits for the device and destroys it. Every
// resource created from the device must be released first.
func (d *Device) Release() {
	if d.device == nil {
		return
	}
	vk.DeviceWaitIdle(d.device)
	if d.pipelineCache != nil {
		vk.DestroyPipelineCache(d.device, d.pipelineCache, nil)
	}
	if d.descriptorPool != nil {
		vk.DestroyDescriptorPool(d.device, d.descriptorPool, nil)
	}
	if d.commandPool != nil {
		vk.DestroyCommandPool(d.device, d.commandPool, nil)
	}
	vk.DestroyDevice(d.device, nil)
	d.device = nil
}

// allocateCommandBuffer allocates a primary command buffer from the device pool.
func (d *Device) allocateCommandBuffer() (vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	d.poolMutex.Lock()
	defer d.poolMutex.Unlock()
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vkError("vk.AllocateCommandBuffers()", vk.AllocateCommandBuffers(d.device, &cbai, commandBuffers)); err != nil {
		return nil, err
	}
	return commandBuffers[0], nil
}

func (d *Device) freeCommandBuffer(cmd vk.CommandBuffer) {
	d.poolMutex.Lock()
	vk.FreeCommandBuffers(d.device, d.commandPool, 1, []vk.CommandBuffer{cmd})
	d.poolMutex.Unlock()
}

func (d *Device) createBuffer(size int, usage vk.BufferUsageFlags, prop vk.MemoryPropertyFlagBits) (vk.Buffer, Memory, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vkError("vk.CreateBuffer()", vk.CreateBuffer(d.device, &bci, nil, &buffer)); err != nil {
		return nil, Memory{}, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &req)
	req.Deref()

	memory, err := d.memory.Malloc(req, prop)
	if err != nil {
		vk.DestroyBuffer(d.device, buffer, nil)
		return nil, Memory{}, err
	}
	if err := vkError("vk.BindBufferMemory()", vk.BindBufferMemory(d.device, buffer, memory.Get(), 0)); err != nil {
		memory.Release()
		vk.DestroyBuffer(d.device, buffer, nil)
		return nil, Memory{}, err
	}
	return buffer, memory, nil
}

// NewBuffer implements gfx.Device. Buffers live in host visible
// memory that stays mapped for the lifetime of the buffer.
func (d *Device) NewBuffer(usage gfx.BufferUsage, data []byte) (gfx.Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("vkr: empty buffer")
	}
	buffer, memory, err := d.createBuffer(len(data), bufferUsage(usage),
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	b := &Buffer{
		device: d,
		handle: d.nextHandle(),
		buffer: buffer,
		memory: memory,
		size:   len(data),
		usage:  usage,
	}
	if _, err := b.Write(data, 0); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// NewSemaphore implements gfx.Device.
func (d *Device) NewSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := vkError("vk.CreateSemaphore()", vk.CreateSemaphore(d.device, &sci, nil, &semaphore)); err != nil {
		return nil, err
	}
	return &Semaphore{device: d, handle: d.nextHandle(), semaphore: semaphore}, nil
}

func (d *Device) newFence() (*Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var fence vk.Fence
	if err := vkError("vk.CreateFence()", vk.CreateFence(d.device, &fci, nil, &fence)); err != nil {
		return nil, err
	}
	return &Fence{device: d, fence: fence}, nil
}

func (d *Device) String() string {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.physical, &properties)
	properties.Deref()
	return fmt.Sprintf("%s (queue family %d)", vk.ToString(properties.DeviceName[:]), d.family)
}
