// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"math"
	"sync"
	"time"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// Semaphore implements gfx.Semaphore.
type Semaphore struct {
	device    *Device
	handle    gfx.Handle
	semaphore vk.Semaphore
}

// Handle implements gfx.Semaphore.
func (s *Semaphore) Handle() gfx.Handle { return s.handle }

// Release implements gfx.Semaphore.
func (s *Semaphore) Release() {
	if s.semaphore != nil {
		vk.DestroySemaphore(s.device.device, s.semaphore, nil)
		s.semaphore = nil
	}
}

// Fence implements gfx.Fence. Resources that must outlive the GPU work,
// like staging buffers, are attached to the fence and freed once it is
// observed signaled.
type Fence struct {
	device *Device
	fence  vk.Fence

	mutex    sync.Mutex
	done     bool
	released bool
	cleanup  []func()
}

func (f *Fence) onSignaled(fn func()) {
	f.cleanup = append(f.cleanup, fn)
}

func (f *Fence) finish() {
	if f.done {
		return
	}
	f.done = true
	for _, fn := range f.cleanup {
		fn()
	}
	f.cleanup = nil
}

// Wait implements gfx.Fence.
func (f *Fence) Wait(timeout time.Duration) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.done || f.released {
		return nil
	}
	res := vk.WaitForFences(f.device.device, 1, []vk.Fence{f.fence}, vk.True, uint64(timeout.Nanoseconds()))
	if err := vkError("vk.WaitForFences()", res); err != nil {
		return err
	}
	f.finish()
	return nil
}

// Signaled implements gfx.Fence.
func (f *Fence) Signaled() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.done || f.released {
		return true
	}
	if vk.GetFenceStatus(f.device.device, f.fence) != vk.Success {
		return false
	}
	f.finish()
	return true
}

// Release waits for the work to finish and destroys the fence.
func (f *Fence) Release() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.released {
		return
	}
	if !f.done {
		vk.WaitForFences(f.device.device, 1, []vk.Fence{f.fence}, vk.True, math.MaxUint64)
		f.finish()
	}
	vk.DestroyFence(f.device.device, f.fence, nil)
	f.released = true
}
