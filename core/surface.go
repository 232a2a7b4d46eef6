// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devblok/nice/gfx"
)

var surfaceIDs uint64

// Surface draws the scene seen by a camera into a presentable surface.
// Draw and Resize must be called from the same goroutine.
type Surface struct {
	ctx     *Context
	dev     gfx.Device
	surface gfx.Surface
	log     logrus.FieldLogger
	timeout time.Duration

	swapchain gfx.Swapchain
	pipeline  Pipeline
	finished  gfx.Semaphore
	previous  gfx.Fence

	mutex  sync.RWMutex
	camera *Camera
	lights []DirectLight
}

// NewSurface creates the swapchain and pipeline for surface at the
// requested size. The surface is taken over and released with it.
func NewSurface(ctx *Context, surface gfx.Surface, width, height uint32) (*Surface, error) {
	if ctx == nil {
		return nil, ErrNotInitialized
	}
	s := &Surface{
		ctx:      ctx,
		dev:      ctx.dev,
		surface:  surface,
		log:      ctx.log.WithField("surface", atomic.AddUint64(&surfaceIDs, 1)),
		timeout:  ctx.cfg.Time.frameTimeout(),
		previous: gfx.CompletedFence,
	}
	var err error
	if s.finished, err = s.dev.NewSemaphore(); err != nil {
		return nil, fmt.Errorf("render semaphore: %w", err)
	}
	if err := s.Resize(width, height); err != nil {
		s.finished.Release()
		return nil, err
	}
	return s, nil
}

// SetCamera sets the camera to draw from, nil stops drawing.
func (s *Surface) SetCamera(c *Camera) {
	s.mutex.Lock()
	s.camera = c
	s.mutex.Unlock()
}

// Camera returns the camera drawn from.
func (s *Surface) Camera() *Camera {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.camera
}

// SetLights replaces the lights of the scene.
func (s *Surface) SetLights(lights []DirectLight) {
	s.mutex.Lock()
	s.lights = append([]DirectLight(nil), lights...)
	s.mutex.Unlock()
}

// Extent returns the current swapchain size.
func (s *Surface) Extent() gfx.Extent2D {
	if s.swapchain == nil {
		return gfx.Extent2D{}
	}
	return s.swapchain.Extent()
}

// Pipeline returns the pipeline frames are recorded with.
func (s *Surface) Pipeline() Pipeline {
	return s.pipeline
}

// Draw renders and presents one frame. It reports whether a frame was
// submitted. Out of date swapchains and missing cameras skip the frame,
// other failures are logged.
func (s *Surface) Draw() bool {
	if err := s.previous.Wait(s.timeout); err != nil {
		s.log.WithError(err).Warn("previous frame did not finish")
		return false
	}
	s.retire(gfx.CompletedFence)
	if s.swapchain == nil || s.pipeline == nil {
		return false
	}

	s.mutex.RLock()
	cam, lights := s.camera, s.lights
	s.mutex.RUnlock()
	if cam == nil {
		return false
	}

	index, acquired, err := s.swapchain.AcquireNextImage(s.timeout)
	if err != nil {
		if !errors.Is(err, gfx.ErrOutOfDate) {
			s.log.WithError(err).Warn("acquiring swapchain image")
		}
		return false
	}

	cmd, err := s.pipeline.Draw(index, cam, lights)
	if err != nil {
		s.log.WithError(err).WithField("image", index).Warn("recording frame")
		s.unwait(acquired)
		return false
	}

	fence, err := s.dev.Queue().Submit(cmd, acquired, s.finished)
	if err != nil {
		s.log.WithError(err).WithField("image", index).Warn("submitting frame")
		return false
	}
	s.previous = fence

	if err := s.dev.Queue().Present(s.swapchain, index, s.finished); err != nil {
		if !errors.Is(err, gfx.ErrOutOfDate) {
			s.log.WithError(err).WithField("image", index).Warn("presenting frame")
		}
		s.retire(gfx.CompletedFence)
	}
	return true
}

// unwait consumes a signaled acquire semaphore of a frame that
// is not submitted, so the swapchain can hand it out again.
func (s *Surface) unwait(acquired gfx.Semaphore) {
	fence, err := s.dev.Queue().Submit(nil, acquired, nil)
	if err != nil {
		s.log.WithError(err).Warn("releasing acquire semaphore")
		return
	}
	s.retire(fence)
}

// Resize recreates the swapchain and the pipeline targets for the new
// window size. Sizes the surface does not support are ignored. When the
// pipeline cannot follow the new swapchain it is dropped and drawing
// stops until a later Resize succeeds.
func (s *Surface) Resize(width, height uint32) error {
	caps, err := s.surface.Capabilities()
	if err != nil {
		return fmt.Errorf("surface capabilities: %w", err)
	}
	extent := gfx.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent != nil {
		extent = *caps.CurrentExtent
	}
	extent = clampExtent(extent, caps)

	count := s.ctx.cfg.Renderer.SwapchainSize
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}

	if err := s.dev.WaitIdle(); err != nil {
		return err
	}
	swapchain, err := s.dev.NewSwapchain(s.surface, gfx.SwapchainDesc{
		ImageCount: count,
		Extent:     extent,
		Format:     SwapchainFormat,
	}, s.swapchain)
	if errors.Is(err, gfx.ErrUnsupportedDimensions) {
		s.log.WithField("width", extent.Width).WithField("height", extent.Height).Debug("ignoring unsupported surface size")
		return nil
	}
	if err != nil {
		return fmt.Errorf("swapchain: %w", err)
	}
	s.swapchain = swapchain
	s.retire(gfx.CompletedFence)

	if s.pipeline == nil {
		p, err := s.ctx.MakePipeline(swapchain.Images(), swapchain.Extent())
		if err != nil {
			return err
		}
		s.pipeline = p
	} else if err := s.pipeline.Resize(swapchain.Images(), swapchain.Extent()); err != nil {
		// the old targets reference images of the released swapchain
		s.pipeline.Release()
		s.pipeline = nil
		return err
	}
	s.log.WithField("width", extent.Width).WithField("height", extent.Height).Debug("surface resized")
	return nil
}

// retire releases the fence of the previous frame and replaces it.
func (s *Surface) retire(f gfx.Fence) {
	s.previous.Release()
	s.previous = f
}

func clampExtent(e gfx.Extent2D, caps gfx.SurfaceCapabilities) gfx.Extent2D {
	clamp := func(v, lo, hi uint32) uint32 {
		if hi > 0 && v > hi {
			v = hi
		}
		if v < lo {
			v = lo
		}
		return v
	}
	return gfx.Extent2D{
		Width:  clamp(e.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(e.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

// Release waits for the device and frees the surface.
func (s *Surface) Release() {
	s.dev.WaitIdle()
	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
	if s.swapchain != nil {
		s.swapchain.Release()
		s.swapchain = nil
	}
	s.retire(gfx.CompletedFence)
	s.finished.Release()
	s.surface.Release()
}
