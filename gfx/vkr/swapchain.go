// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"math"
	"time"

	"github.com/devblok/nice/gfx"
	vk "github.com/devblok/vulkan"
)

// Surface implements gfx.Surface for a platform window surface.
type Surface struct {
	instance vk.Instance
	physical vk.PhysicalDevice
	surface  vk.Surface
}

// Capabilities implements gfx.Surface. The surface must have
// been passed to NewDevice before capabilities can be queried.
func (s *Surface) Capabilities() (gfx.SurfaceCapabilities, error) {
	if s.physical == nil {
		return gfx.SurfaceCapabilities{}, errors.New("surface is not bound to a device")
	}
	var caps vk.SurfaceCapabilities
	if err := vkError("vk.GetPhysicalDeviceSurfaceCapabilities()", vk.GetPhysicalDeviceSurfaceCapabilities(s.physical, s.surface, &caps)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	out := gfx.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		MinExtent:     gfx.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:     gfx.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	}
	// 0xFFFFFFFF means the swapchain decides
	if caps.CurrentExtent.Width != math.MaxUint32 {
		out.CurrentExtent = &gfx.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
	}
	return out, nil
}

// Release destroys the surface.
func (s *Surface) Release() {
	if s.surface != vk.NullSurface {
		vk.DestroySurface(s.instance, s.surface, nil)
		s.surface = vk.NullSurface
	}
}

// Swapchain implements gfx.Swapchain.
type Swapchain struct {
	device    *Device
	swapchain vk.Swapchain
	images    []gfx.Image
	extent    gfx.Extent2D
	format    gfx.Format

	// one acquire semaphore per image, rotated on every acquire
	semaphores []*Semaphore
	next       int
}

// Images implements gfx.Swapchain.
func (s *Swapchain) Images() []gfx.Image { return s.images }

// Extent implements gfx.Swapchain.
func (s *Swapchain) Extent() gfx.Extent2D { return s.extent }

// Format implements gfx.Swapchain.
func (s *Swapchain) Format() gfx.Format { return s.format }

// AcquireNextImage implements gfx.Swapchain.
func (s *Swapchain) AcquireNextImage(timeout time.Duration) (uint32, gfx.Semaphore, error) {
	semaphore := s.semaphores[s.next]
	var index uint32
	res := vk.AcquireNextImage(s.device.device, s.swapchain, uint64(timeout.Nanoseconds()), semaphore.semaphore, nil, &index)
	if err := vkError("vk.AcquireNextImage()", res); err != nil {
		return 0, nil, err
	}
	s.next = (s.next + 1) % len(s.semaphores)
	return index, semaphore, nil
}

// Release implements gfx.Swapchain.
func (s *Swapchain) Release() {
	if s.swapchain == nil {
		return
	}
	for _, img := range s.images {
		img.Release()
	}
	for _, sem := range s.semaphores {
		sem.Release()
	}
	vk.DestroySwapchain(s.device.device, s.swapchain, nil)
	s.swapchain = nil
}

// NewSwapchain implements gfx.Device.
func (d *Device) NewSwapchain(surface gfx.Surface, desc gfx.SwapchainDesc, old gfx.Swapchain) (gfx.Swapchain, error) {
	s, ok := surface.(*Surface)
	if !ok {
		return nil, ErrForeignResource
	}
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, gfx.ErrUnsupportedDimensions
	}
	caps, err := s.Capabilities()
	if err != nil {
		return nil, err
	}
	if desc.Extent.Width < caps.MinExtent.Width || desc.Extent.Height < caps.MinExtent.Height ||
		desc.Extent.Width > caps.MaxExtent.Width || desc.Extent.Height > caps.MaxExtent.Height {
		return nil, gfx.ErrUnsupportedDimensions
	}

	var surfaceCapabilities vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(d.physical, s.surface, &surfaceCapabilities)
	surfaceCapabilities.Deref()

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if surfaceCapabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	var oldSwapchain vk.Swapchain
	var previous *Swapchain
	if old != nil {
		if previous, ok = old.(*Swapchain); !ok {
			return nil, ErrForeignResource
		}
		oldSwapchain = previous.swapchain
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         s.surface,
		MinImageCount:   desc.ImageCount,
		ImageFormat:     vkFormat(desc.Format),
		ImageColorSpace: vk.ColorSpaceSrgbNonlinear,
		ImageExtent: vk.Extent2D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	var swapchain vk.Swapchain
	if err := vkError("vk.CreateSwapchain()", vk.CreateSwapchain(d.device, &scci, nil, &swapchain)); err != nil {
		return nil, err
	}
	sc := &Swapchain{device: d, swapchain: swapchain, extent: desc.Extent, format: desc.Format}

	var numImages uint32
	if err := vkError("vk.GetSwapchainImages()", vk.GetSwapchainImages(d.device, swapchain, &numImages, nil)); err != nil {
		sc.Release()
		return nil, err
	}
	images := make([]vk.Image, numImages)
	if err := vkError("vk.GetSwapchainImages()", vk.GetSwapchainImages(d.device, swapchain, &numImages, images)); err != nil {
		sc.Release()
		return nil, err
	}

	imageDesc := gfx.ImageDesc{
		Extent:    desc.Extent,
		Format:    desc.Format,
		Usage:     gfx.ImageUsageColorAttachment,
		MipLevels: 1,
	}
	for _, img := range images {
		view, err := d.createImageView(img, imageDesc)
		if err != nil {
			sc.Release()
			return nil, err
		}
		sc.images = append(sc.images, &Image{device: d, handle: d.nextHandle(), image: img, view: view, desc: imageDesc})

		sem, err := d.NewSemaphore()
		if err != nil {
			sc.Release()
			return nil, err
		}
		sc.semaphores = append(sc.semaphores, sem.(*Semaphore))
	}

	if previous != nil {
		previous.Release()
	}
	return sc, nil
}
