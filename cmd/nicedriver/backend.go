// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/nice/driver"
	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/gfx/vkr"
)

// platformSystems are the window systems a host may hand windows of.
var platformSystems = map[string][]vkr.WindowSystem{
	"windows": {vkr.WindowSystemWin32},
	"linux":   {vkr.WindowSystemX11, vkr.WindowSystemWayland},
	"freebsd": {vkr.WindowSystemX11, vkr.WindowSystemWayland},
	"darwin":  {vkr.WindowSystemMetal},
}

func windowSystem(p driver.Platform) vkr.WindowSystem {
	switch p {
	case driver.PlatformWin32:
		return vkr.WindowSystemWin32
	case driver.PlatformX11:
		return vkr.WindowSystemX11
	case driver.PlatformWayland:
		return vkr.WindowSystemWayland
	case driver.PlatformOSX:
		return vkr.WindowSystemMetal
	default:
		return vkr.WindowSystemNone
	}
}

func surfaceExtensions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ws := range platformSystems[runtime.GOOS] {
		for _, ext := range vkr.SurfaceExtensions(ws) {
			if !seen[ext] {
				seen[ext] = true
				out = append(out, ext)
			}
		}
	}
	return out
}

// vulkanBackend runs the engine on the system Vulkan loader.
type vulkanBackend struct {
	instance *vkr.Instance
	device   *vkr.Device
}

// openVulkan returns the opener of the Vulkan backend, validation
// turns on the Khronos validation layer.
func openVulkan(validation bool) driver.Opener {
	return func(game driver.Game) (driver.Backend, error) {
		return newVulkanBackend(game, validation)
	}
}

func newVulkanBackend(game driver.Game, validation bool) (*vulkanBackend, error) {
	procAddr, err := vkr.LoaderProcAddr()
	if err != nil {
		log.WithError(err).Debug("falling back to the default vulkan loader")
		procAddr = nil
	}

	instance, err := vkr.NewInstance(vkr.DefaultApplicationInfo, procAddr, vkr.InstanceConfiguration{
		Extensions: surfaceExtensions(),
		DebugMode:  validation,
	})
	if err != nil {
		return nil, err
	}

	device, err := vkr.NewDevice(instance, nil)
	if err != nil {
		instance.Release()
		return nil, err
	}
	log.WithFields(log.Fields{
		"game":   game.String(),
		"device": device.String(),
	}).Info("vulkan backend opened")
	return &vulkanBackend{instance: instance, device: device}, nil
}

func (b *vulkanBackend) Device() gfx.Device {
	return b.device
}

func (b *vulkanBackend) NewSurface(info driver.WindowInfo) (gfx.Surface, error) {
	ws := windowSystem(info.Platform)
	if ws == vkr.WindowSystemNone {
		return nil, fmt.Errorf("%w: %s", driver.ErrUnknownPlatform, info.Platform)
	}
	surface, err := b.instance.NewNativeSurface(ws, info.Display, info.Window)
	if err != nil {
		return nil, err
	}
	if err := b.device.BindSurface(surface); err != nil {
		surface.Release()
		return nil, err
	}
	return surface, nil
}

func (b *vulkanBackend) Release() {
	b.device.Release()
	b.instance.Release()
}
