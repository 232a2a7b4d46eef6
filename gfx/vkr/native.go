// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build linux || darwin || freebsd

package vkr

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var loaderNames = map[string][]string{
	"darwin": {"libvulkan.1.dylib", "libMoltenVK.dylib"},
	"linux":  {"libvulkan.so.1", "libvulkan.so"},
}

var (
	loaderOnce          sync.Once
	loaderErr           error
	getInstanceProcAddr func(instance uintptr, name string) uintptr
	instanceProcAddr    uintptr
)

func loadLoader() error {
	loaderOnce.Do(func() {
		names, ok := loaderNames[runtime.GOOS]
		if !ok {
			names = loaderNames["linux"]
		}
		var lib uintptr
		for _, name := range names {
			if lib, loaderErr = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL); loaderErr == nil {
				break
			}
		}
		if loaderErr != nil {
			loaderErr = fmt.Errorf("loading vulkan: %w", loaderErr)
			return
		}
		if instanceProcAddr, loaderErr = purego.Dlsym(lib, "vkGetInstanceProcAddr"); loaderErr != nil {
			return
		}
		purego.RegisterFunc(&getInstanceProcAddr, instanceProcAddr)
	})
	return loaderErr
}

// LoaderProcAddr returns vkGetInstanceProcAddr of the system Vulkan
// loader, suitable for NewInstance when no windowing library provides one.
func LoaderProcAddr() (unsafe.Pointer, error) {
	if err := loadLoader(); err != nil {
		return nil, err
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&instanceProcAddr)), nil
}

const (
	structureTypeXlibSurface    = 1000004000
	structureTypeWaylandSurface = 1000006000
	structureTypeMetalSurface   = 1000217000
)

type xlibSurfaceCreateInfo struct {
	sType  uint32
	pNext  uintptr
	flags  uint32
	dpy    uintptr
	window uintptr
}

type waylandSurfaceCreateInfo struct {
	sType   uint32
	pNext   uintptr
	flags   uint32
	display uintptr
	surface uintptr
}

type metalSurfaceCreateInfo struct {
	sType  uint32
	pNext  uintptr
	flags  uint32
	pLayer uintptr
}

// NewNativeSurface creates a surface for a window owned by the host
// application. display is the X11 or Wayland display connection and
// window the X11 window id, the wl_surface or the CAMetalLayer.
func (v *Instance) NewNativeSurface(ws WindowSystem, display, window uintptr) (*Surface, error) {
	if err := loadLoader(); err != nil {
		return nil, err
	}

	var (
		name string
		info unsafe.Pointer
	)
	switch ws {
	case WindowSystemX11:
		name = "vkCreateXlibSurfaceKHR"
		info = unsafe.Pointer(&xlibSurfaceCreateInfo{sType: structureTypeXlibSurface, dpy: display, window: window})
	case WindowSystemWayland:
		name = "vkCreateWaylandSurfaceKHR"
		info = unsafe.Pointer(&waylandSurfaceCreateInfo{sType: structureTypeWaylandSurface, display: display, surface: window})
	case WindowSystemMetal:
		name = "vkCreateMetalSurfaceEXT"
		info = unsafe.Pointer(&metalSurfaceCreateInfo{sType: structureTypeMetalSurface, pLayer: window})
	default:
		return nil, fmt.Errorf("window system %d has no native surface support", ws)
	}

	create := getInstanceProcAddr(v.Handle(), name)
	if create == 0 {
		return nil, errors.New(name + " is not available, is the surface extension enabled?")
	}

	var surface uint64
	res, _, _ := purego.SyscallN(create, v.Handle(), uintptr(info), 0, uintptr(unsafe.Pointer(&surface)))
	runtime.KeepAlive(info)
	if int32(res) != 0 {
		return nil, fmt.Errorf("%s(): vulkan error %d", name, int32(res))
	}
	return v.SurfaceFromHandle(uintptr(surface)), nil
}
