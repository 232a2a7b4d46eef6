// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// DefaultApplicationInfo describes the engine to the Vulkan driver.
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   safeString("nIce"),
	PEngineName:        safeString("nIce Engine"),
}

// InstanceConfiguration selects instance extensions and layers.
type InstanceConfiguration struct {
	Extensions []string
	Layers     []string

	// DebugMode enables the validation layer.
	DebugMode bool
}

// PhysicalDeviceInfo describes a GPU installed in the system.
type PhysicalDeviceInfo struct {
	ID            int      `json:"id"`
	VendorID      int      `json:"vendorId"`
	Name          string   `json:"name"`
	DriverVersion int      `json:"driverVersion"`
	Memory        uint     `json:"memory"`
	Extensions    []string `json:"extensions"`
	Layers        []string `json:"layers"`
	Invalid       bool     `json:"invalid"`
}

// NewInstance loads the API and creates a Vulkan instance. procAddr is the
// vkGetInstanceProcAddr of a windowing library, nil loads the system loader.
func NewInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration) (*Instance, error) {
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, "VK_LAYER_KHRONOS_validation")
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.InstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := vkError("vk.CreateInstance()", vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	return &Instance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
	}, nil
}

// Instance is a loaded Vulkan API instance.
type Instance struct {
	configuration    InstanceConfiguration
	availableDevices []vk.PhysicalDevice
	instance         vk.Instance
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	return availableDevices, nil
}

// PhysicalDevicesInfo describes every physical device of the instance.
func (v *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, dev := range v.availableDevices {
		var numDeviceExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(dev, "", &numDeviceExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(dev, "", &numDeviceExtensions, deviceExt)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range deviceExt {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(dev, &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(dev, &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(dev, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += uint(memoryProperties.MemoryHeaps[iMem].Size)
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &properties)
		properties.Deref()
		pdi[i].ID = int(properties.DeviceID)
		pdi[i].VendorID = int(properties.VendorID)
		pdi[i].Name = vk.ToString(properties.DeviceName[:])
		pdi[i].DriverVersion = int(properties.DriverVersion)
	}
	return pdi
}

// Extensions returns the enabled instance extensions.
func (v *Instance) Extensions() []string {
	return v.configuration.Extensions
}

// Handle returns the native instance handle, for windowing
// libraries that create surfaces themselves.
func (v *Instance) Handle() uintptr {
	return uintptr(unsafe.Pointer(v.instance))
}

// Inner returns the instance of the underlying API.
func (v *Instance) Inner() vk.Instance {
	return v.instance
}

// SurfaceFromHandle adopts a surface created for this instance elsewhere.
func (v *Instance) SurfaceFromHandle(handle uintptr) *Surface {
	return &Surface{
		instance: v.instance,
		surface:  vk.SurfaceFromPointer(handle),
	}
}

// Release destroys the instance. Devices and surfaces
// created from it must be released first.
func (v *Instance) Release() {
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
}

// WindowSystem identifies the platform windowing system of a native surface.
type WindowSystem int

// Window systems
const (
	WindowSystemNone WindowSystem = iota
	WindowSystemWin32
	WindowSystemX11
	WindowSystemWayland
	WindowSystemMetal
)

// SurfaceExtensions returns the instance extensions needed to
// create native surfaces for ws.
func SurfaceExtensions(ws WindowSystem) []string {
	switch ws {
	case WindowSystemWin32:
		return []string{"VK_KHR_surface", "VK_KHR_win32_surface"}
	case WindowSystemX11:
		return []string{"VK_KHR_surface", "VK_KHR_xlib_surface"}
	case WindowSystemWayland:
		return []string{"VK_KHR_surface", "VK_KHR_wayland_surface"}
	case WindowSystemMetal:
		return []string{"VK_KHR_surface", "VK_EXT_metal_surface"}
	default:
		return nil
	}
}
