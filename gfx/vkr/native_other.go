// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build !linux && !darwin && !freebsd

package vkr

import (
	"errors"
	"unsafe"
)

var errNoNative = errors.New("native vulkan loading is not supported on this platform")

// LoaderProcAddr is not available on this platform, NewInstance
// falls back to the default loader when given nil.
func LoaderProcAddr() (unsafe.Pointer, error) {
	return nil, errNoNative
}

// NewNativeSurface is not available on this platform.
func (v *Instance) NewNativeSurface(ws WindowSystem, display, window uintptr) (*Surface, error) {
	return nil, errNoNative
}
