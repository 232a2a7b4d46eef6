// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

/*
#include "ggd.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/devblok/nice/driver"
)

func transform(t *C.GGTransform) driver.Transform {
	if t == nil {
		return driver.Transform{Rotation: [4]float32{0, 0, 0, 1}}
	}
	return *(*driver.Transform)(unsafe.Pointer(t))
}

// windowInfo decodes the platform specific window description.
func windowInfo(info *C.GGD_WindowInfo) (driver.WindowInfo, error) {
	if info == nil {
		return driver.WindowInfo{}, fmt.Errorf("%w: no window info", driver.ErrUnknownPlatform)
	}
	platform, err := driver.ParsePlatform(uint64(info.platform))
	if err != nil {
		return driver.WindowInfo{}, err
	}
	out := driver.WindowInfo{Platform: platform}
	switch platform {
	case driver.PlatformWin32:
		w := (*C.GGD_WindowInfo_WIN32)(unsafe.Pointer(info))
		out.Instance = uintptr(w.hinstance)
		out.Window = uintptr(w.hwnd)
	case driver.PlatformX11:
		w := (*C.GGD_WindowInfo_X11)(unsafe.Pointer(info))
		out.Display = uintptr(w.display)
		out.Window = uintptr(w.window)
	case driver.PlatformWayland:
		w := (*C.GGD_WindowInfo_WAYLAND)(unsafe.Pointer(info))
		out.Display = uintptr(w.display)
		out.Window = uintptr(w.surface)
	case driver.PlatformOSX:
		w := (*C.GGD_WindowInfo_OSX)(unsafe.Pointer(info))
		out.Window = uintptr(w.layer)
	}
	return out, nil
}

/* Window */

//export niceWindowAlloc
func niceWindowAlloc(info *C.GGD_WindowInfo) C.GGD_Window {
	e := engine()
	wi, err := windowInfo(info)
	if failed("Window_Alloc", err) {
		return 0
	}
	h, err := e.WindowAlloc(wi)
	if failed("Window_Alloc", err) {
		return 0
	}
	return C.GGD_Window(h)
}

//export niceWindowFree
func niceWindowFree(w C.GGD_Window) {
	failed("Window_Free", engine().WindowFree(driver.Handle(w)))
}

//export niceWindowIsValid
func niceWindowIsValid(w C.GGD_Window) C.int32_t {
	if engine().WindowIsValid(driver.Handle(w)) {
		return 1
	}
	return 0
}

//export niceWindowResize
func niceWindowResize(w C.GGD_Window, width, height C.uint32_t) {
	failed("Window_Resize", engine().WindowResize(driver.Handle(w), uint32(width), uint32(height)))
}

//export niceWindowSetCamera
func niceWindowSetCamera(w C.GGD_Window, camera C.GGD_Camera) {
	failed("Window_SetCamera", engine().WindowSetCamera(driver.Handle(w), driver.Handle(camera)))
}

//export niceWindowSetOverlay
func niceWindowSetOverlay(w C.GGD_Window, overlay C.GGD_ImageData) {
	failed("Window_SetOverlay", engine().WindowSetOverlay(driver.Handle(w), driver.Handle(overlay)))
}

//export niceWindowDraw
func niceWindowDraw(w C.GGD_Window) {
	_, err := engine().WindowDraw(driver.Handle(w))
	failed("Window_Draw", err)
}

/* MeshData */

//export niceMeshDataAllocPolygon
func niceMeshDataAllocPolygon(vf C.GGVertexFormat, vertices *C.GGD_BufferInfo, ifmt C.GGIndexFormat, indices *C.GGD_BufferInfo, cache *C.GGD_BufferInfo) C.GGD_MeshData {
	h, err := engine().MeshDataAllocPolygon(
		driver.VertexFormat(vf), hostBufferOf(vertices),
		driver.IndexFormat(ifmt), hostBufferOf(indices),
		hostBufferOf(cache),
	)
	if failed("MeshData_Alloc_Polygon", err) {
		return 0
	}
	return C.GGD_MeshData(h)
}

//export niceMeshDataFree
func niceMeshDataFree(d C.GGD_MeshData) {
	failed("MeshData_Free", engine().MeshDataFree(driver.Handle(d)))
}

/* ImageData */

//export niceImageDataAlloc
func niceImageDataAlloc(usage C.GGImageUsage, x, y C.uint32_t, format C.GGPixelFormat, pixels *C.GGD_BufferInfo, cache *C.GGD_BufferInfo) C.GGD_ImageData {
	h, err := engine().ImageDataAlloc(
		driver.ImageUsage(usage), uint32(x), uint32(y), driver.PixelFormat(format),
		hostBufferOf(pixels), hostBufferOf(cache),
	)
	if failed("ImageData_Alloc", err) {
		return 0
	}
	return C.GGD_ImageData(h)
}

//export niceImageDataFree
func niceImageDataFree(img C.GGD_ImageData) {
	failed("ImageData_Free", engine().ImageDataFree(driver.Handle(img)))
}

//export niceImageDataReadPixelData
func niceImageDataReadPixelData(img C.GGD_ImageData, out *C.GGD_BufferInfo) {
	failed("ImageData_ReadPixelData", engine().ImageDataReadPixelData(driver.Handle(img), hostBufferOf(out)))
}

//export niceImageDataDrawPixelData
func niceImageDataDrawPixelData(img C.GGD_ImageData, in *C.GGD_BufferInfo) {
	failed("ImageData_DrawPixelData", engine().ImageDataDrawPixelData(driver.Handle(img), hostBufferOf(in)))
}

//export niceImageDataDrawCamera
func niceImageDataDrawCamera(img C.GGD_ImageData, camera C.GGD_Camera) {
	failed("ImageData_DrawCamera", engine().ImageDataDrawCamera(driver.Handle(img), driver.Handle(camera)))
}

//export niceImageDataDrawImage
func niceImageDataDrawImage(img, src C.GGD_ImageData, x, y, w, h C.float) {
	err := engine().ImageDataDrawImage(driver.Handle(img), driver.Handle(src), float32(x), float32(y), float32(w), float32(h))
	failed("ImageData_DrawImage", err)
}

//export niceImageDataDrawText
func niceImageDataDrawText(img C.GGD_ImageData, font C.GGD_FontData, x, y C.float, origin C.GGTextOrigin, text *C.char) {
	var s string
	if text != nil {
		s = C.GoString(text)
	}
	err := engine().ImageDataDrawText(driver.Handle(img), driver.Handle(font), float32(x), float32(y), driver.TextOrigin(origin), s)
	failed("ImageData_DrawText", err)
}

/* FontData */

//export niceFontDataAlloc
func niceFontDataAlloc() C.GGD_FontData {
	return C.GGD_FontData(engine().FontDataAlloc())
}

//export niceFontDataFree
func niceFontDataFree(font C.GGD_FontData) {
	failed("FontData_Free", engine().FontDataFree(driver.Handle(font)))
}

//export niceFontDataSetGlyph
func niceFontDataSetGlyph(font C.GGD_FontData, codepoint C.uint32_t, img C.GGD_ImageData, baseX, baseY C.float) {
	err := engine().FontDataSetGlyph(driver.Handle(font), uint32(codepoint), driver.Handle(img), float32(baseX), float32(baseY))
	failed("FontData_SetGlyph", err)
}

//export niceFontDataLoad
func niceFontDataLoad(font C.GGD_FontData, data *C.GGD_BufferInfo, size C.float) {
	failed("FontData_Load", engine().FontDataLoad(driver.Handle(font), hostBufferOf(data), float64(size)))
}

/* MeshGroup */

//export niceMeshGroupAlloc
func niceMeshGroupAlloc(cache *C.GGD_BufferInfo) C.GGD_MeshGroup {
	return C.GGD_MeshGroup(engine().MeshGroupAlloc(hostBufferOf(cache)))
}

//export niceMeshGroupFree
func niceMeshGroupFree(group C.GGD_MeshGroup) {
	failed("MeshGroup_Free", engine().MeshGroupFree(driver.Handle(group)))
}

//export niceMeshGroupSetSky
func niceMeshGroupSetSky(group C.GGD_MeshGroup, sky C.GGD_ImageData) {
	failed("MeshGroup_SetSky", engine().MeshGroupSetSky(driver.Handle(group), driver.Handle(sky)))
}

/* MeshInstance */

//export niceMeshInstanceAlloc
func niceMeshInstanceAlloc(group C.GGD_MeshGroup, cache *C.GGD_BufferInfo) C.GGD_MeshInstance {
	h, err := engine().MeshInstanceAlloc(driver.Handle(group), hostBufferOf(cache))
	if failed("MeshInstance_Alloc", err) {
		return 0
	}
	return C.GGD_MeshInstance(h)
}

//export niceMeshInstanceFree
func niceMeshInstanceFree(mesh C.GGD_MeshInstance) {
	failed("MeshInstance_Free", engine().MeshInstanceFree(driver.Handle(mesh)))
}

//export niceMeshInstanceSetMeshData
func niceMeshInstanceSetMeshData(mesh C.GGD_MeshInstance, data C.GGD_MeshData, index C.uint32_t) {
	failed("MeshInstance_SetMeshData", engine().MeshInstanceSetMeshData(driver.Handle(mesh), driver.Handle(data), uint32(index)))
}

//export niceMeshInstanceSetMeshSubset
func niceMeshInstanceSetMeshSubset(mesh C.GGD_MeshInstance, offset, count C.uint32_t) {
	failed("MeshInstance_SetMeshSubset", engine().MeshInstanceSetMeshSubset(driver.Handle(mesh), uint32(offset), uint32(count)))
}

//export niceMeshInstanceSetImageData
func niceMeshInstanceSetImageData(mesh C.GGD_MeshInstance, img C.GGD_ImageData, layer C.int32_t) {
	failed("MeshInstance_SetImageData", engine().MeshInstanceSetImageData(driver.Handle(mesh), driver.Handle(img), int32(layer)))
}

//export niceMeshInstanceSetAnimation
func niceMeshInstanceSetAnimation(mesh C.GGD_MeshInstance, first, last C.uint32_t, frameRate C.float) {
	err := engine().MeshInstanceSetAnimation(driver.Handle(mesh), uint32(first), uint32(last), float32(frameRate))
	failed("MeshInstance_SetAnimation", err)
}

//export niceMeshInstanceSetTransform
func niceMeshInstanceSetTransform(mesh C.GGD_MeshInstance, pose *C.GGTransform) {
	failed("MeshInstance_SetTransform", engine().MeshInstanceSetTransform(driver.Handle(mesh), transform(pose)))
}

//export niceMeshInstanceSetBoneTransform
func niceMeshInstanceSetBoneTransform(mesh C.GGD_MeshInstance, bone C.uint32_t, pose *C.GGTransform) {
	err := engine().MeshInstanceSetBoneTransform(driver.Handle(mesh), uint32(bone), transform(pose))
	failed("MeshInstance_SetBoneTransform", err)
}

/* Camera */

//export niceCameraAlloc
func niceCameraAlloc() C.GGD_Camera {
	return C.GGD_Camera(engine().CameraAlloc())
}

//export niceCameraFree
func niceCameraFree(camera C.GGD_Camera) {
	failed("Camera_Free", engine().CameraFree(driver.Handle(camera)))
}

//export niceCameraSetPerspective
func niceCameraSetPerspective(camera C.GGD_Camera, aspect, fovy, znear, zfar C.float) {
	err := engine().CameraSetPerspective(driver.Handle(camera), float32(aspect), float32(fovy), float32(znear), float32(zfar))
	failed("Camera_SetPerspective", err)
}

//export niceCameraSetMeshGroup
func niceCameraSetMeshGroup(camera C.GGD_Camera, group C.GGD_MeshGroup) {
	failed("Camera_SetMeshGroup", engine().CameraSetMeshGroup(driver.Handle(camera), driver.Handle(group)))
}

//export niceCameraSetTransform
func niceCameraSetTransform(camera C.GGD_Camera, pose *C.GGTransform) {
	failed("Camera_SetTransform", engine().CameraSetTransform(driver.Handle(camera), transform(pose)))
}
