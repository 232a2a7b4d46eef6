// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"fmt"
	"sync"

	"github.com/devblok/nice/core"
)

type window struct {
	surface *core.Surface

	mutex   sync.Mutex
	overlay *ImageData
}

// WindowAlloc creates a surface for a host window.
func (e *RenderEngine) WindowAlloc(info WindowInfo) (Handle, error) {
	e.trace("Window_Alloc")
	if _, err := ParsePlatform(uint64(info.Platform)); err != nil {
		return 0, err
	}
	surface, err := e.backend.NewSurface(info)
	if err != nil {
		return 0, fmt.Errorf("%s surface: %w", info.Platform, err)
	}

	width, height := info.Width, info.Height
	if width == 0 || height == 0 {
		cfg := e.ctx.Configuration()
		width, height = cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight
	}
	s, err := core.NewSurface(e.ctx, surface, width, height)
	if err != nil {
		surface.Release()
		return 0, err
	}
	return e.windows.add(&window{surface: s}), nil
}

// WindowFree releases a window.
func (e *RenderEngine) WindowFree(h Handle) error {
	e.trace("Window_Free")
	w, err := e.windows.remove(h)
	if err != nil {
		return err
	}
	w.surface.Release()
	return nil
}

// WindowIsValid reports whether h is a live window.
func (e *RenderEngine) WindowIsValid(h Handle) bool {
	e.trace("Window_IsValid")
	_, err := e.windows.get(h)
	return err == nil
}

// WindowResize recreates the swapchain of a window.
func (e *RenderEngine) WindowResize(h Handle, width, height uint32) error {
	e.trace("Window_Resize")
	w, err := e.windows.get(h)
	if err != nil {
		return err
	}
	return w.surface.Resize(width, height)
}

// WindowSetCamera selects the camera a window shows, the zero handle
// stops drawing.
func (e *RenderEngine) WindowSetCamera(h, camera Handle) error {
	e.trace("Window_SetCamera")
	w, err := e.windows.get(h)
	if err != nil {
		return err
	}
	c, err := e.cameras.optional(camera)
	if err != nil {
		return err
	}
	w.surface.SetCamera(c)
	return nil
}

// WindowSetOverlay sets the image drawn over a window.
func (e *RenderEngine) WindowSetOverlay(h, overlay Handle) error {
	e.trace("Window_SetOverlay")
	w, err := e.windows.get(h)
	if err != nil {
		return err
	}
	img, err := e.images.optional(overlay)
	if err != nil {
		return err
	}
	w.mutex.Lock()
	w.overlay = img
	w.mutex.Unlock()
	return nil
}

// WindowOverlay returns the overlay of a window.
func (e *RenderEngine) WindowOverlay(h Handle) (*ImageData, error) {
	w, err := e.windows.get(h)
	if err != nil {
		return nil, err
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.overlay, nil
}

// WindowDraw draws one frame and reports whether it was presented.
func (e *RenderEngine) WindowDraw(h Handle) (bool, error) {
	e.trace("Window_Draw")
	w, err := e.windows.get(h)
	if err != nil {
		return false, err
	}
	return w.surface.Draw(), nil
}

// WindowSurface returns the engine surface of a window.
func (e *RenderEngine) WindowSurface(h Handle) (*core.Surface, error) {
	w, err := e.windows.get(h)
	if err != nil {
		return nil, err
	}
	return w.surface, nil
}
