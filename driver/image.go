// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
)

// ErrNoPixelData is returned when reading an image nothing was drawn to.
var ErrNoPixelData = errors.New("image data has no pixel data")

// maxDrawOps bounds the draw requests kept per image.
const maxDrawOps = 256

// DrawKind tells what a DrawOp draws.
type DrawKind int

// Draw kinds
const (
	DrawCamera DrawKind = iota
	DrawImage
	DrawGlyph
)

// DrawOp is a draw request recorded on an image. X, Y, W and H
// are the destination rectangle in pixels.
type DrawOp struct {
	Kind      DrawKind
	Camera    *core.Camera
	Image     *ImageData
	Codepoint rune
	X, Y      float32
	W, H      float32
}

// ImageData is a host image. It starts uninitialized unless it was
// created with pixels or as a render target, meshes using it in the
// meantime show the white pixel.
type ImageData struct {
	usage  ImageUsage
	extent gfx.Extent2D
	format gfx.Format

	texture *core.TextureResource

	mutex  sync.Mutex
	pixels []byte
	ops    []DrawOp
}

// Usage returns the usage flags.
func (i *ImageData) Usage() ImageUsage { return i.usage }

// Extent returns the size in pixels.
func (i *ImageData) Extent() gfx.Extent2D { return i.extent }

// Format returns the GPU format.
func (i *ImageData) Format() gfx.Format { return i.format }

// Texture returns the texture meshes sample.
func (i *ImageData) Texture() core.Texture { return i.texture }

// Initialized reports whether the image holds pixel data.
func (i *ImageData) Initialized() bool { return i.texture.Loaded() }

// Ops returns the recorded draw requests, oldest first.
func (i *ImageData) Ops() []DrawOp {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return append([]DrawOp(nil), i.ops...)
}

func (i *ImageData) record(ops ...DrawOp) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.ops = append(i.ops, ops...)
	if n := len(i.ops) - maxDrawOps; n > 0 {
		i.ops = append(i.ops[:0], i.ops[n:]...)
	}
}

// draw installs pixels, creating the texture on first use.
func (i *ImageData) draw(dev gfx.Device, pixels []byte) error {
	if want := i.format.ByteSize(i.extent); len(pixels) != want {
		return fmt.Errorf("pixel data is %d bytes, %s %dx%d needs %d", len(pixels), i.format, i.extent.Width, i.extent.Height, want)
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()
	if !i.texture.Loaded() {
		if err := i.initialize(dev, pixels); err != nil {
			return err
		}
		i.pixels = pixels
		return nil
	}
	if !i.usage.Has(ImageUsageTarget) {
		return ErrImageInitialized
	}

	fence, err := dev.UploadImage(i.texture.Image(), pixels, false)
	if err != nil {
		return err
	}
	defer fence.Release()
	if err := fence.Wait(5 * time.Second); err != nil {
		return err
	}
	i.pixels = pixels
	return nil
}

func (i *ImageData) initialize(dev gfx.Device, pixels []byte) error {
	if i.usage.Has(ImageUsageTarget) {
		target, err := core.NewTargetTexture(dev, i.extent, i.format)
		if err != nil {
			return err
		}
		if pixels != nil {
			fence, err := dev.UploadImage(target.Image(), pixels, false)
			if err == nil {
				err = fence.Wait(5 * time.Second)
				fence.Release()
			}
			if err != nil {
				target.Release()
				return err
			}
		}
		i.texture.SetIfNone(target)
		return nil
	}

	tex, err := core.NewImmutableTexture(dev, pixels, i.extent, i.format)
	if err != nil {
		return err
	}
	i.texture.SetIfNone(tex)
	return nil
}

func (i *ImageData) release() {
	switch t := i.texture.Replace(nil).(type) {
	case *core.ImmutableTexture:
		t.Release()
	case *core.TargetTexture:
		t.Release()
	case nil:
	default:
		panic(fmt.Sprintf("unexpected image texture %T", t))
	}
}

// ImageDataAlloc creates an image. Targets are created right away,
// other images when pixels are given here or drawn later.
// The cache buffer is accepted for compatibility.
func (e *RenderEngine) ImageDataAlloc(usage ImageUsage, width, height uint32, format PixelFormat, pixels Buffer, cache Buffer) (Handle, error) {
	e.trace("ImageData_Alloc")
	f, err := format.Format()
	if err != nil {
		return 0, err
	}
	if width == 0 || height == 0 {
		return 0, gfx.ErrUnsupportedDimensions
	}
	img := &ImageData{
		usage:   usage,
		extent:  gfx.Extent2D{Width: width, Height: height},
		format:  f,
		texture: core.NewTextureResource(e.ctx.WhitePixel()),
	}

	data, err := ReadAll(pixels)
	if err != nil {
		return 0, fmt.Errorf("reading pixels: %w", err)
	}
	dev, err := e.ctx.Device()
	if err != nil {
		return 0, err
	}
	switch {
	case data != nil:
		err = img.draw(dev, data)
	case usage.Has(ImageUsageTarget):
		img.mutex.Lock()
		err = img.initialize(dev, nil)
		img.mutex.Unlock()
	}
	if err != nil {
		img.release()
		return 0, err
	}
	return e.images.add(img), nil
}

// ImageDataFree releases an image. Meshes still using it fall back
// to the white pixel.
func (e *RenderEngine) ImageDataFree(h Handle) error {
	e.trace("ImageData_Free")
	img, err := e.images.remove(h)
	if err != nil {
		return err
	}
	if dev, err := e.ctx.Device(); err == nil {
		dev.WaitIdle()
	}
	img.release()
	return nil
}

// ImageDataReadPixelData writes the pixel data last drawn to the image into out.
func (e *RenderEngine) ImageDataReadPixelData(h Handle, out Buffer) error {
	e.trace("ImageData_ReadPixelData")
	img, err := e.images.get(h)
	if err != nil {
		return err
	}
	img.mutex.Lock()
	pixels := img.pixels
	img.mutex.Unlock()
	if pixels == nil {
		return ErrNoPixelData
	}
	return WriteAll(out, pixels)
}

// ImageDataDrawPixelData initializes an image, or replaces the content
// of a render target. Static and glyph images can be drawn only once.
func (e *RenderEngine) ImageDataDrawPixelData(h Handle, in Buffer) error {
	e.trace("ImageData_DrawPixelData")
	img, err := e.images.get(h)
	if err != nil {
		return err
	}
	pixels, err := ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading pixels: %w", err)
	}
	dev, err := e.ctx.Device()
	if err != nil {
		return err
	}
	return img.draw(dev, pixels)
}

// ImageDataDrawCamera records drawing the view of a camera into the image.
func (e *RenderEngine) ImageDataDrawCamera(h, camera Handle) error {
	e.trace("ImageData_DrawCamera")
	img, err := e.images.get(h)
	if err != nil {
		return err
	}
	c, err := e.cameras.get(camera)
	if err != nil {
		return err
	}
	img.record(DrawOp{
		Kind:   DrawCamera,
		Camera: c,
		W:      float32(img.extent.Width),
		H:      float32(img.extent.Height),
	})
	return nil
}

// ImageDataDrawImage records drawing src into a rectangle of the image.
func (e *RenderEngine) ImageDataDrawImage(h, src Handle, x, y, w, hh float32) error {
	e.trace("ImageData_DrawImage")
	img, err := e.images.get(h)
	if err != nil {
		return err
	}
	s, err := e.images.get(src)
	if err != nil {
		return err
	}
	img.record(DrawOp{Kind: DrawImage, Image: s, X: x, Y: y, W: w, H: hh})
	return nil
}

// ImageDataDrawText lays text out with a font and records a draw
// of every glyph that has an image.
func (e *RenderEngine) ImageDataDrawText(h, font Handle, x, y float32, origin TextOrigin, text string) error {
	e.trace("ImageData_DrawText")
	img, err := e.images.get(h)
	if err != nil {
		return err
	}
	f, err := e.fonts.get(font)
	if err != nil {
		return err
	}
	var ops []DrawOp
	for _, g := range f.Layout(text, x, y, origin) {
		if g.Image == nil {
			continue
		}
		ops = append(ops, DrawOp{Kind: DrawGlyph, Image: g.Image, Codepoint: g.Codepoint, X: g.X, Y: g.Y, W: g.W, H: g.H})
	}
	img.record(ops...)
	return nil
}

// ImageData returns the image behind h.
func (e *RenderEngine) ImageData(h Handle) (*ImageData, error) {
	return e.images.get(h)
}
