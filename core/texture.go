// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"time"

	"github.com/devblok/nice/gfx"
)

// Texture is an image meshes can sample. It is implemented by
// *ImmutableTexture, *TargetTexture and *TextureResource only.
type Texture interface {
	// Image returns the image currently backing the texture.
	Image() gfx.Image

	texture()
}

// MipLevels returns the length of a full mip chain for extent.
func MipLevels(extent gfx.Extent2D) uint32 {
	max := extent.Width
	if extent.Height > max {
		max = extent.Height
	}
	if max == 0 {
		return 1
	}
	return uint32(bits.Len32(max))
}

// ImmutableTexture is uploaded once with a full mip chain
// and never changes afterwards.
type ImmutableTexture struct {
	image gfx.Image
	ready gfx.Fence
}

// NewImmutableTexture uploads pixels into a new sampled image and
// generates its mips. The upload may still be running when this
// returns, Wait blocks until it is done.
func NewImmutableTexture(dev gfx.Device, pixels []byte, extent gfx.Extent2D, format gfx.Format) (*ImmutableTexture, error) {
	if extent.Width == 0 || extent.Height == 0 {
		return nil, gfx.ErrUnsupportedDimensions
	}
	img, err := dev.NewImage(gfx.ImageDesc{
		Extent:    extent,
		Format:    format,
		Usage:     gfx.ImageUsageSampled | gfx.ImageUsageTransferDst | gfx.ImageUsageTransferSrc,
		MipLevels: MipLevels(extent),
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s texture: %w", format, err)
	}
	fence, err := dev.UploadImage(img, pixels, true)
	if err != nil {
		img.Release()
		return nil, fmt.Errorf("uploading texture: %w", err)
	}
	return &ImmutableTexture{image: img, ready: fence}, nil
}

// Image implements Texture.
func (t *ImmutableTexture) Image() gfx.Image { return t.image }

func (*ImmutableTexture) texture() {}

// Wait blocks until the upload finished.
func (t *ImmutableTexture) Wait(timeout time.Duration) error {
	return t.ready.Wait(timeout)
}

// Release frees the image once the upload is no longer in flight.
func (t *ImmutableTexture) Release() {
	t.ready.Wait(time.Second)
	t.ready.Release()
	t.image.Release()
}

// TargetTexture is an image that can be rendered into and sampled.
type TargetTexture struct {
	image gfx.Image
}

// NewTargetTexture creates a render target initialised to one in every channel.
func NewTargetTexture(dev gfx.Device, extent gfx.Extent2D, format gfx.Format) (*TargetTexture, error) {
	if extent.Width == 0 || extent.Height == 0 {
		return nil, gfx.ErrUnsupportedDimensions
	}
	usage := gfx.ImageUsageSampled | gfx.ImageUsageTransferDst | gfx.ImageUsageColorAttachment
	if format.IsDepth() {
		usage = gfx.ImageUsageSampled | gfx.ImageUsageTransferDst | gfx.ImageUsageDepthAttachment
	}
	img, err := dev.NewImage(gfx.ImageDesc{Extent: extent, Format: format, Usage: usage, MipLevels: 1})
	if err != nil {
		return nil, fmt.Errorf("creating %s target: %w", format, err)
	}
	fence, err := dev.UploadImage(img, onePixels(format, extent), false)
	if err != nil {
		img.Release()
		return nil, fmt.Errorf("clearing target: %w", err)
	}
	defer fence.Release()
	if err := fence.Wait(time.Second); err != nil {
		img.Release()
		return nil, err
	}
	return &TargetTexture{image: img}, nil
}

// Image implements Texture.
func (t *TargetTexture) Image() gfx.Image { return t.image }

func (*TargetTexture) texture() {}

// Release frees the image.
func (t *TargetTexture) Release() {
	t.image.Release()
}

// onePixels returns pixel data holding 1.0 in every channel.
func onePixels(format gfx.Format, extent gfx.Extent2D) []byte {
	out := make([]byte, format.ByteSize(extent))
	switch format {
	case gfx.FormatR16G16B16A16Sfloat:
		for i := 0; i+1 < len(out); i += 2 {
			binary.LittleEndian.PutUint16(out[i:], 0x3c00)
		}
	case gfx.FormatR32G32B32A32Sfloat:
		for i := 0; i+3 < len(out); i += 4 {
			binary.LittleEndian.PutUint32(out[i:], math.Float32bits(1))
		}
	default:
		for i := range out {
			out[i] = 0xff
		}
	}
	return out
}

// TextureResource is a texture slot that shows a fallback until
// its real texture is loaded. Meshes notice the swap through the
// image handle changing and rebuild their descriptors.
type TextureResource struct {
	fallback Texture

	mutex   sync.RWMutex
	current Texture
}

// NewTextureResource creates an empty resource showing fallback.
func NewTextureResource(fallback Texture) *TextureResource {
	return &TextureResource{fallback: fallback}
}

// Image implements Texture.
func (r *TextureResource) Image() gfx.Image {
	return r.Current().Image()
}

func (*TextureResource) texture() {}

// Current returns the loaded texture or the fallback.
func (r *TextureResource) Current() Texture {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.current == nil {
		return r.fallback
	}
	return r.current
}

// Loaded reports whether a texture was installed.
func (r *TextureResource) Loaded() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.current != nil
}

// SetIfNone installs t when nothing is installed yet.
func (r *TextureResource) SetIfNone(t Texture) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.current != nil {
		return false
	}
	r.current = t
	return true
}

// Replace installs t and returns the previously installed texture.
func (r *TextureResource) Replace(t Texture) Texture {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	prev := r.current
	r.current = t
	return prev
}

// releaseTexture frees textures owned by their holder. Resources
// are owned by Resources and released there.
func releaseTexture(t Texture) {
	switch t := t.(type) {
	case *ImmutableTexture:
		t.Release()
	case *TargetTexture:
		t.Release()
	case *TextureResource:
	case nil:
	default:
		panic(fmt.Sprintf("unknown texture %T", t))
	}
}
