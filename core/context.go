// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/shaders"
)

// Context owns the device level state of the engine: the sampler and
// material layout every mesh uses, the white pixel placeholder, the
// shared pipeline state and the Resources cache. It is created once
// and passed to whatever needs it.
type Context struct {
	dev gfx.Device
	cfg Configuration
	log logrus.FieldLogger

	sampler  gfx.Sampler
	material gfx.DescriptorSetLayout
	white    *ImmutableTexture

	deferred *DeferredContext
	forward  *ForwardContext

	resources *Resources
	owned     releaser
}

// NewContext builds the engine context on dev. It blocks until the
// initial uploads completed. Nothing is left allocated when it fails.
func NewContext(dev gfx.Device, cfg Configuration) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Context{dev: dev, cfg: cfg, log: cfg.logger()}
	if err := c.build(); err != nil {
		c.owned.release()
		return nil, err
	}
	c.log.WithField("pipeline", cfg.Renderer.Pipeline).Info("engine context ready")
	return c, nil
}

func (c *Context) shaderSource() ShaderSource {
	switch {
	case c.cfg.Renderer.Shaders != nil:
		return c.cfg.Renderer.Shaders
	case c.cfg.Renderer.ShaderDirectory != "":
		return DirectoryShaders(c.cfg.Renderer.ShaderDirectory)
	default:
		return shaders.Default()
	}
}

func (c *Context) build() error {
	var err error
	if c.sampler, err = c.dev.NewSampler(gfx.SamplerDesc{MaxAnisotropy: 16, MaxLod: 16}); err != nil {
		return fmt.Errorf("sampler: %w", err)
	}
	c.owned.add(c.sampler)

	if c.material, err = c.dev.NewDescriptorSetLayout([]gfx.DescriptorBinding{{
		Binding: 0,
		Type:    gfx.DescriptorCombinedImageSampler,
		Stages:  gfx.ShaderStageFragment,
	}}); err != nil {
		return fmt.Errorf("material layout: %w", err)
	}
	c.owned.add(c.material)

	if c.white, err = NewImmutableTexture(c.dev, []byte{255, 255, 255, 255}, gfx.Extent2D{Width: 1, Height: 1}, gfx.FormatR8G8B8A8Unorm); err != nil {
		return fmt.Errorf("white pixel: %w", err)
	}
	c.owned.add(c.white)
	if err := c.white.Wait(5 * time.Second); err != nil {
		return fmt.Errorf("white pixel: %w", err)
	}

	switch c.cfg.Renderer.Pipeline {
	case PipelineForward:
		if c.forward, err = NewForwardContext(c.dev, c.shaderSource(), c.material); err != nil {
			return err
		}
		c.owned.add(c.forward)
	default:
		if c.deferred, err = NewDeferredContext(c.dev, c.shaderSource(), c.material, c.sampler); err != nil {
			return err
		}
		c.owned.add(c.deferred)
	}

	source, err := openSource(c.cfg.Resources)
	if err != nil {
		return err
	}
	c.resources = newResources(c, source)
	c.owned.add(c.resources)
	return nil
}

// Device returns the device the context was built on.
func (c *Context) Device() (gfx.Device, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	return c.dev, nil
}

// Configuration returns the configuration the context was built with.
func (c *Context) Configuration() Configuration {
	return c.cfg
}

// Logger returns the engine logger.
func (c *Context) Logger() logrus.FieldLogger {
	if c == nil {
		return logrus.StandardLogger()
	}
	return c.log
}

// Resources returns the resource cache.
func (c *Context) Resources() (*Resources, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	return c.resources, nil
}

// WhitePixel returns the placeholder texture.
func (c *Context) WhitePixel() *ImmutableTexture { return c.white }

// Sampler returns the sampler used for every mesh texture.
func (c *Context) Sampler() gfx.Sampler { return c.sampler }

// MaterialLayout returns the layout of a single mesh texture layer.
func (c *Context) MaterialLayout() gfx.DescriptorSetLayout { return c.material }

// materialSet builds a descriptor set sampling img.
func (c *Context) materialSet(img gfx.Image) (gfx.DescriptorSet, error) {
	return c.dev.NewDescriptorSet(c.material, []gfx.DescriptorWrite{{Binding: 0, Image: img, Sampler: c.sampler}})
}

// MakePipeline builds the configured pipeline for swapchain images.
func (c *Context) MakePipeline(images []gfx.Image, extent gfx.Extent2D) (Pipeline, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	if c.forward != nil {
		p, err := c.forward.MakePipeline(images, extent)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := c.deferred.MakePipeline(images, extent)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Release frees everything the context owns. Surfaces, meshes and
// mesh data must be released first.
func (c *Context) Release() {
	if c == nil {
		return
	}
	c.dev.WaitIdle()
	c.owned.release()
	c.owned = nil
}
