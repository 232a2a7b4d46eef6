// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/gfx/headless"
	"github.com/devblok/nice/model"
)

// stubShaders hands out the SPIR-V magic number for every shader.
type stubShaders struct{}

func (stubShaders) Shader(string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

type fixture struct {
	dev  *headless.Device
	ctx  *core.Context
	logs *test.Hook
}

func newFixture(t *testing.T, pipeline string) *fixture {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := core.DefaultConfiguration()
	cfg.Renderer.Pipeline = pipeline
	cfg.Renderer.Shaders = stubShaders{}
	cfg.Resources.Directory = t.TempDir()
	cfg.Logger = logger

	dev := headless.New()
	ctx, err := core.NewContext(dev, cfg)
	c.Assert(err, qt.IsNil)
	t.Cleanup(ctx.Release)
	return &fixture{dev: dev, ctx: ctx, logs: hook}
}

func triangle(t *testing.T, dev gfx.Device) *core.MeshData {
	c := qt.New(t)
	vertices := model.PackPntl32F([]model.Pntl32F{
		{Pos: [3]float32{0, 1, -2}, Normal: [3]float32{0, 0, 1}},
		{Pos: [3]float32{-1, -1, -2}, Normal: [3]float32{0, 0, 1}},
		{Pos: [3]float32{1, -1, -2}, Normal: [3]float32{0, 0, 1}},
	})
	data, err := core.NewMeshData(dev, vertices, core.U32Indices([]uint32{0, 1, 2}), gfx.TopologyTriangleList)
	c.Assert(err, qt.IsNil)
	return data
}

func TestNotInitialized(t *testing.T) {
	c := qt.New(t)
	var ctx *core.Context

	_, err := core.NewMesh(ctx, core.NewMeshGroup())
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
	_, err = ctx.Device()
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
	_, err = ctx.Resources()
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
	_, err = ctx.MakePipeline(nil, gfx.Extent2D{})
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
	_, err = core.NewSurface(ctx, headless.NewSurface(nil), 1, 1)
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
}

func TestContextConstructionReleasesOnFailure(t *testing.T) {
	c := qt.New(t)
	dev := headless.New()
	dev.FailAfter(headless.KindPipelineLayout, 1, gfx.ErrOutOfDeviceMemory)

	cfg := core.DefaultConfiguration()
	cfg.Renderer.Shaders = stubShaders{}
	logger, _ := test.NewNullLogger()
	cfg.Logger = logger

	_, err := core.NewContext(dev, cfg)
	c.Assert(err, qt.ErrorMatches, ".*out of device memory")
	for _, kind := range []string{
		headless.KindImage, headless.KindSampler, headless.KindRenderPass,
		headless.KindDescriptorSetLayout, headless.KindPipelineLayout,
	} {
		c.Assert(dev.Live(kind), qt.Equals, 0, qt.Commentf("%s leaked", kind))
	}
}

func TestContextRejectsUnknownPipeline(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	cfg.Renderer.Pipeline = "raytraced"
	_, err := core.NewContext(headless.New(), cfg)
	c.Assert(err, qt.ErrorMatches, `unknown pipeline "raytraced"`)
}

func TestContextLogs(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	entry := f.logs.LastEntry()
	c.Assert(entry, qt.Not(qt.IsNil))
	c.Assert(entry.Message, qt.Equals, "engine context ready")
	c.Assert(entry.Data["pipeline"], qt.Equals, core.PipelineDeferred)
}

func newNullLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newDevice() *headless.Device {
	return headless.New()
}
