// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/nice/core"
)

const testConfig = `
time:
  fps: 144
  frameTimeout: 250ms
renderer:
  swapchainSize: 3
  pipeline: forward
  exposure: 0.5
resources:
  archive: assets.kar
`

func TestLoadConfiguration(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(t.TempDir(), "nice.yaml")
	c.Assert(os.WriteFile(path, []byte(testConfig), 0644), qt.IsNil)

	cfg, err := core.LoadConfiguration(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 144)
	c.Assert(cfg.Time.FrameTimeout, qt.Equals, 250*time.Millisecond)
	c.Assert(cfg.Time.EventPollDelay, qt.Equals, 8)
	c.Assert(cfg.Renderer.SwapchainSize, qt.Equals, uint32(3))
	c.Assert(cfg.Renderer.Pipeline, qt.Equals, core.PipelineForward)
	c.Assert(cfg.Renderer.Exposure, qt.Equals, float32(0.5))
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1280))
	c.Assert(cfg.Resources.Archive, qt.Equals, "assets.kar")
	c.Assert(cfg.Resources.Directory, qt.Equals, "assets")
}

func TestConfigurationEnvironment(t *testing.T) {
	c := qt.New(t)
	t.Setenv("NICE_SCREEN_WIDTH", "640")
	t.Setenv("NICE_FPS", "30")
	t.Setenv("NICE_VALIDATION", "true")
	t.Setenv("NICE_PIPELINE", "forward")

	cfg, err := core.LoadConfiguration("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(640))
	c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(720))
	c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 30)
	c.Assert(cfg.Renderer.Validation, qt.Equals, true)
	c.Assert(cfg.Renderer.Pipeline, qt.Equals, core.PipelineForward)

	t.Setenv("NICE_FPS", "fast")
	_, err = core.LoadConfiguration("")
	c.Assert(err, qt.ErrorMatches, `NICE_FPS: .*invalid syntax`)
}

func TestConfigurationValidate(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	c.Assert(cfg.Validate(), qt.IsNil)

	cfg.Renderer.SwapchainSize = 0
	c.Assert(cfg.Validate(), qt.ErrorMatches, "swapchain size must be at least 1")

	cfg = core.DefaultConfiguration()
	cfg.Time.FramesPerSecond = -1
	c.Assert(cfg.Validate(), qt.ErrorMatches, "negative frames per second: -1")

	_, err := core.LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "reading configuration: .*")
}

func TestTime(t *testing.T) {
	c := qt.New(t)
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 0})
	defer tm.Stop()
	c.Assert(tm.Fps(), qt.Equals, 0)
	c.Assert(tm.FrameTimeout(), qt.Equals, time.Second)

	tm2 := core.NewTime(core.TimeConfiguration{FramesPerSecond: 1000, EventPollDelay: 1, FrameTimeout: time.Millisecond})
	defer tm2.Stop()
	<-tm2.FpsTicker().C
	<-tm2.EventTicker().C
	c.Assert(tm2.FrameTimeout(), qt.Equals, time.Millisecond)
	c.Assert(tm2.Elapsed() > 0, qt.Equals, true)
}
