// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Pipeline kinds accepted by RendererConfiguration.Pipeline
const (
	PipelineDeferred = "deferred"
	PipelineForward  = "forward"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time      TimeConfiguration      `yaml:"time"`
	Renderer  RendererConfiguration  `yaml:"renderer"`
	Resources ResourcesConfiguration `yaml:"resources"`

	// Logger receives engine logs, logrus.StandardLogger() when nil.
	Logger logrus.FieldLogger `yaml:"-"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `yaml:"fps"`

	// EventPollDelay is the delay between event polls in milliseconds
	EventPollDelay int `yaml:"eventPollDelay"`

	// FrameTimeout bounds the wait for the previous frame
	FrameTimeout time.Duration `yaml:"frameTimeout"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32   `yaml:"swapchainSize"`
	DeviceExtensions []string `yaml:"deviceExtensions"`

	ScreenWidth  uint32 `yaml:"screenWidth"`
	ScreenHeight uint32 `yaml:"screenHeight"`

	// Pipeline is either "deferred" or "forward"
	Pipeline        string  `yaml:"pipeline"`
	ShaderDirectory string  `yaml:"shaderDirectory"`
	Validation      bool    `yaml:"validation"`
	Exposure        float32 `yaml:"exposure"`

	// Shaders overrides ShaderDirectory and the embedded shaders.
	Shaders ShaderSource `yaml:"-"`
}

// ResourcesConfiguration is used to configure resource loading
type ResourcesConfiguration struct {
	Directory string `yaml:"directory"`
	Archive   string `yaml:"archive"`
	Watch     bool   `yaml:"watch"`
	QueueSize int    `yaml:"queueSize"`
}

// DefaultConfiguration returns the configuration used
// when nothing else is specified.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  8,
			FrameTimeout:    time.Second,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:    2,
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			ScreenWidth:      1280,
			ScreenHeight:     720,
			Pipeline:         PipelineDeferred,
			Exposure:         1,
		},
		Resources: ResourcesConfiguration{
			Directory: "assets",
			QueueSize: 256,
		},
	}
}

// LoadConfiguration loads defaults, overlays the YAML file at path
// when it is not empty and finally applies NICE_* environment
// variables, also read from a .env file if one is present.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading configuration: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing configuration %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnvironment(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Configuration) applyEnvironment() error {
	envy.Reload()
	uints := map[string]*uint32{
		"NICE_SCREEN_WIDTH":  &c.Renderer.ScreenWidth,
		"NICE_SCREEN_HEIGHT": &c.Renderer.ScreenHeight,
	}
	for key, dst := range uints {
		if v := envy.Get(key, ""); v != "" {
			num, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = uint32(num)
		}
	}
	if v := envy.Get("NICE_FPS", ""); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NICE_FPS: %w", err)
		}
		c.Time.FramesPerSecond = fps
	}
	if v := envy.Get("NICE_VALIDATION", ""); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NICE_VALIDATION: %w", err)
		}
		c.Renderer.Validation = on
	}
	c.Renderer.ShaderDirectory = envy.Get("NICE_SHADER_DIR", c.Renderer.ShaderDirectory)
	c.Renderer.Pipeline = envy.Get("NICE_PIPELINE", c.Renderer.Pipeline)
	c.Resources.Archive = envy.Get("NICE_ASSET_ARCHIVE", c.Resources.Archive)
	c.Resources.Directory = envy.Get("NICE_ASSET_DIR", c.Resources.Directory)
	return nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Configuration) Validate() error {
	switch c.Renderer.Pipeline {
	case PipelineDeferred, PipelineForward:
	default:
		return fmt.Errorf("unknown pipeline %q", c.Renderer.Pipeline)
	}
	if c.Time.FramesPerSecond < 0 {
		return fmt.Errorf("negative frames per second: %d", c.Time.FramesPerSecond)
	}
	if c.Renderer.SwapchainSize == 0 {
		return fmt.Errorf("swapchain size must be at least 1")
	}
	return nil
}

func (c *Configuration) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
