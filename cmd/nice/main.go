// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command nice is a sandbox that renders a model from the asset
// source with one light and a camera circling the origin.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx/vkr"
)

func init() {
	runtime.LockOSThread()
}

var (
	configPath = flag.String("config", "", "YAML configuration file")
	cpuProfile = flag.String("cpuprof", "", "Write a CPU profile to the file")
	memProfile = flag.String("memprof", "", "Write a heap profile to the file on exit")
	tracePath  = flag.String("trace", "", "Write an execution trace to the file")
	vkDebug    = flag.Bool("vkdbg", false, "Enable the Vulkan validation layer")
	modelName  = flag.String("model", "models/sandbox.nmdl", "Model to render, relative to the asset source")
)

// retireInterval is the number of frames between collecting
// textures replaced by hot reload.
const retireInterval = 120

func newWindow(cfg core.RendererConfiguration) *sdl.Window {
	window, err := sdl.CreateWindow("nIce",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		log.Fatal(err)
	}
	return window
}

func startProfiling() func() {
	var stops []func()
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}
	if *tracePath != "" {
		f, err := os.Create(*tracePath)
		if err != nil {
			log.Fatal(err)
		}
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		stops = append(stops, func() {
			trace.Stop()
			f.Close()
		})
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
		if *memProfile != "" {
			f, err := os.Create(*memProfile)
			if err != nil {
				log.WithError(err).Error("creating heap profile")
				return
			}
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.WithError(err).Error("writing heap profile")
			}
		}
	}
}

// orbit places the camera on a circle around the origin, looking at it.
func orbit(seconds float64) core.Transform {
	rot := mgl32.QuatRotate(float32(seconds)*0.5, mgl32.Vec3{0, 1, 0})
	return core.NewTransform(rot.Rotate(mgl32.Vec3{0, 1.5, 5}), rot)
}

func main() {
	flag.Parse()
	stopProfiling := startProfiling()
	defer stopProfiling()

	cfg, err := core.LoadConfiguration(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Renderer.Validation = cfg.Renderer.Validation || *vkDebug
	cfg.Logger = log.StandardLogger()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatal(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.Fatal(err)
	}
	defer sdl.VulkanUnloadLibrary()

	window := newWindow(cfg.Renderer)
	defer window.Destroy()

	instance, err := vkr.NewInstance(vkr.DefaultApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), vkr.InstanceConfiguration{
		DebugMode:  cfg.Renderer.Validation,
		Extensions: window.VulkanGetInstanceExtensions(),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer instance.Release()

	srf, err := window.VulkanCreateSurface(instance.Inner())
	if err != nil {
		log.Fatal(err)
	}
	vkSurface := instance.SurfaceFromHandle(uintptr(*(*uint64)(srf)))

	device, err := vkr.NewDevice(instance, vkSurface)
	if err != nil {
		log.Fatal(err)
	}
	defer device.Release()
	log.WithField("device", device.String()).Info("device selected")

	ctx, err := core.NewContext(device, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Release()

	resources, err := ctx.Resources()
	if err != nil {
		log.Fatal(err)
	}

	group := core.NewMeshGroup()
	meshes, err := resources.GetModel(group, *modelName)
	if err != nil {
		log.WithError(err).WithField("path", *modelName).Error("model not loaded, drawing an empty scene")
	}
	defer func() {
		for _, m := range meshes {
			m.Release()
		}
	}()

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Resources.Watch {
		go func() {
			if err := resources.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Warn("asset watcher stopped")
			}
		}()
	}

	w, h := window.GetSize()
	camera := core.NewCamera()
	camera.SetPerspective(float32(w)/float32(h), mgl32.DegToRad(90), 0.1, 100)
	camera.SetMeshGroup(group)
	camera.SetExposure(cfg.Renderer.Exposure)

	surface, err := core.NewSurface(ctx, vkSurface, uint32(w), uint32(h))
	if err != nil {
		log.Fatal(err)
	}
	defer surface.Release()
	surface.SetCamera(camera)
	surface.SetLights([]core.DirectLight{{
		Position: mgl32.Vec3{2, 4, 3},
		Color:    mgl32.Vec3{1, 0.95, 0.9},
		Radius:   20,
	}})

	clock := core.NewTime(cfg.Time)
	defer clock.Stop()

	var frames uint64
EventLoop:
	for range clock.FpsTicker().C {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch et := event.(type) {
			case *sdl.KeyboardEvent:
				if et.Keysym.Sym == sdl.K_ESCAPE {
					break EventLoop
				}
			case *sdl.WindowEvent:
				if et.Event == sdl.WINDOWEVENT_RESIZED && et.Data1 > 0 && et.Data2 > 0 {
					if err := surface.Resize(uint32(et.Data1), uint32(et.Data2)); err != nil {
						log.WithError(err).Warn("resize failed")
					}
					camera.SetPerspective(float32(et.Data1)/float32(et.Data2), mgl32.DegToRad(90), 0.1, 100)
				}
			case *sdl.QuitEvent:
				break EventLoop
			}
		}

		camera.SetTransform(orbit(clock.Elapsed().Seconds()))
		surface.Draw()

		frames++
		if frames%retireInterval == 0 {
			device.WaitIdle()
			resources.CollectRetired()
		}
	}
	log.WithField("frames", frames).Info("event loop exited")
}
