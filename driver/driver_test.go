// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/driver"
	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/gfx/headless"
)

type stubShaders struct{}

func (stubShaders) Shader(string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

type headlessBackend struct {
	dev      *headless.Device
	surfaces []*headless.Surface
	released bool
}

func (b *headlessBackend) Device() gfx.Device { return b.dev }

func (b *headlessBackend) NewSurface(info driver.WindowInfo) (gfx.Surface, error) {
	s := headless.NewSurface(nil)
	b.surfaces = append(b.surfaces, s)
	return s, nil
}

func (b *headlessBackend) Release() { b.released = true }

func configuration(t *testing.T) core.Configuration {
	logger, _ := test.NewNullLogger()
	cfg := core.DefaultConfiguration()
	cfg.Renderer.Shaders = stubShaders{}
	cfg.Resources.Directory = t.TempDir()
	cfg.Logger = logger
	return cfg
}

func start(t *testing.T) (*driver.RenderEngine, *headlessBackend) {
	c := qt.New(t)
	driver.Shutdown()
	backend := &headlessBackend{dev: headless.New()}
	var engine *driver.RenderEngine
	status := driver.DriverMain(driver.DriverContext{
		APIVersion:           driver.APIVersion,
		GameName:             "test",
		RegisterRenderEngine: func(e *driver.RenderEngine) { engine = e },
	}, func(driver.Game) (driver.Backend, error) {
		return backend, nil
	}, configuration(t))
	c.Assert(status, qt.Equals, driver.StatusDriverReady)
	c.Assert(engine, qt.Not(qt.IsNil))
	t.Cleanup(driver.Shutdown)
	return engine, backend
}

func TestNotInitialized(t *testing.T) {
	c := qt.New(t)
	driver.Shutdown()
	_, err := driver.Engine()
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
}

func TestVersionInvalid(t *testing.T) {
	c := qt.New(t)
	driver.Shutdown()
	opened := false
	status := driver.DriverMain(driver.DriverContext{APIVersion: 1}, func(driver.Game) (driver.Backend, error) {
		opened = true
		return nil, errors.New("unreachable")
	}, configuration(t))
	c.Assert(status, qt.Equals, driver.StatusVersionInvalid)
	c.Assert(opened, qt.Equals, false)
	_, err := driver.Engine()
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
}

func TestDriverError(t *testing.T) {
	c := qt.New(t)
	driver.Shutdown()
	status := driver.DriverMain(driver.DriverContext{}, func(driver.Game) (driver.Backend, error) {
		return nil, errors.New("no gpu")
	}, configuration(t))
	c.Assert(status, qt.Equals, driver.StatusDriverError)
	_, err := driver.Engine()
	c.Assert(err, qt.Equals, core.ErrNotInitialized)
}

func TestDriverMainInitializesOnce(t *testing.T) {
	c := qt.New(t)
	first, backend := start(t)
	c.Assert(first.Name, qt.Equals, "nIce Engine")
	c.Assert(first.Priority, qt.Equals, uint64(10))
	c.Assert(first.GraphicsAPI, qt.Equals, uint64(100))

	var second *driver.RenderEngine
	opens := 0
	status := driver.DriverMain(driver.DriverContext{
		RegisterRenderEngine: func(e *driver.RenderEngine) { second = e },
	}, func(driver.Game) (driver.Backend, error) {
		opens++
		return backend, nil
	}, configuration(t))
	c.Assert(status, qt.Equals, driver.StatusDriverReady)
	c.Assert(opens, qt.Equals, 0)
	c.Assert(second, qt.Equals, first)

	engine, err := driver.Engine()
	c.Assert(err, qt.IsNil)
	c.Assert(engine, qt.Equals, first)

	driver.Shutdown()
	c.Assert(backend.released, qt.Equals, true)
}

func TestGameVersion(t *testing.T) {
	c := qt.New(t)
	g := driver.Game{Name: "demo", Version: 1<<22 | 2<<12 | 3}
	c.Assert(g.String(), qt.Equals, "demo 1.2.3")
}

func TestInvalidHandles(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	group := e.MeshGroupAlloc(nil)
	err := e.CameraSetPerspective(driver.Handle(group), 1, 1, 1, 10)
	c.Assert(errors.Is(err, driver.ErrInvalidHandle), qt.Equals, true)

	c.Assert(errors.Is(e.WindowFree(0), driver.ErrInvalidHandle), qt.Equals, true)
	c.Assert(e.WindowIsValid(group), qt.Equals, false)

	c.Assert(e.MeshGroupFree(group), qt.IsNil)
	c.Assert(errors.Is(e.MeshGroupFree(group), driver.ErrInvalidHandle), qt.Equals, true)

	_, err = e.MeshInstanceAlloc(group, nil)
	c.Assert(errors.Is(err, driver.ErrInvalidHandle), qt.Equals, true)
}

func TestWindowLifecycle(t *testing.T) {
	c := qt.New(t)
	e, backend := start(t)

	_, err := e.WindowAlloc(driver.WindowInfo{Platform: driver.PlatformUndefined})
	c.Assert(errors.Is(err, driver.ErrUnknownPlatform), qt.Equals, true)

	w, err := e.WindowAlloc(driver.WindowInfo{Platform: driver.PlatformX11, Width: 640, Height: 480})
	c.Assert(err, qt.IsNil)
	c.Assert(e.WindowIsValid(w), qt.Equals, true)
	c.Assert(backend.surfaces, qt.HasLen, 1)

	surface, err := e.WindowSurface(w)
	c.Assert(err, qt.IsNil)
	c.Assert(surface.Extent(), qt.Equals, gfx.Extent2D{Width: 640, Height: 480})

	c.Assert(e.WindowResize(w, 800, 600), qt.IsNil)
	c.Assert(surface.Extent(), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})

	// no camera, nothing to draw
	drawn, err := e.WindowDraw(w)
	c.Assert(err, qt.IsNil)
	c.Assert(drawn, qt.Equals, false)

	overlay, err := e.ImageDataAlloc(driver.ImageUsageOverlay, 4, 4, driver.PixelFormatRGBA8, nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(e.WindowSetOverlay(w, overlay), qt.IsNil)
	img, err := e.WindowOverlay(w)
	c.Assert(err, qt.IsNil)
	c.Assert(img, qt.Not(qt.IsNil))

	c.Assert(e.WindowFree(w), qt.IsNil)
	c.Assert(e.WindowIsValid(w), qt.Equals, false)
}

func TestSingleTriangleScene(t *testing.T) {
	c := qt.New(t)
	e, backend := start(t)

	w, err := e.WindowAlloc(driver.WindowInfo{Platform: driver.PlatformWayland, Width: 1280, Height: 720})
	c.Assert(err, qt.IsNil)

	data, err := e.MeshDataAllocPolygon(
		driver.VertexFormatPntl32F, driver.NewBytesBuffer(triangleVertices()),
		driver.IndexFormatSoup32U, driver.NewBytesBuffer(u32Bytes(0, 1, 2)),
		nil,
	)
	c.Assert(err, qt.IsNil)

	group := e.MeshGroupAlloc(nil)
	mesh, err := e.MeshInstanceAlloc(group, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(e.MeshInstanceSetMeshData(mesh, data, 0), qt.IsNil)
	c.Assert(e.MeshInstanceSetTransform(mesh, driver.Transform{Rotation: [4]float32{0, 0, 0, 1}}), qt.IsNil)

	cam := e.CameraAlloc()
	c.Assert(e.CameraSetPerspective(cam, 16.0/9.0, 1.5, 1, 1000), qt.IsNil)
	c.Assert(e.CameraSetMeshGroup(cam, group), qt.IsNil)
	c.Assert(e.CameraSetTransform(cam, driver.Transform{Rotation: [4]float32{0, 0, 0, 1}}), qt.IsNil)
	c.Assert(e.WindowSetCamera(w, cam), qt.IsNil)

	drawn, err := e.WindowDraw(w)
	c.Assert(err, qt.IsNil)
	c.Assert(drawn, qt.Equals, true)

	subs := backend.dev.HeadlessQueue().Submissions()
	c.Assert(subs, qt.HasLen, 1)
	var indexed []uint32
	for _, cmd := range subs[0].Commands {
		if cmd.Op == headless.OpDrawIndexed && cmd.Subpass == 0 {
			indexed = append(indexed, cmd.Count)
		}
	}
	c.Assert(indexed, qt.DeepEquals, []uint32{3})

	// freeing the host reference keeps the data alive for the instance
	c.Assert(e.MeshDataFree(data), qt.IsNil)
	drawn, err = e.WindowDraw(w)
	c.Assert(err, qt.IsNil)
	c.Assert(drawn, qt.Equals, true)
}

func TestMeshInstanceState(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	group := e.MeshGroupAlloc(nil)
	h, err := e.MeshInstanceAlloc(group, nil)
	c.Assert(err, qt.IsNil)
	mesh, err := e.MeshInstance(h)
	c.Assert(err, qt.IsNil)

	c.Assert(e.MeshInstanceSetMeshSubset(h, 3, 6), qt.IsNil)
	start, end := mesh.Range()
	c.Assert([]uint32{start, end}, qt.DeepEquals, []uint32{3, 9})

	c.Assert(e.MeshInstanceSetTransform(h, driver.Transform{
		Position: [4]float32{1, 2, 3, 4},
		Rotation: [4]float32{0, 0, 0, 1},
	}), qt.IsNil)
	pos := mesh.Transform().Position()
	c.Assert([]float32{pos[0], pos[1], pos[2]}, qt.DeepEquals, []float32{1, 2, 3})

	c.Assert(errors.Is(e.MeshInstanceSetImageData(h, 0, 7), core.ErrLayerRange), qt.Equals, true)
	c.Assert(e.MeshInstanceSetAnimation(h, 0, 10, 30), qt.IsNil)
	c.Assert(e.MeshInstanceSetBoneTransform(h, 0, driver.Transform{}), qt.IsNil)

	g, err := e.MeshGroup(group)
	c.Assert(err, qt.IsNil)
	c.Assert(g.Len(), qt.Equals, 1)
	c.Assert(e.MeshInstanceFree(h), qt.IsNil)
	c.Assert(g.Len(), qt.Equals, 0)
}

func TestCameraTransform(t *testing.T) {
	c := qt.New(t)
	e, _ := start(t)

	h := e.CameraAlloc()
	c.Assert(e.CameraSetTransform(h, driver.Transform{
		Position: [4]float32{1, 2, 3, 1},
		Rotation: [4]float32{0, 0, 0, 1},
	}), qt.IsNil)
	cam, err := e.Camera(h)
	c.Assert(err, qt.IsNil)
	tr := cam.Transform()
	c.Assert(tr.Pos[3], qt.Equals, float32(1))
	c.Assert(tr.Rot.W, qt.Equals, float32(1))

	c.Assert(e.CameraSetMeshGroup(h, 0), qt.IsNil)
	c.Assert(cam.MeshGroup() == nil, qt.Equals, true)
	c.Assert(e.CameraFree(h), qt.IsNil)
}
