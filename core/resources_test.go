// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/util/nmdl"
	"github.com/devblok/nice/util/ntx"
	"github.com/devblok/nice/utility/kar"
)

func writeAsset(t *testing.T, f *fixture, name string, data []byte) {
	c := qt.New(t)
	path := filepath.Join(f.ctx.Configuration().Resources.Directory, filepath.FromSlash(name))
	c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
	c.Assert(os.WriteFile(path, data, 0644), qt.IsNil)
}

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	qt.New(t).Assert(png.Encode(&buf, img), qt.IsNil)
	return buf.Bytes()
}

func resources(t *testing.T, f *fixture) *core.Resources {
	res, err := f.ctx.Resources()
	qt.New(t).Assert(err, qt.IsNil)
	return res
}

func TestTextureCache(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	writeAsset(t, f, "bricks.png", pngBytes(t, 4, 2))
	res := resources(t, f)

	tex := res.GetTexture("bricks.png")
	c.Assert(res.GetTexture("bricks.png"), qt.Equals, tex)
	res.Wait()

	c.Assert(tex.Loaded(), qt.Equals, true)
	c.Assert(tex.Image().Extent(), qt.Equals, gfx.Extent2D{Width: 4, Height: 2})
	c.Assert(tex.Image().Format(), qt.Equals, gfx.FormatR8G8B8A8Srgb)
	c.Assert(res.GetTexture("bricks.png"), qt.Equals, tex)
}

func TestTextureMissing(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	res := resources(t, f)

	tex := res.GetTexture("missing.png")
	res.Wait()
	c.Assert(tex.Loaded(), qt.Equals, false)
	c.Assert(tex.Image(), qt.Equals, f.ctx.WhitePixel().Image())
	c.Assert(f.logs.LastEntry().Message, qt.Equals, "loading texture failed")
}

func TestTextureNtx(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	var buf bytes.Buffer
	c.Assert(ntx.Encode(&buf, ntx.FromFloat16(2, 2, make([]float32, 16))), qt.IsNil)
	writeAsset(t, f, "sky.ntx", buf.Bytes())
	res := resources(t, f)

	tex := res.GetTexture("sky.ntx")
	res.Wait()
	c.Assert(tex.Loaded(), qt.Equals, true)
	c.Assert(tex.Image().Format(), qt.Equals, gfx.FormatR16G16B16A16Sfloat)
}

func TestDecodeTexture(t *testing.T) {
	c := qt.New(t)
	pixels, extent, format, err := core.DecodeTexture("a.png", pngBytes(t, 3, 3))
	c.Assert(err, qt.IsNil)
	c.Assert(pixels, qt.HasLen, 36)
	c.Assert(extent, qt.Equals, gfx.Extent2D{Width: 3, Height: 3})
	c.Assert(format, qt.Equals, gfx.FormatR8G8B8A8Srgb)
	c.Assert(pixels[:4], qt.DeepEquals, []byte{200, 0, 0, 255})

	_, _, _, err = core.DecodeTexture("old.ntx", []byte("ntex\x00\x01\x00\x01\x00"))
	c.Assert(err, qt.ErrorMatches, "old.ntx: ntx: legacy ntex texture is not supported")
	_, _, _, err = core.DecodeTexture("junk.png", []byte("junk"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func testModel() *nmdl.Model {
	return &nmdl.Model{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Lightmap:  [][2]float32{{0, 0}, {0, 0}, {0, 0}, {0, 0}},
		Indices:   []uint32{0, 1, 2, 2, 1, 3},
		Materials: []nmdl.Material{
			{IndexCount: 3, Texture1: "bricks.png"},
			{IndexCount: 3},
		},
	}
}

func TestModelCache(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	var buf bytes.Buffer
	c.Assert(nmdl.Encode(&buf, testModel()), qt.IsNil)
	writeAsset(t, f, "models/wall.nmdl", buf.Bytes())
	writeAsset(t, f, "models/bricks.png", pngBytes(t, 2, 2))
	res := resources(t, f)
	group := core.NewMeshGroup()

	meshes, err := res.GetModel(group, "models/wall.nmdl")
	c.Assert(err, qt.IsNil)
	c.Assert(meshes, qt.HasLen, 2)
	c.Assert(group.Len(), qt.Equals, 2)

	start, end := meshes[1].Range()
	c.Assert([]uint32{start, end}, qt.DeepEquals, []uint32{3, 6})
	c.Assert(meshes[0].MeshData(), qt.Equals, meshes[1].MeshData())

	layer0, err := meshes[0].Texture(0)
	c.Assert(err, qt.IsNil)
	c.Assert(layer0, qt.Equals, core.Texture(res.GetTexture("models/bricks.png")))
	layer1, err := meshes[1].Texture(1)
	c.Assert(err, qt.IsNil)
	c.Assert(layer1, qt.Equals, core.Texture(res.GetTexture("models/default.ntx")))

	again, err := res.GetModel(group, "models/wall.nmdl")
	c.Assert(err, qt.IsNil)
	c.Assert(again[0].MeshData(), qt.Equals, meshes[0].MeshData())

	res.Wait()
	for _, m := range append(meshes, again...) {
		m.Release()
	}
	c.Assert(group.Len(), qt.Equals, 0)

	_, err = res.GetModel(group, "models/missing.nmdl")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestArchiveSource(t *testing.T) {
	c := qt.New(t)
	b, err := kar.NewBuilder(kar.Header{Author: "tests"})
	c.Assert(err, qt.IsNil)
	defer b.Close()
	c.Assert(b.Add("bricks.png", bytes.NewReader(pngBytes(t, 2, 2))), qt.IsNil)

	path := filepath.Join(t.TempDir(), "assets.kar")
	out, err := os.Create(path)
	c.Assert(err, qt.IsNil)
	_, err = b.WriteTo(out)
	c.Assert(err, qt.IsNil)
	c.Assert(out.Close(), qt.IsNil)

	logger := newNullLogger()
	cfg := core.DefaultConfiguration()
	cfg.Renderer.Shaders = stubShaders{}
	cfg.Resources.Archive = path
	cfg.Logger = logger

	ctx, err := core.NewContext(newDevice(), cfg)
	c.Assert(err, qt.IsNil)
	defer ctx.Release()
	res, err := ctx.Resources()
	c.Assert(err, qt.IsNil)

	tex := res.GetTexture("bricks.png")
	res.Wait()
	c.Assert(tex.Loaded(), qt.Equals, true)

	ctxWatch, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Assert(res.Watch(ctxWatch), qt.Equals, core.ErrNotWatchable)
}

func TestWatchReloads(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, core.PipelineDeferred)
	writeAsset(t, f, "bricks.png", pngBytes(t, 2, 2))
	res := resources(t, f)

	tex := res.GetTexture("bricks.png")
	res.Wait()
	first := tex.Image().Handle()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- res.Watch(ctx) }()
	defer func() {
		cancel()
		c.Assert(<-done, qt.IsNil)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for tex.Image().Handle() == first && time.Now().Before(deadline) {
		writeAsset(t, f, "bricks.png", pngBytes(t, 4, 4))
		time.Sleep(50 * time.Millisecond)
	}
	c.Assert(tex.Image().Extent(), qt.Equals, gfx.Extent2D{Width: 4, Height: 4})
	c.Assert(res.Reload("never-requested.png"), qt.Equals, false)
	res.CollectRetired()
}
