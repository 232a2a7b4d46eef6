// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // image decoders
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp" // image decoders
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devblok/nice/gfx"
	"github.com/devblok/nice/model"
	"github.com/devblok/nice/util/nmdl"
	"github.com/devblok/nice/util/ntx"
)

// ErrNotWatchable is returned by Watch for sources that are not directories.
var ErrNotWatchable = errors.New("resource source can not be watched")

// Resources caches textures and models loaded from a Source. Textures
// load in the background and show the white pixel until ready.
type Resources struct {
	ctx    *Context
	source Source
	log    logrus.FieldLogger

	pool    worker.DynamicWorkerPool
	pending sync.WaitGroup
	taskID  int64

	mutex    sync.Mutex
	released bool
	textures map[string]*TextureResource
	models   map[string]*cachedModel
	retired  []Texture
}

type cachedModel struct {
	data      *MeshData
	materials []nmdl.Material
	ranges    []nmdl.Range
	textured  bool
}

func newResources(ctx *Context, source Source) *Resources {
	queue := ctx.cfg.Resources.QueueSize
	if queue <= 0 {
		queue = 256
	}
	return &Resources{
		ctx:      ctx,
		source:   source,
		log:      ctx.log,
		pool:     worker.NewDynamicWorkerPool(1, queue, time.Second),
		textures: make(map[string]*TextureResource),
		models:   make(map[string]*cachedModel),
	}
}

// Source returns where resources are loaded from.
func (r *Resources) Source() Source { return r.source }

// WhitePixel returns the placeholder texture.
func (r *Resources) WhitePixel() *ImmutableTexture { return r.ctx.WhitePixel() }

// Sampler returns the sampler every texture is sampled with.
func (r *Resources) Sampler() gfx.Sampler { return r.ctx.Sampler() }

func (r *Resources) submit(fn func() error) {
	r.pending.Add(1)
	r.pool.SubmitTask(worker.Task{
		ID: int(atomic.AddInt64(&r.taskID, 1)),
		Do: func() (any, error) {
			defer r.pending.Done()
			return nil, fn()
		},
	})
}

// Wait blocks until every scheduled load finished.
func (r *Resources) Wait() {
	r.pending.Wait()
}

// GetTexture returns the texture at name. The first request schedules
// a background load, later requests return the same resource.
func (r *Resources) GetTexture(name string) *TextureResource {
	r.mutex.Lock()
	if res, ok := r.textures[name]; ok {
		r.mutex.Unlock()
		return res
	}
	res := NewTextureResource(r.ctx.WhitePixel())
	r.textures[name] = res
	r.mutex.Unlock()

	r.submit(func() error { return r.loadTexture(name, res, false) })
	return res
}

func (r *Resources) loadTexture(name string, res *TextureResource, reload bool) error {
	log := r.log.WithField("path", name)
	tex, err := r.decodeTexture(name)
	if err != nil {
		log.WithError(err).Error("loading texture failed")
		return err
	}
	if err := tex.Wait(10 * time.Second); err != nil {
		tex.Release()
		log.WithError(err).Error("texture upload did not finish")
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	switch {
	case r.released:
		tex.Release()
	case reload:
		if old := res.Replace(tex); old != nil {
			r.retired = append(r.retired, old)
		}
		log.Info("texture reloaded")
	case !res.SetIfNone(tex):
		tex.Release()
	default:
		log.Debug("texture loaded")
	}
	return nil
}

func (r *Resources) decodeTexture(name string) (*ImmutableTexture, error) {
	data, err := readSource(r.source, name)
	if err != nil {
		return nil, err
	}
	pixels, extent, format, err := DecodeTexture(name, data)
	if err != nil {
		return nil, err
	}
	return NewImmutableTexture(r.ctx.dev, pixels, extent, format)
}

// DecodeTexture decodes ntx textures and any registered image format
// into pixels ready for upload. Images other than ntx become sRGB RGBA8.
func DecodeTexture(name string, data []byte) ([]byte, gfx.Extent2D, gfx.Format, error) {
	if strings.EqualFold(path.Ext(name), ".ntx") {
		tex, err := ntx.DecodeBytes(data)
		if err != nil {
			return nil, gfx.Extent2D{}, gfx.FormatUndefined, fmt.Errorf("%s: %w", name, err)
		}
		format, err := tex.Format.GfxFormat()
		if err != nil {
			return nil, gfx.Extent2D{}, gfx.FormatUndefined, err
		}
		return tex.Pixels, tex.Extent(), format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, gfx.Extent2D{}, gfx.FormatUndefined, fmt.Errorf("%s: %w", name, err)
	}
	b := img.Bounds()
	extent := gfx.Extent2D{Width: uint32(b.Dx()), Height: uint32(b.Dy())}
	return GetPixels(img, 0), extent, gfx.FormatR8G8B8A8Srgb, nil
}

// GetModel creates one mesh per material of the model at name, all
// sharing the cached mesh data. Layer 0 gets the primary texture and
// layer 1 the lightmap.
func (r *Resources) GetModel(group *MeshGroup, name string) ([]*Mesh, error) {
	m, err := r.model(name)
	if err != nil {
		return nil, err
	}

	var meshes []*Mesh
	fail := func(err error) ([]*Mesh, error) {
		for _, mesh := range meshes {
			mesh.Release()
		}
		return nil, err
	}
	for i, mat := range m.materials {
		mesh, err := NewMesh(r.ctx, group)
		if err != nil {
			return fail(err)
		}
		meshes = append(meshes, mesh)
		if err := mesh.SetMeshData(m.data); err != nil {
			return fail(err)
		}
		if err := mesh.SetRange(m.ranges[i].Start, m.ranges[i].End); err != nil {
			return fail(err)
		}
		if !m.textured {
			continue
		}
		if err := mesh.SetTexture(0, r.GetTexture(mat.Texture1Path(name))); err != nil {
			return fail(err)
		}
		if err := mesh.SetTexture(1, r.GetTexture(mat.Texture2Path(name))); err != nil {
			return fail(err)
		}
	}
	return meshes, nil
}

func (r *Resources) model(name string) (*cachedModel, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.released {
		return nil, ErrNotInitialized
	}
	if m, ok := r.models[name]; ok {
		return m, nil
	}

	data, err := readSource(r.source, name)
	if err != nil {
		return nil, err
	}

	var (
		mdl      *model.Model
		textured bool
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".dae":
		mdl, err = model.ImportCollada(data)
	default:
		var raw *nmdl.Model
		raw, err = nmdl.DecodeBytes(data)
		if err == nil {
			mdl, textured = model.FromNmdl(raw), true
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	md, err := NewMeshData(r.ctx.dev, mdl.VertexData(), U32Indices(mdl.Indices), gfx.TopologyTriangleList)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m := &cachedModel{data: md, materials: mdl.Materials, ranges: mdl.Ranges(), textured: textured}
	r.models[name] = m
	r.log.WithField("path", name).WithField("materials", len(m.materials)).Debug("model loaded")
	return m, nil
}

// Watch reloads textures whose files change until ctx is done.
// Only directory sources can be watched.
func (r *Resources) Watch(ctx context.Context) error {
	dir, ok := r.source.(DirSource)
	if !ok {
		return ErrNotWatchable
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := filepath.Walk(string(dir), func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(p)
		}
		return nil
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rel, err := filepath.Rel(string(dir), ev.Name)
			if err != nil {
				continue
			}
			r.Reload(filepath.ToSlash(rel))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.WithError(err).Warn("resource watcher")
		}
	}
}

// Reload schedules a reload of a texture that was requested before.
// Meshes pick the new image up on their next refresh.
func (r *Resources) Reload(name string) bool {
	r.mutex.Lock()
	res, ok := r.textures[name]
	r.mutex.Unlock()
	if !ok {
		return false
	}
	r.submit(func() error { return r.loadTexture(name, res, true) })
	return true
}

// CollectRetired frees textures replaced by reloads. It must only be
// called when no frame in flight samples them.
func (r *Resources) CollectRetired() {
	r.mutex.Lock()
	retired := r.retired
	r.retired = nil
	r.mutex.Unlock()
	for _, t := range retired {
		releaseTexture(t)
	}
}

// Release waits for pending loads and frees every cached resource.
func (r *Resources) Release() {
	r.Wait()
	r.mutex.Lock()
	r.released = true
	textures := r.textures
	models := r.models
	r.textures = make(map[string]*TextureResource)
	r.models = make(map[string]*cachedModel)
	r.mutex.Unlock()

	r.CollectRetired()
	for _, res := range textures {
		releaseTexture(res.Replace(nil))
	}
	for _, m := range models {
		m.data.Release()
	}
	if c, ok := r.source.(io.Closer); ok {
		c.Close()
	}
}
