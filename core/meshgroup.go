// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"sort"
	"sync"

	"github.com/devblok/nice/gfx"
)

// MeshGroup is the registry of meshes a camera draws. Every live mesh
// created against the group has exactly one entry, removed when the
// mesh is released. The group does not own its meshes.
type MeshGroup struct {
	mutex   sync.Mutex
	entries map[uint64]*meshEntry

	skyMutex sync.RWMutex
	sky      Texture
}

// NewMeshGroup creates an empty group.
func NewMeshGroup() *MeshGroup {
	return &MeshGroup{entries: make(map[uint64]*meshEntry)}
}

func (g *MeshGroup) register(id uint64, e *meshEntry) {
	g.mutex.Lock()
	g.entries[id] = e
	g.mutex.Unlock()
}

func (g *MeshGroup) unregister(id uint64) {
	g.mutex.Lock()
	delete(g.entries, id)
	g.mutex.Unlock()
}

func (g *MeshGroup) lookup(id uint64) (*meshEntry, bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	e, ok := g.entries[id]
	return e, ok
}

// Len returns the number of registered meshes.
func (g *MeshGroup) Len() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.entries)
}

// IDs returns the ids of registered meshes in ascending order.
func (g *MeshGroup) IDs() []uint64 {
	g.mutex.Lock()
	ids := make([]uint64, 0, len(g.entries))
	for id := range g.entries {
		ids = append(ids, id)
	}
	g.mutex.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// meshes returns registered entries ordered by id.
func (g *MeshGroup) meshes() []*meshEntry {
	ids := g.IDs()
	out := make([]*meshEntry, 0, len(ids))
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for _, id := range ids {
		if e, ok := g.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns the draw state of every registered mesh ordered by id.
// Each snapshot must be released.
func (g *MeshGroup) Snapshot() []MeshSnapshot {
	entries := g.meshes()
	out := make([]MeshSnapshot, len(entries))
	for i, e := range entries {
		out[i] = e.snapshot()
	}
	return out
}

// SetSky sets the equirectangular texture drawn where there is no geometry.
func (g *MeshGroup) SetSky(t Texture) {
	g.skyMutex.Lock()
	g.sky = t
	g.skyMutex.Unlock()
}

// Sky returns the sky texture, nil when none is set.
func (g *MeshGroup) Sky() Texture {
	g.skyMutex.RLock()
	defer g.skyMutex.RUnlock()
	return g.sky
}

func (g *MeshGroup) skyImage() gfx.Image {
	if sky := g.Sky(); sky != nil {
		return sky.Image()
	}
	return nil
}
