// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/devblok/nice/gfx"
)

// MeshLayers is the number of texture layers of a mesh.
// Layer 0 is the diffuse texture, layer 1 the lightmap.
const MeshLayers = 7

// ErrReleased is returned when using a released mesh.
var ErrReleased = errors.New("mesh is released")

var meshIDs uint64

// Mesh is an instance of mesh data placed in a MeshGroup. It only
// holds its id, the state lives in the group's registry.
type Mesh struct {
	id       uint64
	group    *MeshGroup
	released int32
}

// MeshSnapshot is the complete draw state of a mesh at one point in time.
// Data and Set stay alive until the holder calls Release.
type MeshSnapshot struct {
	ID        uint64
	Data      *MeshData
	Start     uint32
	End       uint32
	Transform Transform
	Set       gfx.DescriptorSet

	set *sharedSet
}

// Release drops the references the snapshot holds.
func (s MeshSnapshot) Release() {
	if s.Data != nil {
		s.Data.Release()
	}
	if s.set != nil {
		s.set.release()
	}
}

// sharedSet is a descriptor set freed when its last holder releases it.
// Frames recorded with a set hold it until their command buffer is
// recorded again.
type sharedSet struct {
	set  gfx.DescriptorSet
	refs int32
}

func newSharedSet(set gfx.DescriptorSet) *sharedSet {
	return &sharedSet{set: set, refs: 1}
}

func (s *sharedSet) retain() *sharedSet {
	atomic.AddInt32(&s.refs, 1)
	return s
}

func (s *sharedSet) release() {
	if atomic.AddInt32(&s.refs, -1) == 0 {
		s.set.Release()
	}
}

type meshEntry struct {
	id  uint64
	ctx *Context

	// mutex guards everything below. Writers are application
	// goroutines, the render goroutine reads snapshots.
	mutex     sync.RWMutex
	released  bool
	data      *MeshData
	start     uint32
	end       uint32
	transform Transform
	textures  [MeshLayers]Texture
	sets      [MeshLayers]*sharedSet
}

// NewMesh creates a mesh with every layer set to the white pixel
// and registers it in group.
func NewMesh(ctx *Context, group *MeshGroup) (*Mesh, error) {
	if ctx == nil {
		return nil, ErrNotInitialized
	}
	if group == nil {
		return nil, errors.New("mesh needs a mesh group")
	}

	entry := &meshEntry{
		id:        atomic.AddUint64(&meshIDs, 1),
		ctx:       ctx,
		transform: IdentityTransform(),
	}
	white := ctx.WhitePixel()
	for i := range entry.textures {
		set, err := ctx.materialSet(white.Image())
		if err != nil {
			for _, s := range entry.sets[:i] {
				s.release()
			}
			return nil, fmt.Errorf("mesh descriptor set %d: %w", i, err)
		}
		entry.textures[i] = white
		entry.sets[i] = newSharedSet(set)
	}

	group.register(entry.id, entry)
	return &Mesh{id: entry.id, group: group}, nil
}

// ID returns the process wide unique id of the mesh.
func (m *Mesh) ID() uint64 { return m.id }

// Group returns the group the mesh is registered in.
func (m *Mesh) Group() *MeshGroup { return m.group }

func (m *Mesh) entry() (*meshEntry, error) {
	if atomic.LoadInt32(&m.released) == 1 {
		return nil, ErrReleased
	}
	e, ok := m.group.lookup(m.id)
	if !ok {
		return nil, ErrReleased
	}
	return e, nil
}

// SetMeshData replaces the drawn mesh data and resets the range
// to the whole index buffer. nil stops the mesh from being drawn.
func (m *Mesh) SetMeshData(data *MeshData) error {
	e, err := m.entry()
	if err != nil {
		return err
	}
	if data != nil {
		data.Retain()
	}
	e.mutex.Lock()
	old := e.data
	e.data = data
	e.start, e.end = 0, 0
	e.mutex.Unlock()
	if old != nil {
		old.Release()
	}
	return nil
}

// MeshData returns the mesh data, nil when none is set.
func (m *Mesh) MeshData() *MeshData {
	e, err := m.entry()
	if err != nil {
		return nil
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.data
}

// SetRange limits drawing to indices [start, end).
// An empty range draws the whole index buffer.
func (m *Mesh) SetRange(start, end uint32) error {
	if end < start {
		return fmt.Errorf("invalid index range [%d, %d)", start, end)
	}
	e, err := m.entry()
	if err != nil {
		return err
	}
	e.mutex.Lock()
	e.start, e.end = start, end
	e.mutex.Unlock()
	return nil
}

// Range returns the index range.
func (m *Mesh) Range() (uint32, uint32) {
	e, err := m.entry()
	if err != nil {
		return 0, 0
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.start, e.end
}

// SetTransform places the mesh.
func (m *Mesh) SetTransform(t Transform) error {
	e, err := m.entry()
	if err != nil {
		return err
	}
	e.mutex.Lock()
	e.transform = t
	e.mutex.Unlock()
	return nil
}

// Transform returns the placement of the mesh.
func (m *Mesh) Transform() Transform {
	e, err := m.entry()
	if err != nil {
		return IdentityTransform()
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.transform
}

// SetTexture sets the texture of a layer. The descriptor set
// follows on the next Refresh.
func (m *Mesh) SetTexture(layer int, t Texture) error {
	if layer < 0 || layer >= MeshLayers {
		return ErrLayerRange
	}
	if t == nil {
		return errors.New("texture is nil")
	}
	e, err := m.entry()
	if err != nil {
		return err
	}
	e.mutex.Lock()
	e.textures[layer] = t
	e.mutex.Unlock()
	return nil
}

// Texture returns the texture of a layer.
func (m *Mesh) Texture(layer int) (Texture, error) {
	if layer < 0 || layer >= MeshLayers {
		return nil, ErrLayerRange
	}
	e, err := m.entry()
	if err != nil {
		return nil, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.textures[layer], nil
}

// DescriptorSet returns the cached descriptor set of a layer.
func (m *Mesh) DescriptorSet(layer int) (gfx.DescriptorSet, error) {
	if layer < 0 || layer >= MeshLayers {
		return nil, ErrLayerRange
	}
	e, err := m.entry()
	if err != nil {
		return nil, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.sets[layer].set, nil
}

// Refresh rebuilds the descriptor sets of layers whose texture
// image changed since they were built. Replaced sets are freed once
// no recorded frame references them.
func (m *Mesh) Refresh() error {
	e, err := m.entry()
	if err != nil {
		return err
	}
	return e.refresh()
}

// Snapshot returns the current draw state with the mesh data retained.
func (m *Mesh) Snapshot() (MeshSnapshot, error) {
	e, err := m.entry()
	if err != nil {
		return MeshSnapshot{}, err
	}
	return e.snapshot(), nil
}

// Release unregisters the mesh. Its descriptor sets are freed once no
// recorded frame references them. Calling it more than once is a no-op.
func (m *Mesh) Release() {
	if !atomic.CompareAndSwapInt32(&m.released, 0, 1) {
		return
	}
	e, ok := m.group.lookup(m.id)
	m.group.unregister(m.id)
	if ok {
		e.release()
	}
}

func (e *meshEntry) refresh() error {
	e.mutex.RLock()
	textures := e.textures
	sets := e.sets
	e.mutex.RUnlock()

	for i := range textures {
		img := textures[i].Image()
		if cur := sets[i].set.Image(0); cur != nil && cur.Handle() == img.Handle() {
			continue
		}
		set, err := e.ctx.materialSet(img)
		if err != nil {
			return fmt.Errorf("mesh %d layer %d: %w", e.id, i, err)
		}

		e.mutex.Lock()
		if e.released || e.textures[i] != textures[i] || e.sets[i] != sets[i] {
			// changed meanwhile, the next refresh picks it up
			e.mutex.Unlock()
			set.Release()
			continue
		}
		e.sets[i] = newSharedSet(set)
		e.mutex.Unlock()
		sets[i].release()
	}
	return nil
}

func (e *meshEntry) snapshot() MeshSnapshot {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	snap := MeshSnapshot{
		ID:        e.id,
		Data:      e.data,
		Start:     e.start,
		End:       e.end,
		Transform: e.transform,
		Set:       e.sets[0].set,
		set:       e.sets[0].retain(),
	}
	if snap.Data != nil {
		snap.Data.Retain()
	}
	return snap
}

func (e *meshEntry) release() {
	e.mutex.Lock()
	e.released = true
	sets := e.sets
	data := e.data
	e.data = nil
	e.mutex.Unlock()

	for _, s := range sets {
		if s != nil {
			s.release()
		}
	}
	if data != nil {
		data.Release()
	}
}
