// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package driver implements the Game Graph Driver: the render engine
// table a game runtime drives the engine through. Objects handed to
// the host are referenced by handles, every operation validates them.
package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx"
)

// APIVersion is the driver API version hosts must request.
const APIVersion = 0

// Engine identification registered with the host.
const (
	EngineName        = "nIce Engine"
	EnginePriority    = 10
	EngineGraphicsAPI = 100
)

// package errors
var (
	ErrVersionInvalid          = errors.New("driver api version is not supported")
	ErrInvalidHandle           = errors.New("invalid handle")
	ErrUnsupportedVertexFormat = errors.New("vertex format is not supported")
	ErrUnsupportedIndexFormat  = errors.New("index format is not supported")
	ErrImageInitialized        = errors.New("image data is already initialized")
)

// WindowInfo describes a host window. Display is the X11 or Wayland
// display connection, Window the HWND, X11 window, wl_surface or
// CAMetalLayer. A zero size uses the configured screen size.
type WindowInfo struct {
	Platform Platform
	Instance uintptr
	Display  uintptr
	Window   uintptr
	Width    uint32
	Height   uint32
}

// Backend provides the device the engine runs on and surfaces
// for host windows.
type Backend interface {
	Device() gfx.Device
	NewSurface(info WindowInfo) (gfx.Surface, error)
	Release()
}

// Opener creates the backend for a game.
type Opener func(game Game) (Backend, error)

// Game identifies the game a host runs.
type Game struct {
	Name    string
	Version uint64
}

func (g Game) String() string {
	v := uint32(g.Version)
	return fmt.Sprintf("%s %d.%d.%d", g.Name, v>>22, (v>>12)&0x3ff, v&0xfff)
}

// DriverContext is what the host passes to DriverMain.
type DriverContext struct {
	APIVersion  uint64
	GameVersion uint64
	GameName    string

	// RegisterRenderEngine receives the engine once it is ready.
	RegisterRenderEngine func(*RenderEngine)
}

var (
	gate    sync.Mutex
	current *RenderEngine
)

// DriverMain checks the requested API version, initializes the engine on
// first use and registers it with the host. Later calls register the
// engine created by the first successful one.
func DriverMain(dc DriverContext, open Opener, cfg core.Configuration) DriverStatus {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dc.APIVersion != APIVersion {
		log.WithError(ErrVersionInvalid).WithField("version", dc.APIVersion).Error("driver refused")
		return StatusVersionInvalid
	}

	gate.Lock()
	defer gate.Unlock()
	if current == nil {
		game := Game{Name: dc.GameName, Version: dc.GameVersion}
		engine, err := newRenderEngine(game, open, cfg)
		if err != nil {
			log.WithError(err).WithField("game", game.String()).Error("driver initialization failed")
			return StatusDriverError
		}
		current = engine
		log.WithField("game", game.String()).Info("driver ready")
	}
	if dc.RegisterRenderEngine != nil {
		dc.RegisterRenderEngine(current)
	}
	return StatusDriverReady
}

// Engine returns the engine created by DriverMain.
func Engine() (*RenderEngine, error) {
	gate.Lock()
	defer gate.Unlock()
	if current == nil {
		return nil, core.ErrNotInitialized
	}
	return current, nil
}

// Shutdown releases the engine and every object still held by the host.
// DriverMain may be called again afterwards.
func Shutdown() {
	gate.Lock()
	defer gate.Unlock()
	if current != nil {
		current.release()
		current = nil
	}
}

// RenderEngine is the engine as seen by a host.
type RenderEngine struct {
	Name        string
	Priority    uint64
	GraphicsAPI uint64

	game    Game
	backend Backend
	ctx     *core.Context
	log     logrus.FieldLogger

	windows  registry[*window]
	meshData registry[*core.MeshData]
	images   registry[*ImageData]
	fonts    registry[*FontData]
	groups   registry[*core.MeshGroup]
	meshes   registry[*core.Mesh]
	cameras  registry[*core.Camera]
}

func newRenderEngine(game Game, open Opener, cfg core.Configuration) (*RenderEngine, error) {
	backend, err := open(game)
	if err != nil {
		return nil, fmt.Errorf("opening backend: %w", err)
	}
	ctx, err := core.NewContext(backend.Device(), cfg)
	if err != nil {
		backend.Release()
		return nil, err
	}
	return &RenderEngine{
		Name:        EngineName,
		Priority:    EnginePriority,
		GraphicsAPI: EngineGraphicsAPI,

		game:    game,
		backend: backend,
		ctx:     ctx,
		log:     ctx.Logger().WithField("driver", game.Name),

		windows:  newRegistry[*window]("window"),
		meshData: newRegistry[*core.MeshData]("mesh data"),
		images:   newRegistry[*ImageData]("image data"),
		fonts:    newRegistry[*FontData]("font data"),
		groups:   newRegistry[*core.MeshGroup]("mesh group"),
		meshes:   newRegistry[*core.Mesh]("mesh instance"),
		cameras:  newRegistry[*core.Camera]("camera"),
	}, nil
}

// Context returns the engine context.
func (e *RenderEngine) Context() *core.Context { return e.ctx }

// Game returns the game the engine was initialized for.
func (e *RenderEngine) Game() Game { return e.game }

func (e *RenderEngine) trace(op string) {
	if l, ok := e.log.(logrus.Ext1FieldLogger); ok {
		l.Trace(op)
	}
}

func (e *RenderEngine) release() {
	for _, w := range e.windows.drain() {
		w.surface.Release()
	}
	for _, m := range e.meshes.drain() {
		m.Release()
	}
	for _, d := range e.meshData.drain() {
		d.Release()
	}
	e.groups.drain()
	e.cameras.drain()
	for _, f := range e.fonts.drain() {
		f.Close()
	}
	if dev, err := e.ctx.Device(); err == nil {
		dev.WaitIdle()
	}
	for _, img := range e.images.drain() {
		img.release()
	}
	e.ctx.Release()
	e.backend.Release()
	e.log.Info("driver shut down")
}
