// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command nicedriver builds the engine as a Game Graph Driver:
//
//	go build -buildmode=c-shared -o libnice.so ./cmd/nicedriver
//
// Hosts load the library, call GGD_DriverMain and drive the engine
// through the registered function table. NICE_CONFIG names a YAML
// configuration file, NICE_LOG_LEVEL the logrus level.
package main

/*
#include "ggd.h"
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/driver"
)

func main() {}

var tableOnce sync.Once

// renderEngine returns the function table handed to hosts.
func renderEngine() *C.GGD_RenderEngine {
	re := C.nice_render_engine()
	tableOnce.Do(func() {
		re.Name = C.CString(driver.EngineName)
		re.Priority = C.uint64_t(driver.EnginePriority)
		re.GraphicsAPI = C.uint64_t(driver.EngineGraphicsAPI)
	})
	return re
}

func configuration() (core.Configuration, error) {
	if lvl := envy.Get("NICE_LOG_LEVEL", ""); lvl != "" {
		level, err := log.ParseLevel(lvl)
		if err != nil {
			return core.Configuration{}, err
		}
		log.SetLevel(level)
	}
	cfg, err := core.LoadConfiguration(envy.Get("NICE_CONFIG", ""))
	if err != nil {
		return cfg, err
	}
	cfg.Logger = log.StandardLogger()
	return cfg, nil
}

//export GGD_DriverMain
func GGD_DriverMain(dc *C.GGD_DriverContext) C.GGD_DriverStatus {
	if dc == nil {
		return C.GGD_DriverStatus(driver.StatusDriverInvalid)
	}
	if uint64(dc.APIVersion) != driver.APIVersion {
		log.WithField("version", uint64(dc.APIVersion)).Error("driver api version is not supported")
		return C.GGD_DriverStatus(driver.StatusVersionInvalid)
	}

	cfg, err := configuration()
	if err != nil {
		log.WithError(err).Error("loading configuration")
		return C.GGD_DriverStatus(driver.StatusDriverError)
	}

	var name string
	if dc.GameName != nil {
		name = C.GoString(dc.GameName)
	}
	register := uintptr(unsafe.Pointer(dc.RegisterRenderEngine))
	status := driver.DriverMain(driver.DriverContext{
		APIVersion:  uint64(dc.APIVersion),
		GameVersion: uint64(dc.GameVersion),
		GameName:    name,
		RegisterRenderEngine: func(*driver.RenderEngine) {
			if register != 0 {
				purego.SyscallN(register, uintptr(unsafe.Pointer(renderEngine())))
			}
		},
	}, openVulkan(cfg.Renderer.Validation), cfg)
	return C.GGD_DriverStatus(status)
}

//export niceShutdown
func niceShutdown(*C.GGD_RenderEngine) C.int32_t {
	driver.Shutdown()
	return 0
}

// engine returns the running engine. Hosts calling into the table
// before GGD_DriverMain succeeded are broken, the call panics.
func engine() *driver.RenderEngine {
	e, err := driver.Engine()
	if err != nil {
		panic(err)
	}
	return e
}

// failed logs err and reports whether the call failed. Writing pixels
// into an initialized image is a host bug and panics.
func failed(op string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, driver.ErrImageInitialized), errors.Is(err, core.ErrNotInitialized):
		panic(err)
	default:
		log.WithError(err).WithField("op", op).Error("driver call failed")
		return true
	}
}
