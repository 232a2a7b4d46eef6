// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shaders holds the GLSL sources of the engine and serves
// their compiled SPIR-V. Compiling needs glslangValidator on PATH.
package shaders

//go:generate glslangValidator -V geometry.vert -o geometry.vert.spv
//go:generate glslangValidator -V geometry.frag -o geometry.frag.spv
//go:generate glslangValidator -V light.vert -o light.vert.spv
//go:generate glslangValidator -V light.frag -o light.frag.spv
//go:generate glslangValidator -V composite.vert -o composite.vert.spv
//go:generate glslangValidator -V composite.frag -o composite.frag.spv
//go:generate glslangValidator -V forward_depth.vert -o forward_depth.vert.spv
//go:generate glslangValidator -V forward_depth.frag -o forward_depth.frag.spv
//go:generate glslangValidator -V forward.vert -o forward.vert.spv
//go:generate glslangValidator -V forward.frag -o forward.frag.spv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobuffalo/packr"
)

const spvSuffix = ".spv"

// Box serves shaders packed with packr.
type Box struct {
	box packr.Box
}

// Default returns the box holding the shaders of this package.
func Default() Box {
	return Box{box: packr.NewBox(".")}
}

// Shader returns the SPIR-V of the shader compiled from name,
// for example "geometry.vert".
func (b Box) Shader(name string) ([]byte, error) {
	code, err := b.box.Find(name + spvSuffix)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	return code, nil
}

// Source returns the GLSL text of name.
func (b Box) Source(name string) (string, error) {
	return b.box.FindString(name)
}

// List returns the names of all compiled shaders.
func (b Box) List() []string {
	var names []string
	for _, f := range b.box.List() {
		if strings.HasSuffix(f, spvSuffix) {
			names = append(names, strings.TrimSuffix(f, spvSuffix))
		}
	}
	sort.Strings(names)
	return names
}
