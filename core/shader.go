// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblok/nice/gfx"
)

const shaderSuffix = ".spv"

// ShaderSource provides compiled SPIR-V by shader file name,
// for example "geometry.vert".
type ShaderSource interface {
	Shader(name string) ([]byte, error)
}

// DirectoryShaders serves compiled shaders from a directory.
type DirectoryShaders string

// Shader implements ShaderSource.
func (d DirectoryShaders) Shader(name string) ([]byte, error) {
	return ioutil.ReadFile(filepath.Join(string(d), name+shaderSuffix))
}

// List returns every compiled shader in the directory.
func (d DirectoryShaders) List() ([]string, error) {
	names, _, err := loadShaderFilesFromDirectory(string(d))
	return names, err
}

// loadShaderFilesFromDirectory get the list of files that are compiled shaders
// it is important that the file name does not contain more than two dots,
// the first is always the name of the shader, second is type, and the third one
// ensured that the shader is compiled (only compiled shaders have an .spv extension).
func loadShaderFilesFromDirectory(dir string) ([]string, []gfx.ShaderStage, error) {
	var (
		shaders     []string
		shaderTypes []gfx.ShaderStage
	)
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if strings.HasSuffix(f.Name(), shaderSuffix) {
			shader := strings.TrimSuffix(f.Name(), shaderSuffix)
			if stage, ok := shaderStage(shader); ok {
				shaderTypes = append(shaderTypes, stage)
				shaders = append(shaders, shader)
			}
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return shaders, shaderTypes, nil
}

func shaderStage(name string) (gfx.ShaderStage, bool) {
	nodes := strings.Split(name, ".")
	if len(nodes) != 2 {
		return 0, false
	}
	switch nodes[1] {
	case "frag":
		return gfx.ShaderStageFragment, true
	case "vert":
		return gfx.ShaderStageVertex, true
	}
	return 0, false
}

// loadShaders creates shader modules for names, releasing the
// already created ones if any of them fails.
func loadShaders(dev gfx.Device, src ShaderSource, names ...string) ([]gfx.Shader, error) {
	var shaders []gfx.Shader
	for _, name := range names {
		stage, ok := shaderStage(name)
		if !ok {
			releaseShaders(shaders)
			return nil, fmt.Errorf("%s: unknown shader stage", name)
		}
		code, err := src.Shader(name)
		if err != nil {
			releaseShaders(shaders)
			return nil, fmt.Errorf("loading shader %s: %w", name, err)
		}
		shader, err := dev.NewShader(stage, name, code)
		if err != nil {
			releaseShaders(shaders)
			return nil, fmt.Errorf("compiling shader %s: %w", name, err)
		}
		shaders = append(shaders, shader)
	}
	return shaders, nil
}

func releaseShaders(shaders []gfx.Shader) {
	for _, s := range shaders {
		s.Release()
	}
}
