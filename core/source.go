// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/devblok/nice/utility/kar"
)

// Source serves asset files by slash separated name.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// DirSource serves assets from a directory.
type DirSource string

// Open implements Source.
func (d DirSource) Open(name string) (io.ReadCloser, error) {
	return os.Open(d.Path(name))
}

// Path returns the file system path of name.
func (d DirSource) Path(name string) string {
	return filepath.Join(string(d), filepath.FromSlash(name))
}

// ArchiveSource serves assets from a kar archive.
type ArchiveSource struct {
	*kar.Archive
}

// Open implements Source.
func (a ArchiveSource) Open(name string) (io.ReadCloser, error) {
	r, err := a.Archive.Open(name)
	if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(r), nil
}

// mappedSource is an ArchiveSource that unmaps its file on Close.
type mappedSource struct {
	ArchiveSource
	file *kar.File
}

func (m mappedSource) Close() error {
	return m.file.Close()
}

func openSource(cfg ResourcesConfiguration) (Source, error) {
	if cfg.Archive != "" {
		f, err := kar.OpenFile(cfg.Archive)
		if err != nil {
			return nil, err
		}
		return mappedSource{ArchiveSource: ArchiveSource{f.Archive}, file: f}, nil
	}
	return DirSource(cfg.Directory), nil
}

func readSource(src Source, name string) ([]byte, error) {
	r, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}
