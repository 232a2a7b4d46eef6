// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway. Close the builder
// to remove its temporary files.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := os.MkdirTemp("", "karBuilder")
	if err != nil {
		return nil, ErrTempFail
	}
	return &Builder{
		tempDir: temp,
		header:  header,
		names:   make(map[string]struct{}),
	}, nil
}

type tempFile struct {

	// Name is the actual name of the file
	Name string

	// TempName is the temporary name given by the Builder
	TempName string

	// Size in uncompressed state
	Size int64

	Compressed int64
}

// Builder is the high level builder for the archive format.
// Arhives are versioned and cannot be appended to, This Builder
// is the way to create an archive. Whenever Add is called, the Builder
// will store the compressed file in a temporary dir,
// then finally bundle them togeter and write them out with WriteTo.
type Builder struct {
	tempDir string
	header  Header

	mutex sync.Mutex
	names map[string]struct{}
	files []tempFile
}

// Add compresses everything from r into the builder under name.
// Will block until lz4 finishes compression. Is safe
// to use concurrently in different goroutines.
func (b *Builder) Add(name string, r io.Reader) error {
	b.mutex.Lock()
	if _, ok := b.names[name]; ok {
		b.mutex.Unlock()
		return ErrDuplicate
	}
	b.names[name] = struct{}{}
	b.mutex.Unlock()

	file, err := b.compress(r)
	if err != nil {
		b.mutex.Lock()
		delete(b.names, name)
		b.mutex.Unlock()
		return err
	}
	file.Name = name

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, file)
	return nil
}

func (b *Builder) compress(r io.Reader) (tempFile, error) {
	f, err := os.CreateTemp(b.tempDir, "entry")
	if err != nil {
		return tempFile{}, ErrTempFail
	}
	defer f.Close()

	writer := lz4.NewWriter(f)
	written, err := io.Copy(writer, r)
	if err != nil {
		return tempFile{}, err
	}
	if err := writer.Close(); err != nil {
		return tempFile{}, err
	}
	info, err := f.Stat()
	if err != nil {
		return tempFile{}, err
	}
	return tempFile{
		TempName:   filepath.Base(f.Name()),
		Size:       written,
		Compressed: info.Size(),
	}, nil
}

// Len returns the number of files added so far.
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.files)
}

// WriteTo bundles and writes all of the files added to the Builder
// into a kar archive that is ready to use.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	var offset int64
	for _, v := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           v.Name,
			Offset:         offset,
			Size:           v.Size,
			CompressedSize: v.Compressed,
		})
		offset += v.Compressed
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, chunk := range [][]byte{[]byte(Magic), int64ToBinary(int64(len(rawHeader))), rawHeader} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	for _, v := range b.files {
		n, err := b.copyTemp(w, v.TempName)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (b *Builder) copyTemp(w io.Writer, tempName string) (int64, error) {
	f, err := os.Open(filepath.Join(b.tempDir, tempName))
	if err != nil {
		return 0, ErrTempFail
	}
	defer f.Close()
	return io.Copy(w, f)
}

// Close removes the temporary files of the builder.
func (b *Builder) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = nil
	return os.RemoveAll(b.tempDir)
}
