// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"io"
	"io/ioutil"
	"sort"

	"github.com/pierrec/lz4"
)

// Open opens the kar archived from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	magic := make([]byte, MagicLength)
	if num, err := r.ReadAt(magic, 0); num < MagicLength || string(magic) != Magic {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, _ := r.ReadAt(headerSizeBytes, MagicLength); num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, _ := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); int64(num) < headerSize {
		return nil, ErrFileFormat
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	index := make(map[string]IndexEntry, len(header.Index))
	for _, e := range header.Index {
		index[e.Name] = e
	}

	return &Archive{
		reader:    r,
		header:    header,
		index:     index,
		dataStart: MagicLength + HeaderSizeNumberLength + headerSize,
	}, nil
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader    io.ReaderAt
	header    Header
	index     map[string]IndexEntry
	dataStart int64
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return a.header
}

// List returns sorted names of all files in the archive.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.index))
	for name := range a.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a file is present.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != r.Size() {
		return nil, ErrFileFormat
	}
	return data, nil
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, ErrNotFound
	}
	section := io.NewSectionReader(a.reader, a.dataStart+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry:        entry,
		decompressor: lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry        IndexEntry
	decompressor io.Reader
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.decompressor.Read(p)
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}

// Name returns the file name within the archive.
func (r *Reader) Name() string {
	return r.entry.Name
}
