// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"io"
	"sync"
)

// Buffer is a host supplied data buffer. Read blocks while the buffer is
// closed, Write and Resize block until the buffer is in write mode.
// Status with a command other than BufferNop requests a state change
// and returns the state before it.
type Buffer interface {
	Size() uint64
	Read(offset, n uint64) ([]byte, error)
	Write(offset uint64, p []byte) error
	Resize(n uint64) error
	Status(cmd BufferStatus) BufferStatus
}

// ReadAll returns the whole content of b. A nil buffer is empty.
func ReadAll(b Buffer) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	size := b.Size()
	if size == 0 {
		return nil, nil
	}
	return b.Read(0, size)
}

// WriteAll replaces the content of b with p and hands it back for reading.
func WriteAll(b Buffer, p []byte) error {
	b.Status(BufferWrite)
	if err := b.Resize(uint64(len(p))); err != nil {
		return err
	}
	if err := b.Write(0, p); err != nil {
		return err
	}
	b.Status(BufferRead)
	return nil
}

// BytesBuffer is a Buffer backed by a byte slice, for Go hosts.
type BytesBuffer struct {
	mutex  sync.Mutex
	cond   *sync.Cond
	status BufferStatus
	data   []byte
}

// NewBytesBuffer creates a readable buffer holding data.
func NewBytesBuffer(data []byte) *BytesBuffer {
	b := &BytesBuffer{status: BufferRead, data: data}
	b.cond = sync.NewCond(&b.mutex)
	return b
}

// Bytes returns the current content.
func (b *BytesBuffer) Bytes() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.data
}

// Size implements Buffer.
func (b *BytesBuffer) Size() uint64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return uint64(len(b.data))
}

// Read implements Buffer.
func (b *BytesBuffer) Read(offset, n uint64) ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for b.status == BufferClosed {
		b.cond.Wait()
	}
	if offset+n > uint64(len(b.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	return append([]byte(nil), b.data[offset:offset+n]...), nil
}

// Write implements Buffer.
func (b *BytesBuffer) Write(offset uint64, p []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for b.status != BufferWrite {
		b.cond.Wait()
	}
	if offset+uint64(len(p)) > uint64(len(b.data)) {
		return io.ErrShortWrite
	}
	copy(b.data[offset:], p)
	return nil
}

// Resize implements Buffer.
func (b *BytesBuffer) Resize(n uint64) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for b.status != BufferWrite {
		b.cond.Wait()
	}
	if n <= uint64(cap(b.data)) {
		b.data = b.data[:n]
		return nil
	}
	data := make([]byte, n)
	copy(data, b.data)
	b.data = data
	return nil
}

// Status implements Buffer.
func (b *BytesBuffer) Status(cmd BufferStatus) BufferStatus {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	prev := b.status
	if cmd != BufferNop && cmd != prev {
		b.status = cmd
		b.cond.Broadcast()
	}
	return prev
}
