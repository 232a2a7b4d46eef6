// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

/*
#include "ggd.h"
*/
import "C"

import (
	"errors"
	"io"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/devblok/nice/driver"
)

var errReadOnly = errors.New("buffer has no write callbacks")

// hostBuffer is a GGD_BufferInfo owned by the host. Its callbacks are
// plain C function pointers.
type hostBuffer struct {
	info *C.GGD_BufferInfo
}

func hostBufferOf(info *C.GGD_BufferInfo) driver.Buffer {
	if info == nil {
		return nil
	}
	return hostBuffer{info: info}
}

func fn(p *[0]byte) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func (b hostBuffer) self() uintptr {
	return uintptr(unsafe.Pointer(b.info))
}

func (b hostBuffer) Size() uint64 {
	return uint64(b.info.size)
}

func (b hostBuffer) Read(offset, n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if b.info.read == nil {
		return nil, io.ErrUnexpectedEOF
	}
	p, _, _ := purego.SyscallN(fn(b.info.read), b.self(), uintptr(offset), uintptr(n))
	if p == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
	return out, nil
}

func (b hostBuffer) Write(offset uint64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if b.info.write == nil {
		return errReadOnly
	}
	dst, _, _ := purego.SyscallN(fn(b.info.write), b.self(), uintptr(offset), uintptr(len(p)))
	if dst == 0 {
		return io.ErrShortWrite
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(p)), p)
	return nil
}

func (b hostBuffer) Resize(n uint64) error {
	if b.info.resize == nil {
		return errReadOnly
	}
	purego.SyscallN(fn(b.info.resize), b.self(), uintptr(n))
	return nil
}

// Status of a buffer without a status callback is always READ.
func (b hostBuffer) Status(cmd driver.BufferStatus) driver.BufferStatus {
	if b.info.status == nil {
		return driver.BufferRead
	}
	s, _, _ := purego.SyscallN(fn(b.info.status), b.self(), uintptr(cmd))
	return driver.BufferStatus(int32(s))
}
