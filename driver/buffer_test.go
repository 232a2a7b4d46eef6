// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver_test

import (
	"io"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/nice/driver"
)

func TestBytesBufferRead(t *testing.T) {
	c := qt.New(t)
	b := driver.NewBytesBuffer([]byte("hello"))
	c.Assert(b.Size(), qt.Equals, uint64(5))
	c.Assert(b.Status(driver.BufferNop), qt.Equals, driver.BufferRead)

	got, err := b.Read(1, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "ell")
	_, err = b.Read(4, 2)
	c.Assert(err, qt.Equals, io.ErrUnexpectedEOF)

	all, err := driver.ReadAll(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(all), qt.Equals, "hello")

	all, err = driver.ReadAll(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 0)
}

func TestBytesBufferWriteBlocksUntilWritable(t *testing.T) {
	c := qt.New(t)
	b := driver.NewBytesBuffer(make([]byte, 4))

	done := make(chan error)
	go func() {
		done <- b.Write(0, []byte{1, 2})
	}()

	select {
	case <-done:
		t.Fatal("write did not block on a readable buffer")
	case <-time.After(20 * time.Millisecond):
	}

	c.Assert(b.Status(driver.BufferWrite), qt.Equals, driver.BufferRead)
	select {
	case err := <-done:
		c.Assert(err, qt.IsNil)
	case <-time.After(time.Second):
		t.Fatal("write did not resume")
	}
	c.Assert(b.Bytes(), qt.DeepEquals, []byte{1, 2, 0, 0})
	c.Assert(b.Write(3, []byte{1, 2}), qt.Equals, io.ErrShortWrite)
}

func TestBytesBufferReadBlocksWhileClosed(t *testing.T) {
	c := qt.New(t)
	b := driver.NewBytesBuffer([]byte{7})
	b.Status(driver.BufferClosed)

	done := make(chan []byte)
	go func() {
		p, _ := b.Read(0, 1)
		done <- p
	}()
	select {
	case <-done:
		t.Fatal("read did not block on a closed buffer")
	case <-time.After(20 * time.Millisecond):
	}
	b.Status(driver.BufferRead)
	select {
	case p := <-done:
		c.Assert(p, qt.DeepEquals, []byte{7})
	case <-time.After(time.Second):
		t.Fatal("read did not resume")
	}
}

func TestWriteAll(t *testing.T) {
	c := qt.New(t)
	b := driver.NewBytesBuffer([]byte{1})
	c.Assert(driver.WriteAll(b, []byte{4, 5, 6}), qt.IsNil)
	c.Assert(b.Bytes(), qt.DeepEquals, []byte{4, 5, 6})
	c.Assert(b.Status(driver.BufferNop), qt.Equals, driver.BufferRead)

	c.Assert(driver.WriteAll(b, []byte{9}), qt.IsNil)
	c.Assert(b.Bytes(), qt.DeepEquals, []byte{9})
}
