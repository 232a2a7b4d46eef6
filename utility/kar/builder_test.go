// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestAddAndWrite(t *testing.T) {
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	if err := builder.Add("test", strings.NewReader("idunvovkjnreovmegihjbrqlkmfrjnb")); err != nil {
		t.Error(err)
	}
	if err := builder.Add("test2", strings.NewReader("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")); err != nil {
		t.Error(err)
	}
	if err := builder.Add("test", strings.NewReader("again")); err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	if len(builder.files) != 2 {
		t.Error("incorrect number of files present")
	}

	var buf bytes.Buffer
	num, err := builder.WriteTo(&buf)
	if err != nil {
		t.Error(err)
	}
	if num != int64(buf.Len()) {
		t.Errorf("reported %d bytes, wrote %d", num, buf.Len())
	}

	var expected int64
	for _, f := range builder.files {
		expected += f.Compressed
	}
	size, _ := binaryToint64(buf.Bytes()[MagicLength:])
	if int64(buf.Len()) != MagicLength+HeaderSizeNumberLength+size+expected {
		t.Error("archive size does not add up")
	}
}

func TestSizeNumber(t *testing.T) {
	bts := int64ToBinary(1234567)
	if len(bts) != HeaderSizeNumberLength {
		t.Errorf("size number takes %d bytes", len(bts))
	}
	if num, err := binaryToint64(bts); err != nil || num != 1234567 {
		t.Errorf("got %d, %v", num, err)
	}
}
