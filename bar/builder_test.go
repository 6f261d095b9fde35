// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bar

import (
	"bytes"
	"testing"
	"time"
)

func TestAddAndWrite(t *testing.T) {
	builder, err := NewBuilder(Header{
		Author:      "basalt3d",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Error(err)
	}
	defer builder.Close()

	builder.Add("test", bytes.NewReader([]byte("idunvovkjnreovmegihjbrqlkmfrjnb")))
	builder.Add("test2", bytes.NewReader([]byte("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")))

	if len(builder.files) != 2 {
		t.Error("incorrect number of files present")
	}

	buf := bytes.NewBuffer([]byte{})
	num, err := builder.WriteTo(buf)
	if err != nil {
		t.Error(err)
	}
	if num != int64(buf.Len()) {
		t.Errorf("reported %d written, buffer holds %d", num, buf.Len())
	}
	if len(builder.files) != 0 {
		t.Error("files not flushed after write")
	}
}

func TestWriteAssignsDistinctOffsets(t *testing.T) {
	builder, err := NewBuilder(Header{Author: "basalt3d", Version: 1})
	if err != nil {
		t.Error(err)
	}
	defer builder.Close()

	builder.Add("a", bytes.NewReader(make([]byte, 512)))
	builder.Add("b", bytes.NewReader(make([]byte, 1024)))

	buf := bytes.NewBuffer([]byte{})
	if _, err := builder.WriteTo(buf); err != nil {
		t.Error(err)
	}

	ar, err := Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	index := ar.Index()
	if len(index) != 2 {
		t.Fatalf("index holds %d entries", len(index))
	}
	if index[0].Offset == index[1].Offset {
		t.Error("entries share an offset")
	}
	if index[1].Offset != index[0].Offset+index[0].CompressedSize {
		t.Error("entries are not laid out back to back")
	}
}
