// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bar_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/basalt3d/basalt/bar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildTestArchive(t *testing.T) []byte {
	t.Helper()
	builder, err := bar.NewBuilder(bar.Header{
		Author:      "basalt3d",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	if err := builder.Add("test", bytes.NewReader([]byte(testString1))); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("test2", bytes.NewReader([]byte(testString2))); err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer([]byte{})
	if _, err := builder.WriteTo(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	ar, err := bar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("test")
	if err != nil {
		t.Error(err)
	}
	if f.Size() != int64(len(testString1)) {
		t.Errorf("size %d, want %d", f.Size(), len(testString1))
	}

	result := make([]byte, len(testString1))
	if _, err := f.Read(result); err != nil {
		t.Error(err)
	}
	if strings.Compare(string(result), testString1) != 0 {
		t.Error("test string does not match up")
	}
}

func TestCreateAndReadAll(t *testing.T) {
	ar, err := bar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.ReadAll("test2")
	if err != nil {
		t.Error(err)
	}
	if strings.Compare(string(f), testString2) != 0 {
		t.Error("test string does not match up")
	}
}

func TestReadAllUnknownName(t *testing.T) {
	ar, err := bar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ar.ReadAll("missing"); err != bar.ErrNotFound {
		t.Errorf("error %v, want ErrNotFound", err)
	}
	if _, err := ar.Open("missing"); err != bar.ErrNotFound {
		t.Errorf("error %v, want ErrNotFound", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	garbage := []byte("this is not an archive of any kind whatsoever")
	if _, err := bar.Open(bytes.NewReader(garbage)); err != bar.ErrFileFormat {
		t.Errorf("error %v, want ErrFileFormat", err)
	}
}

func TestOpenmmap(t *testing.T) {
	f, err := ioutil.TempFile("", "bartest")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(buildTestArchive(t)); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := mmap.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ar, err := bar.Open(r)
	if err != nil {
		t.Fatal(err)
	}

	contents, err := ar.ReadAll("test")
	if err != nil {
		t.Error(err)
	}
	if strings.Compare(string(contents), testString1) != 0 {
		t.Error("test string does not match up")
	}
}
