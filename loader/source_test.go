// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/basalt3d/basalt/bar"
	"github.com/basalt3d/basalt/loader"
)

func TestDirSource(t *testing.T) {
	dir, cleanup := testAssetDir(t)
	defer cleanup()
	if err := ioutil.WriteFile(filepath.Join(dir, "a.txt"), []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	src := loader.DirSource{Root: dir}
	data, err := src.ReadAll("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("read %q", data)
	}

	_, err = src.ReadAll("b.txt")
	if err == nil || !strings.Contains(err.Error(), "b.txt") {
		t.Fatalf("missing file error does not name the path: %v", err)
	}
}

func TestArchiveSource(t *testing.T) {
	builder, err := bar.NewBuilder(bar.Header{Author: "basalt3d", DateCreated: time.Now().Unix(), Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()
	if err := builder.Add("textures/brick.png", bytes.NewReader([]byte("pixels"))); err != nil {
		t.Fatal(err)
	}

	f, err := ioutil.TempFile("", "sourceTest")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := builder.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	src, err := loader.OpenArchive(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	data, err := src.ReadAll("textures/brick.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pixels" {
		t.Fatalf("read %q", data)
	}

	_, err = src.ReadAll("textures/stone.png")
	if err == nil || !strings.Contains(err.Error(), "textures/stone.png") {
		t.Fatalf("missing file error does not name the path: %v", err)
	}
}
