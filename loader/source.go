// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"github.com/basalt3d/basalt/bar"
)

// Source reads raw asset bytes by location. Implementations are read from
// multiple workers concurrently.
type Source interface {
	ReadAll(location string) ([]byte, error)
}

// DirSource reads assets from a directory root.
type DirSource struct {
	Root string
}

// ReadAll implements Source.
func (s DirSource) ReadAll(location string) ([]byte, error) {
	data, err := ioutil.ReadFile(filepath.Join(s.Root, location))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("no file or directory at: %s", location)
	}
	return data, err
}

// ArchiveSource reads assets out of a memory mapped bar archive.
type ArchiveSource struct {
	archive *bar.Archive
	closer  io.Closer
}

// OpenArchive memory maps the archive at path and wraps it as a Source.
func OpenArchive(path string) (*ArchiveSource, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	archive, err := bar.Open(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return &ArchiveSource{archive: archive, closer: r}, nil
}

// NewArchiveSource wraps an already opened archive.
func NewArchiveSource(archive *bar.Archive) *ArchiveSource {
	return &ArchiveSource{archive: archive}
}

// ReadAll implements Source.
func (s *ArchiveSource) ReadAll(location string) ([]byte, error) {
	data, err := s.archive.ReadAll(location)
	if err == bar.ErrNotFound {
		return nil, fmt.Errorf("no file or directory at: %s", location)
	}
	return data, err
}

// Close unmaps the archive if this source opened it.
func (s *ArchiveSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
