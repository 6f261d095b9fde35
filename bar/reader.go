// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bar

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4"
)

// Open opens the bar archive from r. It will also check
// if the file is actually a bar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	magic := make([]byte, MagicLength)
	if num, err := r.ReadAt(magic, 0); err != nil {
		return nil, err
	} else if num < MagicLength || !bytes.Equal(magic, barMagic[:]) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); err != nil {
		return nil, err
	} else if num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	} else if int64(num) < headerSize {
		return nil, ErrFileFormat
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	index := make(map[string]IndexEntry, len(header.Index))
	for _, entry := range header.Index {
		index[entry.Name] = entry
	}

	return &Archive{
		reader: r,
		header: header,
		index:  index,
	}, nil
}

// Archive provides concurrent io for a bar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader io.ReaderAt
	header Header
	index  map[string]IndexEntry
}

// Header returns the decoded archive header.
func (a *Archive) Header() Header {
	return a.header
}

// Index returns the file index in archive order.
func (a *Archive) Index() []IndexEntry {
	return a.header.Index
}

// Contains reports whether a file with the given name is in the index.
func (a *Archive) Contains(name string) bool {
	_, ok := a.index[name]
	return ok
}

// ReadAll returns the entire decompressed contents of a file with a
// given name.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, entry.Size)
	section := io.NewSectionReader(a.reader, entry.Offset, entry.CompressedSize)
	if _, err := io.ReadFull(lz4.NewReader(section), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Open returns a Reader for a file in the Archive.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, ErrNotFound
	}
	section := io.NewSectionReader(a.reader, entry.Offset, entry.CompressedSize)
	return &Reader{
		entry: entry,
		lz:    lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry IndexEntry
	lz    *lz4.Reader
}

// Read reads already decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.lz.Read(p)
}

// Size returns the uncompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}
