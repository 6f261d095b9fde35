// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package bar implements an lz4 backed archive format for resource
// streaming. Unlike tar, the archive carries a full file index up front, so
// it can be memory mapped and every file located before any of them is
// read. The archive itself is never compressed as a whole, each file is
// compressed individually and decompressed on the fly from its own place
// in the file. That trades away some space efficiency, which is not the
// point of this format. Getting resources from disk into a usable state
// quickly is. Archives can be read from concurrently.
package bar

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
)

// package errors
var (
	ErrFileFormat  = errors.New("corrupted or not a bar archive")
	ErrNotFound    = errors.New("file not present in archive index")
	ErrHeaderSpace = errors.New("encoded header exceeds reserved space")
)

// Sizes relevant to the header of file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 16
)

var barMagic = [MagicLength]byte{'B', 'A', 'R', '\x00'}

// IndexEntry is info for one file in the file index.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header for bar files.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

// MaxExpectedSize calculates the amount of space a Header could take.
// File offsets are assigned against this number before the header is
// encoded, so it only needs to be an upper bound, not exact.
func (h *Header) MaxExpectedSize() int64 {
	var size int64
	size += int64(len(h.Author))
	size += 16 // DateCreated + Version
	size += 60 // gob type description
	for _, e := range h.Index {
		size += int64(len(e.Name))
		size += 24 // numbers
		size += 60
	}
	return size
}

func int64ToBinary(num int64) []byte {
	buf := make([]byte, HeaderSizeNumberLength)
	binary.PutVarint(buf, num)
	return buf
}

func binaryToint64(bts []byte) (int64, error) {
	num, err := binary.ReadVarint(bytes.NewReader(bts))
	if err != nil {
		return 0, err
	}
	return num, nil
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(bts))
	if err := dec.Decode(obj); err != nil {
		return err
	}
	return nil
}
