// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bar

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := ioutil.TempDir("", "barBuilder")
	if err != nil {
		return nil, err
	}
	header.Index = nil
	builder := &Builder{
		tempDir: temp,
		header:  header,
	}
	// Backstop for callers that never reach Close.
	runtime.SetFinalizer(builder, func(builder *Builder) {
		os.RemoveAll(builder.tempDir)
	})
	return builder, nil
}

type tempFile struct {

	// Name is the actual name of the file
	Name string

	// TempName is the temporary name given by the Builder
	TempName string

	// Size in uncompressed state
	Size int64

	Compressed int64
}

// Builder is the high level builder for the archive format.
// Archives are versioned and cannot be appended to, this Builder
// is the way to create one. Every Add compresses the file into a
// temporary directory, WriteTo bundles them together with the index
// into the final archive.
type Builder struct {
	io.WriterTo

	tempDir string
	header  Header

	mutex sync.Mutex
	files []tempFile
}

// Add compresses data from r into the builder under the given name.
// Blocks until lz4 finishes compression. Safe to use concurrently
// from different goroutines.
func (b *Builder) Add(name string, r io.Reader) error {
	tempName := strconv.Itoa(time.Now().Nanosecond())
	f, err := os.Create(filepath.Join(b.tempDir, tempName))
	if err != nil {
		return err
	}
	defer f.Close()

	writer := lz4.NewWriter(f)
	written, err := io.Copy(writer, r)
	if err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, tempFile{
		Name:       name,
		TempName:   tempName,
		Size:       written,
		Compressed: info.Size(),
	})
	return nil
}

// WriteTo bundles and writes all of the files added to the Builder
// into a bar archive that is ready to use.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	for _, v := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           v.Name,
			Size:           v.Size,
			CompressedSize: v.Compressed,
		})
	}

	// Offsets are assigned against the reserved header space, so the
	// header can be encoded after them without moving the files.
	reserved := header.MaxExpectedSize()
	base := int64(MagicLength+HeaderSizeNumberLength) + reserved
	offset := base
	for i := range header.Index {
		header.Index[i].Offset = offset
		offset += header.Index[i].CompressedSize
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}
	if int64(len(rawHeader)) > reserved {
		return 0, ErrHeaderSpace
	}

	var written int64
	for _, chunk := range [][]byte{
		barMagic[:],
		int64ToBinary(int64(len(rawHeader))),
		rawHeader,
		make([]byte, reserved-int64(len(rawHeader))),
	} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	for _, v := range b.files {
		f, err := os.Open(filepath.Join(b.tempDir, v.TempName))
		if err != nil {
			return written, err
		}
		n, err := io.Copy(w, f)
		f.Close()
		written += n
		if err != nil {
			return written, err
		}
	}

	b.files = b.files[:0]
	return written, nil
}

// Close removes the builder's temporary directory. The builder is not
// usable afterwards.
func (b *Builder) Close() error {
	runtime.SetFinalizer(b, nil)
	return os.RemoveAll(b.tempDir)
}
