// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"path/filepath"
	"strings"

	"github.com/basalt3d/basalt/model"
)

// Kind tags the variant a payload carries.
type Kind int

// Payload kinds.
const (
	KindTexture Kind = iota
	KindFont
	KindModel
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindFont:
		return "font"
	case KindModel:
		return "model"
	case KindShape:
		return "shape"
	}
	return "unknown"
}

// KindFromLocation infers the payload kind from an asset location. The
// shape: prefix names built-in geometry, everything else goes by file
// extension, with unknown extensions treated as textures so the image
// decoder produces the error that names the file.
func KindFromLocation(location string) Kind {
	if strings.HasPrefix(location, "shape:") {
		return KindShape
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".ttf", ".otf":
		return KindFont
	case ".dae":
		return KindModel
	default:
		return KindTexture
	}
}

// DecodedImage is a decoded, not yet device-resident image. Pix holds
// tightly packed row-major RGBA8 pixels.
type DecodedImage struct {
	Width  int
	Height int
	Pix    []byte
}

// Payload is the tagged union a decode produces. Only the fields of the
// tagged kind are set. A payload is immutable once produced; workers hand
// it over and never touch it again.
type Payload struct {
	Kind Kind

	// Image is set for KindTexture and KindFont. For fonts it is the
	// rasterized glyph atlas.
	Image *DecodedImage

	// Metrics is set for KindFont, an opaque glyph metrics blob the
	// renderer passes back to the font source for lookups.
	Metrics []byte

	// Mesh is set for KindModel and KindShape.
	Mesh *model.Mesh
}

// Resident is the device form of a promoted payload. Release destroys the
// underlying device objects and must only happen once the device no longer
// references them.
type Resident interface {
	Release()
}

// Promoter turns decoded payloads into device-resident objects. Called
// only from the goroutine that owns the Loader, never from workers.
type Promoter interface {
	Promote(p Payload) (Resident, error)
}

// FontSource rasterizes a font file into a glyph atlas and an opaque
// metrics blob for later codepoint lookups.
type FontSource interface {
	Rasterize(data []byte) (*DecodedImage, []byte, error)
}

// MeshSource parses a model file into a flat vertex and index sequence.
type MeshSource interface {
	Parse(data []byte) (*model.Mesh, error)
}
