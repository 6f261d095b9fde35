// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader_test

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/basalt3d/basalt/loader"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(255 - i)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	c := qt.New(t)

	decoded, err := loader.DecodeImage(encodePNG(t, 7, 5))
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.Width, qt.Equals, 7)
	c.Assert(decoded.Height, qt.Equals, 5)
	c.Assert(decoded.Pix, qt.HasLen, 7*5*4)
}

func TestDecodeImageDeterministic(t *testing.T) {
	c := qt.New(t)
	data := encodePNG(t, 3, 3)

	first, err := loader.DecodeImage(data)
	c.Assert(err, qt.IsNil)
	second, err := loader.DecodeImage(data)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Pix, qt.DeepEquals, second.Pix)
}

func TestDecodeImageGarbage(t *testing.T) {
	c := qt.New(t)

	_, err := loader.DecodeImage([]byte("certainly not pixels"))
	c.Assert(err, qt.ErrorMatches, "image decode failed: .*")
}

func TestBuiltinShape(t *testing.T) {
	c := qt.New(t)

	quad, err := loader.BuiltinShape("quad")
	c.Assert(err, qt.IsNil)
	c.Assert(quad.Vertices, qt.HasLen, 4)
	c.Assert(quad.IndexCount(), qt.Equals, uint32(6))

	tri, err := loader.BuiltinShape("triangle")
	c.Assert(err, qt.IsNil)
	c.Assert(tri.Vertices, qt.HasLen, 3)

	_, err = loader.BuiltinShape("dodecahedron")
	c.Assert(err, qt.ErrorMatches, "unknown builtin shape: dodecahedron")
}
