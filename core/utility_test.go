// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/basalt3d/basalt/core"
	"github.com/gobuffalo/packr"
)

var (
	StaticResources packr.Box
	testImage       image.Image
)

func init() {
	StaticResources = packr.NewBox("../assets")
	img, err := png.Decode(bytes.NewReader(StaticResources.Bytes("default.png")))
	if err != nil {
		panic(err)
	}
	testImage = img
}

func TestGetPixelsTightPacking(t *testing.T) {
	pixels, err := core.GetPixels(testImage, 0)
	if err != nil {
		t.Fatal(err)
	}
	bounds := testImage.Bounds()
	if want := 4 * bounds.Dx() * bounds.Dy(); len(pixels) != want {
		t.Errorf("expected %d bytes, got %d", want, len(pixels))
	}
}

func TestGetPixelsRowPitch(t *testing.T) {
	const pitch = 1000
	pixels, err := core.GetPixels(testImage, pitch)
	if err != nil {
		t.Fatal(err)
	}
	if want := pitch * testImage.Bounds().Dy(); len(pixels) != want {
		t.Errorf("expected %d bytes, got %d", want, len(pixels))
	}
}

func BenchmarkGetPixelsNoRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(testImage, 0)
	}
}

func BenchmarkGetPixelsSmallRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(testImage, 4)
	}
}

func BenchmarkGetPixelsMediumRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(testImage, 200)
	}
}

func BenchmarkGetPixelsBigRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(testImage, 1000)
	}
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}
