// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model_test

import (
	"testing"
	"unsafe"

	"github.com/basalt3d/basalt/model"
)

func TestVertexDescriptionsCoverBothBindings(t *testing.T) {
	bindings := model.VertexBindingDescriptions()
	if len(bindings) != 2 {
		t.Fatalf("%d bindings, want vertex and instance", len(bindings))
	}
	if bindings[0].Stride != uint32(unsafe.Sizeof(model.Vertex{})) {
		t.Fatalf("vertex stride %d", bindings[0].Stride)
	}
	if bindings[1].Stride != uint32(unsafe.Sizeof(model.Instance{})) {
		t.Fatalf("instance stride %d", bindings[1].Stride)
	}

	attrs := model.VertexAttributeDescriptions()
	if len(attrs) != 7 {
		t.Fatalf("%d attributes, want 3 vertex + 4 transform rows", len(attrs))
	}

	seen := map[uint32]bool{}
	for _, a := range attrs {
		if seen[a.Location] {
			t.Fatalf("location %d described twice", a.Location)
		}
		seen[a.Location] = true
	}
	for row := 0; row < 4; row++ {
		a := attrs[3+row]
		if a.Binding != 1 {
			t.Fatalf("transform row %d on binding %d", row, a.Binding)
		}
		if a.Offset != uint32(row*16) {
			t.Fatalf("transform row %d at offset %d", row, a.Offset)
		}
	}
}

func TestQuadWindsTwoTriangles(t *testing.T) {
	quad := model.Quad()
	if len(quad.Vertices) != 4 {
		t.Fatalf("%d vertices", len(quad.Vertices))
	}
	if quad.IndexCount() != 6 {
		t.Fatalf("%d indices", quad.IndexCount())
	}
	for _, idx := range quad.Indices {
		if int(idx) >= len(quad.Vertices) {
			t.Fatalf("index %d out of range", idx)
		}
	}
}
