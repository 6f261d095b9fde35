// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
	Tex   glm.Vec2
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// Instance carries the per-instance attributes of one drawn copy of a
// mesh. The transform occupies four consecutive vec4 attribute locations.
type Instance struct {
	Transform glm.Mat4
}

// Mesh is a flat vertex and index sequence ready for device upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// IndexCount returns the number of indices to draw.
func (m Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// VertexBindingDescriptions return Vulkan Vertex descriptors. Binding 0
// advances per vertex, binding 1 per instance.
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}, {
		Binding:   1,
		Stride:    uint32(unsafe.Sizeof(Instance{})),
		InputRate: vk.VertexInputRateInstance,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors. The
// instance transform matrix takes locations 3 through 6, one vec4 row each.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	attrs := []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Tex)),
		},
	}

	base := uint32(unsafe.Offsetof(Instance{}.Transform))
	for row := uint32(0); row < 4; row++ {
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Binding:  1,
			Location: 3 + row,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   base + row*16,
		})
	}
	return attrs
}

// Quad returns a unit quad on the XY plane, centered on the origin, with
// full texture coverage.
func Quad() Mesh {
	return Mesh{
		Vertices: []Vertex{
			{Pos: glm.Vec3{-0.5, -0.5, 0}, Color: glm.Vec4{1, 1, 1, 1}, Tex: glm.Vec2{0, 0}},
			{Pos: glm.Vec3{0.5, -0.5, 0}, Color: glm.Vec4{1, 1, 1, 1}, Tex: glm.Vec2{1, 0}},
			{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{1, 1, 1, 1}, Tex: glm.Vec2{1, 1}},
			{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{1, 1, 1, 1}, Tex: glm.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// Triangle returns a single triangle with distinct corner colors.
func Triangle() Mesh {
	return Mesh{
		Vertices: []Vertex{
			{Pos: glm.Vec3{0, -0.5, 0}, Color: glm.Vec4{1, 0, 0, 1}, Tex: glm.Vec2{0.5, 0}},
			{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{0, 1, 0, 1}, Tex: glm.Vec2{1, 1}},
			{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{0, 0, 1, 1}, Tex: glm.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
}
