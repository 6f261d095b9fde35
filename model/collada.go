// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/basalt3d/basalt/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

// ImportCollada parses a Collada (.dae) document into an indexed mesh.
// Only the first geometry is read. Corners that share a position index
// share a vertex, so the index buffer stays meaningful.
func ImportCollada(fileContents []byte) (*Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return nil, err
	}

	if len(doc.Geometries) == 0 {
		return nil, errors.New("collada document has no geometries")
	}
	mesh := doc.Geometries[0].Mesh

	positions, err := findSource(mesh.Source, "positions")
	if err != nil {
		return nil, err
	}

	// Triangle corners come as tuples, one index per input. The vertex
	// position index sits at the VERTEX input's offset.
	stride := len(mesh.Triangles.Inputs)
	if stride == 0 {
		stride = 1
	}
	vertexOffset := 0
	for _, input := range mesh.Triangles.Inputs {
		if input.Semantic == "VERTEX" {
			vertexOffset = int(input.Offset)
			break
		}
	}

	var (
		out   Mesh
		remap = make(map[int]uint32)
	)
	for corner := 0; corner+stride <= len(mesh.Triangles.Index); corner += stride {
		positionIndex := mesh.Triangles.Index[corner+vertexOffset]
		if 3*positionIndex+2 >= len(positions.Floats.Data) {
			return nil, fmt.Errorf("position index %d outside of source %s", positionIndex, positions.ID)
		}

		index, ok := remap[positionIndex]
		if !ok {
			index = uint32(len(out.Vertices))
			remap[positionIndex] = index
			out.Vertices = append(out.Vertices, Vertex{
				Pos: glm.Vec3{
					positions.Floats.Data[3*positionIndex],
					positions.Floats.Data[3*positionIndex+1],
					positions.Floats.Data[3*positionIndex+2],
				},
				Color: glm.Vec4{1, 1, 1, 1},
			})
		}
		out.Indices = append(out.Indices, index)
	}

	if len(out.Indices) == 0 {
		return nil, errors.New("collada document has no triangles")
	}
	return &out, nil
}

func findSource(sources []collada.Source, dataType string) (collada.Source, error) {
	for _, s := range sources {
		if strings.HasSuffix(s.ID, fmt.Sprintf("-%s", dataType)) {
			return s, nil
		}
	}
	return collada.Source{}, errors.New("source type not found")
}
