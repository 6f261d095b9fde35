// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	// Image formats decodable through image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/basalt3d/basalt/model"
)

// DecodeImage decodes any registered image format into tightly packed,
// row-major RGBA8 pixels.
func DecodeImage(data []byte) (*DecodedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %s", err.Error())
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &DecodedImage{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}, nil
}

// BuiltinShape returns the mesh of a named builtin primitive.
func BuiltinShape(name string) (*model.Mesh, error) {
	switch name {
	case "quad":
		m := model.Quad()
		return &m, nil
	case "triangle":
		m := model.Triangle()
		return &m, nil
	}
	return nil, fmt.Errorf("unknown builtin shape: %s", name)
}

// decode produces the payload for one registered object. Runs on workers
// for async loads and on the owning goroutine for sync ones; it only
// touches the immutable source and collaborator fields.
func (l *Loader) decode(kind Kind, location string) (Payload, error) {
	if kind == KindShape {
		mesh, err := BuiltinShape(location)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindShape, Mesh: mesh}, nil
	}

	data, err := l.source.ReadAll(location)
	if err != nil {
		return Payload{}, err
	}

	switch kind {
	case KindTexture:
		img, err := DecodeImage(data)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindTexture, Image: img}, nil

	case KindFont:
		if l.fonts == nil {
			return Payload{}, errors.New("no font source configured")
		}
		atlas, metrics, err := l.fonts.Rasterize(data)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindFont, Image: atlas, Metrics: metrics}, nil

	case KindModel:
		if l.meshes == nil {
			return Payload{}, errors.New("no mesh source configured")
		}
		mesh, err := l.meshes.Parse(data)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindModel, Mesh: mesh}, nil
	}

	return Payload{}, fmt.Errorf("unknown payload kind: %d", kind)
}
