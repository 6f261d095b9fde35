// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/basalt3d/basalt/gfx"
	"github.com/basalt3d/basalt/gfx/gfxtest"
)

func TestUploadCommandOrder(t *testing.T) {
	c := qt.New(t)
	rec := &gfxtest.TransferRecorder{}

	img, err := gfx.Upload(rec, make([]byte, 16*16*4), gfx.Extent{Width: 16, Height: 16})
	c.Assert(err, qt.IsNil)
	c.Assert(img.Layout(), qt.Equals, gfx.LayoutShaderReadOnly)
	c.Assert(rec.Ops, qt.DeepEquals, []string{
		"create staging 1024",
		"create image 16x16",
		"barrier Undefined to TransferDst",
		"copy buffer to image 16x16",
		"barrier TransferDst to ShaderReadOnly",
		"release staging",
	})

	c.Assert(rec.Sample(img), qt.IsNil)
	c.Assert(rec.Ops[len(rec.Ops)-1], qt.Equals, "sample image")
}

func TestUploadEmptyPixels(t *testing.T) {
	c := qt.New(t)
	rec := &gfxtest.TransferRecorder{}

	_, err := gfx.Upload(rec, nil, gfx.Extent{Width: 4, Height: 4})
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(rec.Ops, qt.HasLen, 0)
}

func TestSampleGatedOnLayout(t *testing.T) {
	c := qt.New(t)
	rec := &gfxtest.TransferRecorder{}

	img, err := rec.NewImage2D(gfx.Extent{Width: 4, Height: 4})
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Sample(img), qt.ErrorMatches, `sample of image in Undefined layout`)

	c.Assert(rec.Transition(img, gfx.LayoutUndefined, gfx.LayoutTransferDst), qt.IsNil)
	c.Assert(rec.Sample(img), qt.ErrorMatches, `sample of image in TransferDst layout`)

	c.Assert(rec.Transition(img, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly), qt.IsNil)
	c.Assert(rec.Sample(img), qt.IsNil)
}

func TestTransitionRejectsStaleFromLayout(t *testing.T) {
	c := qt.New(t)
	rec := &gfxtest.TransferRecorder{}

	img, err := rec.NewImage2D(gfx.Extent{Width: 4, Height: 4})
	c.Assert(err, qt.IsNil)

	// The image is still Undefined, so declaring TransferDst as the
	// source layout must fail before any barrier is recorded.
	err = rec.Transition(img, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly)
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(rec.Ops, qt.HasLen, 1)
}

func TestUploadReleasesOnTransitionFailure(t *testing.T) {
	c := qt.New(t)
	rec := &gfxtest.TransferRecorder{
		FailTransition: errors.New("device lost"),
	}

	_, err := gfx.Upload(rec, make([]byte, 4*4*4), gfx.Extent{Width: 4, Height: 4})
	c.Assert(err, qt.ErrorMatches, "device lost")
	c.Assert(rec.Ops, qt.DeepEquals, []string{
		"create staging 64",
		"create image 4x4",
		"release image",
		"release staging",
	})
}

func TestUploadReleasesOnCopyFailure(t *testing.T) {
	c := qt.New(t)
	rec := &gfxtest.TransferRecorder{
		FailCopy: errors.New("transfer queue gone"),
	}

	_, err := gfx.Upload(rec, make([]byte, 4*4*4), gfx.Extent{Width: 4, Height: 4})
	c.Assert(err, qt.ErrorMatches, "transfer queue gone")
	c.Assert(rec.Ops, qt.DeepEquals, []string{
		"create staging 64",
		"create image 4x4",
		"barrier Undefined to TransferDst",
		"release image",
		"release staging",
	})
}
