// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "errors"

// Staging is a transient host-visible buffer that exists for the duration
// of a single upload. It is released only after the copy out of it has been
// submitted.
type Staging interface {
	Releasable
}

// TransferImage is a device image undergoing or past its upload sequence.
// Layout reports the image's current layout as last transitioned.
type TransferImage interface {
	Releasable

	Layout() ImageLayout
}

// TransferBackend performs the individual steps of a staged image upload.
// Every step records, submits and waits for its own command buffer, so each
// call returns only once the GPU has completed it. Uploads run either during
// setup or on the loader's promotion path, never inside a frame.
type TransferBackend interface {

	// NewStaging creates a host-visible buffer with data already written into it.
	NewStaging(data []byte) (Staging, error)

	// NewImage2D creates a device-local sampled image in the Undefined layout.
	NewImage2D(extent Extent) (TransferImage, error)

	// Transition records and submits a pipeline barrier moving img between
	// layouts. Fails with ErrUnsupportedTransition outside the closed edge set.
	Transition(img TransferImage, from, to ImageLayout) error

	// Copy records and submits a buffer-to-image copy. The destination must
	// already be in the TransferDst layout.
	Copy(src Staging, dst TransferImage, extent Extent) error
}

// Upload runs the full staged upload sequence for one image: staging buffer,
// device image, barrier to TransferDst, copy, barrier to ShaderReadOnly,
// staging teardown. The returned image is in the ShaderReadOnly layout and
// safe to sample from the first subsequent submission.
func Upload(b TransferBackend, pixels []byte, extent Extent) (TransferImage, error) {
	if len(pixels) == 0 {
		return nil, errors.New("upload with no pixel data")
	}

	staging, err := b.NewStaging(pixels)
	if err != nil {
		return nil, err
	}

	img, err := b.NewImage2D(extent)
	if err != nil {
		staging.Release()
		return nil, err
	}

	if err := b.Transition(img, LayoutUndefined, LayoutTransferDst); err != nil {
		img.Release()
		staging.Release()
		return nil, err
	}

	if err := b.Copy(staging, img, extent); err != nil {
		img.Release()
		staging.Release()
		return nil, err
	}

	if err := b.Transition(img, LayoutTransferDst, LayoutShaderReadOnly); err != nil {
		img.Release()
		staging.Release()
		return nil, err
	}

	staging.Release()
	return img, nil
}
