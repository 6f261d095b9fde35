// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering contracts that backends must implement,
// along with the sequencing logic that is shared between the real Vulkan
// backend and test harnesses: image layout transitions, staged uploads,
// presentation target recreation and frame pacing tokens.
package gfx

import "errors"

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Extent is a two dimensional size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// Zero reports whether either dimension is zero. Swapchains cannot
// be built over a zero area surface.
func (e Extent) Zero() bool {
	return e.Width == 0 || e.Height == 0
}

// Errors shared between backends. Comparisons are by identity.
var (
	// ErrUnsupportedTransition is returned when an image layout transition
	// outside the closed supported set is requested.
	ErrUnsupportedTransition = errors.New("unsupported layout transition")

	// ErrUnsupportedDimensions is returned by swapchain creation when the
	// surface reports an unusable extent, a zero-sized window for example.
	// It is recoverable: skip the frame and retry on the next iteration.
	ErrUnsupportedDimensions = errors.New("unsupported swapchain dimensions")

	// ErrSwapchainOutOfDate is returned by acquire or present when the
	// swapchain no longer matches the surface. It is recoverable: the
	// presentation target goes stale and is recreated before the next frame.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
)
