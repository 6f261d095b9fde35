// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfxtest provides in-memory gfx backends for tests: a transfer
// backend that logs every operation in submission order, a surface that
// counts chain and target lifecycles, and completion tokens resolved by an
// explicit trigger instead of GPU progress.
package gfxtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/basalt3d/basalt/gfx"
)

// TransferRecorder implements gfx.TransferBackend against no device at all.
// Every operation appends to Ops in the order it was submitted, and layout
// rules are enforced exactly like the real backend enforces them, so tests
// can assert both command ordering and rejection of illegal sequences.
type TransferRecorder struct {
	Ops []string

	// FailTransition, when set, makes every Transition call return this
	// error without recording a barrier. FailCopy does the same for Copy.
	FailTransition error
	FailCopy       error

	images int
}

type recordedStaging struct {
	rec  *TransferRecorder
	size int
}

func (s *recordedStaging) Release() {
	s.rec.log("release staging")
}

// RecordedImage is a fake device image tracking only its layout.
type RecordedImage struct {
	rec    *TransferRecorder
	extent gfx.Extent
	layout gfx.ImageLayout
}

// Layout implements gfx.TransferImage.
func (i *RecordedImage) Layout() gfx.ImageLayout {
	return i.layout
}

// Release implements gfx.Releasable.
func (i *RecordedImage) Release() {
	i.rec.log("release image")
}

// Extent returns the creation extent.
func (i *RecordedImage) Extent() gfx.Extent {
	return i.extent
}

func (r *TransferRecorder) log(format string, args ...interface{}) {
	r.Ops = append(r.Ops, fmt.Sprintf(format, args...))
}

// NewStaging implements gfx.TransferBackend.
func (r *TransferRecorder) NewStaging(data []byte) (gfx.Staging, error) {
	r.log("create staging %d", len(data))
	return &recordedStaging{rec: r, size: len(data)}, nil
}

// NewImage2D implements gfx.TransferBackend.
func (r *TransferRecorder) NewImage2D(extent gfx.Extent) (gfx.TransferImage, error) {
	r.images++
	r.log("create image %dx%d", extent.Width, extent.Height)
	return &RecordedImage{rec: r, extent: extent, layout: gfx.LayoutUndefined}, nil
}

// Transition implements gfx.TransferBackend. It rejects edges outside the
// supported set and transitions that do not match the image's actual layout.
func (r *TransferRecorder) Transition(img gfx.TransferImage, from, to gfx.ImageLayout) error {
	if r.FailTransition != nil {
		return r.FailTransition
	}
	if err := gfx.ValidateTransition(from, to); err != nil {
		return err
	}
	ri := img.(*RecordedImage)
	if ri.layout != from {
		return fmt.Errorf("transition from %s requested but image is in %s", from, ri.layout)
	}
	ri.layout = to
	r.log("barrier %s to %s", from, to)
	return nil
}

// Copy implements gfx.TransferBackend. The destination must already have
// been transitioned to TransferDst.
func (r *TransferRecorder) Copy(src gfx.Staging, dst gfx.TransferImage, extent gfx.Extent) error {
	if r.FailCopy != nil {
		return r.FailCopy
	}
	if dst.Layout() != gfx.LayoutTransferDst {
		return fmt.Errorf("copy into image in %s layout", dst.Layout())
	}
	r.log("copy buffer to image %dx%d", extent.Width, extent.Height)
	return nil
}

// Sample records a shader read of the image. It fails unless the image has
// reached the ShaderReadOnly layout, which is how tests prove no read can be
// recorded ahead of the final barrier.
func (r *TransferRecorder) Sample(img gfx.TransferImage) error {
	if img.Layout() != gfx.LayoutShaderReadOnly {
		return fmt.Errorf("sample of image in %s layout", img.Layout())
	}
	r.log("sample image")
	return nil
}

// CountingSurface implements gfx.Surface with counters instead of GPU
// objects. Chain creation fails on zero extents the way a real surface
// reports unusable dimensions, and acquire and present failures can be
// scripted one call ahead.
type CountingSurface struct {
	// Images is the image count every successful chain reports.
	Images int

	// NextAcquireErr and NextPresentErr are returned by the next Acquire or
	// Present call and then cleared.
	NextAcquireErr error
	NextPresentErr error

	ChainCreates  int
	ChainDestroys int

	// TargetCreates and TargetDestroys count individual framebuffers, not
	// calls, so leak checks can compare the two directly.
	TargetCreates  int
	TargetDestroys int

	chainLive bool
	targets   int
	cursor    uint32
}

// CreateChain implements gfx.Surface. Replacing a live chain counts as
// destroying it, matching the old-swapchain handover of the real backend.
func (s *CountingSurface) CreateChain(extent gfx.Extent) (int, error) {
	if extent.Zero() {
		return 0, gfx.ErrUnsupportedDimensions
	}
	if s.chainLive {
		s.ChainDestroys++
	}
	s.chainLive = true
	s.ChainCreates++
	return s.Images, nil
}

// CreateTargets implements gfx.Surface.
func (s *CountingSurface) CreateTargets(imageCount int, extent gfx.Extent) error {
	s.targets = imageCount
	s.TargetCreates += imageCount
	return nil
}

// DestroyTargets implements gfx.Surface.
func (s *CountingSurface) DestroyTargets() {
	s.TargetDestroys += s.targets
	s.targets = 0
}

// DestroyChain implements gfx.Surface.
func (s *CountingSurface) DestroyChain() {
	if s.chainLive {
		s.ChainDestroys++
		s.chainLive = false
	}
}

// Acquire implements gfx.Surface, cycling through image indices.
func (s *CountingSurface) Acquire() (uint32, error) {
	if s.NextAcquireErr != nil {
		err := s.NextAcquireErr
		s.NextAcquireErr = nil
		return 0, err
	}
	if !s.chainLive {
		return 0, errors.New("acquire without a chain")
	}
	idx := s.cursor % uint32(s.Images)
	s.cursor++
	return idx, nil
}

// Present implements gfx.Surface.
func (s *CountingSurface) Present(imageIndex uint32) error {
	if s.NextPresentErr != nil {
		err := s.NextPresentErr
		s.NextPresentErr = nil
		return err
	}
	if !s.chainLive {
		return errors.New("present without a chain")
	}
	return nil
}

// Targets returns the number of currently live framebuffers.
func (s *CountingSurface) Targets() int {
	return s.targets
}

// ManualToken is a gfx.CompletionToken resolved only by an explicit Trigger
// call, standing in for a fence that the test controls instead of the GPU.
type ManualToken struct {
	done     chan struct{}
	once     sync.Once
	released bool
}

// NewManualToken returns an unresolved token.
func NewManualToken() *ManualToken {
	return &ManualToken{done: make(chan struct{})}
}

// Trigger resolves the token, unblocking all waiters. Safe to call more
// than once.
func (t *ManualToken) Trigger() {
	t.once.Do(func() { close(t.done) })
}

// Wait implements gfx.CompletionToken.
func (t *ManualToken) Wait() error {
	<-t.done
	return nil
}

// Release implements gfx.CompletionToken.
func (t *ManualToken) Release() {
	t.released = true
}

// Released reports whether Release has been called.
func (t *ManualToken) Released() bool {
	return t.released
}

// Resolved reports whether Trigger has been called.
func (t *ManualToken) Resolved() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
