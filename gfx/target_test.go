// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"testing"

	"github.com/basalt3d/basalt/gfx"
	"github.com/basalt3d/basalt/gfx/gfxtest"
)

func newTestTarget(t *testing.T, images int) (*gfx.PresentTarget, *gfxtest.CountingSurface) {
	t.Helper()
	s := &gfxtest.CountingSurface{Images: images}
	target, err := gfx.NewPresentTarget(s, gfx.Extent{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("NewPresentTarget: %s", err)
	}
	return target, s
}

func TestPresentTargetInitialState(t *testing.T) {
	target, s := newTestTarget(t, 3)
	if target.State() != gfx.TargetValid {
		t.Fatal("fresh target is not valid")
	}
	if target.ImageCount() != 3 {
		t.Fatalf("image count %d, want 3", target.ImageCount())
	}
	if s.Targets() != 3 {
		t.Fatalf("%d live framebuffers, want one per swapchain image", s.Targets())
	}
}

func TestNewPresentTargetUnsupportedExtent(t *testing.T) {
	s := &gfxtest.CountingSurface{Images: 2}
	if _, err := gfx.NewPresentTarget(s, gfx.Extent{}); err != gfx.ErrUnsupportedDimensions {
		t.Fatalf("creation error %v, want ErrUnsupportedDimensions", err)
	}
}

func TestPresentTargetResizeRecreatesOnAcquire(t *testing.T) {
	target, s := newTestTarget(t, 3)

	target.Invalidate(gfx.Extent{Width: 1024, Height: 768})
	if target.State() != gfx.TargetStale {
		t.Fatal("resize did not mark the target stale")
	}
	if s.ChainCreates != 1 {
		t.Fatal("rebuild happened before the next frame")
	}

	if _, err := target.AcquireNext(); err != nil {
		t.Fatalf("AcquireNext after resize: %s", err)
	}
	if target.State() != gfx.TargetValid {
		t.Fatal("target still stale after recreation")
	}
	if got := target.Extent(); got.Width != 1024 || got.Height != 768 {
		t.Fatalf("target extent %dx%d after resize", got.Width, got.Height)
	}
	if s.ChainCreates != 2 {
		t.Fatalf("%d chain creations, want 2", s.ChainCreates)
	}
}

func TestPresentTargetRepeatedResizeLeaksNothing(t *testing.T) {
	target, s := newTestTarget(t, 3)

	for i := 0; i < 5; i++ {
		target.Invalidate(gfx.Extent{Width: 640 + uint32(i), Height: 480})
		idx, err := target.AcquireNext()
		if err != nil {
			t.Fatalf("resize cycle %d: %s", i, err)
		}
		if err := target.PresentIndex(idx); err != nil {
			t.Fatalf("present in cycle %d: %s", i, err)
		}
	}

	if s.Targets() != s.Images {
		t.Fatalf("%d live framebuffers, want %d", s.Targets(), s.Images)
	}
	if s.TargetCreates != s.TargetDestroys+s.Targets() {
		t.Fatalf("framebuffer leak: %d created, %d destroyed, %d live",
			s.TargetCreates, s.TargetDestroys, s.Targets())
	}
	if s.ChainCreates != s.ChainDestroys+1 {
		t.Fatalf("chain leak: %d created, %d destroyed", s.ChainCreates, s.ChainDestroys)
	}

	target.Destroy()
	if s.TargetCreates != s.TargetDestroys || s.ChainCreates != s.ChainDestroys {
		t.Fatalf("destroy left objects behind: targets %d/%d, chains %d/%d",
			s.TargetCreates, s.TargetDestroys, s.ChainCreates, s.ChainDestroys)
	}
}

func TestPresentTargetZeroExtentSkipsFrame(t *testing.T) {
	target, s := newTestTarget(t, 2)

	target.Invalidate(gfx.Extent{})
	for i := 0; i < 3; i++ {
		_, err := target.AcquireNext()
		if err != gfx.ErrUnsupportedDimensions {
			t.Fatalf("acquire %d while minimised: %v", i, err)
		}
		if target.State() != gfx.TargetStale {
			t.Fatal("unusable extent must leave the target stale")
		}
	}

	target.Invalidate(gfx.Extent{Width: 800, Height: 600})
	if _, err := target.AcquireNext(); err != nil {
		t.Fatalf("acquire after restore: %s", err)
	}
	if target.State() != gfx.TargetValid {
		t.Fatal("target still stale after restore")
	}
	if s.Targets() != 2 {
		t.Fatalf("%d live framebuffers after restore, want 2", s.Targets())
	}
}

func TestPresentTargetAcquireOutOfDate(t *testing.T) {
	target, s := newTestTarget(t, 2)

	s.NextAcquireErr = gfx.ErrSwapchainOutOfDate
	if _, err := target.AcquireNext(); err != gfx.ErrSwapchainOutOfDate {
		t.Fatalf("acquire error %v, want out of date", err)
	}
	if target.State() != gfx.TargetStale {
		t.Fatal("out-of-date acquire must mark the target stale")
	}

	if _, err := target.AcquireNext(); err != nil {
		t.Fatalf("acquire after recreation: %s", err)
	}
	if s.ChainCreates != 2 {
		t.Fatalf("%d chain creations, want a rebuild after out-of-date", s.ChainCreates)
	}
}

func TestPresentTargetPresentOutOfDate(t *testing.T) {
	target, s := newTestTarget(t, 2)

	idx, err := target.AcquireNext()
	if err != nil {
		t.Fatalf("acquire: %s", err)
	}

	s.NextPresentErr = gfx.ErrSwapchainOutOfDate
	if err := target.PresentIndex(idx); err != nil {
		t.Fatalf("out-of-date present must be swallowed, got %s", err)
	}
	if target.State() != gfx.TargetStale {
		t.Fatal("out-of-date present must mark the target stale")
	}

	if _, err := target.AcquireNext(); err != nil {
		t.Fatalf("acquire after recreation: %s", err)
	}
	if target.State() != gfx.TargetValid {
		t.Fatal("target still stale after recreation")
	}
}
