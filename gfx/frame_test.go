// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"testing"
	"time"

	"github.com/basalt3d/basalt/gfx"
	"github.com/basalt3d/basalt/gfx/gfxtest"
)

func mustBegin(t *testing.T, ring *gfx.FrameRing, frame uint64) {
	t.Helper()
	if err := ring.Begin(frame); err != nil {
		t.Fatalf("Begin(%d): %s", frame, err)
	}
}

func TestFrameRingFirstPassDoesNotBlock(t *testing.T) {
	ring := gfx.NewFrameRing(2)
	for frame := uint64(0); frame < 2; frame++ {
		mustBegin(t, ring, frame)
		ring.End(frame, gfxtest.NewManualToken())
	}
}

func TestFrameRingMinimumSize(t *testing.T) {
	if got := gfx.NewFrameRing(0).InFlight(); got != 1 {
		t.Fatalf("InFlight() = %d, want 1", got)
	}
}

// Two frames in flight: frame 2 reuses frame 0's slot, so it must block
// until frame 0's token resolves and must not touch frame 1's token.
func TestFrameRingGatesOnMatchingSlot(t *testing.T) {
	ring := gfx.NewFrameRing(2)

	tok0 := gfxtest.NewManualToken()
	tok1 := gfxtest.NewManualToken()
	mustBegin(t, ring, 0)
	ring.End(0, tok0)
	mustBegin(t, ring, 1)
	ring.End(1, tok1)

	began := make(chan error, 1)
	go func() { began <- ring.Begin(2) }()

	select {
	case <-began:
		t.Fatal("frame 2 began while frame 0 was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	tok0.Trigger()
	select {
	case err := <-began:
		if err != nil {
			t.Fatalf("Begin(2): %s", err)
		}
	case <-time.After(time.Second):
		t.Fatal("frame 2 never began after frame 0 completed")
	}

	if !tok0.Released() {
		t.Fatal("frame 0 token was not released on slot reuse")
	}
	if tok1.Released() {
		t.Fatal("frame 1 token must stay live until its own slot is reused")
	}
}

func TestFrameRingWaitIdleDrainsAll(t *testing.T) {
	ring := gfx.NewFrameRing(3)
	tokens := make([]*gfxtest.ManualToken, 3)
	for frame := uint64(0); frame < 3; frame++ {
		mustBegin(t, ring, frame)
		tokens[frame] = gfxtest.NewManualToken()
		ring.End(frame, tokens[frame])
	}

	idle := make(chan error, 1)
	go func() { idle <- ring.WaitIdle() }()

	tokens[0].Trigger()
	select {
	case <-idle:
		t.Fatal("WaitIdle returned with work still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	tokens[1].Trigger()
	tokens[2].Trigger()
	select {
	case err := <-idle:
		if err != nil {
			t.Fatalf("WaitIdle: %s", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIdle never returned")
	}

	for i, tok := range tokens {
		if !tok.Released() {
			t.Fatalf("token %d not released by WaitIdle", i)
		}
	}
}
