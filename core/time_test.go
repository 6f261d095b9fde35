// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"
	"time"

	"github.com/basalt3d/basalt/core"
)

func TestNewTimeTicks(t *testing.T) {
	svc := core.NewTime(core.TimeConfiguration{
		FramesPerSecond: 1000,
		EventPollDelay:  1,
	})
	defer svc.Stop()

	if svc.Fps() != 1000 {
		t.Errorf("expected fps 1000, got %d", svc.Fps())
	}

	select {
	case <-svc.FpsTicker().C:
	case <-time.After(time.Second):
		t.Error("fps ticker did not fire")
	}

	select {
	case <-svc.EventTicker().C:
	case <-time.After(time.Second):
		t.Error("event ticker did not fire")
	}
}

func TestNewTimeZeroValues(t *testing.T) {
	// Uncapped fps and an unset poll delay must still produce working
	// tickers instead of panicking ticker construction.
	svc := core.NewTime(core.TimeConfiguration{})
	defer svc.Stop()

	select {
	case <-svc.FpsTicker().C:
	case <-time.After(time.Second):
		t.Error("fps ticker did not fire")
	}
}
