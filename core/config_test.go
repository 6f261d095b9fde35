// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/basalt3d/basalt/core"
	"github.com/gobuffalo/envy"
)

func TestFromEnvOverlay(t *testing.T) {
	envy.Temp(func() {
		envy.Set("BASALT_FPS", "144")
		envy.Set("BASALT_SCREEN_WIDTH", "1920")
		envy.Set("BASALT_SHADER_DIR", "/opt/shaders")
		envy.Set("BASALT_ARCHIVE", "assets.bar")

		cfg := core.FromEnv(core.Configuration{
			Time: core.TimeConfiguration{
				FramesPerSecond: 60,
				EventPollDelay:  50,
			},
			Renderer: core.RendererConfiguration{
				ScreenWidth:  800,
				ScreenHeight: 600,
			},
		})

		if cfg.Time.FramesPerSecond != 144 {
			t.Errorf("expected fps 144, got %d", cfg.Time.FramesPerSecond)
		}
		if cfg.Renderer.ScreenWidth != 1920 {
			t.Errorf("expected width 1920, got %d", cfg.Renderer.ScreenWidth)
		}
		if cfg.Renderer.ShaderDirectory != "/opt/shaders" {
			t.Errorf("expected shader dir override, got %s", cfg.Renderer.ShaderDirectory)
		}
		if cfg.Renderer.Loader.Archive != "assets.bar" {
			t.Errorf("expected archive override, got %s", cfg.Renderer.Loader.Archive)
		}
	})
}

func TestFromEnvKeepsDefaults(t *testing.T) {
	envy.Temp(func() {
		cfg := core.FromEnv(core.Configuration{
			Time: core.TimeConfiguration{
				FramesPerSecond: 60,
				EventPollDelay:  50,
			},
			Renderer: core.RendererConfiguration{
				ScreenWidth:     800,
				ScreenHeight:    600,
				ShaderDirectory: "shaders",
			},
		})

		if cfg.Time.FramesPerSecond != 60 || cfg.Time.EventPollDelay != 50 {
			t.Errorf("unexpected time configuration: %+v", cfg.Time)
		}
		if cfg.Renderer.ScreenWidth != 800 || cfg.Renderer.ScreenHeight != 600 {
			t.Errorf("unexpected screen size: %dx%d", cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
		}
		if cfg.Renderer.ShaderDirectory != "shaders" {
			t.Errorf("expected default shader dir, got %s", cfg.Renderer.ShaderDirectory)
		}
	})
}

func TestFromEnvMalformedNumber(t *testing.T) {
	envy.Temp(func() {
		envy.Set("BASALT_FRAMES_IN_FLIGHT", "lots")

		cfg := core.FromEnv(core.Configuration{
			Renderer: core.RendererConfiguration{FramesInFlight: 2},
		})
		if cfg.Renderer.FramesInFlight != 2 {
			t.Errorf("malformed value should keep default, got %d", cfg.Renderer.FramesInFlight)
		}
	})
}
