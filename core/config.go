// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"

	"github.com/gobuffalo/envy"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the time between window event polls, in milliseconds
	EventPollDelay int
}

// InstanceConfiguration is used to configure the Vulkan instance
type InstanceConfiguration struct {
	DebugMode bool

	Layers     []string
	Extensions []string
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// FramesInFlight is the number of frames recorded ahead of the
	// display. Must be at least 1.
	FramesInFlight int

	// SampleCount requests multisampled rendering. Valid values are
	// 1, 2, 4 and 8, anything else falls back to no multisampling.
	SampleCount int

	// ShaderDirectory is scanned for compiled .spv shaders on startup
	ShaderDirectory string

	Loader LoaderConfiguration
}

// LoaderConfiguration is used to configure the asset loading pool
type LoaderConfiguration struct {
	// Workers is the asset decode pool size
	Workers int

	// QueueDepth bounds the loader task queue
	QueueDepth int

	// AssetRoot is the directory assets are read from when no
	// archive is set
	AssetRoot string

	// Archive is a path to a bar archive to mount instead of
	// AssetRoot. Leave empty to read loose files.
	Archive string

	// Debug panics on asset misuse instead of logging it
	Debug bool
}

// FromEnv overlays environment variables onto a configuration, leaving
// values untouched when their variable is not set. A .env file in the
// working directory is honoured.
func FromEnv(cfg Configuration) Configuration {
	cfg.Time.FramesPerSecond = envInt("BASALT_FPS", cfg.Time.FramesPerSecond)
	cfg.Time.EventPollDelay = envInt("BASALT_EVENT_POLL_DELAY", cfg.Time.EventPollDelay)

	cfg.Renderer.ScreenWidth = uint32(envInt("BASALT_SCREEN_WIDTH", int(cfg.Renderer.ScreenWidth)))
	cfg.Renderer.ScreenHeight = uint32(envInt("BASALT_SCREEN_HEIGHT", int(cfg.Renderer.ScreenHeight)))
	cfg.Renderer.SwapchainSize = uint32(envInt("BASALT_SWAPCHAIN_SIZE", int(cfg.Renderer.SwapchainSize)))
	cfg.Renderer.FramesInFlight = envInt("BASALT_FRAMES_IN_FLIGHT", cfg.Renderer.FramesInFlight)
	cfg.Renderer.SampleCount = envInt("BASALT_SAMPLE_COUNT", cfg.Renderer.SampleCount)
	cfg.Renderer.ShaderDirectory = envy.Get("BASALT_SHADER_DIR", cfg.Renderer.ShaderDirectory)

	cfg.Renderer.Loader.Workers = envInt("BASALT_LOADER_WORKERS", cfg.Renderer.Loader.Workers)
	cfg.Renderer.Loader.AssetRoot = envy.Get("BASALT_ASSET_ROOT", cfg.Renderer.Loader.AssetRoot)
	cfg.Renderer.Loader.Archive = envy.Get("BASALT_ARCHIVE", cfg.Renderer.Loader.Archive)
	return cfg
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(envy.Get(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
