// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Destroyable defines a structure that holds destroyable internal state.
type Destroyable interface {

	// Destroy destroys internal members
	Destroy()
}

// Instance describes a Vulkan instance and supporting methods.
// Once created it is ready to use.
type Instance interface {

	// PhysicalDevicesInfo returns a struct for each Physical Device
	// along with info about those devices
	PhysicalDevicesInfo() []PhysicalDeviceInfo

	// AvailableDevices returns handles of Physical Devices
	// from the Vulkan API
	AvailableDevices() []vk.PhysicalDevice

	// SetSurface sets the window surface for rendering
	SetSurface(unsafe.Pointer)

	// Surface returns the window surface, if it's not set
	// it should return a valid but empty surface
	Surface() vk.Surface

	// Extensions returns available instance extensions
	Extensions() []string

	// Instance returns the inner handle of the underlying API
	Instance() interface{}

	// Destroy destroys internal members
	Destroy()
}

// Renderer describes the rendering machinery.
// It's created only with internal values set,
// it needs to be initialised with Initialise() before use.
type Renderer interface {

	// Initialise sets up the configured rendering pipeline
	Initialise() error

	// DeviceIsSuitable checks if the device given is suitable
	// for the rendering pipeline. If not suitable string contains the reason
	DeviceIsSuitable(vk.PhysicalDevice) (bool, string)

	// Draw records and submits one frame. A frame is skipped without
	// error while the presentation surface is being rebuilt.
	Draw() error

	// Present queues the drawn frame for display
	Present() error

	// ResizeNotify tells the renderer the window surface changed size.
	// Safe to call from the event loop while frames are in flight.
	ResizeNotify(width, height uint32)

	// RegisterTexture records an image asset under ref without any I/O
	RegisterTexture(ref, location string) error

	// LoadTexture schedules a registered texture for decoding
	LoadTexture(ref string)

	// Texture reports whether the texture behind ref is device resident
	Texture(ref string) bool

	// RegisterFont records a font asset under ref without any I/O
	RegisterFont(ref, location string) error

	// LoadFont schedules a registered font for rasterisation
	LoadFont(ref string)

	// Font returns the metrics blob of a resident font atlas
	Font(ref string) ([]byte, bool)

	// LoadShape makes a builtin shape resident before returning
	LoadShape(name string) error

	// LoadModel schedules a model file for decoding
	LoadModel(location string) error

	// LoadResourceSync loads and promotes any asset before returning,
	// for assets that must be resident on the very first frame
	LoadResourceSync(ref string) error

	// ResourceHandle hands out a handle for instancing resources
	ResourceHandle() ResourceHandle

	// ResourceUpdate sets the instance data for a handle. The resource
	// is scheduled for loading when it is not yet device resident, and
	// a fallback is drawn in its place until it arrives. The returned
	// channel signals once the update is recorded.
	ResourceUpdate(ResourceHandle, ResourceInstance) <-chan struct{}

	// ResourceDelete removes the instance behind the handle
	ResourceDelete(ResourceHandle)

	// Destroy destroys internal members
	Destroy()
}

// Shader describes a shader object ready for use in a pipeline.
type Shader interface {

	// Type returns the type of shader
	Type() ShaderType

	// ShaderModule returns the underlying API handle
	ShaderModule() interface{}

	// Name returns the name the shader is identified by
	Name() string

	// Destroy destroys internal members
	Destroy()
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

// ResourceHandle identifies one drawn instance of a resource. Handles are
// handed out by the renderer and stay valid until deleted.
type ResourceHandle uint32

// ResourceInstance places one copy of a resource in the scene.
// ResourceID names the asset by its loader location.
type ResourceInstance struct {
	ResourceID string

	Position glm.Mat4
	Rotation glm.Mat4
}

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint
}
