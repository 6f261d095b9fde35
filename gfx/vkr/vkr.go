// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the Vulkan rendering backend. It wraps the raw
// API handles into releasable primitives: allocated memory, bound buffers
// and images, the swapchain, render targets, command recording and frame
// synchronization. The gfx package defines the contracts, vkr fulfills
// them against a real device.
package vkr

import (
	"github.com/basalt3d/basalt/gfx"
	vk "github.com/devblok/vulkan"
)

// vkImageLayout translates backend-neutral layout tags into the API enum.
func vkImageLayout(l gfx.ImageLayout) vk.ImageLayout {
	switch l {
	case gfx.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gfx.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gfx.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gfx.LayoutDepthAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gfx.LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}
