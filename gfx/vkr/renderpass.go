// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"

	"github.com/basalt3d/basalt/gfx"
	vk "github.com/devblok/vulkan"
)

// NewRenderPass builds the main pass: a color attachment presented to the
// surface and a depth attachment. With samples above one the color and
// depth targets are multisampled and a third attachment receives the
// resolved image for presentation. The pass depends only on formats and
// sample count, so it survives swapchain recreation.
func NewRenderPass(dev vk.Device, colorFormat, depthFormat vk.Format, samples vk.SampleCountFlagBits) (vk.RenderPass, error) {
	multisampled := samples > vk.SampleCount1Bit

	colorFinalLayout := vk.ImageLayoutPresentSrc
	if multisampled {
		colorFinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	attachments := []vk.AttachmentDescription{
		vk.AttachmentDescription{
			Format:         colorFormat,
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    colorFinalLayout,
		},
		vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorAttachmentRef)),
		PColorAttachments:       colorAttachmentRef,
		PDepthStencilAttachment: &depthAttachmentRef,
	}

	if multisampled {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: 2,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(dev, &rpci, nil, &renderPass)); err != nil {
		return nil, errors.New("vk.CreateRenderPass(): " + err.Error())
	}
	return renderPass, nil
}

// NewRenderTarget creates one framebuffer per swapchain image plus the
// shared depth attachment, and the multisampled color attachment when the
// pass was built with more than one sample.
func NewRenderTarget(dev vk.Device, ma *MemoryAllocator, renderPass vk.RenderPass, views []vk.ImageView, colorFormat vk.Format, extent gfx.Extent, samples vk.SampleCountFlagBits) (*RenderTarget, error) {
	target := &RenderTarget{
		device:  dev,
		pass:    renderPass,
		extent:  extent,
		samples: samples,
	}

	depth, err := NewDepthImage(dev, ma, vk.FormatD16Unorm, extent, samples)
	if err != nil {
		return nil, err
	}
	target.depth = depth

	if samples > vk.SampleCount1Bit {
		color, err := NewColorImage(dev, ma, colorFormat, extent, samples)
		if err != nil {
			target.Release()
			return nil, err
		}
		target.color = color
	}

	for idx, view := range views {
		// Attachment order mirrors the pass: color target, depth, and the
		// resolve destination when multisampling.
		attachments := []vk.ImageView{view, target.depth.View()}
		if target.color != nil {
			attachments = []vk.ImageView{target.color.View(), target.depth.View(), view}
		}

		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(dev, &fci, nil, &framebuffer)); err != nil {
			target.Release()
			return nil, fmt.Errorf("vk.CreateFramebuffer()[%d]: %s", idx, err.Error())
		}
		target.framebuffers = append(target.framebuffers, framebuffer)
	}

	return target, nil
}

// RenderTarget holds the framebuffers of one swapchain generation together
// with the attachments they share. The framebuffer count always equals the
// swapchain image count.
type RenderTarget struct {
	device vk.Device
	pass   vk.RenderPass

	framebuffers []vk.Framebuffer
	depth        *Image
	color        *Image

	extent  gfx.Extent
	samples vk.SampleCountFlagBits
}

// Pass returns the render pass the target was built against.
func (t *RenderTarget) Pass() vk.RenderPass {
	return t.pass
}

// Framebuffer returns the framebuffer for a swapchain image index.
func (t *RenderTarget) Framebuffer(idx uint32) vk.Framebuffer {
	return t.framebuffers[idx]
}

// Count returns the framebuffer count.
func (t *RenderTarget) Count() int {
	return len(t.framebuffers)
}

// Extent returns the dimensions the target was built for.
func (t *RenderTarget) Extent() gfx.Extent {
	return t.extent
}

// Release tears down the framebuffers and their attachments. The render
// pass stays alive, it belongs to the caller.
func (t *RenderTarget) Release() {
	for _, framebuffer := range t.framebuffers {
		vk.DestroyFramebuffer(t.device, framebuffer, nil)
	}
	t.framebuffers = nil

	if t.color != nil {
		t.color.Release()
		t.color = nil
	}
	if t.depth != nil {
		t.depth.Release()
		t.depth = nil
	}
}
