// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	"github.com/basalt3d/basalt/gfx"
	vk "github.com/devblok/vulkan"
)

// NewSampledImage creates a device local texture target in the Undefined
// layout, ready for the staged upload sequence.
func NewSampledImage(dev vk.Device, ma *MemoryAllocator, extent gfx.Extent) (*Image, error) {
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        vk.FormatR8g8b8a8Unorm,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}
	return newImage(dev, ma, ici, extent)
}

// NewDepthImage creates the depth attachment of a render target.
func NewDepthImage(dev vk.Device, ma *MemoryAllocator, format vk.Format, extent gfx.Extent, samples vk.SampleCountFlagBits) (*Image, error) {
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     samples,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	}

	image, err := newImage(dev, ma, ici, extent)
	if err != nil {
		return nil, err
	}

	if err := image.CreateView(vk.ImageAspectDepthBit); err != nil {
		image.Release()
		return nil, err
	}
	return image, nil
}

// NewColorImage creates the multisampled color attachment that the render
// pass resolves into the presentable swapchain image.
func NewColorImage(dev vk.Device, ma *MemoryAllocator, format vk.Format, extent gfx.Extent, samples vk.SampleCountFlagBits) (*Image, error) {
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     samples,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit | vk.ImageUsageColorAttachmentBit),
	}

	image, err := newImage(dev, ma, ici, extent)
	if err != nil {
		return nil, err
	}

	if err := image.CreateView(vk.ImageAspectColorBit); err != nil {
		image.Release()
		return nil, err
	}
	return image, nil
}

func newImage(dev vk.Device, ma *MemoryAllocator, ici vk.ImageCreateInfo, extent gfx.Extent) (*Image, error) {
	var image vk.Image
	if err := vk.Error(vk.CreateImage(dev, &ici, nil, &image)); err != nil {
		return nil, fmt.Errorf("vk.CreateImage(): %s", err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, image, &req)
	req.Deref()

	memory, err := ma.Malloc(req, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(dev, image, nil)
		return nil, err
	}

	if err := vk.Error(vk.BindImageMemory(dev, image, memory.Get(), vk.DeviceSize(memory.Offset()))); err != nil {
		memory.Release()
		vk.DestroyImage(dev, image, nil)
		return nil, fmt.Errorf("vk.BindImageMemory(): %s", err.Error())
	}

	return &Image{
		device: dev,
		image:  image,
		memory: memory,
		format: ici.Format,
		extent: extent,
		layout: gfx.LayoutUndefined,
	}, nil
}

// Image wraps a vulkan image with its bound memory and optional view.
type Image struct {
	device vk.Device
	image  vk.Image
	view   vk.ImageView

	memory Memory

	format vk.Format
	extent gfx.Extent
	layout gfx.ImageLayout
}

// CreateView makes the image view for the given aspect.
func (i *Image) CreateView(aspect vk.ImageAspectFlagBits) error {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.image,
		ViewType: vk.ImageViewType2d,
		Format:   i.format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(i.device, &ivci, nil, &view)); err != nil {
		return fmt.Errorf("vk.CreateImageView(): %s", err.Error())
	}
	i.view = view
	return nil
}

// Get returns the vulkan image handle.
func (i *Image) Get() vk.Image {
	return i.image
}

// View returns the image view handle, nil until CreateView.
func (i *Image) View() vk.ImageView {
	return i.view
}

// Mem returns the underlying memory of the Image.
func (i *Image) Mem() *Memory {
	return &i.memory
}

// Layout reports the image layout as last transitioned.
func (i *Image) Layout() gfx.ImageLayout {
	return i.layout
}

// Extent returns the image dimensions.
func (i *Image) Extent() gfx.Extent {
	return i.extent
}

// Format returns the pixel format.
func (i *Image) Format() vk.Format {
	return i.format
}

// Release destroys the view first, then the image, then frees its memory.
func (i *Image) Release() {
	if i.view != nil {
		vk.DestroyImageView(i.device, i.view, nil)
		i.view = nil
	}
	vk.DestroyImage(i.device, i.image, nil)
	i.memory.Release()
}
