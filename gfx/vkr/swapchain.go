// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"math"

	"github.com/basalt3d/basalt/gfx"
	vk "github.com/devblok/vulkan"
)

// NewSwapchain builds the presentation chain over a surface. Passing the
// previous chain hands its resources to the driver for reuse; the old
// handle must still be destroyed by the caller afterwards. Returns
// gfx.ErrUnsupportedDimensions when the surface cannot host the extent,
// which happens while the window is minimized.
func NewSwapchain(dev vk.Device, phyDevice vk.PhysicalDevice, surface vk.Surface, format vk.SurfaceFormat, size uint32, extent gfx.Extent, old *Swapchain) (*Swapchain, error) {
	var surfaceCapabilities vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(phyDevice, surface, &surfaceCapabilities)); err != nil {
		return nil, errors.New("vk.GetPhysicalDeviceSurfaceCapabilities(): " + err.Error())
	}
	surfaceCapabilities.Deref()
	surfaceCapabilities.MaxImageExtent.Deref()

	if extent.Zero() ||
		extent.Width > surfaceCapabilities.MaxImageExtent.Width ||
		extent.Height > surfaceCapabilities.MaxImageExtent.Height {
		return nil, gfx.ErrUnsupportedDimensions
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}

	// CompositeAlpha
	for i := 0; i < len(compositeAlphaFlags); i++ {
		alphaFlags := vk.CompositeAlphaFlags(compositeAlphaFlags[i])
		flagSupported := surfaceCapabilities.SupportedCompositeAlpha&alphaFlags != 0
		if flagSupported {
			compositeAlpha = compositeAlphaFlags[i]
			break
		}
	}

	var oldSwapchain vk.Swapchain
	if old != nil {
		oldSwapchain = old.swapchain
	}

	var swapchain vk.Swapchain
	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         surface,
		MinImageCount:   size,
		ImageFormat:     format.Format,
		ImageColorSpace: format.ColorSpace,
		ImageExtent: vk.Extent2D{
			Width:  extent.Width,
			Height: extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	if err := vk.Error(vk.CreateSwapchain(dev, &scci, nil, &swapchain)); err != nil {
		return nil, errors.New("vk.CreateSwapchain(): " + err.Error())
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(dev, swapchain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(dev, swapchain, nil)
		return nil, errors.New("vk.GetSwapchainImages(num): " + err.Error())
	}

	images := make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(dev, swapchain, &numImages, images)); err != nil {
		vk.DestroySwapchain(dev, swapchain, nil)
		return nil, errors.New("vk.GetSwapchainImages(images): " + err.Error())
	}

	return &Swapchain{
		device:    dev,
		swapchain: swapchain,
		images:    images,
		format:    format.Format,
		extent:    extent,
	}, nil
}

// Swapchain owns the presentation chain, its images and their color views.
type Swapchain struct {
	device    vk.Device
	swapchain vk.Swapchain

	images []vk.Image
	views  []vk.ImageView

	format vk.Format
	extent gfx.Extent
}

// CreateViews makes one color view per swapchain image.
func (s *Swapchain) CreateViews() error {
	views := make([]vk.ImageView, len(s.images))
	for idx := 0; idx < len(s.images); idx++ {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    s.images[idx],
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var imageView vk.ImageView
		if err := vk.Error(vk.CreateImageView(s.device, &ivci, nil, &imageView)); err != nil {
			return errors.New("vk.CreateImageView(): " + err.Error())
		}
		views[idx] = imageView
	}
	s.views = views
	return nil
}

// ImageCount returns the number of images the chain was built with.
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// Views returns the color views, one per swapchain image.
func (s *Swapchain) Views() []vk.ImageView {
	return s.views
}

// Format returns the surface pixel format the chain was built with.
func (s *Swapchain) Format() vk.Format {
	return s.format
}

// Extent returns the chain dimensions.
func (s *Swapchain) Extent() gfx.Extent {
	return s.extent
}

// Get returns the vulkan swapchain handle.
func (s *Swapchain) Get() vk.Swapchain {
	return s.swapchain
}

// Acquire obtains the next presentable image index, signalling the
// semaphore once the image is actually ready. Returns
// gfx.ErrSwapchainOutOfDate when the chain no longer matches the surface.
func (s *Swapchain) Acquire(semaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(s.device, s.swapchain, math.MaxUint64, semaphore, nil, &imageIndex)
	if result == vk.ErrorOutOfDate {
		return 0, gfx.ErrSwapchainOutOfDate
	}
	if err := vk.Error(result); err != nil {
		return 0, errors.New("vk.AcquireNextImage(): " + err.Error())
	}
	return imageIndex, nil
}

// Present queues the image for presentation after the semaphore signals.
// Returns gfx.ErrSwapchainOutOfDate when the chain no longer matches the
// surface.
func (s *Swapchain) Present(queue vk.Queue, semaphore vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain},
		PImageIndices:      []uint32{imageIndex},
	}

	presentResult := vk.QueuePresent(queue, &presentInfo)
	if presentResult == vk.ErrorOutOfDate {
		return gfx.ErrSwapchainOutOfDate
	}
	if err := vk.Error(presentResult); err != nil {
		return errors.New("vk.QueuePresent(): " + err.Error())
	}
	return nil
}

// DestroyViews tears down the color views. Must run before the chain
// itself is destroyed or handed over.
func (s *Swapchain) DestroyViews() {
	for _, view := range s.views {
		vk.DestroyImageView(s.device, view, nil)
	}
	s.views = nil
}

// Destroy tears down views and the chain.
func (s *Swapchain) Destroy() {
	s.DestroyViews()
	vk.DestroySwapchain(s.device, s.swapchain, nil)
}
