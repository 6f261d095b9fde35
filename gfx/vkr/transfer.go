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

// NewTransferContext ties the transfer machinery together: one shot command
// buffers from the pool, submitted and drained on the given queue.
func NewTransferContext(dev vk.Device, ma *MemoryAllocator, pool *CommandPool, queue vk.Queue) *TransferContext {
	return &TransferContext{
		device: dev,
		ma:     ma,
		pool:   pool,
		queue:  queue,
	}
}

// TransferContext implements staged uploads against a real device. Every
// operation records, submits and waits for its own one shot command buffer.
// Uploads run during setup or on the promotion path, never mid frame.
type TransferContext struct {
	device vk.Device
	ma     *MemoryAllocator
	pool   *CommandPool
	queue  vk.Queue
}

// NewStaging implements gfx.TransferBackend.
func (t *TransferContext) NewStaging(data []byte) (gfx.Staging, error) {
	return NewStagingBuffer(t.device, t.ma, data)
}

// NewImage2D implements gfx.TransferBackend.
func (t *TransferContext) NewImage2D(extent gfx.Extent) (gfx.TransferImage, error) {
	return NewSampledImage(t.device, t.ma, extent)
}

// Transition implements gfx.TransferBackend. Only the two texture upload
// edges are supported, everything else fails before a command is recorded.
func (t *TransferContext) Transition(img gfx.TransferImage, from, to gfx.ImageLayout) error {
	image, ok := img.(*Image)
	if !ok {
		return fmt.Errorf("transition of foreign image type %T", img)
	}

	if err := gfx.ValidateTransition(from, to); err != nil {
		return err
	}
	if image.layout != from {
		return fmt.Errorf("transition from %s requested but image is in %s", from, image.layout)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vkImageLayout(from),
		NewLayout:           vkImageLayout(to),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.image,
		SubresourceRange: vk.ImageSubresourceRange{
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	if from == gfx.LayoutUndefined && to == gfx.LayoutTransferDst {
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	} else {
		// TransferDst to ShaderReadOnly, the only other edge past validation.
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}

	cmd, err := t.pool.BeginOneShot()
	if err != nil {
		return err
	}

	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})

	if err := t.pool.EndOneShot(t.queue, cmd); err != nil {
		return err
	}

	image.layout = to
	return nil
}

// Copy implements gfx.TransferBackend. The destination must already be in
// the TransferDst layout.
func (t *TransferContext) Copy(src gfx.Staging, dst gfx.TransferImage, extent gfx.Extent) error {
	staging, ok := src.(*Buffer)
	if !ok {
		return fmt.Errorf("copy from foreign staging type %T", src)
	}
	image, ok := dst.(*Image)
	if !ok {
		return fmt.Errorf("copy into foreign image type %T", dst)
	}
	if image.layout != gfx.LayoutTransferDst {
		return fmt.Errorf("copy into image in %s layout", image.layout)
	}

	cmd, err := t.pool.BeginOneShot()
	if err != nil {
		return err
	}

	bic := vk.BufferImageCopy{
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdCopyBufferToImage(cmd, staging.Get(), image.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{bic})

	return t.pool.EndOneShot(t.queue, cmd)
}

// CopyBuffer records and submits a buffer to buffer transfer.
func (t *TransferContext) CopyBuffer(src, dst *Buffer, size uint) error {
	cmd, err := t.pool.BeginOneShot()
	if err != nil {
		return err
	}

	bc := vk.BufferCopy{
		Size: vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cmd, src.Get(), dst.Get(), 1, []vk.BufferCopy{bc})

	return t.pool.EndOneShot(t.queue, cmd)
}

// UploadImage runs the full staged upload for decoded pixels and finishes
// the image with a sampling view. The result is in the ShaderReadOnly
// layout, safe to bind from the next submission onward.
func (t *TransferContext) UploadImage(pixels []byte, extent gfx.Extent) (*Image, error) {
	uploaded, err := gfx.Upload(t, pixels, extent)
	if err != nil {
		return nil, err
	}

	image := uploaded.(*Image)
	if err := image.CreateView(vk.ImageAspectColorBit); err != nil {
		image.Release()
		return nil, err
	}
	return image, nil
}

// UploadBuffer moves data into a new device local buffer through a staging copy.
func (t *TransferContext) UploadBuffer(data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	staging, err := NewStagingBuffer(t.device, t.ma, data)
	if err != nil {
		return nil, err
	}

	buffer, err := NewDeviceLocalBuffer(t.device, t.ma, uint(len(data)), usage)
	if err != nil {
		staging.Release()
		return nil, err
	}

	if err := t.CopyBuffer(staging, buffer, uint(len(data))); err != nil {
		buffer.Release()
		staging.Release()
		return nil, err
	}

	staging.Release()
	return buffer, nil
}
