// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"
)

// NewFenceToken creates an unsignalled fence wrapped as a completion token.
// The fence is handed to queue submission and waited on when the frame slot
// comes around again.
func NewFenceToken(dev vk.Device) (*FenceToken, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(dev, &fci, nil, &fence)); err != nil {
		return nil, errors.New("vk.CreateFence(): " + err.Error())
	}

	return &FenceToken{
		device: dev,
		fence:  fence,
	}, nil
}

// FenceToken adapts a vulkan fence to the frame pacing contract.
type FenceToken struct {
	device vk.Device
	fence  vk.Fence
}

// Fence exposes the raw handle for queue submission.
func (f *FenceToken) Fence() vk.Fence {
	return f.fence
}

// Wait blocks until the fence signals.
func (f *FenceToken) Wait() error {
	if err := vk.Error(vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, math.MaxUint64)); err != nil {
		return fmt.Errorf("vk.WaitForFences(): %s", err.Error())
	}
	return nil
}

// Release destroys the fence. Only valid after Wait has returned.
func (f *FenceToken) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

// NewFrameSync creates one semaphore pair per frame in flight: one for
// image acquisition, one for render completion.
func NewFrameSync(dev vk.Device, framesInFlight int) (*FrameSync, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	sync := &FrameSync{device: dev}
	for idx := 0; idx < framesInFlight; idx++ {
		var (
			imageAvailableSemaphore vk.Semaphore
			renderFinishedSemphore  vk.Semaphore
		)

		if err := vk.Error(vk.CreateSemaphore(dev, &sci, nil, &imageAvailableSemaphore)); err != nil {
			sync.Destroy()
			return nil, errors.New("vk.CreateSemaphore(): " + err.Error())
		}
		sync.imageAvailable = append(sync.imageAvailable, imageAvailableSemaphore)

		if err := vk.Error(vk.CreateSemaphore(dev, &sci, nil, &renderFinishedSemphore)); err != nil {
			sync.Destroy()
			return nil, errors.New("vk.CreateSemaphore(): " + err.Error())
		}
		sync.renderFinished = append(sync.renderFinished, renderFinishedSemphore)
	}
	return sync, nil
}

// FrameSync holds the per frame semaphore pairs, indexed by frame number
// modulo the ring size.
type FrameSync struct {
	device vk.Device

	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
}

// ImageAvailable returns the acquire semaphore for a frame number.
func (s *FrameSync) ImageAvailable(frame uint64) vk.Semaphore {
	return s.imageAvailable[frame%uint64(len(s.imageAvailable))]
}

// RenderFinished returns the render completion semaphore for a frame number.
func (s *FrameSync) RenderFinished(frame uint64) vk.Semaphore {
	return s.renderFinished[frame%uint64(len(s.renderFinished))]
}

// InFlight returns the ring size.
func (s *FrameSync) InFlight() int {
	return len(s.imageAvailable)
}

// Destroy tears down every semaphore.
func (s *FrameSync) Destroy() {
	for _, semaphore := range s.imageAvailable {
		vk.DestroySemaphore(s.device, semaphore, nil)
	}
	for _, semaphore := range s.renderFinished {
		vk.DestroySemaphore(s.device, semaphore, nil)
	}
	s.imageAvailable = nil
	s.renderFinished = nil
}

// Submit queues one command buffer for the frame: it waits on the acquire
// semaphore at the color output stage, signals the render completion
// semaphore and the frame fence.
func Submit(queue vk.Queue, cmd vk.CommandBuffer, wait, signal vk.Semaphore, fence vk.Fence) error {
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}}

	if err := vk.Error(vk.QueueSubmit(queue, 1, submit, fence)); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	return nil
}
