// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"

	vk "github.com/devblok/vulkan"
)

// NewCommandPool creates a command pool that allows individual buffer resets.
func NewCommandPool(dev vk.Device, queueFamily uint32) (*CommandPool, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(dev, &cpci, nil, &commandPool)); err != nil {
		return nil, errors.New("vk.CreateCommandPool(): " + err.Error())
	}

	return &CommandPool{
		device: dev,
		pool:   commandPool,
	}, nil
}

// CommandPool owns allocation of command buffers, both the per frame
// recorders and the one shot buffers used by transfers.
type CommandPool struct {
	device vk.Device
	pool   vk.CommandPool
}

// Allocate returns primary command buffers from the pool.
func (p *CommandPool) Allocate(count int) ([]vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	commandBuffers := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(p.device, &cbai, commandBuffers)); err != nil {
		return nil, errors.New("vk.AllocateCommandBuffers(): " + err.Error())
	}
	return commandBuffers, nil
}

// Free returns command buffers to the pool.
func (p *CommandPool) Free(commandBuffers []vk.CommandBuffer) {
	if len(commandBuffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(p.device, p.pool, uint32(len(commandBuffers)), commandBuffers)
}

// BeginOneShot allocates and begins recording a single submission command buffer.
func (p *CommandPool) BeginOneShot() (vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        p.pool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(p.device, &cbai, commandBuffers)); err != nil {
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %s", err.Error())
	}
	commandBuffer := commandBuffers[0]

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		vk.FreeCommandBuffers(p.device, p.pool, 1, []vk.CommandBuffer{commandBuffer})
		return nil, fmt.Errorf("vk.BeginCommandBuffer(): %s", err.Error())
	}

	return commandBuffer, nil
}

// EndOneShot finishes recording, submits the buffer, waits for the queue to
// drain it and frees it. The caller blocks for the full round trip.
func (p *CommandPool) EndOneShot(queue vk.Queue, commandBuffer vk.CommandBuffer) error {
	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err.Error())
	}

	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer},
	}

	if err := vk.Error(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{si}, nil)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %s", err.Error())
	}

	vk.QueueWaitIdle(queue)

	vk.FreeCommandBuffers(p.device, p.pool, 1, []vk.CommandBuffer{commandBuffer})
	return nil
}

// Destroy destroys the pool and every buffer still allocated from it.
func (p *CommandPool) Destroy() {
	vk.DestroyCommandPool(p.device, p.pool, nil)
}

// Recorder wraps a command buffer that is re-recorded every frame.
type Recorder struct {
	cmd vk.CommandBuffer
}

// NewRecorder wraps an allocated command buffer.
func NewRecorder(cmd vk.CommandBuffer) Recorder {
	return Recorder{cmd: cmd}
}

// Begin resets the buffer and starts recording for simultaneous use.
func (r Recorder) Begin() error {
	if err := vk.Error(vk.ResetCommandBuffer(r.cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer(): %s", err.Error())
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(r.cmd, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %s", err.Error())
	}
	return nil
}

// End finishes recording.
func (r Recorder) End() error {
	if err := vk.Error(vk.EndCommandBuffer(r.cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err.Error())
	}
	return nil
}

// Get returns the underlying command buffer handle.
func (r Recorder) Get() vk.CommandBuffer {
	return r.cmd
}
