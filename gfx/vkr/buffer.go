// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// NewBuffer creates, configures, allocates and binds a new buffer.
func NewBuffer(dev vk.Device, size uint, usage vk.BufferUsageFlagBits, mode vk.SharingMode, props vk.MemoryPropertyFlagBits, ma *MemoryAllocator) (Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: mode,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(dev, &createInfo, nil, &buffer)); err != nil {
		return Buffer{}, fmt.Errorf("vk.CreateBuffer(): %s", err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &req)
	req.Deref()

	memory, err := ma.Malloc(req, props)
	if err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		return Buffer{}, err
	}

	vk.BindBufferMemory(dev, buffer, memory.Get(), vk.DeviceSize(memory.Offset()))

	return Buffer{
		device: dev,
		buffer: buffer,
		size:   size,
		memory: memory,
	}, nil
}

// NewStagingBuffer creates a host visible transfer source and writes data
// into it. Staging buffers only live until the copy out of them completes.
func NewStagingBuffer(dev vk.Device, ma *MemoryAllocator, data []byte) (*Buffer, error) {
	buffer, err := NewBuffer(dev, uint(len(data)), vk.BufferUsageTransferSrcBit, vk.SharingModeExclusive,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, ma)
	if err != nil {
		return nil, err
	}

	if err := buffer.Write(data); err != nil {
		buffer.Release()
		return nil, err
	}
	return &buffer, nil
}

// NewDeviceLocalBuffer creates a buffer backed by device local memory for
// vertex, index and instance data. It is filled through a staging copy.
func NewDeviceLocalBuffer(dev vk.Device, ma *MemoryAllocator, size uint, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	buffer, err := NewBuffer(dev, size, vk.BufferUsageTransferDstBit|usage, vk.SharingModeExclusive,
		vk.MemoryPropertyDeviceLocalBit, ma)
	if err != nil {
		return nil, err
	}
	return &buffer, nil
}

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint

	memory Memory
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint {
	return b.size
}

// Write copies data into the buffer through a temporary mapping.
// The backing memory must be host visible.
func (b *Buffer) Write(data []byte) error {
	if uint(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes into buffer of %d", len(data), b.size)
	}

	mappedMemory := b.memory.Map()
	castMemory := *(*[]byte)(unsafe.Pointer(&sliceHeader{
		Data: uintptr(mappedMemory),
		Cap:  len(data),
		Len:  len(data),
	}))
	copy(castMemory, data)
	b.memory.Unmap()
	return nil
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.memory.Release()
}

// NewUniformRing creates one host visible uniform slot per swapchain image,
// so a frame can rewrite its own slot while earlier images are still bound
// to in-flight descriptor sets.
func NewUniformRing(dev vk.Device, ma *MemoryAllocator, slotSize uint, slots int) (*UniformRing, error) {
	ring := &UniformRing{slotSize: slotSize}
	for idx := 0; idx < slots; idx++ {
		buffer, err := NewBuffer(dev, slotSize, vk.BufferUsageUniformBufferBit, vk.SharingModeExclusive,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, ma)
		if err != nil {
			ring.Release()
			return nil, err
		}
		ring.buffers = append(ring.buffers, buffer)
	}
	return ring, nil
}

// UniformRing holds the per swapchain image uniform slots of one resource.
type UniformRing struct {
	slotSize uint
	buffers  []Buffer
}

// Write updates the slot belonging to the given swapchain image.
func (u *UniformRing) Write(slot int, data []byte) error {
	return u.buffers[slot].Write(data)
}

// Buffer returns the buffer handle backing a slot.
func (u *UniformRing) Buffer(slot int) vk.Buffer {
	return u.buffers[slot].Get()
}

// SlotSize returns the size of a single slot in bytes.
func (u *UniformRing) SlotSize() uint {
	return u.slotSize
}

// Slots returns the slot count.
func (u *UniformRing) Slots() int {
	return len(u.buffers)
}

// Release frees every slot.
func (u *UniformRing) Release() {
	for idx := range u.buffers {
		u.buffers[idx].Release()
	}
	u.buffers = nil
}
