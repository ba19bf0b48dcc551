// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

// DeviceBuffer is a vk.Buffer with its backing allocation. Host-visible
// buffers stay persistently mapped for their whole lifetime; Flush and
// Invalidate delimit host access on non-coherent memory.
type DeviceBuffer struct {
	dev    *Device
	desc   ember.DeviceBufferDescriptor
	buffer vk.Buffer
	memory vk.DeviceMemory

	mapped   []byte // nil for device-private buffers
	coherent bool
}

var _ ember.DeviceBuffer = (*DeviceBuffer)(nil)

func newDeviceBuffer(dev *Device, desc ember.DeviceBufferDescriptor) (*DeviceBuffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("vulkan: invalid buffer size %d", desc.Size)
	}

	usage := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit |
		vk.BufferUsageIndexBufferBit |
		vk.BufferUsageUniformBufferBit |
		vk.BufferUsageStorageBufferBit |
		vk.BufferUsageTransferSrcBit |
		vk.BufferUsageTransferDstBit)

	var buffer vk.Buffer
	ret := vk.CreateBuffer(dev.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	if err := vkErr(ret, "create buffer"); err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev.device, buffer, &reqs)
	reqs.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible := desc.StorageMode == ember.StorageModeHostVisible
	if hostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	}
	typeIdx, err := dev.memoryTypeIndex(reqs.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(dev.device, buffer, nil)
		return nil, err
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(dev.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &memory)
	if err := vkErr(ret, "allocate buffer memory"); err != nil {
		vk.DestroyBuffer(dev.device, buffer, nil)
		return nil, err
	}
	if err := vkErr(vk.BindBufferMemory(dev.device, buffer, memory, 0), "bind buffer memory"); err != nil {
		vk.FreeMemory(dev.device, memory, nil)
		vk.DestroyBuffer(dev.device, buffer, nil)
		return nil, err
	}

	b := &DeviceBuffer{
		dev:      dev,
		desc:     desc,
		buffer:   buffer,
		memory:   memory,
		coherent: isCoherent(dev, typeIdx),
	}
	if hostVisible {
		var ptr unsafe.Pointer
		ret = vk.MapMemory(dev.device, memory, 0, vk.DeviceSize(desc.Size), 0, &ptr)
		if err := vkErr(ret, "map buffer memory"); err != nil {
			b.Destroy()
			return nil, err
		}
		b.mapped = unsafe.Slice((*byte)(ptr), desc.Size)
	}
	if desc.Label != "" {
		b.SetLabel(desc.Label)
	}
	return b, nil
}

func isCoherent(dev *Device, typeIdx uint32) bool {
	dev.memProps.MemoryTypes[typeIdx].Deref()
	flags := dev.memProps.MemoryTypes[typeIdx].PropertyFlags
	return flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0
}

func (b *DeviceBuffer) Descriptor() ember.DeviceBufferDescriptor { return b.desc }

// Contents returns the persistently mapped memory, or nil for
// device-private buffers.
func (b *DeviceBuffer) Contents() []byte { return b.mapped }

func (b *DeviceBuffer) CopyHostData(data []byte, offset int) error {
	if b.mapped == nil {
		return ember.ErrBufferNotHostVisible
	}
	if offset < 0 || offset+len(data) > b.desc.Size {
		return fmt.Errorf("%w: copy of %d bytes at offset %d into buffer of size %d",
			ember.ErrBufferRangeOutOfBounds, len(data), offset, b.desc.Size)
	}
	copy(b.mapped[offset:], data)
	return b.Flush(ember.Range{Offset: offset, Length: len(data)})
}

// Flush makes host writes in r visible to the device. A no-op on coherent
// memory.
func (b *DeviceBuffer) Flush(r ember.Range) error {
	if b.mapped == nil {
		return ember.ErrBufferNotHostVisible
	}
	if b.coherent {
		return nil
	}
	mr, err := b.mappedRange(r)
	if err != nil {
		return err
	}
	return vkErr(vk.FlushMappedMemoryRanges(b.dev.device, 1, []vk.MappedMemoryRange{mr}), "flush mapped range")
}

// Invalidate makes device writes in r visible to the host. A no-op on
// coherent memory.
func (b *DeviceBuffer) Invalidate(r ember.Range) error {
	if b.mapped == nil {
		return ember.ErrBufferNotHostVisible
	}
	if b.coherent {
		return nil
	}
	mr, err := b.mappedRange(r)
	if err != nil {
		return err
	}
	return vkErr(vk.InvalidateMappedMemoryRanges(b.dev.device, 1, []vk.MappedMemoryRange{mr}), "invalidate mapped range")
}

// mappedRange converts r to a whole-buffer range when empty and validates
// bounds. The range offset must sit on a nonCoherentAtomSize boundary, so
// it is rounded down to the device's atom; vk.WholeSize covers the
// size-alignment half of the same requirement.
func (b *DeviceBuffer) mappedRange(r ember.Range) (vk.MappedMemoryRange, error) {
	mr := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: b.memory,
		Size:   vk.DeviceSize(vk.WholeSize),
	}
	if r.IsEmpty() {
		return mr, nil
	}
	if r.Offset < 0 || r.Offset+r.Length > b.desc.Size {
		return mr, fmt.Errorf("%w: range [%d, %d) in buffer of size %d",
			ember.ErrBufferRangeOutOfBounds, r.Offset, r.Offset+r.Length, b.desc.Size)
	}
	offset := vk.DeviceSize(r.Offset)
	if atom := b.dev.atomSize; atom > 1 {
		offset -= offset % atom
	}
	mr.Offset = offset
	return mr, nil
}

func (b *DeviceBuffer) SetLabel(label string) {
	b.desc.Label = label
}

// Destroy releases the buffer and its memory. The caller must guarantee
// the device is done with it; command buffer tracking provides that for
// buffers bound during encoding.
func (b *DeviceBuffer) Destroy() {
	if b.mapped != nil {
		vk.UnmapMemory(b.dev.device, b.memory)
		b.mapped = nil
	}
	if b.buffer != vk.NullBuffer {
		vk.DestroyBuffer(b.dev.device, b.buffer, nil)
		b.buffer = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.dev.device, b.memory, nil)
		b.memory = vk.NullDeviceMemory
	}
}
