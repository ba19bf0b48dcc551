// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import "errors"

// Buffer errors.
var (
	// ErrInvalidBufferView is returned when a buffer view has no backing
	// buffer or a zero-length range.
	ErrInvalidBufferView = errors.New("ember: invalid buffer view")

	// ErrBufferNotHostVisible is returned for host access to a buffer whose
	// storage mode does not permit it.
	ErrBufferNotHostVisible = errors.New("ember: buffer is not host visible")

	// ErrBufferRangeOutOfBounds is returned when a host write or flush range
	// exceeds the buffer size.
	ErrBufferRangeOutOfBounds = errors.New("ember: range out of buffer bounds")

	// ErrUnknownIndexType is returned when a vertex buffer carries
	// IndexTypeUnknown.
	ErrUnknownIndexType = errors.New("ember: index type is unknown")
)

// DeviceBufferDescriptor describes a GPU-visible memory allocation.
type DeviceBufferDescriptor struct {
	// Size is the allocation size in bytes.
	Size int

	// StorageMode selects host-visible, device-private, or transient memory.
	StorageMode StorageMode

	// Label is an optional debug name applied to the native object.
	Label string
}

// DeviceBuffer is a backend-specific wrapper around a GPU-visible memory
// allocation.
//
// Contents written by the host are guaranteed visible to the GPU only after
// Flush; contents written by the GPU are guaranteed visible to the host only
// after Invalidate. Callers must not access a buffer from the host while the
// GPU may be reading or writing it — this boundary is enforced by convention,
// not by the type system. Resource tracking on the active command buffer
// (see CommandBuffer) keeps the buffer alive until GPU completion.
type DeviceBuffer interface {
	// Descriptor returns the creation descriptor.
	Descriptor() DeviceBufferDescriptor

	// Contents returns the mapped host memory, or nil when the buffer is not
	// host visible.
	Contents() []byte

	// CopyHostData copies data into the buffer at offset and flushes the
	// written range on non-coherent memory.
	CopyHostData(data []byte, offset int) error

	// Flush makes host writes in r visible to the GPU. A zero-length range
	// flushes the whole buffer.
	Flush(r Range) error

	// Invalidate makes GPU writes in r visible to the host. A zero-length
	// range invalidates the whole buffer.
	Invalidate(r Range) error

	// SetLabel applies a debug label to the native allocation.
	SetLabel(label string)
}

// BufferView is a non-owning byte range into a DeviceBuffer.
type BufferView struct {
	Buffer DeviceBuffer
	Range  Range
}

// IsValid reports whether the view references a buffer and a non-empty
// range.
func (v BufferView) IsValid() bool {
	return v.Buffer != nil && !v.Range.IsEmpty()
}

// VertexBuffer describes the vertex (and optional index) data for one draw.
//
// IndexType semantics: IndexTypeNone means a non-indexed draw and VertexCount
// counts vertices; Uint16/Uint32 mean an indexed draw through IndexBuffer and
// VertexCount counts indices; IndexTypeUnknown is always an error.
type VertexBuffer struct {
	VertexBuffer BufferView
	VertexCount  int
	IndexBuffer  BufferView
	IndexType    IndexType
}

// Validate checks the invariants a render pass relies on before binding.
func (b VertexBuffer) Validate() error {
	if b.IndexType == IndexTypeUnknown {
		return ErrUnknownIndexType
	}
	if !b.VertexBuffer.IsValid() {
		return ErrInvalidBufferView
	}
	if b.IndexType != IndexTypeNone && !b.IndexBuffer.IsValid() {
		return ErrInvalidBufferView
	}
	return nil
}

// BufferAllocator creates device buffers. Implemented by every backend
// device; geometry producers use it to upload vertex data.
type BufferAllocator interface {
	CreateDeviceBuffer(desc DeviceBufferDescriptor) (DeviceBuffer, error)
}
