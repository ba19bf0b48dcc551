// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import (
	"encoding/binary"
	"math"
)

// GeometryMode describes how a geometry's triangles may overlap, which
// determines the stencil strategy the pass above this layer must apply.
type GeometryMode uint32

const (
	// GeometryModeNormal geometry has no overlapping triangles.
	GeometryModeNormal GeometryMode = iota

	// GeometryModeNonZero geometry may self-overlap and should be stenciled
	// with the non-zero fill rule.
	GeometryModeNonZero

	// GeometryModeEvenOdd geometry may self-overlap and should be stenciled
	// with the even-odd fill rule.
	GeometryModeEvenOdd

	// GeometryModePreventOverdraw geometry may overlap but must not overdraw
	// or cancel itself out; used for stroke geometry.
	GeometryModePreventOverdraw
)

// GeometryResult is the contract between geometry producers and the render
// pass: assembled vertex data plus the primitive type and overlap mode.
type GeometryResult struct {
	Type         PrimitiveType
	VertexBuffer VertexBuffer
	Transform    [16]float32
	Mode         GeometryMode
}

// EmptyGeometryResult is the result for geometry that covers nothing. Its
// vertex buffer carries IndexTypeNone so it encodes as a zero-vertex
// non-indexed draw.
var EmptyGeometryResult = GeometryResult{
	Type:         PrimitiveTriangleStrip,
	VertexBuffer: VertexBuffer{IndexType: IndexTypeNone},
}

// VertexBufferBuilder accumulates float32 vertex data on the host and
// uploads it into a freshly allocated host-visible device buffer.
//
// The builder is for one-shot transient geometry; persistent meshes should
// manage their own device buffers.
type VertexBufferBuilder struct {
	data       []float32
	components int
}

// NewVertexBufferBuilder returns a builder for vertices of the given number
// of float32 components.
func NewVertexBufferBuilder(components int) *VertexBufferBuilder {
	return &VertexBufferBuilder{components: components}
}

// Append adds one vertex. The number of values must match the builder's
// component count; short vertices are zero-padded.
func (b *VertexBufferBuilder) Append(values ...float32) *VertexBufferBuilder {
	b.data = append(b.data, values...)
	for i := len(values); i < b.components; i++ {
		b.data = append(b.data, 0)
	}
	return b
}

// VertexCount returns the number of complete vertices appended.
func (b *VertexBufferBuilder) VertexCount() int {
	if b.components == 0 {
		return 0
	}
	return len(b.data) / b.components
}

// Build uploads the accumulated data through alloc and returns a
// non-indexed VertexBuffer view over it.
func (b *VertexBufferBuilder) Build(alloc BufferAllocator, label string) (VertexBuffer, error) {
	byteLen := len(b.data) * 4
	if byteLen == 0 {
		return VertexBuffer{IndexType: IndexTypeNone}, nil
	}
	buf, err := alloc.CreateDeviceBuffer(DeviceBufferDescriptor{
		Size:        byteLen,
		StorageMode: StorageModeHostVisible,
		Label:       label,
	})
	if err != nil {
		return VertexBuffer{}, err
	}
	raw := make([]byte, byteLen)
	for i, v := range b.data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	if err := buf.CopyHostData(raw, 0); err != nil {
		return VertexBuffer{}, err
	}
	return VertexBuffer{
		VertexBuffer: BufferView{Buffer: buf, Range: Range{Length: byteLen}},
		VertexCount:  b.VertexCount(),
		IndexType:    IndexTypeNone,
	}, nil
}
