// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"testing"
)

// fakeBuffer is a host-memory DeviceBuffer for encoding tests.
type fakeBuffer struct {
	desc DeviceBufferDescriptor
	data []byte
}

func (b *fakeBuffer) Descriptor() DeviceBufferDescriptor { return b.desc }
func (b *fakeBuffer) Contents() []byte                   { return b.data }
func (b *fakeBuffer) Flush(Range) error                  { return nil }
func (b *fakeBuffer) Invalidate(Range) error             { return nil }
func (b *fakeBuffer) SetLabel(label string)              { b.desc.Label = label }

func (b *fakeBuffer) CopyHostData(data []byte, offset int) error {
	if offset < 0 || offset+len(data) > len(b.data) {
		return ErrBufferRangeOutOfBounds
	}
	copy(b.data[offset:], data)
	return nil
}

// fakeAllocator hands out fakeBuffers and records every allocation.
type fakeAllocator struct {
	buffers []*fakeBuffer
	fail    error
}

func (a *fakeAllocator) CreateDeviceBuffer(desc DeviceBufferDescriptor) (DeviceBuffer, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	b := &fakeBuffer{desc: desc, data: make([]byte, desc.Size)}
	a.buffers = append(a.buffers, b)
	return b, nil
}

func testView(length int) BufferView {
	return BufferView{
		Buffer: &fakeBuffer{data: make([]byte, length)},
		Range:  Range{Length: length},
	}
}

func TestBufferViewIsValid(t *testing.T) {
	tests := []struct {
		name string
		view BufferView
		want bool
	}{
		{"nil buffer", BufferView{Range: Range{Length: 16}}, false},
		{"empty range", BufferView{Buffer: &fakeBuffer{}}, false},
		{"negative length", BufferView{Buffer: &fakeBuffer{}, Range: Range{Length: -1}}, false},
		{"valid", testView(16), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.view.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVertexBufferValidate(t *testing.T) {
	tests := []struct {
		name    string
		vb      VertexBuffer
		wantErr error
	}{
		{
			name:    "unknown index type",
			vb:      VertexBuffer{VertexBuffer: testView(64), VertexCount: 4},
			wantErr: ErrUnknownIndexType,
		},
		{
			name:    "missing vertex view",
			vb:      VertexBuffer{VertexCount: 4, IndexType: IndexTypeNone},
			wantErr: ErrInvalidBufferView,
		},
		{
			name:    "indexed without index buffer",
			vb:      VertexBuffer{VertexBuffer: testView(64), VertexCount: 6, IndexType: IndexTypeUint16},
			wantErr: ErrInvalidBufferView,
		},
		{
			name: "non-indexed",
			vb:   VertexBuffer{VertexBuffer: testView(64), VertexCount: 4, IndexType: IndexTypeNone},
		},
		{
			name: "indexed",
			vb: VertexBuffer{
				VertexBuffer: testView(64),
				VertexCount:  6,
				IndexBuffer:  testView(12),
				IndexType:    IndexTypeUint16,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vb.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVertexBufferBuilderAppendPads(t *testing.T) {
	b := NewVertexBufferBuilder(4)
	b.Append(1, 2) // short vertex, padded to 4 components
	b.Append(3, 4, 5, 6)
	if got := b.VertexCount(); got != 2 {
		t.Fatalf("VertexCount() = %d, want 2", got)
	}
}

func TestVertexBufferBuilderBuild(t *testing.T) {
	alloc := &fakeAllocator{}
	vb, err := NewVertexBufferBuilder(2).
		Append(1, 2).
		Append(3, 4).
		Build(alloc, "test vertices")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if vb.VertexCount != 2 {
		t.Errorf("VertexCount = %d, want 2", vb.VertexCount)
	}
	if vb.IndexType != IndexTypeNone {
		t.Errorf("IndexType = %v, want None", vb.IndexType)
	}
	if len(alloc.buffers) != 1 {
		t.Fatalf("allocations = %d, want 1", len(alloc.buffers))
	}
	buf := alloc.buffers[0]
	if buf.desc.Label != "test vertices" {
		t.Errorf("Label = %q, want %q", buf.desc.Label, "test vertices")
	}
	if buf.desc.StorageMode != StorageModeHostVisible {
		t.Errorf("StorageMode = %v, want HostVisible", buf.desc.StorageMode)
	}
	want := []float32{1, 2, 3, 4}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf.data[i*4:]))
		if got != w {
			t.Errorf("float %d = %g, want %g", i, got, w)
		}
	}
}

func TestVertexBufferBuilderBuildEmpty(t *testing.T) {
	alloc := &fakeAllocator{}
	vb, err := NewVertexBufferBuilder(2).Build(alloc, "empty")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if vb.VertexCount != 0 || vb.IndexType != IndexTypeNone {
		t.Errorf("empty build = %+v, want zero-vertex non-indexed", vb)
	}
	if len(alloc.buffers) != 0 {
		t.Errorf("empty build allocated %d buffers", len(alloc.buffers))
	}
}

func TestVertexBufferBuilderBuildAllocFails(t *testing.T) {
	alloc := &fakeAllocator{fail: fmt.Errorf("out of memory")}
	_, err := NewVertexBufferBuilder(2).Append(1, 2).Build(alloc, "fails")
	if err == nil {
		t.Fatal("Build() with failing allocator returned nil error")
	}
}
