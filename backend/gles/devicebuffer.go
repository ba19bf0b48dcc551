// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"fmt"
	"sync"

	"github.com/gogpu/ember"
)

// DeviceBuffer is a host-allocated buffer whose contents are uploaded to a
// GL buffer object on demand. GL offers no persistent host mapping at this
// feature level, so Contents always exposes the host copy and the upload
// happens lazily when a render pass binds the buffer on the reactor thread.
type DeviceBuffer struct {
	reactor *Reactor
	desc    ember.DeviceBufferDescriptor
	handle  Handle

	mu       sync.Mutex
	data     []byte
	written  uint64 // bumped on every host write
	uploaded uint64 // written value at last upload
}

var _ ember.DeviceBuffer = (*DeviceBuffer)(nil)

// NewDeviceBuffer allocates host storage and mints the buffer handle. The
// GL object is realized by the reactor.
func NewDeviceBuffer(reactor *Reactor, desc ember.DeviceBufferDescriptor) (*DeviceBuffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("gles: zero-size buffer %q", desc.Label)
	}
	b := &DeviceBuffer{
		reactor: reactor,
		desc:    desc,
		handle:  reactor.CreateHandle(HandleTypeBuffer),
		data:    make([]byte, desc.Size),
		written: 1, // force the initial upload
	}
	if desc.Label != "" {
		reactor.SetDebugLabel(b.handle, desc.Label)
	}
	return b, nil
}

func (b *DeviceBuffer) Descriptor() ember.DeviceBufferDescriptor { return b.desc }

// Contents returns the host copy of the buffer. Writes become visible to
// draws after Flush.
func (b *DeviceBuffer) Contents() []byte { return b.data }

func (b *DeviceBuffer) CopyHostData(data []byte, offset int) error {
	if offset < 0 || offset+len(data) > b.desc.Size {
		return fmt.Errorf("%w: copy of %d bytes at offset %d into buffer of size %d",
			ember.ErrBufferRangeOutOfBounds, len(data), offset, b.desc.Size)
	}
	b.mu.Lock()
	copy(b.data[offset:], data)
	b.written++
	b.mu.Unlock()
	return nil
}

// Flush marks host writes complete so the next bind re-uploads. The range
// is advisory; GL buffer data is uploaded whole.
func (b *DeviceBuffer) Flush(_ ember.Range) error {
	b.mu.Lock()
	b.written++
	b.mu.Unlock()
	return nil
}

// Invalidate is a no-op: the host copy is authoritative and the device
// never writes back.
func (b *DeviceBuffer) Invalidate(_ ember.Range) error { return nil }

func (b *DeviceBuffer) SetLabel(label string) {
	b.desc.Label = label
	b.reactor.SetDebugLabel(b.handle, label)
}

// Release schedules the GL buffer for collection.
func (b *DeviceBuffer) Release() { b.reactor.CollectHandle(b.handle) }

// bindAndUpload binds the buffer to target on the reactor thread and
// uploads the host copy if it changed since the last upload. Reports
// whether the buffer was bound.
func (b *DeviceBuffer) bindAndUpload(target uint32) bool {
	name, ok := b.reactor.GLHandle(b.handle)
	if !ok {
		return false
	}
	procs := b.reactor.Procs()
	procs.BindBuffer(target, name)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploaded != b.written {
		procs.BufferData(target, b.data, glDynamicDraw)
		b.uploaded = b.written
	}
	return true
}

// glName resolves the realized GL name. Reactor thread only.
func (b *DeviceBuffer) glName() (uint32, bool) {
	return b.reactor.GLHandle(b.handle)
}
