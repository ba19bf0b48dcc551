// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import "sync/atomic"

// HandleType classifies the GL object a Handle stands for.
type HandleType uint8

const (
	HandleTypeUnknown HandleType = iota
	HandleTypeTexture
	HandleTypeBuffer
	HandleTypeProgram
	HandleTypeRenderBuffer
	HandleTypeFrameBuffer
)

func (t HandleType) String() string {
	switch t {
	case HandleTypeTexture:
		return "texture"
	case HandleTypeBuffer:
		return "buffer"
	case HandleTypeProgram:
		return "program"
	case HandleTypeRenderBuffer:
		return "renderbuffer"
	case HandleTypeFrameBuffer:
		return "framebuffer"
	default:
		return "unknown"
	}
}

var handleIDs atomic.Uint64

// Handle is a stable, thread-agnostic identity for a GL object. The
// underlying GL name may not exist yet; it is realized by the Reactor the
// next time a reaction runs on a GL-capable thread. Handles are comparable
// and usable as map keys.
//
// The zero Handle is the dead handle: it names nothing and is never live.
type Handle struct {
	typ HandleType
	id  uint64
}

// DeadHandle returns the handle that names nothing.
func DeadHandle() Handle { return Handle{} }

// IsDead reports whether h names nothing.
func (h Handle) IsDead() bool { return h.id == 0 }

// Type returns the handle's object type.
func (h Handle) Type() HandleType { return h.typ }

func newHandle(typ HandleType) Handle {
	if typ == HandleTypeUnknown {
		return DeadHandle()
	}
	return Handle{typ: typ, id: handleIDs.Add(1)}
}

// liveHandle is the reactor-side state backing a Handle.
type liveHandle struct {
	name     uint32
	realized bool

	pendingCollection bool
	pendingDebugLabel string
}
