// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"fmt"
	"strings"
	"testing"
)

// glRecorder captures the GL call stream a fake proc table produces so
// tests can assert on ordering and arguments without a context.
type glRecorder struct {
	calls []string

	nextName     uint32
	framebuffers int
	deleted      []string
}

func (g *glRecorder) record(format string, args ...any) {
	g.calls = append(g.calls, fmt.Sprintf(format, args...))
}

func (g *glRecorder) gen(kind string) uint32 {
	g.nextName++
	g.record("Gen%s(%d)", kind, g.nextName)
	return g.nextName
}

// has reports whether any recorded call contains sub.
func (g *glRecorder) has(sub string) bool {
	for _, c := range g.calls {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

// indexOf returns the position of the first call containing sub, or -1.
func (g *glRecorder) indexOf(sub string) int {
	for i, c := range g.calls {
		if strings.Contains(c, sub) {
			return i
		}
	}
	return -1
}

// fakeProcTable returns a complete proc table that records every call.
func fakeProcTable() (*ProcTable, *glRecorder) {
	g := &glRecorder{}
	p := &ProcTable{
		ActiveTexture: func(unit uint32) { g.record("ActiveTexture(%#x)", unit) },
		BindBuffer:    func(target, buffer uint32) { g.record("BindBuffer(%#x, %d)", target, buffer) },
		BindBufferRange: func(target, index, buffer uint32, offset, size int) {
			g.record("BindBufferRange(%#x, %d, %d, %d, %d)", target, index, buffer, offset, size)
		},
		BindFramebuffer: func(target, framebuffer uint32) {
			g.record("BindFramebuffer(%d)", framebuffer)
		},
		BindRenderbuffer: func(target, renderbuffer uint32) {
			g.record("BindRenderbuffer(%d)", renderbuffer)
		},
		BindTexture: func(target, texture uint32) { g.record("BindTexture(%d)", texture) },
		BlendEquationSeparate: func(modeRGB, modeAlpha uint32) {
			g.record("BlendEquationSeparate(%#x, %#x)", modeRGB, modeAlpha)
		},
		BlendFuncSeparate: func(srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
			g.record("BlendFuncSeparate(%#x, %#x, %#x, %#x)", srcRGB, dstRGB, srcAlpha, dstAlpha)
		},
		BufferData: func(target uint32, data []byte, usage uint32) {
			g.record("BufferData(%#x, %d bytes)", target, len(data))
		},
		CheckFramebufferStatus: func(target uint32) uint32 {
			g.record("CheckFramebufferStatus()")
			return glFramebufferComplete
		},
		Clear:         func(mask uint32) { g.record("Clear(%#x)", mask) },
		ClearColor:    func(r, gr, b, a float32) { g.record("ClearColor(%g, %g, %g, %g)", r, gr, b, a) },
		ClearDepthf:   func(d float32) { g.record("ClearDepthf(%g)", d) },
		ClearStencil:  func(s int32) { g.record("ClearStencil(%d)", s) },
		ColorMask:     func(r, gr, b, a bool) { g.record("ColorMask(%t, %t, %t, %t)", r, gr, b, a) },
		CreateProgram: func() uint32 { return g.gen("Program") },
		CullFace:      func(mode uint32) { g.record("CullFace(%#x)", mode) },
		DeleteBuffer: func(buffer uint32) {
			g.record("DeleteBuffer(%d)", buffer)
			g.deleted = append(g.deleted, fmt.Sprintf("buffer/%d", buffer))
		},
		DeleteFramebuffer: func(framebuffer uint32) {
			g.record("DeleteFramebuffer(%d)", framebuffer)
			g.framebuffers--
		},
		DeleteProgram: func(program uint32) {
			g.record("DeleteProgram(%d)", program)
			g.deleted = append(g.deleted, fmt.Sprintf("program/%d", program))
		},
		DeleteRenderbuffer: func(renderbuffer uint32) {
			g.record("DeleteRenderbuffer(%d)", renderbuffer)
			g.deleted = append(g.deleted, fmt.Sprintf("renderbuffer/%d", renderbuffer))
		},
		DeleteTexture: func(texture uint32) {
			g.record("DeleteTexture(%d)", texture)
			g.deleted = append(g.deleted, fmt.Sprintf("texture/%d", texture))
		},
		DepthFunc: func(fn uint32) { g.record("DepthFunc(%#x)", fn) },
		DepthMask: func(flag bool) { g.record("DepthMask(%t)", flag) },
		Disable:   func(capability uint32) { g.record("Disable(%#x)", capability) },
		DisableVertexAttribArray: func(index uint32) {
			g.record("DisableVertexAttribArray(%d)", index)
		},
		DrawArrays: func(mode uint32, first, count int32) {
			g.record("DrawArrays(%#x, %d, %d)", mode, first, count)
		},
		DrawElements: func(mode uint32, count int32, xtype uint32, offset int) {
			g.record("DrawElements(%#x, %d, %#x, %d)", mode, count, xtype, offset)
		},
		Enable: func(capability uint32) { g.record("Enable(%#x)", capability) },
		EnableVertexAttribArray: func(index uint32) {
			g.record("EnableVertexAttribArray(%d)", index)
		},
		FramebufferRenderbuffer: func(target, attachment, renderbuffertarget, renderbuffer uint32) {
			g.record("FramebufferRenderbuffer(%#x, %d)", attachment, renderbuffer)
		},
		FramebufferTexture2D: func(target, attachment, textarget, texture uint32, level int32) {
			g.record("FramebufferTexture2D(%#x, %d)", attachment, texture)
		},
		FrontFace: func(mode uint32) { g.record("FrontFace(%#x)", mode) },
		GenBuffer: func() uint32 { return g.gen("Buffer") },
		GenFramebuffer: func() uint32 {
			g.framebuffers++
			return g.gen("Framebuffer")
		},
		GenRenderbuffer: func() uint32 { return g.gen("Renderbuffer") },
		GenTexture:      func() uint32 { return g.gen("Texture") },
		ReadPixels: func(x, y, width, height int32, format, xtype uint32, data []byte) {
			g.record("ReadPixels(%d, %d, %d, %d)", x, y, width, height)
		},
		RenderbufferStorage: func(target, internalFormat uint32, width, height int32) {
			g.record("RenderbufferStorage(%#x, %d, %d)", internalFormat, width, height)
		},
		Scissor: func(x, y, width, height int32) {
			g.record("Scissor(%d, %d, %d, %d)", x, y, width, height)
		},
		StencilFuncSeparate: func(face, fn uint32, ref int32, mask uint32) {
			g.record("StencilFuncSeparate(%#x, %#x, %d, %#x)", face, fn, ref, mask)
		},
		StencilMaskSeparate: func(face, mask uint32) {
			g.record("StencilMaskSeparate(%#x, %#x)", face, mask)
		},
		StencilOpSeparate: func(face, sfail, dpfail, dppass uint32) {
			g.record("StencilOpSeparate(%#x, %#x, %#x, %#x)", face, sfail, dpfail, dppass)
		},
		TexImage2D: func(target uint32, level, internalFormat, width, height int32, format, xtype uint32, data []byte) {
			g.record("TexImage2D(%d, %d)", width, height)
		},
		TexSubImage2D: func(target uint32, level, xoffset, yoffset, width, height int32, format, xtype uint32, data []byte) {
			g.record("TexSubImage2D(%d, %d, %d, %d)", xoffset, yoffset, width, height)
		},
		TexParameteri: func(target, pname uint32, param int32) {
			g.record("TexParameteri(%#x, %d)", pname, param)
		},
		Uniform1i:  func(location, v int32) { g.record("Uniform1i(%d, %d)", location, v) },
		UseProgram: func(program uint32) { g.record("UseProgram(%d)", program) },
		VertexAttribPointer: func(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int) {
			g.record("VertexAttribPointer(%d, %d, %d, %d)", index, size, stride, offset)
		},
		Viewport: func(x, y, width, height int32) {
			g.record("Viewport(%d, %d, %d, %d)", x, y, width, height)
		},
		InvalidateFramebuffer: func(target uint32, attachments []uint32) {
			g.record("InvalidateFramebuffer(%v)", attachments)
		},
	}
	return p, g
}

// alwaysWorker vouches for every goroutine. Tests that need deferral use
// neverWorker or no worker at all.
var alwaysWorker = WorkerFunc(func(*Reactor) bool { return true })

var neverWorker = WorkerFunc(func(*Reactor) bool { return false })

// newTestReactor returns a reactor with a recording proc table and an
// always-eligible worker.
func newTestReactor(t *testing.T) (*Reactor, *glRecorder) {
	t.Helper()
	procs, g := fakeProcTable()
	r, err := NewReactor(procs)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	r.AddWorker(alwaysWorker)
	return r, g
}
