// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v3.1/gles2"
)

// DefaultProcTable resolves GL entry points from the current context.
// A context must be current on the calling thread.
//
// The debug procs are left nil; KHR_debug is an extension at ES 3.1 and the
// binding does not load it.
func DefaultProcTable() (*ProcTable, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gles: initialize bindings: %w", err)
	}
	p := &ProcTable{
		ActiveTexture: gl.ActiveTexture,
		BindBuffer:    gl.BindBuffer,
		BindBufferRange: func(target, index, buffer uint32, offset, size int) {
			gl.BindBufferRange(target, index, buffer, offset, size)
		},
		BindFramebuffer:       gl.BindFramebuffer,
		BindTexture:           gl.BindTexture,
		BlendEquationSeparate: gl.BlendEquationSeparate,
		BlendFuncSeparate:     gl.BlendFuncSeparate,
		BufferData: func(target uint32, data []byte, usage uint32) {
			var ptr unsafe.Pointer
			if len(data) > 0 {
				ptr = gl.Ptr(data)
			}
			gl.BufferData(target, len(data), ptr, usage)
		},
		CheckFramebufferStatus: gl.CheckFramebufferStatus,
		Clear:                  gl.Clear,
		ClearColor:             gl.ClearColor,
		ClearDepthf:            gl.ClearDepthf,
		ClearStencil:           gl.ClearStencil,
		ColorMask:              gl.ColorMask,
		CreateProgram:          gl.CreateProgram,
		CullFace:               gl.CullFace,
		DeleteBuffer: func(buffer uint32) {
			gl.DeleteBuffers(1, &buffer)
		},
		DeleteFramebuffer: func(framebuffer uint32) {
			gl.DeleteFramebuffers(1, &framebuffer)
		},
		DeleteProgram: gl.DeleteProgram,
		DeleteRenderbuffer: func(renderbuffer uint32) {
			gl.DeleteRenderbuffers(1, &renderbuffer)
		},
		DeleteTexture: func(texture uint32) {
			gl.DeleteTextures(1, &texture)
		},
		FramebufferRenderbuffer:  gl.FramebufferRenderbuffer,
		RenderbufferStorage:      gl.RenderbufferStorage,
		BindRenderbuffer:         gl.BindRenderbuffer,
		DepthFunc:                gl.DepthFunc,
		DepthMask:                gl.DepthMask,
		Disable:                  gl.Disable,
		DisableVertexAttribArray: gl.DisableVertexAttribArray,
		DrawArrays:               gl.DrawArrays,
		DrawElements: func(mode uint32, count int32, xtype uint32, offset int) {
			gl.DrawElements(mode, count, xtype, gl.PtrOffset(offset))
		},
		Enable:                  gl.Enable,
		EnableVertexAttribArray: gl.EnableVertexAttribArray,
		FramebufferTexture2D:    gl.FramebufferTexture2D,
		FrontFace:               gl.FrontFace,
		GenBuffer: func() uint32 {
			var name uint32
			gl.GenBuffers(1, &name)
			return name
		},
		GenFramebuffer: func() uint32 {
			var name uint32
			gl.GenFramebuffers(1, &name)
			return name
		},
		GenRenderbuffer: func() uint32 {
			var name uint32
			gl.GenRenderbuffers(1, &name)
			return name
		},
		GenTexture: func() uint32 {
			var name uint32
			gl.GenTextures(1, &name)
			return name
		},
		ReadPixels: func(x, y, width, height int32, format, xtype uint32, data []byte) {
			gl.ReadPixels(x, y, width, height, format, xtype, gl.Ptr(data))
		},
		Scissor:             gl.Scissor,
		StencilFuncSeparate: gl.StencilFuncSeparate,
		StencilMaskSeparate: gl.StencilMaskSeparate,
		StencilOpSeparate:   gl.StencilOpSeparate,
		TexImage2D: func(target uint32, level, internalFormat, width, height int32, format, xtype uint32, data []byte) {
			var ptr unsafe.Pointer
			if len(data) > 0 {
				ptr = gl.Ptr(data)
			}
			gl.TexImage2D(target, level, internalFormat, width, height, 0, format, xtype, ptr)
		},
		TexSubImage2D: func(target uint32, level, xoffset, yoffset, width, height int32, format, xtype uint32, data []byte) {
			gl.TexSubImage2D(target, level, xoffset, yoffset, width, height, format, xtype, gl.Ptr(data))
		},
		TexParameteri: gl.TexParameteri,
		Uniform1i:     gl.Uniform1i,
		UseProgram:    gl.UseProgram,
		VertexAttribPointer: func(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int) {
			gl.VertexAttribPointer(index, size, xtype, normalized, stride, gl.PtrOffset(offset))
		},
		Viewport: gl.Viewport,
		InvalidateFramebuffer: func(target uint32, attachments []uint32) {
			if len(attachments) == 0 {
				return
			}
			gl.InvalidateFramebuffer(target, int32(len(attachments)), &attachments[0])
		},
	}
	return p, nil
}
