// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gles implements the ember backend for OpenGL ES.
//
// GL has no native concept of deferred command buffers: calls execute
// immediately against a thread-bound context. The package therefore funnels
// every driver call through a Reactor, which decouples resource creation
// (thread-agnostic) from resource realization (GL-capable thread only) and
// serializes operations enqueued from arbitrary threads.
package gles

import (
	"errors"
	"fmt"
	"reflect"
)

// GL enum values used by this backend. Kept here so the rest of the package
// never imports the binding package directly.
const (
	glNone = 0

	glPoints        = 0x0000
	glLines         = 0x0001
	glLineStrip     = 0x0003
	glTriangles     = 0x0004
	glTriangleStrip = 0x0005

	glDepthBufferBit   = 0x00000100
	glStencilBufferBit = 0x00000400
	glColorBufferBit   = 0x00004000

	glBlend       = 0x0BE2
	glDepthTest   = 0x0B71
	glStencilTest = 0x0B90
	glCullFace    = 0x0B44
	glScissorTest = 0x0C11
	glDither      = 0x0BD0

	glFront        = 0x0404
	glBack         = 0x0405
	glFrontAndBack = 0x0408

	glCW  = 0x0900
	glCCW = 0x0901

	glFramebuffer         = 0x8D40
	glRenderbuffer        = 0x8D41
	glColorAttachment0    = 0x8CE0
	glDepthAttachment     = 0x8D00
	glStencilAttachment   = 0x8D20
	glFramebufferComplete = 0x8CD5

	glTexture2D = 0x0DE1
	glTexture0  = 0x84C0

	glArrayBuffer        = 0x8892
	glElementArrayBuffer = 0x8893
	glUniformBuffer      = 0x8A11

	glDynamicDraw = 0x88E8

	glUnsignedByte  = 0x1401
	glUnsignedShort = 0x1403
	glUnsignedInt   = 0x1405
	glFloat         = 0x1406

	glNever    = 0x0200
	glLess     = 0x0201
	glEqual    = 0x0202
	glLEqual   = 0x0203
	glGreater  = 0x0204
	glNotEqual = 0x0205
	glGEqual   = 0x0206
	glAlways   = 0x0207

	glZero     = 0
	glOne      = 1
	glKeep     = 0x1E00
	glReplace  = 0x1E01
	glIncr     = 0x1E02
	glDecr     = 0x1E03
	glInvert   = 0x150A
	glIncrWrap = 0x8507
	glDecrWrap = 0x8508

	glSrcAlpha         = 0x0302
	glOneMinusSrcAlpha = 0x0303
	glDstAlpha         = 0x0304
	glOneMinusDstAlpha = 0x0305

	glFuncAdd             = 0x8006
	glFuncSubtract        = 0x800A
	glFuncReverseSubtract = 0x800B

	glRGBA                   = 0x1908
	glRGBA8                  = 0x8058
	glRed                    = 0x1903
	glR8                     = 0x8229
	glDepth24Stencil8        = 0x88F0
	glStencilIndex8          = 0x8D48
	glDepthStencilAttachment = 0x821A

	glTextureMinFilter = 0x2801
	glTextureMagFilter = 0x2800
	glTextureWrapS     = 0x2802
	glTextureWrapT     = 0x2803
	glNearest          = 0x2600
	glLinear           = 0x2601
	glClampToEdge      = 0x812F
	glRepeat           = 0x2901
	glMirroredRepeat   = 0x8370
)

// ErrIncompleteProcTable is returned when a required proc is missing.
var ErrIncompleteProcTable = errors.New("gles: proc table is incomplete")

// ProcTable is the set of GL entry points the backend calls. Every driver
// call the package makes goes through one of these function fields — never
// through the binding package directly — so that the Reactor can mediate
// all GL access and tests can substitute a recording implementation.
//
// Buffer offsets and sizes are plain ints and bulk data is []byte; the
// default table (see DefaultProcTable) adapts these to the binding's
// pointer-based signatures.
type ProcTable struct {
	ActiveTexture            func(unit uint32)
	BindBuffer               func(target, buffer uint32)
	BindBufferRange          func(target, index, buffer uint32, offset, size int)
	BindFramebuffer          func(target, framebuffer uint32)
	BindTexture              func(target, texture uint32)
	BlendEquationSeparate    func(modeRGB, modeAlpha uint32)
	BlendFuncSeparate        func(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)
	BufferData               func(target uint32, data []byte, usage uint32)
	CheckFramebufferStatus   func(target uint32) uint32
	Clear                    func(mask uint32)
	ClearColor               func(r, g, b, a float32)
	ClearDepthf              func(d float32)
	ClearStencil             func(s int32)
	ColorMask                func(r, g, b, a bool)
	CreateProgram            func() uint32
	CullFace                 func(mode uint32)
	DeleteBuffer             func(buffer uint32)
	DeleteFramebuffer        func(framebuffer uint32)
	DeleteProgram            func(program uint32)
	DeleteRenderbuffer       func(renderbuffer uint32)
	DeleteTexture            func(texture uint32)
	DepthFunc                func(fn uint32)
	DepthMask                func(flag bool)
	Disable                  func(capability uint32)
	DisableVertexAttribArray func(index uint32)
	DrawArrays               func(mode uint32, first, count int32)
	DrawElements             func(mode uint32, count int32, xtype uint32, offset int)
	Enable                   func(capability uint32)
	EnableVertexAttribArray  func(index uint32)
	FramebufferRenderbuffer  func(target, attachment, renderbuffertarget, renderbuffer uint32)
	FramebufferTexture2D     func(target, attachment, textarget, texture uint32, level int32)
	FrontFace                func(mode uint32)
	GenBuffer                func() uint32
	GenFramebuffer           func() uint32
	GenRenderbuffer          func() uint32
	GenTexture               func() uint32
	ReadPixels               func(x, y, width, height int32, format, xtype uint32, data []byte)
	RenderbufferStorage      func(target, internalFormat uint32, width, height int32)
	BindRenderbuffer         func(target, renderbuffer uint32)
	Scissor                  func(x, y, width, height int32)
	StencilFuncSeparate      func(face, fn uint32, ref int32, mask uint32)
	StencilMaskSeparate      func(face, mask uint32)
	StencilOpSeparate        func(face, sfail, dpfail, dppass uint32)
	TexImage2D               func(target uint32, level, internalFormat, width, height int32, format, xtype uint32, data []byte)
	TexSubImage2D            func(target uint32, level, xoffset, yoffset, width, height int32, format, xtype uint32, data []byte)
	TexParameteri            func(target, pname uint32, param int32)
	Uniform1i                func(location, v int32)
	UseProgram               func(program uint32)
	VertexAttribPointer      func(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int)
	Viewport                 func(x, y, width, height int32)

	// Optional debug procs. Nil when the KHR_debug extension is not
	// available; callers must check before use.
	PushDebugGroup func(label string)
	PopDebugGroup  func()
	ObjectLabel    func(identifier, name uint32, label string)

	// InvalidateFramebuffer is optional (ES 3.0); nil disables attachment
	// discard at pass end.
	InvalidateFramebuffer func(target uint32, attachments []uint32)
}

// optionalProcs are the fields Complete is allowed to find nil.
var optionalProcs = map[string]bool{
	"PushDebugGroup":        true,
	"PopDebugGroup":         true,
	"ObjectLabel":           true,
	"InvalidateFramebuffer": true,
}

// Complete checks that every required proc is present.
func (p *ProcTable) Complete() error {
	v := reflect.ValueOf(*p)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if optionalProcs[t.Field(i).Name] {
			continue
		}
		if v.Field(i).IsNil() {
			return fmt.Errorf("%w: missing %s", ErrIncompleteProcTable, t.Field(i).Name)
		}
	}
	return nil
}

// CanSetDebugLabels reports whether the debug-label proc is available.
func (p *ProcTable) CanSetDebugLabels() bool { return p.ObjectLabel != nil }
