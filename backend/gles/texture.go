// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"fmt"

	"github.com/gogpu/ember"
)

// texFormat maps a pixel format to GL upload parameters.
type texFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

func glTexFormat(f ember.PixelFormat) (texFormat, bool) {
	switch f {
	case ember.PixelFormatR8UNorm:
		return texFormat{glR8, glRed, glUnsignedByte}, true
	case ember.PixelFormatRGBA8UNorm, ember.PixelFormatRGBA8UNormSRGB,
		ember.PixelFormatBGRA8UNorm, ember.PixelFormatBGRA8UNormSRGB:
		// ES has no BGRA internal format without extensions; BGRA content
		// is swizzled by the caller before upload.
		return texFormat{glRGBA8, glRGBA, glUnsignedByte}, true
	default:
		return texFormat{}, false
	}
}

// Texture is a GL texture or, for depth/stencil formats, a renderbuffer.
// Storage is allocated by a reactor operation enqueued at construction.
//
// A Texture may also wrap an externally owned framebuffer (usually the
// window system's default framebuffer). Wrapped textures own no GL object;
// render passes targeting them bind the wrapped FBO directly.
type Texture struct {
	reactor *Reactor
	desc    ember.TextureDescriptor
	handle  Handle

	wrapped    bool
	wrappedFBO uint32
}

var _ ember.Texture = (*Texture)(nil)

// NewTexture creates a texture and schedules storage allocation.
func NewTexture(reactor *Reactor, desc ember.TextureDescriptor) (*Texture, error) {
	if !desc.IsValid() {
		return nil, fmt.Errorf("gles: invalid texture descriptor %q", desc.Label)
	}
	typ := HandleTypeTexture
	if desc.Format.HasDepth() || desc.Format.HasStencil() {
		typ = HandleTypeRenderBuffer
	}
	t := &Texture{
		reactor: reactor,
		desc:    desc,
		handle:  reactor.CreateHandle(typ),
	}
	if desc.Label != "" {
		reactor.SetDebugLabel(t.handle, desc.Label)
	}
	if typ == HandleTypeTexture {
		if _, ok := glTexFormat(desc.Format); !ok {
			return nil, fmt.Errorf("gles: unsupported texture format %s", desc.Format)
		}
	}
	if err := reactor.AddOperation(t.allocateStorage); err != nil {
		return nil, err
	}
	return t, nil
}

// WrapBackbuffer returns a texture standing in for an externally owned
// framebuffer with the given GL name.
func WrapBackbuffer(reactor *Reactor, desc ember.TextureDescriptor, fbo uint32) *Texture {
	return &Texture{reactor: reactor, desc: desc, wrapped: true, wrappedFBO: fbo}
}

func (t *Texture) allocateStorage(r *Reactor) {
	name, ok := r.GLHandle(t.handle)
	if !ok {
		return
	}
	procs := r.Procs()
	if t.handle.Type() == HandleTypeRenderBuffer {
		internal := uint32(glDepth24Stencil8)
		if t.desc.Format == ember.PixelFormatS8UInt {
			internal = glStencilIndex8
		}
		procs.BindRenderbuffer(glRenderbuffer, name)
		procs.RenderbufferStorage(glRenderbuffer, internal,
			int32(t.desc.Size.Width), int32(t.desc.Size.Height))
		procs.BindRenderbuffer(glRenderbuffer, 0)
		return
	}
	tf, ok := glTexFormat(t.desc.Format)
	if !ok {
		return
	}
	procs.BindTexture(glTexture2D, name)
	procs.TexImage2D(glTexture2D, 0, tf.internal,
		int32(t.desc.Size.Width), int32(t.desc.Size.Height), tf.format, tf.xtype, nil)
	procs.TexParameteri(glTexture2D, glTextureMinFilter, glLinear)
	procs.TexParameteri(glTexture2D, glTextureMagFilter, glLinear)
	procs.BindTexture(glTexture2D, 0)
}

func (t *Texture) Descriptor() ember.TextureDescriptor { return t.desc }

// IsValid reports whether the texture still names a live resource.
func (t *Texture) IsValid() bool { return t.wrapped || !t.handle.IsDead() }

func (t *Texture) Size() ember.ISize { return t.desc.Size }

func (t *Texture) SetLabel(label string) {
	t.desc.Label = label
	if !t.wrapped {
		t.reactor.SetDebugLabel(t.handle, label)
	}
}

// IsWrapped reports whether the texture wraps an external framebuffer.
func (t *Texture) IsWrapped() bool { return t.wrapped }

// WrappedFBO returns the wrapped framebuffer name. Meaningful only when
// IsWrapped reports true.
func (t *Texture) WrappedFBO() uint32 { return t.wrappedFBO }

// Release schedules the underlying GL object for collection. A no-op for
// wrapped textures.
func (t *Texture) Release() {
	if !t.wrapped {
		t.reactor.CollectHandle(t.handle)
	}
}

// attachToFramebuffer attaches the texture to the bound framebuffer at the
// given attachment point. Reactor thread only.
func (t *Texture) attachToFramebuffer(attachment uint32) bool {
	name, ok := t.reactor.GLHandle(t.handle)
	if !ok {
		return false
	}
	procs := t.reactor.Procs()
	if t.handle.Type() == HandleTypeRenderBuffer {
		procs.FramebufferRenderbuffer(glFramebuffer, attachment, glRenderbuffer, name)
	} else {
		procs.FramebufferTexture2D(glFramebuffer, attachment, glTexture2D, name, 0)
	}
	return true
}

// bind binds the texture to the active texture unit and applies sampler
// state. Reactor thread only.
func (t *Texture) bind(sampler *Sampler) bool {
	name, ok := t.reactor.GLHandle(t.handle)
	if !ok {
		return false
	}
	procs := t.reactor.Procs()
	procs.BindTexture(glTexture2D, name)
	if sampler != nil {
		sampler.apply(procs)
	}
	return true
}

// Sampler carries filtering and addressing state. GL at this feature level
// has no standalone sampler objects, so the state is applied as texture
// parameters at bind time.
type Sampler struct {
	desc ember.SamplerDescriptor
}

var _ ember.Sampler = (*Sampler)(nil)

func NewSampler(desc ember.SamplerDescriptor) *Sampler { return &Sampler{desc: desc} }

func (s *Sampler) Descriptor() ember.SamplerDescriptor { return s.desc }

func (s *Sampler) apply(procs *ProcTable) {
	procs.TexParameteri(glTexture2D, glTextureMinFilter, int32(glFilter(s.desc.MinFilter)))
	procs.TexParameteri(glTexture2D, glTextureMagFilter, int32(glFilter(s.desc.MagFilter)))
	procs.TexParameteri(glTexture2D, glTextureWrapS, int32(glAddressMode(s.desc.AddressModeU)))
	procs.TexParameteri(glTexture2D, glTextureWrapT, int32(glAddressMode(s.desc.AddressModeV)))
}

func glFilter(f ember.SamplerFilter) uint32 {
	if f == ember.SamplerFilterNearest {
		return glNearest
	}
	return glLinear
}

func glAddressMode(m ember.SamplerAddressMode) uint32 {
	switch m {
	case ember.SamplerAddressRepeat:
		return glRepeat
	case ember.SamplerAddressMirror:
		return glMirroredRepeat
	default:
		return glClampToEdge
	}
}
