// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"sync"

	"github.com/gogpu/ember"
)

// CommandBuffer collects the work of its passes as reactor operations.
// Submission order is the order the passes called EncodeCommands; Submit
// itself only schedules the completion callback behind them.
type CommandBuffer struct {
	reactor *Reactor
	label   string

	mu        sync.Mutex
	submitted bool
	tracked   []any
}

var _ ember.CommandBuffer = (*CommandBuffer)(nil)

func newCommandBuffer(reactor *Reactor) *CommandBuffer {
	return &CommandBuffer{reactor: reactor}
}

func (c *CommandBuffer) IsValid() bool { return c.reactor != nil }

func (c *CommandBuffer) SetLabel(label string) { c.label = label }

func (c *CommandBuffer) CreateRenderPass(target ember.RenderTarget) (ember.RenderPass, error) {
	if !c.IsValid() {
		return nil, ember.ErrCommandBufferInvalid
	}
	return newRenderPass(c, target)
}

func (c *CommandBuffer) CreateBlitPass() (ember.BlitPass, error) {
	if !c.IsValid() {
		return nil, ember.ErrCommandBufferInvalid
	}
	return &BlitPass{cb: c, valid: true}, nil
}

// Submit enqueues the completion callback behind every operation the
// buffer's passes produced. Tracked resources are released when it runs.
func (c *CommandBuffer) Submit(onComplete func(error)) error {
	if !c.IsValid() {
		err := ember.ErrCommandBufferInvalid
		if onComplete != nil {
			onComplete(err)
		}
		return err
	}
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		err := ember.ErrAlreadySubmitted
		if onComplete != nil {
			onComplete(err)
		}
		return err
	}
	c.submitted = true
	c.mu.Unlock()
	return c.reactor.AddOperation(func(r *Reactor) {
		c.mu.Lock()
		c.tracked = nil
		c.mu.Unlock()
		if onComplete != nil {
			onComplete(nil)
		}
	})
}

// track keeps resource alive until the buffer's work completes on the
// reactor. Reports false once the buffer has been submitted.
func (c *CommandBuffer) track(resource any) bool {
	if resource == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return false
	}
	c.tracked = append(c.tracked, resource)
	return true
}

// BlitPass performs buffer/texture transfers as reactor operations.
type BlitPass struct {
	cb    *CommandBuffer
	label string
	valid bool
	ended bool

	ops []Operation
}

var _ ember.BlitPass = (*BlitPass)(nil)

func (p *BlitPass) IsValid() bool { return p.valid && !p.ended }

func (p *BlitPass) SetLabel(label string) { p.label = label }

// CopyTextureToBuffer reads region back into view's range. The texture must
// be attached to a framebuffer to be readable; a transient FBO is used.
func (p *BlitPass) CopyTextureToBuffer(texture ember.Texture, region ember.IRect, view ember.BufferView) error {
	if p.ended {
		return ember.ErrPassEnded
	}
	tex, isGLES := texture.(*Texture)
	if !isGLES || !tex.IsValid() {
		return ember.ErrPassInvalid
	}
	buf, isGLES := view.Buffer.(*DeviceBuffer)
	if !isGLES || !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	need := region.Width * region.Height * 4
	if view.Range.Length < need {
		return ember.ErrBufferRangeOutOfBounds
	}
	if !p.cb.track(tex) || !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}
	p.ops = append(p.ops, func(r *Reactor) {
		procs := r.Procs()
		fbo := procs.GenFramebuffer()
		procs.BindFramebuffer(glFramebuffer, fbo)
		if !tex.attachToFramebuffer(glColorAttachment0) {
			procs.DeleteFramebuffer(fbo)
			return
		}
		dst := buf.Contents()[view.Range.Offset : view.Range.Offset+need]
		procs.ReadPixels(int32(region.X), int32(region.Y),
			int32(region.Width), int32(region.Height), glRGBA, glUnsignedByte, dst)
		procs.BindFramebuffer(glFramebuffer, 0)
		procs.DeleteFramebuffer(fbo)
	})
	return nil
}

// CopyBufferToTexture uploads view's bytes into region of texture.
func (p *BlitPass) CopyBufferToTexture(view ember.BufferView, texture ember.Texture, region ember.IRect) error {
	if p.ended {
		return ember.ErrPassEnded
	}
	tex, isGLES := texture.(*Texture)
	if !isGLES || !tex.IsValid() {
		return ember.ErrPassInvalid
	}
	buf, isGLES := view.Buffer.(*DeviceBuffer)
	if !isGLES || !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	tf, ok := glTexFormat(tex.Descriptor().Format)
	if !ok {
		return ember.ErrPassInvalid
	}
	if !p.cb.track(tex) || !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}
	p.ops = append(p.ops, func(r *Reactor) {
		name, ok := r.GLHandle(tex.handle)
		if !ok {
			return
		}
		procs := r.Procs()
		src := buf.Contents()[view.Range.Offset : view.Range.Offset+view.Range.Length]
		procs.BindTexture(glTexture2D, name)
		procs.TexSubImage2D(glTexture2D, 0,
			int32(region.X), int32(region.Y), int32(region.Width), int32(region.Height),
			tf.format, tf.xtype, src)
		procs.BindTexture(glTexture2D, 0)
	})
	return nil
}

// EncodeCommands enqueues the recorded transfers on the reactor.
func (p *BlitPass) EncodeCommands() error {
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	p.ended = true
	ops := p.ops
	p.ops = nil
	return p.cb.reactor.AddOperation(func(r *Reactor) {
		for _, op := range ops {
			op(r)
		}
	})
}
