// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"errors"
	"fmt"

	"github.com/gogpu/ember"
)

// ErrInstancingUnsupported is returned for draws with an instance count
// above one. This GL feature level has no instanced rendering.
var ErrInstancingUnsupported = errors.New("gles: instanced draws are not supported")

// RenderPass records draws against a render target and, at
// EncodeCommands, enqueues one reactor operation that replays them
// against the context. Nothing touches the driver before that operation
// runs.
type RenderPass struct {
	reactor *Reactor
	cb      *CommandBuffer
	target  ember.RenderTarget
	label   string
	valid   bool
	ended   bool

	// Pass-wide state. Persists across draws until overridden.
	viewport   ember.Viewport
	scissor    *ember.IRect
	stencilRef uint32

	// Pending draw state. Reset by Draw.
	pending      ember.Command
	bindingCount int
	hasPipeline  bool

	commands []ember.Command
}

var _ ember.RenderPass = (*RenderPass)(nil)

func newRenderPass(cb *CommandBuffer, target ember.RenderTarget) (*RenderPass, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	p := &RenderPass{
		reactor:  cb.reactor,
		cb:       cb,
		target:   target,
		valid:    true,
		viewport: ember.NewViewport(target.Size()),
	}
	p.resetPending()
	return p, nil
}

func (p *RenderPass) IsValid() bool { return p.valid && !p.ended }

func (p *RenderPass) Label() string { return p.label }

func (p *RenderPass) SetLabel(label string) { p.label = label }

func (p *RenderPass) RenderTargetSize() ember.ISize { return p.target.Size() }

func (p *RenderPass) SetPipeline(pl ember.Pipeline) {
	p.pending.Pipeline = pl
	p.hasPipeline = pl != nil
}

func (p *RenderPass) SetCommandLabel(label string) { p.pending.Label = label }

func (p *RenderPass) SetStencilReference(value uint32) { p.stencilRef = value }

func (p *RenderPass) SetBaseVertex(value int) { p.pending.BaseVertex = value }

func (p *RenderPass) SetViewport(viewport ember.Viewport) { p.viewport = viewport }

func (p *RenderPass) SetScissor(scissor ember.IRect) { p.scissor = &scissor }

func (p *RenderPass) SetInstanceCount(count int) { p.pending.InstanceCount = count }

func (p *RenderPass) SetVertexBuffer(buffer ember.VertexBuffer) error {
	if err := buffer.Validate(); err != nil {
		return err
	}
	if !p.cb.track(buffer.VertexBuffer.Buffer) {
		return ember.ErrResourceNotTracked
	}
	if buffer.IndexType != ember.IndexTypeNone {
		if !p.cb.track(buffer.IndexBuffer.Buffer) {
			return ember.ErrResourceNotTracked
		}
	}
	p.pending.VertexBuffer = buffer
	return nil
}

func (p *RenderPass) BindBuffer(stage ember.ShaderStage, binding uint32, kind ember.DescriptorKind, view ember.BufferView) error {
	if !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	if p.bindingCount >= ember.MaxBindings {
		return ember.ErrBindingCapacity
	}
	if !p.cb.track(view.Buffer) {
		return ember.ErrResourceNotTracked
	}
	p.pending.BufferBindings = append(p.pending.BufferBindings, ember.BufferBinding{
		Stage: stage, Binding: binding, Kind: kind, View: view,
	})
	p.bindingCount++
	return nil
}

func (p *RenderPass) BindTexture(stage ember.ShaderStage, binding uint32, texture ember.Texture, sampler ember.Sampler) error {
	if texture == nil || !texture.IsValid() {
		return fmt.Errorf("%w: nil or invalid texture at binding %d", ember.ErrDrawCancelled, binding)
	}
	if p.bindingCount >= ember.MaxBindings {
		return ember.ErrBindingCapacity
	}
	if !p.cb.track(texture) {
		return ember.ErrResourceNotTracked
	}
	p.pending.TextureBindings = append(p.pending.TextureBindings, ember.TextureBinding{
		Stage: stage, Binding: binding, Texture: texture, Sampler: sampler,
	})
	p.bindingCount++
	return nil
}

func (p *RenderPass) resetPending() {
	p.pending = ember.Command{}
	p.bindingCount = 0
	p.hasPipeline = false
}

// Draw appends the pending draw to the pass's command list. The transient
// draw state is reset whatever the outcome; the pass-wide viewport,
// scissor, and stencil reference persist.
func (p *RenderPass) Draw() error {
	defer p.resetPending()
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	if !p.hasPipeline {
		return ember.ErrDrawCancelled
	}
	if p.pending.InstanceCount > 1 {
		ember.Logger().Error("gles: instanced draw rejected",
			"label", p.pending.Label, "instances", p.pending.InstanceCount)
		return fmt.Errorf("%w: %w", ember.ErrDrawCancelled, ErrInstancingUnsupported)
	}
	cmd := p.pending
	viewport := p.viewport
	cmd.Viewport = &viewport
	if p.scissor != nil {
		scissor := *p.scissor
		cmd.Scissor = &scissor
	}
	cmd.StencilReference = p.stencilRef
	p.commands = append(p.commands, cmd)
	return nil
}

func (p *RenderPass) AddCommand(cmd ember.Command) error {
	return ember.EncodeCommand(p, cmd)
}

// EncodeCommands snapshots the recorded commands and enqueues the reactor
// operation that replays them. The pass records nothing afterwards.
func (p *RenderPass) EncodeCommands() error {
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	p.ended = true
	target := p.target
	label := p.label
	commands := p.commands
	p.commands = nil
	return p.reactor.AddOperation(func(r *Reactor) {
		if !encodeCommandsInReactor(r, label, target, commands) {
			ember.Logger().Error("gles: render pass encoding failed", "label", label)
		}
	})
}

// encodeCommandsInReactor replays the recorded commands against the
// context. Runs inside a reaction.
func encodeCommandsInReactor(r *Reactor, label string, target ember.RenderTarget, commands []ember.Command) bool {
	procs := r.Procs()
	if procs.PushDebugGroup != nil && label != "" {
		procs.PushDebugGroup(label)
		defer procs.PopDebugGroup()
	}

	color0, _ := target.ColorAttachment(0)
	targetSize := target.Size()

	fbo, ownedFBO, ok := bindTargetFramebuffer(r, target, color0)
	if !ok {
		return false
	}
	if ownedFBO {
		defer procs.DeleteFramebuffer(fbo)
	}

	clearTarget(procs, target, color0)

	for i := range commands {
		if !encodeDraw(r, &commands[i], targetSize) {
			return false
		}
	}

	procs.UseProgram(0)
	discardAttachments(procs, target)
	if color0.Texture != nil {
		if t, isGLES := color0.Texture.(*Texture); isGLES && t.IsWrapped() {
			return true
		}
	}
	procs.BindFramebuffer(glFramebuffer, 0)
	return true
}

// bindTargetFramebuffer binds the framebuffer the pass renders into. For a
// wrapped backbuffer that is the wrapped FBO; otherwise a framebuffer is
// created, the attachments are bound, and completeness is verified. The
// second result reports whether the caller owns (and must delete) the FBO.
func bindTargetFramebuffer(r *Reactor, target ember.RenderTarget, color0 ember.ColorAttachment) (uint32, bool, bool) {
	procs := r.Procs()
	if t, isGLES := color0.Texture.(*Texture); isGLES && t.IsWrapped() {
		procs.BindFramebuffer(glFramebuffer, t.WrappedFBO())
		return t.WrappedFBO(), false, true
	}

	fbo := procs.GenFramebuffer()
	procs.BindFramebuffer(glFramebuffer, fbo)

	attached := true
	for _, idx := range target.ColorIndices() {
		a, _ := target.ColorAttachment(idx)
		t, isGLES := a.Texture.(*Texture)
		if !isGLES || !t.attachToFramebuffer(glColorAttachment0+uint32(idx)) {
			attached = false
		}
	}
	if d := target.DepthAttachment(); d != nil {
		if t, isGLES := d.Texture.(*Texture); !isGLES || !t.attachToFramebuffer(glDepthStencilAttachment) {
			attached = false
		}
	}
	if s := target.StencilAttachment(); s != nil {
		if t, isGLES := s.Texture.(*Texture); !isGLES || !t.attachToFramebuffer(glStencilAttachment) {
			attached = false
		}
	}
	if !attached {
		ember.Logger().Error("gles: could not attach render target textures")
		procs.DeleteFramebuffer(fbo)
		return 0, false, false
	}
	if status := procs.CheckFramebufferStatus(glFramebuffer); status != glFramebufferComplete {
		ember.Logger().Error("gles: framebuffer incomplete", "status", status)
		procs.DeleteFramebuffer(fbo)
		return 0, false, false
	}
	return fbo, true, true
}

// clearTarget applies the load actions. Write masks are opened before the
// clear; each draw reconfigures them from its pipeline.
func clearTarget(procs *ProcTable, target ember.RenderTarget, color0 ember.ColorAttachment) {
	var mask uint32
	if color0.LoadAction.CanClear() {
		c := color0.ClearColor
		procs.ClearColor(c.R, c.G, c.B, c.A)
		mask |= glColorBufferBit
	}
	if d := target.DepthAttachment(); d != nil && d.LoadAction.CanClear() {
		procs.ClearDepthf(d.ClearDepth)
		mask |= glDepthBufferBit
	}
	if s := target.StencilAttachment(); s != nil && s.LoadAction.CanClear() {
		procs.ClearStencil(int32(s.ClearStencil))
		mask |= glStencilBufferBit
	}
	if mask == 0 {
		return
	}
	procs.Disable(glScissorTest)
	procs.ColorMask(true, true, true, true)
	procs.DepthMask(true)
	procs.StencilMaskSeparate(glFrontAndBack, 0xFFFFFFFF)
	procs.Clear(mask)
}

// encodeDraw configures the full fixed-function state for one command and
// issues its draw call.
func encodeDraw(r *Reactor, cmd *ember.Command, targetSize ember.ISize) bool {
	procs := r.Procs()
	pipeline, isGLES := cmd.Pipeline.(*Pipeline)
	if !isGLES {
		ember.Logger().Error("gles: command carries a foreign pipeline")
		return false
	}
	if procs.PushDebugGroup != nil && cmd.Label != "" {
		procs.PushDebugGroup(cmd.Label)
		defer procs.PopDebugGroup()
	}
	if !pipeline.bindProgram() {
		return false
	}
	desc := pipeline.Descriptor()

	procs.Disable(glDither)
	configureViewport(procs, cmd, targetSize)
	configureBlend(procs, &desc.ColorBlend)
	configureDepth(procs, desc.Depth)
	configureStencil(procs, desc, cmd.StencilReference)
	configureRaster(procs, desc)

	if !bindVertexAttributes(r, cmd, desc) {
		return false
	}
	defer disableVertexAttributes(procs, desc)

	if !bindResources(r, cmd) {
		return false
	}

	return issueDraw(r, cmd, desc)
}

// configureViewport converts the top-left-origin viewport and scissor to
// GL's bottom-left origin.
func configureViewport(procs *ProcTable, cmd *ember.Command, targetSize ember.ISize) {
	vp := ember.NewViewport(targetSize)
	if cmd.Viewport != nil {
		vp = *cmd.Viewport
	}
	procs.Viewport(
		int32(vp.Rect.X),
		int32(targetSize.Height-vp.Rect.Y-vp.Rect.Height),
		int32(vp.Rect.Width),
		int32(vp.Rect.Height),
	)
	if cmd.Scissor != nil {
		procs.Enable(glScissorTest)
		procs.Scissor(
			int32(cmd.Scissor.X),
			int32(targetSize.Height-cmd.Scissor.Y-cmd.Scissor.Height),
			int32(cmd.Scissor.Width),
			int32(cmd.Scissor.Height),
		)
	} else {
		procs.Disable(glScissorTest)
	}
}

func configureBlend(procs *ProcTable, blend *ember.ColorBlendDescriptor) {
	if blend.BlendingEnabled {
		procs.Enable(glBlend)
		procs.BlendFuncSeparate(
			glBlendFactor(blend.SrcColorFactor), glBlendFactor(blend.DstColorFactor),
			glBlendFactor(blend.SrcAlphaFactor), glBlendFactor(blend.DstAlphaFactor),
		)
		procs.BlendEquationSeparate(glBlendOp(blend.ColorOp), glBlendOp(blend.AlphaOp))
	} else {
		procs.Disable(glBlend)
	}
	m := blend.WriteMask
	procs.ColorMask(
		m&ember.ColorWriteRed != 0,
		m&ember.ColorWriteGreen != 0,
		m&ember.ColorWriteBlue != 0,
		m&ember.ColorWriteAlpha != 0,
	)
}

func configureDepth(procs *ProcTable, depth *ember.DepthDescriptor) {
	if depth == nil {
		procs.Disable(glDepthTest)
		return
	}
	procs.Enable(glDepthTest)
	procs.DepthFunc(glCompare(depth.Compare))
	procs.DepthMask(depth.WriteEnabled)
}

func configureStencil(procs *ProcTable, desc *ember.PipelineDescriptor, ref uint32) {
	if !desc.HasStencil() {
		procs.Disable(glStencilTest)
		return
	}
	procs.Enable(glStencilTest)
	front, back := desc.StencilFront, desc.StencilBack
	if front != nil && back != nil && *front == *back {
		applyStencilFace(procs, glFrontAndBack, front, ref)
		return
	}
	if front != nil {
		applyStencilFace(procs, glFront, front, ref)
	}
	if back != nil {
		applyStencilFace(procs, glBack, back, ref)
	}
}

func applyStencilFace(procs *ProcTable, face uint32, s *ember.StencilDescriptor, ref uint32) {
	procs.StencilFuncSeparate(face, glCompare(s.Compare), int32(ref), s.ReadMask)
	procs.StencilOpSeparate(face,
		glStencilOp(s.StencilFailure), glStencilOp(s.DepthFailure), glStencilOp(s.DepthStencilPass))
	procs.StencilMaskSeparate(face, s.WriteMask)
}

func configureRaster(procs *ProcTable, desc *ember.PipelineDescriptor) {
	switch desc.CullMode {
	case ember.CullModeFront:
		procs.Enable(glCullFace)
		procs.CullFace(glFront)
	case ember.CullModeBack:
		procs.Enable(glCullFace)
		procs.CullFace(glBack)
	default:
		procs.Disable(glCullFace)
	}
	if desc.WindingOrder == ember.WindingCounterClockwise {
		procs.FrontFace(glCCW)
	} else {
		procs.FrontFace(glCW)
	}
}

func bindVertexAttributes(r *Reactor, cmd *ember.Command, desc *ember.PipelineDescriptor) bool {
	view := cmd.VertexBuffer.VertexBuffer
	buf, isGLES := view.Buffer.(*DeviceBuffer)
	if !isGLES || !buf.bindAndUpload(glArrayBuffer) {
		return false
	}
	procs := r.Procs()
	for _, attr := range desc.VertexLayout.Attributes {
		procs.EnableVertexAttribArray(attr.Location)
		procs.VertexAttribPointer(
			attr.Location, attr.Components, glFloat, false,
			int32(desc.VertexLayout.Stride),
			view.Range.Offset+attr.Offset,
		)
	}
	return true
}

func disableVertexAttributes(procs *ProcTable, desc *ember.PipelineDescriptor) {
	for _, attr := range desc.VertexLayout.Attributes {
		procs.DisableVertexAttribArray(attr.Location)
	}
}

// bindResources binds uniform buffers to their binding points and textures
// to their units. By convention a buffer's binding index is its uniform
// block binding point and a texture's binding index is both its unit and
// its sampler uniform location.
func bindResources(r *Reactor, cmd *ember.Command) bool {
	procs := r.Procs()
	for _, b := range cmd.BufferBindings {
		buf, isGLES := b.View.Buffer.(*DeviceBuffer)
		if !isGLES || !buf.bindAndUpload(glUniformBuffer) {
			return false
		}
		name, ok := buf.glName()
		if !ok {
			return false
		}
		procs.BindBufferRange(glUniformBuffer, b.Binding, name, b.View.Range.Offset, b.View.Range.Length)
	}
	for _, tb := range cmd.TextureBindings {
		tex, isGLES := tb.Texture.(*Texture)
		if !isGLES {
			return false
		}
		var sampler *Sampler
		if tb.Sampler != nil {
			if s, isGLES := tb.Sampler.(*Sampler); isGLES {
				sampler = s
			}
		}
		procs.ActiveTexture(glTexture0 + tb.Binding)
		if !tex.bind(sampler) {
			return false
		}
		procs.Uniform1i(int32(tb.Binding), int32(tb.Binding))
	}
	return true
}

func issueDraw(r *Reactor, cmd *ember.Command, desc *ember.PipelineDescriptor) bool {
	procs := r.Procs()
	mode := glPrimitive(desc.Primitive)
	vb := cmd.VertexBuffer
	if vb.IndexType == ember.IndexTypeNone {
		procs.DrawArrays(mode, int32(cmd.BaseVertex), int32(vb.VertexCount))
		return true
	}
	xtype, ok := glIndexType(vb.IndexType)
	if !ok {
		ember.Logger().Error("gles: draw with unknown index type")
		return false
	}
	if cmd.BaseVertex != 0 {
		// glDrawElementsBaseVertex needs ES 3.2; indexed geometry must be
		// rebased before upload at this feature level.
		ember.Logger().Warn("gles: base vertex ignored for indexed draw")
	}
	ibuf, isGLES := vb.IndexBuffer.Buffer.(*DeviceBuffer)
	if !isGLES || !ibuf.bindAndUpload(glElementArrayBuffer) {
		return false
	}
	procs.DrawElements(mode, int32(vb.VertexCount), xtype, vb.IndexBuffer.Range.Offset)
	return true
}

// discardAttachments invalidates attachments whose store action allows
// dropping their contents, saving the tile writeback on deferred GPUs.
func discardAttachments(procs *ProcTable, target ember.RenderTarget) {
	if procs.InvalidateFramebuffer == nil {
		return
	}
	var attachments []uint32
	for _, idx := range target.ColorIndices() {
		a, _ := target.ColorAttachment(idx)
		if a.StoreAction.CanDiscard() {
			attachments = append(attachments, glColorAttachment0+uint32(idx))
		}
	}
	if d := target.DepthAttachment(); d != nil && d.StoreAction.CanDiscard() {
		attachments = append(attachments, glDepthAttachment)
	}
	if s := target.StencilAttachment(); s != nil && s.StoreAction.CanDiscard() {
		attachments = append(attachments, glStencilAttachment)
	}
	procs.InvalidateFramebuffer(glFramebuffer, attachments)
}
