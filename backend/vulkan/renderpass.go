// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

// RenderPass encodes draws eagerly into the command buffer's native
// vk.CommandBuffer.
//
// Descriptor writes for the pending draw go through fixed workspace
// arrays sized by ember.MaxBindings. The write entries alias the info
// arrays by slicing them, so staging a draw's bindings performs no heap
// allocation; the cursors are the only state Draw has to reset.
type RenderPass struct {
	dev    *Device
	cb     *CommandBuffer
	target ember.RenderTarget
	label  string
	valid  bool
	ended  bool

	cmd         vk.CommandBuffer
	renderPass  vk.RenderPass
	framebuffer vk.Framebuffer

	bufferWorkspace [ember.MaxBindings]vk.DescriptorBufferInfo
	imageWorkspace  [ember.MaxBindings]vk.DescriptorImageInfo
	writeWorkspace  [ember.MaxBindings * 2]vk.WriteDescriptorSet
	bufferCursor    int
	imageCursor     int
	writeCursor     int

	pendingPipeline *Pipeline
	pendingSampler  *Sampler
	pendingVertex   ember.VertexBuffer
	hasVertex       bool
	instanceCount   int
	baseVertex      int
	stencilRef      uint32
	commandLabel    string
}

var _ ember.RenderPass = (*RenderPass)(nil)

func newRenderPass(cb *CommandBuffer, target ember.RenderTarget) (*RenderPass, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	dev := cb.dev

	// Attachment and resolve textures must outlive the GPU's reads and
	// writes, not just the shader bindings.
	if err := trackAttachments(cb, target); err != nil {
		return nil, err
	}

	key := targetCompatKey(target)
	recycleOn := recycleTexture(target)

	var cache *passCache
	if recycleOn != nil {
		if c, ok := recycleOn.cachedPass(key); ok {
			cache = c
		}
	}
	if cache == nil {
		pass, fb, err := buildPassAndFramebuffer(dev, target)
		if err != nil {
			return nil, err
		}
		cache = &passCache{dev: dev, key: key, renderPass: pass, framebuffer: fb}
		if recycleOn != nil {
			recycleOn.storePassCache(cache)
		}
	}

	// The native pass and framebuffer stay alive until this submission's
	// fence signals, even if a later pass displaces the cached pair.
	cache.retain()
	if !cb.track(cache) {
		cache.release()
		return nil, ember.ErrResourceNotTracked
	}

	p := &RenderPass{
		dev:         dev,
		cb:          cb,
		target:      target,
		valid:       true,
		cmd:         cb.cmd,
		renderPass:  cache.renderPass,
		framebuffer: cache.framebuffer,
	}
	p.begin()
	return p, nil
}

// trackAttachments pins every attachment and resolve texture of the
// target on the command buffer.
func trackAttachments(cb *CommandBuffer, target ember.RenderTarget) error {
	for _, idx := range target.ColorIndices() {
		a, _ := target.ColorAttachment(idx)
		if !cb.track(a.Texture) {
			return ember.ErrResourceNotTracked
		}
		if a.ResolveTexture != nil && !cb.track(a.ResolveTexture) {
			return ember.ErrResourceNotTracked
		}
	}
	if d := target.DepthAttachment(); d != nil && !cb.track(d.Texture) {
		return ember.ErrResourceNotTracked
	}
	if s := target.StencilAttachment(); s != nil && !cb.track(s.Texture) {
		return ember.ErrResourceNotTracked
	}
	return nil
}

// recycleTexture picks the texture the pass caches its native objects on:
// the resolve texture when the pass resolves, the render texture
// otherwise.
func recycleTexture(target ember.RenderTarget) *Texture {
	color0, _ := target.ColorAttachment(0)
	tex := color0.Texture
	if color0.StoreAction.Resolves() && color0.ResolveTexture != nil {
		tex = color0.ResolveTexture
	}
	t, ok := tex.(*Texture)
	if !ok {
		return nil
	}
	return t
}

// targetCompatKey fingerprints the attachment configuration. Two targets
// with equal keys produce compatible render passes and identically shaped
// framebuffers; anything else must not reuse a cached pair.
func targetCompatKey(target ember.RenderTarget) string {
	var sb strings.Builder
	for _, idx := range target.ColorIndices() {
		a, _ := target.ColorAttachment(idx)
		fmt.Fprintf(&sb, "c%d:%s/%d/%s/%s;", idx,
			a.Texture.Descriptor().Format, a.Texture.Descriptor().SampleCount,
			a.LoadAction, a.StoreAction)
		if a.ResolveTexture != nil {
			fmt.Fprintf(&sb, "r%d:%s;", idx, a.ResolveTexture.Descriptor().Format)
		}
	}
	if d := target.DepthAttachment(); d != nil {
		fmt.Fprintf(&sb, "d:%s/%s/%s;", d.Texture.Descriptor().Format, d.LoadAction, d.StoreAction)
	}
	if s := target.StencilAttachment(); s != nil {
		fmt.Fprintf(&sb, "s:%s/%s/%s;", s.Texture.Descriptor().Format, s.LoadAction, s.StoreAction)
	}
	size := target.Size()
	fmt.Fprintf(&sb, "%dx%d", size.Width, size.Height)
	return sb.String()
}

// buildPassAndFramebuffer creates the native pass and a framebuffer whose
// view order mirrors the builder's attachment order exactly.
func buildPassAndFramebuffer(dev *Device, target ember.RenderTarget) (vk.RenderPass, vk.Framebuffer, error) {
	builder := NewRenderPassBuilder()
	var views []vk.ImageView

	appendView := func(t ember.Texture) bool {
		tex, ok := t.(*Texture)
		if !ok {
			return false
		}
		views = append(views, tex.view)
		return true
	}

	for _, idx := range target.ColorIndices() {
		a, _ := target.ColorAttachment(idx)
		desc := a.Texture.Descriptor()
		builder.SetColorAttachment(idx, AttachmentConfig{
			Format:      desc.Format,
			SampleCount: desc.SampleCount,
			LoadAction:  a.LoadAction,
			StoreAction: a.StoreAction,
		})
		if !appendView(a.Texture) {
			return vk.NullRenderPass, vk.NullFramebuffer, fmt.Errorf("vulkan: foreign color texture at index %d", idx)
		}
		if a.StoreAction.Resolves() {
			if a.ResolveTexture == nil || !appendView(a.ResolveTexture) {
				return vk.NullRenderPass, vk.NullFramebuffer, fmt.Errorf("vulkan: missing resolve texture at index %d", idx)
			}
		}
	}
	if d := target.DepthAttachment(); d != nil {
		desc := d.Texture.Descriptor()
		builder.SetDepthAttachment(&AttachmentConfig{
			Format:      desc.Format,
			SampleCount: desc.SampleCount,
			LoadAction:  d.LoadAction,
			StoreAction: d.StoreAction,
		})
		if !appendView(d.Texture) {
			return vk.NullRenderPass, vk.NullFramebuffer, fmt.Errorf("vulkan: foreign depth texture")
		}
	}
	if s := target.StencilAttachment(); s != nil {
		desc := s.Texture.Descriptor()
		builder.SetStencilAttachment(&AttachmentConfig{
			Format:      desc.Format,
			SampleCount: desc.SampleCount,
			LoadAction:  s.LoadAction,
			StoreAction: s.StoreAction,
		})
		if s.Texture != depthTexture(target) {
			if !appendView(s.Texture) {
				return vk.NullRenderPass, vk.NullFramebuffer, fmt.Errorf("vulkan: foreign stencil texture")
			}
		}
	}

	pass, err := builder.Build(dev.device)
	if err != nil {
		return vk.NullRenderPass, vk.NullFramebuffer, err
	}

	size := target.Size()
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(dev.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(size.Width),
		Height:          uint32(size.Height),
		Layers:          1,
	}, nil, &fb)
	if err := vkErr(ret, "create framebuffer"); err != nil {
		vk.DestroyRenderPass(dev.device, pass, nil)
		return vk.NullRenderPass, vk.NullFramebuffer, err
	}
	return pass, fb, nil
}

func depthTexture(target ember.RenderTarget) ember.Texture {
	if d := target.DepthAttachment(); d != nil {
		return d.Texture
	}
	return nil
}

// begin records vkCmdBeginRenderPass with clear values in attachment
// order and resets viewport and scissor to cover the whole target.
func (p *RenderPass) begin() {
	size := p.target.Size()

	var clears []vk.ClearValue
	for _, idx := range p.target.ColorIndices() {
		a, _ := p.target.ColorAttachment(idx)
		var cv vk.ClearValue
		cv.SetColor([]float32{a.ClearColor.R, a.ClearColor.G, a.ClearColor.B, a.ClearColor.A})
		clears = append(clears, cv)
		if a.StoreAction.Resolves() {
			clears = append(clears, vk.ClearValue{})
		}
	}
	if d := p.target.DepthAttachment(); d != nil {
		var cv vk.ClearValue
		stencil := uint32(0)
		if s := p.target.StencilAttachment(); s != nil {
			stencil = s.ClearStencil
		}
		cv.SetDepthStencil(d.ClearDepth, stencil)
		clears = append(clears, cv)
	} else if s := p.target.StencilAttachment(); s != nil {
		var cv vk.ClearValue
		cv.SetDepthStencil(0, s.ClearStencil)
		clears = append(clears, cv)
	}

	vk.CmdBeginRenderPass(p.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.renderPass,
		Framebuffer: p.framebuffer,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: uint32(size.Width), Height: uint32(size.Height)},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}, vk.SubpassContentsInline)

	p.SetViewport(ember.NewViewport(size))
	p.SetScissor(ember.IRectFromSize(size))
}

func (p *RenderPass) IsValid() bool { return p.valid && !p.ended }

func (p *RenderPass) Label() string { return p.label }

func (p *RenderPass) SetLabel(label string) { p.label = label }

func (p *RenderPass) RenderTargetSize() ember.ISize { return p.target.Size() }

func (p *RenderPass) SetPipeline(pl ember.Pipeline) {
	if pl == nil {
		p.pendingPipeline = nil
		return
	}
	vp, ok := pl.(*Pipeline)
	if !ok {
		p.pendingPipeline = nil
		return
	}
	p.pendingPipeline = vp
}

func (p *RenderPass) SetCommandLabel(label string) { p.commandLabel = label }

func (p *RenderPass) SetStencilReference(value uint32) { p.stencilRef = value }

func (p *RenderPass) SetBaseVertex(value int) { p.baseVertex = value }

// SetViewport records dynamic viewport state immediately.
func (p *RenderPass) SetViewport(viewport ember.Viewport) {
	vk.CmdSetViewport(p.cmd, 0, 1, []vk.Viewport{{
		X:        float32(viewport.Rect.X),
		Y:        float32(viewport.Rect.Y),
		Width:    float32(viewport.Rect.Width),
		Height:   float32(viewport.Rect.Height),
		MinDepth: viewport.ZNear,
		MaxDepth: viewport.ZFar,
	}})
}

// SetScissor records dynamic scissor state immediately.
func (p *RenderPass) SetScissor(scissor ember.IRect) {
	vk.CmdSetScissor(p.cmd, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: int32(scissor.X), Y: int32(scissor.Y)},
		Extent: vk.Extent2D{Width: uint32(scissor.Width), Height: uint32(scissor.Height)},
	}})
}

func (p *RenderPass) SetInstanceCount(count int) { p.instanceCount = count }

func (p *RenderPass) SetVertexBuffer(buffer ember.VertexBuffer) error {
	if err := buffer.Validate(); err != nil {
		return err
	}
	if _, ok := buffer.VertexBuffer.Buffer.(*DeviceBuffer); !ok {
		return fmt.Errorf("%w: foreign vertex buffer", ember.ErrInvalidBufferView)
	}
	if !p.cb.track(buffer.VertexBuffer.Buffer) {
		return ember.ErrResourceNotTracked
	}
	if buffer.IndexType != ember.IndexTypeNone {
		if _, ok := buffer.IndexBuffer.Buffer.(*DeviceBuffer); !ok {
			return fmt.Errorf("%w: foreign index buffer", ember.ErrInvalidBufferView)
		}
		if !p.cb.track(buffer.IndexBuffer.Buffer) {
			return ember.ErrResourceNotTracked
		}
	}
	p.pendingVertex = buffer
	p.hasVertex = true
	return nil
}

// BindBuffer stages a descriptor write for the pending draw in the
// workspace.
func (p *RenderPass) BindBuffer(stage ember.ShaderStage, binding uint32, kind ember.DescriptorKind, view ember.BufferView) error {
	if !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	if p.bufferCursor >= ember.MaxBindings || p.writeCursor >= len(p.writeWorkspace) {
		return ember.ErrBindingCapacity
	}
	buf, ok := view.Buffer.(*DeviceBuffer)
	if !ok {
		return fmt.Errorf("%w: foreign buffer at binding %d", ember.ErrInvalidBufferView, binding)
	}
	if !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}

	p.bufferWorkspace[p.bufferCursor] = vk.DescriptorBufferInfo{
		Buffer: buf.buffer,
		Offset: vk.DeviceSize(view.Range.Offset),
		Range:  vk.DeviceSize(view.Range.Length),
	}
	p.writeWorkspace[p.writeCursor] = vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vkDescriptorType(kind),
		PBufferInfo:     p.bufferWorkspace[p.bufferCursor : p.bufferCursor+1],
	}
	p.bufferCursor++
	p.writeCursor++
	return nil
}

// BindTexture stages a combined image/sampler write for the pending draw.
func (p *RenderPass) BindTexture(stage ember.ShaderStage, binding uint32, texture ember.Texture, sampler ember.Sampler) error {
	if texture == nil || !texture.IsValid() {
		return fmt.Errorf("%w: nil or invalid texture at binding %d", ember.ErrDrawCancelled, binding)
	}
	if p.imageCursor >= ember.MaxBindings || p.writeCursor >= len(p.writeWorkspace) {
		return ember.ErrBindingCapacity
	}
	tex, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("vulkan: foreign texture at binding %d", binding)
	}
	if !p.cb.track(tex) {
		return ember.ErrResourceNotTracked
	}
	var vs *Sampler
	if sampler != nil {
		if s, ok := sampler.(*Sampler); ok {
			vs = s
			if vs.RequiresBakedVariant() && p.pendingSampler == nil {
				p.pendingSampler = vs
			}
		}
	}

	info := vk.DescriptorImageInfo{
		ImageView:   tex.view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	if vs != nil {
		info.Sampler = vs.sampler
	}
	p.imageWorkspace[p.imageCursor] = info
	p.writeWorkspace[p.writeCursor] = vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      p.imageWorkspace[p.imageCursor : p.imageCursor+1],
	}
	p.imageCursor++
	p.writeCursor++
	return nil
}

func vkDescriptorType(kind ember.DescriptorKind) vk.DescriptorType {
	switch kind {
	case ember.DescriptorStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case ember.DescriptorSampledImage:
		return vk.DescriptorTypeCombinedImageSampler
	case ember.DescriptorInputAttachment:
		return vk.DescriptorTypeInputAttachment
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

// resetPending clears the per-draw transient state. Rewinding the cursors
// is all it takes to reclaim the workspace.
func (p *RenderPass) resetPending() {
	p.pendingPipeline = nil
	p.pendingSampler = nil
	p.pendingVertex = ember.VertexBuffer{}
	p.hasVertex = false
	p.instanceCount = 0
	p.baseVertex = 0
	p.commandLabel = ""
	p.bufferCursor = 0
	p.imageCursor = 0
	p.writeCursor = 0
}

// Draw issues the pending draw: it selects the pipeline variant, flushes
// the staged descriptor writes into a freshly allocated set, and records
// the draw call. All transient state is reset regardless of the outcome.
func (p *RenderPass) Draw() error {
	defer p.resetPending()
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	if p.pendingPipeline == nil || !p.hasVertex {
		return ember.ErrDrawCancelled
	}

	variant, err := p.pendingPipeline.variantFor(p.pendingSampler)
	if err != nil {
		return fmt.Errorf("%w: %w", ember.ErrDrawAborted, err)
	}

	set, err := p.cb.allocateDescriptorSet(variant.setLayout)
	if err != nil {
		return fmt.Errorf("%w: %w", ember.ErrDrawAborted, err)
	}
	if p.writeCursor > 0 {
		writes := p.writeWorkspace[:p.writeCursor]
		for i := range writes {
			writes[i].DstSet = set
		}
		vk.UpdateDescriptorSets(p.dev.device, uint32(len(writes)), writes, 0, nil)
	}

	vk.CmdBindPipeline(p.cmd, vk.PipelineBindPointGraphics, variant.pipeline)
	vk.CmdBindDescriptorSets(p.cmd, vk.PipelineBindPointGraphics, variant.layout,
		0, 1, []vk.DescriptorSet{set}, 0, nil)
	vk.CmdSetStencilReference(p.cmd,
		vk.StencilFaceFlags(vk.StencilFrontAndBack), p.stencilRef)

	vb := p.pendingVertex
	vbuf := vb.VertexBuffer.Buffer.(*DeviceBuffer)
	vk.CmdBindVertexBuffers(p.cmd, 0, 1,
		[]vk.Buffer{vbuf.buffer}, []vk.DeviceSize{vk.DeviceSize(vb.VertexBuffer.Range.Offset)})

	instances := uint32(1)
	if p.instanceCount > 1 {
		instances = uint32(p.instanceCount)
	}
	if vb.IndexType == ember.IndexTypeNone {
		vk.CmdDraw(p.cmd, uint32(vb.VertexCount), instances, uint32(p.baseVertex), 0)
	} else {
		ibuf := vb.IndexBuffer.Buffer.(*DeviceBuffer)
		vk.CmdBindIndexBuffer(p.cmd, ibuf.buffer,
			vk.DeviceSize(vb.IndexBuffer.Range.Offset), vkIndexType(vb.IndexType))
		vk.CmdDrawIndexed(p.cmd, uint32(vb.VertexCount), instances, 0, int32(p.baseVertex), 0)
	}
	return nil
}

func vkIndexType(t ember.IndexType) vk.IndexType {
	if t == ember.IndexTypeUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func (p *RenderPass) AddCommand(cmd ember.Command) error {
	return ember.EncodeCommand(p, cmd)
}

// EncodeCommands ends the native pass and, when the target will be
// sampled later, transitions the sampled texture to shader-read layout so
// a following pass can bind it without its own barrier.
func (p *RenderPass) EncodeCommands() error {
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	p.ended = true

	vk.CmdEndRenderPass(p.cmd)

	color0, _ := p.target.ColorAttachment(0)
	sampled := color0.Texture
	if color0.StoreAction.Resolves() && color0.ResolveTexture != nil {
		sampled = color0.ResolveTexture
	}
	if tex, ok := sampled.(*Texture); ok &&
		tex.Descriptor().Usage&ember.TextureUsageShaderRead != 0 {
		p.transitionToShaderRead(tex)
	}
	return nil
}

func (p *RenderPass) transitionToShaderRead(tex *Texture) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
		OldLayout:           vk.ImageLayoutColorAttachmentOptimal,
		NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               tex.image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(p.cmd,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	tex.SetLayout(vk.ImageLayoutShaderReadOnlyOptimal)
}
