// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import (
	"errors"
	"sort"
)

// ErrNoColorAttachment0 is returned when a render target lacks the color
// attachment at index 0, which every pass requires.
var ErrNoColorAttachment0 = errors.New("ember: render target has no color attachment at index 0")

// Attachment is the texture and load/store behavior shared by all
// attachment kinds.
type Attachment struct {
	// Texture receives the pass output for this attachment slot.
	Texture Texture

	// ResolveTexture, when set, receives the MSAA resolve of Texture. The
	// store action must then be one of the resolving actions.
	ResolveTexture Texture

	LoadAction  LoadAction
	StoreAction StoreAction
}

// IsValid reports whether the attachment is usable: a texture is present,
// and a resolve texture is present exactly when the store action resolves.
func (a Attachment) IsValid() bool {
	if a.Texture == nil || !a.Texture.IsValid() {
		return false
	}
	if a.StoreAction.Resolves() != (a.ResolveTexture != nil) {
		return false
	}
	return true
}

// ColorAttachment is a color slot with its clear value.
type ColorAttachment struct {
	Attachment
	ClearColor Color
}

// DepthAttachment is the depth slot with its clear value.
type DepthAttachment struct {
	Attachment
	ClearDepth float32
}

// StencilAttachment is the stencil slot with its clear value.
type StencilAttachment struct {
	Attachment
	ClearStencil uint32
}

// RenderTarget is the set of attachments one render pass draws into.
//
// A RenderTarget is owned by the caller and must not change for the lifetime
// of a render pass encoding into it. Multiple passes may render to the same
// target only sequentially, never concurrently.
type RenderTarget struct {
	colors  map[int]ColorAttachment
	depth   *DepthAttachment
	stencil *StencilAttachment
}

// SetColorAttachment sets the color attachment at index, replacing any
// previous attachment at that index. Returns the target for chaining.
func (t *RenderTarget) SetColorAttachment(index int, a ColorAttachment) *RenderTarget {
	if t.colors == nil {
		t.colors = make(map[int]ColorAttachment)
	}
	t.colors[index] = a
	return t
}

// SetDepthAttachment sets the depth attachment. Passing nil clears it.
func (t *RenderTarget) SetDepthAttachment(a *DepthAttachment) *RenderTarget {
	t.depth = a
	return t
}

// SetStencilAttachment sets the stencil attachment. Passing nil clears it.
func (t *RenderTarget) SetStencilAttachment(a *StencilAttachment) *RenderTarget {
	t.stencil = a
	return t
}

// ColorAttachment returns the color attachment at index.
func (t *RenderTarget) ColorAttachment(index int) (ColorAttachment, bool) {
	a, ok := t.colors[index]
	return a, ok
}

// ColorIndices returns the color attachment indices in ascending order.
// Attachment assembly must follow this order wherever the backend builds a
// native pass or framebuffer, or attachment binding is undefined.
func (t *RenderTarget) ColorIndices() []int {
	idx := make([]int, 0, len(t.colors))
	for i := range t.colors {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// DepthAttachment returns the depth attachment, or nil.
func (t *RenderTarget) DepthAttachment() *DepthAttachment { return t.depth }

// StencilAttachment returns the stencil attachment, or nil.
func (t *RenderTarget) StencilAttachment() *StencilAttachment { return t.stencil }

// Size returns the pixel extent of color attachment 0, or the zero size
// when it is absent.
func (t *RenderTarget) Size() ISize {
	if a, ok := t.colors[0]; ok && a.Texture != nil {
		return a.Texture.Size()
	}
	return ISize{}
}

// Validate checks that the target can back a render pass.
func (t *RenderTarget) Validate() error {
	a, ok := t.colors[0]
	if !ok || !a.IsValid() {
		return ErrNoColorAttachment0
	}
	return nil
}

// IterateAllAttachments calls fn for every attachment (colors in ascending
// index order, then depth, then stencil) until fn returns false.
func (t *RenderTarget) IterateAllAttachments(fn func(Attachment) bool) {
	for _, i := range t.ColorIndices() {
		if !fn(t.colors[i].Attachment) {
			return
		}
	}
	if t.depth != nil {
		if !fn(t.depth.Attachment) {
			return
		}
	}
	if t.stencil != nil {
		if !fn(t.stencil.Attachment) {
			return
		}
	}
}
