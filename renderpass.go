// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import (
	"errors"
	"fmt"
)

// Render pass errors.
var (
	// ErrDrawCancelled is returned by Draw when the pending draw was
	// invalidated, most commonly because no pipeline is bound. The pass
	// stays usable; the caller may record the next draw.
	ErrDrawCancelled = errors.New("ember: draw cancelled")

	// ErrDrawAborted is returned by Draw when the backend exhausted a
	// resource it needed (descriptor sets, pipeline variants). The pass
	// should be abandoned.
	ErrDrawAborted = errors.New("ember: draw aborted")

	// ErrBindingCapacity is returned when a bind call would exceed
	// MaxBindings pending bindings for the current draw.
	ErrBindingCapacity = errors.New("ember: binding workspace at capacity")

	// ErrPassEnded is returned when commands are recorded on a pass after
	// EncodeCommands.
	ErrPassEnded = errors.New("ember: render pass has already been encoded")

	// ErrPassInvalid is returned for operations on a pass whose backend
	// setup failed.
	ErrPassInvalid = errors.New("ember: render pass is not valid")

	// ErrResourceNotTracked is returned when a resource could not be
	// registered with the command buffer for lifetime tracking.
	ErrResourceNotTracked = errors.New("ember: resource could not be tracked")
)

// RenderPass encodes draws into one render target.
//
// A pass lives for exactly one logical pass: creation, zero or more Draw
// cycles, then EncodeCommands. Draws execute in the order Draw is invoked.
// Encoding is single-threaded; a RenderPass must not be shared between
// goroutines.
//
// Between two Draw calls the setters and bind calls accumulate the pending
// draw's state. Draw consumes that state: on success it issues exactly one
// native draw, and in all cases it resets the transient state (pipeline,
// bindings, instance count, base vertex) so the encoder is ready for the
// next unrelated draw.
type RenderPass interface {
	// IsValid reports whether backend setup for the pass succeeded.
	IsValid() bool

	// Label returns the pass debug label.
	Label() string

	// SetLabel names the pass for debug tooling.
	SetLabel(label string)

	// RenderTargetSize returns the pixel extent of the target.
	RenderTargetSize() ISize

	// SetPipeline binds the pipeline for the pending draw. Passing nil
	// invalidates the pending draw.
	SetPipeline(p Pipeline)

	// SetCommandLabel names the pending draw for debug tooling.
	SetCommandLabel(label string)

	// SetStencilReference sets the stencil reference value.
	SetStencilReference(value uint32)

	// SetBaseVertex sets the value added to each index before vertex
	// lookup.
	SetBaseVertex(value int)

	// SetViewport overrides the pass viewport for subsequent draws.
	SetViewport(viewport Viewport)

	// SetScissor overrides the scissor rectangle for subsequent draws.
	SetScissor(scissor IRect)

	// SetInstanceCount sets the number of instances for the pending draw.
	SetInstanceCount(count int)

	// SetVertexBuffer binds the vertex (and optional index) data for the
	// pending draw.
	SetVertexBuffer(buffer VertexBuffer) error

	// BindBuffer stages a buffer resource for the pending draw.
	BindBuffer(stage ShaderStage, binding uint32, kind DescriptorKind, view BufferView) error

	// BindTexture stages a combined image/sampler for the pending draw.
	BindTexture(stage ShaderStage, binding uint32, texture Texture, sampler Sampler) error

	// Draw issues the pending draw. See ErrDrawCancelled and ErrDrawAborted
	// for the failure classes. Transient per-draw state is reset regardless
	// of the outcome.
	Draw() error

	// AddCommand replays a complete Command through the setters and issues
	// its draw.
	AddCommand(cmd Command) error

	// EncodeCommands finalizes the pass: it ends native recording and
	// performs any layout transitions needed before the target can be
	// sampled by a later pass. The pass cannot record draws afterwards.
	EncodeCommands() error
}

// EncodeCommand drives a RenderPass's setters from a Command record and
// issues the draw. It is the shared AddCommand implementation used by all
// backends.
func EncodeCommand(p RenderPass, cmd Command) error {
	p.SetPipeline(cmd.Pipeline)
	if cmd.Label != "" {
		p.SetCommandLabel(cmd.Label)
	}
	if cmd.Viewport != nil {
		p.SetViewport(*cmd.Viewport)
	}
	if cmd.Scissor != nil {
		p.SetScissor(*cmd.Scissor)
	}
	p.SetStencilReference(cmd.StencilReference)
	if cmd.InstanceCount > 0 {
		p.SetInstanceCount(cmd.InstanceCount)
	}
	p.SetBaseVertex(cmd.BaseVertex)
	if err := p.SetVertexBuffer(cmd.VertexBuffer); err != nil {
		return fmt.Errorf("set vertex buffer: %w", err)
	}
	for _, b := range cmd.BufferBindings {
		if err := p.BindBuffer(b.Stage, b.Binding, b.Kind, b.View); err != nil {
			return fmt.Errorf("bind buffer %d: %w", b.Binding, err)
		}
	}
	for _, b := range cmd.TextureBindings {
		if err := p.BindTexture(b.Stage, b.Binding, b.Texture, b.Sampler); err != nil {
			return fmt.Errorf("bind texture %d: %w", b.Binding, err)
		}
	}
	return p.Draw()
}
