// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

// BufferBinding is one pending buffer resource binding.
type BufferBinding struct {
	Stage   ShaderStage
	Binding uint32
	Kind    DescriptorKind
	View    BufferView
}

// TextureBinding is one pending combined image/sampler binding.
type TextureBinding struct {
	Stage   ShaderStage
	Binding uint32
	Texture Texture
	Sampler Sampler
}

// Command is an immutable description of one draw call.
//
// A Command is created by the scene layer per drawable primitive and
// consumed exactly once by a render pass encoder (see RenderPass.AddCommand).
// It must not be mutated after creation.
type Command struct {
	// Pipeline is the pipeline state for the draw. A nil pipeline cancels
	// the draw.
	Pipeline Pipeline

	// VertexBuffer supplies vertex and optional index data.
	VertexBuffer VertexBuffer

	// BufferBindings and TextureBindings are the per-stage resource
	// bindings, keyed by binding index within each entry.
	BufferBindings  []BufferBinding
	TextureBindings []TextureBinding

	// Viewport overrides the pass viewport when non-nil.
	Viewport *Viewport

	// Scissor overrides the pass scissor when non-nil.
	Scissor *IRect

	// StencilReference is the stencil reference value for the draw.
	StencilReference uint32

	// InstanceCount is the number of instances; zero is treated as one.
	// The GLES backend rejects counts above one.
	InstanceCount int

	// BaseVertex is added to each index before vertex lookup.
	BaseVertex int

	// Label is an optional debug label emitted around the draw.
	Label string
}
