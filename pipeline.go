// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

// BlendFactor is a source or destination blend coefficient.
type BlendFactor uint32

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSourceAlpha
	BlendFactorOneMinusSourceAlpha
	BlendFactorDestinationAlpha
	BlendFactorOneMinusDestinationAlpha
)

// BlendOperation combines the weighted source and destination values.
type BlendOperation uint32

const (
	BlendOperationAdd BlendOperation = iota
	BlendOperationSubtract
	BlendOperationReverseSubtract
)

// ColorWriteMask selects the channels a draw writes.
type ColorWriteMask uint32

const (
	ColorWriteRed   ColorWriteMask = 1 << 0
	ColorWriteGreen ColorWriteMask = 1 << 1
	ColorWriteBlue  ColorWriteMask = 1 << 2
	ColorWriteAlpha ColorWriteMask = 1 << 3
	ColorWriteAll                  = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

// ColorBlendDescriptor is the per-color-attachment blend state.
type ColorBlendDescriptor struct {
	Format          PixelFormat
	BlendingEnabled bool

	SrcColorFactor BlendFactor
	DstColorFactor BlendFactor
	ColorOp        BlendOperation
	SrcAlphaFactor BlendFactor
	DstAlphaFactor BlendFactor
	AlphaOp        BlendOperation

	WriteMask ColorWriteMask
}

// DefaultColorBlend returns premultiplied source-over blending, the engine's
// default composite mode.
func DefaultColorBlend(format PixelFormat) ColorBlendDescriptor {
	return ColorBlendDescriptor{
		Format:          format,
		BlendingEnabled: true,
		SrcColorFactor:  BlendFactorOne,
		DstColorFactor:  BlendFactorOneMinusSourceAlpha,
		ColorOp:         BlendOperationAdd,
		SrcAlphaFactor:  BlendFactorOne,
		DstAlphaFactor:  BlendFactorOneMinusSourceAlpha,
		AlphaOp:         BlendOperationAdd,
		WriteMask:       ColorWriteAll,
	}
}

// CompareFunction is a depth/stencil comparison.
type CompareFunction uint32

const (
	CompareNever CompareFunction = iota
	CompareAlways
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
)

// StencilOperation mutates the stencil buffer on test outcomes.
type StencilOperation uint32

const (
	StencilOpKeep StencilOperation = iota
	StencilOpZero
	StencilOpReplace
	StencilOpIncrementClamp
	StencilOpDecrementClamp
	StencilOpIncrementWrap
	StencilOpDecrementWrap
	StencilOpInvert
)

// StencilDescriptor is the per-face stencil state.
type StencilDescriptor struct {
	Compare          CompareFunction
	StencilFailure   StencilOperation
	DepthFailure     StencilOperation
	DepthStencilPass StencilOperation
	ReadMask         uint32
	WriteMask        uint32
}

// DepthDescriptor is the depth test state.
type DepthDescriptor struct {
	Compare      CompareFunction
	WriteEnabled bool
}

// CullMode selects which primitive faces are discarded.
type CullMode uint32

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// WindingOrder defines the front face.
type WindingOrder uint32

const (
	WindingClockwise WindingOrder = iota
	WindingCounterClockwise
)

// PolygonMode selects fill or line rasterization. Line mode is a debug aid;
// the GLES backend approximates it.
type PolygonMode uint32

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

// VertexAttribute describes one attribute within a vertex layout. All
// attributes are float32 component vectors.
type VertexAttribute struct {
	// Location is the shader input location.
	Location uint32

	// Components is the number of float32 components (1-4).
	Components int32

	// Offset is the byte offset within a vertex.
	Offset int
}

// VertexLayout describes the memory layout of one interleaved vertex stream.
type VertexLayout struct {
	Stride     int
	Attributes []VertexAttribute
}

// PipelineDescriptor fully describes a render pipeline's fixed-function and
// shader state. It is the cache key for pipeline construction; backends
// attach their compiled shader handles out of band.
type PipelineDescriptor struct {
	Label string

	ColorBlend ColorBlendDescriptor

	// Depth is nil when the pipeline has no depth attachment.
	Depth *DepthDescriptor

	// StencilFront/StencilBack are nil when the pipeline has no stencil
	// attachment. When both are set and equal, backends configure both faces
	// with one call.
	StencilFront *StencilDescriptor
	StencilBack  *StencilDescriptor

	CullMode     CullMode
	WindingOrder WindingOrder
	PolygonMode  PolygonMode
	Primitive    PrimitiveType
	SampleCount  SampleCount

	VertexLayout VertexLayout

	// UsesInputAttachments marks pipelines that read the color attachment
	// via framebuffer fetch; the Vulkan backend binds the attachment as a
	// subpass input and inserts self-dependency barriers for them.
	UsesInputAttachments bool
}

// HasStencil reports whether any stencil face state is configured.
func (d *PipelineDescriptor) HasStencil() bool {
	return d.StencilFront != nil || d.StencilBack != nil
}

// Pipeline is a backend-compiled pipeline state object.
type Pipeline interface {
	// Descriptor returns the descriptor the pipeline was built from.
	Descriptor() *PipelineDescriptor
}
