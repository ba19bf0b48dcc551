// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"fmt"

	"github.com/gogpu/ember"
)

// Pipeline couples a pipeline descriptor with a linked GL program. The
// backend does not compile shaders; callers hand it an already-linked
// program handle and the pipeline owns its collection.
type Pipeline struct {
	reactor *Reactor
	desc    *ember.PipelineDescriptor
	program Handle
}

var _ ember.Pipeline = (*Pipeline)(nil)

// NewPipeline wraps a linked program handle in a pipeline. The handle must
// have been created on the same reactor with HandleTypeProgram.
func NewPipeline(reactor *Reactor, desc *ember.PipelineDescriptor, program Handle) (*Pipeline, error) {
	if desc == nil {
		return nil, fmt.Errorf("gles: pipeline descriptor is nil")
	}
	if program.Type() != HandleTypeProgram {
		return nil, fmt.Errorf("gles: pipeline %q requires a program handle, got %s",
			desc.Label, program.Type())
	}
	p := &Pipeline{reactor: reactor, desc: desc, program: program}
	if desc.Label != "" {
		reactor.SetDebugLabel(program, desc.Label)
	}
	return p, nil
}

func (p *Pipeline) Descriptor() *ember.PipelineDescriptor { return p.desc }

// Release schedules the program for collection.
func (p *Pipeline) Release() { p.reactor.CollectHandle(p.program) }

// bindProgram makes the pipeline's program current. Reactor thread only.
func (p *Pipeline) bindProgram() bool {
	name, ok := p.reactor.GLHandle(p.program)
	if !ok {
		return false
	}
	p.reactor.Procs().UseProgram(name)
	return true
}

func glPrimitive(t ember.PrimitiveType) uint32 {
	switch t {
	case ember.PrimitiveTriangleStrip:
		return glTriangleStrip
	case ember.PrimitiveLine:
		return glLines
	case ember.PrimitiveLineStrip:
		return glLineStrip
	case ember.PrimitivePoint:
		return glPoints
	default:
		return glTriangles
	}
}

func glBlendFactor(f ember.BlendFactor) uint32 {
	switch f {
	case ember.BlendFactorZero:
		return glZero
	case ember.BlendFactorOne:
		return glOne
	case ember.BlendFactorSourceAlpha:
		return glSrcAlpha
	case ember.BlendFactorOneMinusSourceAlpha:
		return glOneMinusSrcAlpha
	case ember.BlendFactorDestinationAlpha:
		return glDstAlpha
	case ember.BlendFactorOneMinusDestinationAlpha:
		return glOneMinusDstAlpha
	default:
		return glOne
	}
}

func glBlendOp(op ember.BlendOperation) uint32 {
	switch op {
	case ember.BlendOperationSubtract:
		return glFuncSubtract
	case ember.BlendOperationReverseSubtract:
		return glFuncReverseSubtract
	default:
		return glFuncAdd
	}
}

func glCompare(fn ember.CompareFunction) uint32 {
	switch fn {
	case ember.CompareNever:
		return glNever
	case ember.CompareLess:
		return glLess
	case ember.CompareEqual:
		return glEqual
	case ember.CompareLessEqual:
		return glLEqual
	case ember.CompareGreater:
		return glGreater
	case ember.CompareNotEqual:
		return glNotEqual
	case ember.CompareGreaterEqual:
		return glGEqual
	default:
		return glAlways
	}
}

func glStencilOp(op ember.StencilOperation) uint32 {
	switch op {
	case ember.StencilOpZero:
		return glZero
	case ember.StencilOpReplace:
		return glReplace
	case ember.StencilOpIncrementClamp:
		return glIncr
	case ember.StencilOpDecrementClamp:
		return glDecr
	case ember.StencilOpIncrementWrap:
		return glIncrWrap
	case ember.StencilOpDecrementWrap:
		return glDecrWrap
	case ember.StencilOpInvert:
		return glInvert
	default:
		return glKeep
	}
}

func glIndexType(t ember.IndexType) (uint32, bool) {
	switch t {
	case ember.IndexTypeUint16:
		return glUnsignedShort, true
	case ember.IndexTypeUint32:
		return glUnsignedInt, true
	default:
		return 0, false
	}
}
