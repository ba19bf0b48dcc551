// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import (
	"errors"
	"testing"
)

type fakePipeline struct {
	desc PipelineDescriptor
}

func (p *fakePipeline) Descriptor() *PipelineDescriptor { return &p.desc }

// recordPass records the setter sequence EncodeCommand drives.
type recordPass struct {
	calls []string

	vertexErr  error
	bufferErr  error
	textureErr error
	drawErr    error
}

func (p *recordPass) IsValid() bool                { return true }
func (p *recordPass) Label() string                { return "" }
func (p *recordPass) SetLabel(string)              {}
func (p *recordPass) RenderTargetSize() ISize      { return ISize{} }
func (p *recordPass) SetPipeline(Pipeline)         { p.calls = append(p.calls, "pipeline") }
func (p *recordPass) SetCommandLabel(string)       { p.calls = append(p.calls, "label") }
func (p *recordPass) SetStencilReference(uint32)   { p.calls = append(p.calls, "stencil") }
func (p *recordPass) SetBaseVertex(int)            { p.calls = append(p.calls, "base") }
func (p *recordPass) SetViewport(Viewport)         { p.calls = append(p.calls, "viewport") }
func (p *recordPass) SetScissor(IRect)             { p.calls = append(p.calls, "scissor") }
func (p *recordPass) SetInstanceCount(int)         { p.calls = append(p.calls, "instances") }
func (p *recordPass) AddCommand(cmd Command) error { return EncodeCommand(p, cmd) }
func (p *recordPass) EncodeCommands() error        { return nil }

func (p *recordPass) SetVertexBuffer(VertexBuffer) error {
	p.calls = append(p.calls, "vertex")
	return p.vertexErr
}

func (p *recordPass) BindBuffer(ShaderStage, uint32, DescriptorKind, BufferView) error {
	p.calls = append(p.calls, "bindbuffer")
	return p.bufferErr
}

func (p *recordPass) BindTexture(ShaderStage, uint32, Texture, Sampler) error {
	p.calls = append(p.calls, "bindtexture")
	return p.textureErr
}

func (p *recordPass) Draw() error {
	p.calls = append(p.calls, "draw")
	return p.drawErr
}

func testCommand() Command {
	return Command{
		Pipeline: &fakePipeline{},
		VertexBuffer: VertexBuffer{
			VertexBuffer: testView(64),
			VertexCount:  4,
			IndexType:    IndexTypeNone,
		},
	}
}

func TestEncodeCommandMinimal(t *testing.T) {
	p := &recordPass{}
	if err := EncodeCommand(p, testCommand()); err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	// No label, viewport, scissor, or instance override in a minimal command.
	want := []string{"pipeline", "stencil", "base", "vertex", "draw"}
	assertCalls(t, p.calls, want)
}

func TestEncodeCommandFull(t *testing.T) {
	cmd := testCommand()
	cmd.Label = "fill"
	cmd.Viewport = &Viewport{Rect: IRect{Width: 8, Height: 8}, ZFar: 1}
	cmd.Scissor = &IRect{Width: 4, Height: 4}
	cmd.InstanceCount = 2
	cmd.BufferBindings = []BufferBinding{
		{Stage: ShaderStageVertex, Binding: 0, Kind: DescriptorUniformBuffer, View: testView(16)},
		{Stage: ShaderStageFragment, Binding: 1, Kind: DescriptorUniformBuffer, View: testView(16)},
	}
	cmd.TextureBindings = []TextureBinding{
		{Stage: ShaderStageFragment, Binding: 2, Texture: testTexture(8, 8)},
	}

	p := &recordPass{}
	if err := EncodeCommand(p, cmd); err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	want := []string{
		"pipeline", "label", "viewport", "scissor", "stencil", "instances",
		"base", "vertex", "bindbuffer", "bindbuffer", "bindtexture", "draw",
	}
	assertCalls(t, p.calls, want)
}

func TestEncodeCommandStopsOnVertexError(t *testing.T) {
	p := &recordPass{vertexErr: ErrInvalidBufferView}
	err := EncodeCommand(p, testCommand())
	if !errors.Is(err, ErrInvalidBufferView) {
		t.Fatalf("EncodeCommand() = %v, want ErrInvalidBufferView", err)
	}
	for _, c := range p.calls {
		if c == "draw" {
			t.Error("Draw() ran after vertex buffer error")
		}
	}
}

func TestEncodeCommandStopsOnBindingError(t *testing.T) {
	cmd := testCommand()
	cmd.BufferBindings = []BufferBinding{
		{Stage: ShaderStageVertex, View: testView(16)},
	}
	p := &recordPass{bufferErr: ErrBindingCapacity}
	err := EncodeCommand(p, cmd)
	if !errors.Is(err, ErrBindingCapacity) {
		t.Fatalf("EncodeCommand() = %v, want ErrBindingCapacity", err)
	}
	for _, c := range p.calls {
		if c == "draw" {
			t.Error("Draw() ran after binding error")
		}
	}
}

func TestEncodeCommandPropagatesDrawError(t *testing.T) {
	p := &recordPass{drawErr: ErrDrawCancelled}
	err := EncodeCommand(p, testCommand())
	if !errors.Is(err, ErrDrawCancelled) {
		t.Fatalf("EncodeCommand() = %v, want ErrDrawCancelled", err)
	}
}

func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}
