// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"testing"

	"github.com/gogpu/ember"
)

// testEncoder builds a pass in the recording state without a device. Only
// paths that fail before reaching the driver may be exercised through it.
func testEncoder() *RenderPass {
	return &RenderPass{
		cb:    &CommandBuffer{valid: true},
		valid: true,
	}
}

func testView(length int) ember.BufferView {
	return ember.BufferView{
		Buffer: &DeviceBuffer{desc: ember.DeviceBufferDescriptor{Size: length}},
		Range:  ember.Range{Length: length},
	}
}

// foreignBuffer satisfies ember.DeviceBuffer without belonging to this
// backend.
type foreignBuffer struct{ ember.DeviceBuffer }

func TestDrawWithoutPipelineCancels(t *testing.T) {
	p := testEncoder()
	if err := p.Draw(); !errors.Is(err, ember.ErrDrawCancelled) {
		t.Fatalf("Draw() err = %v, want ErrDrawCancelled", err)
	}
}

func TestDrawWithoutVertexBufferCancels(t *testing.T) {
	p := testEncoder()
	p.pendingPipeline = &Pipeline{desc: &ember.PipelineDescriptor{}}
	if err := p.Draw(); !errors.Is(err, ember.ErrDrawCancelled) {
		t.Fatalf("Draw() err = %v, want ErrDrawCancelled", err)
	}
}

func TestDrawAfterEncode(t *testing.T) {
	p := testEncoder()
	p.ended = true
	if err := p.Draw(); !errors.Is(err, ember.ErrPassEnded) {
		t.Fatalf("Draw() on ended pass err = %v, want ErrPassEnded", err)
	}
}

func TestDrawOnInvalidPass(t *testing.T) {
	p := testEncoder()
	p.valid = false
	if err := p.Draw(); !errors.Is(err, ember.ErrPassInvalid) {
		t.Fatalf("Draw() on invalid pass err = %v, want ErrPassInvalid", err)
	}
}

func TestDrawResetsTransientState(t *testing.T) {
	p := testEncoder()
	p.SetPipeline(&Pipeline{desc: &ember.PipelineDescriptor{}})
	p.SetInstanceCount(4)
	p.SetBaseVertex(16)
	p.SetCommandLabel("glyph batch")
	if err := p.BindBuffer(ember.ShaderStageVertex, 0, ember.DescriptorUniformBuffer, testView(64)); err != nil {
		t.Fatalf("BindBuffer error: %v", err)
	}

	// The draw cancels (no vertex buffer), but the transient state must be
	// gone regardless.
	if err := p.Draw(); !errors.Is(err, ember.ErrDrawCancelled) {
		t.Fatalf("Draw() err = %v, want ErrDrawCancelled", err)
	}
	if p.pendingPipeline != nil || p.instanceCount != 0 || p.baseVertex != 0 ||
		p.commandLabel != "" || p.bufferCursor != 0 || p.writeCursor != 0 {
		t.Error("transient draw state survived Draw")
	}
}

func TestBindBufferCapacity(t *testing.T) {
	p := testEncoder()
	view := testView(64)
	for i := 0; i < ember.MaxBindings; i++ {
		if err := p.BindBuffer(ember.ShaderStageFragment, uint32(i), ember.DescriptorUniformBuffer, view); err != nil {
			t.Fatalf("BindBuffer #%d error: %v", i, err)
		}
	}
	if err := p.BindBuffer(ember.ShaderStageFragment, 99, ember.DescriptorUniformBuffer, view); !errors.Is(err, ember.ErrBindingCapacity) {
		t.Fatalf("bind past capacity err = %v, want ErrBindingCapacity", err)
	}

	// A cancelled draw rewinds the cursors and frees the workspace.
	if err := p.Draw(); !errors.Is(err, ember.ErrDrawCancelled) {
		t.Fatalf("Draw() err = %v, want ErrDrawCancelled", err)
	}
	if err := p.BindBuffer(ember.ShaderStageFragment, 0, ember.DescriptorUniformBuffer, view); err != nil {
		t.Fatalf("BindBuffer after reset error: %v", err)
	}
}

func TestBindBufferInvalidView(t *testing.T) {
	p := testEncoder()
	cases := []struct {
		name string
		view ember.BufferView
	}{
		{"nil buffer", ember.BufferView{Range: ember.Range{Length: 4}}},
		{"empty range", ember.BufferView{Buffer: &DeviceBuffer{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.BindBuffer(ember.ShaderStageVertex, 0, ember.DescriptorUniformBuffer, tc.view)
			if !errors.Is(err, ember.ErrInvalidBufferView) {
				t.Fatalf("err = %v, want ErrInvalidBufferView", err)
			}
		})
	}
}

func TestBindBufferStagesDescriptorWrite(t *testing.T) {
	p := testEncoder()
	view := testView(256)
	view.Range = ember.Range{Offset: 64, Length: 128}
	if err := p.BindBuffer(ember.ShaderStageVertex, 3, ember.DescriptorUniformBuffer, view); err != nil {
		t.Fatalf("BindBuffer error: %v", err)
	}
	if p.writeCursor != 1 || p.bufferCursor != 1 {
		t.Fatalf("cursors = (%d, %d), want (1, 1)", p.writeCursor, p.bufferCursor)
	}
	w := p.writeWorkspace[0]
	if w.DstBinding != 3 {
		t.Errorf("DstBinding = %d, want 3", w.DstBinding)
	}
	info := p.bufferWorkspace[0]
	if info.Offset != 64 || info.Range != 128 {
		t.Errorf("buffer info = offset %d range %d, want 64/128", info.Offset, info.Range)
	}
}

func TestSetVertexBufferRejectsForeignBuffer(t *testing.T) {
	p := testEncoder()
	vb := ember.VertexBuffer{
		VertexBuffer: ember.BufferView{Buffer: foreignBuffer{}, Range: ember.Range{Length: 12}},
		VertexCount:  3,
		IndexType:    ember.IndexTypeNone,
	}
	if err := p.SetVertexBuffer(vb); !errors.Is(err, ember.ErrInvalidBufferView) {
		t.Fatalf("SetVertexBuffer err = %v, want ErrInvalidBufferView", err)
	}
}

func TestSetVertexBufferUnknownIndexType(t *testing.T) {
	p := testEncoder()
	vb := ember.VertexBuffer{
		VertexBuffer: testView(12),
		VertexCount:  3,
		IndexType:    ember.IndexTypeUnknown,
	}
	if err := p.SetVertexBuffer(vb); !errors.Is(err, ember.ErrUnknownIndexType) {
		t.Fatalf("SetVertexBuffer err = %v, want ErrUnknownIndexType", err)
	}
}

func TestBindBufferAfterSubmitNotTracked(t *testing.T) {
	p := testEncoder()
	p.cb.submitted = true
	err := p.BindBuffer(ember.ShaderStageVertex, 0, ember.DescriptorUniformBuffer, testView(16))
	if !errors.Is(err, ember.ErrResourceNotTracked) {
		t.Fatalf("err = %v, want ErrResourceNotTracked", err)
	}
}

func TestTrackAttachmentsPinsTextures(t *testing.T) {
	color := &Texture{desc: ember.TextureDescriptor{
		Format:      ember.PixelFormatRGBA8UNorm,
		Size:        ember.ISize{Width: 32, Height: 32},
		SampleCount: 4,
	}}
	resolve := &Texture{desc: ember.TextureDescriptor{
		Format: ember.PixelFormatRGBA8UNorm,
		Size:   ember.ISize{Width: 32, Height: 32},
	}}
	depth := &Texture{desc: ember.TextureDescriptor{
		Format: ember.PixelFormatD32FloatS8UInt,
		Size:   ember.ISize{Width: 32, Height: 32},
	}}

	var rt ember.RenderTarget
	rt.SetColorAttachment(0, ember.ColorAttachment{
		Attachment: ember.Attachment{
			Texture:        color,
			ResolveTexture: resolve,
			LoadAction:     ember.LoadActionClear,
			StoreAction:    ember.StoreActionMultisampleResolve,
		},
	})
	rt.SetDepthAttachment(&ember.DepthAttachment{
		Attachment: ember.Attachment{
			Texture:     depth,
			LoadAction:  ember.LoadActionClear,
			StoreAction: ember.StoreActionDontCare,
		},
	})

	cb := &CommandBuffer{valid: true}
	if err := trackAttachments(cb, rt); err != nil {
		t.Fatalf("trackAttachments error: %v", err)
	}
	want := map[any]bool{color: true, resolve: true, depth: true}
	for _, r := range cb.tracked {
		delete(want, r)
	}
	if len(want) != 0 {
		t.Errorf("%d attachment textures not tracked", len(want))
	}
}

func TestTrackAttachmentsAfterSubmit(t *testing.T) {
	var rt ember.RenderTarget
	rt.SetColorAttachment(0, ember.ColorAttachment{
		Attachment: ember.Attachment{
			Texture: &Texture{desc: ember.TextureDescriptor{
				Format: ember.PixelFormatRGBA8UNorm,
				Size:   ember.ISize{Width: 8, Height: 8},
			}},
			LoadAction:  ember.LoadActionClear,
			StoreAction: ember.StoreActionStore,
		},
	})
	cb := &CommandBuffer{valid: true, submitted: true}
	if err := trackAttachments(cb, rt); !errors.Is(err, ember.ErrResourceNotTracked) {
		t.Fatalf("trackAttachments err = %v, want ErrResourceNotTracked", err)
	}
}

func TestTargetCompatKey(t *testing.T) {
	target := func(format ember.PixelFormat, load ember.LoadAction) ember.RenderTarget {
		var rt ember.RenderTarget
		rt.SetColorAttachment(0, ember.ColorAttachment{
			Attachment: ember.Attachment{
				Texture: &Texture{desc: ember.TextureDescriptor{
					Format: format,
					Size:   ember.ISize{Width: 64, Height: 64},
				}},
				LoadAction:  load,
				StoreAction: ember.StoreActionStore,
			},
		})
		return rt
	}

	a := targetCompatKey(target(ember.PixelFormatRGBA8UNorm, ember.LoadActionClear))
	b := targetCompatKey(target(ember.PixelFormatRGBA8UNorm, ember.LoadActionClear))
	if a != b {
		t.Errorf("identical targets produced different keys:\n%q\n%q", a, b)
	}
	if c := targetCompatKey(target(ember.PixelFormatBGRA8UNorm, ember.LoadActionClear)); c == a {
		t.Error("different formats produced the same key")
	}
	if c := targetCompatKey(target(ember.PixelFormatRGBA8UNorm, ember.LoadActionLoad)); c == a {
		t.Error("different load actions produced the same key")
	}
}

func TestDescriptorKindMapping(t *testing.T) {
	kinds := map[ember.DescriptorKind]string{
		ember.DescriptorUniformBuffer:   "uniform",
		ember.DescriptorStorageBuffer:   "storage",
		ember.DescriptorSampledImage:    "sampled",
		ember.DescriptorInputAttachment: "input",
	}
	seen := map[int32]bool{}
	for kind := range kinds {
		dt := int32(vkDescriptorType(kind))
		if seen[dt] {
			t.Errorf("descriptor kind %v maps to a duplicate native type", kind)
		}
		seen[dt] = true
	}
}
