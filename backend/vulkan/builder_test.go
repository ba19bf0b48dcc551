// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

func TestAssembleRequiresColor(t *testing.T) {
	b := NewRenderPassBuilder()
	if _, err := b.assemble(); !errors.Is(err, ErrBuilderNoColor) {
		t.Fatalf("assemble() err = %v, want ErrBuilderNoColor", err)
	}
	b.SetDepthAttachment(&AttachmentConfig{Format: ember.PixelFormatD24UNormS8UInt})
	if _, err := b.assemble(); !errors.Is(err, ErrBuilderNoColor) {
		t.Fatalf("assemble() with only depth err = %v, want ErrBuilderNoColor", err)
	}
}

func TestAssembleAttachmentOrder(t *testing.T) {
	// Set colors out of order; attachment 0 resolves, the others do not.
	b := NewRenderPassBuilder().
		SetColorAttachment(2, AttachmentConfig{
			Format:      ember.PixelFormatRGBA8UNorm,
			SampleCount: ember.SampleCount1,
			StoreAction: ember.StoreActionStore,
		}).
		SetColorAttachment(0, AttachmentConfig{
			Format:      ember.PixelFormatBGRA8UNorm,
			SampleCount: ember.SampleCount4,
			StoreAction: ember.StoreActionMultisampleResolve,
		}).
		SetColorAttachment(1, AttachmentConfig{
			Format:      ember.PixelFormatRGBA8UNorm,
			SampleCount: ember.SampleCount1,
			StoreAction: ember.StoreActionStore,
		}).
		SetDepthAttachment(&AttachmentConfig{
			Format:      ember.PixelFormatD24UNormS8UInt,
			SampleCount: ember.SampleCount1,
		})

	a, err := b.assemble()
	if err != nil {
		t.Fatalf("assemble() error: %v", err)
	}

	wantKinds := []slotKind{slotColor, slotResolve, slotColor, slotColor, slotDepthStencil}
	wantIndices := []int{0, 0, 1, 2, -1}
	if len(a.slots) != len(wantKinds) {
		t.Fatalf("got %d slots, want %d", len(a.slots), len(wantKinds))
	}
	for i, s := range a.slots {
		if s.kind != wantKinds[i] || s.index != wantIndices[i] {
			t.Errorf("slot %d = kind %d index %d, want kind %d index %d",
				i, s.kind, s.index, wantKinds[i], wantIndices[i])
		}
	}

	// Color references climb the slot array past the interleaved resolve.
	wantColorAt := []uint32{0, 2, 3}
	for i, ref := range a.colorRefs {
		if ref.Attachment != wantColorAt[i] {
			t.Errorf("colorRefs[%d].Attachment = %d, want %d", i, ref.Attachment, wantColorAt[i])
		}
	}
	if a.depthRef == nil || a.depthRef.Attachment != 4 {
		t.Errorf("depthRef = %+v, want attachment 4", a.depthRef)
	}
}

func TestAssemblePadsMixedResolves(t *testing.T) {
	b := NewRenderPassBuilder().
		SetColorAttachment(0, AttachmentConfig{
			Format:      ember.PixelFormatBGRA8UNorm,
			SampleCount: ember.SampleCount4,
			StoreAction: ember.StoreActionMultisampleResolve,
		}).
		SetColorAttachment(1, AttachmentConfig{
			Format:      ember.PixelFormatRGBA8UNorm,
			StoreAction: ember.StoreActionStore,
		})

	a, err := b.assemble()
	if err != nil {
		t.Fatalf("assemble() error: %v", err)
	}
	if len(a.resolveRefs) != len(a.colorRefs) {
		t.Fatalf("resolveRefs len = %d, want %d (parallel arrays)",
			len(a.resolveRefs), len(a.colorRefs))
	}
	if a.resolveRefs[0].Attachment == vk.AttachmentUnused {
		t.Error("resolving attachment 0 has unused resolve reference")
	}
	if a.resolveRefs[1].Attachment != vk.AttachmentUnused {
		t.Errorf("non-resolving attachment 1 resolve ref = %d, want AttachmentUnused",
			a.resolveRefs[1].Attachment)
	}
}

func TestAssembleNoResolvesNoPadding(t *testing.T) {
	b := NewRenderPassBuilder().
		SetColorAttachment(0, AttachmentConfig{
			Format:      ember.PixelFormatRGBA8UNorm,
			StoreAction: ember.StoreActionStore,
		})
	a, err := b.assemble()
	if err != nil {
		t.Fatalf("assemble() error: %v", err)
	}
	if len(a.resolveRefs) != 0 {
		t.Errorf("resolveRefs len = %d, want 0 when nothing resolves", len(a.resolveRefs))
	}
}

func TestAssembleOverwritesIndex(t *testing.T) {
	b := NewRenderPassBuilder().
		SetColorAttachment(0, AttachmentConfig{Format: ember.PixelFormatRGBA8UNorm}).
		SetColorAttachment(0, AttachmentConfig{Format: ember.PixelFormatBGRA8UNorm})
	a, err := b.assemble()
	if err != nil {
		t.Fatalf("assemble() error: %v", err)
	}
	if len(a.slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(a.slots))
	}
	if got := a.slots[0].desc.Format; got != vkFormat(ember.PixelFormatBGRA8UNorm) {
		t.Errorf("slot format = %v, want the last-set format", got)
	}
}

func TestAssembleFramebufferFetchInputRefs(t *testing.T) {
	cfg := AttachmentConfig{Format: ember.PixelFormatRGBA8UNorm}
	b := NewRenderPassBuilder().
		SetColorAttachment(0, cfg).
		SetColorAttachment(1, cfg)

	a, err := b.assemble()
	if err != nil {
		t.Fatalf("assemble() error: %v", err)
	}
	if len(a.inputRefs) != 0 {
		t.Fatalf("inputRefs present without framebuffer fetch")
	}

	b.SetSupportsFramebufferFetch(true)
	a, err = b.assemble()
	if err != nil {
		t.Fatalf("assemble() error: %v", err)
	}
	if len(a.inputRefs) != 2 {
		t.Fatalf("inputRefs len = %d, want 2", len(a.inputRefs))
	}
	for i, ref := range a.inputRefs {
		if ref.Layout != vk.ImageLayoutGeneral {
			t.Errorf("inputRefs[%d].Layout = %v, want general", i, ref.Layout)
		}
	}
}

func TestDepthStencilDescriptionSplitsOps(t *testing.T) {
	depth := &AttachmentConfig{
		Format:      ember.PixelFormatD24UNormS8UInt,
		LoadAction:  ember.LoadActionClear,
		StoreAction: ember.StoreActionDontCare,
	}
	stencil := &AttachmentConfig{
		Format:      ember.PixelFormatD24UNormS8UInt,
		LoadAction:  ember.LoadActionLoad,
		StoreAction: ember.StoreActionStore,
	}
	desc := depthStencilDescription(depth, stencil)
	if desc.LoadOp != vk.AttachmentLoadOpClear {
		t.Errorf("LoadOp = %v, want clear (driven by depth)", desc.LoadOp)
	}
	if desc.StencilLoadOp != vk.AttachmentLoadOpLoad {
		t.Errorf("StencilLoadOp = %v, want load (driven by stencil)", desc.StencilLoadOp)
	}
	if desc.StencilStoreOp != vk.AttachmentStoreOpStore {
		t.Errorf("StencilStoreOp = %v, want store", desc.StencilStoreOp)
	}
}

func TestColorDescriptionInitialLayout(t *testing.T) {
	loaded := colorDescription(AttachmentConfig{
		Format:     ember.PixelFormatRGBA8UNorm,
		LoadAction: ember.LoadActionLoad,
	})
	if loaded.InitialLayout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("loading attachment initial layout = %v, want color-attachment", loaded.InitialLayout)
	}
	cleared := colorDescription(AttachmentConfig{
		Format:     ember.PixelFormatRGBA8UNorm,
		LoadAction: ember.LoadActionClear,
	})
	if cleared.InitialLayout != vk.ImageLayoutUndefined {
		t.Errorf("cleared attachment initial layout = %v, want undefined", cleared.InitialLayout)
	}
}
