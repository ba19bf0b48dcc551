// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import "testing"

func TestStoreActionResolves(t *testing.T) {
	tests := []struct {
		action     StoreAction
		resolves   bool
		canDiscard bool
	}{
		{StoreActionDontCare, false, true},
		{StoreActionStore, false, false},
		{StoreActionMultisampleResolve, true, true},
		{StoreActionStoreAndMultisampleResolve, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := tt.action.Resolves(); got != tt.resolves {
				t.Errorf("Resolves() = %v, want %v", got, tt.resolves)
			}
			if got := tt.action.CanDiscard(); got != tt.canDiscard {
				t.Errorf("CanDiscard() = %v, want %v", got, tt.canDiscard)
			}
		})
	}
}

func TestPixelFormatAspects(t *testing.T) {
	tests := []struct {
		format  PixelFormat
		depth   bool
		stencil bool
	}{
		{PixelFormatRGBA8UNorm, false, false},
		{PixelFormatD24UNormS8UInt, true, true},
		{PixelFormatD32FloatS8UInt, true, true},
		{PixelFormatS8UInt, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.HasDepth(); got != tt.depth {
				t.Errorf("HasDepth() = %v, want %v", got, tt.depth)
			}
			if got := tt.format.HasStencil(); got != tt.stencil {
				t.Errorf("HasStencil() = %v, want %v", got, tt.stencil)
			}
		})
	}
}

func TestSamplerDescriptorKey(t *testing.T) {
	a := SamplerDescriptor{MinFilter: SamplerFilterLinear, AddressModeU: SamplerAddressRepeat}
	b := a
	if a.Key() != b.Key() {
		t.Error("identical descriptors produced different keys")
	}
	b.MagFilter = SamplerFilterLinear
	if a.Key() == b.Key() {
		t.Error("distinct descriptors share a key")
	}
	// Label is a debug aid, not part of the identity.
	c := a
	c.Label = "named"
	if a.Key() != c.Key() {
		t.Error("label changed the sampler key")
	}
}

func TestNewViewport(t *testing.T) {
	v := NewViewport(ISize{Width: 800, Height: 600})
	if v.Rect != (IRect{Width: 800, Height: 600}) {
		t.Errorf("Rect = %v, want origin 800x600", v.Rect)
	}
	if v.ZNear != 0 || v.ZFar != 1 {
		t.Errorf("depth range = [%g, %g], want [0, 1]", v.ZNear, v.ZFar)
	}
}

func TestRangeIsEmpty(t *testing.T) {
	if !(Range{}).IsEmpty() {
		t.Error("zero range should be empty")
	}
	if !(Range{Offset: 8, Length: 0}).IsEmpty() {
		t.Error("zero-length range should be empty")
	}
	if (Range{Length: 1}).IsEmpty() {
		t.Error("one-byte range should not be empty")
	}
}
