// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

func testPipeline(t *testing.T, factory VariantFactory) *Pipeline {
	t.Helper()
	p, err := NewPipeline(nil, &ember.PipelineDescriptor{Label: "test"},
		vk.NullPipeline, vk.NullPipelineLayout, vk.NullDescriptorSetLayout, factory)
	if err != nil {
		t.Fatalf("NewPipeline error: %v", err)
	}
	return p
}

func TestNewPipelineNilDescriptor(t *testing.T) {
	if _, err := NewPipeline(nil, nil, vk.NullPipeline, vk.NullPipelineLayout,
		vk.NullDescriptorSetLayout, nil); err == nil {
		t.Fatal("NewPipeline accepted a nil descriptor")
	}
}

func TestVariantForPlainSampler(t *testing.T) {
	calls := 0
	p := testPipeline(t, func(*Sampler) (vk.Pipeline, vk.PipelineLayout, vk.DescriptorSetLayout, error) {
		calls++
		return vk.NullPipeline, vk.NullPipelineLayout, vk.NullDescriptorSetLayout, nil
	})

	if _, err := p.variantFor(nil); err != nil {
		t.Fatalf("variantFor(nil) error: %v", err)
	}
	plain := &Sampler{desc: ember.SamplerDescriptor{MinFilter: ember.SamplerFilterLinear}}
	if _, err := p.variantFor(plain); err != nil {
		t.Fatalf("variantFor(plain) error: %v", err)
	}
	if calls != 0 {
		t.Errorf("factory ran %d times for base-pipeline samplers, want 0", calls)
	}
}

func TestVariantForBakedSamplerIsMemoized(t *testing.T) {
	calls := 0
	p := testPipeline(t, func(*Sampler) (vk.Pipeline, vk.PipelineLayout, vk.DescriptorSetLayout, error) {
		calls++
		return vk.NullPipeline, vk.NullPipelineLayout, vk.NullDescriptorSetLayout, nil
	})

	baked := &Sampler{baked: true}
	for i := 0; i < 3; i++ {
		if _, err := p.variantFor(baked); err != nil {
			t.Fatalf("variantFor(baked) #%d error: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("factory ran %d times for one sampler key, want 1", calls)
	}

	// A different sampler key builds a second variant.
	other := &Sampler{
		desc:  ember.SamplerDescriptor{AddressModeU: ember.SamplerAddressRepeat},
		baked: true,
	}
	if _, err := p.variantFor(other); err != nil {
		t.Fatalf("variantFor(other) error: %v", err)
	}
	if calls != 2 {
		t.Errorf("factory ran %d times for two sampler keys, want 2", calls)
	}
}

func TestVariantForWithoutFactory(t *testing.T) {
	p := testPipeline(t, nil)
	if _, err := p.variantFor(&Sampler{baked: true}); !errors.Is(err, ErrNoVariantFactory) {
		t.Fatalf("variantFor err = %v, want ErrNoVariantFactory", err)
	}
}

func TestVariantFactoryErrorPropagates(t *testing.T) {
	boom := errors.New("shader library offline")
	p := testPipeline(t, func(*Sampler) (vk.Pipeline, vk.PipelineLayout, vk.DescriptorSetLayout, error) {
		return vk.NullPipeline, vk.NullPipelineLayout, vk.NullDescriptorSetLayout, boom
	})
	if _, err := p.variantFor(&Sampler{baked: true}); !errors.Is(err, boom) {
		t.Fatalf("variantFor err = %v, want wrapped factory error", err)
	}
}
