// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

// ErrNoVariantFactory is returned when a draw needs an immutable-sampler
// pipeline variant but the pipeline has no factory to build one.
var ErrNoVariantFactory = errors.New("vulkan: pipeline cannot create sampler variants")

// VariantFactory builds a pipeline variant whose descriptor set layout
// bakes the given sampler in as an immutable sampler. The shader library
// that compiled the base pipeline owns this.
type VariantFactory func(sampler *Sampler) (vk.Pipeline, vk.PipelineLayout, vk.DescriptorSetLayout, error)

// pipelineVariant is one compiled handle triple.
type pipelineVariant struct {
	pipeline  vk.Pipeline
	layout    vk.PipelineLayout
	setLayout vk.DescriptorSetLayout
}

// Pipeline wraps a compiled vk.Pipeline and memoizes immutable-sampler
// variants. Certain samplers (notably ones decoding external media) cannot
// be expressed as dynamic descriptor state in Vulkan and force a pipeline
// whose set layout embeds the sampler; those variants are created on first
// use at draw time and cached forever on the pipeline.
type Pipeline struct {
	dev  *Device
	desc *ember.PipelineDescriptor
	base pipelineVariant

	factory VariantFactory

	mu       sync.Mutex
	variants map[string]pipelineVariant
}

var _ ember.Pipeline = (*Pipeline)(nil)

// NewPipeline wraps compiled pipeline handles. factory may be nil when the
// pipeline never samples textures needing immutable samplers.
func NewPipeline(dev *Device, desc *ember.PipelineDescriptor, pipeline vk.Pipeline,
	layout vk.PipelineLayout, setLayout vk.DescriptorSetLayout, factory VariantFactory) (*Pipeline, error) {
	if desc == nil {
		return nil, fmt.Errorf("vulkan: pipeline descriptor is nil")
	}
	return &Pipeline{
		dev:     dev,
		desc:    desc,
		base:    pipelineVariant{pipeline: pipeline, layout: layout, setLayout: setLayout},
		factory: factory,
	}, nil
}

func (p *Pipeline) Descriptor() *ember.PipelineDescriptor { return p.desc }

// variantFor returns the pipeline variant for sampler. A nil sampler, or
// one needing no immutable binding, selects the base pipeline.
func (p *Pipeline) variantFor(sampler *Sampler) (pipelineVariant, error) {
	if sampler == nil || !sampler.RequiresBakedVariant() {
		return p.base, nil
	}
	key := sampler.desc.Key()
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.variants[key]; ok {
		return v, nil
	}
	if p.factory == nil {
		return pipelineVariant{}, ErrNoVariantFactory
	}
	pipeline, layout, setLayout, err := p.factory(sampler)
	if err != nil {
		return pipelineVariant{}, fmt.Errorf("vulkan: create pipeline variant: %w", err)
	}
	v := pipelineVariant{pipeline: pipeline, layout: layout, setLayout: setLayout}
	if p.variants == nil {
		p.variants = make(map[string]pipelineVariant)
	}
	p.variants[key] = v
	return v, nil
}

// Destroy releases the base pipeline and every cached variant.
func (p *Pipeline) Destroy() {
	p.mu.Lock()
	variants := p.variants
	p.variants = nil
	p.mu.Unlock()
	for _, v := range variants {
		vk.DestroyPipeline(p.dev.device, v.pipeline, nil)
	}
	if p.base.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(p.dev.device, p.base.pipeline, nil)
		p.base.pipeline = vk.NullPipeline
	}
}
