// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import "github.com/gogpu/ember/internal/lru"

// SamplerLibrary memoizes immutable sampler states per descriptor. Backends
// create samplers through native calls; the library deduplicates them by
// SamplerDescriptor.Key so a frame encoding thousands of draws touches the
// driver once per distinct configuration.
type SamplerLibrary struct {
	create func(SamplerDescriptor) (Sampler, error)
	cache  *lru.Cache[string, Sampler]
}

// NewSamplerLibrary wraps a backend's sampler constructor.
func NewSamplerLibrary(create func(SamplerDescriptor) (Sampler, error)) *SamplerLibrary {
	return &SamplerLibrary{
		create: create,
		cache:  lru.New[string, Sampler](0),
	}
}

// Get returns the shared sampler for desc, creating it on first use.
func (l *SamplerLibrary) Get(desc SamplerDescriptor) (Sampler, error) {
	return l.cache.GetOrCreate(desc.Key(), func() (Sampler, error) {
		return l.create(desc)
	})
}

// Len returns the number of distinct samplers created so far.
func (l *SamplerLibrary) Len() int { return l.cache.Len() }
