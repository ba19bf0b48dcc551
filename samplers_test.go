// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import (
	"errors"
	"testing"
)

type fakeSampler struct {
	desc SamplerDescriptor
}

func (s *fakeSampler) Descriptor() SamplerDescriptor { return s.desc }

func TestSamplerLibraryDeduplicates(t *testing.T) {
	created := 0
	lib := NewSamplerLibrary(func(desc SamplerDescriptor) (Sampler, error) {
		created++
		return &fakeSampler{desc: desc}, nil
	})

	linear := SamplerDescriptor{MinFilter: SamplerFilterLinear, MagFilter: SamplerFilterLinear}
	a, err := lib.Get(linear)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	b, err := lib.Get(linear)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if a != b {
		t.Error("identical descriptors produced distinct samplers")
	}
	if created != 1 {
		t.Errorf("constructor ran %d times, want 1", created)
	}

	nearest := SamplerDescriptor{AddressModeU: SamplerAddressRepeat}
	c, err := lib.Get(nearest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c == a {
		t.Error("distinct descriptors share a sampler")
	}
	if lib.Len() != 2 {
		t.Errorf("Len() = %d, want 2", lib.Len())
	}
}

func TestSamplerLibraryPropagatesError(t *testing.T) {
	fail := errors.New("device lost")
	lib := NewSamplerLibrary(func(SamplerDescriptor) (Sampler, error) {
		return nil, fail
	})
	if _, err := lib.Get(SamplerDescriptor{}); !errors.Is(err, fail) {
		t.Fatalf("Get() error = %v, want device lost", err)
	}
	if lib.Len() != 0 {
		t.Error("failed creation was cached")
	}
}
