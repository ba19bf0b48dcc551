// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import "fmt"

// TextureDescriptor describes a texture allocation.
type TextureDescriptor struct {
	Format      PixelFormat
	Size        ISize
	SampleCount SampleCount
	Usage       TextureUsage
	StorageMode StorageMode
	Label       string
}

// IsValid reports whether the descriptor can be realized.
func (d TextureDescriptor) IsValid() bool {
	return d.Format != PixelFormatUnknown && !d.Size.IsEmpty()
}

// Texture is a backend-specific image resource.
type Texture interface {
	// Descriptor returns the creation descriptor.
	Descriptor() TextureDescriptor

	// IsValid reports whether the native resource exists (or, for deferred
	// backends, whether it can still be realized).
	IsValid() bool

	// Size returns the pixel extent.
	Size() ISize

	// SetLabel applies a debug label to the native object.
	SetLabel(label string)
}

// MinFilter/MagFilter for samplers.
type SamplerFilter uint32

const (
	SamplerFilterNearest SamplerFilter = iota
	SamplerFilterLinear
)

// SamplerAddressMode describes texture coordinate wrapping.
type SamplerAddressMode uint32

const (
	SamplerAddressClampToEdge SamplerAddressMode = iota
	SamplerAddressRepeat
	SamplerAddressMirror
)

// SamplerDescriptor describes an immutable sampler state object.
type SamplerDescriptor struct {
	MinFilter    SamplerFilter
	MagFilter    SamplerFilter
	AddressModeU SamplerAddressMode
	AddressModeV SamplerAddressMode
	Label        string
}

// Key returns a stable cache key for sampler libraries.
func (d SamplerDescriptor) Key() string {
	return fmt.Sprintf("%d-%d-%d-%d", d.MinFilter, d.MagFilter, d.AddressModeU, d.AddressModeV)
}

// Sampler is an immutable sampler state object. Samplers are created once
// per descriptor by a backend's sampler library and shared thereafter.
type Sampler interface {
	Descriptor() SamplerDescriptor
}
