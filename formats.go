// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import "fmt"

// PixelFormat specifies the memory layout of texel data.
type PixelFormat uint32

// Pixel formats.
const (
	// PixelFormatUnknown is an invalid/unset format.
	PixelFormatUnknown PixelFormat = iota

	// PixelFormatR8UNorm is 8-bit red channel only, normalized unsigned integer.
	PixelFormatR8UNorm

	// PixelFormatRGBA8UNorm is 8-bit RGBA, normalized unsigned integer.
	PixelFormatRGBA8UNorm

	// PixelFormatRGBA8UNormSRGB is 8-bit RGBA in the sRGB color space.
	PixelFormatRGBA8UNormSRGB

	// PixelFormatBGRA8UNorm is 8-bit BGRA, normalized unsigned integer.
	PixelFormatBGRA8UNorm

	// PixelFormatBGRA8UNormSRGB is 8-bit BGRA in the sRGB color space.
	PixelFormatBGRA8UNormSRGB

	// PixelFormatRGBA16Float is 16-bit floating point RGBA.
	PixelFormatRGBA16Float

	// PixelFormatD24UNormS8UInt is 24-bit depth with 8-bit stencil.
	PixelFormatD24UNormS8UInt

	// PixelFormatD32FloatS8UInt is 32-bit float depth with 8-bit stencil.
	PixelFormatD32FloatS8UInt

	// PixelFormatS8UInt is 8-bit stencil only.
	PixelFormatS8UInt
)

// String returns the string representation of PixelFormat.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatUnknown:
		return "Unknown"
	case PixelFormatR8UNorm:
		return "R8UNorm"
	case PixelFormatRGBA8UNorm:
		return "RGBA8UNorm"
	case PixelFormatRGBA8UNormSRGB:
		return "RGBA8UNormSRGB"
	case PixelFormatBGRA8UNorm:
		return "BGRA8UNorm"
	case PixelFormatBGRA8UNormSRGB:
		return "BGRA8UNormSRGB"
	case PixelFormatRGBA16Float:
		return "RGBA16Float"
	case PixelFormatD24UNormS8UInt:
		return "D24UNormS8UInt"
	case PixelFormatD32FloatS8UInt:
		return "D32FloatS8UInt"
	case PixelFormatS8UInt:
		return "S8UInt"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(f))
	}
}

// HasDepth reports whether the format carries a depth aspect.
func (f PixelFormat) HasDepth() bool {
	return f == PixelFormatD24UNormS8UInt || f == PixelFormatD32FloatS8UInt
}

// HasStencil reports whether the format carries a stencil aspect.
func (f PixelFormat) HasStencil() bool {
	switch f {
	case PixelFormatD24UNormS8UInt, PixelFormatD32FloatS8UInt, PixelFormatS8UInt:
		return true
	default:
		return false
	}
}

// SampleCount is the number of MSAA samples per pixel.
type SampleCount uint32

// Sample counts. Backends validate device support at pipeline and render
// pass creation; values other than these are rejected there.
const (
	SampleCount1 SampleCount = 1
	SampleCount4 SampleCount = 4
)

// LoadAction describes how an attachment's previous contents are treated
// when a render pass begins.
type LoadAction uint32

const (
	// LoadActionDontCare leaves the previous contents undefined.
	LoadActionDontCare LoadAction = iota

	// LoadActionLoad preserves the previous contents.
	LoadActionLoad

	// LoadActionClear clears the attachment to its clear value.
	LoadActionClear
)

// String returns the string representation of LoadAction.
func (a LoadAction) String() string {
	switch a {
	case LoadActionDontCare:
		return "DontCare"
	case LoadActionLoad:
		return "Load"
	case LoadActionClear:
		return "Clear"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(a))
	}
}

// CanClear reports whether beginning a pass with this action clears the
// attachment.
func (a LoadAction) CanClear() bool { return a == LoadActionClear }

// StoreAction describes what happens to an attachment's contents when a
// render pass ends.
type StoreAction uint32

const (
	// StoreActionDontCare discards the contents at pass end.
	StoreActionDontCare StoreAction = iota

	// StoreActionStore persists the contents.
	StoreActionStore

	// StoreActionMultisampleResolve resolves MSAA samples into the resolve
	// texture and discards the multisample contents.
	StoreActionMultisampleResolve

	// StoreActionStoreAndMultisampleResolve both persists the multisample
	// contents and resolves them.
	StoreActionStoreAndMultisampleResolve
)

// String returns the string representation of StoreAction.
func (a StoreAction) String() string {
	switch a {
	case StoreActionDontCare:
		return "DontCare"
	case StoreActionStore:
		return "Store"
	case StoreActionMultisampleResolve:
		return "MultisampleResolve"
	case StoreActionStoreAndMultisampleResolve:
		return "StoreAndMultisampleResolve"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(a))
	}
}

// CanDiscard reports whether the attachment contents may be dropped once
// the pass ends (nothing needs them afterwards).
func (a StoreAction) CanDiscard() bool {
	return a == StoreActionDontCare || a == StoreActionMultisampleResolve
}

// Resolves reports whether the action performs an MSAA resolve.
func (a StoreAction) Resolves() bool {
	return a == StoreActionMultisampleResolve || a == StoreActionStoreAndMultisampleResolve
}

// IndexType describes the element width of an index buffer.
type IndexType uint32

const (
	// IndexTypeUnknown is invalid. A vertex buffer carrying it is always
	// rejected.
	IndexTypeUnknown IndexType = iota

	// IndexTypeNone means a non-indexed draw.
	IndexTypeNone

	// IndexTypeUint16 is 16-bit indices.
	IndexTypeUint16

	// IndexTypeUint32 is 32-bit indices.
	IndexTypeUint32
)

// String returns the string representation of IndexType.
func (t IndexType) String() string {
	switch t {
	case IndexTypeUnknown:
		return "Unknown"
	case IndexTypeNone:
		return "None"
	case IndexTypeUint16:
		return "Uint16"
	case IndexTypeUint32:
		return "Uint32"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(t))
	}
}

// PrimitiveType describes how vertices are assembled into primitives.
type PrimitiveType uint32

const (
	PrimitiveTriangle PrimitiveType = iota
	PrimitiveTriangleStrip
	PrimitiveLine
	PrimitiveLineStrip
	PrimitivePoint
)

// String returns the string representation of PrimitiveType.
func (t PrimitiveType) String() string {
	switch t {
	case PrimitiveTriangle:
		return "Triangle"
	case PrimitiveTriangleStrip:
		return "TriangleStrip"
	case PrimitiveLine:
		return "Line"
	case PrimitiveLineStrip:
		return "LineStrip"
	case PrimitivePoint:
		return "Point"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(t))
	}
}

// StorageMode describes where a resource's memory lives.
type StorageMode uint32

const (
	// StorageModeHostVisible memory can be mapped and written by the CPU.
	// On non-coherent memory, Flush and Invalidate delimit host access.
	StorageModeHostVisible StorageMode = iota

	// StorageModeDevicePrivate memory is only accessible to the GPU.
	StorageModeDevicePrivate

	// StorageModeDeviceTransient memory backs attachments whose contents
	// never leave the GPU, and may be backed by tile memory.
	StorageModeDeviceTransient
)

// String returns the string representation of StorageMode.
func (m StorageMode) String() string {
	switch m {
	case StorageModeHostVisible:
		return "HostVisible"
	case StorageModeDevicePrivate:
		return "DevicePrivate"
	case StorageModeDeviceTransient:
		return "DeviceTransient"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(m))
	}
}

// TextureUsage is a bitmask describing how a texture will be used.
type TextureUsage uint32

const (
	// TextureUsageShaderRead indicates the texture will be sampled.
	TextureUsageShaderRead TextureUsage = 1 << 0

	// TextureUsageShaderWrite indicates the texture will be written from
	// shaders.
	TextureUsageShaderWrite TextureUsage = 1 << 1

	// TextureUsageRenderTarget indicates the texture will be used as a
	// framebuffer attachment.
	TextureUsageRenderTarget TextureUsage = 1 << 2
)

// ShaderStage identifies the pipeline stage a resource is bound to.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

// String returns the string representation of ShaderStage.
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "Vertex"
	case ShaderStageFragment:
		return "Fragment"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(s))
	}
}

// DescriptorKind identifies the shader-visible type of a bound resource.
type DescriptorKind uint32

const (
	// DescriptorUniformBuffer is a read-only uniform buffer binding.
	DescriptorUniformBuffer DescriptorKind = iota

	// DescriptorStorageBuffer is a read-write storage buffer binding.
	DescriptorStorageBuffer

	// DescriptorSampledImage is a combined image/sampler binding.
	DescriptorSampledImage

	// DescriptorInputAttachment is a framebuffer-fetch input binding.
	DescriptorInputAttachment
)

// String returns the string representation of DescriptorKind.
func (k DescriptorKind) String() string {
	switch k {
	case DescriptorUniformBuffer:
		return "UniformBuffer"
	case DescriptorStorageBuffer:
		return "StorageBuffer"
	case DescriptorSampledImage:
		return "SampledImage"
	case DescriptorInputAttachment:
		return "InputAttachment"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(k))
	}
}

// MaxBindings is the fixed capacity of the per-draw binding workspace.
// BindBuffer and BindTexture calls beyond this count between two Draw calls
// are rejected. The workspace is a bounded arena rather than a growable
// collection so that encoding a draw performs no heap allocation.
const MaxBindings = 32
