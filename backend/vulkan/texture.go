// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

// Texture is a vk.Image with its view and allocation. The current image
// layout is tracked on the texture so passes can emit correct transitions.
//
// A texture may also cache one recycled render pass and framebuffer (see
// passCache): consecutive passes targeting the same attachments reuse the
// native objects instead of rebuilding them each frame.
type Texture struct {
	dev    *Device
	desc   ember.TextureDescriptor
	image  vk.Image
	view   vk.ImageView
	memory vk.DeviceMemory

	mu     sync.Mutex
	layout vk.ImageLayout
	cache  *passCache
}

var _ ember.Texture = (*Texture)(nil)

// passCache is the recycled native pass/framebuffer pair cached on the
// texture the pass resolves to (or renders to, without MSAA). The key
// guards compatibility: a target whose attachment configuration differs
// must not reuse the cached objects.
//
// Every command buffer encoding against the pair holds a reference.
// Displacing or dropping the cache retires it; the native objects are
// destroyed only once the last in-flight reference is released, so a
// submission still executing on the GPU never loses its pass.
type passCache struct {
	dev         *Device
	key         string
	renderPass  vk.RenderPass
	framebuffer vk.Framebuffer

	mu        sync.Mutex
	refs      int
	retired   bool
	destroyed bool
}

// retain pins the native objects for an in-flight command buffer.
func (c *passCache) retain() {
	c.mu.Lock()
	c.refs++
	c.mu.Unlock()
}

// release drops one in-flight reference, destroying the native objects
// when the cache was retired and this was the last holder.
func (c *passCache) release() {
	c.mu.Lock()
	c.refs--
	destroy := c.retired && c.refs == 0
	c.mu.Unlock()
	if destroy {
		c.destroy()
	}
}

// retire marks the cache dead. Destruction happens immediately when no
// command buffer references the pair, otherwise on the last release.
func (c *passCache) retire() {
	c.mu.Lock()
	c.retired = true
	destroy := c.refs == 0
	c.mu.Unlock()
	if destroy {
		c.destroy()
	}
}

func (c *passCache) destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.mu.Unlock()
	if c.framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(c.dev.device, c.framebuffer, nil)
		c.framebuffer = vk.NullFramebuffer
	}
	if c.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(c.dev.device, c.renderPass, nil)
		c.renderPass = vk.NullRenderPass
	}
}

func newTexture(dev *Device, desc ember.TextureDescriptor) (*Texture, error) {
	if !desc.IsValid() {
		return nil, fmt.Errorf("vulkan: invalid texture descriptor %q", desc.Label)
	}
	format := vkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("vulkan: unsupported texture format %s", desc.Format)
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
	if desc.Usage&ember.TextureUsageShaderRead != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
		if desc.Usage&ember.TextureUsageRenderTarget != 0 {
			usage |= vk.ImageUsageFlags(vk.ImageUsageInputAttachmentBit)
		}
	}
	if desc.Usage&ember.TextureUsageShaderWrite != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	if desc.Usage&ember.TextureUsageRenderTarget != 0 {
		if desc.Format.HasDepth() || desc.Format.HasStencil() {
			usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}
	if desc.StorageMode == ember.StorageModeDeviceTransient {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit)
	}

	var image vk.Image
	ret := vk.CreateImage(dev.device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  uint32(desc.Size.Width),
			Height: uint32(desc.Size.Height),
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vkSamples(desc.SampleCount),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &image)
	if err := vkErr(ret, "create image"); err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev.device, image, &reqs)
	reqs.Deref()
	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.StorageMode == ember.StorageModeDeviceTransient {
		props |= vk.MemoryPropertyFlags(vk.MemoryPropertyLazilyAllocatedBit)
	}
	typeIdx, err := dev.memoryTypeIndex(reqs.MemoryTypeBits, props)
	if err != nil && desc.StorageMode == ember.StorageModeDeviceTransient {
		// Lazy memory is optional; fall back to plain device-local.
		typeIdx, err = dev.memoryTypeIndex(reqs.MemoryTypeBits,
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	}
	if err != nil {
		vk.DestroyImage(dev.device, image, nil)
		return nil, err
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(dev.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &memory)
	if err := vkErr(ret, "allocate image memory"); err != nil {
		vk.DestroyImage(dev.device, image, nil)
		return nil, err
	}
	if err := vkErr(vk.BindImageMemory(dev.device, image, memory, 0), "bind image memory"); err != nil {
		vk.FreeMemory(dev.device, memory, nil)
		vk.DestroyImage(dev.device, image, nil)
		return nil, err
	}

	var view vk.ImageView
	ret = vk.CreateImageView(dev.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vkAspect(desc.Format),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if err := vkErr(ret, "create image view"); err != nil {
		vk.FreeMemory(dev.device, memory, nil)
		vk.DestroyImage(dev.device, image, nil)
		return nil, err
	}

	return &Texture{
		dev:    dev,
		desc:   desc,
		image:  image,
		view:   view,
		memory: memory,
		layout: vk.ImageLayoutUndefined,
	}, nil
}

func vkAspect(f ember.PixelFormat) vk.ImageAspectFlags {
	var aspect vk.ImageAspectFlags
	if f.HasDepth() {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if f.HasStencil() {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	if aspect == 0 {
		aspect = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return aspect
}

func (t *Texture) Descriptor() ember.TextureDescriptor { return t.desc }

func (t *Texture) IsValid() bool { return t.image != vk.NullImage }

func (t *Texture) Size() ember.ISize { return t.desc.Size }

func (t *Texture) SetLabel(label string) { t.desc.Label = label }

// Layout returns the tracked image layout.
func (t *Texture) Layout() vk.ImageLayout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout
}

// SetLayout records the layout the image was transitioned to.
func (t *Texture) SetLayout(layout vk.ImageLayout) {
	t.mu.Lock()
	t.layout = layout
	t.mu.Unlock()
}

// cachedPass returns the recycled pass/framebuffer pair when its
// compatibility key matches. Mismatched keys retire the stale cache; a
// command buffer still in flight on it keeps the native objects alive
// until its fence signals.
func (t *Texture) cachedPass(key string) (*passCache, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache == nil {
		return nil, false
	}
	if t.cache.key != key {
		stale := t.cache
		t.cache = nil
		stale.retire()
		return nil, false
	}
	return t.cache, true
}

// storePassCache caches the pass/framebuffer pair for reuse by the next
// pass with the same key. A displaced pair is retired, not destroyed:
// in-flight references finish first.
func (t *Texture) storePassCache(c *passCache) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache != nil && t.cache != c {
		t.cache.retire()
	}
	t.cache = c
}

// Destroy releases the image, view, allocation, and any cached pass
// objects.
func (t *Texture) Destroy() {
	t.mu.Lock()
	cache := t.cache
	t.cache = nil
	t.mu.Unlock()
	if cache != nil {
		cache.retire()
	}
	if t.view != vk.NullImageView {
		vk.DestroyImageView(t.dev.device, t.view, nil)
		t.view = vk.NullImageView
	}
	if t.image != vk.NullImage {
		vk.DestroyImage(t.dev.device, t.image, nil)
		t.image = vk.NullImage
	}
	if t.memory != vk.NullDeviceMemory {
		vk.FreeMemory(t.dev.device, t.memory, nil)
		t.memory = vk.NullDeviceMemory
	}
}

// Sampler is an immutable vk.Sampler. Samplers are created through the
// device's sampler library and shared by descriptor key. A sampler built
// over a Ycbcr conversion cannot be bound as dynamic descriptor state and
// forces an immutable-sampler pipeline variant at draw time.
type Sampler struct {
	dev        *Device
	desc       ember.SamplerDescriptor
	sampler    vk.Sampler
	conversion vk.SamplerYcbcrConversion
	baked      bool
}

var _ ember.Sampler = (*Sampler)(nil)

// NewSampler creates a sampler from desc.
func NewSampler(dev *Device, desc ember.SamplerDescriptor) (*Sampler, error) {
	return newSampler(dev, desc, vk.NullSamplerYcbcrConversion)
}

// NewSamplerWithConversion creates a sampler chained to a Ycbcr
// conversion. Draws sampling through it select an immutable-sampler
// pipeline variant.
func NewSamplerWithConversion(dev *Device, desc ember.SamplerDescriptor, conversion vk.SamplerYcbcrConversion) (*Sampler, error) {
	return newSampler(dev, desc, conversion)
}

func newSampler(dev *Device, desc ember.SamplerDescriptor, conversion vk.SamplerYcbcrConversion) (*Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vkFilter(desc.MagFilter),
		MinFilter:    vkFilter(desc.MinFilter),
		MipmapMode:   vk.SamplerMipmapModeNearest,
		AddressModeU: vkAddressMode(desc.AddressModeU),
		AddressModeV: vkAddressMode(desc.AddressModeV),
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       1,
	}
	var sampler vk.Sampler
	ret := vk.CreateSampler(dev.device, &info, nil, &sampler)
	if err := vkErr(ret, "create sampler"); err != nil {
		return nil, err
	}
	return &Sampler{
		dev:        dev,
		desc:       desc,
		sampler:    sampler,
		conversion: conversion,
		baked:      conversion != vk.NullSamplerYcbcrConversion,
	}, nil
}

// RequiresBakedVariant reports whether draws using this sampler need an
// immutable-sampler pipeline variant.
func (s *Sampler) RequiresBakedVariant() bool { return s.baked }

func (s *Sampler) Descriptor() ember.SamplerDescriptor { return s.desc }

func (s *Sampler) Destroy() {
	if s.sampler != vk.NullSampler {
		vk.DestroySampler(s.dev.device, s.sampler, nil)
		s.sampler = vk.NullSampler
	}
}

func vkFilter(f ember.SamplerFilter) vk.Filter {
	if f == ember.SamplerFilterNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func vkAddressMode(m ember.SamplerAddressMode) vk.SamplerAddressMode {
	switch m {
	case ember.SamplerAddressRepeat:
		return vk.SamplerAddressModeRepeat
	case ember.SamplerAddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeClampToEdge
	}
}
