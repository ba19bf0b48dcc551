// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"sort"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

// ErrBuilderNoColor is returned when Build is called with no color
// attachment configured.
var ErrBuilderNoColor = errors.New("vulkan: render pass builder has no color attachment")

// AttachmentConfig is the per-attachment state a native render pass needs.
type AttachmentConfig struct {
	Format      ember.PixelFormat
	SampleCount ember.SampleCount
	LoadAction  ember.LoadAction
	StoreAction ember.StoreAction
}

// RenderPassBuilder accumulates attachment configurations and builds the
// native render pass object. Setting an attachment twice overwrites the
// earlier configuration.
//
// The attachment description order is part of the pass's identity and must
// match the framebuffer's image view order exactly: color attachments in
// ascending index order, each followed immediately by its resolve
// attachment when present, then depth, then stencil.
type RenderPassBuilder struct {
	colors  map[int]AttachmentConfig
	depth   *AttachmentConfig
	stencil *AttachmentConfig

	// supportsFetch adds the self-dependency that lets fragment shaders
	// read the color attachment they are rendering into.
	supportsFetch bool
}

func NewRenderPassBuilder() *RenderPassBuilder {
	return &RenderPassBuilder{colors: make(map[int]AttachmentConfig)}
}

// SetColorAttachment configures the color attachment at index. A resolve
// attachment is implied when cfg.StoreAction resolves.
func (b *RenderPassBuilder) SetColorAttachment(index int, cfg AttachmentConfig) *RenderPassBuilder {
	b.colors[index] = cfg
	return b
}

// SetDepthAttachment configures the depth aspect. Passing nil clears it.
func (b *RenderPassBuilder) SetDepthAttachment(cfg *AttachmentConfig) *RenderPassBuilder {
	b.depth = cfg
	return b
}

// SetStencilAttachment configures the stencil aspect. Passing nil clears
// it.
func (b *RenderPassBuilder) SetStencilAttachment(cfg *AttachmentConfig) *RenderPassBuilder {
	b.stencil = cfg
	return b
}

// SetSupportsFramebufferFetch enables the subpass self-dependency needed
// by pipelines that read their own color output.
func (b *RenderPassBuilder) SetSupportsFramebufferFetch(enabled bool) *RenderPassBuilder {
	b.supportsFetch = enabled
	return b
}

// slotKind classifies a position in the attachment description array.
type slotKind uint8

const (
	slotColor slotKind = iota
	slotResolve
	slotDepthStencil
)

// attachmentSlot is one entry of the assembled attachment array.
type attachmentSlot struct {
	kind  slotKind
	index int // color attachment index; -1 for depth/stencil
	desc  vk.AttachmentDescription
}

// assembly is the device-independent expansion of the builder's state.
// Separated from Build so attachment ordering is verifiable without a
// Vulkan device.
type assembly struct {
	slots []attachmentSlot

	colorRefs   []vk.AttachmentReference
	resolveRefs []vk.AttachmentReference
	depthRef    *vk.AttachmentReference
	inputRefs   []vk.AttachmentReference
}

func (b *RenderPassBuilder) assemble() (*assembly, error) {
	if len(b.colors) == 0 {
		return nil, ErrBuilderNoColor
	}
	indices := make([]int, 0, len(b.colors))
	for i := range b.colors {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	a := &assembly{}
	hasResolves := false
	for _, cfg := range b.colors {
		if cfg.StoreAction.Resolves() {
			hasResolves = true
		}
	}

	push := func(s attachmentSlot) uint32 {
		a.slots = append(a.slots, s)
		return uint32(len(a.slots) - 1)
	}

	for _, i := range indices {
		cfg := b.colors[i]
		colorAt := push(attachmentSlot{
			kind:  slotColor,
			index: i,
			desc:  colorDescription(cfg),
		})
		a.colorRefs = append(a.colorRefs, vk.AttachmentReference{
			Attachment: colorAt,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		if b.supportsFetch {
			a.inputRefs = append(a.inputRefs, vk.AttachmentReference{
				Attachment: colorAt,
				Layout:     vk.ImageLayoutGeneral,
			})
		}
		if cfg.StoreAction.Resolves() {
			resolveAt := push(attachmentSlot{
				kind:  slotResolve,
				index: i,
				desc:  resolveDescription(cfg),
			})
			a.resolveRefs = append(a.resolveRefs, vk.AttachmentReference{
				Attachment: resolveAt,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		} else if hasResolves {
			// Mixed targets: pad so PResolveAttachments stays parallel to
			// PColorAttachments.
			a.resolveRefs = append(a.resolveRefs, vk.AttachmentReference{
				Attachment: vk.AttachmentUnused,
			})
		}
	}

	// Depth and stencil share one attachment slot; when both are present
	// the format must carry both aspects.
	if b.depth != nil || b.stencil != nil {
		at := push(attachmentSlot{
			kind:  slotDepthStencil,
			index: -1,
			desc:  depthStencilDescription(b.depth, b.stencil),
		})
		a.depthRef = &vk.AttachmentReference{
			Attachment: at,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}
	return a, nil
}

// Build creates the native render pass on device.
func (b *RenderPassBuilder) Build(device vk.Device) (vk.RenderPass, error) {
	a, err := b.assemble()
	if err != nil {
		return vk.NullRenderPass, err
	}

	descs := make([]vk.AttachmentDescription, len(a.slots))
	for i, s := range a.slots {
		descs[i] = s.desc
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(a.colorRefs)),
		PColorAttachments:    a.colorRefs,
	}
	if len(a.resolveRefs) > 0 {
		subpass.PResolveAttachments = a.resolveRefs
	}
	if a.depthRef != nil {
		subpass.PDepthStencilAttachment = a.depthRef
	}
	if len(a.inputRefs) > 0 {
		subpass.InputAttachmentCount = uint32(len(a.inputRefs))
		subpass.PInputAttachments = a.inputRefs
	}

	var deps []vk.SubpassDependency
	if b.supportsFetch {
		deps = append(deps, vk.SubpassDependency{
			SrcSubpass:      0,
			DstSubpass:      0,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessInputAttachmentReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		})
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descs)),
		PAttachments:    descs,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	if len(deps) > 0 {
		info.DependencyCount = uint32(len(deps))
		info.PDependencies = deps
	}

	var pass vk.RenderPass
	ret := vk.CreateRenderPass(device, &info, nil, &pass)
	if err := vkErr(ret, "create render pass"); err != nil {
		return vk.NullRenderPass, err
	}
	return pass, nil
}

func colorDescription(cfg AttachmentConfig) vk.AttachmentDescription {
	initial := vk.ImageLayoutUndefined
	if cfg.LoadAction == ember.LoadActionLoad {
		initial = vk.ImageLayoutColorAttachmentOptimal
	}
	return vk.AttachmentDescription{
		Format:         vkFormat(cfg.Format),
		Samples:        vkSamples(cfg.SampleCount),
		LoadOp:         vkLoadOp(cfg.LoadAction),
		StoreOp:        vkStoreOp(cfg.StoreAction),
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initial,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
}

func resolveDescription(cfg AttachmentConfig) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         vkFormat(cfg.Format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
}

func depthStencilDescription(depth, stencil *AttachmentConfig) vk.AttachmentDescription {
	cfg := depth
	if cfg == nil {
		cfg = stencil
	}
	desc := vk.AttachmentDescription{
		Format:         vkFormat(cfg.Format),
		Samples:        vkSamples(cfg.SampleCount),
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	if depth != nil {
		desc.LoadOp = vkLoadOp(depth.LoadAction)
		desc.StoreOp = vkStoreOp(depth.StoreAction)
	}
	if stencil != nil {
		desc.StencilLoadOp = vkLoadOp(stencil.LoadAction)
		desc.StencilStoreOp = vkStoreOp(stencil.StoreAction)
	}
	return desc
}

func vkFormat(f ember.PixelFormat) vk.Format {
	switch f {
	case ember.PixelFormatR8UNorm:
		return vk.FormatR8Unorm
	case ember.PixelFormatRGBA8UNorm:
		return vk.FormatR8g8b8a8Unorm
	case ember.PixelFormatRGBA8UNormSRGB:
		return vk.FormatR8g8b8a8Srgb
	case ember.PixelFormatBGRA8UNorm:
		return vk.FormatB8g8r8a8Unorm
	case ember.PixelFormatBGRA8UNormSRGB:
		return vk.FormatB8g8r8a8Srgb
	case ember.PixelFormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case ember.PixelFormatD24UNormS8UInt:
		return vk.FormatD24UnormS8Uint
	case ember.PixelFormatD32FloatS8UInt:
		return vk.FormatD32SfloatS8Uint
	case ember.PixelFormatS8UInt:
		return vk.FormatS8Uint
	default:
		return vk.FormatUndefined
	}
}

func vkSamples(c ember.SampleCount) vk.SampleCountFlagBits {
	if c == ember.SampleCount4 {
		return vk.SampleCount4Bit
	}
	return vk.SampleCount1Bit
}

func vkLoadOp(a ember.LoadAction) vk.AttachmentLoadOp {
	switch a {
	case ember.LoadActionLoad:
		return vk.AttachmentLoadOpLoad
	case ember.LoadActionClear:
		return vk.AttachmentLoadOpClear
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func vkStoreOp(a ember.StoreAction) vk.AttachmentStoreOp {
	switch a {
	case ember.StoreActionStore, ember.StoreActionStoreAndMultisampleResolve:
		return vk.AttachmentStoreOpStore
	default:
		return vk.AttachmentStoreOpDontCare
	}
}
