// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"
	"sync"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

// ErrDescriptorPoolExhausted is returned when a draw could not allocate a
// descriptor set from the command buffer's pool.
var ErrDescriptorPoolExhausted = errors.New("vulkan: descriptor pool exhausted")

// descriptorPoolCapacity bounds the descriptor sets one command buffer can
// allocate. Each draw consumes one set.
const descriptorPoolCapacity = 1024

// fenceTimeout bounds how long Submit's completion goroutine waits for the
// GPU before reporting an error instead of leaking tracked resources.
const fenceTimeout = 10 * time.Second

// CommandBuffer wraps a native command buffer in the recording state
// together with a per-submission descriptor pool.
//
// Every draw allocates its descriptor set from the pool; the pool is
// reset wholesale when the GPU signals completion, which is why sets are
// never freed individually.
type CommandBuffer struct {
	dev   *Device
	label string

	cmd  vk.CommandBuffer
	pool vk.DescriptorPool

	mu        sync.Mutex
	valid     bool
	submitted bool
	tracked   []any
}

var _ ember.CommandBuffer = (*CommandBuffer)(nil)

func newCommandBuffer(dev *Device) (*CommandBuffer, error) {
	cmds := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(dev.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        dev.cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmds)
	if err := vkErr(ret, "allocate command buffer"); err != nil {
		return nil, err
	}
	cmd := cmds[0]

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolCapacity},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorPoolCapacity},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolCapacity},
		{Type: vk.DescriptorTypeInputAttachment, DescriptorCount: descriptorPoolCapacity},
	}
	var pool vk.DescriptorPool
	ret = vk.CreateDescriptorPool(dev.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       descriptorPoolCapacity,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}, nil, &pool)
	if err := vkErr(ret, "create descriptor pool"); err != nil {
		vk.FreeCommandBuffers(dev.device, dev.cmdPool, 1, cmds)
		return nil, err
	}

	ret = vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := vkErr(ret, "begin command buffer"); err != nil {
		vk.DestroyDescriptorPool(dev.device, pool, nil)
		vk.FreeCommandBuffers(dev.device, dev.cmdPool, 1, cmds)
		return nil, err
	}

	return &CommandBuffer{dev: dev, cmd: cmd, pool: pool, valid: true}, nil
}

func (c *CommandBuffer) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid && !c.submitted
}

func (c *CommandBuffer) SetLabel(label string) { c.label = label }

// track registers a resource so it outlives the GPU's use of it. Returns
// false once the buffer has been submitted.
func (c *CommandBuffer) track(resource any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted || !c.valid {
		return false
	}
	c.tracked = append(c.tracked, resource)
	return true
}

// allocateDescriptorSet carves one set for the current draw out of the
// buffer's pool.
func (c *CommandBuffer) allocateDescriptorSet(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, 1)
	ret := vk.AllocateDescriptorSets(c.dev.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     c.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, sets)
	switch ret {
	case vk.Success:
		return sets[0], nil
	case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return vk.NullDescriptorSet, ErrDescriptorPoolExhausted
	default:
		return vk.NullDescriptorSet, vkErr(ret, "allocate descriptor set")
	}
}

func (c *CommandBuffer) CreateRenderPass(target ember.RenderTarget) (ember.RenderPass, error) {
	c.mu.Lock()
	if c.submitted || !c.valid {
		c.mu.Unlock()
		return nil, ember.ErrCommandBufferInvalid
	}
	c.mu.Unlock()
	return newRenderPass(c, target)
}

func (c *CommandBuffer) CreateBlitPass() (ember.BlitPass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted || !c.valid {
		return nil, ember.ErrCommandBufferInvalid
	}
	return &BlitPass{cb: c, valid: true}, nil
}

// Submit ends recording and hands the buffer to the graphics queue. A
// fence-watching goroutine releases the tracked resources and runs
// onComplete once the GPU finishes.
func (c *CommandBuffer) Submit(onComplete func(error)) error {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		if onComplete != nil {
			onComplete(ember.ErrAlreadySubmitted)
		}
		return ember.ErrAlreadySubmitted
	}
	c.submitted = true
	c.mu.Unlock()

	fail := func(err error) error {
		c.release()
		if onComplete != nil {
			onComplete(err)
		}
		return err
	}

	if ret := vk.EndCommandBuffer(c.cmd); ret != vk.Success {
		return fail(vkErr(ret, "end command buffer"))
	}

	var fence vk.Fence
	ret := vk.CreateFence(c.dev.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if err := vkErr(ret, "create fence"); err != nil {
		return fail(err)
	}

	ret = vk.QueueSubmit(c.dev.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{c.cmd},
	}}, fence)
	if err := vkErr(ret, "queue submit"); err != nil {
		vk.DestroyFence(c.dev.device, fence, nil)
		return fail(err)
	}

	go func() {
		ret := vk.WaitForFences(c.dev.device, 1, []vk.Fence{fence}, vk.True,
			uint64(fenceTimeout.Nanoseconds()))
		vk.DestroyFence(c.dev.device, fence, nil)
		c.release()
		var err error
		if ret != vk.Success {
			err = vkErr(ret, "wait for fence")
			ember.Logger().Error("vulkan: command buffer completion",
				"label", c.label, "err", err)
		}
		if onComplete != nil {
			onComplete(err)
		}
	}()
	return nil
}

// release drops tracked resources and the native encoding objects. Safe
// to call more than once. Retired pass/framebuffer pairs held by this
// submission are destroyed here, once the GPU is done with them.
func (c *CommandBuffer) release() {
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return
	}
	c.valid = false
	tracked := c.tracked
	c.tracked = nil
	vk.DestroyDescriptorPool(c.dev.device, c.pool, nil)
	vk.FreeCommandBuffers(c.dev.device, c.dev.cmdPool, 1, []vk.CommandBuffer{c.cmd})
	c.mu.Unlock()

	for _, r := range tracked {
		if pc, ok := r.(*passCache); ok {
			pc.release()
		}
	}
}

// BlitPass records transfer commands directly into the command buffer.
// Copies to and from images insert the layout transitions the transfer
// requires.
type BlitPass struct {
	cb    *CommandBuffer
	label string
	valid bool
	ended bool
}

var _ ember.BlitPass = (*BlitPass)(nil)

func (p *BlitPass) IsValid() bool { return p.valid && !p.ended }

func (p *BlitPass) SetLabel(label string) { p.label = label }

func (p *BlitPass) CopyTextureToBuffer(texture ember.Texture, region ember.IRect, view ember.BufferView) error {
	if p.ended {
		return ember.ErrPassEnded
	}
	tex, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("vulkan: foreign texture in blit")
	}
	buf, ok := view.Buffer.(*DeviceBuffer)
	if !ok || !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	needed := region.Width * region.Height * 4
	if view.Range.Length < needed {
		return fmt.Errorf("%w: need %d bytes, view has %d",
			ember.ErrBufferRangeOutOfBounds, needed, view.Range.Length)
	}
	if !p.cb.track(tex) || !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}

	p.transition(tex, vk.ImageLayoutTransferSrcOptimal,
		vk.AccessTransferReadBit, vk.PipelineStageTransferBit)
	vk.CmdCopyImageToBuffer(p.cb.cmd, tex.image, vk.ImageLayoutTransferSrcOptimal,
		buf.buffer, 1, []vk.BufferImageCopy{p.copyRegion(region, view.Range.Offset)})
	return nil
}

func (p *BlitPass) CopyBufferToTexture(view ember.BufferView, texture ember.Texture, region ember.IRect) error {
	if p.ended {
		return ember.ErrPassEnded
	}
	tex, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("vulkan: foreign texture in blit")
	}
	buf, ok := view.Buffer.(*DeviceBuffer)
	if !ok || !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	needed := region.Width * region.Height * 4
	if view.Range.Length < needed {
		return fmt.Errorf("%w: need %d bytes, view has %d",
			ember.ErrBufferRangeOutOfBounds, needed, view.Range.Length)
	}
	if !p.cb.track(tex) || !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}

	p.transition(tex, vk.ImageLayoutTransferDstOptimal,
		vk.AccessTransferWriteBit, vk.PipelineStageTransferBit)
	vk.CmdCopyBufferToImage(p.cb.cmd, buf.buffer, tex.image,
		vk.ImageLayoutTransferDstOptimal, 1,
		[]vk.BufferImageCopy{p.copyRegion(region, view.Range.Offset)})
	return nil
}

func (p *BlitPass) copyRegion(region ember.IRect, offset int) vk.BufferImageCopy {
	return vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageOffset: vk.Offset3D{X: int32(region.X), Y: int32(region.Y)},
		ImageExtent: vk.Extent3D{
			Width:  uint32(region.Width),
			Height: uint32(region.Height),
			Depth:  1,
		},
	}
}

func (p *BlitPass) transition(tex *Texture, layout vk.ImageLayout, access vk.AccessFlagBits, stage vk.PipelineStageFlagBits) {
	if tex.Layout() == layout {
		return
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask:       vk.AccessFlags(access),
		OldLayout:           tex.Layout(),
		NewLayout:           layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               tex.image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(p.cb.cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(stage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	tex.SetLayout(layout)
}

func (p *BlitPass) EncodeCommands() error {
	if p.ended {
		return ember.ErrPassEnded
	}
	p.ended = true
	return nil
}
