// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mtl

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/ember"
	"github.com/gogpu/ember/backend"
)

/*
#cgo CFLAGS: -Werror -xobjective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework CoreGraphics

@import Metal;

#include <stdlib.h>

#include <CoreFoundation/CoreFoundation.h>
#include <Metal/Metal.h>

typedef struct {
	void *addr;
	NSUInteger size;
} slice;

static CFTypeRef deviceCreate(void) {
	@autoreleasepool {
		return CFBridgingRetain(MTLCreateSystemDefaultDevice());
	}
}

static CFTypeRef deviceNewQueue(CFTypeRef devRef) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		return CFBridgingRetain([dev newCommandQueue]);
	}
}

static CFTypeRef queueNewBuffer(CFTypeRef queueRef) {
	@autoreleasepool {
		id<MTLCommandQueue> queue = (__bridge id<MTLCommandQueue>)queueRef;
		return CFBridgingRetain([queue commandBuffer]);
	}
}

static void cmdBufferCommit(CFTypeRef cmdBufRef) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmdBuf = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		[cmdBuf commit];
	}
}

static void cmdBufferWaitUntilCompleted(CFTypeRef cmdBufRef) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmdBuf = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		[cmdBuf waitUntilCompleted];
	}
}

static int cmdBufferStatusError(CFTypeRef cmdBufRef) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmdBuf = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		return cmdBuf.status == MTLCommandBufferStatusError;
	}
}

static CFTypeRef newBuffer(CFTypeRef devRef, NSUInteger size) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		return CFBridgingRetain([dev newBufferWithLength:size
		                                         options:MTLResourceStorageModeShared]);
	}
}

static slice bufferContents(CFTypeRef bufRef) {
	@autoreleasepool {
		id<MTLBuffer> buf = (__bridge id<MTLBuffer>)bufRef;
		slice s = { .addr = buf.contents, .size = buf.length };
		return s;
	}
}

static CFTypeRef newTexture(CFTypeRef devRef, NSUInteger width, NSUInteger height, MTLPixelFormat format, MTLTextureUsage usage, NSUInteger samples) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		MTLTextureDescriptor *desc = [MTLTextureDescriptor new];
		desc.textureType = samples > 1 ? MTLTextureType2DMultisample : MTLTextureType2D;
		desc.width = width;
		desc.height = height;
		desc.pixelFormat = format;
		desc.usage = usage;
		desc.sampleCount = samples;
		desc.storageMode = MTLStorageModePrivate;
		return CFBridgingRetain([dev newTextureWithDescriptor:desc]);
	}
}

static CFTypeRef newSampler(CFTypeRef devRef, MTLSamplerMinMagFilter minFilter, MTLSamplerMinMagFilter magFilter, MTLSamplerAddressMode modeU, MTLSamplerAddressMode modeV) {
	@autoreleasepool {
		id<MTLDevice> dev = (__bridge id<MTLDevice>)devRef;
		MTLSamplerDescriptor *desc = [MTLSamplerDescriptor new];
		desc.minFilter = minFilter;
		desc.magFilter = magFilter;
		desc.sAddressMode = modeU;
		desc.tAddressMode = modeV;
		return CFBridgingRetain([dev newSamplerStateWithDescriptor:desc]);
	}
}

static CFTypeRef cmdBufferRenderEncoder(CFTypeRef cmdBufRef,
		CFTypeRef colorRef, CFTypeRef resolveRef,
		MTLLoadAction load, MTLStoreAction store,
		double r, double g, double b, double a,
		CFTypeRef depthRef, MTLLoadAction depthLoad, double clearDepth,
		CFTypeRef stencilRef, MTLLoadAction stencilLoad, uint32_t clearStencil) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmdBuf = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		MTLRenderPassDescriptor *desc = [MTLRenderPassDescriptor new];
		desc.colorAttachments[0].texture = (__bridge id<MTLTexture>)colorRef;
		desc.colorAttachments[0].loadAction = load;
		desc.colorAttachments[0].storeAction = store;
		desc.colorAttachments[0].clearColor = MTLClearColorMake(r, g, b, a);
		if (resolveRef) {
			desc.colorAttachments[0].resolveTexture = (__bridge id<MTLTexture>)resolveRef;
		}
		if (depthRef) {
			desc.depthAttachment.texture = (__bridge id<MTLTexture>)depthRef;
			desc.depthAttachment.loadAction = depthLoad;
			desc.depthAttachment.storeAction = MTLStoreActionDontCare;
			desc.depthAttachment.clearDepth = clearDepth;
		}
		if (stencilRef) {
			desc.stencilAttachment.texture = (__bridge id<MTLTexture>)stencilRef;
			desc.stencilAttachment.loadAction = stencilLoad;
			desc.stencilAttachment.storeAction = MTLStoreActionDontCare;
			desc.stencilAttachment.clearStencil = clearStencil;
		}
		return CFBridgingRetain([cmdBuf renderCommandEncoderWithDescriptor:desc]);
	}
}

static void renderEncEnd(CFTypeRef encRef) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef endEncoding];
	}
}

static void renderEncPushDebugGroup(CFTypeRef encRef, const char *label) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef pushDebugGroup:@(label)];
	}
}

static void renderEncPopDebugGroup(CFTypeRef encRef) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef popDebugGroup];
	}
}

static void renderEncViewport(CFTypeRef encRef, MTLViewport viewport) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef setViewport:viewport];
	}
}

static void renderEncScissor(CFTypeRef encRef, MTLScissorRect rect) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef setScissorRect:rect];
	}
}

static void renderEncSetPipeline(CFTypeRef encRef, CFTypeRef pipeRef) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setRenderPipelineState:(__bridge id<MTLRenderPipelineState>)pipeRef];
	}
}

static void renderEncSetDepthStencil(CFTypeRef encRef, CFTypeRef dsRef) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setDepthStencilState:(__bridge id<MTLDepthStencilState>)dsRef];
	}
}

static void renderEncStencilRef(CFTypeRef encRef, uint32_t value) {
	@autoreleasepool {
		[(__bridge id<MTLRenderCommandEncoder>)encRef setStencilReferenceValue:value];
	}
}

static void renderEncSetVertexBuffer(CFTypeRef encRef, CFTypeRef bufRef, NSUInteger idx, NSUInteger offset) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setVertexBuffer:(__bridge id<MTLBuffer>)bufRef offset:offset atIndex:idx];
	}
}

static void renderEncSetFragmentBuffer(CFTypeRef encRef, CFTypeRef bufRef, NSUInteger idx, NSUInteger offset) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setFragmentBuffer:(__bridge id<MTLBuffer>)bufRef offset:offset atIndex:idx];
	}
}

static void renderEncSetFragmentTexture(CFTypeRef encRef, NSUInteger idx, CFTypeRef texRef) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setFragmentTexture:(__bridge id<MTLTexture>)texRef atIndex:idx];
	}
}

static void renderEncSetFragmentSampler(CFTypeRef encRef, NSUInteger idx, CFTypeRef samplerRef) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc setFragmentSamplerState:(__bridge id<MTLSamplerState>)samplerRef atIndex:idx];
	}
}

static void renderEncDraw(CFTypeRef encRef, MTLPrimitiveType type, NSUInteger start, NSUInteger count, NSUInteger instances) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc drawPrimitives:type vertexStart:start vertexCount:count instanceCount:instances];
	}
}

static void renderEncDrawIndexed(CFTypeRef encRef, MTLPrimitiveType type, NSUInteger count, MTLIndexType indexType, CFTypeRef bufRef, NSUInteger offset, NSUInteger instances, NSInteger baseVertex) {
	@autoreleasepool {
		id<MTLRenderCommandEncoder> enc = (__bridge id<MTLRenderCommandEncoder>)encRef;
		[enc drawIndexedPrimitives:type
		                indexCount:count
		                 indexType:indexType
		               indexBuffer:(__bridge id<MTLBuffer>)bufRef
		         indexBufferOffset:offset
		             instanceCount:instances
		                baseVertex:baseVertex
		              baseInstance:0];
	}
}

static CFTypeRef cmdBufferBlitEncoder(CFTypeRef cmdBufRef) {
	@autoreleasepool {
		id<MTLCommandBuffer> cmdBuf = (__bridge id<MTLCommandBuffer>)cmdBufRef;
		return CFBridgingRetain([cmdBuf blitCommandEncoder]);
	}
}

static void blitEncEnd(CFTypeRef encRef) {
	@autoreleasepool {
		[(__bridge id<MTLBlitCommandEncoder>)encRef endEncoding];
	}
}

static void blitEncCopyTextureToBuffer(CFTypeRef encRef, CFTypeRef texRef, CFTypeRef bufRef, NSUInteger offset, NSUInteger stride, NSUInteger length, MTLSize dims, MTLOrigin orig) {
	@autoreleasepool {
		id<MTLBlitCommandEncoder> enc = (__bridge id<MTLBlitCommandEncoder>)encRef;
		[enc copyFromTexture:(__bridge id<MTLTexture>)texRef
		                  sourceSlice:0
		                  sourceLevel:0
		                 sourceOrigin:orig
		                   sourceSize:dims
		                     toBuffer:(__bridge id<MTLBuffer>)bufRef
		            destinationOffset:offset
		       destinationBytesPerRow:stride
		     destinationBytesPerImage:length];
	}
}

static void blitEncCopyBufferToTexture(CFTypeRef encRef, CFTypeRef bufRef, CFTypeRef texRef, NSUInteger offset, NSUInteger stride, NSUInteger length, MTLSize dims, MTLOrigin orig) {
	@autoreleasepool {
		id<MTLBlitCommandEncoder> enc = (__bridge id<MTLBlitCommandEncoder>)encRef;
		[enc copyFromBuffer:(__bridge id<MTLBuffer>)bufRef
		       sourceOffset:offset
		  sourceBytesPerRow:stride
		sourceBytesPerImage:length
		         sourceSize:dims
		          toTexture:(__bridge id<MTLTexture>)texRef
		   destinationSlice:0
		   destinationLevel:0
		  destinationOrigin:orig];
	}
}
*/
import "C"

func init() {
	backend.Register(backend.BackendMetal, func() backend.Device {
		return &Device{}
	})
}

// Device wraps the system default MTLDevice and one command queue.
type Device struct {
	mu    sync.Mutex
	dev   C.CFTypeRef
	queue C.CFTypeRef
}

var _ backend.Device = (*Device)(nil)

func (d *Device) Name() string { return backend.BackendMetal }

func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != 0 {
		return nil
	}
	dev := C.deviceCreate()
	if dev == 0 {
		return errors.New("mtl: no system default device")
	}
	queue := C.deviceNewQueue(dev)
	if queue == 0 {
		C.CFRelease(dev)
		return errors.New("mtl: create command queue failed")
	}
	d.dev = dev
	d.queue = queue
	ember.Logger().Info("mtl: device initialized")
	return nil
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue != 0 {
		C.CFRelease(d.queue)
		d.queue = 0
	}
	if d.dev != 0 {
		C.CFRelease(d.dev)
		d.dev = 0
	}
}

func (d *Device) requireInit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == 0 {
		return backend.ErrNotInitialized
	}
	return nil
}

func (d *Device) CreateCommandBuffer() (ember.CommandBuffer, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	cmd := C.queueNewBuffer(d.queue)
	if cmd == 0 {
		return nil, errors.New("mtl: create command buffer failed")
	}
	return &CommandBuffer{dev: d, cmd: cmd, valid: true}, nil
}

func (d *Device) CreateDeviceBuffer(desc ember.DeviceBufferDescriptor) (ember.DeviceBuffer, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	if desc.Size <= 0 {
		return nil, fmt.Errorf("mtl: buffer size must be positive, got %d", desc.Size)
	}
	buf := C.newBuffer(d.dev, C.NSUInteger(desc.Size))
	if buf == 0 {
		return nil, fmt.Errorf("mtl: allocate buffer of %d bytes failed", desc.Size)
	}
	return &DeviceBuffer{desc: desc, buffer: buf}, nil
}

func (d *Device) CreateTexture(desc ember.TextureDescriptor) (ember.Texture, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	if !desc.IsValid() {
		return nil, fmt.Errorf("mtl: invalid texture descriptor %+v", desc)
	}
	samples := desc.SampleCount
	if samples == 0 {
		samples = ember.SampleCount1
	}
	tex := C.newTexture(d.dev,
		C.NSUInteger(desc.Size.Width), C.NSUInteger(desc.Size.Height),
		mtlPixelFormat(desc.Format), mtlUsage(desc.Usage), C.NSUInteger(samples))
	if tex == 0 {
		return nil, fmt.Errorf("mtl: allocate texture %+v failed", desc.Size)
	}
	return &Texture{desc: desc, texture: tex}, nil
}

// NewSampler creates an immutable sampler state.
func (d *Device) NewSampler(desc ember.SamplerDescriptor) (*Sampler, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	s := C.newSampler(d.dev,
		mtlFilter(desc.MinFilter), mtlFilter(desc.MagFilter),
		mtlAddressMode(desc.AddressModeU), mtlAddressMode(desc.AddressModeV))
	if s == 0 {
		return nil, errors.New("mtl: create sampler failed")
	}
	return &Sampler{desc: desc, sampler: s}, nil
}

// DeviceBuffer wraps an MTLBuffer in shared storage. Shared storage is
// coherent, so Flush and Invalidate have nothing to do.
type DeviceBuffer struct {
	desc   ember.DeviceBufferDescriptor
	buffer C.CFTypeRef
}

var _ ember.DeviceBuffer = (*DeviceBuffer)(nil)

func (b *DeviceBuffer) Descriptor() ember.DeviceBufferDescriptor { return b.desc }

func (b *DeviceBuffer) Contents() []byte {
	s := C.bufferContents(b.buffer)
	if s.addr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(s.addr), int(s.size))
}

func (b *DeviceBuffer) CopyHostData(data []byte, offset int) error {
	contents := b.Contents()
	if offset < 0 || offset+len(data) > len(contents) {
		return fmt.Errorf("%w: write [%d, %d) into %d bytes",
			ember.ErrBufferRangeOutOfBounds, offset, offset+len(data), len(contents))
	}
	copy(contents[offset:], data)
	return nil
}

func (b *DeviceBuffer) Flush(ember.Range) error      { return nil }
func (b *DeviceBuffer) Invalidate(ember.Range) error { return nil }
func (b *DeviceBuffer) SetLabel(label string)        { b.desc.Label = label }

func (b *DeviceBuffer) Destroy() {
	if b.buffer != 0 {
		C.CFRelease(b.buffer)
		b.buffer = 0
	}
}

// Texture wraps an MTLTexture.
type Texture struct {
	desc    ember.TextureDescriptor
	texture C.CFTypeRef
}

var _ ember.Texture = (*Texture)(nil)

func (t *Texture) Descriptor() ember.TextureDescriptor { return t.desc }
func (t *Texture) IsValid() bool                       { return t.texture != 0 }
func (t *Texture) Size() ember.ISize                   { return t.desc.Size }
func (t *Texture) SetLabel(label string)               { t.desc.Label = label }

func (t *Texture) Destroy() {
	if t.texture != 0 {
		C.CFRelease(t.texture)
		t.texture = 0
	}
}

// Sampler wraps an MTLSamplerState.
type Sampler struct {
	desc    ember.SamplerDescriptor
	sampler C.CFTypeRef
}

var _ ember.Sampler = (*Sampler)(nil)

func (s *Sampler) Descriptor() ember.SamplerDescriptor { return s.desc }

func (s *Sampler) Destroy() {
	if s.sampler != 0 {
		C.CFRelease(s.sampler)
		s.sampler = 0
	}
}

// Pipeline wraps a compiled MTLRenderPipelineState with its optional
// depth/stencil state. Shader compilation belongs to the caller's shader
// library.
type Pipeline struct {
	desc         *ember.PipelineDescriptor
	pipeline     C.CFTypeRef
	depthStencil C.CFTypeRef
}

var _ ember.Pipeline = (*Pipeline)(nil)

// NewPipeline wraps compiled pipeline handles.
func NewPipeline(desc *ember.PipelineDescriptor, pipeline, depthStencil unsafe.Pointer) (*Pipeline, error) {
	if desc == nil {
		return nil, errors.New("mtl: pipeline descriptor is nil")
	}
	if pipeline == nil {
		return nil, errors.New("mtl: pipeline state is nil")
	}
	p := &Pipeline{desc: desc, pipeline: C.CFTypeRef(pipeline)}
	C.CFRetain(p.pipeline)
	if depthStencil != nil {
		p.depthStencil = C.CFTypeRef(depthStencil)
		C.CFRetain(p.depthStencil)
	}
	return p, nil
}

func (p *Pipeline) Descriptor() *ember.PipelineDescriptor { return p.desc }

func (p *Pipeline) Destroy() {
	if p.pipeline != 0 {
		C.CFRelease(p.pipeline)
		p.pipeline = 0
	}
	if p.depthStencil != 0 {
		C.CFRelease(p.depthStencil)
		p.depthStencil = 0
	}
}

func mtlPixelFormat(f ember.PixelFormat) C.MTLPixelFormat {
	switch f {
	case ember.PixelFormatR8UNorm:
		return C.MTLPixelFormatR8Unorm
	case ember.PixelFormatRGBA8UNorm:
		return C.MTLPixelFormatRGBA8Unorm
	case ember.PixelFormatRGBA8UNormSRGB:
		return C.MTLPixelFormatRGBA8Unorm_sRGB
	case ember.PixelFormatBGRA8UNorm:
		return C.MTLPixelFormatBGRA8Unorm
	case ember.PixelFormatBGRA8UNormSRGB:
		return C.MTLPixelFormatBGRA8Unorm_sRGB
	case ember.PixelFormatRGBA16Float:
		return C.MTLPixelFormatRGBA16Float
	case ember.PixelFormatD24UNormS8UInt:
		// Universal on Apple GPUs, unlike packed 24/8.
		return C.MTLPixelFormatDepth32Float_Stencil8
	case ember.PixelFormatD32FloatS8UInt:
		return C.MTLPixelFormatDepth32Float_Stencil8
	case ember.PixelFormatS8UInt:
		return C.MTLPixelFormatStencil8
	default:
		return C.MTLPixelFormatInvalid
	}
}

func mtlUsage(u ember.TextureUsage) C.MTLTextureUsage {
	var usage C.MTLTextureUsage
	if u&ember.TextureUsageShaderRead != 0 {
		usage |= C.MTLTextureUsageShaderRead
	}
	if u&ember.TextureUsageShaderWrite != 0 {
		usage |= C.MTLTextureUsageShaderWrite
	}
	if u&ember.TextureUsageRenderTarget != 0 {
		usage |= C.MTLTextureUsageRenderTarget
	}
	return usage
}

func mtlFilter(f ember.SamplerFilter) C.MTLSamplerMinMagFilter {
	if f == ember.SamplerFilterLinear {
		return C.MTLSamplerMinMagFilterLinear
	}
	return C.MTLSamplerMinMagFilterNearest
}

func mtlAddressMode(m ember.SamplerAddressMode) C.MTLSamplerAddressMode {
	switch m {
	case ember.SamplerAddressRepeat:
		return C.MTLSamplerAddressModeRepeat
	case ember.SamplerAddressMirror:
		return C.MTLSamplerAddressModeMirrorRepeat
	default:
		return C.MTLSamplerAddressModeClampToEdge
	}
}

func mtlPrimitive(t ember.PrimitiveType) C.MTLPrimitiveType {
	switch t {
	case ember.PrimitiveTriangleStrip:
		return C.MTLPrimitiveTypeTriangleStrip
	case ember.PrimitiveLine:
		return C.MTLPrimitiveTypeLine
	case ember.PrimitiveLineStrip:
		return C.MTLPrimitiveTypeLineStrip
	case ember.PrimitivePoint:
		return C.MTLPrimitiveTypePoint
	default:
		return C.MTLPrimitiveTypeTriangle
	}
}

func mtlLoadAction(a ember.LoadAction) C.MTLLoadAction {
	switch a {
	case ember.LoadActionClear:
		return C.MTLLoadActionClear
	case ember.LoadActionLoad:
		return C.MTLLoadActionLoad
	default:
		return C.MTLLoadActionDontCare
	}
}

func mtlStoreAction(a ember.StoreAction) C.MTLStoreAction {
	switch a {
	case ember.StoreActionStore:
		return C.MTLStoreActionStore
	case ember.StoreActionMultisampleResolve:
		return C.MTLStoreActionMultisampleResolve
	case ember.StoreActionStoreAndMultisampleResolve:
		return C.MTLStoreActionStoreAndMultisampleResolve
	default:
		return C.MTLStoreActionDontCare
	}
}

// CommandBuffer wraps an MTLCommandBuffer.
type CommandBuffer struct {
	dev   *Device
	cmd   C.CFTypeRef
	label string

	mu        sync.Mutex
	valid     bool
	submitted bool
	tracked   []any
}

var _ ember.CommandBuffer = (*CommandBuffer)(nil)

func (c *CommandBuffer) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid && !c.submitted
}

func (c *CommandBuffer) SetLabel(label string) { c.label = label }

func (c *CommandBuffer) track(resource any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted || !c.valid {
		return false
	}
	c.tracked = append(c.tracked, resource)
	return true
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
	enc := C.cmdBufferBlitEncoder(c.cmd)
	if enc == 0 {
		return nil, errors.New("mtl: create blit encoder failed")
	}
	return &BlitPass{cb: c, enc: enc, valid: true}, nil
}

// Submit commits the command buffer. A goroutine waits for GPU completion,
// releases tracked resources, and runs onComplete.
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

	C.cmdBufferCommit(c.cmd)
	go func() {
		C.cmdBufferWaitUntilCompleted(c.cmd)
		var err error
		if C.cmdBufferStatusError(c.cmd) != 0 {
			err = errors.New("mtl: command buffer execution failed")
			ember.Logger().Error("mtl: command buffer completion", "label", c.label, "err", err)
		}
		c.release()
		if onComplete != nil {
			onComplete(err)
		}
	}()
	return nil
}

func (c *CommandBuffer) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return
	}
	c.valid = false
	c.tracked = nil
	C.CFRelease(c.cmd)
	c.cmd = 0
}

// bufferSlot tracks one bound buffer so redundant set calls are skipped.
type bufferSlot struct {
	buffer C.CFTypeRef
	offset int
}

// RenderPass encodes draws into an MTLRenderCommandEncoder.
type RenderPass struct {
	cb     *CommandBuffer
	target ember.RenderTarget
	enc    C.CFTypeRef
	label  string
	valid  bool
	ended  bool

	// Binding caches; Metal re-validates every setter, so identical
	// rebinds are skipped.
	vertexSlots   [ember.MaxBindings]bufferSlot
	fragmentSlots [ember.MaxBindings]bufferSlot
	boundPipeline C.CFTypeRef

	pendingPipeline *Pipeline
	pendingVertex   ember.VertexBuffer
	hasVertex       bool
	instanceCount   int
	baseVertex      int
	bindingCount    int
	stencilRef      uint32
	primitive       ember.PrimitiveType
	commandLabel    string
}

var _ ember.RenderPass = (*RenderPass)(nil)

func newRenderPass(cb *CommandBuffer, target ember.RenderTarget) (*RenderPass, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	color0, _ := target.ColorAttachment(0)
	colorTex, ok := color0.Texture.(*Texture)
	if !ok {
		return nil, errors.New("mtl: foreign color texture")
	}

	var resolveRef C.CFTypeRef
	if color0.StoreAction.Resolves() {
		resolveTex, ok := color0.ResolveTexture.(*Texture)
		if !ok {
			return nil, errors.New("mtl: foreign resolve texture")
		}
		resolveRef = resolveTex.texture
	}

	var depthRef, stencilRef C.CFTypeRef
	var depthLoad, stencilLoad C.MTLLoadAction
	var clearDepth float64
	var clearStencil uint32
	if d := target.DepthAttachment(); d != nil {
		tex, ok := d.Texture.(*Texture)
		if !ok {
			return nil, errors.New("mtl: foreign depth texture")
		}
		depthRef = tex.texture
		depthLoad = mtlLoadAction(d.LoadAction)
		clearDepth = float64(d.ClearDepth)
	}
	if s := target.StencilAttachment(); s != nil {
		tex, ok := s.Texture.(*Texture)
		if !ok {
			return nil, errors.New("mtl: foreign stencil texture")
		}
		stencilRef = tex.texture
		stencilLoad = mtlLoadAction(s.LoadAction)
		clearStencil = s.ClearStencil
	}

	enc := C.cmdBufferRenderEncoder(cb.cmd,
		colorTex.texture, resolveRef,
		mtlLoadAction(color0.LoadAction), mtlStoreAction(color0.StoreAction),
		C.double(color0.ClearColor.R), C.double(color0.ClearColor.G),
		C.double(color0.ClearColor.B), C.double(color0.ClearColor.A),
		depthRef, depthLoad, C.double(clearDepth),
		stencilRef, stencilLoad, C.uint32_t(clearStencil))
	if enc == 0 {
		return nil, errors.New("mtl: create render encoder failed")
	}

	p := &RenderPass{cb: cb, target: target, enc: enc, valid: true}
	p.SetViewport(ember.NewViewport(target.Size()))
	return p, nil
}

func (p *RenderPass) IsValid() bool { return p.valid && !p.ended }

func (p *RenderPass) Label() string { return p.label }

func (p *RenderPass) SetLabel(label string) { p.label = label }

func (p *RenderPass) RenderTargetSize() ember.ISize { return p.target.Size() }

func (p *RenderPass) SetPipeline(pl ember.Pipeline) {
	mp, ok := pl.(*Pipeline)
	if !ok {
		p.pendingPipeline = nil
		return
	}
	p.pendingPipeline = mp
	p.primitive = mp.desc.Primitive
}

func (p *RenderPass) SetCommandLabel(label string) { p.commandLabel = label }

func (p *RenderPass) SetStencilReference(value uint32) { p.stencilRef = value }

func (p *RenderPass) SetBaseVertex(value int) { p.baseVertex = value }

func (p *RenderPass) SetViewport(viewport ember.Viewport) {
	C.renderEncViewport(p.enc, C.MTLViewport{
		originX: C.double(viewport.Rect.X),
		originY: C.double(viewport.Rect.Y),
		width:   C.double(viewport.Rect.Width),
		height:  C.double(viewport.Rect.Height),
		znear:   C.double(viewport.ZNear),
		zfar:    C.double(viewport.ZFar),
	})
}

func (p *RenderPass) SetScissor(scissor ember.IRect) {
	C.renderEncScissor(p.enc, C.MTLScissorRect{
		x:      C.NSUInteger(scissor.X),
		y:      C.NSUInteger(scissor.Y),
		width:  C.NSUInteger(scissor.Width),
		height: C.NSUInteger(scissor.Height),
	})
}

func (p *RenderPass) SetInstanceCount(count int) { p.instanceCount = count }

func (p *RenderPass) SetVertexBuffer(buffer ember.VertexBuffer) error {
	if err := buffer.Validate(); err != nil {
		return err
	}
	if _, ok := buffer.VertexBuffer.Buffer.(*DeviceBuffer); !ok {
		return fmt.Errorf("%w: foreign vertex buffer", ember.ErrInvalidBufferView)
	}
	if !p.cb.track(buffer.VertexBuffer.Buffer) {
		return ember.ErrResourceNotTracked
	}
	if buffer.IndexType != ember.IndexTypeNone {
		if _, ok := buffer.IndexBuffer.Buffer.(*DeviceBuffer); !ok {
			return fmt.Errorf("%w: foreign index buffer", ember.ErrInvalidBufferView)
		}
		if !p.cb.track(buffer.IndexBuffer.Buffer) {
			return ember.ErrResourceNotTracked
		}
	}
	p.pendingVertex = buffer
	p.hasVertex = true
	return nil
}

// BindBuffer binds immediately; the slot caches suppress re-binding the
// same buffer/offset pair.
func (p *RenderPass) BindBuffer(stage ember.ShaderStage, binding uint32, kind ember.DescriptorKind, view ember.BufferView) error {
	if !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	if int(binding) >= ember.MaxBindings {
		return ember.ErrBindingCapacity
	}
	if p.bindingCount >= ember.MaxBindings {
		return ember.ErrBindingCapacity
	}
	buf, ok := view.Buffer.(*DeviceBuffer)
	if !ok {
		return fmt.Errorf("%w: foreign buffer at binding %d", ember.ErrInvalidBufferView, binding)
	}
	if !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}
	p.bindingCount++

	slot := bufferSlot{buffer: buf.buffer, offset: view.Range.Offset}
	if stage == ember.ShaderStageVertex {
		if p.vertexSlots[binding] == slot {
			return nil
		}
		p.vertexSlots[binding] = slot
		C.renderEncSetVertexBuffer(p.enc, buf.buffer,
			C.NSUInteger(binding), C.NSUInteger(view.Range.Offset))
		return nil
	}
	if p.fragmentSlots[binding] == slot {
		return nil
	}
	p.fragmentSlots[binding] = slot
	C.renderEncSetFragmentBuffer(p.enc, buf.buffer,
		C.NSUInteger(binding), C.NSUInteger(view.Range.Offset))
	return nil
}

func (p *RenderPass) BindTexture(stage ember.ShaderStage, binding uint32, texture ember.Texture, sampler ember.Sampler) error {
	if texture == nil || !texture.IsValid() {
		return fmt.Errorf("%w: nil or invalid texture at binding %d", ember.ErrDrawCancelled, binding)
	}
	if int(binding) >= ember.MaxBindings || p.bindingCount >= ember.MaxBindings {
		return ember.ErrBindingCapacity
	}
	tex, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("mtl: foreign texture at binding %d", binding)
	}
	if !p.cb.track(tex) {
		return ember.ErrResourceNotTracked
	}
	p.bindingCount++

	C.renderEncSetFragmentTexture(p.enc, C.NSUInteger(binding), tex.texture)
	if s, ok := sampler.(*Sampler); ok && s != nil {
		C.renderEncSetFragmentSampler(p.enc, C.NSUInteger(binding), s.sampler)
	}
	return nil
}

func (p *RenderPass) resetPending() {
	p.pendingPipeline = nil
	p.pendingVertex = ember.VertexBuffer{}
	p.hasVertex = false
	p.instanceCount = 0
	p.baseVertex = 0
	p.bindingCount = 0
	p.commandLabel = ""
}

func (p *RenderPass) Draw() error {
	defer p.resetPending()
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	if p.pendingPipeline == nil || !p.hasVertex {
		return ember.ErrDrawCancelled
	}

	if p.commandLabel != "" {
		cLabel := C.CString(p.commandLabel)
		C.renderEncPushDebugGroup(p.enc, cLabel)
		C.free(unsafe.Pointer(cLabel))
		defer C.renderEncPopDebugGroup(p.enc)
	}

	if p.boundPipeline != p.pendingPipeline.pipeline {
		p.boundPipeline = p.pendingPipeline.pipeline
		C.renderEncSetPipeline(p.enc, p.pendingPipeline.pipeline)
		if p.pendingPipeline.depthStencil != 0 {
			C.renderEncSetDepthStencil(p.enc, p.pendingPipeline.depthStencil)
		}
	}
	C.renderEncStencilRef(p.enc, C.uint32_t(p.stencilRef))

	vb := p.pendingVertex
	vbuf := vb.VertexBuffer.Buffer.(*DeviceBuffer)
	// Vertex data rides the last slot so bindings 0..MaxBindings-1 stay
	// free for resources.
	vertexDataIndex := C.NSUInteger(ember.MaxBindings)
	C.renderEncSetVertexBuffer(p.enc, vbuf.buffer, vertexDataIndex,
		C.NSUInteger(vb.VertexBuffer.Range.Offset))

	instances := C.NSUInteger(1)
	if p.instanceCount > 1 {
		instances = C.NSUInteger(p.instanceCount)
	}
	prim := mtlPrimitive(p.primitive)
	if vb.IndexType == ember.IndexTypeNone {
		C.renderEncDraw(p.enc, prim, C.NSUInteger(p.baseVertex),
			C.NSUInteger(vb.VertexCount), instances)
	} else {
		ibuf := vb.IndexBuffer.Buffer.(*DeviceBuffer)
		indexType := C.MTLIndexTypeUInt16
		if vb.IndexType == ember.IndexTypeUint32 {
			indexType = C.MTLIndexTypeUInt32
		}
		C.renderEncDrawIndexed(p.enc, prim, C.NSUInteger(vb.VertexCount),
			C.MTLIndexType(indexType), ibuf.buffer,
			C.NSUInteger(vb.IndexBuffer.Range.Offset), instances,
			C.NSInteger(p.baseVertex))
	}
	return nil
}

func (p *RenderPass) AddCommand(cmd ember.Command) error {
	return ember.EncodeCommand(p, cmd)
}

// EncodeCommands ends the native encoder. A pass that recorded nothing
// still ends it, so the command buffer stays committable.
func (p *RenderPass) EncodeCommands() error {
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	p.ended = true
	C.renderEncEnd(p.enc)
	C.CFRelease(p.enc)
	p.enc = 0
	return nil
}

// BlitPass encodes copies through an MTLBlitCommandEncoder.
type BlitPass struct {
	cb    *CommandBuffer
	enc   C.CFTypeRef
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
		return errors.New("mtl: foreign texture in blit")
	}
	buf, ok := view.Buffer.(*DeviceBuffer)
	if !ok || !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	stride := region.Width * 4
	if view.Range.Length < stride*region.Height {
		return fmt.Errorf("%w: need %d bytes, view has %d",
			ember.ErrBufferRangeOutOfBounds, stride*region.Height, view.Range.Length)
	}
	if !p.cb.track(tex) || !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}
	C.blitEncCopyTextureToBuffer(p.enc, tex.texture, buf.buffer,
		C.NSUInteger(view.Range.Offset), C.NSUInteger(stride),
		C.NSUInteger(stride*region.Height),
		C.MTLSize{
			width:  C.NSUInteger(region.Width),
			height: C.NSUInteger(region.Height),
			depth:  1,
		},
		C.MTLOrigin{x: C.NSUInteger(region.X), y: C.NSUInteger(region.Y)})
	return nil
}

func (p *BlitPass) CopyBufferToTexture(view ember.BufferView, texture ember.Texture, region ember.IRect) error {
	if p.ended {
		return ember.ErrPassEnded
	}
	tex, ok := texture.(*Texture)
	if !ok {
		return errors.New("mtl: foreign texture in blit")
	}
	buf, ok := view.Buffer.(*DeviceBuffer)
	if !ok || !view.IsValid() {
		return ember.ErrInvalidBufferView
	}
	stride := region.Width * 4
	if view.Range.Length < stride*region.Height {
		return fmt.Errorf("%w: need %d bytes, view has %d",
			ember.ErrBufferRangeOutOfBounds, stride*region.Height, view.Range.Length)
	}
	if !p.cb.track(tex) || !p.cb.track(buf) {
		return ember.ErrResourceNotTracked
	}
	C.blitEncCopyBufferToTexture(p.enc, buf.buffer, tex.texture,
		C.NSUInteger(view.Range.Offset), C.NSUInteger(stride),
		C.NSUInteger(stride*region.Height),
		C.MTLSize{
			width:  C.NSUInteger(region.Width),
			height: C.NSUInteger(region.Height),
			depth:  1,
		},
		C.MTLOrigin{x: C.NSUInteger(region.X), y: C.NSUInteger(region.Y)})
	return nil
}

func (p *BlitPass) EncodeCommands() error {
	if p.ended {
		return ember.ErrPassEnded
	}
	if !p.valid {
		return ember.ErrPassInvalid
	}
	p.ended = true
	C.blitEncEnd(p.enc)
	C.CFRelease(p.enc)
	p.enc = 0
	return nil
}
