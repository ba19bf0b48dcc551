// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vulkan implements the ember backend for Vulkan.
//
// Unlike GL, Vulkan exposes real command buffers, so encoding is eager:
// every RenderPass call translates directly into commands on the
// underlying vk.CommandBuffer. The passes recycle native render pass and
// framebuffer objects through per-texture caches, and per-draw descriptor
// writes go through a fixed-capacity workspace so encoding does not
// allocate.
package vulkan

import (
	"errors"
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
	"github.com/gogpu/ember/backend"
)

func init() {
	backend.Register(backend.BackendVulkan, func() backend.Device {
		return &Device{}
	})
}

// ErrNoSuitableDevice is returned when no physical device offers a
// graphics queue.
var ErrNoSuitableDevice = errors.New("vulkan: no suitable physical device")

// vkErr converts a Vulkan result into an error carrying the operation
// name. Returns nil on success.
func vkErr(ret vk.Result, op string) error {
	if ret == vk.Success {
		return nil
	}
	return fmt.Errorf("vulkan: %s: %w", op, vk.Error(ret))
}

// Device is the Vulkan implementation of backend.Device. It owns the
// instance, logical device, graphics queue, and command pool every command
// buffer allocates from.
type Device struct {
	instance vk.Instance
	gpu      vk.PhysicalDevice
	device   vk.Device
	queue    vk.Queue
	queueIdx uint32
	cmdPool  vk.CommandPool
	memProps vk.PhysicalDeviceMemoryProperties
	atomSize vk.DeviceSize // nonCoherentAtomSize device limit

	mu          sync.Mutex
	initialized bool
}

var _ backend.Device = (*Device)(nil)

func (d *Device) Name() string { return backend.BackendVulkan }

func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("vulkan: load library: %w", err)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   "ember\x00",
		PEngineName:        "ember\x00",
		ApiVersion:         vk.MakeVersion(1, 1, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
	}
	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}, nil, &instance)
	if err := vkErr(ret, "create instance"); err != nil {
		return err
	}
	d.instance = instance
	vk.InitInstance(instance)

	if err := d.pickPhysicalDevice(); err != nil {
		d.teardownLocked()
		return err
	}
	if err := d.createLogicalDevice(); err != nil {
		d.teardownLocked()
		return err
	}

	var pool vk.CommandPool
	ret = vk.CreateCommandPool(d.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueIdx,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := vkErr(ret, "create command pool"); err != nil {
		d.teardownLocked()
		return err
	}
	d.cmdPool = pool

	vk.GetPhysicalDeviceMemoryProperties(d.gpu, &d.memProps)
	d.memProps.Deref()

	var gpuProps vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.gpu, &gpuProps)
	gpuProps.Deref()
	gpuProps.Limits.Deref()
	d.atomSize = gpuProps.Limits.NonCoherentAtomSize

	d.initialized = true
	ember.Logger().Info("vulkan: device initialized", "queueFamily", d.queueIdx)
	return nil
}

func (d *Device) pickPhysicalDevice() error {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(d.instance, &count, nil)
	if err := vkErr(ret, "enumerate devices"); err != nil {
		return err
	}
	if count == 0 {
		return ErrNoSuitableDevice
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(d.instance, &count, gpus)
	if err := vkErr(ret, "enumerate devices"); err != nil {
		return err
	}

	for _, gpu := range gpus {
		if idx, ok := graphicsQueueFamily(gpu); ok {
			d.gpu = gpu
			d.queueIdx = idx
			return nil
		}
	}
	return ErrNoSuitableDevice
}

func graphicsQueueFamily(gpu vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	if count == 0 {
		return 0, false
	}
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func (d *Device) createLogicalDevice() error {
	priority := []float32{1}
	var device vk.Device
	ret := vk.CreateDevice(d.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.queueIdx,
			QueueCount:       1,
			PQueuePriorities: priority,
		}},
	}, nil, &device)
	if err := vkErr(ret, "create device"); err != nil {
		return err
	}
	d.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(d.device, d.queueIdx, 0, &queue)
	d.queue = queue
	return nil
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return
	}
	vk.DeviceWaitIdle(d.device)
	d.teardownLocked()
	d.initialized = false
}

func (d *Device) teardownLocked() {
	if d.cmdPool != vk.NullCommandPool {
		vk.DestroyCommandPool(d.device, d.cmdPool, nil)
		d.cmdPool = vk.NullCommandPool
	}
	if d.device != nil {
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}

func (d *Device) CreateCommandBuffer() (ember.CommandBuffer, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	return newCommandBuffer(d)
}

func (d *Device) CreateDeviceBuffer(desc ember.DeviceBufferDescriptor) (ember.DeviceBuffer, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	return newDeviceBuffer(d, desc)
}

func (d *Device) CreateTexture(desc ember.TextureDescriptor) (ember.Texture, error) {
	if err := d.requireInit(); err != nil {
		return nil, err
	}
	return newTexture(d, desc)
}

func (d *Device) requireInit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	return nil
}

// memoryTypeIndex finds a memory type satisfying typeBits and props.
func (d *Device) memoryTypeIndex(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		d.memProps.MemoryTypes[i].Deref()
		if d.memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, fmt.Errorf("vulkan: no memory type for bits %#x props %#x", typeBits, props)
}
