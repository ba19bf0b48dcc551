// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"sync"

	"github.com/gogpu/ember"
	"github.com/gogpu/ember/backend"
)

func init() {
	backend.Register(backend.BackendGLES, func() backend.Device {
		return NewDevice(nil)
	})
}

// Device is the GL implementation of backend.Device. All driver access
// goes through its Reactor; the caller owns context/thread management and
// expresses it by registering reactor workers.
type Device struct {
	mu      sync.Mutex
	procs   *ProcTable
	reactor *Reactor
}

var _ backend.Device = (*Device)(nil)

// NewDevice returns an uninitialized device. A nil proc table means Init
// resolves the default table from the current context, so Init must then
// run on a thread with the context current.
func NewDevice(procs *ProcTable) *Device {
	return &Device{procs: procs}
}

func (d *Device) Name() string { return backend.BackendGLES }

func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reactor != nil {
		return nil
	}
	procs := d.procs
	if procs == nil {
		var err error
		procs, err = DefaultProcTable()
		if err != nil {
			return err
		}
	}
	reactor, err := NewReactor(procs)
	if err != nil {
		return err
	}
	d.procs = procs
	d.reactor = reactor
	ember.Logger().Info("gles: device initialized")
	return nil
}

// Reactor exposes the device's reactor so callers can register workers and
// drive reactions from their context thread. Nil before Init.
func (d *Device) Reactor() *Reactor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reactor
}

func (d *Device) Close() {
	d.mu.Lock()
	reactor := d.reactor
	d.reactor = nil
	d.mu.Unlock()
	if reactor != nil && !reactor.Close() {
		ember.Logger().Warn("gles: device closed off the reactor thread; resources leaked")
	}
}

func (d *Device) CreateCommandBuffer() (ember.CommandBuffer, error) {
	r, err := d.requireReactor()
	if err != nil {
		return nil, err
	}
	return newCommandBuffer(r), nil
}

func (d *Device) CreateDeviceBuffer(desc ember.DeviceBufferDescriptor) (ember.DeviceBuffer, error) {
	r, err := d.requireReactor()
	if err != nil {
		return nil, err
	}
	return NewDeviceBuffer(r, desc)
}

func (d *Device) CreateTexture(desc ember.TextureDescriptor) (ember.Texture, error) {
	r, err := d.requireReactor()
	if err != nil {
		return nil, err
	}
	return NewTexture(r, desc)
}

func (d *Device) requireReactor() (*Reactor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reactor == nil {
		return nil, backend.ErrNotInitialized
	}
	return d.reactor, nil
}
