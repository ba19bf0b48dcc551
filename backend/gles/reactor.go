// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/ember"
)

var (
	// ErrNilOperation is returned when a nil operation is enqueued.
	ErrNilOperation = errors.New("gles: operation is nil")
	// ErrReactorInvalid is returned when a reactor is constructed from an
	// incomplete proc table.
	ErrReactorInvalid = errors.New("gles: reactor is invalid")
)

// WorkerID identifies a registered reactor worker.
type WorkerID uint64

// Worker answers whether the goroutine it is asked on may issue GL calls.
// A worker typically checks thread identity against the thread that holds
// the GL context current.
type Worker interface {
	CanReactOnCurrentThread(r *Reactor) bool
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(r *Reactor) bool

func (f WorkerFunc) CanReactOnCurrentThread(r *Reactor) bool { return f(r) }

// Operation is a unit of deferred GL work. Operations run on a GL-capable
// thread with all previously created handles realized.
type Operation func(r *Reactor)

// Reactor serializes access to a GL context whose thread affinity is
// outside this package's control.
//
// Any goroutine may create handles and enqueue operations at any time.
// Neither touches the driver by itself: handles are realized and operations
// run only during a reaction, and reactions only happen on a goroutine some
// registered Worker has vouched for. Within one reaction, all handle
// maintenance (creation, collection, labeling) completes before any queued
// operation runs, so operations can resolve every handle created before
// they were enqueued.
type Reactor struct {
	procs *ProcTable

	workersMu  sync.Mutex
	workers    map[WorkerID]Worker
	nextWorker uint64

	handlesMu sync.RWMutex
	handles   map[Handle]*liveHandle

	opsMu sync.Mutex
	ops   []Operation

	// reactionMu serializes reactions without holding opsMu or handlesMu,
	// so operations may themselves create handles or enqueue follow-ups.
	reactionMu sync.Mutex

	canSetDebugLabels bool
	reacting          atomic.Bool
	closed            atomic.Bool
}

// NewReactor builds a reactor over the given proc table.
func NewReactor(procs *ProcTable) (*Reactor, error) {
	if procs == nil {
		return nil, ErrReactorInvalid
	}
	if err := procs.Complete(); err != nil {
		return nil, err
	}
	return &Reactor{
		procs:             procs,
		workers:           make(map[WorkerID]Worker),
		handles:           make(map[Handle]*liveHandle),
		canSetDebugLabels: procs.CanSetDebugLabels(),
	}, nil
}

// Procs returns the proc table. Only operations running inside a reaction
// may call through it.
func (r *Reactor) Procs() *ProcTable { return r.procs }

// AddWorker registers a worker and returns its id for later removal.
func (r *Reactor) AddWorker(w Worker) WorkerID {
	r.workersMu.Lock()
	defer r.workersMu.Unlock()
	r.nextWorker++
	id := WorkerID(r.nextWorker)
	r.workers[id] = w
	return id
}

// RemoveWorker unregisters a worker. Reports whether the id was known.
func (r *Reactor) RemoveWorker(id WorkerID) bool {
	r.workersMu.Lock()
	defer r.workersMu.Unlock()
	if _, ok := r.workers[id]; !ok {
		return false
	}
	delete(r.workers, id)
	return true
}

// CanReactOnCurrentThread reports whether any registered worker vouches
// for the calling goroutine.
func (r *Reactor) CanReactOnCurrentThread() bool {
	r.workersMu.Lock()
	defer r.workersMu.Unlock()
	for _, w := range r.workers {
		if w.CanReactOnCurrentThread(r) {
			return true
		}
	}
	return false
}

// CreateHandle mints a handle for a future GL object. If the calling
// goroutine can react, the GL name is created immediately; otherwise it is
// realized during the next reaction.
func (r *Reactor) CreateHandle(typ HandleType) Handle {
	if typ == HandleTypeUnknown {
		return DeadHandle()
	}
	h := newHandle(typ)
	live := &liveHandle{}
	if r.CanReactOnCurrentThread() {
		live.name = createGLObject(r.procs, typ)
		live.realized = true
	}
	r.handlesMu.Lock()
	r.handles[h] = live
	r.handlesMu.Unlock()
	return h
}

// CollectHandle marks a handle for deletion. The GL object is destroyed
// during the next reaction; the handle is invalid for lookups from this
// point on. Collecting a dead or unknown handle is a no-op.
func (r *Reactor) CollectHandle(h Handle) {
	if h.IsDead() {
		return
	}
	r.handlesMu.Lock()
	defer r.handlesMu.Unlock()
	if live, ok := r.handles[h]; ok {
		live.pendingCollection = true
	}
}

// SetDebugLabel attaches a label to the handle's GL object. Applied during
// the next reaction. A no-op when the context cannot set labels.
func (r *Reactor) SetDebugLabel(h Handle, label string) {
	if !r.canSetDebugLabels || h.IsDead() {
		return
	}
	r.handlesMu.Lock()
	defer r.handlesMu.Unlock()
	if live, ok := r.handles[h]; ok {
		live.pendingDebugLabel = label
	}
}

// GLHandle resolves a handle to its GL name. Valid only inside a reaction:
// outside one the handle may not be realized yet.
func (r *Reactor) GLHandle(h Handle) (uint32, bool) {
	r.handlesMu.RLock()
	defer r.handlesMu.RUnlock()
	live, ok := r.handles[h]
	if !ok {
		ember.Logger().Error("gles: lookup of untracked handle", "type", h.Type().String())
		return 0, false
	}
	if live.pendingCollection {
		ember.Logger().Error("gles: lookup of collected handle", "type", h.Type().String())
		return 0, false
	}
	if !live.realized {
		ember.Logger().Error("gles: lookup of unrealized handle", "type", h.Type().String())
		return 0, false
	}
	return live.name, true
}

// HasPendingOperations reports whether queued operations are waiting for a
// reaction.
func (r *Reactor) HasPendingOperations() bool {
	r.opsMu.Lock()
	defer r.opsMu.Unlock()
	return len(r.ops) > 0
}

// AddOperation enqueues op and, if the calling goroutine can react,
// performs a reaction immediately. Otherwise the operation waits for the
// next reaction on an eligible goroutine.
//
// Operations may call AddOperation themselves; follow-ups queued during a
// reaction run before that reaction's React call returns.
func (r *Reactor) AddOperation(op Operation) error {
	if op == nil {
		return ErrNilOperation
	}
	r.opsMu.Lock()
	r.ops = append(r.ops, op)
	r.opsMu.Unlock()
	// Skip the opportunistic reaction while one is in flight: its drain
	// loop will pick this operation up, and reacting here would deadlock
	// when the caller is an operation itself.
	if !r.reacting.Load() {
		r.React()
	}
	return nil
}

// React performs reactions until the operation queue drains. Reports
// whether the queue was drained; false means the calling goroutine is not
// GL-capable and the work remains queued.
//
// The queue is re-checked after each reaction because operations may
// enqueue follow-up operations.
func (r *Reactor) React() bool {
	if !r.CanReactOnCurrentThread() {
		return false
	}
	for {
		if !r.reacting.CompareAndSwap(false, true) {
			// Another reaction is draining the queue already.
			return true
		}
		for r.HasPendingOperations() {
			if err := r.reactOnce(); err != nil {
				r.reacting.Store(false)
				ember.Logger().Error("gles: reaction failed", "error", err)
				return false
			}
		}
		r.reacting.Store(false)
		// An AddOperation racing the end of the drain may have enqueued
		// while reacting still read true and skipped its own reaction.
		// Pick such an operation up instead of stranding it.
		if !r.HasPendingOperations() {
			return true
		}
	}
}

// reactOnce consolidates handles, then flushes the operation queue once.
// Assumes the calling goroutine is GL-capable.
func (r *Reactor) reactOnce() error {
	r.reactionMu.Lock()
	defer r.reactionMu.Unlock()
	r.consolidateHandles()
	return r.flushOps()
}

func (r *Reactor) consolidateHandles() {
	r.handlesMu.Lock()
	defer r.handlesMu.Unlock()
	for h, live := range r.handles {
		if live.pendingCollection {
			if live.realized {
				deleteGLObject(r.procs, h.Type(), live.name)
			}
			delete(r.handles, h)
			continue
		}
		if !live.realized {
			live.name = createGLObject(r.procs, h.Type())
			live.realized = true
		}
		if live.pendingDebugLabel != "" && r.procs.ObjectLabel != nil {
			// Program and framebuffer names use distinct identifier
			// namespaces, but the proc adapter owns that mapping.
			r.procs.ObjectLabel(uint32(h.Type()), live.name, live.pendingDebugLabel)
			live.pendingDebugLabel = ""
		}
	}
}

func (r *Reactor) flushOps() error {
	r.opsMu.Lock()
	ops := r.ops
	r.ops = nil
	r.opsMu.Unlock()
	for _, op := range ops {
		op(r)
	}
	return nil
}

// Close collects every tracked handle and drains the queue. Must be called
// on a GL-capable goroutine; otherwise resources leak and Close reports
// false.
func (r *Reactor) Close() bool {
	if r.closed.Swap(true) {
		return true
	}
	r.handlesMu.Lock()
	for _, live := range r.handles {
		live.pendingCollection = true
	}
	r.handlesMu.Unlock()
	if !r.CanReactOnCurrentThread() {
		return false
	}
	// Force a reaction even with an empty queue so the handles are
	// consolidated away.
	if err := r.reactOnce(); err != nil {
		ember.Logger().Error("gles: final reaction failed", "error", err)
		return false
	}
	return r.React()
}

func createGLObject(procs *ProcTable, typ HandleType) uint32 {
	switch typ {
	case HandleTypeTexture:
		return procs.GenTexture()
	case HandleTypeBuffer:
		return procs.GenBuffer()
	case HandleTypeProgram:
		return procs.CreateProgram()
	case HandleTypeRenderBuffer:
		return procs.GenRenderbuffer()
	case HandleTypeFrameBuffer:
		return procs.GenFramebuffer()
	}
	return 0
}

func deleteGLObject(procs *ProcTable, typ HandleType, name uint32) {
	switch typ {
	case HandleTypeTexture:
		procs.DeleteTexture(name)
	case HandleTypeBuffer:
		procs.DeleteBuffer(name)
	case HandleTypeProgram:
		procs.DeleteProgram(name)
	case HandleTypeRenderBuffer:
		procs.DeleteRenderbuffer(name)
	case HandleTypeFrameBuffer:
		procs.DeleteFramebuffer(name)
	}
}
