// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gles

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewReactorIncompleteProcTable(t *testing.T) {
	_, err := NewReactor(&ProcTable{})
	if !errors.Is(err, ErrIncompleteProcTable) {
		t.Errorf("NewReactor(empty) error = %v, want ErrIncompleteProcTable", err)
	}
	if _, err := NewReactor(nil); !errors.Is(err, ErrReactorInvalid) {
		t.Errorf("NewReactor(nil) error = %v, want ErrReactorInvalid", err)
	}
}

func TestReactorDefersWithoutWorker(t *testing.T) {
	procs, _ := fakeProcTable()
	r, err := NewReactor(procs)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}

	ran := false
	if err := r.AddOperation(func(*Reactor) { ran = true }); err != nil {
		t.Fatalf("AddOperation: %v", err)
	}
	if ran {
		t.Fatal("operation ran with no registered worker")
	}
	if !r.HasPendingOperations() {
		t.Fatal("operation should remain queued")
	}
	if r.React() {
		t.Fatal("React should report false with no eligible worker")
	}

	// Registering an eligible worker makes the queued work runnable.
	r.AddWorker(alwaysWorker)
	if !r.React() {
		t.Fatal("React should drain with an eligible worker")
	}
	if !ran {
		t.Fatal("queued operation did not run")
	}
}

func TestReactorRunsImmediatelyWhenEligible(t *testing.T) {
	r, _ := newTestReactor(t)
	ran := false
	if err := r.AddOperation(func(*Reactor) { ran = true }); err != nil {
		t.Fatalf("AddOperation: %v", err)
	}
	if !ran {
		t.Fatal("operation should run inline on an eligible goroutine")
	}
	if r.HasPendingOperations() {
		t.Fatal("queue should be drained")
	}
}

func TestReactorNilOperation(t *testing.T) {
	r, _ := newTestReactor(t)
	if err := r.AddOperation(nil); !errors.Is(err, ErrNilOperation) {
		t.Errorf("AddOperation(nil) error = %v, want ErrNilOperation", err)
	}
}

func TestReactorFIFOOrder(t *testing.T) {
	procs, _ := fakeProcTable()
	r, err := NewReactor(procs)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if err := r.AddOperation(func(*Reactor) { order = append(order, i) }); err != nil {
			t.Fatalf("AddOperation: %v", err)
		}
	}
	r.AddWorker(alwaysWorker)
	r.React()
	for i, v := range order {
		if v != i {
			t.Fatalf("operations ran out of order: %v", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("ran %d operations, want 5", len(order))
	}
}

func TestReactorReactIsIdempotent(t *testing.T) {
	r, _ := newTestReactor(t)
	runs := 0
	if err := r.AddOperation(func(*Reactor) { runs++ }); err != nil {
		t.Fatalf("AddOperation: %v", err)
	}
	r.React()
	r.React()
	if runs != 1 {
		t.Fatalf("operation ran %d times, want 1", runs)
	}
}

func TestReactorConcurrentEnqueueLeavesNothingQueued(t *testing.T) {
	r, _ := newTestReactor(t)
	const goroutines = 8
	const perGoroutine = 200

	// Concurrent enqueuers race each other's drain loops: an operation
	// appended just as another goroutine's drain winds down must be picked
	// up before that drain returns, not stranded until the next reaction.
	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_ = r.AddOperation(func(*Reactor) { ran.Add(1) })
			}
		}()
	}
	wg.Wait()

	if r.HasPendingOperations() {
		t.Fatal("operations left queued after every AddOperation returned")
	}
	if got := ran.Load(); got != goroutines*perGoroutine {
		t.Fatalf("ran %d operations, want %d", got, goroutines*perGoroutine)
	}
}

func TestReactorFollowUpOperations(t *testing.T) {
	r, _ := newTestReactor(t)
	var order []string
	err := r.AddOperation(func(r *Reactor) {
		order = append(order, "outer")
		_ = r.AddOperation(func(*Reactor) {
			order = append(order, "inner")
		})
	})
	if err != nil {
		t.Fatalf("AddOperation: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("follow-up did not run in the same drain: %v", order)
	}
}

func TestCreateHandleEagerRealization(t *testing.T) {
	r, g := newTestReactor(t)
	h := r.CreateHandle(HandleTypeTexture)
	if h.IsDead() {
		t.Fatal("handle should be live")
	}
	if !g.has("GenTexture") {
		t.Fatal("eligible goroutine should realize the GL object immediately")
	}
	if _, ok := r.GLHandle(h); !ok {
		t.Fatal("realized handle should resolve")
	}
}

func TestCreateHandleDeferredRealization(t *testing.T) {
	procs, g := fakeProcTable()
	r, err := NewReactor(procs)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	r.AddWorker(neverWorker)

	h := r.CreateHandle(HandleTypeBuffer)
	if g.has("GenBuffer") {
		t.Fatal("GL object created before any reaction")
	}
	if _, ok := r.GLHandle(h); ok {
		t.Fatal("unrealized handle must not resolve")
	}

	id := r.AddWorker(alwaysWorker)
	defer r.RemoveWorker(id)
	_ = r.AddOperation(func(*Reactor) {})
	if !g.has("GenBuffer") {
		t.Fatal("reaction should realize pending handles")
	}
	if _, ok := r.GLHandle(h); !ok {
		t.Fatal("realized handle should resolve after reaction")
	}
}

func TestCreateHandleUnknownType(t *testing.T) {
	r, _ := newTestReactor(t)
	if h := r.CreateHandle(HandleTypeUnknown); !h.IsDead() {
		t.Fatal("unknown handle type should yield the dead handle")
	}
}

func TestCollectHandle(t *testing.T) {
	r, g := newTestReactor(t)
	h := r.CreateHandle(HandleTypeTexture)
	r.CollectHandle(h)

	if _, ok := r.GLHandle(h); ok {
		t.Fatal("collected handle must not resolve")
	}
	if len(g.deleted) != 0 {
		t.Fatal("deletion must wait for the next reaction")
	}
	_ = r.AddOperation(func(*Reactor) {})
	if len(g.deleted) != 1 || g.deleted[0] != "texture/1" {
		t.Fatalf("deleted = %v, want [texture/1]", g.deleted)
	}
	// Collecting again is a no-op.
	r.CollectHandle(h)
	_ = r.AddOperation(func(*Reactor) {})
	if len(g.deleted) != 1 {
		t.Fatalf("double collection deleted twice: %v", g.deleted)
	}
}

func TestCollectUnrealizedHandleNeverTouchesGL(t *testing.T) {
	procs, g := fakeProcTable()
	r, err := NewReactor(procs)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	h := r.CreateHandle(HandleTypeProgram)
	r.CollectHandle(h)

	r.AddWorker(alwaysWorker)
	_ = r.AddOperation(func(*Reactor) {})
	if g.has("Program") {
		t.Fatal("handle collected before realization should never create a GL object")
	}
}

func TestRemoveWorker(t *testing.T) {
	procs, _ := fakeProcTable()
	r, err := NewReactor(procs)
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	id := r.AddWorker(alwaysWorker)
	if !r.CanReactOnCurrentThread() {
		t.Fatal("worker should make the goroutine eligible")
	}
	if !r.RemoveWorker(id) {
		t.Fatal("RemoveWorker should report true for a known id")
	}
	if r.RemoveWorker(id) {
		t.Fatal("RemoveWorker should report false for a removed id")
	}
	if r.CanReactOnCurrentThread() {
		t.Fatal("goroutine should be ineligible after worker removal")
	}
}

func TestReactorClose(t *testing.T) {
	r, g := newTestReactor(t)
	r.CreateHandle(HandleTypeTexture)
	r.CreateHandle(HandleTypeBuffer)
	if !r.Close() {
		t.Fatal("Close on an eligible goroutine should succeed")
	}
	if len(g.deleted) != 2 {
		t.Fatalf("Close deleted %d objects, want 2", len(g.deleted))
	}
}
