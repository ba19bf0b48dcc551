// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import "testing"

func (c *passCache) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func TestPassCacheRetireWithoutReferences(t *testing.T) {
	c := &passCache{key: "a"}
	c.retire()
	if !c.isDestroyed() {
		t.Error("unreferenced cache not destroyed on retire")
	}
}

func TestPassCacheRetireWaitsForInFlightReference(t *testing.T) {
	c := &passCache{key: "a"}
	c.retain()
	c.retire()
	if c.isDestroyed() {
		t.Fatal("cache destroyed while a command buffer still references it")
	}
	c.release()
	if !c.isDestroyed() {
		t.Error("cache not destroyed after the last reference released")
	}
}

func TestPassCacheReleaseBeforeRetireKeepsCache(t *testing.T) {
	c := &passCache{key: "a"}
	c.retain()
	c.release()
	if c.isDestroyed() {
		t.Error("live cache destroyed by release without retire")
	}
}

func TestStorePassCacheRetiresDisplacedPair(t *testing.T) {
	tex := &Texture{}
	old := &passCache{key: "a"}
	tex.storePassCache(old)
	old.retain()

	tex.storePassCache(&passCache{key: "b"})
	if old.isDestroyed() {
		t.Fatal("displaced cache destroyed while referenced")
	}
	old.release()
	if !old.isDestroyed() {
		t.Error("displaced cache not destroyed after reference released")
	}
}

func TestCachedPassRetiresStaleKey(t *testing.T) {
	tex := &Texture{}
	stale := &passCache{key: "a"}
	tex.storePassCache(stale)
	stale.retain()

	if _, ok := tex.cachedPass("b"); ok {
		t.Fatal("mismatched key returned a cached pair")
	}
	if stale.isDestroyed() {
		t.Fatal("stale cache destroyed while referenced")
	}
	stale.release()
	if !stale.isDestroyed() {
		t.Error("stale cache not destroyed after reference released")
	}

	if _, ok := tex.cachedPass("b"); ok {
		t.Error("dropped cache still returned")
	}
}

func TestCachedPassHit(t *testing.T) {
	tex := &Texture{}
	c := &passCache{key: "a"}
	tex.storePassCache(c)
	got, ok := tex.cachedPass("a")
	if !ok || got != c {
		t.Errorf("cachedPass(a) = %v, %v; want stored cache", got, ok)
	}
}
