// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mtl is the Metal backend. It is only built on darwin; on other
// platforms the package is empty and the backend never registers.
//
// Encoding is eager, like the Vulkan backend: draws are recorded straight
// into an MTLRenderCommandEncoder. Redundant state setters are skipped
// with a per-pass binding cache since Metal re-validates every set call.
package mtl
