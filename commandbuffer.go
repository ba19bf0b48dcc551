// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

import "errors"

// Command buffer errors.
var (
	// ErrCommandBufferInvalid is returned for operations on a command
	// buffer whose encoding context is dead.
	ErrCommandBufferInvalid = errors.New("ember: command buffer is not valid")

	// ErrAlreadySubmitted is returned when a command buffer is submitted
	// twice.
	ErrAlreadySubmitted = errors.New("ember: command buffer already submitted")
)

// CommandBuffer owns one encoding context and is the factory for typed
// encoding passes. Encoding into the passes of one command buffer is
// single-threaded.
//
// Resources referenced during encoding are tracked against the command
// buffer so they stay alive until the driver signals completion; tracking
// substitutes for explicit reference counting across the CPU/GPU boundary.
type CommandBuffer interface {
	// IsValid reports whether the encoding context is usable.
	IsValid() bool

	// SetLabel names the command buffer for debug tooling.
	SetLabel(label string)

	// CreateRenderPass begins a render pass targeting target. The returned
	// pass must be finished with EncodeCommands before Submit.
	CreateRenderPass(target RenderTarget) (RenderPass, error)

	// CreateBlitPass begins a transfer pass for buffer/texture copies.
	CreateBlitPass() (BlitPass, error)

	// Submit hands the encoded work to the device queue. onComplete, when
	// non-nil, runs after the driver signals completion (or immediately
	// with the submission error). A command buffer may be submitted once.
	Submit(onComplete func(error)) error
}

// BlitPass encodes transfer operations outside a render pass.
type BlitPass interface {
	// IsValid reports whether backend setup for the pass succeeded.
	IsValid() bool

	// SetLabel names the pass for debug tooling.
	SetLabel(label string)

	// CopyTextureToBuffer reads region from texture into view. The
	// destination must be host visible to be read back after completion.
	CopyTextureToBuffer(texture Texture, region IRect, view BufferView) error

	// CopyBufferToTexture writes view's bytes into region of texture.
	CopyBufferToTexture(view BufferView, texture Texture, region IRect) error

	// EncodeCommands finalizes the pass.
	EncodeCommands() error
}
