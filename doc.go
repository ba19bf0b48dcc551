// Package ember is a cross-backend GPU command-encoding layer for 2D
// rendering engines.
//
// # Overview
//
// ember translates a backend-agnostic description of draw work — render
// targets, pipelines, vertex buffers, resource bindings — into native GPU
// command submissions. The root package holds the shared data model and the
// contracts every backend implements; the backends themselves live under
// backend/:
//
//   - backend/vulkan: descriptor sets, explicit barriers, render pass and
//     framebuffer construction (github.com/goki/vulkan)
//   - backend/gles: a single-executor reactor that serializes immediate-mode
//     GL calls from multiple producer threads (github.com/go-gl/gl)
//   - backend/mtl: Metal command encoders via cgo (darwin only)
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/ember"
//	    "github.com/gogpu/ember/backend"
//	    _ "github.com/gogpu/ember/backend/gles"
//	)
//
//	dev := backend.MustDefault()
//	if err := dev.Init(); err != nil { ... }
//	cb, _ := dev.CreateCommandBuffer()
//	pass, _ := cb.CreateRenderPass(target)
//	pass.SetPipeline(pipeline)
//	pass.SetVertexBuffer(vertices)
//	if err := pass.Draw(); err != nil { ... }
//	pass.EncodeCommands()
//	cb.Submit(nil)
//
// # Error Model
//
// Encoding functions return errors rather than panicking. Draw reports two
// error classes: ErrDrawCancelled when the pending draw was invalidated
// (for example no pipeline is bound) and ErrDrawAborted when the backend ran
// out of a resource it needed (descriptor sets, pipeline variants). A failed
// draw never tears down the pass; the caller may continue with the next draw.
//
// # Logging
//
// ember produces no log output by default. Call SetLogger to enable
// structured logging via log/slog.
package ember
