// Package backend provides a pluggable GPU backend abstraction.
//
// The backend package lets ember drive multiple native graphics APIs behind
// one registry. Backends register themselves via init() functions and are
// selected at runtime:
//
//	import (
//	    "github.com/gogpu/ember/backend"
//	    _ "github.com/gogpu/ember/backend/gles"
//	    _ "github.com/gogpu/ember/backend/vulkan"
//	)
//
//	// Get the default (best available) device.
//	dev := backend.MustDefault()
//	if err := dev.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	cb, err := dev.CreateCommandBuffer()
//
// # Available Backends
//
//   - "vulkan": descriptor-set based encoding via github.com/goki/vulkan
//   - "gles": reactor-serialized OpenGL ES via github.com/go-gl/gl
//   - "metal": Metal command encoders (darwin only)
package backend
