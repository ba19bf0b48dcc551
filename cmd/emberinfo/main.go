// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command emberinfo reports the registered GPU backends and, with -demo,
// drives a smoke pass through the default one: clear a render target,
// read it back through a blit pass, and verify the clear color survived
// the round trip.
package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"sort"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/ember"
	"github.com/gogpu/ember/backend"
	_ "github.com/gogpu/ember/backend/gles"
	_ "github.com/gogpu/ember/backend/vulkan"
	"github.com/gogpu/ember/geom"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	var (
		name   = flag.String("backend", backend.BackendGLES, "backend for the demo pass")
		demo   = flag.Bool("demo", false, "open a window and run a clear/readback pass")
		width  = flag.Int("width", 640, "demo window width")
		height = flag.Int("height", 480, "demo window height")
	)
	flag.Parse()

	printBackends()

	if !*demo {
		return
	}
	if err := runDemo(*name, *width, *height); err != nil {
		log.Fatalf("demo: %v", err)
	}
}

func printBackends() {
	names := backend.Available()
	sort.Strings(names)

	def := ""
	if d := backend.Default(); d != nil {
		def = d.Name()
	}
	fmt.Printf("registered backends: %d\n", len(names))
	for _, n := range names {
		marker := ""
		if n == def {
			marker = " (default)"
		}
		fmt.Printf("  %s%s\n", n, marker)
	}
}

func runDemo(name string, width, height int) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 0)
	win, err := glfw.CreateWindow(width, height, "emberinfo", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Destroy()
	win.MakeContextCurrent()

	// The window's context is GLES, so the demo defaults to that backend;
	// -backend lets driver bring-up target another one.
	dev := backend.Get(name)
	if dev == nil {
		return fmt.Errorf("backend %q not registered", name)
	}
	if err := dev.Init(); err != nil {
		return fmt.Errorf("init %s: %w", dev.Name(), err)
	}
	defer dev.Close()
	fmt.Printf("demo backend: %s\n", dev.Name())

	if err := clearAndReadback(dev, width, height); err != nil {
		return err
	}

	// Keep the window up briefly so the run is visible.
	for i := 0; i < 60 && !win.ShouldClose(); i++ {
		win.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

// clearAndReadback encodes one render pass that clears a target, copies a
// corner of it into a host-visible buffer, and checks the pixels.
func clearAndReadback(dev backend.Device, width, height int) error {
	size := ember.ISize{Width: width, Height: height}

	tex, err := dev.CreateTexture(ember.TextureDescriptor{
		Format: ember.PixelFormatRGBA8UNorm,
		Size:   size,
		Usage:  ember.TextureUsageRenderTarget | ember.TextureUsageShaderRead,
		Label:  "demo color",
	})
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}

	const region = 16
	readback, err := dev.CreateDeviceBuffer(ember.DeviceBufferDescriptor{
		Size:        region * region * 4,
		StorageMode: ember.StorageModeHostVisible,
		Label:       "demo readback",
	})
	if err != nil {
		return fmt.Errorf("create readback buffer: %w", err)
	}

	var target ember.RenderTarget
	target.SetColorAttachment(0, ember.ColorAttachment{
		Attachment: ember.Attachment{
			Texture:     tex,
			LoadAction:  ember.LoadActionClear,
			StoreAction: ember.StoreActionStore,
		},
		ClearColor: ember.Color{R: 0, G: 0.5, B: 1, A: 1},
	})

	cb, err := dev.CreateCommandBuffer()
	if err != nil {
		return fmt.Errorf("create command buffer: %w", err)
	}
	cb.SetLabel("emberinfo demo")

	pass, err := cb.CreateRenderPass(target)
	if err != nil {
		return fmt.Errorf("create render pass: %w", err)
	}
	if err := pass.EncodeCommands(); err != nil {
		return fmt.Errorf("encode render pass: %w", err)
	}

	blit, err := cb.CreateBlitPass()
	if err != nil {
		return fmt.Errorf("create blit pass: %w", err)
	}
	err = blit.CopyTextureToBuffer(tex, ember.IRect{Width: region, Height: region}, ember.BufferView{
		Buffer: readback,
		Range:  ember.Range{Length: region * region * 4},
	})
	if err != nil {
		return fmt.Errorf("copy texture to buffer: %w", err)
	}
	if err := blit.EncodeCommands(); err != nil {
		return fmt.Errorf("encode blit pass: %w", err)
	}

	done := make(chan error, 1)
	if err := cb.Submit(func(err error) { done <- err }); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	px := readback.Contents()
	if len(px) < 4 {
		return fmt.Errorf("readback buffer empty")
	}
	fmt.Printf("clear readback: rgba(%d, %d, %d, %d)\n", px[0], px[1], px[2], px[3])

	// Show what a real frame's geometry stage produces.
	result, err := geom.MakeCover(dev, size)
	if err != nil {
		return fmt.Errorf("tessellate cover: %w", err)
	}
	fmt.Printf("cover rect: %d vertices, %v\n", result.VertexBuffer.VertexCount, result.Type)
	return nil
}
