// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ember

// Color is a linear, premultiplied RGBA color with float32 channels.
type Color struct {
	R, G, B, A float32
}

// Common colors used as clear values.
var (
	ColorTransparent = Color{0, 0, 0, 0}
	ColorBlack       = Color{0, 0, 0, 1}
	ColorWhite       = Color{1, 1, 1, 1}
)

// ISize is an integer pixel extent.
type ISize struct {
	Width, Height int
}

// IsEmpty reports whether either dimension is zero or negative.
func (s ISize) IsEmpty() bool { return s.Width <= 0 || s.Height <= 0 }

// IRect is an integer pixel rectangle with a top-left origin.
type IRect struct {
	X, Y, Width, Height int
}

// IRectFromSize returns a rectangle at the origin covering size.
func IRectFromSize(size ISize) IRect {
	return IRect{Width: size.Width, Height: size.Height}
}

// IsEmpty reports whether the rectangle has no area.
func (r IRect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Viewport describes the transformation from normalized device coordinates
// to framebuffer coordinates, with a top-left origin.
type Viewport struct {
	Rect IRect

	// ZNear and ZFar bound the depth range. The zero value of Viewport has
	// an empty depth range; use NewViewport for the conventional [0, 1].
	ZNear, ZFar float32
}

// NewViewport returns a viewport covering size with the full [0, 1] depth
// range.
func NewViewport(size ISize) Viewport {
	return Viewport{Rect: IRectFromSize(size), ZNear: 0, ZFar: 1}
}

// Range is a byte range within a buffer.
type Range struct {
	Offset int
	Length int
}

// IsEmpty reports whether the range covers no bytes.
func (r Range) IsEmpty() bool { return r.Length <= 0 }
