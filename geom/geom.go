// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package geom produces transient vertex geometry for render pass
// commands. Each producer tessellates one primitive shape into a
// position-only triangle strip, uploads it through a BufferAllocator,
// and returns an ember.GeometryResult ready for Command.VertexBuffer.
package geom

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/ember"
)

// Point is a 2D position in the coordinate space of the target.
type Point struct {
	X, Y float32
}

// Rect is an axis-aligned float rectangle.
type Rect struct {
	X, Y, Width, Height float32
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// LineCap describes how line endpoints are finished.
type LineCap uint32

const (
	// LineCapButt ends the line exactly at the endpoint.
	LineCapButt LineCap = iota

	// LineCapSquare extends the line past each endpoint by half its width.
	LineCapSquare

	// LineCapRound caps each endpoint with a half disc.
	LineCapRound
)

// Minimum widths for hairline strokes. With multisampling a thinner
// geometry still resolves to partial coverage; without it anything under
// a pixel disappears.
const (
	MinStrokeWidthMSAA = 0.5
	MinStrokeWidth     = 1.0
)

func identity() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// MakeRect tessellates rect as a two-triangle strip.
func MakeRect(alloc ember.BufferAllocator, rect Rect) (ember.GeometryResult, error) {
	if rect.IsEmpty() {
		return ember.EmptyGeometryResult, nil
	}
	b := ember.NewVertexBufferBuilder(2)
	b.Append(rect.X, rect.Y)
	b.Append(rect.X+rect.Width, rect.Y)
	b.Append(rect.X, rect.Y+rect.Height)
	b.Append(rect.X+rect.Width, rect.Y+rect.Height)
	vb, err := b.Build(alloc, "rect geometry")
	if err != nil {
		return ember.GeometryResult{}, err
	}
	return ember.GeometryResult{
		Type:         ember.PrimitiveTriangleStrip,
		VertexBuffer: vb,
		Transform:    identity(),
		Mode:         ember.GeometryModeNormal,
	}, nil
}

// MakeCover returns geometry covering the full render area of size. Cover
// geometry is used to apply a pass-wide effect behind an existing stencil.
func MakeCover(alloc ember.BufferAllocator, size ember.ISize) (ember.GeometryResult, error) {
	return MakeRect(alloc, Rect{
		Width:  float32(size.Width),
		Height: float32(size.Height),
	})
}

// MakeLine tessellates the segment p0..p1 with the given width and cap
// style. Round caps are tessellated with the same quadrant subdivision as
// circles.
func MakeLine(alloc ember.BufferAllocator, p0, p1 Point, width float32, capStyle LineCap, msaa bool) (ember.GeometryResult, error) {
	min := float32(MinStrokeWidth)
	if msaa {
		min = MinStrokeWidthMSAA
	}
	if width < min {
		width = min
	}

	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	length := math32.Hypot(dx, dy)
	if length == 0 {
		if capStyle == LineCapButt {
			return ember.EmptyGeometryResult, nil
		}
		// Degenerate segment with caps renders as a dot.
		return MakeCircle(alloc, p0, width/2)
	}
	half := width / 2
	// Unit direction and its left-hand normal.
	ux, uy := dx/length, dy/length
	nx, ny := -uy*half, ux*half

	a, b := p0, p1
	if capStyle == LineCapSquare {
		a = Point{p0.X - ux*half, p0.Y - uy*half}
		b = Point{p1.X + ux*half, p1.Y + uy*half}
	}

	bd := ember.NewVertexBufferBuilder(2)
	if capStyle == LineCapRound {
		appendHalfDisc(bd, p0, half, Point{-ux, -uy})
	}
	bd.Append(a.X+nx, a.Y+ny)
	bd.Append(a.X-nx, a.Y-ny)
	bd.Append(b.X+nx, b.Y+ny)
	bd.Append(b.X-nx, b.Y-ny)
	if capStyle == LineCapRound {
		appendHalfDisc(bd, p1, half, Point{ux, uy})
	}

	vb, err := bd.Build(alloc, "line geometry")
	if err != nil {
		return ember.GeometryResult{}, err
	}
	return ember.GeometryResult{
		Type:         ember.PrimitiveTriangleStrip,
		VertexBuffer: vb,
		Transform:    identity(),
		Mode:         ember.GeometryModePreventOverdraw,
	}, nil
}

// appendHalfDisc emits strip vertices for the half disc of radius r at
// center, bulging in direction dir (a unit vector).
func appendHalfDisc(b *ember.VertexBufferBuilder, center Point, r float32, dir Point) {
	steps := quadrantDivisions(r) * 2
	base := math32.Atan2(dir.Y, dir.X) - math32.Pi/2
	for i := 0; i <= steps; i++ {
		angle := base + math32.Pi*float32(i)/float32(steps)
		b.Append(center.X+r*math32.Cos(angle), center.Y+r*math32.Sin(angle))
		b.Append(center.X, center.Y)
	}
}

// quadrantDivisions picks the subdivision count for a quarter arc of the
// given pixel radius. The thresholds keep the chord error under roughly a
// tenth of a pixel without exploding vertex counts for large radii.
func quadrantDivisions(radius float32) int {
	switch {
	case radius <= 1:
		return 1
	case radius <= 2:
		return 2
	case radius <= 6:
		return 4
	case radius <= 16:
		return 8
	case radius <= 36:
		return 12
	default:
		d := int(math32.Ceil(radius / 3))
		if d > 60 {
			d = 60
		}
		return d
	}
}

// MakeCircle tessellates a filled circle as a triangle strip alternating
// perimeter and center vertices.
func MakeCircle(alloc ember.BufferAllocator, center Point, radius float32) (ember.GeometryResult, error) {
	if radius <= 0 {
		return ember.EmptyGeometryResult, nil
	}
	return makeEllipse(alloc, center, radius, radius, "circle geometry")
}

// MakeOval tessellates the ellipse inscribed in rect.
func MakeOval(alloc ember.BufferAllocator, rect Rect) (ember.GeometryResult, error) {
	if rect.IsEmpty() {
		return ember.EmptyGeometryResult, nil
	}
	center := Point{rect.X + rect.Width/2, rect.Y + rect.Height/2}
	return makeEllipse(alloc, center, rect.Width/2, rect.Height/2, "oval geometry")
}

func makeEllipse(alloc ember.BufferAllocator, center Point, rx, ry float32, label string) (ember.GeometryResult, error) {
	steps := quadrantDivisions(math32.Max(rx, ry)) * 4
	b := ember.NewVertexBufferBuilder(2)
	for i := 0; i <= steps; i++ {
		angle := 2 * math32.Pi * float32(i) / float32(steps)
		b.Append(center.X+rx*math32.Cos(angle), center.Y+ry*math32.Sin(angle))
		b.Append(center.X, center.Y)
	}
	vb, err := b.Build(alloc, label)
	if err != nil {
		return ember.GeometryResult{}, err
	}
	return ember.GeometryResult{
		Type:         ember.PrimitiveTriangleStrip,
		VertexBuffer: vb,
		Transform:    identity(),
		Mode:         ember.GeometryModeNormal,
	}, nil
}
