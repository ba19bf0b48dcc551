// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package typography maintains glyph atlases: textures holding rendered
// glyph bitmaps plus the per-font position tables the scene layer reads
// while building draw commands. The atlas is consumed during command
// construction only; rasterizing glyphs into it belongs to the caller's
// rasterizer.
package typography

import (
	"fmt"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/math/fixed"
)

// GlyphID is a glyph index within a font.
type GlyphID = font.GID

// ScaledFont is a parsed font at a concrete pixel size. Two ScaledFonts
// with the same font and size are interchangeable as atlas keys.
type ScaledFont struct {
	Font *font.Font
	Size float32
}

// Key returns a stable identity for atlas partitioning.
func (f ScaledFont) Key() string {
	return fmt.Sprintf("%p@%g", f.Font, f.Size)
}

// SubpixelPosition is a glyph's fractional offset quantized to quarter
// pixels. Quantizing keeps atlas reuse high: all placements within the
// same quarter-pixel bucket share one rendered bitmap.
type SubpixelPosition struct {
	X, Y uint8
}

// QuantizeSubpixel buckets a fixed-point glyph offset into quarter-pixel
// steps.
func QuantizeSubpixel(offset fixed.Point26_6) SubpixelPosition {
	quarter := func(v fixed.Int26_6) uint8 {
		// Fractional part in 1/64ths, then to 1/4ths with rounding.
		frac := v & 0x3f
		return uint8((frac + 8) / 16 % 4)
	}
	return SubpixelPosition{X: quarter(offset.X), Y: quarter(offset.Y)}
}

// Glyph identifies one renderable glyph variant: the glyph index plus the
// subpixel bucket it was rendered at.
type Glyph struct {
	ID       GlyphID
	Subpixel SubpixelPosition
}
