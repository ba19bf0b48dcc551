// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package typography

import (
	"errors"
	"sync"

	"github.com/gogpu/ember"
)

// ErrAtlasFull is returned when a glyph bitmap cannot be placed in the
// remaining atlas area.
var ErrAtlasFull = errors.New("typography: glyph atlas is full")

// AtlasContent describes what the atlas texture stores.
type AtlasContent uint32

const (
	// ContentAlpha is a single-channel coverage atlas for solid glyphs.
	ContentAlpha AtlasContent = iota

	// ContentColor is a full-color atlas for emoji and bitmap glyphs.
	ContentColor
)

// GlyphLocation is where one glyph variant lives in the atlas, with its
// bounds relative to the glyph origin.
type GlyphLocation struct {
	// Rect is the placement in atlas texel coordinates.
	Rect ember.IRect

	// BoundsOrigin is the offset from the glyph origin to the top-left of
	// the rendered bitmap, in pixels.
	BoundsOriginX, BoundsOriginY float32
}

// FontGlyphAtlas is the per-font position table of one GlyphAtlas.
type FontGlyphAtlas struct {
	positions map[Glyph]GlyphLocation
}

// Lookup returns the atlas location of glyph.
func (f *FontGlyphAtlas) Lookup(glyph Glyph) (GlyphLocation, bool) {
	loc, ok := f.positions[glyph]
	return loc, ok
}

// GlyphAtlas maps scaled-font glyphs to regions of one backing texture.
//
// The scene layer looks placements up while building commands; new glyphs
// are placed with Place and rendered into the texture by the caller. An
// atlas only ever grows; eviction is handled by dropping the whole atlas
// between frames when its utilization degrades.
type GlyphAtlas struct {
	content AtlasContent
	texture ember.Texture

	mu    sync.RWMutex
	fonts map[string]*FontGlyphAtlas

	// Shelf packer state.
	shelfX, shelfY, shelfHeight int
}

// padding keeps bilinear sampling of one glyph from bleeding into its
// neighbors.
const padding = 1

// NewGlyphAtlas creates an atlas over texture.
func NewGlyphAtlas(content AtlasContent, texture ember.Texture) *GlyphAtlas {
	return &GlyphAtlas{
		content: content,
		texture: texture,
		fonts:   make(map[string]*FontGlyphAtlas),
	}
}

// Content returns what the atlas stores.
func (a *GlyphAtlas) Content() AtlasContent { return a.content }

// Texture returns the backing texture.
func (a *GlyphAtlas) Texture() ember.Texture { return a.texture }

// FontAtlas returns the position table for font, or nil when no glyph of
// that font has been placed.
func (a *GlyphAtlas) FontAtlas(f ScaledFont) *FontGlyphAtlas {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fonts[f.Key()]
}

// Lookup returns the placement of glyph in font.
func (a *GlyphAtlas) Lookup(f ScaledFont, glyph Glyph) (GlyphLocation, bool) {
	fa := a.FontAtlas(f)
	if fa == nil {
		return GlyphLocation{}, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return fa.Lookup(glyph)
}

// Place reserves an atlas region for glyph and records it under font.
// Placing an already-present glyph returns its existing location without
// consuming space. The caller renders the bitmap into the returned rect.
func (a *GlyphAtlas) Place(f ScaledFont, glyph Glyph, width, height int, loc GlyphLocation) (GlyphLocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := f.Key()
	fa := a.fonts[key]
	if fa == nil {
		fa = &FontGlyphAtlas{positions: make(map[Glyph]GlyphLocation)}
		a.fonts[key] = fa
	}
	if existing, ok := fa.positions[glyph]; ok {
		return existing, nil
	}

	rect, err := a.reserve(width, height)
	if err != nil {
		return GlyphLocation{}, err
	}
	loc.Rect = rect
	fa.positions[glyph] = loc
	return loc, nil
}

// reserve finds space with a shelf packer: glyphs fill the current row
// left to right, and a glyph that does not fit opens a new row below.
func (a *GlyphAtlas) reserve(width, height int) (ember.IRect, error) {
	size := a.texture.Size()
	w := width + padding
	h := height + padding
	if w > size.Width || h > size.Height {
		return ember.IRect{}, ErrAtlasFull
	}
	if a.shelfX+w > size.Width {
		a.shelfY += a.shelfHeight
		a.shelfX = 0
		a.shelfHeight = 0
	}
	if a.shelfY+h > size.Height {
		return ember.IRect{}, ErrAtlasFull
	}
	rect := ember.IRect{X: a.shelfX, Y: a.shelfY, Width: width, Height: height}
	a.shelfX += w
	if h > a.shelfHeight {
		a.shelfHeight = h
	}
	return rect, nil
}

// GlyphCount returns how many glyph variants the atlas holds.
func (a *GlyphAtlas) GlyphCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, fa := range a.fonts {
		n += len(fa.positions)
	}
	return n
}
