/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dochost

import (
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"

	"multicanvas/internal/domain"
	"multicanvas/internal/host"
)

// Canvas implements host.Canvas in memory.
type Canvas struct {
	mu        sync.Mutex
	extent    domain.Extent
	crs       string
	refreshes int

	// OnExtentChanged is called synchronously after every SetExtent.
	OnExtentChanged func()
}

var _ host.Canvas = (*Canvas)(nil)

// NewCanvas returns a canvas showing the unit square in the default CRS.
func NewCanvas() *Canvas {
	return &Canvas{extent: domain.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}, crs: domain.DefaultCRS}
}

func (c *Canvas) Extent() domain.Extent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extent
}

func (c *Canvas) SetExtent(e domain.Extent) {
	c.mu.Lock()
	c.extent = e
	cb := c.OnExtentChanged
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (c *Canvas) DestinationCRS() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crs
}

func (c *Canvas) SetDestinationCRS(crs string) {
	c.mu.Lock()
	c.crs = crs
	c.mu.Unlock()
}

func (c *Canvas) Refresh() {
	c.mu.Lock()
	c.refreshes++
	c.mu.Unlock()
}

// Refreshes counts Refresh calls.
func (c *Canvas) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

// Tree implements host.LayerTree and host.LayerActivator by recording calls.
type Tree struct {
	mu      sync.Mutex
	root    host.Project
	current string
	sets    int
}

var (
	_ host.LayerTree      = (*Tree)(nil)
	_ host.LayerActivator = (*Tree)(nil)
)

func (t *Tree) SetRoot(p host.Project) {
	t.mu.Lock()
	t.root = p
	t.sets++
	t.mu.Unlock()
}

func (t *Tree) SetCurrentLayer(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return false
	}
	for _, l := range t.root.MapLayers() {
		if l.ID == id {
			t.current = id
			return true
		}
	}
	return false
}

// CurrentLayer is the ID last made current.
func (t *Tree) CurrentLayer() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Resets counts SetRoot calls.
func (t *Tree) Resets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sets
}

// Renderer paints the footprint of every layer with an extent onto a white
// background, in canvas coordinates.
type Renderer struct{}

var _ host.ThumbnailRenderer = Renderer{}

var palette = []color.RGBA{
	{R: 0x4e, G: 0x79, B: 0xa7, A: 0xff},
	{R: 0xf2, G: 0x8e, B: 0x2b, A: 0xff},
	{R: 0x59, G: 0xa1, B: 0x4f, A: 0xff},
	{R: 0xe1, G: 0x57, B: 0x59, A: 0xff},
}

func (Renderer) Generate(p host.Project, c host.Canvas, size image.Point) (image.Image, error) {
	img := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.Draw(img, img.Bounds(), image.White, image.Point{}, xdraw.Src)
	view := c.Extent()
	if view.IsDegenerate() {
		return img, nil
	}
	sx := float64(size.X) / view.Width()
	sy := float64(size.Y) / view.Height()
	doc, ok := p.(*Document)
	if !ok {
		return img, nil
	}
	for i, l := range doc.Layers() {
		if l.Extent == nil {
			continue
		}
		r := image.Rect(
			int((l.Extent.XMin-view.XMin)*sx),
			int((view.YMax-l.Extent.YMax)*sy),
			int((l.Extent.XMax-view.XMin)*sx),
			int((view.YMax-l.Extent.YMin)*sy),
		).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		xdraw.Draw(img, r, &image.Uniform{C: palette[i%len(palette)]}, image.Point{}, xdraw.Over)
	}
	return img, nil
}
