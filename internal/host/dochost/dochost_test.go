/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dochost

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"multicanvas/internal/domain"
)

func TestDocumentWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := NewDocument()
	d.SetTitle("roads")
	d.SetCRS("EPSG:3857")
	d.AddLayer(LayerDoc{Name: "Roads", Extent: &domain.Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 10}})
	d.AddLayer(LayerDoc{ID: "rivers", Name: "Rivers", Extent: &domain.Extent{XMin: 5, YMin: -5, XMax: 20, YMax: 5}})

	path := filepath.Join(dir, "a.mcp")
	if err := d.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if d.FileName() != path {
		t.Fatalf("FileName after Write = %q", d.FileName())
	}

	got := NewDocument()
	if err := got.Read(path); err != nil {
		t.Fatalf("Read: %v", err)
	}
	ls := got.MapLayers()
	if len(ls) != 2 || ls[0].ID != "layer_1" || ls[1].Name != "Rivers" {
		t.Fatalf("unexpected layers: %+v", ls)
	}
	if got.CRS() != "EPSG:3857" || got.Title() != "roads" {
		t.Fatalf("unexpected doc: crs=%q title=%q", got.CRS(), got.Title())
	}
	full, ok := got.FullExtent()
	if !ok || full != (domain.Extent{XMin: 0, YMin: -5, XMax: 20, YMax: 10}) {
		t.Fatalf("FullExtent = %v, %v", full, ok)
	}

	got.Clear()
	if len(got.MapLayers()) != 0 || got.FileName() != "" {
		t.Fatalf("Clear left state behind")
	}
}

func TestDocumentReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mcp")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := NewDocument().Read(path); !errors.Is(err, ErrNotDocument) {
		t.Fatalf("Read garbage = %v", err)
	}
	if err := NewDocument().Read(filepath.Join(t.TempDir(), "missing.mcp")); err == nil {
		t.Fatalf("Read missing file must fail")
	}
}

func TestLayerCallbacksAndTree(t *testing.T) {
	d := NewDocument()
	calls := 0
	d.OnLayersChanged = func() { calls++ }
	l := d.AddLayer(LayerDoc{Name: "A"})
	if !d.RemoveLayer(l.ID) || d.RemoveLayer("nope") {
		t.Fatalf("RemoveLayer results wrong")
	}
	if calls != 2 {
		t.Fatalf("callbacks = %d, want 2", calls)
	}

	d.AddLayer(LayerDoc{ID: "x", Name: "X"})
	var tree Tree
	if tree.SetCurrentLayer("x") {
		t.Fatalf("no root yet")
	}
	tree.SetRoot(d)
	if !tree.SetCurrentLayer("x") || tree.CurrentLayer() != "x" || tree.Resets() != 1 {
		t.Fatalf("tree state wrong")
	}
}

func TestCanvasAndRenderer(t *testing.T) {
	c := NewCanvas()
	changed := 0
	c.OnExtentChanged = func() { changed++ }
	c.SetExtent(domain.Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 10})
	c.Refresh()
	if changed != 1 || c.Refreshes() != 1 {
		t.Fatalf("changed=%d refreshes=%d", changed, c.Refreshes())
	}

	d := NewDocument()
	d.AddLayer(LayerDoc{Name: "A", Extent: &domain.Extent{XMin: 0, YMin: 0, XMax: 5, YMax: 5}})
	img, err := Renderer{}.Generate(d, c, image.Pt(100, 100))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	// lower-left quadrant is painted, upper-right stays white
	if r, g, b, _ := img.At(10, 90).RGBA(); r == 0xffff && g == 0xffff && b == 0xffff {
		t.Fatalf("layer footprint not painted")
	}
	if r, g, b, _ := img.At(90, 10).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("outside footprint should be white")
	}
}
