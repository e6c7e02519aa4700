/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dochost is a small self-contained host: projects are JSON documents
// listing layers, the canvas is an in-memory view. The command line tool and
// the tests run multicanvas against it.
package dochost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"multicanvas/internal/domain"
	"multicanvas/internal/host"
)

// LayerDoc is one layer entry of a document.
type LayerDoc struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Source string         `json:"source,omitempty"`
	Extent *domain.Extent `json:"extent,omitempty"`
}

type documentFile struct {
	Title  string     `json:"title"`
	CRS    string     `json:"crs"`
	Layers []LayerDoc `json:"layers"`
}

// ErrNotDocument is returned by Read for files that are not project documents.
var ErrNotDocument = errors.New("not a project document")

// Document implements host.Project.
type Document struct {
	mu       sync.Mutex
	title    string
	crs      string
	layers   []LayerDoc
	fileName string

	// OnLayersChanged is called after AddLayer and RemoveLayer, like a host
	// announcing added or removed layers.
	OnLayersChanged func()
}

var (
	_ host.Project      = (*Document)(nil)
	_ host.FullExtenter = (*Document)(nil)
)

// NewDocument returns an empty document.
func NewDocument() *Document { return &Document{} }

// Factory is a host.ProjectFactory producing Documents.
func Factory() host.Project { return NewDocument() }

func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title, d.crs, d.layers, d.fileName = "", "", nil, ""
}

func (d *Document) Read(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f documentFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotDocument, path, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title, d.crs, d.layers, d.fileName = f.Title, f.CRS, f.Layers, path
	return nil
}

func (d *Document) Write(path string) error {
	d.mu.Lock()
	f := documentFile{Title: d.title, CRS: d.crs, Layers: append([]LayerDoc{}, d.layers...)}
	d.mu.Unlock()
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	d.mu.Lock()
	d.fileName = path
	d.mu.Unlock()
	return nil
}

func (d *Document) MapLayers() []domain.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Layer, 0, len(d.layers))
	for _, l := range d.layers {
		out = append(out, domain.Layer{ID: l.ID, Name: l.Name, Source: l.Source})
	}
	return out
}

// Layers returns a copy of the layer entries including their extents.
func (d *Document) Layers() []LayerDoc {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]LayerDoc(nil), d.layers...)
}

func (d *Document) CRS() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.crs
}

func (d *Document) SetCRS(crs string) {
	d.mu.Lock()
	d.crs = crs
	d.mu.Unlock()
}

func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}

func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

func (d *Document) FileName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fileName
}

// AddLayer appends a layer. An empty ID is replaced by "layer_<n>".
func (d *Document) AddLayer(l LayerDoc) LayerDoc {
	d.mu.Lock()
	if l.ID == "" {
		l.ID = fmt.Sprintf("layer_%d", len(d.layers)+1)
	}
	d.layers = append(d.layers, l)
	cb := d.OnLayersChanged
	d.mu.Unlock()
	if cb != nil {
		cb()
	}
	return l
}

// RemoveLayer drops the layer with the given ID and reports whether it existed.
func (d *Document) RemoveLayer(id string) bool {
	d.mu.Lock()
	idx := -1
	for i, l := range d.layers {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return false
	}
	d.layers = append(d.layers[:idx], d.layers[idx+1:]...)
	cb := d.OnLayersChanged
	d.mu.Unlock()
	if cb != nil {
		cb()
	}
	return true
}

// FullExtent is the union of all layer extents.
func (d *Document) FullExtent() (domain.Extent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out domain.Extent
	found := false
	for _, l := range d.layers {
		if l.Extent == nil {
			continue
		}
		if !found {
			out, found = *l.Extent, true
			continue
		}
		out = out.Union(*l.Extent)
	}
	return out, found
}
