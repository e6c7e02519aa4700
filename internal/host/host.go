/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package host declares what multicanvas needs from the mapping application it
// runs in. The application owns exactly one live project and one live canvas;
// multicanvas only ever talks to them through these interfaces.
package host

import (
	"image"

	"multicanvas/internal/domain"
)

// Project is the host's single live project object.
type Project interface {
	// Clear empties the project: no layers, no file name.
	Clear()
	// Read replaces the project content with the file at path.
	Read(path string) error
	// Write serializes the project to path.
	Write(path string) error
	MapLayers() []domain.Layer
	CRS() string
	// FileName is the path last read or written, "" for a fresh project.
	FileName() string
}

// Canvas is the host's single live map view.
type Canvas interface {
	Extent() domain.Extent
	SetExtent(domain.Extent)
	DestinationCRS() string
	SetDestinationCRS(string)
	Refresh()
}

// LayerTree is the host's layer panel.
type LayerTree interface {
	SetRoot(Project)
}

// ThumbnailRenderer renders a small picture of the live view. It must not
// change the project or the canvas.
type ThumbnailRenderer interface {
	Generate(p Project, c Canvas, size image.Point) (image.Image, error)
}

// ProjectFactory returns a fresh detached project object, used to inspect
// content files without touching the live project.
type ProjectFactory func() Project

// FullExtenter is implemented by projects that can report the extent of all
// their layers.
type FullExtenter interface {
	FullExtent() (domain.Extent, bool)
}

// LayerActivator is implemented by layer trees that can make a layer current.
type LayerActivator interface {
	SetCurrentLayer(id string) bool
}
