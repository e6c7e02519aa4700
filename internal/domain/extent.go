/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Extent is an axis-aligned view rectangle in the units of its CRS.
// On disk it is the four element array [xmin, ymin, xmax, ymax].
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// ExtentFromArray builds an Extent from its on-disk form.
func ExtentFromArray(a [4]float64) Extent {
	return Extent{XMin: a[0], YMin: a[1], XMax: a[2], YMax: a[3]}
}

// Array returns the on-disk form of e.
func (e Extent) Array() [4]float64 { return [4]float64{e.XMin, e.YMin, e.XMax, e.YMax} }

// Width of the rectangle.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height of the rectangle.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

// IsDegenerate reports whether e has no area and must not be applied to a canvas.
func (e Extent) IsDegenerate() bool {
	return e.XMin == e.XMax || e.YMin == e.YMax || !e.finite()
}

func (e Extent) finite() bool {
	for _, v := range e.Array() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Equal reports whether all four bounds of e and o differ by at most eps.
func (e Extent) Equal(o Extent, eps float64) bool {
	return math.Abs(e.XMin-o.XMin) <= eps &&
		math.Abs(e.YMin-o.YMin) <= eps &&
		math.Abs(e.XMax-o.XMax) <= eps &&
		math.Abs(e.YMax-o.YMax) <= eps
}

// Union returns the smallest extent covering e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		XMin: math.Min(e.XMin, o.XMin),
		YMin: math.Min(e.YMin, o.YMin),
		XMax: math.Max(e.XMax, o.XMax),
		YMax: math.Max(e.YMax, o.YMax),
	}
}

func (e Extent) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", e.XMin, e.YMin, e.XMax, e.YMax)
}

func (e Extent) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Array())
}

func (e *Extent) UnmarshalJSON(b []byte) error {
	var a []float64
	if err := json.Unmarshal(b, &a); err != nil {
		return fmt.Errorf("extent: %w", err)
	}
	if len(a) != 4 {
		return fmt.Errorf("extent: want 4 numbers, got %d", len(a))
	}
	*e = ExtentFromArray([4]float64{a[0], a[1], a[2], a[3]})
	return nil
}
