/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain holds the value types shared by every multicanvas package:
// view extents, coordinate reference system identifiers, bookmarks and layer
// descriptors.
package domain

import "time"

// Bookmark is a named saved view of a project. Bookmarks are plain values;
// copying one copies everything it holds.
type Bookmark struct {
	Name    string    `json:"name"`
	Extent  Extent    `json:"extent"`
	CRS     string    `json:"crs"`
	Created time.Time `json:"created"`
}

// Layer describes a map layer of a project as far as multicanvas cares:
// enough to count, list and search layers without opening the project.
type Layer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// TimeLayout is the on-disk timestamp format (ISO-8601 with fractional seconds).
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// ParseTime accepts the timestamp shapes found in saved workspaces: RFC 3339
// with or without zone, and ISO-8601 local times with or without fraction.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }
