/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCRS is applied to fresh projects and to records that carry no CRS.
const DefaultCRS = "EPSG:4326"

// ErrInvalidCRS is returned for identifiers that are not AUTHORITY:CODE.
var ErrInvalidCRS = errors.New("invalid crs identifier")

var knownAuthorities = map[string]bool{
	"EPSG": true, "ESRI": true, "IGNF": true, "OGC": true, "IAU": true, "USER": true,
}

// NormalizeCRS trims id and upper-cases its authority part.
func NormalizeCRS(id string) string {
	id = strings.TrimSpace(id)
	auth, code, ok := strings.Cut(id, ":")
	if !ok {
		return id
	}
	return strings.ToUpper(strings.TrimSpace(auth)) + ":" + strings.TrimSpace(code)
}

// ValidateCRS checks that id names a CRS the host could resolve.
func ValidateCRS(id string) error {
	auth, code, ok := strings.Cut(NormalizeCRS(id), ":")
	if !ok || code == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCRS, id)
	}
	if !knownAuthorities[auth] {
		return fmt.Errorf("%w: unknown authority %q", ErrInvalidCRS, auth)
	}
	for _, r := range code {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return fmt.Errorf("%w: bad code %q", ErrInvalidCRS, code)
		}
	}
	return nil
}

// ValidCRS is ValidateCRS as a predicate.
func ValidCRS(id string) bool { return ValidateCRS(id) == nil }
