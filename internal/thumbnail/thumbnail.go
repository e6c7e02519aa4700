/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package thumbnail scales rendered views down to the fixed preview size and
// encodes them for storage.
package thumbnail

import (
	"bytes"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// DefaultSize is the preview box used when none is configured.
var DefaultSize = image.Pt(180, 120)

// Fit scales src into a size box keeping its aspect ratio, centred on white.
// A nil or empty source yields a blank box.
func Fit(src image.Image, size image.Point) *image.RGBA {
	if size.X <= 0 || size.Y <= 0 {
		size = DefaultSize
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	if src == nil || src.Bounds().Empty() {
		return dst
	}
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	w, h := size.X, sh*size.X/sw
	if h > size.Y {
		w, h = sw*size.Y/sh, size.Y
	}
	w, h = max(w, 1), max(h, 1)
	off := image.Pt((size.X-w)/2, (size.Y-h)/2)
	target := image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}
	xdraw.CatmullRom.Scale(dst, target, src, sb, xdraw.Over, nil)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePNG is the inverse of EncodePNG.
func DecodePNG(b []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(b))
}
