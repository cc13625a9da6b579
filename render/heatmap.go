// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package render turns images and masks into false-color previews for
// diagnostics. It consumes kernel outputs read-only and never feeds back
// into processing.
package render

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/hoxca/detproc/frame"
)


// NaN pixels render in magenta so invalidated regions stand out against the
// blue-to-red value sweep.
var nanColor=color.RGBA{R:255, G:0, B:255, A:255}

// Heatmap renders src as a false-color image, sweeping hue from blue at lo
// to red at hi. Values outside [lo, hi] clamp to the end colors; NaN pixels
// render as nanColor. A degenerate range yields a uniform blue image.
func Heatmap(src *frame.Image[float32], lo, hi float32) *image.RGBA {
	scale:=float32(0)
	if hi>lo { scale=1/(hi-lo) }

	img:=image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	for j:=0; j<src.Height; j++ {
		row:=src.Row(j)
		for k, v:=range row {
			if frame.IsNaN(v) {
				img.SetRGBA(k, j, nanColor)
				continue
			}
			t:=(v-lo)*scale
			if t<0 { t=0 }
			if t>1 { t=1 }
			r, g, b:=colorful.Hsv(float64((1-t)*240), 1, 1).RGB255()
			img.SetRGBA(k, j, color.RGBA{R:r, G:g, B:b, A:255})
		}
	}
	return img
}

// MaskPreview renders a mask with excluded pixels in red on black.
func MaskPreview(m *frame.Mask) *image.RGBA {
	img:=image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	on :=color.RGBA{R:255, A:255}
	off:=color.RGBA{A:255}
	for j:=0; j<m.Height; j++ {
		for k, set:=range m.Row(j) {
			if set {
				img.SetRGBA(k, j, on)
			} else {
				img.SetRGBA(k, j, off)
			}
		}
	}
	return img
}
