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


// Package frame holds the pixel buffer types shared by all detector
// preprocessing kernels: a single 2D image, a 3D stack of images, and a
// boolean pixel mask. Buffers are flat, row-major, and caller-owned;
// kernels mutate them in place and never take over their lifetime.
package frame

import (
	"math"
)


// Numeric constrains the pixel element types supported by the kernels.
// Boolean pixel planes are represented by Mask instead.
type Numeric interface {
	~float32 | ~uint16
}

// IsNaN reports whether v is an IEEE NaN. Identically false for integer
// element types, which carry no invalid-measurement sentinel.
func IsNaN[T Numeric](v T) bool {
	return v!=v
}

// NaN returns the invalid-measurement sentinel for T: IEEE NaN for float
// elements, zero for integer elements.
func NaN[T Numeric]() T {
	var v T
	if p, ok:=any(&v).(*float32); ok {
		*p=float32(math.NaN())
	}
	return v
}


// A single detector image of Height x Width pixels, stored row-major.
type Image[T Numeric] struct {
	Height int
	Width  int
	Data   []T
}

// Allocate a zeroed image of the given dimensions.
func NewImage[T Numeric](height, width int) *Image[T] {
	return &Image[T]{Height:height, Width:width, Data:make([]T, height*width)}
}

// Shape returns the (height, width) dimensions.
func (f *Image[T]) Shape() []int { return []int{f.Height, f.Width} }

// Row returns the pixels of row j as a shared subslice.
func (f *Image[T]) Row(j int) []T {
	return f.Data[j*f.Width : (j+1)*f.Width]
}

// AsArray returns a single-frame stack view sharing f's buffer. Kernels use
// this so the 2D and 3D code paths share one implementation.
func (f *Image[T]) AsArray() *Array[T] {
	return &Array[T]{Frames:1, Height:f.Height, Width:f.Width, Data:f.Data}
}


// A stack of detector images, shape (Frames, Height, Width), stored row-major
// with frames contiguous.
type Array[T Numeric] struct {
	Frames int
	Height int
	Width  int
	Data   []T
}

// Allocate a zeroed image stack of the given dimensions.
func NewArray[T Numeric](frames, height, width int) *Array[T] {
	return &Array[T]{Frames:frames, Height:height, Width:width, Data:make([]T, frames*height*width)}
}

// Shape returns the (frames, height, width) dimensions.
func (a *Array[T]) Shape() []int { return []int{a.Frames, a.Height, a.Width} }

// At returns the pixel at frame i, row j, column k.
func (a *Array[T]) At(i, j, k int) T {
	return a.Data[(i*a.Height+j)*a.Width+k]
}

// Row returns the pixels of row j in frame i as a shared subslice.
func (a *Array[T]) Row(i, j int) []T {
	lower:=(i*a.Height+j)*a.Width
	return a.Data[lower : lower+a.Width]
}

// Frame returns frame i as an image view sharing a's buffer.
func (a *Array[T]) Frame(i int) *Image[T] {
	return &Image[T]{Height:a.Height, Width:a.Width, Data:a.Data[i*a.Height*a.Width : (i+1)*a.Height*a.Width]}
}


// A boolean pixel mask of Height x Width entries; true marks an excluded or
// invalid pixel. Masks broadcast across the frame dimension when applied to
// an image stack.
type Mask struct {
	Height int
	Width  int
	Data   []bool
}

// Allocate a cleared mask of the given dimensions.
func NewMask(height, width int) *Mask {
	return &Mask{Height:height, Width:width, Data:make([]bool, height*width)}
}

// Shape returns the (height, width) dimensions.
func (m *Mask) Shape() []int { return []int{m.Height, m.Width} }

// Row returns the entries of row j as a shared subslice.
func (m *Mask) Row(j int) []bool {
	return m.Data[j*m.Width : (j+1)*m.Width]
}
