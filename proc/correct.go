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


package proc

import (
	"fmt"

	"github.com/hoxca/detproc/frame"
	"github.com/hoxca/detproc/parallel"
)


// Policy selects the elementary calibration correction applied per pixel.
type Policy int

const (
	// OffsetPolicy subtracts the constant: result = value - constant.
	OffsetPolicy Policy = iota
	// GainPolicy multiplies by the constant: result = value * constant.
	GainPolicy
)

// Resolve the policy to a pixel function once, outside the pixel loops.
func correctFn[T frame.Numeric](p Policy) (func(v, c T) T, error) {
	switch p {
	case OffsetPolicy:
		return func(v, c T) T { return v-c }, nil
	case GainPolicy:
		return func(v, c T) T { return v*c }, nil
	}
	return nil, fmt.Errorf("unknown correction policy %d", p)
}

// CorrectImage applies the chosen correction policy to src in place, one
// constant per pixel. constants must match src's shape exactly.
func CorrectImage[T frame.Numeric](src, constants *frame.Image[T], p Policy) error {
	f, err:=correctFn[T](p)
	if err!=nil { return err }
	if err:=frame.CheckShape(src.Shape(), constants.Shape(), "data and constants have different shapes", 0); err!=nil { return err }
	correct(src.AsArray(), constants.AsArray(), f, parallel.Range3{Frame0: 0, Frame1: 1, Row0: 0, Row1: src.Height, Col0: 0, Col1: src.Width})
	return nil
}

// CorrectArray applies the chosen correction policy to a whole stack in
// place, with per-frame, per-pixel constants matching src's shape exactly.
func CorrectArray[T frame.Numeric](src, constants *frame.Array[T], p Policy) error {
	f, err:=correctFn[T](p)
	if err!=nil { return err }
	if err:=frame.CheckShape(src.Shape(), constants.Shape(), "data and constants have different shapes", 0); err!=nil { return err }
	currentPool().For3D(src.Frames, src.Height, src.Width, func(b parallel.Range3) {
		correct(src, constants, f, b)
	})
	return nil
}

// CorrectImageGainOffset applies the fixed affine form
// src = gain * (src - offset) per pixel, in place. The offset subtraction
// always precedes the gain multiplication.
func CorrectImageGainOffset[T frame.Numeric](src, gain, offset *frame.Image[T]) error {
	if err:=frame.CheckShape(src.Shape(), gain.Shape(), "data and gain constants have different shapes", 0); err!=nil { return err }
	if err:=frame.CheckShape(src.Shape(), offset.Shape(), "data and offset constants have different shapes", 0); err!=nil { return err }
	correctGainOffset(src.AsArray(), gain.AsArray(), offset.AsArray(), parallel.Range3{Frame0: 0, Frame1: 1, Row0: 0, Row1: src.Height, Col0: 0, Col1: src.Width})
	return nil
}

// CorrectArrayGainOffset is CorrectImageGainOffset over a whole stack.
func CorrectArrayGainOffset[T frame.Numeric](src, gain, offset *frame.Array[T]) error {
	if err:=frame.CheckShape(src.Shape(), gain.Shape(), "data and gain constants have different shapes", 0); err!=nil { return err }
	if err:=frame.CheckShape(src.Shape(), offset.Shape(), "data and offset constants have different shapes", 0); err!=nil { return err }
	currentPool().For3D(src.Frames, src.Height, src.Width, func(b parallel.Range3) {
		correctGainOffset(src, gain, offset, b)
	})
	return nil
}

func correct[T frame.Numeric](src, constants *frame.Array[T], f func(v, c T) T, b parallel.Range3) {
	for i:=b.Frame0; i<b.Frame1; i++ {
		for j:=b.Row0; j<b.Row1; j++ {
			row :=src.Row(i, j)[b.Col0:b.Col1]
			crow:=constants.Row(i, j)[b.Col0:b.Col1]
			for k, v:=range row {
				row[k]=f(v, crow[k])
			}
		}
	}
}

func correctGainOffset[T frame.Numeric](src, gain, offset *frame.Array[T], b parallel.Range3) {
	for i:=b.Frame0; i<b.Frame1; i++ {
		for j:=b.Row0; j<b.Row1; j++ {
			row :=src.Row(i, j)[b.Col0:b.Col1]
			grow:=gain.Row(i, j)[b.Col0:b.Col1]
			orow:=offset.Row(i, j)[b.Col0:b.Col1]
			for k, v:=range row {
				row[k]=grow[k]*(v-orow[k])
			}
		}
	}
}
