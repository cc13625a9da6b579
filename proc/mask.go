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
	"github.com/hoxca/detproc/frame"
	"github.com/hoxca/detproc/parallel"
)


// Threshold is an inclusive [Lb, Ub] valid-value range; pixels outside it
// are invalid.
type Threshold[T frame.Numeric] struct {
	Lb T
	Ub T
}

// MaskImageZero invalidates pixels of src in place, replacing them with
// zero. A pixel is invalid if it is NaN, if mask is non-nil and true there,
// or if thresh is non-nil and the value lies outside [Lb, Ub]. With no mask
// and no threshold, this is the bare variant, converting existing NaNs to
// zero. If out is non-nil, every pixel invalidated here is also recorded
// into out by setting it true; bits already set in out are never cleared.
func MaskImageZero[T frame.Numeric](src *frame.Image[T], mask *frame.Mask, thresh *Threshold[T], out *frame.Mask) error {
	if err:=checkMaskShapes(src.Shape(), mask, out, 0); err!=nil { return err }
	maskZero(src.AsArray(), mask, thresh, out, parallel.Range3{Frame0: 0, Frame1: 1, Row0: 0, Row1: src.Height, Col0: 0, Col1: src.Width})
	return nil
}

// MaskImageNan invalidates pixels of src in place, replacing them with NaN.
// The mask and threshold criteria are as for MaskImageZero, but pixels that
// are already NaN keep their value: with no mask and no threshold this
// variant is a no-op on the data, since NaN pixels already carry the
// sentinel. If out is non-nil it records, by setting true, every pixel this
// call invalidates for any cause, including pre-existing NaNs, whose value
// is recorded but left as NaN rather than rewritten. Checks apply in the
// order mask, then pre-existing NaN, then threshold.
func MaskImageNan[T frame.Numeric](src *frame.Image[T], mask *frame.Mask, thresh *Threshold[T], out *frame.Mask) error {
	if err:=checkMaskShapes(src.Shape(), mask, out, 0); err!=nil { return err }
	maskNan(src.AsArray(), mask, thresh, out, parallel.Range3{Frame0: 0, Frame1: 1, Row0: 0, Row1: src.Height, Col0: 0, Col1: src.Width})
	return nil
}

// NanMaskImage records the NaN pixels of src into out by setting them true,
// without modifying src. Complements MaskImageNan's bare variant, which
// leaves the data untouched.
func NanMaskImage[T frame.Numeric](src *frame.Image[T], out *frame.Mask) error {
	if err:=frame.CheckShape(src.Shape(), out.Shape(), "image and output mask have different shapes", 0); err!=nil { return err }
	for j:=0; j<src.Height; j++ {
		row:=src.Row(j)
		orow:=out.Row(j)
		for k, v:=range row {
			if frame.IsNaN(v) { orow[k]=true }
		}
	}
	return nil
}

// MaskArrayZero applies MaskImageZero semantics to every frame of a stack.
// The mask and out buffers are 2D and broadcast across the frame dimension;
// out records a pixel as invalidated if any frame invalidates it there.
func MaskArrayZero[T frame.Numeric](src *frame.Array[T], mask *frame.Mask, thresh *Threshold[T], out *frame.Mask) error {
	if err:=checkMaskShapes(src.Shape(), mask, out, 1); err!=nil { return err }
	forEachBlock(src, out, func(b parallel.Range3) {
		maskZero(src, mask, thresh, out, b)
	})
	return nil
}

// MaskArrayNan applies MaskImageNan semantics to every frame of a stack,
// with the mask and out buffers broadcast as in MaskArrayZero.
func MaskArrayNan[T frame.Numeric](src *frame.Array[T], mask *frame.Mask, thresh *Threshold[T], out *frame.Mask) error {
	if err:=checkMaskShapes(src.Shape(), mask, out, 1); err!=nil { return err }
	forEachBlock(src, out, func(b parallel.Range3) {
		maskNan(src, mask, thresh, out, b)
	})
	return nil
}

// Validate the mask and output mask shapes against the data shape, ignoring
// offset leading dimensions of the data. Runs before any mutation.
func checkMaskShapes(shape []int, mask, out *frame.Mask, offset int) error {
	if mask!=nil {
		if err:=frame.CheckShape(shape, mask.Shape(), "image and mask have different shapes", offset); err!=nil { return err }
	}
	if out!=nil {
		if err:=frame.CheckShape(shape, out.Shape(), "image and output mask have different shapes", offset); err!=nil { return err }
	}
	return nil
}

// Schedule a stack-wide masking pass. Without an output mask the index space
// is cut freely into 3D blocks. With one, only rows are cut, so every out
// element is written by exactly one block and recording stays race-free.
func forEachBlock[T frame.Numeric](src *frame.Array[T], out *frame.Mask, fn func(b parallel.Range3)) {
	pool:=currentPool()
	if out!=nil {
		pool.ForRows(src.Frames, src.Height, src.Width, fn)
		return
	}
	pool.For3D(src.Frames, src.Height, src.Width, fn)
}

// Zero-variant core shared by the 2D and 3D kernels. Invalid pixels become
// zero; existing NaNs are always replaced, even where the mask is false.
func maskZero[T frame.Numeric](src *frame.Array[T], mask *frame.Mask, thresh *Threshold[T], out *frame.Mask, b parallel.Range3) {
	for i:=b.Frame0; i<b.Frame1; i++ {
		for j:=b.Row0; j<b.Row1; j++ {
			row:=src.Row(i, j)[b.Col0:b.Col1]
			var mrow, orow []bool
			if mask!=nil { mrow=mask.Row(j)[b.Col0:b.Col1] }
			if out!=nil  { orow=out.Row(j)[b.Col0:b.Col1] }
			for k, v:=range row {
				if mrow!=nil && mrow[k] {
					row[k]=0
					if orow!=nil { orow[k]=true }
					continue
				}
				if frame.IsNaN(v) || (thresh!=nil && (v<thresh.Lb || v>thresh.Ub)) {
					row[k]=0
					if orow!=nil { orow[k]=true }
				}
			}
		}
	}
}

// Nan-variant core shared by the 2D and 3D kernels. Pixels hit by the mask
// or threshold become NaN; pixels already NaN are recorded but not
// rewritten. This check order, mask before pre-existing NaN before
// threshold, matches the zero variant's recording exactly while leaving the
// sentinel in place.
func maskNan[T frame.Numeric](src *frame.Array[T], mask *frame.Mask, thresh *Threshold[T], out *frame.Mask, b parallel.Range3) {
	nan:=frame.NaN[T]()
	for i:=b.Frame0; i<b.Frame1; i++ {
		for j:=b.Row0; j<b.Row1; j++ {
			row:=src.Row(i, j)[b.Col0:b.Col1]
			var mrow, orow []bool
			if mask!=nil { mrow=mask.Row(j)[b.Col0:b.Col1] }
			if out!=nil  { orow=out.Row(j)[b.Col0:b.Col1] }
			for k, v:=range row {
				if mrow!=nil && mrow[k] {
					row[k]=nan
					if orow!=nil { orow[k]=true }
					continue
				}
				if frame.IsNaN(v) {
					if orow!=nil { orow[k]=true }
					continue
				}
				if thresh!=nil && (v<thresh.Lb || v>thresh.Ub) {
					row[k]=nan
					if orow!=nil { orow[k]=true }
				}
			}
		}
	}
}
