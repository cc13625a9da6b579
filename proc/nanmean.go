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
	"errors"
	"fmt"
	"math"

	"github.com/hoxca/detproc/frame"
	"github.com/hoxca/detproc/parallel"
)


// ErrEmptyKeep is returned by NanmeanArray when an empty, non-nil frame
// selection reaches the parallel backend.
var ErrEmptyKeep = errors.New("keep cannot be empty")

// NanmeanArray averages the selected frames of a stack per pixel, skipping
// NaN values. keep lists the frame indices to aggregate; nil means all
// frames. A pixel whose selected values are all NaN yields NaN. Returns a
// freshly allocated image and never mutates src.
//
// A non-nil empty keep is rejected on the parallel backend only; the
// sequential backend, whether selected with SetPool(nil) or by a closed
// pool, accepts it and yields an all-NaN image, the mean of zero frames.
// Callers relying on either behavior must pin the backend with SetPool.
func NanmeanArray(src *frame.Array[float32], keep []int) (*frame.Image[float32], error) {
	for _, i:=range keep {
		if i<0 || i>=src.Frames {
			return nil, fmt.Errorf("keep index %d out of range [0,%d)", i, src.Frames)
		}
	}

	pool:=currentPool()
	if pool.Parallel() && keep!=nil && len(keep)==0 { return nil, ErrEmptyKeep }

	mean:=frame.NewImage[float32](src.Height, src.Width)
	pool.ForRows(src.Frames, src.Height, src.Width, func(b parallel.Range3) {
		nanmeanRows(src, keep, mean, b.Row0, b.Row1)
	})
	return mean, nil
}

// Average rows [r0,r1) of the stack into mean, skipping NaNs per pixel.
func nanmeanRows(src *frame.Array[float32], keep []int, mean *frame.Image[float32], r0, r1 int) {
	nan:=float32(math.NaN())
	for j:=r0; j<r1; j++ {
		mrow:=mean.Row(j)
		for k:=0; k<src.Width; k++ {
			count:=0
			sum  :=float32(0)
			if keep==nil {
				for i:=0; i<src.Frames; i++ {
					if v:=src.At(i, j, k); !frame.IsNaN(v) {
						count++
						sum+=v
					}
				}
			} else {
				for _, i:=range keep {
					if v:=src.At(i, j, k); !frame.IsNaN(v) {
						count++
						sum+=v
					}
				}
			}
			if count==0 {
				mrow[k]=nan
			} else {
				mrow[k]=sum/float32(count)
			}
		}
	}
}

// NanmeanImages averages two images pixel-wise, skipping NaN values: both
// NaN yields NaN, exactly one NaN yields the other value unhalved, neither
// yields the arithmetic mean. Requires equal shapes. Returns a freshly
// allocated image and never mutates the inputs. Runs sequentially, as all
// single-image work does.
func NanmeanImages(a, b *frame.Image[float32]) (*frame.Image[float32], error) {
	if err:=frame.CheckShape(a.Shape(), b.Shape(), "images have different shapes", 0); err!=nil { return nil, err }

	nan:=float32(math.NaN())
	mean:=frame.NewImage[float32](a.Height, a.Width)
	for j:=0; j<a.Height; j++ {
		arow, brow, mrow:=a.Row(j), b.Row(j), mean.Row(j)
		for k:=range mrow {
			x, y:=arow[k], brow[k]
			switch {
			case frame.IsNaN(x) && frame.IsNaN(y):
				mrow[k]=nan
			case frame.IsNaN(x):
				mrow[k]=y
			case frame.IsNaN(y):
				mrow[k]=x
			default:
				mrow[k]=0.5*(x+y)
			}
		}
	}
	return mean, nil
}
