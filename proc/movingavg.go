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

	"github.com/hoxca/detproc/frame"
	"github.com/hoxca/detproc/parallel"
)


// ErrZeroCount is returned by the moving-average kernels when count is zero.
var ErrZeroCount = errors.New("count cannot be zero")

// MovingAvgImage folds a new frame into a running mean in place:
// avg += (data - avg) / count. Seeded with avg equal to the first frame at
// count 1 and fed count 2, 3, ... for each subsequent frame, avg holds the
// running arithmetic mean of all frames so far without retaining them.
//
// Unlike the nanmean aggregators this recurrence is not NaN-aware: a NaN in
// either buffer propagates arithmetically and poisons avg permanently.
func MovingAvgImage[T frame.Numeric](avg, data *frame.Image[T], count int) error {
	if count==0 { return ErrZeroCount }
	if err:=frame.CheckShape(avg.Shape(), data.Shape(), "inconsistent data shapes", 0); err!=nil { return err }
	movingAvg(avg.AsArray(), data.AsArray(), T(count), parallel.Range3{Frame0: 0, Frame1: 1, Row0: 0, Row1: avg.Height, Col0: 0, Col1: avg.Width})
	return nil
}

// MovingAvgArray is MovingAvgImage over a whole stack, updating every frame
// of avg from the matching frame of data.
func MovingAvgArray[T frame.Numeric](avg, data *frame.Array[T], count int) error {
	if count==0 { return ErrZeroCount }
	if err:=frame.CheckShape(avg.Shape(), data.Shape(), "inconsistent data shapes", 0); err!=nil { return err }
	currentPool().For3D(avg.Frames, avg.Height, avg.Width, func(b parallel.Range3) {
		movingAvg(avg, data, T(count), b)
	})
	return nil
}

func movingAvg[T frame.Numeric](avg, data *frame.Array[T], count T, b parallel.Range3) {
	for i:=b.Frame0; i<b.Frame1; i++ {
		for j:=b.Row0; j<b.Row1; j++ {
			arow:=avg.Row(i, j)[b.Col0:b.Col1]
			drow:=data.Row(i, j)[b.Col0:b.Col1]
			for k, a:=range arow {
				arow[k]=a+(drow[k]-a)/count
			}
		}
	}
}
