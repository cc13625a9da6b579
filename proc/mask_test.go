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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/hoxca/detproc/frame"
	"github.com/hoxca/detproc/parallel"
)

var nan32 = float32(math.NaN())

// Shared pool for tests; individual tests swap it out and restore on cleanup.
var testPool = parallel.New(4)

func init() { SetPool(testPool) }

func usePool(t *testing.T, p *parallel.Pool) {
	t.Helper()
	SetPool(p)
	t.Cleanup(func() { SetPool(testPool) })
}

func imageOf(height, width int, vals ...float32) *frame.Image[float32] {
	f := frame.NewImage[float32](height, width)
	copy(f.Data, vals)
	return f
}

func maskOf(height, width int, vals ...bool) *frame.Mask {
	m := frame.NewMask(height, width)
	copy(m.Data, vals)
	return m
}

// Compare float32 slices bit-exactly, treating NaN as equal to NaN.
func sameFloats(t *testing.T, want, got []float32) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		if math.Float32bits(want[i]) != math.Float32bits(got[i]) {
			if frame.IsNaN(want[i]) && frame.IsNaN(got[i]) {
				continue
			}
			t.Fatalf("element %d: want %v got %v", i, want[i], got[i])
		}
	}
}

func randomStack(frames, height, width int, nanFrac float32) *frame.Array[float32] {
	a := frame.NewArray[float32](frames, height, width)
	cut := uint32(nanFrac * float32(1<<16))
	for i := range a.Data {
		if fastrand.Uint32n(1<<16) < cut {
			a.Data[i] = nan32
		} else {
			a.Data[i] = float32(fastrand.Uint32n(1000))/500 - 1
		}
	}
	return a
}

func TestMaskImageZeroBare(t *testing.T) {
	src := imageOf(1, 3, nan32, 2, -1)
	require.NoError(t, MaskImageZero(src, nil, nil, nil))
	sameFloats(t, []float32{0, 2, -1}, src.Data)
}

func TestMaskImageNanBareIsNoOp(t *testing.T) {
	src := imageOf(1, 3, nan32, 2, -1)
	require.NoError(t, MaskImageNan(src, nil, nil, nil))
	sameFloats(t, []float32{nan32, 2, -1}, src.Data)
}

func TestMaskImageThreshold(t *testing.T) {
	thresh := &Threshold[float32]{Lb: 1, Ub: 3}

	t.Run("zero variant", func(t *testing.T) {
		src := imageOf(1, 5, 0.5, 1, 3, 4, nan32)
		require.NoError(t, MaskImageZero(src, nil, thresh, nil))
		sameFloats(t, []float32{0, 1, 3, 0, 0}, src.Data)
	})

	t.Run("zero variant records", func(t *testing.T) {
		src := imageOf(1, 5, 0.5, 1, 3, 4, nan32)
		out := frame.NewMask(1, 5)
		require.NoError(t, MaskImageZero(src, nil, thresh, out))
		sameFloats(t, []float32{0, 1, 3, 0, 0}, src.Data)
		assert.Equal(t, []bool{true, false, false, true, true}, out.Data)
	})

	t.Run("nan variant keeps existing NaN", func(t *testing.T) {
		src := imageOf(1, 5, 0.5, 1, 3, 4, nan32)
		require.NoError(t, MaskImageNan(src, nil, thresh, nil))
		sameFloats(t, []float32{nan32, 1, 3, nan32, nan32}, src.Data)
	})

	t.Run("nan variant records existing NaN too", func(t *testing.T) {
		src := imageOf(1, 5, 0.5, 1, 3, 4, nan32)
		out := frame.NewMask(1, 5)
		require.NoError(t, MaskImageNan(src, nil, thresh, out))
		sameFloats(t, []float32{nan32, 1, 3, nan32, nan32}, src.Data)
		assert.Equal(t, []bool{true, false, false, true, true}, out.Data)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		src := imageOf(1, 2, 1, 3)
		require.NoError(t, MaskImageZero(src, nil, thresh, nil))
		sameFloats(t, []float32{1, 3}, src.Data)
	})

	t.Run("uint16 has no NaN criterion", func(t *testing.T) {
		src := frame.NewImage[uint16](1, 3)
		copy(src.Data, []uint16{5, 100, 7})
		require.NoError(t, MaskImageZero(src, nil, &Threshold[uint16]{Lb: 1, Ub: 10}, nil))
		assert.Equal(t, []uint16{5, 0, 7}, src.Data)
	})
}

func TestMaskImageBooleanMask(t *testing.T) {
	mask := maskOf(1, 3, true, false, false)

	t.Run("zero variant also zeroes unmasked NaN", func(t *testing.T) {
		src := imageOf(1, 3, 5, nan32, 7)
		require.NoError(t, MaskImageZero(src, mask, nil, nil))
		sameFloats(t, []float32{0, 0, 7}, src.Data)
	})

	t.Run("nan variant acts only where masked", func(t *testing.T) {
		src := imageOf(1, 3, 5, nan32, 7)
		require.NoError(t, MaskImageNan(src, mask, nil, nil))
		sameFloats(t, []float32{nan32, nan32, 7}, src.Data)
	})

	t.Run("nan variant with out records unmasked NaN without rewriting it", func(t *testing.T) {
		src := imageOf(1, 3, 5, nan32, 7)
		out := frame.NewMask(1, 3)
		require.NoError(t, MaskImageNan(src, mask, nil, out))
		sameFloats(t, []float32{nan32, nan32, 7}, src.Data)
		assert.Equal(t, []bool{true, true, false}, out.Data)
	})
}

// Combined mask+threshold with recording: check order is mask, then
// pre-existing NaN, then threshold. A pixel that is already NaN is recorded
// but its value stays NaN in the nan variant, while the zero variant resets
// it to zero.
func TestMaskImageCombined(t *testing.T) {
	thresh := &Threshold[float32]{Lb: 0, Ub: 10}

	t.Run("nan variant masks and thresholds together", func(t *testing.T) {
		src := imageOf(1, 2, 5, 50)
		mask := maskOf(1, 2, true, false)
		out := frame.NewMask(1, 2)
		require.NoError(t, MaskImageNan(src, mask, thresh, out))
		sameFloats(t, []float32{nan32, nan32}, src.Data)
		assert.Equal(t, []bool{true, true}, out.Data)
	})

	t.Run("mask has priority over threshold", func(t *testing.T) {
		src := imageOf(1, 2, 5, 5) // both in range
		mask := maskOf(1, 2, true, false)
		require.NoError(t, MaskImageNan(src, mask, thresh, nil))
		sameFloats(t, []float32{nan32, 5}, src.Data)
	})

	t.Run("nan variant records pre-existing NaN without reset", func(t *testing.T) {
		src := imageOf(1, 3, nan32, 5, 50)
		mask := maskOf(1, 3, false, false, false)
		out := frame.NewMask(1, 3)
		require.NoError(t, MaskImageNan(src, mask, thresh, out))
		sameFloats(t, []float32{nan32, 5, nan32}, src.Data)
		assert.Equal(t, []bool{true, false, true}, out.Data)
	})

	t.Run("zero variant resets pre-existing NaN", func(t *testing.T) {
		src := imageOf(1, 3, nan32, 5, 50)
		mask := maskOf(1, 3, false, false, false)
		out := frame.NewMask(1, 3)
		require.NoError(t, MaskImageZero(src, mask, thresh, out))
		sameFloats(t, []float32{0, 5, 0}, src.Data)
		assert.Equal(t, []bool{true, false, true}, out.Data)
	})
}

func TestMaskOutAccumulatesAcrossCalls(t *testing.T) {
	out := maskOf(1, 3, true, false, false) // pre-set bit must survive
	src := imageOf(1, 3, 1, 2, 50)
	require.NoError(t, MaskImageNan(src, nil, &Threshold[float32]{Lb: 0, Ub: 10}, out))
	assert.Equal(t, []bool{true, false, true}, out.Data)
}

func TestMaskShapeMismatchLeavesSrcUntouched(t *testing.T) {
	src := imageOf(2, 2, nan32, 2, 3, 50)
	before := append([]float32(nil), src.Data...)

	t.Run("bad mask", func(t *testing.T) {
		err := MaskImageZero(src, frame.NewMask(2, 3), nil, nil)
		var se *frame.ShapeError
		require.True(t, errors.As(err, &se))
		sameFloats(t, before, src.Data)
	})

	t.Run("bad out", func(t *testing.T) {
		err := MaskImageNan(src, frame.NewMask(2, 2), &Threshold[float32]{0, 10}, frame.NewMask(3, 2))
		var se *frame.ShapeError
		require.True(t, errors.As(err, &se))
		sameFloats(t, before, src.Data)
	})
}

func TestNanMaskImage(t *testing.T) {
	src := imageOf(1, 3, nan32, 2, nan32)
	out := maskOf(1, 3, false, true, false)
	require.NoError(t, NanMaskImage(src, out))
	sameFloats(t, []float32{nan32, 2, nan32}, src.Data)
	assert.Equal(t, []bool{true, true, true}, out.Data)

	assert.Error(t, NanMaskImage(src, frame.NewMask(3, 1)))
}

func TestMaskArrayBroadcastsMask(t *testing.T) {
	// 2 frames x 1 row x 3 cols; 2D mask applies to both frames
	src := frame.NewArray[float32](2, 1, 3)
	copy(src.Data, []float32{1, 2, 3, 4, nan32, 6})
	mask := maskOf(1, 3, true, false, false)

	require.NoError(t, MaskArrayNan(src, mask, nil, nil))
	sameFloats(t, []float32{nan32, 2, 3, nan32, nan32, 6}, src.Data)

	// mask shape is validated against the trailing two dimensions
	err := MaskArrayNan(src, frame.NewMask(2, 3), nil, nil)
	var se *frame.ShapeError
	require.True(t, errors.As(err, &se))
}

func TestMaskArrayRecordsAcrossFrames(t *testing.T) {
	src := frame.NewArray[float32](2, 1, 3)
	copy(src.Data, []float32{1, 50, 3, nan32, 2, 6})
	out := frame.NewMask(1, 3)

	require.NoError(t, MaskArrayNan(src, nil, &Threshold[float32]{Lb: 0, Ub: 10}, out))
	// col 0 invalid in frame 1 (NaN), col 1 invalid in frame 0 (threshold)
	assert.Equal(t, []bool{true, true, false}, out.Data)
	sameFloats(t, []float32{1, nan32, 3, nan32, 2, 6}, src.Data)
}

func TestMaskArrayParallelMatchesSequential(t *testing.T) {
	src := randomStack(6, 17, 23, 0.05)
	mask := frame.NewMask(17, 23)
	for i := range mask.Data {
		mask.Data[i] = fastrand.Uint32n(10) == 0
	}
	thresh := &Threshold[float32]{Lb: -0.5, Ub: 0.5}

	parSrc := frame.NewArray[float32](6, 17, 23)
	copy(parSrc.Data, src.Data)
	parOut := frame.NewMask(17, 23)
	require.NoError(t, MaskArrayNan(parSrc, mask, thresh, parOut))

	usePool(t, nil)
	seqSrc := frame.NewArray[float32](6, 17, 23)
	copy(seqSrc.Data, src.Data)
	seqOut := frame.NewMask(17, 23)
	require.NoError(t, MaskArrayNan(seqSrc, mask, thresh, seqOut))

	sameFloats(t, seqSrc.Data, parSrc.Data)
	assert.Equal(t, seqOut.Data, parOut.Data)
}
