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

package main

import (
	"fmt"
	"math"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"

	"github.com/hoxca/detproc/frame"
	"github.com/hoxca/detproc/proc"
)


// Parameters for benchmarking the preprocessing kernels on synthetic stacks
type BenchParams struct {
	Frames  int     // number of frames in the stack, 0 for memory-based default
	Height  int     // frame height in pixels
	Width   int     // frame width in pixels
	Reps    int     // timed repetitions per kernel
	NaNFrac float32 // fraction of pixels scattered with NaN
	Workers int     // worker count, 0 for all logical cores, negative for sequential
}

// Print parameters for benchmarking
func (p *BenchParams) String() string {
	return fmt.Sprintf("frames %d height %d width %d reps %d nanFrac %.3f workers %d",
	                   p.Frames, p.Height, p.Width, p.Reps, p.NaNFrac, p.Workers)
}

// Timing statistics for one kernel across all repetitions
type BenchResult struct {
	Kernel   string  `json:"kernel"`
	MeanMS   float64 `json:"meanMS"`
	StdDevMS float64 `json:"stdDevMS"`
}

// Perform the benchmarking command on synthetic detector stacks. The
// execution backend is installed once at startup, so repeated calls reuse
// the same pool.
func CmdBench(p *BenchParams) []BenchResult {
	if p.Frames<=0 { p.Frames=defaultFrames(p.Height, p.Width) }
	if p.Reps<=0 { p.Reps=5 }

	LogPrintf("Benchmarking on %s, %d logical cores, %d MB system memory\n",
		cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, memory.TotalMemory()/(1024*1024))
	LogPrintf("Synthetic stack: %s\n", p)

	src   :=synthStack(p.Frames, p.Height, p.Width, p.NaNFrac)
	gain  :=synthStack(p.Frames, p.Height, p.Width, 0)
	offset:=synthStack(p.Frames, p.Height, p.Width, 0)
	mask  :=synthMask(p.Height, p.Width)
	thresh:=&proc.Threshold[float32]{Lb:0.05, Ub:0.95}

	work:=frame.NewArray[float32](p.Frames, p.Height, p.Width)
	out :=frame.NewMask(p.Height, p.Width)

	kernels:=[]struct {
		name string
		run  func() error
	}{
		{"correct gain+offset", func() error { return proc.CorrectArrayGainOffset(work, gain, offset) }},
		{"mask zero threshold", func() error { return proc.MaskArrayZero(work, nil, thresh, nil) }},
		{"mask nan mask+threshold+out", func() error { return proc.MaskArrayNan(work, mask, thresh, out) }},
		{"nanmean", func() error { _, err:=proc.NanmeanArray(work, nil); return err }},
		{"moving average", func() error { return proc.MovingAvgArray(work, src, 2) }},
	}

	results:=make([]BenchResult, 0, len(kernels))
	for _, k:=range kernels {
		timings:=make([]float64, p.Reps)
		for rep:=0; rep<p.Reps; rep++ {
			copy(work.Data, src.Data) // undo prior in-place mutation, outside the timer
			start:=time.Now()
			if err:=k.run(); err!=nil { LogFatalf("%s: %s\n", k.name, err) }
			timings[rep]=float64(time.Since(start).Nanoseconds())/1e6
		}
		r:=BenchResult{Kernel:k.name, MeanMS:stat.Mean(timings, nil), StdDevMS:stat.StdDev(timings, nil)}
		LogPrintf("%-30s %8.3f ms  +/- %.3f\n", r.Kernel, r.MeanMS, r.StdDevMS)
		results=append(results, r)
	}
	return results
}

// Pick a frame count so the synthetic stack uses about 1/64th of system
// memory, within sane bounds
func defaultFrames(height, width int) int {
	budget:=memory.TotalMemory()/64
	frames:=int(budget/uint64(height*width*4))
	if frames<4 { frames=4 }
	if frames>128 { frames=128 }
	return frames
}

// Generate a stack of uniform random pixels in [0,1), with the given
// fraction replaced by NaN
func synthStack(frames, height, width int, nanFrac float32) *frame.Array[float32] {
	a:=frame.NewArray[float32](frames, height, width)
	nan:=float32(math.NaN())
	nanCut:=uint32(nanFrac*float32(1<<24))
	for i:=range a.Data {
		if fastrand.Uint32n(1<<24)<nanCut {
			a.Data[i]=nan
		} else {
			a.Data[i]=float32(fastrand.Uint32n(1<<24))/(1<<24)
		}
	}
	return a
}

// Generate a mask with roughly 1% of pixels excluded
func synthMask(height, width int) *frame.Mask {
	m:=frame.NewMask(height, width)
	for i:=range m.Data {
		m.Data[i]=fastrand.Uint32n(100)==0
	}
	return m
}
