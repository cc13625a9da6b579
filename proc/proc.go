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


// Package proc implements the pixel-wise preprocessing kernels applied to
// detector images before geometric reassembly: NaN-aware masking, NaN-aware
// frame aggregation, streaming moving averages, and gain/offset calibration
// correction. All kernels are synchronous and mutate caller-owned buffers in
// place, except the aggregators, which allocate their result. Buffers passed
// to a single call must not alias each other; behavior is undefined if they
// do.
//
// Stack-wide (3D) kernels run on a shared work-stealing pool by default and
// fall back to a single sequential whole-array pass when the pool is
// disabled with SetPool(nil). Single-image (2D) kernels always run
// sequentially. Blocks never split a pixel's reduction, so both schedules
// yield bit-identical results.
package proc

import (
	"sync"
	"sync/atomic"

	"github.com/hoxca/detproc/parallel"
)


type poolHolder struct {
	pool *parallel.Pool
}

var current atomic.Pointer[poolHolder]
var defaultOnce sync.Once

// SetPool replaces the execution backend for stack-wide kernels. Passing nil
// disables parallel execution, forcing the sequential code path. Safe to
// call concurrently with running kernels; in-flight calls keep the backend
// they started with.
func SetPool(p *parallel.Pool) {
	current.Store(&poolHolder{pool:p})
}

// The pool used by stack-wide kernels, creating the default one on first use.
func currentPool() *parallel.Pool {
	if h:=current.Load(); h!=nil { return h.pool }
	defaultOnce.Do(func() {
		current.CompareAndSwap(nil, &poolHolder{pool:parallel.New(0)})
	})
	return current.Load().pool
}
