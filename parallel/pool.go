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


// Package parallel partitions stack-wide pixel workloads into disjoint
// blocked ranges and executes them on a persistent work-stealing pool.
// Blocks never overlap, so kernels need no cross-block synchronization and
// the parallel and sequential schedules produce the same result.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/klauspost/cpuid"
)


// Range3 is a contiguous block of a (frames, rows, cols) index space,
// half-open on every axis.
type Range3 struct {
	Frame0, Frame1 int
	Row0,   Row1   int
	Col0,   Col1   int
}

// A persistent pool of worker goroutines. Workers are spawned once at
// creation and reused across many kernel invocations, so per-call overhead
// stays off the pixel loops. A nil *Pool runs everything sequentially.
//
// mu serializes Close against in-flight submissions: submitters hold the
// read side while sending on workC, so the channel can never be closed
// mid-send.
type Pool struct {
	numWorkers int
	workC      chan workItem
	mu         sync.RWMutex
	closed     bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with the given number of workers. If numWorkers<=0 the
// pool is sized to the number of logical cores.
func New(numWorkers int) *Pool {
	if numWorkers<=0 {
		numWorkers=cpuid.CPU.LogicalCores
		if numWorkers<=0 { numWorkers=runtime.NumCPU() }
	}
	p:=&Pool{numWorkers:numWorkers, workC:make(chan workItem, numWorkers*2)}
	for i:=0; i<numWorkers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item:=range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int { return p.numWorkers }

// Parallel reports whether submitted work runs on the pool's workers.
// False for a nil or closed pool, which both execute sequentially on the
// calling goroutine.
func (p *Pool) Parallel() bool {
	if p==nil { return false }
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// Close shuts the pool down after pending work completes. Safe to call more
// than once and concurrently with running kernels; submissions in flight
// finish on the workers, later ones run sequentially on the caller.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed { return }
	p.closed=true
	close(p.workC)
}

// For3D partitions the (frames, rows, cols) index space into disjoint
// blocks and executes fn once per block, stealing blocks off a shared
// counter. Returns only after all blocks have completed, so callers observe
// fully settled buffers. A nil or closed pool executes the whole space as a
// single block on the calling goroutine.
func (p *Pool) For3D(frames, rows, cols int, fn func(b Range3)) {
	if frames<=0 || rows<=0 || cols<=0 { return }
	if !p.Parallel() {
		fn(Range3{0, frames, 0, rows, 0, cols})
		return
	}
	p.steal(partition3(frames, rows, cols, p.numWorkers), fn)
}

// ForRows partitions only the row axis, covering all frames and columns in
// every block. Kernels use this when a 2D output buffer is written per
// (row, col) element, so each output element still has exactly one writer.
func (p *Pool) ForRows(frames, rows, cols int, fn func(b Range3)) {
	if frames<=0 || rows<=0 || cols<=0 { return }
	if !p.Parallel() {
		fn(Range3{0, frames, 0, rows, 0, cols})
		return
	}
	p.steal(partition3(1, rows, 1, p.numWorkers), func(b Range3) {
		fn(Range3{0, frames, b.Row0, b.Row1, 0, cols})
	})
}

// Execute the given blocks with atomic work stealing and join. Falls back
// to the calling goroutine if the pool was closed since the entry check.
func (p *Pool) steal(blocks []Range3, fn func(b Range3)) {
	workers:=p.numWorkers
	if workers>len(blocks) { workers=len(blocks) }
	if workers<=1 {
		for _, b:=range blocks { fn(b) }
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		for _, b:=range blocks { fn(b) }
		return
	}
	wg.Add(workers)
	for i:=0; i<workers; i++ {
		p.workC <- workItem{
			fn: func() {
				for {
					idx:=int(next.Add(1))-1
					if idx>=len(blocks) { return }
					fn(blocks[idx])
				}
			},
			barrier: &wg,
		}
	}
	p.mu.RUnlock()
	wg.Wait()
}

// Split a 3D index space into roughly 8*workers disjoint blocks, cutting the
// frame axis first, then rows, then columns. Block bounds use the i*n/parts
// rule so the blocks tile the space exactly.
func partition3(frames, rows, cols, workers int) []Range3 {
	target:=8*workers
	nf:=frames
	if nf>target { nf=target }
	nr:=(target+nf-1)/nf
	if nr>rows { nr=rows }
	nc:=(target+nf*nr-1)/(nf*nr)
	if nc>cols { nc=cols }

	blocks:=make([]Range3, 0, nf*nr*nc)
	for fi:=0; fi<nf; fi++ {
		f0, f1:=span(frames, nf, fi)
		for ri:=0; ri<nr; ri++ {
			r0, r1:=span(rows, nr, ri)
			for ci:=0; ci<nc; ci++ {
				c0, c1:=span(cols, nc, ci)
				blocks=append(blocks, Range3{f0, f1, r0, r1, c0, c1})
			}
		}
	}
	return blocks
}

func span(n, parts, i int) (int, int) {
	return i*n/parts, (i+1)*n/parts
}
