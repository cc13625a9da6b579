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
	"flag"
	"fmt"
	"os"

	"github.com/hoxca/detproc/parallel"
	"github.com/hoxca/detproc/proc"
)


var frames  = flag.Int("frames", 0, "number of frames in the synthetic stack, 0 for memory-based default")
var height  = flag.Int("height", 1024, "frame height in pixels")
var width   = flag.Int("width", 1024, "frame width in pixels")
var reps    = flag.Int("reps", 5, "timed repetitions per kernel")
var nanFrac = flag.Float64("nanFrac", 0.01, "fraction of pixels scattered with NaN")
var workers = flag.Int("workers", 0, "worker count, 0 for all logical cores, negative for sequential")
var port    = flag.Int("port", 8080, "port number for serve command")

func main() {
	flag.Usage=func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] command\n\nCommands:\n"+
			"  bench   run the preprocessing kernels on a synthetic stack and report timings\n"+
			"  serve   serve web content and benchmark API via HTTP\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		os.Exit(1)
	}

	benchP:=&BenchParams{
		Frames:  *frames,
		Height:  *height,
		Width:   *width,
		Reps:    *reps,
		NaNFrac: float32(*nanFrac),
		Workers: *workers,
	}

	// One pool for the process lifetime; serve reuses it across requests
	if *workers<0 {
		proc.SetPool(nil)
	} else {
		proc.SetPool(parallel.New(*workers))
	}

	switch args[0] {
	case "bench":
		CmdBench(benchP)
	case "serve":
		CmdServe(*port, benchP)
	default:
		LogFatalf("Unknown command %s\n", args[0])
	}
}
