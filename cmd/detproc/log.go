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
	"io"
	"os"
)


var logWriter io.Writer = os.Stdout

// Print formatted output to the log writer
func LogPrintf(format string, args ...interface{}) {
	fmt.Fprintf(logWriter, format, args...)
}

// Print to the log writer and exit with an error code
func LogFatal(args ...interface{}) {
	fmt.Fprintln(logWriter, args...)
	os.Exit(2)
}

// Print formatted output to the log writer and exit with an error code
func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(logWriter, format, args...)
	os.Exit(2)
}
