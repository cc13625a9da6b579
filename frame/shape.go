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


package frame

import (
	"fmt"
)


// ShapeError reports two buffers that were expected to share a shape but
// do not. A is the full shape of the first buffer, before any offset.
type ShapeError struct {
	Msg string
	A   []int
	B   []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v vs %v", e.Msg, e.A, e.B)
}

// CheckShape compares shape a against shape b, ignoring the first offset
// leading dimensions of a. Offset 1 compares a 2D mask against the trailing
// two dimensions of a 3D stack shape. Every kernel validates shapes with
// this before mutating anything, so a shape error never leaves partial
// writes behind.
func CheckShape(a, b []int, msg string, offset int) error {
	if offset<0 || offset>len(a) {
		return &ShapeError{Msg:msg, A:a, B:b}
	}
	trail:=a[offset:]
	if len(trail)!=len(b) {
		return &ShapeError{Msg:msg, A:a, B:b}
	}
	for i:=range trail {
		if trail[i]!=b[i] {
			return &ShapeError{Msg:msg, A:a, B:b}
		}
	}
	return nil
}
