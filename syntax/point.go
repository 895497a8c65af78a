// Copyright 2022-2026 The Sapling Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package syntax defines the position types shared by every layer of the
// engine: points, lengths, spans, and edit descriptions.
//
// Columns are byte offsets within their line. Editors supply edits in the
// same unit, which keeps edit arithmetic exact; use [Location] to convert a
// point into display columns for human-facing output.
package syntax

import "fmt"

// Point is a zero-based (row, column) position. Column is measured in bytes
// from the start of the row.
type Point struct {
	Row, Column uint32
}

// Compare orders points lexicographically by row, then column.
func (p Point) Compare(other Point) int {
	switch {
	case p.Row < other.Row:
		return -1
	case p.Row > other.Row:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// Add treats other as a relative extent and advances p by it. If other spans
// at least one newline, the resulting column is other's column; otherwise
// columns accumulate on the same row.
func (p Point) Add(other Point) Point {
	if other.Row > 0 {
		return Point{Row: p.Row + other.Row, Column: other.Column}
	}
	return Point{Row: p.Row, Column: p.Column + other.Column}
}

// Sub computes the relative extent from other to p. It is the inverse of
// [Point.Add]: other.Add(p.Sub(other)) == p whenever other <= p.
func (p Point) Sub(other Point) Point {
	if p.Row > other.Row {
		return Point{Row: p.Row - other.Row, Column: p.Column}
	}
	return Point{Row: 0, Column: p.Column - other.Column}
}

// String implements [fmt.Stringer].
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Length is a text distance measured both in bytes and as a point extent.
// The two axes always describe the same stretch of text.
type Length struct {
	Bytes  uint32
	Extent Point
}

// Add sums two lengths.
func (l Length) Add(other Length) Length {
	return Length{
		Bytes:  l.Bytes + other.Bytes,
		Extent: l.Extent.Add(other.Extent),
	}
}

// Sub computes the distance from other to l, saturating at zero if other is
// longer on the byte axis.
func (l Length) Sub(other Length) Length {
	if l.Bytes <= other.Bytes {
		return Length{}
	}
	return Length{
		Bytes:  l.Bytes - other.Bytes,
		Extent: l.Extent.Sub(other.Extent),
	}
}

// Min returns the shorter of two lengths, measured in bytes.
func (l Length) Min(other Length) Length {
	if l.Bytes < other.Bytes {
		return l
	}
	return other
}

// Span is a half-open byte range with the point coordinates of both
// endpoints.
type Span struct {
	StartByte, EndByte   uint32
	StartPoint, EndPoint Point
}

// Len returns the length of the span.
func (s Span) Len() Length {
	return Length{
		Bytes:  s.EndByte - s.StartByte,
		Extent: s.EndPoint.Sub(s.StartPoint),
	}
}

// Empty reports whether the span covers zero bytes.
func (s Span) Empty() bool {
	return s.StartByte == s.EndByte
}

// Contains reports whether the byte offset lies within the span.
func (s Span) Contains(byte uint32) bool {
	return byte >= s.StartByte && byte < s.EndByte
}

// Union returns the smallest span covering both s and other.
func (s Span) Union(other Span) Span {
	if other.StartByte < s.StartByte {
		s.StartByte = other.StartByte
		s.StartPoint = other.StartPoint
	}
	if other.EndByte > s.EndByte {
		s.EndByte = other.EndByte
		s.EndPoint = other.EndPoint
	}
	return s
}

// Shift displaces the span by delta on both axes. newBase is the point delta
// origin: every coordinate is rewritten as though the text before the span
// moved by delta bytes and the corresponding extent.
func (s Span) Shift(deltaBytes int32, oldStart, newStart Point) Span {
	shiftPoint := func(p Point) Point {
		return newStart.Add(p.Sub(oldStart))
	}
	return Span{
		StartByte:  uint32(int32(s.StartByte) + deltaBytes),
		EndByte:    uint32(int32(s.EndByte) + deltaBytes),
		StartPoint: shiftPoint(s.StartPoint),
		EndPoint:   shiftPoint(s.EndPoint),
	}
}

// String implements [fmt.Stringer].
func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.StartByte, s.EndByte)
}

// Edit describes one contiguous text replacement against a previous version
// of a document. Multiple edits must be applied one call at a time, in
// ascending order of their original byte positions.
type Edit struct {
	StartByte, OldEndByte, NewEndByte    uint32
	StartPoint, OldEndPoint, NewEndPoint Point
}

// DeltaBytes returns the signed change in document length.
func (e Edit) DeltaBytes() int32 {
	return int32(e.NewEndByte) - int32(e.OldEndByte)
}

// Validate reports whether the edit's coordinates are internally consistent.
func (e Edit) Validate() error {
	if e.OldEndByte < e.StartByte || e.NewEndByte < e.StartByte {
		return fmt.Errorf("syntax: edit ends (%d, %d) precede start %d", e.OldEndByte, e.NewEndByte, e.StartByte)
	}
	if e.OldEndPoint.Compare(e.StartPoint) < 0 || e.NewEndPoint.Compare(e.StartPoint) < 0 {
		return fmt.Errorf("syntax: edit end points precede start point %v", e.StartPoint)
	}
	return nil
}
