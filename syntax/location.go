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

package syntax

import (
	"strings"

	"github.com/rivo/uniseg"
)

// TabstopWidth is the width a tab occupies when computing display columns.
const TabstopWidth = 4

// Location is a human-facing position: a [Point] plus the corresponding
// one-based display column, counted in terminal cells rather than bytes.
type Location struct {
	Point Point

	// Line and Column are one-based editor coordinates. Column accounts for
	// grapheme segmentation and East Asian character width.
	Line, Column int
}

// Locate converts a point within text into a [Location].
//
// The point's column is interpreted as a byte offset into its line, which is
// how the engine stores all positions; the returned column is what an editor
// or terminal should display.
func Locate(text string, point Point) Location {
	line := lineAt(text, int(point.Row))
	if int(point.Column) < len(line) {
		line = line[:point.Column]
	}

	column := 1
	state := -1
	for len(line) > 0 {
		var cluster string
		var width int
		cluster, line, width, state = uniseg.FirstGraphemeClusterInString(line, state)
		if cluster == "\t" {
			// Round up to the next tabstop.
			column = ((column-1)/TabstopWidth+1)*TabstopWidth + 1
			continue
		}
		column += width
	}

	return Location{
		Point:  point,
		Line:   int(point.Row) + 1,
		Column: column,
	}
}

func lineAt(text string, row int) string {
	for ; row > 0; row-- {
		_, rest, found := strings.Cut(text, "\n")
		if !found {
			return ""
		}
		text = rest
	}
	line, _, _ := strings.Cut(text, "\n")
	return line
}
