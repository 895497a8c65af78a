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

package lexer

import (
	"unicode/utf8"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/syntax"
)

// ExternalScanner recognizes tokens the grammar's tables cannot express,
// such as indentation-sensitive or heredoc-style constructs.
//
// Scanner state is passed in and returned explicitly as an opaque byte
// blob: the engine snapshots it per token and restores it when stack
// versions fork, so a scanner must keep no hidden mutable state between
// calls.
type ExternalScanner interface {
	// Scan attempts to match one token at the cursor's position. valid is
	// the set of symbols the automaton currently permits. On a match, Scan
	// returns the matched symbol and its serialized state after the match;
	// the token ends at the last position passed to [Cursor.MarkEnd].
	Scan(cursor *Cursor, valid grammar.SymbolSet, state []byte) (sym grammar.Symbol, newState []byte, ok bool)
}

// Cursor is the bounded view of the source an external scanner reads
// through. It cannot move before its starting position or past end of
// input, which bounds scanner execution by the remaining input length.
type Cursor struct {
	text   []byte
	start  syntax.Length
	pos    syntax.Length
	marked syntax.Length
}

// Peek returns the rune at the cursor, or -1 at end of input.
func (c *Cursor) Peek() rune {
	if c.pos.Bytes >= uint32(len(c.text)) {
		return -1
	}
	r, _ := utf8.DecodeRune(c.text[c.pos.Bytes:])
	return r
}

// Advance consumes one rune. It is a no-op at end of input.
func (c *Cursor) Advance() {
	if c.pos.Bytes >= uint32(len(c.text)) {
		return
	}
	r, size := utf8.DecodeRune(c.text[c.pos.Bytes:])
	c.pos = advance(c.pos, r, size)
}

// MarkEnd records the current position as the end of the token being
// matched. Lookahead past the marked end is not included in the token.
func (c *Cursor) MarkEnd() {
	c.marked = c.pos
}

// StartByte returns the byte offset the scan started at.
func (c *Cursor) StartByte() uint32 { return c.start.Bytes }

// Byte returns the cursor's current byte offset.
func (c *Cursor) Byte() uint32 { return c.pos.Bytes }

// Point returns the cursor's current (row, column) position.
func (c *Cursor) Point() syntax.Point { return c.pos.Extent }

// EOF reports whether the cursor is at end of input.
func (c *Cursor) EOF() bool { return c.pos.Bytes >= uint32(len(c.text)) }
