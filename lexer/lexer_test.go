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

package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/lexer"
	"github.com/sapling-lang/sapling/syntax"
)

// lettersGrammar recognizes "a", "aa", and a space as trivia. An extra
// state 4 consumes "z" without accepting anything, for skip tests.
func lettersGrammar() *grammar.Grammar {
	return &grammar.Grammar{
		Name: "letters",
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Terminal: true},
			{Name: "a", Terminal: true},
			{Name: "aa", Terminal: true},
			{Name: "ws", Terminal: true, Extra: true},
		},
		Lex: grammar.LexTable{States: []grammar.LexState{
			{Transitions: []grammar.LexTransition{
				{Lo: 'a', Hi: 'a', Target: 1},
				{Lo: ' ', Hi: ' ', Target: 3},
				{Lo: 'z', Hi: 'z', Target: 4},
			}},
			{Accepts: []grammar.Symbol{1}, Transitions: []grammar.LexTransition{
				{Lo: 'a', Hi: 'a', Target: 2},
			}},
			{Accepts: []grammar.Symbol{2}},
			{Accepts: []grammar.Symbol{3}, Transitions: []grammar.LexTransition{
				{Lo: ' ', Hi: ' ', Target: 3},
			}},
			{},
		}},
	}
}

func validSet(g *grammar.Grammar, syms ...grammar.Symbol) grammar.SymbolSet {
	set := grammar.NewSymbolSet(len(g.Symbols))
	for _, sym := range syms {
		set.Add(sym)
	}
	return set
}

func TestLongestMatchWins(t *testing.T) {
	t.Parallel()

	g := lettersGrammar()
	lex := lexer.New(g, []byte("aa"), nil)

	res := lex.Next(validSet(g, 1, 2), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, grammar.Symbol(2), res.Token.Symbol)
	assert.Equal(t, uint32(0), res.Token.Span.StartByte)
	assert.Equal(t, uint32(2), res.Token.Span.EndByte)

	res = lex.Next(validSet(g, 1, 2), nil)
	assert.Equal(t, lexer.KindEOF, res.Kind)
}

func TestValidSetRestricts(t *testing.T) {
	t.Parallel()

	g := lettersGrammar()
	lex := lexer.New(g, []byte("aa"), nil)

	// Only the single-letter token is legal here.
	res := lex.Next(validSet(g, 1), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, grammar.Symbol(1), res.Token.Symbol)
	assert.Equal(t, uint32(1), res.Token.Span.EndByte)
}

func TestTriviaAlwaysPermitted(t *testing.T) {
	t.Parallel()

	g := lettersGrammar()
	lex := lexer.New(g, []byte("  a"), nil)

	res := lex.Next(validSet(g, 1), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, grammar.Symbol(3), res.Token.Symbol)
	assert.True(t, res.Token.Extra)
	assert.Equal(t, uint32(2), res.Token.Span.EndByte)
}

func TestPriorityBreaksTies(t *testing.T) {
	t.Parallel()

	// Symbols 1 and 2 both match "x"; 2 has higher priority.
	g := &grammar.Grammar{
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Terminal: true},
			{Name: "first", Terminal: true},
			{Name: "second", Terminal: true, Priority: 1},
		},
		Lex: grammar.LexTable{States: []grammar.LexState{
			{Transitions: []grammar.LexTransition{{Lo: 'x', Hi: 'x', Target: 1}}},
			{Accepts: []grammar.Symbol{1, 2}},
		}},
	}
	lex := lexer.New(g, []byte("x"), nil)

	res := lex.Next(validSet(g, 1, 2), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, grammar.Symbol(2), res.Token.Symbol)
}

func TestDeclarationOrderBreaksTies(t *testing.T) {
	t.Parallel()

	// Equal priority: the earlier-declared symbol wins, regardless of the
	// order the lex state lists them in.
	g := &grammar.Grammar{
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Terminal: true},
			{Name: "first", Terminal: true},
			{Name: "second", Terminal: true},
		},
		Lex: grammar.LexTable{States: []grammar.LexState{
			{Transitions: []grammar.LexTransition{{Lo: 'x', Hi: 'x', Target: 1}}},
			{Accepts: []grammar.Symbol{2, 1}},
		}},
	}
	lex := lexer.New(g, []byte("x"), nil)

	res := lex.Next(validSet(g, 1, 2), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, grammar.Symbol(1), res.Token.Symbol)
}

func TestSkippedBytes(t *testing.T) {
	t.Parallel()

	g := lettersGrammar()
	lex := lexer.New(g, []byte("za"), nil)

	// "z" transitions but never reaches an accepting state.
	res := lex.Next(validSet(g, 1, 2), nil)
	require.Equal(t, lexer.KindSkipped, res.Kind)
	assert.Equal(t, uint32(0), res.Skipped.StartByte)
	assert.Equal(t, uint32(1), res.Skipped.EndByte)

	// The lexer moved past the garbage and can continue.
	res = lex.Next(validSet(g, 1, 2), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, grammar.Symbol(1), res.Token.Symbol)
}

func TestLexicalError(t *testing.T) {
	t.Parallel()

	g := lettersGrammar()
	lex := lexer.New(g, []byte("!"), nil)

	res := lex.Next(validSet(g, 1, 2), nil)
	assert.Equal(t, lexer.KindError, res.Kind)
	assert.Equal(t, syntax.Length{}, res.Pos)
}

func TestPositionTracking(t *testing.T) {
	t.Parallel()

	g := lettersGrammar()

	// Rows advance across newlines; the grammar has no newline token, so
	// feed spaces and reset manually.
	lex := lexer.New(g, []byte(" a"), nil)
	lex.Reset(syntax.Length{Bytes: 1, Extent: syntax.Point{Row: 0, Column: 1}})

	res := lex.Next(validSet(g, 1), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, syntax.Point{Row: 0, Column: 1}, res.Token.Span.StartPoint)
	assert.Equal(t, syntax.Point{Row: 0, Column: 2}, res.Token.Span.EndPoint)
	assert.Equal(t, uint32(2), lex.Pos().Bytes)
}

// spaceWordScanner matches a run of non-space bytes as symbol 1 and counts
// matches in its serialized state.
type spaceWordScanner struct{}

func (spaceWordScanner) Scan(cursor *lexer.Cursor, valid grammar.SymbolSet, state []byte) (grammar.Symbol, []byte, bool) {
	if !valid.Has(1) || cursor.EOF() {
		return 0, nil, false
	}
	for {
		r := cursor.Peek()
		if r < 0 || r == ' ' {
			break
		}
		cursor.Advance()
	}
	if cursor.Byte() == cursor.StartByte() {
		return 0, nil, false
	}
	cursor.MarkEnd()

	var count byte
	if len(state) > 0 {
		count = state[0]
	}
	return 1, []byte{count + 1}, true
}

func TestExternalScanner(t *testing.T) {
	t.Parallel()

	g := &grammar.Grammar{
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Terminal: true},
			{Name: "word", Terminal: true, External: true},
		},
		Lex: grammar.LexTable{States: []grammar.LexState{{}}},
	}
	lex := lexer.New(g, []byte("foo bar"), spaceWordScanner{})

	res := lex.Next(validSet(g, 1), nil)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.True(t, res.Token.External)
	assert.Equal(t, grammar.Symbol(1), res.Token.Symbol)
	assert.Equal(t, uint32(3), res.Token.Span.EndByte)
	assert.Equal(t, []byte{1}, res.Token.ScannerState)

	// The previous snapshot is threaded back in on the next call.
	lex.Reset(syntax.Length{Bytes: 4, Extent: syntax.Point{Row: 0, Column: 4}})
	res = lex.Next(validSet(g, 1), res.Token.ScannerState)
	require.Equal(t, lexer.KindToken, res.Kind)
	assert.Equal(t, []byte{2}, res.Token.ScannerState)
	assert.Equal(t, uint32(7), res.Token.Span.EndByte)
}

// stallScanner claims a match but never marks an end or changes its state.
type stallScanner struct{}

func (stallScanner) Scan(*lexer.Cursor, grammar.SymbolSet, []byte) (grammar.Symbol, []byte, bool) {
	return 1, nil, true
}

func TestExternalScannerMustMakeProgress(t *testing.T) {
	t.Parallel()

	g := &grammar.Grammar{
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Terminal: true},
			{Name: "word", Terminal: true, External: true},
		},
		Lex: grammar.LexTable{States: []grammar.LexState{{}}},
	}
	lex := lexer.New(g, []byte("foo"), stallScanner{})

	// A zero-width match with unchanged scanner state would be shifted
	// forever; it is refused, and with no DFA transitions either the bytes
	// surface as a lexical error.
	res := lex.Next(validSet(g, 1), nil)
	assert.Equal(t, lexer.KindError, res.Kind)
	assert.Zero(t, lex.Pos().Bytes)
}

func TestExternalScannerRefusedWhenInvalid(t *testing.T) {
	t.Parallel()

	g := &grammar.Grammar{
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Terminal: true},
			{Name: "word", Terminal: true, External: true},
		},
		Lex: grammar.LexTable{States: []grammar.LexState{{}}},
	}
	lex := lexer.New(g, []byte("foo"), spaceWordScanner{})

	// No external symbol is valid, so the scanner must not run; the DFA
	// has no transitions either, so this is a lexical error.
	res := lex.Next(validSet(g), nil)
	assert.Equal(t, lexer.KindError, res.Kind)
}
