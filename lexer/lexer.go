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

// Package lexer converts a position in a source buffer into tokens, driven
// by the grammar's lexical state machine and optionally by an external
// scanner for context-sensitive tokens.
package lexer

import (
	"bytes"
	"unicode/utf8"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/syntax"
)

// Kind discriminates the variants of [Result].
type Kind uint8

const (
	// KindToken means a token was recognized.
	KindToken Kind = iota

	// KindSkipped means the machine consumed input without reaching any
	// acceptable token; the skipped span is reported so the caller can
	// discard it and retry.
	KindSkipped

	// KindEOF means the position is at end of input.
	KindEOF

	// KindError means no transition applies at the position at all.
	KindError
)

// Token is one recognized lexical unit.
type Token struct {
	Symbol grammar.Symbol
	Span   syntax.Span

	// Extra is set for trivia symbols.
	Extra bool

	// ScannerState is the external scanner's serialized state after an
	// externally scanned match; nil otherwise.
	ScannerState []byte
	External     bool
}

// Result is the outcome of one [Lexer.Next] call.
type Result struct {
	Kind    Kind
	Token   Token       // valid when Kind == KindToken
	Skipped syntax.Span // valid when Kind == KindSkipped
	Pos     syntax.Length
}

// Lexer scans tokens out of an immutable source buffer. A lexer belongs to
// one parse; forked stack versions share it by resetting its position.
type Lexer struct {
	grammar *grammar.Grammar
	text    []byte
	scanner ExternalScanner
	pos     syntax.Length
}

// New returns a lexer over text. scanner may be nil if the grammar declares
// no external symbols.
func New(g *grammar.Grammar, text []byte, scanner ExternalScanner) *Lexer {
	return &Lexer{grammar: g, text: text, scanner: scanner}
}

// Pos returns the current position.
func (l *Lexer) Pos() syntax.Length { return l.pos }

// Reset moves the lexer to an arbitrary position. Stack versions at
// different positions take turns on one lexer by resetting it.
func (l *Lexer) Reset(pos syntax.Length) { l.pos = pos }

// Next scans the next token acceptable in the current automaton state.
//
// valid restricts which symbols may be produced; extras are always
// permitted. externalState is the opaque scanner snapshot associated with
// the requesting stack version, restored before delegating to the external
// scanner.
//
// Ties between tokens matched at the same position are broken by longest
// span, then declared priority, then declaration order.
func (l *Lexer) Next(valid grammar.SymbolSet, externalState []byte) Result {
	if l.scanner != nil && l.grammar.HasExternalTokens() {
		if result, ok := l.external(valid, externalState); ok {
			return result
		}
	}

	if l.pos.Bytes >= uint32(len(l.text)) {
		return Result{Kind: KindEOF, Pos: l.pos}
	}

	start := l.pos
	cursor := start
	state := int32(0)

	var best Token
	found := false

	for {
		if cursor.Bytes >= uint32(len(l.text)) {
			break
		}
		r, size := utf8.DecodeRune(l.text[cursor.Bytes:])
		next := l.grammar.Lex.Step(state, r)
		if next < 0 {
			break
		}
		state = next
		cursor = advance(cursor, r, size)

		if sym, ok := l.accept(state, valid); ok {
			best = Token{
				Symbol: sym,
				Span:   spanBetween(start, cursor),
				Extra:  l.grammar.Symbol(sym).Extra,
			}
			found = true
		}
	}

	switch {
	case found:
		l.pos = syntax.Length{Bytes: best.Span.EndByte, Extent: best.Span.EndPoint}
		return Result{Kind: KindToken, Token: best, Pos: start}
	case cursor.Bytes > start.Bytes:
		l.pos = cursor
		return Result{Kind: KindSkipped, Skipped: spanBetween(start, cursor), Pos: start}
	default:
		return Result{Kind: KindError, Pos: start}
	}
}

// accept resolves the best acceptable symbol in a lexical state, honoring
// the priority and declaration-order tie-breaks.
func (l *Lexer) accept(state int32, valid grammar.SymbolSet) (grammar.Symbol, bool) {
	best := grammar.NoSymbol
	bestPriority := 0
	for _, sym := range l.grammar.Lex.States[state].Accepts {
		info := l.grammar.Symbol(sym)
		if !valid.Has(sym) && !info.Extra {
			continue
		}
		if best == grammar.NoSymbol || info.Priority > bestPriority ||
			(info.Priority == bestPriority && sym < best) {
			best = sym
			bestPriority = info.Priority
		}
	}
	return best, best != grammar.NoSymbol
}

// external delegates to the caller-supplied scanner for any valid external
// symbols. The scanner's result is trusted only if it names a symbol that
// is both external and currently valid.
func (l *Lexer) external(valid grammar.SymbolSet, state []byte) (Result, bool) {
	any := false
	for sym := range valid.All() {
		if l.grammar.Symbol(sym).External {
			any = true
			break
		}
	}
	if !any {
		return Result{}, false
	}

	cursor := &Cursor{text: l.text, start: l.pos, pos: l.pos, marked: l.pos}
	sym, newState, ok := l.scanner.Scan(cursor, valid, state)
	if !ok || !l.grammar.Symbol(sym).External || !valid.Has(sym) {
		return Result{}, false
	}

	end := cursor.marked
	if end.Bytes == l.pos.Bytes && bytes.Equal(newState, state) {
		// A zero-width token with unchanged scanner state makes no
		// progress; accepting it would shift forever. Treat as no match.
		return Result{}, false
	}
	token := Token{
		Symbol:       sym,
		Span:         spanBetween(l.pos, end),
		Extra:        l.grammar.Symbol(sym).Extra,
		ScannerState: newState,
		External:     true,
	}
	start := l.pos
	l.pos = end
	return Result{Kind: KindToken, Token: token, Pos: start}, true
}

func advance(pos syntax.Length, r rune, size int) syntax.Length {
	pos.Bytes += uint32(size)
	if r == '\n' {
		pos.Extent.Row++
		pos.Extent.Column = 0
	} else {
		pos.Extent.Column += uint32(size)
	}
	return pos
}

func spanBetween(start, end syntax.Length) syntax.Span {
	return syntax.Span{
		StartByte:  start.Bytes,
		EndByte:    end.Bytes,
		StartPoint: start.Extent,
		EndPoint:   end.Extent,
	}
}
