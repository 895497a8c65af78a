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

package parser

import (
	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/internal/interval"
	"github.com/sapling-lang/sapling/subtree"
	"github.com/sapling-lang/sapling/syntax"
)

// reuser navigates the span-adjusted tree of a previous parse, surfacing
// subtrees that can be shifted onto the stack wholesale instead of being
// re-lexed and re-derived.
type reuser struct {
	g      *grammar.Grammar
	root   *subtree.Subtree
	edited *interval.Set[uint32]

	// modes caches per-state valid-symbol sets for the lex-mode check.
	modes map[grammar.StateID]grammar.SymbolSet
}

// candidate returns the largest clean subtree starting exactly at pos that
// the automaton can consume in state, and the state to transition into.
// The returned subtree is borrowed; the caller retains it before pushing.
func (r *reuser) candidate(pos syntax.Length, state grammar.StateID) (*subtree.Subtree, grammar.StateID, bool) {
	return r.find(r.root, pos.Bytes, state)
}

func (r *reuser) find(s *subtree.Subtree, pos uint32, state grammar.StateID) (*subtree.Subtree, grammar.StateID, bool) {
	span := s.Span()
	if span.StartByte > pos || span.EndByte <= pos {
		return nil, 0, false
	}
	if span.StartByte == pos {
		if next, ok := r.usable(s, state); ok {
			return s, next, true
		}
	}
	// Descend into the unique child whose span covers pos.
	for _, child := range s.Children() {
		cs := child.Span()
		if cs.EndByte <= pos {
			continue
		}
		if cs.StartByte > pos {
			break
		}
		return r.find(child, pos, state)
	}
	return nil, 0, false
}

// usable decides whether a subtree may be consumed whole in the given
// automaton state. Edited, erroneous, zero-width, and scanner-state-bearing
// subtrees are refused, as is any subtree whose first token was lexed under
// a different valid-symbol set than the automaton offers now. The recorded
// state rarely matches the current one literally, since reductions fire
// between lexing a token and shifting it; what must match is the lex mode,
// so the token would have come out identical.
func (r *reuser) usable(s *subtree.Subtree, state grammar.StateID) (grammar.StateID, bool) {
	span := s.Span()
	if span.EndByte == span.StartByte ||
		s.HasChanges() || s.ErrorCount() > 0 || s.Missing() || s.HasExternalState() {
		return 0, false
	}
	if !r.lexModeEqual(s.FirstLeafState(), state) {
		return 0, false
	}
	if r.edited != nil && r.edited.Intersects(span.StartByte, span.EndByte) {
		return 0, false
	}

	if s.Extra() {
		// Trivia is consumed without a state change.
		return state, true
	}
	if s.Leaf() {
		for _, action := range r.g.Actions(state, s.Symbol()) {
			if action.Type == grammar.ActionShift {
				return action.State, true
			}
		}
		return 0, false
	}
	return r.g.GotoState(state, s.Symbol())
}

// firstLeaf returns the symbol of the clean leaf starting exactly at pos,
// provided its token would lex identically under the given state's valid
// set. The driver uses it to fire the reductions that token would trigger
// before retrying a candidate.
func (r *reuser) firstLeaf(pos uint32, state grammar.StateID) (grammar.Symbol, bool) {
	s := r.root
	for {
		span := s.Span()
		if span.StartByte > pos || span.EndByte <= pos {
			return grammar.NoSymbol, false
		}
		if s.Leaf() {
			if span.StartByte != pos ||
				s.HasChanges() || s.ErrorCount() > 0 || s.Missing() || s.HasExternalState() ||
				!r.lexModeEqual(s.FirstLeafState(), state) ||
				(r.edited != nil && r.edited.Intersects(span.StartByte, span.EndByte)) {
				return grammar.NoSymbol, false
			}
			return s.Symbol(), true
		}
		var next *subtree.Subtree
		for _, child := range s.Children() {
			cs := child.Span()
			if cs.EndByte <= pos {
				continue
			}
			if cs.StartByte > pos {
				break
			}
			next = child
			break
		}
		if next == nil {
			return grammar.NoSymbol, false
		}
		s = next
	}
}

func (r *reuser) lexModeEqual(a, b grammar.StateID) bool {
	if a == b {
		return true
	}
	return r.validSet(a).Equal(r.validSet(b))
}

func (r *reuser) validSet(state grammar.StateID) grammar.SymbolSet {
	if set, ok := r.modes[state]; ok {
		return set
	}
	if r.modes == nil {
		r.modes = make(map[grammar.StateID]grammar.SymbolSet)
	}
	set := r.g.ValidSymbols(state)
	r.modes[state] = set
	return set
}

// nextStart returns the start of the next clean subtree beginning at or
// after the given byte offset. Resync recovery uses it to bound how much
// input to bridge with an error node.
func (r *reuser) nextStart(after uint32) (uint32, syntax.Point, bool) {
	return r.scanNext(r.root, after)
}

func (r *reuser) scanNext(s *subtree.Subtree, after uint32) (uint32, syntax.Point, bool) {
	span := s.Span()
	if span.EndByte <= after {
		return 0, syntax.Point{}, false
	}
	if span.StartByte >= after && span.EndByte > span.StartByte &&
		!s.HasChanges() && s.ErrorCount() == 0 && !s.HasExternalState() &&
		(r.edited == nil || !r.edited.Intersects(span.StartByte, span.EndByte)) {
		return span.StartByte, span.StartPoint, true
	}
	for _, child := range s.Children() {
		if start, point, ok := r.scanNext(child, after); ok {
			return start, point, true
		}
	}
	return 0, syntax.Point{}, false
}
