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

// Package subtree implements the persistent tree nodes the parser builds.
//
// A [Subtree] is immutable once constructed and shared by reference:
// multiple parents, stack versions, and trees may hold the same node at
// once. Lifetime is governed by reference counts. Construction is strictly
// bottom-up, so the node graph is acyclic and plain counting suffices.
//
// Aggregates (span, error counts, external-state presence) are pure
// functions of a node's children, computed once at construction. The only
// sanctioned way to produce a variant of an existing node is the
// copy-on-write respan performed by [Pool.Edit].
package subtree

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/syntax"
)

// Flags carries the lexical properties of a node.
type Flags uint8

const (
	// FlagExtra marks trivia nodes (whitespace, comments) and error
	// wrappers, which are excluded from production child counts.
	FlagExtra Flags = 1 << iota

	// FlagMissing marks a zero-width token inserted during error recovery.
	FlagMissing

	// FlagKeywordCandidate marks tokens eligible for keyword extraction.
	FlagKeywordCandidate
)

// Subtree is one node of a concrete syntax tree: either a leaf holding a
// single token, or an internal node holding an ordered child sequence.
type Subtree struct {
	// refs is accessed atomically. It is a plain int32, not atomic.Int32,
	// so the pool can reset and copy nodes by struct assignment.
	refs int32

	symbol   grammar.Symbol
	span     syntax.Span
	flags    Flags
	children []*Subtree

	// Aggregates, fixed at construction.
	errorCount  uint32
	errorCost   uint32
	nodeCount   uint32
	hasChanges  bool
	hasExternal bool

	// firstLeafState is the automaton state under which this node's first
	// leaf was shifted. The reuse engine refuses a candidate whose recorded
	// state differs from the state at the reuse point.
	firstLeafState grammar.StateID

	// externalState is the opaque scanner snapshot captured after an
	// externally scanned token. Nil for all other nodes.
	externalState []byte
}

// Symbol returns the node's grammar symbol.
func (s *Subtree) Symbol() grammar.Symbol { return s.symbol }

// Span returns the node's byte and point range.
func (s *Subtree) Span() syntax.Span { return s.span }

// Children returns the node's ordered children. The returned slice must not
// be mutated.
func (s *Subtree) Children() []*Subtree { return s.children }

// Leaf reports whether the node holds a single token.
func (s *Subtree) Leaf() bool { return s.children == nil }

// Extra reports whether the node is trivia.
func (s *Subtree) Extra() bool { return s.flags&FlagExtra != 0 }

// Missing reports whether the node was fabricated during recovery.
func (s *Subtree) Missing() bool { return s.flags&FlagMissing != 0 }

// IsError reports whether the node itself represents an error.
func (s *Subtree) IsError() bool { return s.symbol == grammar.Error || s.Missing() }

// ErrorCount returns the number of error nodes in this subtree, including
// itself.
func (s *Subtree) ErrorCount() uint32 { return s.errorCount }

// ErrorCost returns the recovery cost accumulated in this subtree. Lower is
// better; the parser orders stack versions by it.
func (s *Subtree) ErrorCost() uint32 { return s.errorCost }

// NodeCount returns the total number of nodes in this subtree.
func (s *Subtree) NodeCount() uint32 { return s.nodeCount }

// HasChanges reports whether an edit touched this subtree's content, which
// disqualifies it from reuse.
func (s *Subtree) HasChanges() bool { return s.hasChanges }

// HasExternalState reports whether this subtree or any descendant carries
// external scanner state, which bounds incremental invalidation.
func (s *Subtree) HasExternalState() bool { return s.hasExternal }

// FirstLeafState returns the automaton state recorded at this subtree's
// first leaf.
func (s *Subtree) FirstLeafState() grammar.StateID { return s.firstLeafState }

// ExternalState returns the opaque scanner snapshot for an externally
// scanned token, or nil.
func (s *Subtree) ExternalState() []byte { return s.externalState }

// Refs returns the current reference count. Intended for tests and
// invariant checks.
func (s *Subtree) Refs() int32 { return atomic.LoadInt32(&s.refs) }

// Retain acquires an additional reference and returns s for chaining.
func (s *Subtree) Retain() *Subtree {
	if atomic.AddInt32(&s.refs, 1) <= 1 {
		panic("subtree: retain of released node")
	}
	return s
}

// ExternalStateEqual compares the scanner snapshots of two nodes, either of
// which may be nil.
func ExternalStateEqual(a, b *Subtree) bool {
	var sa, sb []byte
	if a != nil {
		sa = a.externalState
	}
	if b != nil {
		sb = b.externalState
	}
	return bytes.Equal(sa, sb)
}

// String renders the subtree as an s-expression of symbol indices. Use
// [Format] to render with grammar names.
func (s *Subtree) String() string {
	var b strings.Builder
	s.format(&b, nil)
	return b.String()
}

// Format renders the subtree as an s-expression using g's symbol names.
func (s *Subtree) Format(g *grammar.Grammar) string {
	var b strings.Builder
	s.format(&b, g)
	return b.String()
}

func (s *Subtree) format(b *strings.Builder, g *grammar.Grammar) {
	name := fmt.Sprintf("%d", s.symbol)
	if g != nil {
		name = g.Symbol(s.symbol).Name
	}
	if s.Leaf() {
		switch {
		case s.Missing():
			fmt.Fprintf(b, "(MISSING %s)", name)
		case s.symbol == grammar.Error:
			fmt.Fprintf(b, "(ERROR %v)", s.span)
		default:
			b.WriteString(name)
		}
		return
	}
	fmt.Fprintf(b, "(%s", name)
	for _, child := range s.children {
		b.WriteByte(' ')
		child.format(b, g)
	}
	b.WriteByte(')')
}
