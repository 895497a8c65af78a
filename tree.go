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

package sapling

import (
	"fmt"
	"io"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/internal/interval"
	"github.com/sapling-lang/sapling/subtree"
	"github.com/sapling-lang/sapling/syntax"
)

// Tree is the result of one parse: an immutable concrete syntax tree.
// Trees are read-only; [Tree.Edit] describes changes against a tree to
// produce a new one, never mutating the original.
type Tree struct {
	g    *grammar.Grammar
	root *subtree.Subtree
	pool *subtree.Pool

	// edited accumulates the byte ranges (post-edit coordinates)
	// invalidated since the tree was parsed. Nil on a fresh parse.
	edited *interval.Set[uint32]

	reused     int
	incomplete bool
}

// Root returns the root node.
func (t *Tree) Root() Node { return Node{tree: t, sub: t.root} }

// HasError reports whether the tree contains any error or missing nodes.
func (t *Tree) HasError() bool { return t.root.ErrorCount() > 0 }

// Len returns the total byte length the tree covers.
func (t *Tree) Len() uint32 { return t.root.Span().EndByte }

// ReusedNodes returns how many subtrees of the previous parse were carried
// over wholesale during an incremental reparse. Zero on a fresh parse.
func (t *Tree) ReusedNodes() int { return t.reused }

// Incomplete reports whether the parse was cancelled and the tree is a
// best-effort partial result.
func (t *Tree) Incomplete() bool { return t.incomplete }

// String renders the tree as an s-expression of symbol names.
func (t *Tree) String() string { return t.root.Format(t.g) }

// Release drops the tree's reference to its nodes. The tree and every Node
// derived from it must not be used afterwards. Release is idempotent.
func (t *Tree) Release() {
	if t.root != nil {
		t.pool.Release(t.root)
		t.root = nil
	}
}

// ChangedRanges compares this tree against the tree of a previous parse of
// the same document and returns the byte ranges whose leaf structure
// differs, in this tree's coordinates. It returns nil when the trees have
// identical leaf sequences.
func (t *Tree) ChangedRanges(old *Tree) []syntax.Span {
	newLeaves := collectLeaves(t.root, nil)
	oldLeaves := collectLeaves(old.root, nil)

	prefix := 0
	for prefix < len(newLeaves) && prefix < len(oldLeaves) &&
		leafEqual(newLeaves[prefix], oldLeaves[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < len(newLeaves)-prefix && suffix < len(oldLeaves)-prefix &&
		leafEqual(newLeaves[len(newLeaves)-1-suffix], oldLeaves[len(oldLeaves)-1-suffix]) {
		suffix++
	}

	if prefix+suffix >= len(newLeaves) && prefix+suffix >= len(oldLeaves) {
		return nil
	}

	if prefix+suffix >= len(newLeaves) {
		// Pure deletion: report the zero-width position of the removal.
		var at syntax.Span
		if prefix > 0 {
			end := newLeaves[prefix-1].Span()
			at = syntax.Span{
				StartByte: end.EndByte, EndByte: end.EndByte,
				StartPoint: end.EndPoint, EndPoint: end.EndPoint,
			}
		}
		return []syntax.Span{at}
	}

	first := newLeaves[prefix].Span()
	last := newLeaves[len(newLeaves)-1-suffix].Span()
	return []syntax.Span{{
		StartByte:  first.StartByte,
		EndByte:    last.EndByte,
		StartPoint: first.StartPoint,
		EndPoint:   last.EndPoint,
	}}
}

func collectLeaves(s *subtree.Subtree, out []*subtree.Subtree) []*subtree.Subtree {
	if s.Leaf() {
		return append(out, s)
	}
	for _, child := range s.Children() {
		out = collectLeaves(child, out)
	}
	return out
}

func leafEqual(a, b *subtree.Subtree) bool {
	return a.Symbol() == b.Symbol() && a.Span() == b.Span()
}

// WriteDot writes the tree as a Graphviz dot graph, for debugging.
func (t *Tree) WriteDot(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph tree {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  node [shape=box];"); err != nil {
		return err
	}
	next := 0
	if _, err := t.writeDotNode(w, t.root, &next); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func (t *Tree) writeDotNode(w io.Writer, s *subtree.Subtree, next *int) (int, error) {
	id := *next
	*next++

	name := t.g.Symbol(s.Symbol()).Name
	label := fmt.Sprintf("%s %v", name, s.Span())
	if s.Missing() {
		label = "MISSING " + label
	}
	if _, err := fmt.Fprintf(w, "  n%d [label=%q];\n", id, label); err != nil {
		return 0, err
	}
	for _, child := range s.Children() {
		childID, err := t.writeDotNode(w, child, next)
		if err != nil {
			return 0, err
		}
		if _, err := fmt.Fprintf(w, "  n%d -> n%d;\n", id, childID); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// Node is a read-only view of one tree node. The zero Node is invalid.
// Nodes are values; they stay valid until the tree is released.
type Node struct {
	tree *Tree
	sub  *subtree.Subtree
}

// Valid reports whether the node refers to a tree node at all.
func (n Node) Valid() bool { return n.sub != nil }

// Symbol returns the node's grammar symbol.
func (n Node) Symbol() grammar.Symbol { return n.sub.Symbol() }

// Kind returns the grammar name of the node's symbol.
func (n Node) Kind() string { return n.tree.g.Symbol(n.sub.Symbol()).Name }

// Span returns the node's byte and point range.
func (n Node) Span() syntax.Span { return n.sub.Span() }

// IsLeaf reports whether the node holds a single token.
func (n Node) IsLeaf() bool { return n.sub.Leaf() }

// IsExtra reports whether the node is trivia.
func (n Node) IsExtra() bool { return n.sub.Extra() }

// IsError reports whether the node itself represents a syntax error.
func (n Node) IsError() bool { return n.sub.IsError() }

// IsMissing reports whether the node was fabricated during error recovery.
func (n Node) IsMissing() bool { return n.sub.Missing() }

// HasError reports whether the node's subtree contains any error nodes.
func (n Node) HasError() bool { return n.sub.ErrorCount() > 0 }

// ChildCount returns the number of children, including trivia.
func (n Node) ChildCount() int { return len(n.sub.Children()) }

// Child returns the i-th child.
func (n Node) Child(i int) Node { return Node{tree: n.tree, sub: n.sub.Children()[i]} }

// String renders the node's subtree as an s-expression of symbol names.
func (n Node) String() string { return n.sub.Format(n.tree.g) }
