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

// Package stack implements the parser's multi-version stack.
//
// Each version is one candidate derivation: a sequence of (automaton state,
// subtree) entries. Versions fork when the action table permits more than
// one action and during error recovery, share their common prefix
// structurally, and merge back when their heads coincide. Entries are
// refcounted nodes in a persistent chain, so forking is O(1).
package stack

import (
	"fmt"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/subtree"
	"github.com/sapling-lang/sapling/syntax"
)

// Version identifies one live stack version. Versions are dense indices;
// removing a version renumbers those above it, so callers that remove
// while iterating must walk from high to low.
type Version int

// Status is the lifecycle state of a version.
type Status uint8

const (
	// Active versions advance under normal parsing transitions.
	Active Status = iota

	// Paused versions hit NoAction and are waiting for error recovery,
	// holding on to the lookahead they could not consume.
	Paused

	// Halted versions are dead; they are skipped until removed.
	Halted
)

// node is one entry in a persistent stack chain. The chain below a node is
// shared between every version forked above it.
type node struct {
	state grammar.StateID
	tree  *subtree.Subtree // nil only in the base node
	prev  *node
	refs  int32

	position  syntax.Length
	errorCost uint32
	nodeCount uint32
}

type head struct {
	node         *node
	status       Status
	lookahead    *subtree.Subtree // held while paused
	lastExternal *subtree.Subtree

	nodeCountAtLastError uint32
}

// Stack is the set of live versions. It is confined to a single parse.
type Stack struct {
	heads []head
	base  *node
	pool  *subtree.Pool
}

// New returns a stack with a single active version in the start state.
func New(pool *subtree.Pool) *Stack {
	base := &node{state: grammar.StartState, refs: 1}
	return &Stack{
		heads: []head{{node: retainNode(base)}},
		base:  base,
		pool:  pool,
	}
}

func retainNode(n *node) *node {
	n.refs++
	return n
}

func (s *Stack) releaseNode(n *node) {
	for n != nil {
		n.refs--
		if n.refs > 0 {
			return
		}
		if n.refs < 0 {
			panic("stack: release of freed node")
		}
		if n.tree != nil {
			s.pool.Release(n.tree)
		}
		n = n.prev
	}
}

// Versions returns the number of versions, including halted ones.
func (s *Stack) Versions() int { return len(s.heads) }

// Status returns the lifecycle state of a version.
func (s *Stack) Status(v Version) Status { return s.heads[v].status }

// State returns the automaton state at the top of a version.
func (s *Stack) State(v Version) grammar.StateID { return s.heads[v].node.state }

// Position returns how far into the input a version has consumed.
func (s *Stack) Position(v Version) syntax.Length { return s.heads[v].node.position }

// NodeCount returns the number of subtree nodes pushed onto a version.
func (s *Stack) NodeCount(v Version) uint32 { return s.heads[v].node.nodeCount }

// ErrorCost returns the accumulated recovery cost of a version. Paused
// versions carry an extra pending-recovery penalty so that versions which
// already recovered compare favorably against ones about to.
func (s *Stack) ErrorCost(v Version) uint32 {
	cost := s.heads[v].node.errorCost
	if s.heads[v].status == Paused {
		cost += subtree.CostPerRecovery
	}
	return cost
}

// Push appends (state, tree) to a version, taking over one reference to
// tree.
func (s *Stack) Push(v Version, state grammar.StateID, tree *subtree.Subtree) {
	h := &s.heads[v]
	h.node = &node{
		state:     state,
		tree:      tree,
		prev:      h.node, // transfer the head's reference to the new node
		refs:      1,
		position:  syntax.Length{Bytes: tree.Span().EndByte, Extent: tree.Span().EndPoint},
		errorCost: h.node.errorCost + tree.ErrorCost(),
		nodeCount: h.node.nodeCount + tree.NodeCount(),
	}
}

// Pop removes entries from the top of a version until count non-extra
// subtrees have been removed, and returns all removed subtrees in input
// order (extras included). The caller receives one reference to each.
//
// Popping more entries than the version holds is an internal invariant
// violation and panics.
func (s *Stack) Pop(v Version, count int) []*subtree.Subtree {
	h := &s.heads[v]

	var popped []*subtree.Subtree
	n := h.node
	remaining := count
	for remaining > 0 {
		if n.tree == nil {
			panic(fmt.Sprintf("stack: version %d: pop of %d entries underflows", v, count))
		}
		popped = append(popped, n.tree.Retain())
		if !n.tree.Extra() {
			remaining--
		}
		n = n.prev
	}

	// Reverse into input order.
	for i, j := 0, len(popped)-1; i < j; i, j = i+1, j-1 {
		popped[i], popped[j] = popped[j], popped[i]
	}

	old := h.node
	h.node = retainNode(n)
	s.releaseNode(old)
	return popped
}

// PopAll removes and returns every entry of a version, in input order.
func (s *Stack) PopAll(v Version) []*subtree.Subtree {
	h := &s.heads[v]

	var popped []*subtree.Subtree
	for n := h.node; n.tree != nil; n = n.prev {
		popped = append(popped, n.tree.Retain())
	}
	for i, j := 0, len(popped)-1; i < j; i, j = i+1, j-1 {
		popped[i], popped[j] = popped[j], popped[i]
	}

	old := h.node
	h.node = retainNode(s.base)
	s.releaseNode(old)
	return popped
}

// Fork copies a version, sharing its whole chain, and returns the new
// version. The copy is active regardless of the original's status.
func (s *Stack) Fork(v Version) Version {
	h := s.heads[v]
	fork := head{
		node:                 retainNode(h.node),
		status:               Active,
		nodeCountAtLastError: h.nodeCountAtLastError,
	}
	if h.lastExternal != nil {
		fork.lastExternal = h.lastExternal.Retain()
	}
	s.heads = append(s.heads, fork)
	return Version(len(s.heads) - 1)
}

// Merge collapses v2 into v1 if both are active with identical head state,
// position, and error cost, and equal external scanner state. On success
// v2 is removed and true is returned.
func (s *Stack) Merge(v1, v2 Version) bool {
	h1, h2 := &s.heads[v1], &s.heads[v2]
	if h1.status != Active || h2.status != Active ||
		h1.node.state != h2.node.state ||
		h1.node.position.Bytes != h2.node.position.Bytes ||
		h1.node.errorCost != h2.node.errorCost ||
		!subtree.ExternalStateEqual(h1.lastExternal, h2.lastExternal) {
		return false
	}
	s.Remove(v2)
	return true
}

// Remove discards a version. Versions above it are renumbered down by one.
func (s *Stack) Remove(v Version) {
	h := &s.heads[v]
	s.releaseNode(h.node)
	if h.lookahead != nil {
		s.pool.Release(h.lookahead)
	}
	if h.lastExternal != nil {
		s.pool.Release(h.lastExternal)
	}
	s.heads = append(s.heads[:v], s.heads[v+1:]...)
}

// Halt marks a version dead without removing it, preserving version
// numbering for the current iteration.
func (s *Stack) Halt(v Version) { s.heads[v].status = Halted }

// Pause suspends a version for error recovery, storing the lookahead it
// could not consume. Takes over one reference to lookahead, which may be
// nil at end of input.
func (s *Stack) Pause(v Version, lookahead *subtree.Subtree) {
	h := &s.heads[v]
	h.status = Paused
	h.lookahead = lookahead
	h.nodeCountAtLastError = h.node.nodeCount
}

// Resume reactivates a paused version and yields back its stored
// lookahead, transferring ownership to the caller.
func (s *Stack) Resume(v Version) *subtree.Subtree {
	h := &s.heads[v]
	if h.status != Paused {
		panic(fmt.Sprintf("stack: resume of non-paused version %d", v))
	}
	lookahead := h.lookahead
	h.lookahead = nil
	h.status = Active
	return lookahead
}

// Lookahead returns a paused version's stored lookahead without resuming.
func (s *Stack) Lookahead(v Version) *subtree.Subtree { return s.heads[v].lookahead }

// LastExternal returns the most recent externally scanned token consumed
// by a version, which carries the scanner state to restore.
func (s *Stack) LastExternal(v Version) *subtree.Subtree { return s.heads[v].lastExternal }

// SetLastExternal records tok as a version's external scanner context,
// retaining it.
func (s *Stack) SetLastExternal(v Version, tok *subtree.Subtree) {
	h := &s.heads[v]
	if tok != nil {
		tok.Retain()
	}
	if h.lastExternal != nil {
		s.pool.Release(h.lastExternal)
	}
	h.lastExternal = tok
}

// NodeCountSinceError returns how many subtree nodes a version has pushed
// since its last recovery, a measure of progress used to gate repeated
// repairs.
func (s *Stack) NodeCountSinceError(v Version) uint32 {
	h := &s.heads[v]
	if h.node.nodeCount < h.nodeCountAtLastError {
		h.nodeCountAtLastError = h.node.nodeCount
	}
	return h.node.nodeCount - h.nodeCountAtLastError
}

// Release frees every version. The stack must not be used afterwards.
func (s *Stack) Release() {
	for v := Version(len(s.heads)) - 1; v >= 0; v-- {
		s.Remove(v)
	}
	s.releaseNode(s.base)
	s.base = nil
}
