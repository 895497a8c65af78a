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

package subtree

import (
	"sync/atomic"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/syntax"
)

// maxFreeNodes bounds how many released nodes a pool keeps for reuse.
const maxFreeNodes = 64

// Pool constructs and recycles [Subtree] nodes. A pool belongs to a single
// parse and must not be shared between goroutines; the nodes it produces
// may be, since their reference counts are atomic.
type Pool struct {
	free []*Subtree
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{free: make([]*Subtree, 0, maxFreeNodes)}
}

func (p *Pool) get() *Subtree {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		return s
	}
	return new(Subtree)
}

// NewLeaf constructs a token leaf. state is the automaton state under which
// the token was shifted, recorded for the reuse-context check.
func (p *Pool) NewLeaf(sym grammar.Symbol, span syntax.Span, flags Flags, state grammar.StateID) *Subtree {
	s := p.get()
	*s = Subtree{
		symbol:         sym,
		span:           span,
		flags:          flags,
		nodeCount:      1,
		firstLeafState: state,
	}
	if sym == grammar.Error {
		length := span.Len()
		s.errorCount = 1
		s.errorCost = skipCost(length.Bytes, length.Extent.Row)
	}
	atomic.StoreInt32(&s.refs, 1)
	return s
}

// NewExternalLeaf constructs a leaf for an externally scanned token,
// capturing the scanner's serialized state after the match.
func (p *Pool) NewExternalLeaf(sym grammar.Symbol, span syntax.Span, flags Flags, state grammar.StateID, scannerState []byte) *Subtree {
	s := p.NewLeaf(sym, span, flags, state)
	s.externalState = append([]byte(nil), scannerState...)
	s.hasExternal = true
	return s
}

// NewMissing constructs the zero-width leaf recovery inserts in place of a
// token the table required but the input lacks.
func (p *Pool) NewMissing(sym grammar.Symbol, at syntax.Span, state grammar.StateID) *Subtree {
	s := p.get()
	*s = Subtree{
		symbol:         sym,
		span:           syntax.Span{StartByte: at.StartByte, EndByte: at.StartByte, StartPoint: at.StartPoint, EndPoint: at.StartPoint},
		flags:          FlagMissing,
		nodeCount:      1,
		errorCount:     1,
		errorCost:      CostPerMissingTree + CostPerRecovery,
		firstLeafState: state,
	}
	atomic.StoreInt32(&s.refs, 1)
	return s
}

// NewInternal constructs an internal node, taking over one reference to
// each child. Aggregates are computed bottom-up; the node's span is the
// union of its children's spans.
//
// children must be non-empty; epsilon productions go through [Pool.NewEmpty].
func (p *Pool) NewInternal(sym grammar.Symbol, children []*Subtree) *Subtree {
	s := p.get()
	*s = Subtree{
		symbol:         sym,
		span:           children[0].span,
		children:       children,
		nodeCount:      1,
		firstLeafState: children[0].firstLeafState,
	}

	allExtra := true
	for _, child := range children {
		s.span = s.span.Union(child.span)
		s.errorCount += child.errorCount
		s.errorCost += child.errorCost
		s.nodeCount += child.nodeCount
		s.hasChanges = s.hasChanges || child.hasChanges
		s.hasExternal = s.hasExternal || child.hasExternal
		allExtra = allExtra && child.Extra()
	}
	if allExtra {
		s.flags |= FlagExtra
	}
	if sym == grammar.Error {
		length := s.span.Len()
		s.errorCount++
		s.errorCost += CostPerRecovery + CostPerSkippedTree*uint32(len(children)) +
			CostPerSkippedChar*length.Bytes + CostPerSkippedLine*length.Extent.Row
		s.flags |= FlagExtra
	}

	atomic.StoreInt32(&s.refs, 1)
	return s
}

// NewEmpty constructs a childless internal node for an epsilon reduction,
// positioned at the parser's current location.
func (p *Pool) NewEmpty(sym grammar.Symbol, at syntax.Span, state grammar.StateID) *Subtree {
	s := p.get()
	*s = Subtree{
		symbol:         sym,
		span:           syntax.Span{StartByte: at.StartByte, EndByte: at.StartByte, StartPoint: at.StartPoint, EndPoint: at.StartPoint},
		children:       []*Subtree{},
		nodeCount:      1,
		firstLeafState: state,
	}
	atomic.StoreInt32(&s.refs, 1)
	return s
}

// Release drops one reference to s, recursively releasing its children and
// recycling the node once the last holder lets go.
func (p *Pool) Release(s *Subtree) {
	if s == nil {
		return
	}
	refs := atomic.AddInt32(&s.refs, -1)
	switch {
	case refs > 0:
		return
	case refs < 0:
		panic("subtree: release of already-released node")
	}

	for _, child := range s.children {
		p.Release(child)
	}
	*s = Subtree{}
	if len(p.free) < maxFreeNodes {
		p.free = append(p.free, s)
	}
}
