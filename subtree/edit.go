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

	"github.com/sapling-lang/sapling/syntax"
)

// Edit produces the adjusted variant of s under a single text replacement.
//
// Nodes ending strictly before the edited region are shared untouched.
// Nodes starting at or after the old end of the region get a respanned copy,
// shifted by the edit's delta. Nodes overlapping the region are marked as
// changed so the reuse engine re-derives them; their spans are clamped to
// stay monotone, and internal spans are recomputed from the adjusted
// children so the aggregate invariant holds.
//
// Edit never mutates s. The returned node carries its own reference;
// the caller still owns its reference to s.
func (p *Pool) Edit(s *Subtree, e syntax.Edit) *Subtree {
	switch {
	case s.span.EndByte < e.StartByte:
		// Entirely before the edit.
		return s.Retain()

	case s.span.StartByte > e.OldEndByte,
		s.span.StartByte == e.OldEndByte && e.OldEndByte > e.StartByte:
		// Entirely after the edit: pure shift. An insertion (OldEnd ==
		// Start) at exactly the node's start still dirties the node, since
		// the new text may fuse with its first token.
		return p.shift(s, e)
	}
	return p.rewrite(s, e)
}

// shift deep-copies s with every span displaced by the edit's delta.
func (p *Pool) shift(s *Subtree, e syntax.Edit) *Subtree {
	out := p.get()
	*out = *s
	atomic.StoreInt32(&out.refs, 1)
	out.span = s.span.Shift(e.DeltaBytes(), e.OldEndPoint, e.NewEndPoint)
	if s.children != nil {
		out.children = make([]*Subtree, len(s.children))
		for i, child := range s.children {
			out.children[i] = p.shift(child, e)
		}
	}
	if s.externalState != nil {
		out.externalState = append([]byte(nil), s.externalState...)
	}
	return out
}

// rewrite copies a node overlapping the edited region, marking it changed.
func (p *Pool) rewrite(s *Subtree, e syntax.Edit) *Subtree {
	out := p.get()
	*out = *s
	atomic.StoreInt32(&out.refs, 1)
	out.hasChanges = true
	if s.externalState != nil {
		out.externalState = append([]byte(nil), s.externalState...)
	}

	if s.children == nil {
		out.span = clampSpan(s.span, e)
		return out
	}

	out.children = make([]*Subtree, len(s.children))
	for i, child := range s.children {
		out.children[i] = p.Edit(child, e)
	}
	if len(out.children) == 0 {
		out.span = clampSpan(s.span, e)
		return out
	}

	// Recompute the aggregate span from the adjusted children.
	out.span = out.children[0].span
	for _, child := range out.children[1:] {
		out.span = out.span.Union(child.span)
	}
	return out
}

// clampSpan adjusts the span of a leaf (or empty node) overlapping the
// edited region. The result is approximate; the node is changed and will be
// re-derived before it appears in a new tree.
func clampSpan(span syntax.Span, e syntax.Edit) syntax.Span {
	delta := e.DeltaBytes()

	if span.StartByte > e.StartByte {
		if span.StartByte >= e.OldEndByte {
			span.StartByte = uint32(int32(span.StartByte) + delta)
			span.StartPoint = e.NewEndPoint.Add(span.StartPoint.Sub(e.OldEndPoint))
		} else {
			span.StartByte = min(span.StartByte, e.NewEndByte)
			span.StartPoint = e.NewEndPoint
		}
	}
	if span.EndByte >= e.OldEndByte {
		span.EndByte = uint32(int32(span.EndByte) + delta)
		span.EndPoint = e.NewEndPoint.Add(span.EndPoint.Sub(e.OldEndPoint))
	} else {
		span.EndByte = max(e.NewEndByte, span.StartByte)
		span.EndPoint = e.NewEndPoint
	}
	if span.EndByte < span.StartByte {
		span.EndByte = span.StartByte
		span.EndPoint = span.StartPoint
	}
	return span
}
