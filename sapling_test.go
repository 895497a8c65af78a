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

package sapling_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapling-lang/sapling"
	"github.com/sapling-lang/sapling/internal/corpus"
	"github.com/sapling-lang/sapling/internal/grammartest"
	"github.com/sapling-lang/sapling/syntax"
)

func newParser(t *testing.T) *sapling.Parser {
	t.Helper()
	return &sapling.Parser{Grammar: grammartest.Parens(t)}
}

func mustParse(t *testing.T, p *sapling.Parser, text string, old *sapling.Tree) *sapling.Tree {
	t.Helper()
	tree, err := p.Parse(context.Background(), []byte(text), old)
	require.NoError(t, err)
	t.Cleanup(tree.Release)
	return tree
}

// flatNode is the comparable shape of one tree node.
type flatNode struct {
	Kind string
	Span syntax.Span
}

func flatten(n sapling.Node, out []flatNode) []flatNode {
	out = append(out, flatNode{Kind: n.Kind(), Span: n.Span()})
	for i := 0; i < n.ChildCount(); i++ {
		out = flatten(n.Child(i), out)
	}
	return out
}

func TestParseAndTraverse(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	tree := mustParse(t, p, "(())", nil)

	assert.False(t, tree.HasError())
	assert.False(t, tree.Incomplete())
	assert.Equal(t, uint32(4), tree.Len())

	root := tree.Root()
	assert.True(t, root.Valid())
	assert.Equal(t, "document", root.Kind())

	require.Equal(t, 1, root.ChildCount())
	elems := root.Child(0).Child(0)
	assert.Equal(t, "element", elems.Kind())
	assert.Equal(t, "[0, 4)", elems.Span().String())
	assert.Equal(t, "lparen", elems.Child(0).Kind())
	assert.True(t, elems.Child(0).IsLeaf())
}

func TestParseWithoutGrammar(t *testing.T) {
	t.Parallel()

	var p sapling.Parser
	_, err := p.Parse(context.Background(), []byte("()"), nil)
	assert.ErrorIs(t, err, sapling.ErrNoGrammar)
}

func TestErrorTree(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	tree := mustParse(t, p, "(()", nil)

	assert.True(t, tree.HasError())
	assert.Equal(t, uint32(3), tree.Len())

	// Exactly one missing-token repair.
	missing := 0
	var walk func(n sapling.Node)
	walk = func(n sapling.Node) {
		if n.IsMissing() {
			missing++
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.Root())
	assert.Equal(t, 1, missing)
}

func TestEditThenReparseMatchesScratch(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	oldText := "(())()"
	newText := "(()())()" // "()" inserted at byte 3

	oldTree := mustParse(t, p, oldText, nil)
	adjusted, err := oldTree.Edit(syntax.Edit{
		StartByte: 3, OldEndByte: 3, NewEndByte: 5,
		StartPoint:  syntax.Point{Row: 0, Column: 3},
		OldEndPoint: syntax.Point{Row: 0, Column: 3},
		NewEndPoint: syntax.Point{Row: 0, Column: 5},
	})
	require.NoError(t, err)
	t.Cleanup(adjusted.Release)

	incremental := mustParse(t, p, newText, adjusted)
	scratch := mustParse(t, p, newText, nil)

	diff := cmp.Diff(
		flatten(scratch.Root(), nil),
		flatten(incremental.Root(), nil),
	)
	assert.Empty(t, diff)
	assert.Equal(t, scratch.String(), incremental.String())
}

func TestEditRejectsBackwardsRanges(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	tree := mustParse(t, p, "()", nil)

	_, err := tree.Edit(syntax.Edit{StartByte: 2, OldEndByte: 1, NewEndByte: 2})
	assert.Error(t, err)
}

func TestSingleByteEditReusesSiblings(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	oldText := strings.Repeat("()", 600)
	mid := uint32(len(oldText) / 2)
	newText := oldText[:mid] + " " + oldText[mid:]

	oldTree := mustParse(t, p, oldText, nil)
	require.False(t, oldTree.HasError())

	adjusted, err := oldTree.Edit(syntax.Edit{
		StartByte: mid, OldEndByte: mid, NewEndByte: mid + 1,
		StartPoint:  syntax.Point{Row: 0, Column: mid},
		OldEndPoint: syntax.Point{Row: 0, Column: mid},
		NewEndPoint: syntax.Point{Row: 0, Column: mid + 1},
	})
	require.NoError(t, err)
	t.Cleanup(adjusted.Release)

	incremental := mustParse(t, p, newText, adjusted)
	require.False(t, incremental.HasError())

	// The unaffected top-level siblings on both sides of the edit come
	// back wholesale.
	assert.GreaterOrEqual(t, incremental.ReusedNodes(), 100)

	scratch := mustParse(t, p, newText, nil)
	assert.Empty(t, cmp.Diff(
		flatten(scratch.Root(), nil),
		flatten(incremental.Root(), nil),
	))
}

func TestChainedEdits(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	tree := mustParse(t, p, "()()", nil)

	// Two inserts applied in ascending original byte order:
	// "()()" -> "(())()" -> "(()) ()".
	first, err := tree.Edit(syntax.Edit{
		StartByte: 1, OldEndByte: 1, NewEndByte: 3,
		StartPoint:  syntax.Point{Row: 0, Column: 1},
		OldEndPoint: syntax.Point{Row: 0, Column: 1},
		NewEndPoint: syntax.Point{Row: 0, Column: 3},
	})
	require.NoError(t, err)
	t.Cleanup(first.Release)

	second, err := first.Edit(syntax.Edit{
		StartByte: 4, OldEndByte: 4, NewEndByte: 5,
		StartPoint:  syntax.Point{Row: 0, Column: 4},
		OldEndPoint: syntax.Point{Row: 0, Column: 4},
		NewEndPoint: syntax.Point{Row: 0, Column: 5},
	})
	require.NoError(t, err)
	t.Cleanup(second.Release)

	newText := "(()) ()"
	incremental := mustParse(t, p, newText, second)
	scratch := mustParse(t, p, newText, nil)
	assert.Empty(t, cmp.Diff(
		flatten(scratch.Root(), nil),
		flatten(incremental.Root(), nil),
	))
}

func TestChangedRanges(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	before := mustParse(t, p, "()()", nil)
	after := mustParse(t, p, "() ()", nil)

	ranges := after.ChangedRanges(before)
	require.Len(t, ranges, 1)
	assert.Equal(t, uint32(2), ranges[0].StartByte)
	assert.Equal(t, uint32(5), ranges[0].EndByte)

	// Identical trees report no changes.
	again := mustParse(t, p, "()()", nil)
	assert.Nil(t, again.ChangedRanges(before))
}

func TestWriteDot(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	tree := mustParse(t, p, "()", nil)

	var buf strings.Builder
	require.NoError(t, tree.WriteDot(&buf))
	out := buf.String()
	assert.Contains(t, out, "digraph tree {")
	assert.Contains(t, out, "document")
	assert.Contains(t, out, "->")
}

func TestCancelledParse(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newParser(t)
	tree, err := p.Parse(ctx, []byte("()"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	if tree != nil {
		assert.True(t, tree.Incomplete())
		tree.Release()
	}
}

func TestParseAll(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	texts := [][]byte{
		[]byte("()"),
		[]byte("(())"),
		[]byte("(()"),
		[]byte(""),
	}

	trees, err := sapling.ParseAll(context.Background(), p, texts, 2)
	require.NoError(t, err)
	require.Len(t, trees, len(texts))

	assert.False(t, trees[0].HasError())
	assert.False(t, trees[1].HasError())
	assert.True(t, trees[2].HasError())
	assert.False(t, trees[3].HasError())
	for _, tree := range trees {
		tree.Release()
	}
}

func TestParseAllPropagatesFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newParser(t)
	_, err := sapling.ParseAll(ctx, p, [][]byte{[]byte("()")}, 1)
	assert.Error(t, err)
}

func TestCorpus(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	corpus.Corpus{
		Root:      "testdata/corpus",
		Refresh:   "SAPLING_REFRESH",
		Extension: "src",
		Outputs:   []corpus.Output{{Extension: "tree"}},
		Test: func(t *testing.T, path, text string) []string {
			tree, err := p.Parse(context.Background(), []byte(text), nil)
			require.NoError(t, err)
			defer tree.Release()
			return []string{tree.String() + "\n"}
		},
	}.Run(t)
}
