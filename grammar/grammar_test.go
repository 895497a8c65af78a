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

package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/internal/grammartest"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	g, err := grammar.Load([]byte(grammartest.ParensYAML))
	require.NoError(t, err)

	assert.Equal(t, "parens", g.Name)
	assert.Len(t, g.Symbols, 7)
	assert.Equal(t, "document", g.Symbol(g.StartSymbol).Name)
	assert.True(t, g.Symbol(1).Terminal)
	assert.True(t, g.Symbol(3).Extra)
	assert.False(t, g.HasExternalTokens())

	// Builtin sentinels resolve without being declared.
	assert.Equal(t, "ERROR", g.Symbol(grammar.Error).Name)
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown start symbol",
			doc: `
name: broken
start: nope
symbols: [{name: end, terminal: true}, {name: doc}]
states: [{}, {}]
`,
		},
		{
			name: "duplicate symbol",
			doc: `
name: broken
start: doc
symbols: [{name: end, terminal: true}, {name: doc}, {name: doc}]
states: [{}, {}]
`,
		},
		{
			name: "terminal start symbol",
			doc: `
name: broken
start: end
symbols: [{name: end, terminal: true}, {name: doc}]
states: [{}, {}]
`,
		},
		{
			name: "shift to unknown state",
			doc: `
name: broken
start: doc
symbols: [{name: end, terminal: true}, {name: tok, terminal: true}, {name: doc}]
states:
  - {}
  - actions: {tok: ["shift 99"]}
`,
		},
		{
			name: "reduce to terminal",
			doc: `
name: broken
start: doc
symbols: [{name: end, terminal: true}, {name: tok, terminal: true}, {name: doc}]
states:
  - {}
  - actions: {end: ["reduce tok 1"]}
`,
		},
		{
			name: "shift on end of input",
			doc: `
name: broken
start: doc
symbols: [{name: end, terminal: true}, {name: doc}]
states:
  - {}
  - actions: {end: ["shift 1"]}
`,
		},
		{
			name: "unknown action verb",
			doc: `
name: broken
start: doc
symbols: [{name: end, terminal: true}, {name: doc}]
states:
  - {}
  - actions: {end: ["jump 3"]}
`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := grammar.Load([]byte(test.doc))
			assert.Error(t, err)
		})
	}
}

func TestActionsAndGoto(t *testing.T) {
	t.Parallel()

	g := grammartest.Parens(t)

	actions := g.Actions(grammar.StartState, 1) // lparen
	require.Len(t, actions, 1)
	assert.Equal(t, grammar.ActionShift, actions[0].Type)
	assert.Equal(t, grammar.StateID(3), actions[0].State)

	next, ok := g.GotoState(grammar.StartState, 6) // element
	require.True(t, ok)
	assert.Equal(t, grammar.StateID(4), next)

	_, ok = g.GotoState(grammar.StartState, 1)
	assert.False(t, ok)

	// Out-of-range states are NoAction, not a panic.
	assert.Empty(t, g.Actions(grammar.StateID(1000), 1))
}

func TestValidSymbols(t *testing.T) {
	t.Parallel()

	g := grammartest.Parens(t)

	valid := g.ValidSymbols(grammar.StateID(5)) // only rparen shiftable
	assert.True(t, valid.Has(2))
	assert.False(t, valid.Has(1))

	// Extras are always valid.
	assert.True(t, valid.Has(3))
}

func TestSymbolSetEqual(t *testing.T) {
	t.Parallel()

	a := grammar.NewSymbolSet(70)
	b := grammar.NewSymbolSet(70)
	assert.True(t, a.Equal(b))

	a.Add(3)
	a.Add(68)
	assert.False(t, a.Equal(b))

	b.Add(68)
	b.Add(3)
	assert.True(t, a.Equal(b))

	// Sets sized for different symbol counts compare by members.
	small := grammar.NewSymbolSet(4)
	small.Add(3)
	big := grammar.NewSymbolSet(70)
	big.Add(3)
	assert.True(t, small.Equal(big))
	assert.True(t, big.Equal(small))
	big.Add(68)
	assert.False(t, small.Equal(big))
}

func TestLexStep(t *testing.T) {
	t.Parallel()

	g := grammartest.Parens(t)

	assert.Equal(t, int32(1), g.Lex.Step(0, '('))
	assert.Equal(t, int32(2), g.Lex.Step(0, ')'))
	assert.Equal(t, int32(3), g.Lex.Step(0, ' '))
	assert.Equal(t, int32(3), g.Lex.Step(3, '\n'))
	assert.Negative(t, g.Lex.Step(0, 'x'))
	assert.Negative(t, g.Lex.Step(1, '('))
}
