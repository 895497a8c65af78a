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

// Package grammartest provides small hand-compiled grammars shared by the
// engine's tests.
package grammartest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sapling-lang/sapling/grammar"
)

// ParensYAML is a compiled grammar for balanced parentheses with
// whitespace trivia:
//
//	document -> elems
//	elems    -> (empty) | element elems
//	element  -> "(" elems ")"
const ParensYAML = `
name: parens
start: document
symbols:
  - {name: end, terminal: true}
  - {name: lparen, terminal: true}
  - {name: rparen, terminal: true}
  - {name: ws, terminal: true, extra: true}
  - {name: document, named: true}
  - {name: elems}
  - {name: element, named: true}
states:
  - {}
  - actions:
      lparen: ["shift 3"]
      end: ["reduce elems 0"]
    goto: {document: 8, elems: 2, element: 4}
  - actions:
      end: ["reduce document 1"]
  - actions:
      lparen: ["shift 3"]
      rparen: ["reduce elems 0"]
      end: ["reduce elems 0"]
    goto: {elems: 5, element: 4}
  - actions:
      lparen: ["shift 3"]
      rparen: ["reduce elems 0"]
      end: ["reduce elems 0"]
    goto: {elems: 6, element: 4}
  - actions:
      rparen: ["shift 7"]
  - actions:
      rparen: ["reduce elems 2"]
      end: ["reduce elems 2"]
  - actions:
      lparen: ["reduce element 3"]
      rparen: ["reduce element 3"]
      end: ["reduce element 3"]
  - actions:
      end: ["accept"]
lex:
  - transitions:
      - {on: "(", to: 1}
      - {on: ")", to: 2}
      - {on: " ", to: 3}
      - {on: "\t", to: 3}
      - {on: "\n", to: 3}
  - accept: [lparen]
  - accept: [rparen]
  - transitions:
      - {on: " ", to: 3}
      - {on: "\t", to: 3}
      - {on: "\n", to: 3}
    accept: [ws]
`

// Parens loads [ParensYAML].
func Parens(t *testing.T) *grammar.Grammar {
	t.Helper()
	g, err := grammar.Load([]byte(ParensYAML))
	require.NoError(t, err)
	return g
}
