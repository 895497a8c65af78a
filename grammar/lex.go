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

package grammar

import "fmt"

// LexTable is the deterministic state machine the lexer walks to recognize
// tokens. State 0 is the start state.
type LexTable struct {
	States []LexState
}

// LexState is one state of the lexical automaton.
type LexState struct {
	// Transitions are tried in order; the first one whose range contains the
	// lookahead rune is taken.
	Transitions []LexTransition

	// Accepts lists the symbols recognized when the machine stops in this
	// state. Ties are broken by declared priority, then declaration order.
	Accepts []Symbol
}

// LexTransition maps an inclusive rune range to a successor state.
type LexTransition struct {
	Lo, Hi rune
	Target int32
}

// Step returns the successor state for the lookahead rune, or -1 if the
// state has no transition for it.
func (t *LexTable) Step(state int32, lookahead rune) int32 {
	for _, tr := range t.States[state].Transitions {
		if lookahead >= tr.Lo && lookahead <= tr.Hi {
			return tr.Target
		}
	}
	return -1
}

func (t *LexTable) validate(g *Grammar) error {
	if len(t.States) == 0 {
		return fmt.Errorf("grammar %q: empty lex table", g.Name)
	}
	for id, state := range t.States {
		for _, tr := range state.Transitions {
			if tr.Hi < tr.Lo {
				return fmt.Errorf("grammar %q: lex state %d: inverted range %q..%q", g.Name, id, tr.Lo, tr.Hi)
			}
			if tr.Target < 0 || int(tr.Target) >= len(t.States) {
				return fmt.Errorf("grammar %q: lex state %d: transition to unknown state %d", g.Name, id, tr.Target)
			}
		}
		for _, sym := range state.Accepts {
			if int(sym) >= len(g.Symbols) || !g.Symbols[sym].Terminal {
				return fmt.Errorf("grammar %q: lex state %d: accepts non-terminal symbol %d", g.Name, id, sym)
			}
			if g.Symbols[sym].External {
				return fmt.Errorf("grammar %q: lex state %d: accepts external symbol %q", g.Name, id, g.Symbols[sym].Name)
			}
		}
	}
	return nil
}
