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

// Package grammar defines the compiled, read-only tables that drive the
// parsing engine: symbol metadata, the shift/reduce action table, the goto
// table, and the lexical state machine.
//
// Tables are produced by an external grammar compiler and consumed here
// as-is; a [Grammar] is immutable after [Load] and safe to share between
// any number of concurrent parses.
package grammar

import (
	"fmt"
	"math"
)

// Symbol identifies a terminal or nonterminal category. Symbols are dense
// indices into [Grammar.Symbols], except for the builtin sentinels below.
type Symbol uint16

const (
	// EOF is the end-of-input sentinel terminal. Every grammar declares it
	// at index zero.
	EOF Symbol = 0

	// Error is the builtin symbol for error nodes produced during recovery.
	Error Symbol = math.MaxUint16 - 1

	// NoSymbol is the absence of a symbol.
	NoSymbol Symbol = math.MaxUint16
)

// StateID identifies a row of the action table.
type StateID uint16

const (
	// ErrorState is the automaton state a version occupies during recovery.
	ErrorState StateID = 0

	// StartState is the initial automaton state.
	StartState StateID = 1
)

// ActionType discriminates the variants of [Action].
type ActionType uint8

const (
	// ActionNone is the zero action: the table has nothing for this
	// (state, symbol) pair.
	ActionNone ActionType = iota
	ActionShift
	ActionReduce
	ActionAccept
)

// Action is one entry of the action table. Multiple actions for the same
// (state, symbol) pair express a conflict the parser resolves by forking
// stack versions.
type Action struct {
	Type ActionType

	// State is the target state, for shifts.
	State StateID

	// Symbol and ChildCount describe the production, for reduces.
	Symbol     Symbol
	ChildCount uint16
}

// SymbolInfo is the static metadata for one symbol.
type SymbolInfo struct {
	Name string

	// Terminal symbols are produced by the lexer; nonterminals by reductions.
	Terminal bool

	// Named symbols appear in trees under their name; anonymous ones (such
	// as punctuation) are identified by their literal text.
	Named bool

	// Extra symbols are trivia: matched between any two meaningful tokens
	// and excluded from production child counts.
	Extra bool

	// External symbols are delegated to a caller-supplied scanner.
	External bool

	// Priority breaks lexical ties between tokens matching the same span.
	Priority int
}

// State is one row of the action and goto tables.
type State struct {
	Actions map[Symbol][]Action
	Goto    map[Symbol]StateID
}

// Grammar is a complete compiled grammar. It is read-only.
type Grammar struct {
	Name        string
	Symbols     []SymbolInfo
	StartSymbol Symbol
	States      []State
	Lex         LexTable
}

// Symbol returns the metadata for sym. Builtin sentinels get synthetic
// metadata.
func (g *Grammar) Symbol(sym Symbol) SymbolInfo {
	switch {
	case sym == Error:
		return SymbolInfo{Name: "ERROR", Named: true}
	case int(sym) < len(g.Symbols):
		return g.Symbols[sym]
	default:
		return SymbolInfo{Name: fmt.Sprintf("symbol-%d", sym)}
	}
}

// Actions returns the table actions for (state, sym). An empty slice means
// NoAction.
func (g *Grammar) Actions(state StateID, sym Symbol) []Action {
	if int(state) >= len(g.States) {
		return nil
	}
	return g.States[state].Actions[sym]
}

// GotoState returns the goto-table target for (state, sym) after a
// reduction of sym.
func (g *Grammar) GotoState(state StateID, sym Symbol) (StateID, bool) {
	if int(state) >= len(g.States) {
		return 0, false
	}
	next, ok := g.States[state].Goto[sym]
	return next, ok
}

// ValidSymbols returns the set of terminals the lexer may produce in the
// given state: every terminal with a table action, plus all extras.
func (g *Grammar) ValidSymbols(state StateID) SymbolSet {
	set := NewSymbolSet(len(g.Symbols))
	if int(state) < len(g.States) {
		for sym := range g.States[state].Actions {
			if sym == Error || g.Symbol(sym).Terminal {
				set.Add(sym)
			}
		}
	}
	for i, info := range g.Symbols {
		if info.Extra && info.Terminal {
			set.Add(Symbol(i))
		}
	}
	return set
}

// HasExternalTokens reports whether any symbol is externally scanned.
func (g *Grammar) HasExternalTokens() bool {
	for _, info := range g.Symbols {
		if info.External {
			return true
		}
	}
	return false
}

// Validate checks the internal consistency of the tables.
func (g *Grammar) Validate() error {
	if len(g.Symbols) == 0 {
		return fmt.Errorf("grammar %q: no symbols", g.Name)
	}
	if len(g.States) <= int(StartState) {
		return fmt.Errorf("grammar %q: no start state", g.Name)
	}
	if int(g.StartSymbol) >= len(g.Symbols) {
		return fmt.Errorf("grammar %q: start symbol %d out of range", g.Name, g.StartSymbol)
	}
	if g.Symbols[g.StartSymbol].Terminal {
		return fmt.Errorf("grammar %q: start symbol %q is a terminal", g.Name, g.Symbols[g.StartSymbol].Name)
	}

	for id, state := range g.States {
		for sym, actions := range state.Actions {
			if sym != Error && int(sym) >= len(g.Symbols) {
				return fmt.Errorf("grammar %q: state %d: action for unknown symbol %d", g.Name, id, sym)
			}
			for _, action := range actions {
				switch action.Type {
				case ActionShift:
					if sym == EOF {
						return fmt.Errorf("grammar %q: state %d: shift on end of input", g.Name, id)
					}
					if int(action.State) >= len(g.States) {
						return fmt.Errorf("grammar %q: state %d: shift to unknown state %d", g.Name, id, action.State)
					}
				case ActionReduce:
					if int(action.Symbol) >= len(g.Symbols) {
						return fmt.Errorf("grammar %q: state %d: reduce to unknown symbol %d", g.Name, id, action.Symbol)
					}
					if g.Symbols[action.Symbol].Terminal {
						return fmt.Errorf("grammar %q: state %d: reduce to terminal %q", g.Name, id, g.Symbols[action.Symbol].Name)
					}
				case ActionAccept:
				default:
					return fmt.Errorf("grammar %q: state %d: malformed action for %q", g.Name, id, g.Symbol(sym).Name)
				}
			}
		}
		for sym, next := range state.Goto {
			if int(sym) >= len(g.Symbols) || g.Symbols[sym].Terminal {
				return fmt.Errorf("grammar %q: state %d: goto keyed by non-nonterminal %d", g.Name, id, sym)
			}
			if int(next) >= len(g.States) {
				return fmt.Errorf("grammar %q: state %d: goto to unknown state %d", g.Name, id, next)
			}
		}
	}

	return g.Lex.validate(g)
}
