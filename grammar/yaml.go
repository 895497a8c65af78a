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

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// The YAML document form of a compiled grammar. Symbols are referenced by
// name throughout; Load resolves them to dense indices.
type yamlGrammar struct {
	Name    string       `yaml:"name"`
	Symbols []yamlSymbol `yaml:"symbols"`
	Start   string       `yaml:"start"`
	States  []yamlState  `yaml:"states"`
	Lex     []yamlLex    `yaml:"lex"`
}

type yamlSymbol struct {
	Name     string `yaml:"name"`
	Terminal bool   `yaml:"terminal"`
	Named    bool   `yaml:"named"`
	Extra    bool   `yaml:"extra"`
	External bool   `yaml:"external"`
	Priority int    `yaml:"priority"`
}

type yamlState struct {
	// Actions are written as strings: "shift 3", "reduce elems 2", "accept".
	Actions map[string][]string `yaml:"actions"`
	Goto    map[string]int      `yaml:"goto"`
}

type yamlLex struct {
	Transitions []yamlTransition `yaml:"transitions"`
	Accept      []string         `yaml:"accept"`
}

type yamlTransition struct {
	On string `yaml:"on"` // single rune, or inclusive "a-z" range
	To int32  `yaml:"to"`
}

// Load parses a compiled grammar from its YAML serialization and validates
// it.
func Load(data []byte) (*Grammar, error) {
	var doc yamlGrammar
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("grammar: %w", err)
	}

	g := &Grammar{
		Name:    doc.Name,
		Symbols: make([]SymbolInfo, len(doc.Symbols)),
	}
	byName := make(map[string]Symbol, len(doc.Symbols))
	for i, sym := range doc.Symbols {
		if _, dup := byName[sym.Name]; dup {
			return nil, fmt.Errorf("grammar %q: duplicate symbol %q", doc.Name, sym.Name)
		}
		byName[sym.Name] = Symbol(i)
		g.Symbols[i] = SymbolInfo{
			Name:     sym.Name,
			Terminal: sym.Terminal,
			Named:    sym.Named,
			Extra:    sym.Extra,
			External: sym.External,
			Priority: sym.Priority,
		}
	}

	resolve := func(name string) (Symbol, error) {
		if name == "ERROR" {
			return Error, nil
		}
		sym, ok := byName[name]
		if !ok {
			return NoSymbol, fmt.Errorf("grammar %q: unknown symbol %q", doc.Name, name)
		}
		return sym, nil
	}

	start, err := resolve(doc.Start)
	if err != nil {
		return nil, err
	}
	g.StartSymbol = start

	g.States = make([]State, len(doc.States))
	for i, state := range doc.States {
		out := State{}
		if len(state.Actions) > 0 {
			out.Actions = make(map[Symbol][]Action, len(state.Actions))
		}
		if len(state.Goto) > 0 {
			out.Goto = make(map[Symbol]StateID, len(state.Goto))
		}
		for name, actions := range state.Actions {
			sym, err := resolve(name)
			if err != nil {
				return nil, err
			}
			for _, text := range actions {
				action, err := parseAction(text, resolve)
				if err != nil {
					return nil, fmt.Errorf("grammar %q: state %d: %w", doc.Name, i, err)
				}
				out.Actions[sym] = append(out.Actions[sym], action)
			}
		}
		for name, target := range state.Goto {
			sym, err := resolve(name)
			if err != nil {
				return nil, err
			}
			out.Goto[sym] = StateID(target)
		}
		g.States[i] = out
	}

	g.Lex.States = make([]LexState, len(doc.Lex))
	for i, state := range doc.Lex {
		out := LexState{}
		for _, tr := range state.Transitions {
			lo, hi, err := parseRange(tr.On)
			if err != nil {
				return nil, fmt.Errorf("grammar %q: lex state %d: %w", doc.Name, i, err)
			}
			out.Transitions = append(out.Transitions, LexTransition{Lo: lo, Hi: hi, Target: tr.To})
		}
		for _, name := range state.Accept {
			sym, err := resolve(name)
			if err != nil {
				return nil, err
			}
			out.Accepts = append(out.Accepts, sym)
		}
		g.Lex.States[i] = out
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// parseAction parses the compact string form of an [Action].
func parseAction(text string, resolve func(string) (Symbol, error)) (Action, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Action{}, fmt.Errorf("empty action")
	}
	switch fields[0] {
	case "shift":
		if len(fields) != 2 {
			return Action{}, fmt.Errorf("malformed action %q", text)
		}
		state, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return Action{}, fmt.Errorf("malformed action %q: %w", text, err)
		}
		return Action{Type: ActionShift, State: StateID(state)}, nil

	case "reduce":
		if len(fields) != 3 {
			return Action{}, fmt.Errorf("malformed action %q", text)
		}
		sym, err := resolve(fields[1])
		if err != nil {
			return Action{}, err
		}
		count, err := strconv.ParseUint(fields[2], 10, 16)
		if err != nil {
			return Action{}, fmt.Errorf("malformed action %q: %w", text, err)
		}
		return Action{Type: ActionReduce, Symbol: sym, ChildCount: uint16(count)}, nil

	case "accept":
		return Action{Type: ActionAccept}, nil

	default:
		return Action{}, fmt.Errorf("unknown action %q", fields[0])
	}
}

// parseRange parses a lex transition trigger: one rune, or "lo-hi". The
// escapes \n, \t, \r, \\ and \- are understood.
func parseRange(text string) (lo, hi rune, err error) {
	runes, err := unescapeRunes(text)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case len(runes) == 1:
		return runes[0], runes[0], nil
	case len(runes) == 3 && runes[1] == '-':
		return runes[0], runes[2], nil
	default:
		return 0, 0, fmt.Errorf("malformed rune range %q", text)
	}
}

func unescapeRunes(text string) ([]rune, error) {
	var runes []rune
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		if r != '\\' {
			runes = append(runes, r)
			continue
		}
		if len(text) == 0 {
			return nil, fmt.Errorf("trailing backslash in rune range")
		}
		esc, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		switch esc {
		case 'n':
			runes = append(runes, '\n')
		case 't':
			runes = append(runes, '\t')
		case 'r':
			runes = append(runes, '\r')
		case '\\', '-':
			runes = append(runes, esc)
		default:
			return nil, fmt.Errorf("unknown escape \\%c", esc)
		}
	}
	return runes, nil
}
