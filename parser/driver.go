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

package parser

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/lexer"
	"github.com/sapling-lang/sapling/stack"
	"github.com/sapling-lang/sapling/subtree"
	"github.com/sapling-lang/sapling/syntax"
)

// maxReductionsPerToken bounds consecutive reductions on one lookahead, so
// a cyclic grammar cannot hang the driver.
const maxReductionsPerToken = 1 << 12

type driver struct {
	g    *grammar.Grammar
	text []byte
	opts Options

	lex   *lexer.Lexer
	stack *stack.Stack
	pool  *subtree.Pool
	reuse *reuser

	reused int

	// The best finished derivation so far. Accepted derivations always
	// beat partial ones; among equals, lower error cost wins.
	best         *subtree.Subtree
	bestCost     uint32
	bestAccepted bool
}

func newDriver(text []byte, opts Options) *driver {
	d := &driver{
		g:     opts.Grammar,
		text:  text,
		opts:  opts,
		lex:   lexer.New(opts.Grammar, text, opts.Scanner),
		pool:  opts.Pool,
		stack: stack.New(opts.Pool),
	}
	if opts.OldRoot != nil {
		d.reuse = &reuser{g: opts.Grammar, root: opts.OldRoot, edited: opts.Edited}
	}
	return d
}

func (d *driver) close() {
	if d.stack != nil {
		d.stack.Release()
		d.stack = nil
	}
	if d.best != nil {
		d.pool.Release(d.best)
		d.best = nil
	}
}

func (d *driver) run(ctx context.Context) (*Result, error) {
	for iteration := 0; ; iteration++ {
		if iteration%cancellationCheckInterval == 0 && ctx.Err() != nil {
			return d.partialResult(), ctx.Err()
		}

		active, paused := d.census()
		switch {
		case active == 0 && paused == 0:
			if d.best == nil {
				return nil, ErrNoVersions
			}
			return &Result{
				Root:        d.takeBest(),
				Pool:        d.pool,
				ReusedNodes: d.reused,
			}, nil

		case active == 0:
			// Every version is stuck at the same frontier: recover.
			d.recoverAll()
			d.prune()
			continue
		}

		for v := stack.Version(0); int(v) < d.stack.Versions(); v++ {
			if d.stack.Status(v) != stack.Active {
				continue
			}
			d.advance(v)
		}
		d.mergeVersions()
		d.prune()

		if d.bestAccepted {
			// A version accepted this iteration; competing repairs cannot
			// beat a full derivation.
			d.removeAll()
		}
	}
}

func (d *driver) census() (active, paused int) {
	for v := range d.stack.Versions() {
		switch d.stack.Status(stack.Version(v)) {
		case stack.Active:
			active++
		case stack.Paused:
			paused++
		}
	}
	return active, paused
}

func (d *driver) takeBest() *subtree.Subtree {
	root := d.best
	d.best = nil
	return root
}

// record offers a finished derivation, taking over ownership of root.
func (d *driver) record(root *subtree.Subtree, cost uint32, accepted bool) {
	better := d.best == nil ||
		(accepted && !d.bestAccepted) ||
		(accepted == d.bestAccepted && cost < d.bestCost) ||
		(accepted == d.bestAccepted && cost == d.bestCost && root.NodeCount() > d.best.NodeCount())
	if !better {
		d.pool.Release(root)
		return
	}
	if d.best != nil {
		d.pool.Release(d.best)
	}
	d.best, d.bestCost, d.bestAccepted = root, cost, accepted
}

// lookahead is one unit of input: a token leaf, or the end-of-input
// sentinel, or a stretch of bytes no token matches.
type lookahead struct {
	kind uint8
	sym  grammar.Symbol
	leaf *subtree.Subtree // nil for EOF and garbage
	span syntax.Span      // the garbage span
}

const (
	tokenNormal uint8 = iota
	tokenEOF
	tokenGarbage
)

// advance runs one version until it consumes one unit of input (or pauses
// or accepts).
func (d *driver) advance(v stack.Version) {
	if d.reuse != nil && d.tryReuse(v) {
		return
	}

	state := d.stack.State(v)
	tok := d.nextToken(v, state)
	switch tok.kind {
	case tokenGarbage:
		// Lexical error: skip the unmatchable bytes locally, folded into
		// the tree as an error leaf.
		d.stack.Push(v, state, d.pool.NewLeaf(grammar.Error, tok.span, subtree.FlagExtra, state))
	default:
		d.consume(v, tok)
		if tok.leaf != nil {
			d.pool.Release(tok.leaf)
		}
	}
}

// tryReuse shifts a subtree of the previous parse onto the stack wholesale.
// A candidate's goto state often does not exist yet because the reductions
// its first token triggers have not fired; since that token is known to lex
// identically here, those reductions are performed eagerly and the candidate
// retried. Reports whether the version consumed input (or paused).
func (d *driver) tryReuse(v stack.Version) bool {
	pos := d.stack.Position(v)
	for range maxReductionsPerToken {
		state := d.stack.State(v)
		if cand, next, ok := d.reuse.candidate(pos, state); ok {
			d.stack.Push(v, next, cand.Retain())
			d.reused++
			return true
		}

		sym, ok := d.reuse.firstLeaf(pos.Bytes, state)
		if !ok {
			return false
		}
		actions := d.g.Actions(state, sym)
		if len(actions) != 1 || actions[0].Type != grammar.ActionReduce {
			// Shifts and conflicts go through the normal lex path; the
			// relexed token is identical, only the node reuse is lost.
			return false
		}
		d.reduce(v, actions[0])
		if d.stack.Status(v) != stack.Active {
			return true
		}
	}
	return false
}

func (d *driver) nextToken(v stack.Version, state grammar.StateID) lookahead {
	var ext []byte
	if last := d.stack.LastExternal(v); last != nil {
		ext = last.ExternalState()
	}
	d.lex.Reset(d.stack.Position(v))
	res := d.lex.Next(d.g.ValidSymbols(state), ext)

	switch res.Kind {
	case lexer.KindEOF:
		return lookahead{kind: tokenEOF, sym: grammar.EOF}

	case lexer.KindSkipped:
		return lookahead{kind: tokenGarbage, span: res.Skipped}

	case lexer.KindError:
		return lookahead{kind: tokenGarbage, span: d.runeSpanAt(res.Pos)}

	default:
		t := res.Token
		var flags subtree.Flags
		if t.Extra {
			flags |= subtree.FlagExtra
		}
		var leaf *subtree.Subtree
		if t.External {
			leaf = d.pool.NewExternalLeaf(t.Symbol, t.Span, flags, state, t.ScannerState)
		} else {
			leaf = d.pool.NewLeaf(t.Symbol, t.Span, flags, state)
		}
		return lookahead{kind: tokenNormal, sym: t.Symbol, leaf: leaf}
	}
}

// consume dispatches table actions for one lookahead on one version,
// reducing until the version shifts, pauses, or accepts. Conflicting
// actions fork the version; each fork continues under the same lookahead.
func (d *driver) consume(v stack.Version, tok lookahead) {
	for reductions := 0; ; reductions++ {
		state := d.stack.State(v)
		actions := d.g.Actions(state, tok.sym)

		if len(actions) == 0 {
			if tok.leaf != nil && tok.leaf.Extra() {
				// Trivia is consumed without a state change.
				d.shift(v, state, tok)
				return
			}
			var held *subtree.Subtree
			if tok.leaf != nil {
				held = tok.leaf.Retain()
			}
			d.stack.Pause(v, held)
			return
		}

		if reductions >= maxReductionsPerToken {
			// A reduction cycle in the tables; park the version rather
			// than spin.
			var held *subtree.Subtree
			if tok.leaf != nil {
				held = tok.leaf.Retain()
			}
			d.stack.Pause(v, held)
			return
		}

		for _, action := range actions[1:] {
			fork := d.stack.Fork(v)
			if !d.applyAction(fork, action, tok) {
				d.consume(fork, tok)
			}
		}
		if d.applyAction(v, actions[0], tok) {
			return
		}
	}
}

// applyAction performs one table action on a version. It reports whether
// the lookahead was consumed (shift, accept, or pause); reductions leave
// the lookahead pending.
func (d *driver) applyAction(v stack.Version, action grammar.Action, tok lookahead) bool {
	switch action.Type {
	case grammar.ActionShift:
		if tok.leaf == nil {
			// End of input has no leaf to shift; only tables that bypassed
			// grammar.Load get here.
			d.stack.Halt(v)
			return true
		}
		d.shift(v, action.State, tok)
		return true

	case grammar.ActionAccept:
		d.accept(v)
		return true

	case grammar.ActionReduce:
		d.reduce(v, action)
		return false

	default:
		d.stack.Halt(v)
		return true
	}
}

func (d *driver) shift(v stack.Version, state grammar.StateID, tok lookahead) {
	leaf := tok.leaf.Retain()
	d.stack.Push(v, state, leaf)
	if leaf.ExternalState() != nil {
		d.stack.SetLastExternal(v, leaf)
	}
}

func (d *driver) reduce(v stack.Version, action grammar.Action) {
	state := d.stack.State(v)
	children := d.stack.Pop(v, int(action.ChildCount))

	var node *subtree.Subtree
	if len(children) == 0 {
		node = d.pool.NewEmpty(action.Symbol, d.spanAtPosition(v), state)
	} else {
		node = d.pool.NewInternal(action.Symbol, children)
	}

	next, ok := d.g.GotoState(d.stack.State(v), action.Symbol)
	if !ok {
		// The tables reduced into a state with no goto; there is nothing
		// sound to push, so park the version for recovery.
		d.pool.Release(node)
		d.stack.Pause(v, nil)
		return
	}
	d.stack.Push(v, next, node)
}

// accept finishes a version: the remaining stack entries (the start-symbol
// subtree plus any surrounding trivia) become the tree root.
func (d *driver) accept(v stack.Version) {
	cost := d.stack.ErrorCost(v)
	trees := d.stack.PopAll(v)

	var root *subtree.Subtree
	switch len(trees) {
	case 0:
		root = d.pool.NewEmpty(d.g.StartSymbol, syntax.Span{}, grammar.StartState)
	case 1:
		root = trees[0]
	default:
		sym := d.g.StartSymbol
		for _, tree := range trees {
			if !tree.Extra() {
				sym = tree.Symbol()
				break
			}
		}
		root = d.pool.NewInternal(sym, trees)
	}

	d.record(root, cost, true)
	d.stack.Halt(v)
}

func (d *driver) mergeVersions() {
	for i := 0; i < d.stack.Versions(); i++ {
		for j := d.stack.Versions() - 1; j > i; j-- {
			d.stack.Merge(stack.Version(i), stack.Version(j))
		}
	}
}

// prune enforces the beam: halted versions go away, and if more versions
// survive than the cap, the costliest are dropped. At least one version is
// always kept while any is live.
func (d *driver) prune() {
	for v := stack.Version(d.stack.Versions()) - 1; v >= 0; v-- {
		if d.stack.Status(v) == stack.Halted {
			d.stack.Remove(v)
		}
	}

	live := d.stack.Versions()
	if live <= d.opts.MaxVersions {
		return
	}

	order := make([]stack.Version, live)
	for i := range order {
		order[i] = stack.Version(i)
	}
	slices.SortStableFunc(order, func(a, b stack.Version) int {
		ca, cb := d.stack.ErrorCost(a), d.stack.ErrorCost(b)
		switch {
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		default:
			// At equal cost, the version that parsed more content wins.
			na, nb := d.stack.NodeCount(a), d.stack.NodeCount(b)
			switch {
			case na > nb:
				return -1
			case na < nb:
				return 1
			default:
				return 0
			}
		}
	})

	doomed := order[d.opts.MaxVersions:]
	slices.Sort(doomed)
	for i := len(doomed) - 1; i >= 0; i-- {
		d.stack.Remove(doomed[i])
	}
}

func (d *driver) removeAll() {
	for v := stack.Version(d.stack.Versions()) - 1; v >= 0; v-- {
		d.stack.Remove(v)
	}
}

// partialResult assembles a best-effort tree after cancellation.
func (d *driver) partialResult() *Result {
	bestV := stack.Version(-1)
	var bestCost uint32
	for v := range d.stack.Versions() {
		version := stack.Version(v)
		if d.stack.Status(version) == stack.Halted {
			continue
		}
		cost := d.stack.ErrorCost(version)
		if bestV < 0 || cost < bestCost {
			bestV, bestCost = version, cost
		}
	}
	if bestV >= 0 {
		d.finishPartial(bestV)
	}

	return &Result{
		Root:        d.takeBest(),
		Pool:        d.pool,
		ReusedNodes: d.reused,
		Incomplete:  true,
	}
}

func (d *driver) spanAtPosition(v stack.Version) syntax.Span {
	pos := d.stack.Position(v)
	return syntax.Span{
		StartByte:  pos.Bytes,
		EndByte:    pos.Bytes,
		StartPoint: pos.Extent,
		EndPoint:   pos.Extent,
	}
}

// runeSpanAt spans the single rune at pos, for skipping bytes no token
// matches.
func (d *driver) runeSpanAt(pos syntax.Length) syntax.Span {
	r, size := utf8.DecodeRune(d.text[pos.Bytes:])
	end := pos
	end.Bytes += uint32(size)
	if r == '\n' {
		end.Extent.Row++
		end.Extent.Column = 0
	} else {
		end.Extent.Column += uint32(size)
	}
	return syntax.Span{
		StartByte:  pos.Bytes,
		EndByte:    end.Bytes,
		StartPoint: pos.Extent,
		EndPoint:   end.Extent,
	}
}
