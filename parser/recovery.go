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
	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/stack"
	"github.com/sapling-lang/sapling/subtree"
	"github.com/sapling-lang/sapling/syntax"
)

// recoverAll runs error recovery over every paused version. Each repair
// strategy that applies forks the version; the paused original is then
// removed, so each recovery round strictly replaces stuck versions with
// repaired (costlier) ones, and the cost ceiling bounds the rounds.
func (d *driver) recoverAll() {
	var paused []stack.Version
	for v := range d.stack.Versions() {
		if d.stack.Status(stack.Version(v)) == stack.Paused {
			paused = append(paused, stack.Version(v))
		}
	}

	for _, v := range paused {
		d.recoverVersion(v)
	}

	// Forks land above the originals, so removing high to low leaves the
	// remaining paused indices intact.
	for i := len(paused) - 1; i >= 0; i-- {
		d.stack.Remove(paused[i])
	}
}

func (d *driver) recoverVersion(v stack.Version) {
	if d.stack.ErrorCost(v) > d.opts.MaxErrorCost {
		d.finishPartial(v)
		return
	}

	lookahead := d.stack.Lookahead(v) // nil at end of input
	state := d.stack.State(v)
	forked := false

	for _, strategy := range d.opts.RecoveryOrder {
		switch strategy {
		case RecoverSkip:
			if lookahead == nil {
				continue
			}
			fork := d.stack.Fork(v)
			skipped := d.pool.NewInternal(grammar.Error, []*subtree.Subtree{lookahead.Retain()})
			d.stack.Push(fork, state, skipped)
			forked = true

		case RecoverInsert:
			sym, next, ok := d.insertableToken(state)
			if !ok {
				continue
			}
			fork := d.stack.Fork(v)
			missing := d.pool.NewMissing(sym, d.spanAtPosition(fork), state)
			d.stack.Push(fork, next, missing)
			forked = true

		case RecoverResync:
			if d.reuse == nil || lookahead == nil {
				continue
			}
			pos := d.stack.Position(v)
			startByte, startPoint, ok := d.reuse.nextStart(pos.Bytes + 1)
			if !ok {
				continue
			}
			fork := d.stack.Fork(v)
			bridge := syntax.Span{
				StartByte:  pos.Bytes,
				EndByte:    startByte,
				StartPoint: pos.Extent,
				EndPoint:   startPoint,
			}
			d.stack.Push(fork, state, d.pool.NewLeaf(grammar.Error, bridge, subtree.FlagExtra, state))
			forked = true
		}
	}

	if !forked {
		d.finishPartial(v)
	}
}

// insertableToken picks the token a missing-token repair should fabricate
// in a state: the lowest-numbered ordinary terminal the state can shift.
// Externally scanned tokens are never fabricated, since there is no
// scanner state to go with them.
func (d *driver) insertableToken(state grammar.StateID) (grammar.Symbol, grammar.StateID, bool) {
	for i := range d.g.Symbols {
		sym := grammar.Symbol(i)
		if sym == grammar.EOF {
			continue
		}
		info := d.g.Symbol(sym)
		if !info.Terminal || info.Extra || info.External {
			continue
		}
		for _, action := range d.g.Actions(state, sym) {
			if action.Type == grammar.ActionShift {
				return sym, action.State, true
			}
		}
	}
	return grammar.NoSymbol, 0, false
}

// finishPartial retires a version whose repairs are exhausted or over the
// cost ceiling, turning whatever it parsed into an error-wrapped root.
func (d *driver) finishPartial(v stack.Version) {
	cost := d.stack.ErrorCost(v)
	at := d.spanAtPosition(v)
	trees := d.stack.PopAll(v)

	var root *subtree.Subtree
	if len(trees) == 0 {
		root = d.pool.NewEmpty(d.g.StartSymbol, at, grammar.StartState)
	} else {
		root = d.pool.NewInternal(grammar.Error, trees)
	}
	d.record(root, cost, false)
}
