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

// Package parser implements the table-driven parse loop: it orchestrates
// the lexer and the multi-version stack against a grammar's action table,
// explores local ambiguity and error repairs as a cost-bounded beam, and
// produces the root subtree of a syntax tree.
//
// Lexical and syntactic errors never surface as Go errors; they are folded
// into the output as error nodes. Only internal invariant violations and
// cancellation abort a parse.
package parser

import (
	"context"
	"errors"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/internal/interval"
	"github.com/sapling-lang/sapling/lexer"
	"github.com/sapling-lang/sapling/subtree"
)

// RecoveryStrategy is one of the repairs attempted when every live stack
// version reports NoAction.
type RecoveryStrategy uint8

const (
	// RecoverSkip discards the offending token, wrapped in an error node.
	RecoverSkip RecoveryStrategy = iota

	// RecoverInsert fabricates the missing token the table most wants.
	RecoverInsert

	// RecoverResync jumps ahead to the next reusable subtree from the
	// previous parse, bridging the gap with one error node.
	RecoverResync
)

// DefaultRecoveryOrder is the pinned default ordering of repairs. The
// relative merit of the strategies varies by grammar, so the order is
// configurable rather than fixed.
var DefaultRecoveryOrder = []RecoveryStrategy{RecoverSkip, RecoverInsert, RecoverResync}

const (
	// DefaultMaxVersions bounds how many stack versions stay live.
	DefaultMaxVersions = 6

	// DefaultMaxErrorCost is the recovery cost ceiling: a version beyond
	// it stops forking repairs and finishes as a partial tree.
	DefaultMaxErrorCost = 50_000

	// cancellationCheckInterval is how many driver iterations pass between
	// context checks.
	cancellationCheckInterval = 16
)

// ErrNoVersions reports that every stack version disappeared before a tree
// was produced. This breaks the minimum-one-version invariant and
// indicates a bug in the engine, not a property of the input.
var ErrNoVersions = errors.New("parser: internal invariant violation: no live stack versions")

// Options configures one parse.
type Options struct {
	Grammar *grammar.Grammar

	// Scanner handles externally scanned symbols, if the grammar declares
	// any.
	Scanner lexer.ExternalScanner

	// MaxVersions caps the number of live stack versions; the
	// highest-cost versions are pruned first. Zero means
	// [DefaultMaxVersions].
	MaxVersions int

	// MaxErrorCost is the recovery cost ceiling. Zero means
	// [DefaultMaxErrorCost].
	MaxErrorCost uint32

	// RecoveryOrder overrides [DefaultRecoveryOrder].
	RecoveryOrder []RecoveryStrategy

	// OldRoot is the adjusted root of a previous parse of this document,
	// enabling subtree reuse. Edited is the set of byte ranges (in
	// post-edit coordinates) invalidated since that parse.
	OldRoot *subtree.Subtree
	Edited  *interval.Set[uint32]

	// Pool supplies node storage; a fresh pool is created when nil.
	Pool *subtree.Pool
}

// Result is the outcome of a parse.
type Result struct {
	// Root is the root subtree. The caller owns one reference.
	Root *subtree.Subtree

	// Pool is the node pool Root was built from; releasing Root must go
	// through it.
	Pool *subtree.Pool

	// ReusedNodes counts the subtrees from the previous parse shifted
	// wholesale instead of re-derived.
	ReusedNodes int

	// Incomplete is set when the parse was cancelled and Root (if any) is
	// a best-effort partial tree.
	Incomplete bool
}

// Parse consumes text against the grammar and returns the resulting tree's
// root. A tree is always produced for any input, barring cancellation and
// internal invariant violations.
func Parse(ctx context.Context, text []byte, opts Options) (*Result, error) {
	if opts.MaxVersions <= 0 {
		opts.MaxVersions = DefaultMaxVersions
	}
	if opts.MaxErrorCost == 0 {
		opts.MaxErrorCost = DefaultMaxErrorCost
	}
	if opts.RecoveryOrder == nil {
		opts.RecoveryOrder = DefaultRecoveryOrder
	}
	if opts.Pool == nil {
		opts.Pool = subtree.NewPool()
	}

	d := newDriver(text, opts)
	defer d.close()
	return d.run(ctx)
}
