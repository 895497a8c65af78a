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

package sapling

import (
	"context"
	"errors"

	"github.com/sapling-lang/sapling/grammar"
	"github.com/sapling-lang/sapling/lexer"
	"github.com/sapling-lang/sapling/parser"
)

// Parser parses documents against one compiled grammar. The zero value is
// not usable; Grammar must be set. A Parser is stateless across calls and
// safe for concurrent use by multiple goroutines.
type Parser struct {
	// Grammar is the compiled table set to parse against. Required.
	Grammar *grammar.Grammar

	// Scanner recognizes the grammar's externally scanned tokens, if it
	// declares any.
	Scanner lexer.ExternalScanner

	// MaxVersions caps how many candidate derivations are explored at
	// once. Zero means [parser.DefaultMaxVersions].
	MaxVersions int

	// MaxErrorCost is the ceiling on accumulated repair cost before a
	// derivation gives up and finishes as a partial tree. Zero means
	// [parser.DefaultMaxErrorCost].
	MaxErrorCost uint32

	// RecoveryOrder overrides the order in which error repairs are tried.
	// Nil means [parser.DefaultRecoveryOrder].
	RecoveryOrder []parser.RecoveryStrategy
}

// ErrNoGrammar reports a Parser used without a grammar.
var ErrNoGrammar = errors.New("sapling: parser has no grammar")

// Parse parses text and returns its syntax tree. Invalid input still
// produces a tree (check [Tree.HasError]); an error return means the
// context was cancelled or an internal invariant was violated.
//
// old, if non-nil, must be the edit-adjusted tree of a previous parse of
// this document (see [Tree.Edit]); subtrees the edits did not touch are
// then reused instead of re-derived. Passing a tree of some other document
// is a contract violation and yields an arbitrary (but well-formed) tree.
func (p *Parser) Parse(ctx context.Context, text []byte, old *Tree) (*Tree, error) {
	if p.Grammar == nil {
		return nil, ErrNoGrammar
	}

	opts := parser.Options{
		Grammar:       p.Grammar,
		Scanner:       p.Scanner,
		MaxVersions:   p.MaxVersions,
		MaxErrorCost:  p.MaxErrorCost,
		RecoveryOrder: p.RecoveryOrder,
	}
	if old != nil {
		opts.OldRoot = old.root
		opts.Edited = old.edited
		opts.Pool = old.pool
	}

	res, err := parser.Parse(ctx, text, opts)
	if res == nil || res.Root == nil {
		return nil, err
	}
	tree := &Tree{
		g:          p.Grammar,
		root:       res.Root,
		pool:       res.Pool,
		reused:     res.ReusedNodes,
		incomplete: res.Incomplete,
	}
	return tree, err
}
