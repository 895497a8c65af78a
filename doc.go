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

// Package sapling is an incremental parsing engine for language tooling.
//
// Given a compiled grammar (see [github.com/sapling-lang/sapling/grammar])
// and a source buffer, a [Parser] produces a concrete syntax [Tree]. Parsing
// is robust: syntactically invalid input still yields a tree, with the
// invalid regions folded in as error nodes, so editors and analyzers always
// have something to work with.
//
// Trees are immutable. Applying an [syntax.Edit] via [Tree.Edit] produces a
// new span-adjusted tree; passing that tree back to [Parser.Parse] along
// with the edited text lets the engine reuse the subtrees the edit did not
// touch instead of re-deriving the whole document.
//
// A single Tree must not be parsed against concurrently with itself, but
// independent documents parse fully in parallel; [ParseAll] provides a
// bounded-concurrency helper. The grammar tables are read-only and safely
// shared across parses.
package sapling
