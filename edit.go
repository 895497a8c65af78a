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
	"github.com/sapling-lang/sapling/internal/interval"
	"github.com/sapling-lang/sapling/syntax"
)

// Edit describes one contiguous replacement of this tree's source text and
// returns a new tree with every span adjusted accordingly; the receiver is
// untouched. Subtrees overlapping the replaced range are marked changed so
// a subsequent incremental parse re-derives them.
//
// Multiple edits are applied by chaining Edit calls in ascending byte
// order of their original positions. The resulting tree is only an
// adjusted skeleton: pass it as the old tree to [Parser.Parse] together
// with the edited text to get the tree of the new document.
func (t *Tree) Edit(e syntax.Edit) (*Tree, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	root := t.pool.Edit(t.root, e)

	// Carry earlier edits' invalidated ranges into the new coordinate
	// space, then add this edit's new range.
	edited := new(interval.Set[uint32])
	delta := e.DeltaBytes()
	if t.edited != nil {
		t.edited.All(func(start, end uint32) bool {
			switch {
			case end <= e.StartByte:
				edited.Insert(start, end)
			case start >= e.OldEndByte:
				edited.Insert(shiftByte(start, delta), shiftByte(end, delta))
			default:
				edited.Insert(min(start, e.StartByte), shiftByte(max(end, e.OldEndByte), delta))
			}
			return true
		})
	}
	edited.Insert(e.StartByte, e.NewEndByte)

	return &Tree{
		g:      t.g,
		root:   root,
		pool:   t.pool,
		edited: edited,
	}, nil
}

func shiftByte(v uint32, delta int32) uint32 {
	if delta < 0 && uint32(-delta) > v {
		return 0
	}
	return uint32(int64(v) + int64(delta))
}
