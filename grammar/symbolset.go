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

import "iter"

// SymbolSet is a bitset of symbols. The builtin sentinels [Error] and
// [NoSymbol] cannot be members.
type SymbolSet struct {
	bits []uint64
}

// NewSymbolSet returns a set sized for a grammar with n symbols.
func NewSymbolSet(n int) SymbolSet {
	return SymbolSet{bits: make([]uint64, (n+63)/64)}
}

// Add inserts sym into the set. Out-of-range symbols are ignored.
func (s SymbolSet) Add(sym Symbol) {
	if int(sym)/64 < len(s.bits) {
		s.bits[sym/64] |= 1 << (sym % 64)
	}
}

// Has reports whether sym is a member.
func (s SymbolSet) Has(sym Symbol) bool {
	return int(sym)/64 < len(s.bits) && s.bits[sym/64]&(1<<(sym%64)) != 0
}

// Equal reports whether two sets have the same members.
func (s SymbolSet) Equal(o SymbolSet) bool {
	long, short := s.bits, o.bits
	if len(short) > len(long) {
		long, short = short, long
	}
	for i, word := range short {
		if word != long[i] {
			return false
		}
	}
	for _, word := range long[len(short):] {
		if word != 0 {
			return false
		}
	}
	return true
}

// All iterates over the members in ascending order.
func (s SymbolSet) All() iter.Seq[Symbol] {
	return func(yield func(Symbol) bool) {
		for i, word := range s.bits {
			for bit := 0; word != 0; bit++ {
				if word&1 != 0 && !yield(Symbol(i*64+bit)) {
					return
				}
				word >>= 1
			}
		}
	}
}
