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

package subtree

// Error cost weights. Recovery is a beam search ordered by accumulated
// cost: whole-recovery events dominate, then structural losses, then raw
// text losses, so that repairs preserving more of the input always win.
const (
	CostPerRecovery    uint32 = 500
	CostPerMissingTree uint32 = 110
	CostPerSkippedTree uint32 = 100
	CostPerSkippedLine uint32 = 30
	CostPerSkippedChar uint32 = 1
)

// skipCost is the cost of discarding a stretch of input covering the given
// number of bytes and rows.
func skipCost(bytes, rows uint32) uint32 {
	return CostPerSkippedTree + CostPerSkippedChar*bytes + CostPerSkippedLine*rows
}
