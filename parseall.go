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
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ParseAll parses several independent documents in parallel, at most
// parallelism at a time (GOMAXPROCS when zero or negative). The returned
// slice is positional with texts.
//
// If any parse fails, the remaining parses are cancelled, every tree
// already produced is released, and the first error is returned.
func ParseAll(ctx context.Context, p *Parser, texts [][]byte, parallelism int64) ([]*Tree, error) {
	if parallelism <= 0 {
		parallelism = int64(runtime.GOMAXPROCS(0))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(parallelism)
	trees := make([]*Tree, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for i, text := range texts {
		if err := sem.Acquire(ctx, 1); err != nil {
			fail(err)
			break
		}
		wg.Add(1)
		go func(i int, text []byte) {
			defer wg.Done()
			defer sem.Release(1)
			tree, err := p.Parse(ctx, text, nil)
			if err != nil {
				if tree != nil {
					tree.Release()
				}
				fail(err)
				return
			}
			trees[i] = tree
		}(i, text)
	}
	wg.Wait()

	if firstErr != nil {
		for _, tree := range trees {
			if tree != nil {
				tree.Release()
			}
		}
		return nil, firstErr
	}
	return trees, nil
}
