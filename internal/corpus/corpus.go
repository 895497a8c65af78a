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

// Package corpus runs file-system-driven parser tests: each input file in
// a corpus directory is parsed, and its outputs (tree dumps, error
// listings) are compared against golden files next to it.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// A Corpus describes a directory of parser test cases. This is table-driven
// testing where the "table" is the file system.
type Corpus struct {
	// The root of the test data directory, relative to the file that calls
	// [Corpus.Run].
	Root string

	// An environment variable which, when set (to anything non-empty),
	// rewrites the golden output files instead of comparing against them.
	// The run is marked failed so refreshed goldens are never mistaken for
	// a passing run.
	Refresh string

	// The file extension (without a dot) of files which define a test
	// case.
	Extension string

	// Possible outputs of the test, found via Outputs[n].Extension. A
	// missing output file is treated as expecting the empty string.
	Outputs []Output

	// Test executes one test case and returns one string per element of
	// Outputs.
	Test func(t *testing.T, path, text string) []string
}

func (c Corpus) Run(t *testing.T) {
	testDir := callerDir(0)
	root := filepath.Join(testDir, c.Root)
	t.Logf("corpus: searching for files in %q", root)

	var tests []string
	err := filepath.Walk(root, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && strings.TrimPrefix(path.Ext(p), ".") == c.Extension {
			tests = append(tests, p)
		}
		return nil
	})
	if err != nil {
		t.Fatal("corpus: error while walking testdata:", err)
	}

	refresh := c.Refresh != "" && os.Getenv(c.Refresh) != ""
	if refresh {
		t.Logf("corpus: refreshing golden files because %s is set", c.Refresh)
		t.Fail()
	}

	for _, p := range tests {
		name, _ := filepath.Rel(testDir, p)
		t.Run(name, func(t *testing.T) {
			input, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("corpus: error while loading input file %q: %v", p, err)
			}

			results := c.Test(t, name, string(input))

			for i, output := range c.Outputs {
				goldenPath := fmt.Sprint(p, ".", output.Extension)

				if refresh {
					if results[i] == "" {
						err := os.Remove(goldenPath)
						if err != nil && !errors.Is(err, os.ErrNotExist) {
							t.Logf("corpus: error while deleting golden file %q: %v", goldenPath, err)
							t.Fail()
						}
					} else if err := os.WriteFile(goldenPath, []byte(results[i]), 0o660); err != nil {
						t.Logf("corpus: error while writing golden file %q: %v", goldenPath, err)
						t.Fail()
					}
					continue
				}

				want, err := os.ReadFile(goldenPath)
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					t.Logf("corpus: error while loading golden file %q: %v", goldenPath, err)
					t.Fail()
					continue
				}

				cmp := output.Compare
				if cmp == nil {
					cmp = defaultCompare
				}
				if msg := cmp(results[i], string(want)); msg != "" {
					t.Logf("output mismatch for %q:\n%s", goldenPath, msg)
					t.Fail()
				}
			}
		})
	}
}

// Output represents one output of a test case. Its Extension is a suffix on
// the test case's file name: for Corpus.Extension "src" and Extension
// "tree", the golden for "foo.src" is "foo.src.tree".
type Output struct {
	Extension string

	// Compare may be nil, in which case values are compared byte-for-byte
	// with a unified diff on mismatch.
	Compare Compare
}

// Compare is a comparison function between strings, used in [Output]. It
// returns the empty string on a match and an error message otherwise.
type Compare func(got, want string) string

func defaultCompare(got, want string) string {
	if got == want {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}

	// Colorize the diff so it's easier to read.
	lines := strings.Split(diff, "\n")
	for i := range lines {
		s := lines[i]
		if strings.HasPrefix(s, "+") {
			lines[i] = "\033[1;92m" + s + "\033[0m"
		} else if strings.HasPrefix(s, "-") {
			lines[i] = "\033[1;91m" + s + "\033[0m"
		}
	}

	return strings.Join(lines, "\n")
}

func callerDir(skip int) string {
	_, file, _, ok := runtime.Caller(skip + 2)
	if !ok {
		panic("corpus: could not determine test file's directory")
	}
	return filepath.Dir(file)
}
