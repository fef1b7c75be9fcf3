// Copyright 2020 ZUP IT SERVICOS EM TECNOLOGIA E INOVACAO SA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/amaanq/datadog-static-analyzer/config"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

const (
	// defaultPoolSize is the number of analysis workers used when the caller
	// does not ask for a specific pool size.
	defaultPoolSize = 10

	// workerExpiry is the interval after which idle analysis workers are
	// reclaimed.
	workerExpiry = 10 * time.Second
)

// FileAnalyzer evaluates the loaded rules against a single file and returns
// one result per (rule, file) pair. Implementations read the file themselves
// and are expected to return no results for files they do not handle.
type FileAnalyzer interface {
	Analyze(path string) ([]RuleResult, error)
}

// Engine drives an analysis over a project tree: it selects which files are
// worth analyzing and fans the per file work out over a worker pool.
type Engine struct {
	poolSize      int
	paths         config.PathConfig
	maxFileSizeKb uint64
}

// NewEngine creates an engine. paths carries the only/ignore filters of the
// configuration file, applied to paths relative to the project root, and
// maxFileSizeKb caps the size of analyzed files, zero meaning no cap. A
// poolSize of zero or less selects the default.
func NewEngine(poolSize int, paths config.PathConfig, maxFileSizeKb uint64) *Engine {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	return &Engine{
		poolSize:      poolSize,
		paths:         paths,
		maxFileSizeKb: maxFileSizeKb,
	}
}

// Run selects the analyzable files under projectPath and runs every analyzer
// against each of them on a pool of goroutines. An analyzer failure does not
// stop the analysis of the other files; the first failure is returned
// together with the results of every file that was analyzed successfully.
//
// Rules within one file are evaluated in the order the analyzer holds them;
// no ordering is promised across files.
func (e *Engine) Run(ctx context.Context, projectPath string, analyzers ...FileAnalyzer) ([]RuleResult, error) {
	paths, err := e.collectFiles(projectPath)
	if err != nil {
		return nil, err
	}

	workerPool, err := ants.NewPool(e.poolSize, ants.WithOptions(ants.Options{ExpiryDuration: workerExpiry}))
	if err != nil {
		return nil, err
	}

	defer workerPool.Release()

	var (
		mutex   sync.Mutex
		results []RuleResult
	)

	group, _ := errgroup.WithContext(ctx)

	wg := sync.WaitGroup{}
	wg.Add(len(paths))

	for _, path := range paths {
		pathCopy := path

		errSubmit := workerPool.Submit(func() {
			group.Go(func() error {
				defer wg.Done()

				newResults, errAnalyze := e.analyzeFile(analyzers, pathCopy)
				if errAnalyze != nil {
					return errAnalyze
				}

				mutex.Lock()
				results = append(results, newResults...)
				mutex.Unlock()

				return nil
			})
		})
		if errSubmit != nil {
			return nil, errSubmit
		}
	}

	wg.Wait()
	err = group.Wait()

	return results, err
}

func (e *Engine) analyzeFile(analyzers []FileAnalyzer, path string) ([]RuleResult, error) {
	var results []RuleResult

	for _, analyzer := range analyzers {
		r, err := analyzer.Analyze(path)
		if err != nil {
			return nil, err
		}

		results = append(results, r...)
	}

	return results, nil
}

// collectFiles walks the project tree and keeps the files the engine should
// analyze: regular files of a supported language that pass the configured
// only/ignore filters and the size cap. Symlinks and everything under a .git
// directory are skipped.
func (e *Engine) collectFiles(projectPath string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(projectPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.Type() == fs.ModeSymlink {
			return nil
		}

		// dispatching is by language, not raw extension: files no grammar
		// covers are never read
		if _, ok := languages.FromPath(path); !ok {
			return nil
		}

		rel, errRel := filepath.Rel(projectPath, path)
		if errRel != nil {
			return errRel
		}

		if !e.paths.Matches(filepath.ToSlash(rel)) {
			return nil
		}

		if e.maxFileSizeKb > 0 {
			info, errInfo := entry.Info()
			if errInfo != nil {
				return errInfo
			}

			if uint64(info.Size()) > e.maxFileSizeKb*1024 {
				return nil
			}
		}

		paths = append(paths, path)

		return nil
	})

	return paths, err
}
