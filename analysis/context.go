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

package analysis

import (
	"sort"
	"strings"
	"sync"

	treesitter "github.com/smacker/go-tree-sitter"

	"github.com/amaanq/datadog-static-analyzer/internal/cst"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

// buildFileContext produces the per language enrichment merged into every
// match node before rule evaluation. Languages without a builder get an empty
// context.
func buildFileContext(tree *cst.Tree, language languages.Language) map[string]interface{} {
	if language == languages.Go {
		return goFileContext(tree)
	}

	return map[string]interface{}{}
}

var (
	goImportsQueryOnce sync.Once
	goImportsQuery     *treesitter.Query
)

// goFileContext exposes the imported package paths of a Go file: packages is
// the deduplicated, sorted list of import paths and packagesAliased maps each
// import alias to its path.
func goFileContext(tree *cst.Tree) map[string]interface{} {
	goImportsQueryOnce.Do(func() {
		goImportsQuery, _ = cst.CompileQuery("(import_spec) @spec", languages.Go)
	})

	packagesSet := map[string]bool{}
	aliased := map[string]interface{}{}

	if goImportsQuery != nil {
		cursor := treesitter.NewQueryCursor()
		defer cursor.Close()

		cursor.Exec(goImportsQuery, tree.RootNode())

		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}

			for _, capture := range match.Captures {
				path := capture.Node.ChildByFieldName("path")
				if path == nil {
					continue
				}

				importPath := trimStringQuotes(path.Content(tree.Source()))
				packagesSet[importPath] = true

				if name := capture.Node.ChildByFieldName("name"); name != nil {
					aliased[name.Content(tree.Source())] = importPath
				}
			}
		}
	}

	packages := make([]string, 0, len(packagesSet))
	for pkg := range packagesSet {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	return map[string]interface{}{
		"packages":        packages,
		"packagesAliased": aliased,
	}
}

func trimStringQuotes(value string) string {
	value = strings.TrimPrefix(value, `"`)
	value = strings.TrimPrefix(value, "`")
	value = strings.TrimSuffix(value, `"`)
	value = strings.TrimSuffix(value, "`")

	return value
}
