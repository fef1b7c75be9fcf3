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

// Package cst wraps tree-sitter: it parses source code into a concrete
// syntax tree and runs compiled queries against it, producing the match
// nodes handed to rule code.
package cst

import (
	"context"
	"fmt"

	treesitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/dockerfile"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/hcl"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/amaanq/datadog-static-analyzer/languages"
)

// Grammar returns the tree-sitter grammar used to parse language.
//
// Two languages ride on a neighbor grammar: Starlark is parsed with the
// Python grammar (it is a syntactic subset of Python) and JSON with the YAML
// grammar (YAML 1.2 is a superset of JSON).
func Grammar(language languages.Language) (*treesitter.Language, error) {
	switch language {
	case languages.Python, languages.Starlark:
		return python.GetLanguage(), nil
	case languages.Dockerfile:
		return dockerfile.GetLanguage(), nil
	case languages.Ruby:
		return ruby.GetLanguage(), nil
	case languages.Terraform:
		return hcl.GetLanguage(), nil
	case languages.Yaml, languages.Json:
		return yaml.GetLanguage(), nil
	case languages.Bash:
		return bash.GetLanguage(), nil
	case languages.Javascript:
		return javascript.GetLanguage(), nil
	case languages.Typescript:
		return typescript.GetLanguage(), nil
	case languages.Go:
		return golang.GetLanguage(), nil
	case languages.Rust:
		return rust.GetLanguage(), nil
	case languages.CSharp:
		return csharp.GetLanguage(), nil
	case languages.Java:
		return java.GetLanguage(), nil
	case languages.Kotlin:
		return kotlin.GetLanguage(), nil
	case languages.Swift:
		return swift.GetLanguage(), nil
	case languages.PHP:
		return php.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("invalid language %s", language)
	}
}

// TSXGrammar is exported for callers that analyze .tsx sources explicitly.
func TSXGrammar() *treesitter.Language {
	return tsx.GetLanguage()
}

// Tree holds a parsed syntax tree together with the source code used to
// create it. The source is needed to resolve node values and to evaluate
// query predicates.
type Tree struct {
	tree *treesitter.Tree
	src  []byte
}

// Parse parses src into a syntax tree for the given language.
func Parse(src []byte, language languages.Language) (*Tree, error) {
	grammar, err := Grammar(language)
	if err != nil {
		return nil, err
	}

	parser := treesitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	return &Tree{
		tree: tree,
		src:  src,
	}, nil
}

// RootNode returns the root node of the tree.
func (t *Tree) RootNode() *treesitter.Node {
	return t.tree.RootNode()
}

// Source returns the source code the tree was parsed from.
func (t *Tree) Source() []byte {
	return t.src
}

// Close releases the resources held by the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// CompileQuery compiles a tree-sitter query string against the grammar of
// language. Compilation failures surface at rule load time, never during
// analysis.
func CompileQuery(query string, language languages.Language) (*treesitter.Query, error) {
	grammar, err := Grammar(language)
	if err != nil {
		return nil, err
	}

	compiled, err := treesitter.NewQuery([]byte(query), grammar)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	return compiled, nil
}
