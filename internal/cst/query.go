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

package cst

import (
	treesitter "github.com/smacker/go-tree-sitter"
)

// GetQueryNodes runs a compiled query against tree and returns one MatchNode
// per match, in the order tree-sitter produces them. Query predicates such as
// #eq? and #match? are evaluated here, matches that do not satisfy them never
// reach rule code.
//
// When a capture name binds more than once within a single match the last
// binding wins. Unnamed syntax nodes can be captured; captures are keyed by
// the query alias, not by node identity.
func GetQueryNodes(
	tree *Tree,
	query *treesitter.Query,
	filename string,
	arguments map[string]string,
) []*MatchNode {
	cursor := treesitter.NewQueryCursor()
	defer cursor.Close()

	cursor.Exec(query, tree.RootNode())

	var nodes []*MatchNode

	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}

		match = cursor.FilterPredicates(match, tree.Source())
		if len(match.Captures) == 0 {
			continue
		}

		captures := make(map[string]*Node, len(match.Captures))
		for _, capture := range match.Captures {
			name := query.CaptureNameForId(capture.Index)
			captures[name] = NewNode(capture.Node, "")
		}

		nodes = append(nodes, &MatchNode{
			Captures: captures,
			Context:  newMatchContext(tree, filename, arguments),
		})
	}

	return nodes
}

// newMatchContext builds the per-match context slot. Rule code reads the
// source through node.context.code and the resolved rule arguments through
// node.context.arguments.
func newMatchContext(tree *Tree, filename string, arguments map[string]string) map[string]interface{} {
	args := make(map[string]interface{}, len(arguments))
	for name, value := range arguments {
		args[name] = value
	}

	return map[string]interface{}{
		"code":      string(tree.Source()),
		"filename":  filename,
		"arguments": args,
	}
}
