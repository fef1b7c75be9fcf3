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

// Point is a location in the source file. Line and Col are 1-based, unlike
// the 0-based rows and columns tree-sitter reports.
type Point struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

// Node is a captured syntax tree fragment in the shape rule code sees it.
// Nodes are read-only after construction.
type Node struct {
	AstType   string  `json:"astType"`
	Start     Point   `json:"start"`
	End       Point   `json:"end"`
	FieldName *string `json:"fieldName"`
	Children  []*Node `json:"children"`
}

// MatchNode is a single query match: the mapping from capture name to the
// node the capture bound, plus the context slot rule code may read. The file
// context is merged into Context right before the rule's visit function runs.
type MatchNode struct {
	Captures map[string]*Node       `json:"captures"`
	Context  map[string]interface{} `json:"context"`
}

// NewNode converts a tree-sitter node, and recursively its named children,
// into the serializable shape. fieldName is the field the node occupies in
// its parent, empty when it has none.
func NewNode(node *treesitter.Node, fieldName string) *Node {
	start := node.StartPoint()
	end := node.EndPoint()

	n := &Node{
		AstType: node.Type(),
		Start: Point{
			Line: start.Row + 1, // tree-sitter row start at 0.
			Col:  start.Column + 1,
		},
		End: Point{
			Line: end.Row + 1,
			Col:  end.Column + 1,
		},
		Children: []*Node{},
	}

	if fieldName != "" {
		n.FieldName = &fieldName
	}

	for idx := 0; idx < int(node.ChildCount()); idx++ {
		child := node.Child(idx)
		if child == nil || !child.IsNamed() {
			continue
		}

		n.Children = append(n.Children, NewNode(child, node.FieldNameForChild(idx)))
	}

	return n
}
