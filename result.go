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
	"encoding/json"
	"fmt"
)

// Stable error kind tags reported in RuleResult.Errors.
const (
	ErrorRuleExecution = "rule-execution-error"
	ErrorRuleTimeout   = "rule-timeout"
)

// Position is a location in a source file. Line and Col are 1-based.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// EditKind says how an edit changes the source range it covers.
type EditKind string

const (
	EditKindAdd    EditKind = "ADD"
	EditKindRemove EditKind = "REMOVE"
	EditKindUpdate EditKind = "UPDATE"
)

// Edit is a single change inside a fix. ADD and UPDATE edits carry the
// content to insert, REMOVE edits must not.
type Edit struct {
	Start   Position `json:"start"`
	End     Position `json:"end"`
	Kind    EditKind `json:"editType"`
	Content *string  `json:"content,omitempty"`
}

// UnmarshalJSON validates the edit shape produced by rule code: the kind must
// be one of the closed set and the content must be consistent with it.
func (e *Edit) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start   Position `json:"start"`
		End     Position `json:"end"`
		Kind    *string  `json:"editType"`
		Content *string  `json:"content"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Kind == nil {
		return fmt.Errorf("missing field `editType`")
	}

	kind := EditKind(*raw.Kind)
	switch kind {
	case EditKindAdd, EditKindRemove, EditKindUpdate:
	default:
		return fmt.Errorf("unknown variant `%s`, expected one of `ADD`, `REMOVE`, `UPDATE`", *raw.Kind)
	}

	if kind == EditKindRemove && raw.Content != nil {
		return fmt.Errorf("edit of kind `REMOVE` does not take a content")
	}

	if kind != EditKindRemove && raw.Content == nil {
		return fmt.Errorf("edit of kind `%s` requires a content", kind)
	}

	e.Start = raw.Start
	e.End = raw.End
	e.Kind = kind
	e.Content = raw.Content

	return nil
}

// Fix is an ordered set of edits the tooling may apply to resolve a
// violation. Fixes are reported, never applied by the engine.
type Fix struct {
	Description string `json:"description"`
	Edits       []Edit `json:"edits"`
}

// Violation is a structured report emitted by a rule for a source range.
// Category and severity always come from the rule that reported it.
type Violation struct {
	Start    Position     `json:"start"`
	End      Position     `json:"end"`
	Message  string       `json:"message"`
	Category RuleCategory `json:"category"`
	Severity RuleSeverity `json:"severity"`
	Fixes    []Fix        `json:"fixes"`
}

// RuleResult is the outcome of evaluating one rule against one file.
//
// On success Violations holds what the rule reported, already filtered by the
// in-source suppression directives, and Errors is empty. On failure Errors
// holds exactly one of the error kind tags and ExecutionError the engine's
// reason, empty for timeouts.
type RuleResult struct {
	RuleName        string      `json:"rule_name"`
	Filename        string      `json:"filename"`
	Violations      []Violation `json:"violations"`
	Errors          []string    `json:"errors"`
	ExecutionError  string      `json:"execution_error,omitempty"`
	Output          string      `json:"output,omitempty"`
	ExecutionTimeMs int64       `json:"execution_time_ms"`
	ParsingTimeMs   int64       `json:"parsing_time_ms"`
	QueryNodeTimeMs int64       `json:"query_node_time_ms"`
}
