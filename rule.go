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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/amaanq/datadog-static-analyzer/internal/cst"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

// RuleCategory classifies what kind of problem a rule reports.
type RuleCategory string

const (
	CategoryBestPractices RuleCategory = "BEST_PRACTICES"
	CategoryCodeStyle     RuleCategory = "CODE_STYLE"
	CategoryErrorProne    RuleCategory = "ERROR_PRONE"
	CategoryPerformance   RuleCategory = "PERFORMANCE"
	CategorySecurity      RuleCategory = "SECURITY"
)

// RuleSeverity grades how important a violation reported by a rule is.
type RuleSeverity string

const (
	SeverityError   RuleSeverity = "ERROR"
	SeverityWarning RuleSeverity = "WARNING"
	SeverityNotice  RuleSeverity = "NOTICE"
	SeverityNone    RuleSeverity = "NONE"
)

// Rule couples a tree-sitter query with the JavaScript code that inspects
// each query match. The query selects the nodes of interest and the code
// defines a visit(node, filename, code) function that receives each match
// and may report violations through the runtime builders.
//
// Rules are immutable after loading; one rule may be evaluated against many
// files, from many goroutines, as long as each evaluation uses its own
// script runtime.
type Rule struct {
	Name             string
	ShortDescription string
	Description      string
	Category         RuleCategory
	Severity         RuleSeverity
	Language         languages.Language
	Code             string
	TreeSitterQuery  *sitter.Query
}

// NewRule compiles query against the grammar of language and returns the
// loaded rule. A query that does not compile is a load error; rules never
// reach analysis with a broken query.
func NewRule(
	name, shortDescription, description string,
	category RuleCategory,
	severity RuleSeverity,
	language languages.Language,
	code, query string,
) (*Rule, error) {
	compiled, err := cst.CompileQuery(query, language)
	if err != nil {
		return nil, fmt.Errorf("compile query of rule %s: %w", name, err)
	}

	return &Rule{
		Name:             name,
		ShortDescription: shortDescription,
		Description:      description,
		Category:         category,
		Severity:         severity,
		Language:         language,
		Code:             code,
		TreeSitterQuery:  compiled,
	}, nil
}
