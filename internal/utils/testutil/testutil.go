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

package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	engine "github.com/amaanq/datadog-static-analyzer"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

// FunctionNameQuery captures the name and parameters of a Python function
// definition. Most pipeline tests run rules against it.
const FunctionNameQuery = `
(function_definition
    name: (identifier) @name
  parameters: (parameters) @params
)
`

// PythonFunction is the source most pipeline tests analyze.
const PythonFunction = `
def foo(arg1):
    pass
`

// NewRule builds a loaded rule for tests, failing the test when the query
// does not compile.
func NewRule(t *testing.T, name string, language languages.Language, query, code string) *engine.Rule {
	t.Helper()

	rule, err := engine.NewRule(
		name,
		"short desc",
		"description",
		engine.CategoryCodeStyle,
		engine.SeverityNotice,
		language,
		code,
		query,
	)
	require.NoError(t, err, "Expected no error to compile rule query: %v", err)

	return rule
}
