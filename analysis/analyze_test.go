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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/amaanq/datadog-static-analyzer"
	"github.com/amaanq/datadog-static-analyzer/arguments"
	"github.com/amaanq/datadog-static-analyzer/internal/utils/testutil"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

const reportFunctionNameRule = `
function visit(node, filename, code) {
    const functionName = node.captures["name"];
    if(functionName) {
        const error = buildError(functionName.start.line, functionName.start.col, functionName.end.line, functionName.end.col,
                                 "invalid name", "CRITICAL", "security");

        const edit = buildEdit(functionName.start.line, functionName.start.col, functionName.end.line, functionName.end.col, "update", "bar");
        const fix = buildFix("use bar", [edit]);
        addError(error.addFix(fix));
    }
}
`

func TestAnalyzeReportsViolation(t *testing.T) {
	rule := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, reportFunctionNameRule)

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		testutil.PythonFunction,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 1)
	require.Len(t, results[0].Violations, 1)

	violation := results[0].Violations[0]
	assert.Equal(t, engine.Position{Line: 2, Col: 5}, violation.Start)
	assert.Equal(t, engine.Position{Line: 2, Col: 8}, violation.End)
	assert.Equal(t, "invalid name", violation.Message)
	assert.Equal(t, engine.CategoryCodeStyle, violation.Category)
	assert.Equal(t, engine.SeverityNotice, violation.Severity)
	assert.Empty(t, results[0].Errors)
}

// execute two rules and check that both rules are executed and their
// respective results reported, in order.
func TestAnalyzeTwoRulesExecuted(t *testing.T) {
	ruleCode2 := `
function visit(node, filename, code) {
    const functionName = node.captures["name"];
    if(functionName) {
        const error = buildError(functionName.start.line, functionName.start.col, functionName.end.line, functionName.end.col,
                                 "invalid name", "CRITICAL", "security");

        const edit = buildEdit(functionName.start.line, functionName.start.col, functionName.end.line, functionName.end.col, "update", "baz");
        const fix = buildFix("use baz", [edit]);
        addError(error.addFix(fix));
    }
}
`

	rule1 := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, reportFunctionNameRule)
	rule2 := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, ruleCode2)

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule1, rule2},
		"myfile.py",
		testutil.PythonFunction,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 2)
	require.Len(t, results[0].Violations, 1)
	require.Len(t, results[1].Violations, 1)

	require.Len(t, results[0].Violations[0].Fixes, 1)
	require.Len(t, results[0].Violations[0].Fixes[0].Edits, 1)
	require.NotNil(t, results[0].Violations[0].Fixes[0].Edits[0].Content)
	assert.Equal(t, "bar", *results[0].Violations[0].Fixes[0].Edits[0].Content)

	require.Len(t, results[1].Violations, 1)
	require.NotNil(t, results[1].Violations[0].Fixes[0].Edits[0].Content)
	assert.Equal(t, "baz", *results[1].Violations[0].Fixes[0].Edits[0].Content)
}

// a no-dd-sa directive above the function suppresses the violation reported
// on it.
func TestAnalyzeViolationIgnore(t *testing.T) {
	code := "\n# no-dd-sa\ndef foo(arg1):\n    pass\n"

	rule := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, reportFunctionNameRule)

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 1)
	assert.Empty(t, results[0].Violations)
	assert.Empty(t, results[0].Errors)
}

// a file starting with no-dd-sa produces zero violations for any rule.
func TestAnalyzeFileWideIgnore(t *testing.T) {
	code := "#no-dd-sa\ndef foo(arg1):\n    pass\n"

	rule := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, reportFunctionNameRule)

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 1)
	assert.Empty(t, results[0].Violations)
	assert.Empty(t, results[0].Errors)
}

func TestAnalyzeCaptureUnnamedNodes(t *testing.T) {
	ruleCode := `
function visit(node, filename, code) {

    const el = node.captures["less_than"];
    if(el) {
        const error = buildError(el.start.line, el.start.col, el.end.line, el.end.col,
                                 "do not use less than", "CRITICAL", "security");
        addError(error);
    }
}
`

	query := `
(
    (for_statement
        condition: (_
            (binary_expression
                left: (identifier)
                operator: [
                    "<" @less_than
                    "<=" @less_than
                    ">" @more_than
                    ">=" @more_than
                ]
            )
        )
    )
)
`

	code := "\nfor(var i = 0; i <= 10; i--){}\n"

	rule := testutil.NewRule(t, "myrule", languages.Javascript, query, ruleCode)

	results := Analyze(
		languages.Javascript,
		[]*engine.Rule{rule},
		"myfile.js",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 1)
	require.Len(t, results[0].Violations, 1)
	assert.Equal(t, "do not use less than", results[0].Violations[0].Message)
}

// do not execute the visit function when there is no match
func TestAnalyzeNoUnnecessaryExecute(t *testing.T) {
	ruleCode := `
function visit(node, filename, code) {

    console.log("bla");
}
`

	query := `
    (for_statement) @for_statement
    (#eq? @for_statement "bla")
`

	code := "\ndef foo():\n  print(\"bar\")\n"

	rule := testutil.NewRule(t, "myrule", languages.Python, query, ruleCode)

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{LogOutput: true},
	)

	require.Len(t, results, 1)
	assert.Empty(t, results[0].Output)
	assert.Empty(t, results[0].Violations)
}

func TestAnalyzeArgumentValues(t *testing.T) {
	ruleCode := `
function visit(node, filename, code) {
    const functionName = node.captures["name"];
    const argumentValue = node.context.arguments['my-argument'];
    if (argumentValue !== undefined) {
        const error = buildError(
            functionName.start.line, functionName.start.col,
            functionName.end.line, functionName.end.col,
            ` + "`argument = ${argumentValue}`" + `);
        addError(error);
    }
}
`

	rule1 := testutil.NewRule(t, "rule1", languages.Python, testutil.FunctionNameQuery, ruleCode)
	rule2 := testutil.NewRule(t, "rule2", languages.Python, testutil.FunctionNameQuery, ruleCode)

	provider := arguments.NewProvider()
	provider.AddArgument("rule1", "myfile.py", "my-argument", "101")
	provider.AddArgument("rule1", "myfile.py", "another-arg", "101")

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule1, rule2},
		"myfile.py",
		testutil.PythonFunction,
		provider,
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 2)
	require.Len(t, results[0].Violations, 1)
	assert.Contains(t, results[0].Violations[0].Message, "argument = 101")
	assert.Empty(t, results[1].Violations)
}

func TestAnalyzeGoFileContext(t *testing.T) {
	code := `
import (
    "math/rand"
    crand1 "crypto/rand"
    crand2 "crypto/rand"
)

func main () {

}
`

	ruleCode := `
function visit(node, filename, code) {
    const n = node.captures["func"];
    console.log(node.context.packages);
    if(node.context.packages.includes("math/rand")) {
        const error = buildError(n.start.line, n.start.col, n.end.line, n.end.col, "invalid name", "CRITICAL", "security");
        addError(error);
    }
}
`

	rule := testutil.NewRule(t, "myrule", languages.Go, `(function_declaration) @func`, ruleCode)

	results := Analyze(
		languages.Go,
		[]*engine.Rule{rule},
		"myfile.go",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{LogOutput: true},
	)

	require.Len(t, results, 1)
	require.Len(t, results[0].Violations, 1)
	assert.Contains(t, results[0].Output, `"math/rand"`)
	assert.Contains(t, results[0].Output, `"crypto/rand"`)
}

func TestAnalyzeStarlark(t *testing.T) {
	ruleCode := `
function visit(query, filename, code) {
    const functionName = query.captures.name;
    if (functionName) {
        const error = buildError(
            functionName.start.line, functionName.start.col,
            functionName.end.line, functionName.end.col,
            "invalid name"
        );
        addError(error);
    }
}
`

	code := "\ndef foo():\n    pass\n"

	rule := testutil.NewRule(t, "rule1", languages.Starlark, testutil.FunctionNameQuery, ruleCode)

	results := Analyze(
		languages.Starlark,
		[]*engine.Rule{rule},
		"myfile.star",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 1)
	require.Len(t, results[0].Violations, 1)
	assert.Equal(t, "invalid name", results[0].Violations[0].Message)
}

func TestAnalyzeSkipsGeneratedFile(t *testing.T) {
	code := "// Code generated by MockGen\nfunc main(){}\n"

	rule := testutil.NewRule(t, "myrule", languages.Go, `(function_declaration) @func`, reportFunctionNameRule)

	results := Analyze(
		languages.Go,
		[]*engine.Rule{rule},
		"myfile.go",
		code,
		arguments.NewProvider(),
		engine.AnalysisOptions{IgnoreGeneratedFiles: true},
	)

	assert.Empty(t, results)
}

// a rule that never returns is halted by the watchdog and reported with a
// single rule-timeout error and no execution error.
func TestAnalyzeInfiniteLoopInRule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full execution budget")
	}

	ruleCode := `
function visit(node, filename, code) {

    var foo = 10;
    while(true) {
      const a = foo + 12;
      const b = a - 12;
      foo = b;
    }
}
`

	rule := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, ruleCode)

	results := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		testutil.PythonFunction,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, results, 1)
	assert.Empty(t, results[0].Violations)
	assert.Equal(t, []string{engine.ErrorRuleTimeout}, results[0].Errors)
	assert.Empty(t, results[0].ExecutionError)
}

// running the same analysis twice yields identical violations and errors.
func TestAnalyzeIsDeterministic(t *testing.T) {
	rule := testutil.NewRule(t, "myrule", languages.Python, testutil.FunctionNameQuery, reportFunctionNameRule)

	first := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		testutil.PythonFunction,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)
	second := Analyze(
		languages.Python,
		[]*engine.Rule{rule},
		"myfile.py",
		testutil.PythonFunction,
		arguments.NewProvider(),
		engine.AnalysisOptions{},
	)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Violations, second[0].Violations)
	assert.Equal(t, first[0].Errors, second[0].Errors)
	assert.Equal(t, first[0].Output, second[0].Output)
}
