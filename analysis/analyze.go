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

// Package analysis runs the rule execution pipeline over single files:
// generated file gate, suppression parsing, tree parsing, then per rule
// query, script execution with a wall-clock budget, and violation filtering.
package analysis

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	engine "github.com/amaanq/datadog-static-analyzer"
	"github.com/amaanq/datadog-static-analyzer/arguments"
	"github.com/amaanq/datadog-static-analyzer/internal/cst"
	"github.com/amaanq/datadog-static-analyzer/internal/javascript"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

// ExecutionTimeout is the wall-clock budget of one rule execution. A rule
// exceeding it is forcibly halted and reported with a rule-timeout error.
const ExecutionTimeout = 5000 * time.Millisecond

// runtimePool recycles script runtimes across file analyses. A runtime is
// never used by two executions at once; each analysis takes one, runs its
// rules on it sequentially and puts it back.
var runtimePool = sync.Pool{
	New: func() interface{} {
		runtime, err := javascript.NewRuntime()
		if err != nil {
			logrus.WithError(err).Error("failed to build script runtime")
			return nil
		}
		return runtime
	},
}

// Analyze evaluates rules against one file using a pooled script runtime.
// Results come back in rule order, one per rule. See AnalyzeWith.
func Analyze(
	language languages.Language,
	rules []*engine.Rule,
	filename, code string,
	provider *arguments.Provider,
	options engine.AnalysisOptions,
) []engine.RuleResult {
	pooled := runtimePool.Get()
	if pooled == nil {
		return nil
	}

	runtime := pooled.(*javascript.Runtime)
	defer runtimePool.Put(runtime)

	return AnalyzeWith(runtime, language, rules, filename, code, provider, options)
}

// AnalyzeWith evaluates rules against one file on a caller supplied runtime.
//
// Generated files are skipped entirely when the options ask for it, and so
// are files the grammar cannot parse. Each rule failure is isolated: it
// produces a result carrying one error kind and never aborts the other rules
// of the file.
// nolint:funlen // the pipeline reads best as one sequence
func AnalyzeWith(
	runtime *javascript.Runtime,
	language languages.Language,
	rules []*engine.Rule,
	filename, code string,
	provider *arguments.Provider,
	options engine.AnalysisOptions,
) []engine.RuleResult {
	if provider == nil {
		provider = arguments.NewProvider()
	}

	if options.IgnoreGeneratedFiles && IsGeneratedFile(code, language) {
		if options.UseDebug {
			logrus.Infof("Skipping generated file %s", filename)
		}
		return nil
	}

	linesToIgnore := ParseLinesToIgnore(code, language)

	parseStart := time.Now()
	tree, err := cst.Parse([]byte(code), language)
	if err != nil {
		if options.UseDebug {
			logrus.Infof("error when parsing source file %s", filename)
		}
		return nil
	}
	defer tree.Close()
	parsingTime := time.Since(parseStart)

	fileContext := buildFileContext(tree, language)

	results := make([]engine.RuleResult, 0, len(rules))

	for _, rule := range rules {
		if options.UseDebug {
			logrus.Infof("Apply rule %s file %s", rule.Name, filename)
		}

		queryStart := time.Now()
		matchNodes := cst.GetQueryNodes(tree, rule.TreeSitterQuery, filename, provider.GetArguments(filename, rule.Name))
		queryTime := time.Since(queryStart)

		executionStart := time.Now()
		violations, consoleLines, execErr := runtime.Execute(rule, matchNodes, filename, fileContext, ExecutionTimeout)
		executionTime := time.Since(executionStart)

		result := engine.RuleResult{
			RuleName:        rule.Name,
			Filename:        filename,
			Violations:      []engine.Violation{},
			Errors:          []string{},
			ExecutionTimeMs: executionTime.Milliseconds(),
			ParsingTimeMs:   parsingTime.Milliseconds(),
			QueryNodeTimeMs: queryTime.Milliseconds(),
		}

		if execErr != nil {
			kind, reason := classifyExecutionError(execErr)
			result.Errors = append(result.Errors, kind)
			result.ExecutionError = reason

			if options.UseDebug {
				if kind == engine.ErrorRuleTimeout {
					logrus.Infof("rule:file %s:%s TIMED OUT (%d ms)", rule.Name, filename, ExecutionTimeout.Milliseconds())
				} else {
					logrus.Infof("rule:file %s:%s execution error, message: %s", rule.Name, filename, reason)
				}
			}
		} else {
			for _, violation := range violations {
				if !linesToIgnore.ShouldFilterRule(rule.Name, violation.Start.Line) {
					result.Violations = append(result.Violations, violation)
				}
			}

			if options.LogOutput && len(consoleLines) > 0 {
				result.Output = strings.Join(consoleLines, "\n")
			}
		}

		results = append(results, result)
	}

	return results
}

// classifyExecutionError maps a runtime failure to the stable error kind tag
// and the human readable reason. Timeouts carry no reason.
func classifyExecutionError(err error) (kind, reason string) {
	switch e := err.(type) {
	case *javascript.TimeoutError:
		return engine.ErrorRuleTimeout, ""
	case *javascript.InterpreterError:
		return engine.ErrorRuleExecution, e.Reason
	case *javascript.ExecutionError:
		return engine.ErrorRuleExecution, e.Reason
	case *javascript.UnexpectedReturnError:
		return engine.ErrorRuleExecution, e.Reason
	default:
		return engine.ErrorRuleExecution, err.Error()
	}
}
