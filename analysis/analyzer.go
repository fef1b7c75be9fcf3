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
	"os"

	"github.com/sirupsen/logrus"

	engine "github.com/amaanq/datadog-static-analyzer"
	"github.com/amaanq/datadog-static-analyzer/arguments"
	"github.com/amaanq/datadog-static-analyzer/languages"
)

// Analyzer implements engine.FileAnalyzer over a loaded rule set. Rules are
// grouped by language at construction; a file is analyzed with the rules of
// the language its path maps to, and files of unsupported or unconfigured
// languages produce no results.
type Analyzer struct {
	rules    map[languages.Language][]*engine.Rule
	provider *arguments.Provider
	options  engine.AnalysisOptions
}

// NewAnalyzer groups rules by language and returns an analyzer ready to be
// passed to engine.Run. A nil provider is replaced by an empty one.
func NewAnalyzer(rules []*engine.Rule, provider *arguments.Provider, options engine.AnalysisOptions) *Analyzer {
	if provider == nil {
		provider = arguments.NewProvider()
	}

	byLanguage := map[languages.Language][]*engine.Rule{}
	for _, rule := range rules {
		byLanguage[rule.Language] = append(byLanguage[rule.Language], rule)
	}

	if options.UseDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	return &Analyzer{
		rules:    byLanguage,
		provider: provider,
		options:  options,
	}
}

// Analyze reads the file and runs the rules of its language against it.
func (a *Analyzer) Analyze(path string) ([]engine.RuleResult, error) {
	language, ok := languages.FromPath(path)
	if !ok {
		return nil, nil
	}

	rules := a.rules[language]
	if len(rules) == 0 {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Analyze(language, rules, path, string(content), a.provider, a.options), nil
}
