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

package config

import (
	"github.com/amaanq/datadog-static-analyzer/arguments"
)

// NewArgumentProvider builds the argument provider from the parsed
// configuration. Rule names are qualified as ruleset/rule-name, the form the
// analysis pipeline looks them up with.
func NewArgumentProvider(cfg *ConfigFile) *arguments.Provider {
	provider := arguments.NewProvider()

	if cfg == nil {
		return provider
	}

	for rulesetName, ruleset := range cfg.Rulesets {
		for ruleName, rule := range ruleset.Rules {
			qualified := rulesetName + "/" + ruleName

			for argument, values := range rule.Arguments {
				if values.DefaultValue != nil {
					provider.AddArgument(qualified, "", argument, *values.DefaultValue)
				}

				for path, value := range values.BySubtree {
					provider.AddArgument(qualified, path, argument, value)
				}
			}
		}
	}

	return provider
}
