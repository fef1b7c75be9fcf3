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

// Package config reads the static-analysis.datadog.yml configuration file:
// which rulesets run, which paths they cover and which argument values rules
// receive per subtree.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// configFileBaseName is the configuration file name without its extension.
// Both the .yml and .yaml spellings are recognized, .yml takes precedence.
const configFileBaseName = "static-analysis.datadog"

// PathConfig restricts which files a ruleset or rule applies to. A nil Only
// list means no restriction; Ignore always excludes.
type PathConfig struct {
	Only   []string
	Ignore []string
}

// Matches reports whether a file path passes the only/ignore filters.
// Patterns are doublestar globs; a pattern that is a plain path prefix
// matches every file under it.
func (p PathConfig) Matches(path string) bool {
	if p.Only != nil {
		matched := false
		for _, pattern := range p.Only {
			if matchesPattern(pattern, path) {
				matched = true
				break
			}
		}

		if !matched {
			return false
		}
	}

	for _, pattern := range p.Ignore {
		if matchesPattern(pattern, path) {
			return false
		}
	}

	return true
}

func matchesPattern(pattern, path string) bool {
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}

	return path == pattern || strings.HasPrefix(path, strings.TrimSuffix(pattern, "/")+"/")
}

// ArgumentValues holds the configured values of one rule argument: an
// optional default and overrides keyed by path prefix. The scalar shorthand
// `argument: value` sets just the default.
type ArgumentValues struct {
	DefaultValue *string
	BySubtree    map[string]string
}

// UnmarshalYAML accepts either a scalar (the default value) or a mapping
// with default_value and by_subtree keys. Scalars keep their literal source
// form, numbers included.
func (a *ArgumentValues) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		value := node.Value
		a.DefaultValue = &value
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: argument must be a scalar or a map", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		value := node.Content[i+1]

		switch key.Value {
		case "default_value":
			if value.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: default_value must be a scalar", value.Line)
			}
			v := value.Value
			a.DefaultValue = &v
		case "by_subtree":
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: by_subtree must be a map", value.Line)
			}
			a.BySubtree = map[string]string{}
			for j := 0; j+1 < len(value.Content); j += 2 {
				a.BySubtree[value.Content[j].Value] = value.Content[j+1].Value
			}
		default:
			return fmt.Errorf("line %d: unknown argument key %q", key.Line, key.Value)
		}
	}

	return nil
}

// RuleConfig is the configuration of a single rule within a ruleset.
type RuleConfig struct {
	Paths     PathConfig
	Arguments map[string]ArgumentValues
}

// UnmarshalYAML decodes a rule configuration. A null value is a valid empty
// configuration.
func (r *RuleConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}

	var raw struct {
		Only      *[]string                 `yaml:"only"`
		Ignore    []string                  `yaml:"ignore"`
		Arguments map[string]ArgumentValues `yaml:"arguments"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.Only != nil {
		r.Paths.Only = *raw.Only
	}
	r.Paths.Ignore = raw.Ignore
	r.Arguments = raw.Arguments

	return nil
}

// RulesetConfig is the configuration of one ruleset: its path filters and
// its per rule configurations.
type RulesetConfig struct {
	Paths PathConfig
	Rules map[string]RuleConfig
}

// UnmarshalYAML decodes a ruleset configuration. Rules must be a mapping,
// never a list, and a rule may not be configured twice.
func (r *RulesetConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: ruleset configuration must be a map", node.Line)
	}

	var raw struct {
		Only   *[]string `yaml:"only"`
		Ignore []string  `yaml:"ignore"`
		Rules  yaml.Node `yaml:"rules"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.Only != nil {
		r.Paths.Only = *raw.Only
	}
	r.Paths.Ignore = raw.Ignore

	rules, err := parseRules(&raw.Rules)
	if err != nil {
		return err
	}
	r.Rules = rules

	return nil
}

func parseRules(node *yaml.Node) (map[string]RuleConfig, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return map[string]RuleConfig{}, nil
	}

	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: rules must be a map from rule name to configuration", node.Line)
	}

	rules := map[string]RuleConfig{}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		if _, found := rules[name]; found {
			return nil, fmt.Errorf("line %d: rule %q is configured twice", node.Content[i].Line, name)
		}

		var cfg RuleConfig
		if err := node.Content[i+1].Decode(&cfg); err != nil {
			return nil, err
		}

		rules[name] = cfg
	}

	return rules, nil
}

// ConfigFile is the parsed configuration document.
type ConfigFile struct {
	Rulesets        map[string]RulesetConfig
	Paths           PathConfig
	IgnoreGitignore *bool
	MaxFileSizeKb   *uint64
}

// UnmarshalYAML decodes the top level document. The rulesets key accepts a
// mapping, a list of names, or a mixed list of names and single-entry maps;
// duplicate ruleset names are rejected in every form. The ignore-paths list
// is merged into ignore.
func (c *ConfigFile) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Rulesets        yaml.Node `yaml:"rulesets"`
		Only            *[]string `yaml:"only"`
		Ignore          []string  `yaml:"ignore"`
		IgnorePaths     []string  `yaml:"ignore-paths"`
		IgnoreGitignore *bool     `yaml:"ignore-gitignore"`
		MaxFileSizeKb   *uint64   `yaml:"max-file-size-kb"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	rulesets, err := parseRulesets(&raw.Rulesets)
	if err != nil {
		return err
	}
	c.Rulesets = rulesets

	if raw.Only != nil {
		c.Paths.Only = *raw.Only
	}
	c.Paths.Ignore = append(raw.Ignore, raw.IgnorePaths...)
	c.IgnoreGitignore = raw.IgnoreGitignore
	c.MaxFileSizeKb = raw.MaxFileSizeKb

	return nil
}

// parseRulesets accepts the three shapes the rulesets key comes in. In the
// list form an entry is a ruleset name, or a map whose first key is the name;
// the remaining keys of a multi-key map are the ruleset's configuration.
func parseRulesets(node *yaml.Node) (map[string]RulesetConfig, error) {
	rulesets := map[string]RulesetConfig{}

	add := func(name string, cfg RulesetConfig, line int) error {
		if _, found := rulesets[name]; found {
			return fmt.Errorf("line %d: ruleset %q is configured twice", line, name)
		}
		rulesets[name] = cfg
		return nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]

			var cfg RulesetConfig
			if err := node.Content[i+1].Decode(&cfg); err != nil {
				return nil, err
			}

			if err := add(key.Value, cfg, key.Line); err != nil {
				return nil, err
			}
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			name, cfg, err := parseRulesetListItem(item)
			if err != nil {
				return nil, err
			}

			if err := add(name, cfg, item.Line); err != nil {
				return nil, err
			}
		}

	case 0:
		// key absent, handled below
	default:
		return nil, fmt.Errorf("line %d: rulesets must be a map or a list", node.Line)
	}

	if len(rulesets) == 0 {
		return nil, errors.New("no rulesets are configured")
	}

	return rulesets, nil
}

func parseRulesetListItem(item *yaml.Node) (string, RulesetConfig, error) {
	if item.Kind == yaml.ScalarNode {
		return item.Value, RulesetConfig{}, nil
	}

	if item.Kind != yaml.MappingNode || len(item.Content) < 2 {
		return "", RulesetConfig{}, fmt.Errorf("line %d: invalid ruleset entry", item.Line)
	}

	name := item.Content[0].Value

	// single entry: the value is the whole configuration
	if len(item.Content) == 2 {
		var cfg RulesetConfig
		if err := item.Content[1].Decode(&cfg); err != nil {
			return "", RulesetConfig{}, err
		}
		return name, cfg, nil
	}

	// multi entry: the first key names the ruleset and the siblings are its
	// configuration fields
	rest := &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: item.Content[2:],
	}

	var cfg RulesetConfig
	if err := rest.Decode(&cfg); err != nil {
		return "", RulesetConfig{}, err
	}

	return name, cfg, nil
}

// ParseConfig parses the configuration document from its YAML contents.
// An empty document never reaches the unmarshaler, so the no-rulesets check
// repeats here.
func ParseConfig(contents []byte) (*ConfigFile, error) {
	var cfg ConfigFile
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Rulesets) == 0 {
		return nil, errors.New("no rulesets are configured")
	}

	return &cfg, nil
}

// ReadConfigFile loads the configuration from a directory. The .yml spelling
// is tried first, then .yaml; when neither exists there is no configuration
// and no error. An existing but empty file is an error.
func ReadConfigFile(dir string) (*ConfigFile, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		contents, err := os.ReadFile(filepath.Join(dir, configFileBaseName+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error when reading the configuration file: %w", err)
		}

		if len(contents) == 0 {
			return nil, errors.New("the config file is empty")
		}

		return ParseConfig(contents)
	}

	return nil, nil
}
