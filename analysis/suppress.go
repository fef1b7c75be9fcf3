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
	"strings"
	"unicode"

	"github.com/amaanq/datadog-static-analyzer/languages"
)

// FileIgnoreBehavior declares how file-wide suppression applies to a file.
// When AllRules is false, Rules holds the rule identifiers suppressed for the
// whole file; an empty list suppresses nothing file-wide.
type FileIgnoreBehavior struct {
	AllRules bool
	Rules    []string
}

// LinesToIgnore is the suppression map of one file. A violation of rule R on
// line L is filtered iff the file ignores all rules, or ignores R file-wide,
// or L is in Lines, or R is listed for L in LinesPerRule.
type LinesToIgnore struct {
	Lines        map[int]bool
	LinesPerRule map[int][]string
	IgnoreFile   FileIgnoreBehavior
}

// ShouldFilterRule reports whether a violation of rule on line must be
// dropped.
func (l *LinesToIgnore) ShouldFilterRule(rule string, line int) bool {
	if l.IgnoreFile.AllRules {
		return true
	}

	for _, r := range l.IgnoreFile.Rules {
		if r == rule {
			return true
		}
	}

	if l.Lines[line] {
		return true
	}

	for _, r := range l.LinesPerRule[line] {
		if r == rule {
			return true
		}
	}

	return false
}

// hashPatterns are the disabling markers of hash comment languages,
// slashPatterns those of the C family without hash comments. JavaScript and
// TypeScript additionally accept the block comment form, PHP accepts the
// union of both families and JSON has no comment syntax at all, so it gets a
// sentinel that can never occur on a line.
var (
	hashPatterns  = []string{"#no-dd-sa", "#datadog-disable"}
	slashPatterns = []string{"//no-dd-sa", "//datadog-disable"}
	jsPatterns    = []string{"//no-dd-sa", "/*no-dd-sa", "//datadog-disable", "/*datadog-disable"}
	phpPatterns   = append(append([]string{}, slashPatterns...), hashPatterns...)
	jsonPatterns  = []string{"impossiblestringtoreach"}
)

func disablingPatterns(language languages.Language) []string {
	switch language {
	case languages.Python, languages.Starlark, languages.Dockerfile, languages.Ruby,
		languages.Terraform, languages.Yaml, languages.Bash:
		return hashPatterns
	case languages.Javascript, languages.Typescript:
		return jsPatterns
	case languages.Go, languages.Rust, languages.CSharp, languages.Java,
		languages.Kotlin, languages.Swift:
		return slashPatterns
	case languages.PHP:
		return phpPatterns
	case languages.Json:
		return jsonPatterns
	default:
		return jsonPatterns
	}
}

// identifierReplacer strips the comment syntax and the marker words from a
// directive line, leaving only candidate rule identifiers behind.
var identifierReplacer = strings.NewReplacer(
	"//", "",
	"/*", "",
	"*/", "",
	"#", "",
	"no-dd-sa", "",
	"datadog-disable", "",
	":", "",
	",", " ",
)

// ParseLinesToIgnore scans the source for disabling comment markers and
// builds the suppression map. A marker on the first line applies to the whole
// file, a marker on any other line applies to the line below it. A directive
// on the last line references a line that does not exist; the entry is kept
// and is harmless.
//
// The markers are matched by substring on the whitespace-stripped line, not
// by tokenization; a string literal containing a marker triggers suppression
// too. This is a known limitation.
func ParseLinesToIgnore(code string, language languages.Language) LinesToIgnore {
	patterns := disablingPatterns(language)

	lines := map[int]bool{}
	linesPerRule := map[int][]string{}
	ignoreFileAllRules := false
	var rulesToIgnore []string

	lineNumber := 1
	for _, line := range splitLines(code) {
		stripped := stripWhitespace(line)

		for _, pattern := range patterns {
			if !strings.Contains(stripped, pattern) {
				continue
			}

			identifiers := parseRuleIdentifiers(line)

			switch {
			case len(identifiers) == 0 && lineNumber == 1:
				ignoreFileAllRules = true
			case len(identifiers) == 0:
				lines[lineNumber+1] = true
			case lineNumber == 1:
				rulesToIgnore = append(rulesToIgnore, identifiers...)
			default:
				linesPerRule[lineNumber+1] = identifiers
			}
		}

		lineNumber++
	}

	ignoreFile := FileIgnoreBehavior{AllRules: ignoreFileAllRules}
	if !ignoreFileAllRules {
		if rulesToIgnore == nil {
			rulesToIgnore = []string{}
		}
		ignoreFile.Rules = rulesToIgnore
	}

	return LinesToIgnore{
		Lines:        lines,
		LinesPerRule: linesPerRule,
		IgnoreFile:   ignoreFile,
	}
}

// parseRuleIdentifiers extracts the qualified rule identifiers referenced by
// a directive line. Only tokens containing the ruleset/rule separator count.
func parseRuleIdentifiers(line string) []string {
	var identifiers []string

	for _, token := range strings.Fields(identifierReplacer.Replace(line)) {
		if strings.Contains(token, "/") {
			identifiers = append(identifiers, token)
		}
	}

	return identifiers
}

func stripWhitespace(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
}

// splitLines splits on newlines the way source lines are counted: a trailing
// newline does not open a final empty line, and carriage returns are not part
// of the line content.
func splitLines(code string) []string {
	code = strings.TrimSuffix(code, "\n")
	if code == "" {
		return nil
	}

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}
