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

	"github.com/amaanq/datadog-static-analyzer/languages"
)

const (
	ProtobufHeader = "Generated by the protocol buffer compiler.  DO NOT EDIT!"
	ThriftHeader   = "Autogenerated by Thrift Compiler"
)

// MaxHeaderSize is the number of bytes at the top of the file examined
// by the generated file heuristics.
const MaxHeaderSize = 400

// generatedMarkers holds, per language, the header substrings that identify
// a generated file. Some heuristics are based on
// https://github.com/github-linguist/linguist/blob/master/lib/linguist/generated.rb
var generatedMarkers = map[languages.Language][]string{
	languages.Go: {
		"Code generated by",
		ProtobufHeader,
		ThriftHeader,
	},
	languages.Java: {
		"generated by the protocol buffer compiler",
		ProtobufHeader,
		ThriftHeader,
	},
	languages.Javascript: {
		"Generated by PEG.js",
		"GENERATED CODE -- DO NOT EDIT!",
		ThriftHeader,
	},
	languages.Typescript: {
		"Generated by PEG.js",
		"GENERATED CODE -- DO NOT EDIT!",
		ThriftHeader,
	},
	languages.Python: {
		"Generated protocol buffer code",
		"Generated by the gRPC Python protocol compiler plugin",
		"Code generated by",
		ProtobufHeader,
		ThriftHeader,
	},
	languages.Ruby: {
		ProtobufHeader,
		ThriftHeader,
	},
}

// IsGeneratedFile reports whether the file header matches the generated code
// markers of the language. Only the first MaxHeaderSize bytes are
// examined; languages without markers are never considered generated.
func IsGeneratedFile(content string, language languages.Language) bool {
	markers, ok := generatedMarkers[language]
	if !ok {
		return false
	}

	header := content
	if len(content) > MaxHeaderSize {
		header = content[:MaxHeaderSize]
	}

	for _, marker := range markers {
		if strings.Contains(header, marker) {
			return true
		}
	}

	return false
}

// minifiedAverageLineLength is the average line length above which a
// JavaScript file is considered minified.
const minifiedAverageLineLength = 110

// IsMinifiedFile reports whether a JavaScript file looks minified. Other
// languages are never considered minified, and neither is empty input.
func IsMinifiedFile(content string, language languages.Language) bool {
	if language != languages.Javascript {
		return false
	}

	lines := splitLines(content)
	if len(lines) == 0 {
		return false
	}

	total := 0
	for _, line := range lines {
		total += len(line)
	}

	return total/len(lines) > minifiedAverageLineLength
}

// DefaultIgnoredGlobs are glob patterns excluded from analysis by default.
// These paths usually contain vendored third party dependencies or generated
// files.
var DefaultIgnoredGlobs = []string{
	// JavaScript
	"**/node_modules/**/*",
	"**/jspm_packages/**/*",
	"**/.next/**/*",
	"**/.vuepress/**/*",
	// Python
	"**/venv/**/*",
	"**/__pycache__/**/*",
	// Ruby
	"**/_vendor/bundle/ruby/**/*",
	"**/.vendor/bundle/ruby/**/*",
	"**/.bundle/**/*",
	// Java
	"**/.gradle/**/*",
}
