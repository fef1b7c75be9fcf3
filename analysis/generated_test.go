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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amaanq/datadog-static-analyzer/languages"
)

func TestIsGeneratedFile(t *testing.T) {
	testcases := []struct {
		name      string
		content   string
		language  languages.Language
		generated bool
	}{
		{
			name:      "Should not detect a plain java class",
			content:   "class Foobar",
			language:  languages.Java,
			generated: false,
		},
		{
			name:      "Should detect the protobuf header in java",
			content:   "// generated by the protocol buffer compiler\n class Foobar{}",
			language:  languages.Java,
			generated: true,
		},
		{
			name:      "Should detect the thrift header in java",
			content:   fmt.Sprintf("// %s\n class Foobar{}", ThriftHeader),
			language:  languages.Java,
			generated: true,
		},
		{
			name:      "Should not detect a plain go function",
			content:   "func foo(){}",
			language:  languages.Go,
			generated: false,
		},
		{
			name:      "Should detect mockgen output in go",
			content:   "// Code generated by MockGen\nfunc foo(){}",
			language:  languages.Go,
			generated: true,
		},
		{
			name:      "Should detect the protobuf header in go",
			content:   fmt.Sprintf("// %s\nfunc foo(){}", ProtobufHeader),
			language:  languages.Go,
			generated: true,
		},
		{
			name:      "Should detect generated protocol buffer code in python",
			content:   "# Generated protocol buffer code\ndef foo():\n  pass\n",
			language:  languages.Python,
			generated: true,
		},
		{
			name:      "Should not detect a plain python function",
			content:   "def foo():\n  pass\n",
			language:  languages.Python,
			generated: false,
		},
		{
			name:      "Should detect the protobuf header in ruby",
			content:   fmt.Sprintf("# %s\ndef foo\nend\n", ProtobufHeader),
			language:  languages.Ruby,
			generated: true,
		},
		{
			name:      "Should detect peg.js output in javascript",
			content:   "// Generated by PEG.js\nfunction smtg(){}",
			language:  languages.Javascript,
			generated: true,
		},
		{
			name:      "Should detect generated code marker in typescript",
			content:   "// GENERATED CODE -- DO NOT EDIT!\nfunction smtg(){}",
			language:  languages.Typescript,
			generated: true,
		},
		{
			name:      "Should not look past the header size",
			content:   strings.Repeat("x", MaxHeaderSize) + ProtobufHeader,
			language:  languages.Go,
			generated: false,
		},
		{
			name:      "Should never detect a language without markers",
			content:   ProtobufHeader,
			language:  languages.Terraform,
			generated: false,
		},
	}

	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.generated, IsGeneratedFile(tt.content, tt.language))
		})
	}
}

func TestIsMinifiedFile(t *testing.T) {
	testcases := []struct {
		name     string
		content  string
		language languages.Language
		minified bool
	}{
		{
			name:     "Should detect a single long line as minified",
			content:  strings.Repeat("var x = 2;", 100),
			language: languages.Javascript,
			minified: true,
		},
		{
			name:     "Should not detect short lines as minified",
			content:  "var x = 2;\nvar y = 3;\n",
			language: languages.Javascript,
			minified: false,
		},
		{
			name:     "Should not detect empty input as minified",
			content:  "",
			language: languages.Javascript,
			minified: false,
		},
		{
			name:     "Should never detect other languages as minified",
			content:  strings.Repeat("x = 2;", 100),
			language: languages.Python,
			minified: false,
		},
	}

	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.minified, IsMinifiedFile(tt.content, tt.language))
		})
	}
}
