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

// AnalysisOptions controls optional behaviors of the analysis pipeline.
type AnalysisOptions struct {
	// UseDebug emits diagnostic lines on stderr while analyzing.
	UseDebug bool

	// LogOutput attaches the console output captured during a rule
	// execution to its result.
	LogOutput bool

	// IgnoreGeneratedFiles skips files whose header matches the generated
	// code markers of the language.
	IgnoreGeneratedFiles bool
}
