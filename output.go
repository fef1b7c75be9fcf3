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

import (
	"encoding/json"
	"os"
)

type IOutput interface {
	Value() []RuleResult
	GenerateReportInOutputFilePath(outputFilePath string) error
}

type Output struct {
	results []RuleResult
}

func NewOutput(results []RuleResult) IOutput {
	return &Output{
		results: results,
	}
}

func (o *Output) Value() []RuleResult {
	return o.results
}

func (o *Output) GenerateReportInOutputFilePath(outputFilePath string) error {
	bytesToWrite, err := json.MarshalIndent(o.results, "", "  ")
	if err != nil {
		return err
	}
	return o.parseFilePathToAbsAndCreateOutputJSON(bytesToWrite, outputFilePath)
}

func (o *Output) parseFilePathToAbsAndCreateOutputJSON(bytesToWrite []byte, outputFilePath string) error {
	if _, err := os.Create(outputFilePath); err != nil {
		return err
	}
	return o.openJSONFileAndWriteBytes(bytesToWrite, outputFilePath)
}

func (o *Output) openJSONFileAndWriteBytes(bytesToWrite []byte, completePath string) error {
	outputFile, err := os.OpenFile(completePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer outputFile.Close()
	if err = outputFile.Truncate(0); err != nil {
		return err
	}
	if bytesWritten, err := outputFile.Write(bytesToWrite); err != nil || bytesWritten != len(bytesToWrite) {
		return err
	}
	return nil
}
