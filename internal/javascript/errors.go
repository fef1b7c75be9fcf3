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

package javascript

import (
	"fmt"
	"time"
)

// InterpreterError reports rule code that does not compile.
type InterpreterError struct {
	Reason string
}

func (e *InterpreterError) Error() string {
	return fmt.Sprintf("unable to interpret JavaScript: `%s`", e.Reason)
}

// ExecutionError reports a value thrown while the rule code ran.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("error executing JavaScript: %s", e.Reason)
}

// UnexpectedReturnError reports rule code that completed but returned a value
// the engine cannot interpret, such as an edit with an unknown kind.
type UnexpectedReturnError struct {
	Reason string
}

func (e *UnexpectedReturnError) Error() string {
	return fmt.Sprintf("unexpected value returned from JavaScript execution: `%s`", e.Reason)
}

// TimeoutError reports an execution halted by the watchdog.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out at %.2fs", e.Timeout.Seconds())
}
