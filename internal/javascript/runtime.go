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

// Package javascript executes rule code inside a sandboxed goja runtime.
//
// A runtime is single threaded and reused across rule invocations: the
// standard library zeroes the violation accumulator and the console buffer
// before every execution, and the injected globals are deleted after it. No
// two executions may share a runtime concurrently.
package javascript

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	engine "github.com/amaanq/datadog-static-analyzer"
	"github.com/amaanq/datadog-static-analyzer/internal/cst"
)

//go:embed stdlib.js
var stdlibSource string

var stdlibProgram = goja.MustCompile("stdlib.js", stdlibSource, false)

// errWatchdogFired is the interrupt value armed by the watchdog. Seeing it
// inside a goja.InterruptedError is the deterministic signal that the
// execution was halted by the timeout rather than by anything else.
var errWatchdogFired = errors.New("rule execution timed out")

// executionTemplate embeds the rule code and drives it: every match node
// gets the file context merged into its context slot, file context keys
// winning on collision, then visit runs for the node. The value of the
// execution is the violation accumulator.
const executionTemplate = `_cleanExecute(() => {
__ENV_STELLA__ = true;
// Note: variables prefixed with "GLOBAL_" are injected by the analyzer before execution.

// The rule's JavaScript code
//////////////////////////////
%s
//////////////////////////////

for (const n of GLOBAL_nodes) {
    if (Object.keys(GLOBAL_fileContext).length > 0) {
        n.context = Object.assign({}, n.context, GLOBAL_fileContext);
    }
    visit(n, GLOBAL_filename, n.context.code);
}

return stellaAllErrors;
});
`

var injectedGlobals = []string{"GLOBAL_nodes", "GLOBAL_fileContext", "GLOBAL_filename"}

// Runtime is a reusable JavaScript sandbox with the rule standard library
// preloaded.
type Runtime struct {
	vm            *goja.Runtime
	jsonParse     goja.Callable
	jsonStringify goja.Callable
}

// NewRuntime creates a runtime and preloads the standard library shim.
func NewRuntime() (*Runtime, error) {
	vm := goja.New()

	if _, err := vm.RunProgram(stdlibProgram); err != nil {
		return nil, fmt.Errorf("preload stdlib: %w", err)
	}

	jsonObject := vm.Get("JSON").ToObject(vm)

	jsonParse, ok := goja.AssertFunction(jsonObject.Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is not callable")
	}

	jsonStringify, ok := goja.AssertFunction(jsonObject.Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify is not callable")
	}

	return &Runtime{
		vm:            vm,
		jsonParse:     jsonParse,
		jsonStringify: jsonStringify,
	}, nil
}

// Execute runs a rule against the query match nodes of one file, bounded by
// timeout. It returns the violations the rule accumulated and the console
// lines it logged. The console lines are returned on failures too, with
// whatever the rule managed to log before failing.
//
// The error is one of *InterpreterError, *ExecutionError, *TimeoutError or
// *UnexpectedReturnError.
func (r *Runtime) Execute(
	rule *engine.Rule,
	matchNodes []*cst.MatchNode,
	filename string,
	fileContext map[string]interface{},
	timeout time.Duration,
) ([]engine.Violation, []string, error) {
	program, err := goja.Compile(rule.Name, fmt.Sprintf(executionTemplate, rule.Code), false)
	if err != nil {
		return nil, nil, &InterpreterError{Reason: err.Error()}
	}

	if err := r.injectGlobals(matchNodes, filename, fileContext); err != nil {
		return nil, nil, &ExecutionError{Reason: err.Error()}
	}
	defer r.deleteGlobals()

	// The watchdog requests termination through the interrupt API once the
	// budget elapses. When the watchdog has already fired, its callback is
	// waited for before the interrupt flag is cleared, so the flag is always
	// cleared last, whichever side won the race, and the runtime stays usable.
	fired := make(chan struct{})
	watchdog := time.AfterFunc(timeout, func() {
		r.vm.Interrupt(errWatchdogFired)
		close(fired)
	})

	value, runErr := r.vm.RunProgram(program)

	if !watchdog.Stop() {
		<-fired
	}
	r.vm.ClearInterrupt()

	consoleLines := r.drainConsole()

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) && interrupted.Value() == errWatchdogFired {
			return nil, consoleLines, &TimeoutError{Timeout: timeout}
		}

		var exception *goja.Exception
		if errors.As(runErr, &exception) {
			return nil, consoleLines, &ExecutionError{Reason: exception.Value().String()}
		}

		return nil, consoleLines, &ExecutionError{Reason: runErr.Error()}
	}

	violations, err := r.extractViolations(value, rule)
	if err != nil {
		return nil, consoleLines, &UnexpectedReturnError{Reason: err.Error()}
	}

	return violations, consoleLines, nil
}

// injectGlobals serializes the three execution inputs and exposes them as
// globals of the runtime. The values go through JSON so rule code sees plain
// JavaScript objects and arrays with a deterministic key order.
func (r *Runtime) injectGlobals(
	matchNodes []*cst.MatchNode,
	filename string,
	fileContext map[string]interface{},
) error {
	if matchNodes == nil {
		matchNodes = []*cst.MatchNode{}
	}
	if fileContext == nil {
		fileContext = map[string]interface{}{}
	}

	if err := r.setGlobalJSON("GLOBAL_nodes", matchNodes); err != nil {
		return err
	}

	if err := r.setGlobalJSON("GLOBAL_fileContext", fileContext); err != nil {
		return err
	}

	return r.vm.Set("GLOBAL_filename", filename)
}

func (r *Runtime) setGlobalJSON(name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", name, err)
	}

	parsed, err := r.jsonParse(goja.Undefined(), r.vm.ToValue(string(data)))
	if err != nil {
		return fmt.Errorf("deserialize %s: %w", name, err)
	}

	return r.vm.Set(name, parsed)
}

// deleteGlobals drops the injected bindings. The runtime is reused, so they
// would leak into the next execution otherwise.
func (r *Runtime) deleteGlobals() {
	global := r.vm.GlobalObject()

	for _, name := range injectedGlobals {
		_ = global.Delete(name)
	}
}

// drainConsole reads and empties the console buffer.
func (r *Runtime) drainConsole() []string {
	consoleValue := r.vm.Get("console")
	if consoleValue == nil {
		return nil
	}

	consoleObject := consoleValue.ToObject(r.vm)

	var lines []string
	if err := r.vm.ExportTo(consoleObject.Get("lines"), &lines); err != nil {
		return nil
	}

	_ = consoleObject.Set("lines", r.vm.NewArray())

	return lines
}

// extractViolations converts the accumulator returned by the execution into
// violation records. Category and severity of each violation are taken from
// the rule, whatever the rule code put in the error object.
func (r *Runtime) extractViolations(value goja.Value, rule *engine.Rule) ([]engine.Violation, error) {
	serialized, err := r.jsonStringify(goja.Undefined(), value)
	if err != nil {
		return nil, err
	}

	violations := []engine.Violation{}
	if err := json.Unmarshal([]byte(serialized.String()), &violations); err != nil {
		return nil, err
	}

	for i := range violations {
		violations[i].Category = rule.Category
		violations[i].Severity = rule.Severity

		if violations[i].Fixes == nil {
			violations[i].Fixes = []engine.Fix{}
		}
	}

	return violations, nil
}
