/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package eval provides concrete graph.Evaluator backends: GojaEvaluator
// runs compiled modules through a pure-Go ECMAScript interpreter, and
// (under the js/wasm build tags) WasmEvaluator delegates to the host
// browser's own JS engine instead of carrying one along.
//
// GojaEvaluator's compile-once-run-many split and its single persistent
// runtime per sandbox are grounded on the other_examples goja module
// resolver: a program is compiled from source exactly once and cached,
// while the runtime that executes it is long-lived and accumulates
// whatever global state the evaluated modules install.
package eval

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"sandgraph.dev/bundle/graph"
)

// GojaEvaluator wraps compiled module code in a CommonJS function shim and
// runs it on a single persistent goja.Runtime. Programs are compiled once
// per distinct source string and reused across re-evaluations (e.g. after
// an HMR-driven re-run of an unchanged dependency).
type GojaEvaluator struct {
	mu       sync.Mutex
	vm       *goja.Runtime
	programs map[string]*goja.Program
}

// NewGojaEvaluator returns an evaluator backed by a fresh runtime. One
// instance is meant to live for the lifetime of a single graph.Manager.
func NewGojaEvaluator() *GojaEvaluator {
	return &GojaEvaluator{
		vm:       goja.New(),
		programs: make(map[string]*goja.Program),
	}
}

const (
	shimHeader = "(function(module, exports, require, process) {\n"
	shimFooter = "\n})"
)

// Evaluate implements graph.Evaluator.
func (e *GojaEvaluator) Evaluate(compiledCode string, require graph.RequireFunc, compilation *graph.Compilation, env map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wrapper, err := e.compile(compiledCode)
	if err != nil {
		return err
	}

	moduleObj := e.vm.NewObject()
	exportsObj := e.vm.NewObject()
	if err := moduleObj.Set("exports", exportsObj); err != nil {
		return err
	}
	moduleObj.Set("hot", e.hotObject(compilation))

	requireVal := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()
		exports, err := require(specifier)
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		return e.vm.ToValue(exports)
	})

	processObj := e.vm.NewObject()
	envObj := e.vm.NewObject()
	for k, v := range env {
		envObj.Set(k, v)
	}
	processObj.Set("env", envObj)

	if _, err := wrapper(goja.Undefined(), moduleObj, exportsObj, requireVal, processObj); err != nil {
		return err
	}

	exported := moduleObj.Get("exports").Export()
	if m, ok := exported.(map[string]any); ok {
		compilation.Exports = m
	} else {
		compilation.Exports = map[string]any{"default": exported}
	}
	return nil
}

// compile returns the wrapper function for code. The shim program is
// compiled on first use and cached; it is run on every call to produce the
// wrapper. Must be called with e.mu held.
func (e *GojaEvaluator) compile(code string) (goja.Callable, error) {
	prog, ok := e.programs[code]
	if !ok {
		var err error
		prog, err = goja.Compile("sandbox-module", shimHeader+code+shimFooter, false)
		if err != nil {
			return nil, err
		}
		e.programs[code] = prog
	}

	wrapperVal, err := e.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	wrapper, ok := goja.AssertFunction(wrapperVal)
	if !ok {
		return nil, fmt.Errorf("eval: compiled module did not produce a callable wrapper")
	}
	return wrapper, nil
}

// hotObject builds the module.hot.accept(path?, callback?) surface that
// graph.lifecycle's makeAccept closure is reached through.
func (e *GojaEvaluator) hotObject(compilation *graph.Compilation) *goja.Object {
	hot := e.vm.NewObject()
	hot.Set("accept", func(call goja.FunctionCall) goja.Value {
		var path string
		var callback graph.AcceptCallback

		args := call.Arguments
		if len(args) > 0 && !goja.IsUndefined(args[0]) && !goja.IsNull(args[0]) {
			if fn, ok := goja.AssertFunction(args[0]); ok {
				callback = wrapCallback(e.vm, fn)
			} else {
				path = args[0].String()
			}
		}
		if len(args) > 1 {
			if fn, ok := goja.AssertFunction(args[1]); ok {
				callback = wrapCallback(e.vm, fn)
			}
		}
		compilation.Hot.Accept(path, callback)
		return goja.Undefined()
	})
	return hot
}

func wrapCallback(vm *goja.Runtime, fn goja.Callable) graph.AcceptCallback {
	return func(exports map[string]any) {
		if _, err := fn(goja.Undefined(), vm.ToValue(exports)); err != nil {
			panic(err)
		}
	}
}
