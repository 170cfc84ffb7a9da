//go:build js && wasm

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

package eval

import (
	"fmt"
	"syscall/js"

	"sandgraph.dev/bundle/graph"
)

// WasmEvaluator runs compiled module code through the host browser's own
// JS engine via the Function constructor, instead of carrying an
// interpreter along in the WASM binary. Not exercised by this module's
// test suite: it has no meaning outside a js/wasm GOOS/GOARCH build, the
// same boundary the teacher's wasm/main.go entry point sits behind.
type WasmEvaluator struct{}

// NewWasmEvaluator returns a WasmEvaluator. There is no persistent runtime
// to own: the host's JS engine is global state, not something this type
// manages.
func NewWasmEvaluator() *WasmEvaluator {
	return &WasmEvaluator{}
}

// Evaluate implements graph.Evaluator.
func (WasmEvaluator) Evaluate(compiledCode string, require graph.RequireFunc, compilation *graph.Compilation, env map[string]string) error {
	functionCtor := js.Global().Get("Function")
	wrapper := functionCtor.New("module", "exports", "require", "process", compiledCode)

	exportsObj := js.Global().Get("Object").New()
	moduleObj := js.Global().Get("Object").New()
	moduleObj.Set("exports", exportsObj)
	moduleObj.Set("hot", hotValue(compilation))

	requireFn := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return js.Undefined()
		}
		exports, err := require(args[0].String())
		if err != nil {
			panic(js.Global().Get("Error").New(err.Error()))
		}
		return js.ValueOf(exports)
	})
	defer requireFn.Release()

	processObj := js.Global().Get("Object").New()
	envObj := js.Global().Get("Object").New()
	for k, v := range env {
		envObj.Set(k, v)
	}
	processObj.Set("env", envObj)

	result := callCatching(wrapper, moduleObj, moduleObj.Get("exports"), js.ValueOf(requireFn), processObj)
	if result.err != nil {
		return result.err
	}

	exported := jsValueToExports(moduleObj.Get("exports"))
	compilation.Exports = exported
	return nil
}

type invokeResult struct {
	value js.Value
	err   error
}

// callCatching invokes a JS function value, translating a thrown
// exception into a Go error instead of letting it panic across the
// syscall/js boundary uncaught.
func callCatching(fn js.Value, args ...any) (result invokeResult) {
	defer func() {
		if r := recover(); r != nil {
			result = invokeResult{err: fmt.Errorf("eval(wasm): %v", r)}
		}
	}()
	v := fn.Invoke(args...)
	return invokeResult{value: v}
}

func hotValue(compilation *graph.Compilation) js.Value {
	hot := js.Global().Get("Object").New()
	accept := js.FuncOf(func(this js.Value, args []js.Value) any {
		var path string
		var callback graph.AcceptCallback
		if len(args) > 0 && args[0].Type() == js.TypeString {
			path = args[0].String()
		}
		var cbVal js.Value
		if len(args) > 0 && args[0].Type() == js.TypeFunction {
			cbVal = args[0]
		} else if len(args) > 1 && args[1].Type() == js.TypeFunction {
			cbVal = args[1]
		}
		if !cbVal.IsUndefined() {
			callback = func(exports map[string]any) {
				cbVal.Invoke(js.ValueOf(exports))
			}
		}
		compilation.Hot.Accept(path, callback)
		return js.Undefined()
	})
	hot.Set("accept", accept)
	return hot
}

// jsValueToExports converts a JS exports object into the plain
// map[string]any shape graph.Compilation.Exports carries, mirroring the
// JSON round-trip the teacher's wasm/main.go already relies on to move
// data across the syscall/js boundary.
func jsValueToExports(v js.Value) map[string]any {
	if v.Type() != js.TypeObject {
		return map[string]any{"default": jsValueToGo(v)}
	}
	keys := js.Global().Get("Object").Call("keys", v)
	out := make(map[string]any, keys.Length())
	for i := range keys.Length() {
		key := keys.Index(i).String()
		out[key] = jsValueToGo(v.Get(key))
	}
	return out
}

func jsValueToGo(v js.Value) any {
	switch v.Type() {
	case js.TypeUndefined, js.TypeNull:
		return nil
	case js.TypeBoolean:
		return v.Bool()
	case js.TypeNumber:
		return v.Float()
	case js.TypeString:
		return v.String()
	default:
		return v
	}
}
