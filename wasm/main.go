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

// Command wasm is the browser entry point: it exposes the module graph
// compiler to the host page as a global `bundle` object, running every
// transpiled module's code through the browser's own JS engine via
// eval.WasmEvaluator rather than carrying goja along in the binary.
package main

import (
	"encoding/json"
	"syscall/js"

	"sandgraph.dev/bundle/eval"
	"sandgraph.dev/bundle/sandbox"
)

const Version = "0.1.0"

func main() {
	bundle := make(map[string]any)
	bundle["compile"] = js.FuncOf(compile)
	bundle["version"] = Version

	js.Global().Set("bundle", js.ValueOf(bundle))

	select {}
}

// moduleInput mirrors sandbox.ModuleInput for JSON decoding off the JS
// boundary, since syscall/js values don't unmarshal directly into structs.
type moduleInput struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

type compileRequest struct {
	SandboxID string        `json:"sandboxId"`
	Modules   []moduleInput `json:"modules"`
	Entry     string        `json:"entry"`
}

// compile is the JS-callable entry point: bundle.compile(requestJSON)
// returns a Promise resolving to the compiled exports as a JSON string,
// matching the async generate() contract the host page already expects
// from a WASM module.
func compile(this js.Value, args []js.Value) any {
	handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
		resolve := promiseArgs[0]
		reject := promiseArgs[1]

		go func() {
			result, err := doCompile(args)
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(result)
		}()

		return nil
	})

	promise := js.Global().Get("Promise").New(handler)
	handler.Release()
	return promise
}

func doCompile(args []js.Value) (string, error) {
	if len(args) < 1 {
		return "", &jsError{message: "compile requires a request JSON string"}
	}

	var req compileRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return "", &jsError{message: "failed to parse compile request: " + err.Error()}
	}
	if req.SandboxID == "" {
		req.SandboxID = "wasm"
	}

	box := sandbox.New(req.SandboxID, sandbox.Config{Evaluator: eval.NewWasmEvaluator()})

	modules := make([]sandbox.ModuleInput, len(req.Modules))
	for i, m := range req.Modules {
		modules[i] = sandbox.ModuleInput{Path: m.Path, Code: m.Code}
	}

	exports, err := box.Compile(sandbox.CompileRequest{
		SandboxID: req.SandboxID,
		Modules:   modules,
		Entry:     req.Entry,
	})
	if err != nil {
		return "", &jsError{message: "compile failed: " + err.Error()}
	}

	out, err := json.Marshal(exports)
	if err != nil {
		return "", &jsError{message: "failed to serialize exports: " + err.Error()}
	}
	return string(out), nil
}

type jsError struct {
	message string
}

func (e *jsError) Error() string {
	return e.message
}
