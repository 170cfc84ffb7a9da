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
package graph

import (
	"errors"
	"fmt"
	"sync"

	"sandgraph.dev/bundle/module"
	"sandgraph.dev/bundle/resolver"
)

var errNoEvaluator = errors.New("no evaluator configured")

// transpile is idempotent while Source is non-nil. It clears stale outgoing
// edges, runs the loader chain (or registers authoritative requires
// directly), stamps a sourceURL trailer, awaits pending async dependencies,
// and fans out concurrently into every not-yet-transpiled dependency and
// transpilation-initiator.
func (n *TranspiledModule) transpile(manager *Manager) error {
	if n.Source != nil {
		return nil
	}

	manager.mu.Lock()
	n.clearOutgoingDependencies()
	manager.mu.Unlock()
	n.Errors = nil
	n.Warnings = nil

	code := n.Module.Code

	if n.Module.HasAuthoritativeRequires() {
		n.loaders = nil
		for _, specifier := range n.Module.Requires {
			manager.addDependency(n, specifier, true, false)
		}
	} else {
		loaders, err := manager.preset.GetLoaders(n.Module, n.Query)
		if err != nil {
			return &TranspileError{FileName: n.Module.Path, Module: n, Err: err}
		}
		n.loaders = loaders

		flushed := 0
		for _, loader := range loaders {
			ctx := newLoaderContext(n, manager)
			out, err := loader.Transpile(ctx, code)
			for _, w := range n.Warnings[flushed:] {
				manager.sink.Warn(w.Message, w.Loc)
			}
			flushed = len(n.Warnings)
			if err != nil {
				n.resetTranspilation()
				return &TranspileError{FileName: n.Module.Path, Module: n, Err: err}
			}
			if len(n.Errors) > 0 {
				first := n.Errors[0]
				n.resetTranspilation()
				return &TranspileError{FileName: n.Module.Path, Module: n, Err: errors.New(first.Message)}
			}
			code = out
		}
	}

	n.Source = &module.Source{
		FileName:     n.Module.Path,
		CompiledCode: module.WithSourceURL(code, n.Module.Path),
	}

	pending := n.asyncDependencies
	n.asyncDependencies = nil
	for _, ad := range pending {
		res := <-ad.future
		if res.err == nil && res.node != nil {
			manager.mu.Lock()
			n.linkDependency(res.node)
			manager.mu.Unlock()
		}
	}

	return n.transpileFanOut(manager)
}

// transpileFanOut concurrently transpiles every transpilation-initiator and
// runtime dependency of n that hasn't been transpiled yet, returning the
// first error encountered across the fan-out.
func (n *TranspiledModule) transpileFanOut(manager *Manager) error {
	targets := make(map[*TranspiledModule]struct{})
	for ti := range n.transpilationInitiators {
		if ti.Source == nil {
			targets[ti] = struct{}{}
		}
	}
	for dep := range n.dependencies {
		if dep.Source == nil {
			targets[dep] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for t := range targets {
		wg.Add(1)
		go func(t *TranspiledModule) {
			defer wg.Done()
			if err := t.transpile(manager); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()
	return firstErr
}

// evaluate requires Source to be non-nil. It breaks require cycles by
// returning the in-progress exports object when n already appears in
// parents, short-circuits into a reload request when HMR is active and an
// entry has no compilation yet, reuses a cached compilation unless changed,
// and otherwise runs the evaluator with a fresh require closure.
func (n *TranspiledModule) evaluate(manager *Manager, parents []*TranspiledModule) (map[string]any, error) {
	for _, p := range parents {
		if p == n {
			if n.compilation == nil {
				n.compilation = &Compilation{Exports: make(map[string]any)}
			}
			return n.compilation.Exports, nil
		}
	}

	if manager.webpackHMR && n.IsEntry && n.compilation == nil && !n.hmr.Enabled() {
		manager.requestReload()
		return map[string]any{}, nil
	}

	if n.compilation != nil && !n.changed {
		return n.compilation.Exports, nil
	}

	if n.compilation == nil {
		n.compilation = &Compilation{Exports: make(map[string]any)}
	}
	n.changed = false
	n.compilation.Hot = Hot{Accept: n.makeAccept(manager)}

	require := n.makeRequire(manager, parents)

	if manager.evaluator == nil {
		return nil, &EvalError{FileName: n.Module.Path, Module: n, Err: errNoEvaluator}
	}
	if err := manager.evaluator.Evaluate(n.Source.CompiledCode, require, n.compilation, manager.envVariables); err != nil {
		return nil, &EvalError{FileName: n.Module.Path, Module: n, Err: err}
	}

	if cb, ok := n.hmr.Callback(); ok {
		cb(n.compilation.Exports)
	}

	return n.compilation.Exports, nil
}

func (n *TranspiledModule) makeRequire(manager *Manager, parents []*TranspiledModule) RequireFunc {
	stack := append(append([]*TranspiledModule{}, parents...), n)
	return func(specifier string) (map[string]any, error) {
		aliased := manager.preset.GetAliasedPath(specifier)
		if resolver.IsBareSpecifier(aliased) {
			if ext, ok := manager.externals[aliased]; ok {
				return ext.Exports, nil
			}
		}
		target, err := manager.ResolveTranspiledModule(specifier, n.Module.Path)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, fmt.Errorf("require %q: no exports available", specifier)
		}
		if target.Module.Path == n.Module.Path && target.Query == n.Query {
			return nil, &SelfImportError{Path: n.Module.Path}
		}
		if target.Source == nil {
			if err := target.transpile(manager); err != nil {
				return nil, err
			}
		}
		return manager.EvaluateTranspiledModule(target, stack)
	}
}

func (n *TranspiledModule) makeAccept(manager *Manager) func(string, AcceptCallback) {
	return func(path string, cb AcceptCallback) {
		manager.webpackHMR = true
		if path == "" {
			n.hmr.SetSelfAccept()
			return
		}
		target, err := manager.ResolveTranspiledModule(path, n.Module.Path)
		if err != nil || target == nil {
			return
		}
		target.hmr.SetAccept(cb)
	}
}

// postEvaluate runs on every node in the graph once EvaluateModule's walk
// has finished, whether or not the walk evaluated that node: a
// non-cacheable loader chain drops the cached compilation, and a
// node with no initiators that isn't an entry gets every loader's cleanup
// hook invoked.
func (n *TranspiledModule) postEvaluate() {
	cacheable := true
	for _, l := range n.loaders {
		if !l.Cacheable() {
			cacheable = false
			break
		}
	}
	if !cacheable {
		n.compilation = nil
	}
	if len(n.initiators) == 0 && !n.IsEntry {
		for _, l := range n.loaders {
			l.Cleanup()
		}
	}
}

// reset cascades through child modules, clears emitted assets, and resets
// both compilation and transpilation; the node is demoted from entry
// status.
func (n *TranspiledModule) reset() {
	for _, c := range n.childModules {
		c.reset()
	}
	n.EmittedAssets = nil
	n.Assets = make(map[string]*module.Source)
	n.resetCompilation()
	n.resetTranspilation()
	n.IsEntry = false
}

// resetTranspilation clears this node's transpile output and, unless HMR is
// enabled on it, cascades into every transpilation-initiator still holding
// a source and detaches this node from its former dependencies' initiator
// sets.
func (n *TranspiledModule) resetTranspilation() {
	if !n.hmr.Enabled() {
		for ti := range n.transpilationInitiators {
			if ti.Source != nil {
				ti.resetTranspilation()
			}
		}
		for dep := range n.dependencies {
			delete(dep.initiators, n)
		}
	}
	n.Source = nil
	n.Errors = nil
	n.Warnings = nil
	n.dependencies = make(map[*TranspiledModule]struct{})
	n.asyncDependencies = nil
}

// resetCompilation marks the node dirty under HMR or clears its cached
// compilation and cascades into every initiator and transpilation-initiator
// that still has one.
func (n *TranspiledModule) resetCompilation() {
	if n.compilation == nil {
		return
	}
	if n.hmr.Enabled() {
		n.changed = true
		return
	}
	n.compilation = nil
	for init := range n.initiators {
		if init.compilation != nil {
			init.resetCompilation()
		}
	}
	for ti := range n.transpilationInitiators {
		if ti.compilation != nil {
			ti.resetCompilation()
		}
	}
}

// update swaps in a new underlying Module and resets the node; edges to
// unaffected nodes are rebuilt on the next transpile.
func (n *TranspiledModule) update(newModule *module.Module) {
	n.Module = newModule
	n.reset()
}

// dispose is equivalent to reset.
func (n *TranspiledModule) dispose() { n.reset() }
