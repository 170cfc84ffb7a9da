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

// Package graph implements the module graph manager and the
// transpiled-module lifecycle it governs: a mutable, cyclic, bidirectional
// dependency graph over transpiled modules, ordered loader-chain
// application with dynamic edge discovery, cached evaluation through a
// require-linker, invalidation on source edits, and an HMR override of that
// invalidation.
//
// The edge-pair bookkeeping (add/remove an edge and its inverse together,
// never let them drift) is adapted from bennypowers-mappa's
// resolve.DependencyGraph, generalized from two sets (dependsOn/dependents
// keyed by package name) to four sets (dependencies, initiators,
// transpilationDependencies, transpilationInitiators), keyed by node
// identity instead of package name, and owned by each node rather than
// centralized in one map-of-maps.
package graph

import (
	"sandgraph.dev/bundle/module"
)

// NodeID is the identity of a TranspiledModule: the pair (module path,
// loader-chain query) must be unique across the graph; NodeID is the map
// key that enforces it.
type NodeID struct {
	Path  string
	Query string
}

func idOf(path, query string) NodeID { return NodeID{Path: path, Query: query} }

// Compilation is the cached evaluation record of a TranspiledModule: its
// exports object plus the hot-module-reload handle evaluated code receives.
type Compilation struct {
	Exports map[string]any
	Hot     Hot
}

// Hot is the module.hot surface handed to evaluated code.
type Hot struct {
	Accept func(path string, cb AcceptCallback)
}

// TranspiledModule is one vertex of the graph: a (module, query) pair with
// its cached transpile output, cached evaluation, diagnostics, auxiliary
// assets, and its four dependency edge sets.
type TranspiledModule struct {
	Module *module.Module
	Query  string

	Source      *module.Source
	compilation *Compilation
	IsEntry     bool

	Errors   []Diagnostic
	Warnings []Diagnostic

	// Assets is initialized empty at construction rather than lazily on
	// first emitFile, so a node with no emitted assets still reports an
	// empty map instead of nil.
	Assets        map[string]*module.Source
	EmittedAssets []string

	hmr     HMRState
	changed bool

	childModules []*TranspiledModule
	parent       *TranspiledModule

	loaders []Transpiler // the loader chain used by the most recent transpile, for Cleanup/Cacheable

	dependencies              map[*TranspiledModule]struct{}
	initiators                map[*TranspiledModule]struct{}
	transpilationDependencies map[*TranspiledModule]struct{}
	transpilationInitiators   map[*TranspiledModule]struct{}
	asyncDependencies         []*asyncDependency
}

func newTranspiledModule(m *module.Module, query string) *TranspiledModule {
	return &TranspiledModule{
		Module:                    m,
		Query:                     query,
		Assets:                    make(map[string]*module.Source),
		dependencies:              make(map[*TranspiledModule]struct{}),
		initiators:                make(map[*TranspiledModule]struct{}),
		transpilationDependencies: make(map[*TranspiledModule]struct{}),
		transpilationInitiators:   make(map[*TranspiledModule]struct{}),
	}
}

// ID returns the node's graph identity.
func (n *TranspiledModule) ID() NodeID { return idOf(n.Module.Path, n.Query) }

// Compilation returns the node's cached evaluation record, or nil.
func (n *TranspiledModule) Compilation() *Compilation { return n.compilation }

// Changed reports whether an HMR-short-circuited resetCompilation left this
// node needing re-evaluation on the next pass.
func (n *TranspiledModule) Changed() bool { return n.changed }

// HMR returns the node's current HMR state.
func (n *TranspiledModule) HMR() HMRState { return n.hmr }

// Dependencies returns the runtime-dependency set as a slice, for iteration
// and tests. Order is unspecified.
func (n *TranspiledModule) Dependencies() []*TranspiledModule { return setSlice(n.dependencies) }

// Initiators returns the inverse of Dependencies.
func (n *TranspiledModule) Initiators() []*TranspiledModule { return setSlice(n.initiators) }

// TranspilationDependencies returns the compile-time-only dependency set.
func (n *TranspiledModule) TranspilationDependencies() []*TranspiledModule {
	return setSlice(n.transpilationDependencies)
}

// TranspilationInitiators returns the inverse of TranspilationDependencies.
func (n *TranspiledModule) TranspilationInitiators() []*TranspiledModule {
	return setSlice(n.transpilationInitiators)
}

// HasDependency reports whether target is a direct runtime dependency.
func (n *TranspiledModule) HasDependency(target *TranspiledModule) bool {
	_, ok := n.dependencies[target]
	return ok
}

func setSlice(s map[*TranspiledModule]struct{}) []*TranspiledModule {
	out := make([]*TranspiledModule, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	return out
}

// linkDependency adds the runtime-dependency edge n -> target and its
// inverse target.initiators -> n, keeping both sides symmetric. Adding an
// edge twice is a no-op (set semantics).
func (n *TranspiledModule) linkDependency(target *TranspiledModule) {
	n.dependencies[target] = struct{}{}
	target.initiators[n] = struct{}{}
}

// unlinkDependency removes the runtime-dependency edge n -> target and its
// inverse, keeping both sides symmetric.
func (n *TranspiledModule) unlinkDependency(target *TranspiledModule) {
	delete(n.dependencies, target)
	delete(target.initiators, n)
}

// linkTranspilationDependency adds the compile-time edge and its inverse.
func (n *TranspiledModule) linkTranspilationDependency(target *TranspiledModule) {
	n.transpilationDependencies[target] = struct{}{}
	target.transpilationInitiators[n] = struct{}{}
}

func (n *TranspiledModule) unlinkTranspilationDependency(target *TranspiledModule) {
	delete(n.transpilationDependencies, target)
	delete(target.transpilationInitiators, n)
}

// clearOutgoingDependencies removes every edge this node initiates (both
// runtime and transpilation), leaving the inverse sets on its former
// dependencies consistent. Called at the top of transpile() so a re-run
// starts from a clean slate instead of accumulating stale edges from a
// previous version of the source.
func (n *TranspiledModule) clearOutgoingDependencies() {
	for dep := range n.dependencies {
		delete(dep.initiators, n)
	}
	n.dependencies = make(map[*TranspiledModule]struct{})

	for dep := range n.transpilationDependencies {
		delete(dep.transpilationInitiators, n)
	}
	n.transpilationDependencies = make(map[*TranspiledModule]struct{})
}

// asyncDependency is a pending download enqueued by addDependency when
// resolution fails with module-not-found/isDependency. future resolves once
// the downloader collaborator finishes.
type asyncDependency struct {
	specifier string
	future    <-chan asyncResult
}

type asyncResult struct {
	node *TranspiledModule
	err  error
}
