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

// Package sandbox is the composition root: it wires a concrete preset,
// evaluator, store, manifest, and host channel into a graph.Manager and
// exposes the one operation a host actually calls, Compile, which drives
// the full compile-request flow spec.md describes (adopt the file set,
// transpile, evaluate, persist, emit the result event).
package sandbox

import (
	"fmt"
	"sort"
	"strings"

	"sandgraph.dev/bundle/diagnostics"
	"sandgraph.dev/bundle/eval"
	"sandgraph.dev/bundle/graph"
	"sandgraph.dev/bundle/hostchannel"
	"sandgraph.dev/bundle/module"
	"sandgraph.dev/bundle/preset"
	"sandgraph.dev/bundle/store"
)

// ModuleInput is one caller-supplied source file, mirroring the
// { path, code } pairs in a compile request's modules array.
type ModuleInput struct {
	Path string
	Code string
}

// CompileRequest is the input record a host submits to a Sandbox,
// matching spec.md's compile request shape field for field.
//
// IsModuleView is intentionally absent: the module-view boilerplate
// branch it would select is out of scope (spec.md already excludes it),
// so there is nothing in this type for it to drive.
type CompileRequest struct {
	SandboxID         string
	Modules           []ModuleInput
	Entry             string
	ExternalResources []string
	Dependencies      map[string]string
	HasActions        bool
	Template          string
}

// Sandbox owns one compile session: a graph.Manager plus the collaborators
// a host-facing compile loop needs beyond what the manager itself tracks
// (a channel for result events).
type Sandbox struct {
	id      string
	cfg     Config
	manager *graph.Manager
	channel hostchannel.Channel
	depsKey string
}

// Config collects the collaborators New wires into a Sandbox. Zero values
// fall back to sensible defaults: the vanilla preset, a goja evaluator, an
// in-memory store, a null channel, a collecting diagnostics sink.
type Config struct {
	Preset     graph.Preset
	Evaluator  graph.Evaluator
	Store      graph.Store
	Manifest   graph.Manifest
	Downloader graph.DependencyDownloader
	Sink       graph.Sink
	Channel    hostchannel.Channel
	SourceMaps bool

	// Externals seeds the graph's externals table: specifiers the host
	// supplies directly (e.g. via an import map entry naming a bare
	// specifier as its own target) rather than ones this graph transpiles.
	Externals map[string]graph.External
}

// New builds a Sandbox for sandboxID from cfg, filling in defaults for any
// collaborator left unset.
func New(sandboxID string, cfg Config) *Sandbox {
	if cfg.Preset == nil {
		cfg.Preset = preset.NewVanillaPreset()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = eval.NewGojaEvaluator()
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore(100)
	}
	if cfg.Sink == nil {
		cfg.Sink = &diagnostics.CollectingSink{}
	}
	if cfg.Channel == nil {
		cfg.Channel = hostchannel.NullChannel{}
	}

	manager := buildManager(sandboxID, cfg)
	return &Sandbox{id: sandboxID, cfg: cfg, manager: manager, channel: cfg.Channel}
}

func buildManager(sandboxID string, cfg Config) *graph.Manager {
	opts := []graph.Option{
		graph.WithEvaluator(cfg.Evaluator),
		graph.WithStore(cfg.Store),
		graph.WithSink(cfg.Sink),
		graph.WithSourceMaps(cfg.SourceMaps),
	}
	if cfg.Downloader != nil {
		opts = append(opts, graph.WithDownloader(cfg.Downloader))
	}
	if cfg.Externals != nil {
		opts = append(opts, graph.WithExternals(cfg.Externals))
	}

	manager := graph.NewManager(sandboxID, cfg.Preset, opts...)
	if cfg.Manifest != nil {
		manager.SetManifest(cfg.Manifest)
	}
	// Best-effort restore of this sandbox's prior graph from the store, per
	// the manager's own documented Load policy: a missing or undecodable
	// blob just leaves the manager empty rather than failing construction.
	_ = manager.Load()
	return manager
}

// dependencyKey builds a stable signature of a dependency set, used to
// detect the "new combination" the dependency-loader contract calls out:
// a change to which package versions are in play invalidates everything
// the old manager resolved against the old set, not just the edited
// files.
func dependencyKey(deps map[string]string) string {
	pairs := make([]string, 0, len(deps))
	for name, version := range deps {
		pairs = append(pairs, name+"@"+version)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// reconcileDependencies rebuilds the graph manager from scratch when
// req.Dependencies names a different package/version combination than
// the last compiled request, per the dependency-loader collaborator
// contract: "a new combination invalidates the whole manager". A new
// Sandbox starts from the empty key, so a first request that names any
// dependencies also rebuilds the manager (which reloads the same stored
// graph New loaded).
func (s *Sandbox) reconcileDependencies(deps map[string]string) {
	key := dependencyKey(deps)
	if key == s.depsKey {
		return
	}
	first := s.depsKey == "" && key == ""
	s.depsKey = key
	if first {
		return
	}
	s.manager = buildManager(s.id, s.cfg)
}

// Compile runs one compile request to completion: adopts req's file set,
// transpiles the entry (and every transitively discovered dependency),
// evaluates it, persists the resulting graph, and emits the matching
// event over the sandbox's host channel.
func (s *Sandbox) Compile(req CompileRequest) (map[string]any, error) {
	s.reconcileDependencies(req.Dependencies)

	modules := make([]*module.Module, len(req.Modules))
	for i, m := range req.Modules {
		modules[i] = &module.Module{Path: m.Path, Code: m.Code}
	}
	s.manager.UpdateData(modules)

	var entryMod *module.Module
	for _, mod := range modules {
		if mod.Path == req.Entry {
			entryMod = mod
			break
		}
	}
	if entryMod == nil {
		err := fmt.Errorf("sandbox: entry %q not found in request modules", req.Entry)
		s.failRequest(err, req.Entry, req.Entry)
		return nil, err
	}

	entry := s.manager.AddTranspiledModule(entryMod, "")

	if err := s.manager.TranspileModules(entry); err != nil {
		mod, file := errorLocation(err, req.Entry)
		s.failRequest(err, mod, file)
		return nil, err
	}

	exports, err := s.manager.EvaluateModule(entry)
	if err != nil {
		mod, file := errorLocation(err, req.Entry)
		s.failRequest(err, mod, file)
		return nil, err
	}

	if err := s.manager.Save(); err != nil {
		mod, file := errorLocation(err, req.Entry)
		s.failRequest(err, mod, file)
		return nil, err
	}

	_ = s.channel.Emit(hostchannel.Success())
	return exports, nil
}

// failRequest implements spec.md's request-level failure policy: clear
// the persisted cache blob for this sandbox and emit an error event
// tagged with the originating module and file.
func (s *Sandbox) failRequest(err error, mod, fileName string) {
	_ = s.manager.ClearCache()
	_ = s.channel.Emit(hostchannel.Error(err.Error(), mod, fileName))
}

// errorLocation extracts the module/fileName pair a TranspileError or
// EvalError carries, falling back to the request's entry when err is
// some other kind of failure.
func errorLocation(err error, fallback string) (mod, fileName string) {
	switch e := err.(type) {
	case *graph.TranspileError:
		if e.Module != nil {
			return e.Module.Module.Path, e.FileName
		}
		return fallback, e.FileName
	case *graph.EvalError:
		if e.Module != nil {
			return e.Module.Module.Path, e.FileName
		}
		return fallback, e.FileName
	default:
		return fallback, fallback
	}
}
