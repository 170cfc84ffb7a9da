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
	"path"

	"sandgraph.dev/bundle/module"
)

// Preset selects and configures the loader chain for a given module and
// query string, and maps bare specifiers through any alias table it owns.
// Concrete presets (the default vanilla preset, or a caller-supplied one)
// live outside this package and are wired in at the sandbox composition
// root so graph never imports its own collaborators.
type Preset interface {
	// GetLoaders returns the ordered loader chain to run for m, given the
	// loader-chain query string split off its specifier (empty if none).
	GetLoaders(m *module.Module, query string) ([]Transpiler, error)

	// GetAliasedPath rewrites specifier through a preset-owned alias table.
	// Implementations that have no aliases return specifier unchanged.
	GetAliasedPath(specifier string) string
}

// Transpiler is one link of a loader chain: it consumes the previous link's
// code (or the original source, for the first link) and produces the next
// link's input, using ctx to register dependencies, assets, and
// diagnostics along the way.
type Transpiler interface {
	Transpile(ctx *LoaderContext, code string) (string, error)

	// Cacheable reports whether the node's evaluation result may be kept
	// after an evaluation walk; if any loader in the chain returns false,
	// postEvaluate drops the node's compilation. Loaders that depend on
	// external, untracked state (wall clock, environment) return false.
	Cacheable() bool

	// Cleanup releases any resources the loader acquired for this node
	// (e.g. a parser handle); postEvaluate calls it for a node that has no
	// initiators and is not an entry.
	Cleanup()
}

// LoaderContext is the capability set a Transpiler receives for one run: it
// is bound to a single (node, manager) pair at creation and discarded after
// the run, rather than held as ambient global state.
type LoaderContext struct {
	// Path is the module path of the node being transpiled, Target the
	// manager's (sandbox) id.
	Path      string
	Target    string
	SourceMap bool
	Options   map[string]any

	node    *TranspiledModule
	manager *Manager
}

func newLoaderContext(n *TranspiledModule, m *Manager) *LoaderContext {
	return &LoaderContext{
		Path:      n.Module.Path,
		Target:    m.id,
		SourceMap: m.sourceMaps,
		Options:   m.loaderOptions,
		node:      n,
		manager:   m,
	}
}

// EmitWarning records a non-fatal diagnostic against the node being
// transpiled.
func (c *LoaderContext) EmitWarning(msg string, loc Location) {
	c.node.Warnings = append(c.node.Warnings, Diagnostic{Message: msg, Loc: loc})
}

// EmitError records a diagnostic against the node being transpiled. Once
// the current loader returns, the first recorded error fails the node's
// transpile and the remaining loaders in the chain do not run.
func (c *LoaderContext) EmitError(msg string, loc Location) {
	c.node.Errors = append(c.node.Errors, Diagnostic{Message: msg, Loc: loc})
}

// EmitModule registers an auxiliary module a loader synthesizes on the fly
// (e.g. a CSS-in-JS extraction) under the current node's directory, or
// dirPath if given, as a child and a dependency of the node. The emitted
// module also joins the manager's file set, so a require() of its path
// resolves to it.
func (c *LoaderContext) EmitModule(modulePath, code, dirPath string) *TranspiledModule {
	base := dirPath
	if base == "" {
		base = path.Dir(c.node.Module.Path)
	}
	full := path.Join(base, modulePath)

	m := &module.Module{Path: full, Code: code}
	child := c.manager.getOrCreateNode(m, "")

	c.manager.mu.Lock()
	child.parent = c.node
	c.node.childModules = append(c.node.childModules, child)
	c.node.linkDependency(child)
	c.manager.mu.Unlock()

	return child
}

// EmitFile attaches a non-JS asset (e.g. a font, an image) to the node so
// the serializer persists it alongside the compiled code.
func (c *LoaderContext) EmitFile(name string, src *module.Source) {
	c.node.Assets[name] = src
	c.node.EmittedAssets = append(c.node.EmittedAssets, name)
}

// AddDependency resolves specifier from the node being transpiled and links
// it as a runtime dependency; the dependency itself is transpiled in the
// node's fan-out after the loader chain finishes. A module-not-found with
// IsDependency set
// starts an async download instead of failing immediately. isAbsolute
// joins specifier against the sandbox root instead of the node's own
// directory, for loaders whose specifier is already root-relative.
func (c *LoaderContext) AddDependency(specifier string, isAbsolute bool) (*TranspiledModule, error) {
	return c.manager.addDependency(c.node, specifier, true, isAbsolute)
}

// AddTranspilationDependency is AddDependency's compile-time-only
// counterpart: the edge feeds resetTranspilation's cascade but not the
// evaluated require() graph.
func (c *LoaderContext) AddTranspilationDependency(specifier string, isAbsolute bool) (*TranspiledModule, error) {
	return c.manager.addDependency(c.node, specifier, false, isAbsolute)
}

// AddDependenciesInDirectory links every module under dir (relative to the
// node's own path) as a runtime dependency, for loaders that need a glob of
// siblings (e.g. a directory-import convention) rather than one specifier.
func (c *LoaderContext) AddDependenciesInDirectory(dir string) ([]*TranspiledModule, error) {
	return c.manager.addDependenciesInDirectory(c.node, dir), nil
}

// GetModules returns every module path currently known to the manager, for
// loaders that need a project-wide view (e.g. to synthesize a barrel file).
func (c *LoaderContext) GetModules() []string {
	return c.manager.modulePaths()
}
