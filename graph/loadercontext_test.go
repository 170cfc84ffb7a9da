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
	"testing"

	"sandgraph.dev/bundle/module"
)

// emittingLoader synthesizes one auxiliary module per transpile, exercising
// LoaderContext.EmitModule the way a CSS-in-JS extraction loader would.
type emittingLoader struct {
	name    string
	code    string
	dirPath string
}

func (l emittingLoader) Transpile(ctx *LoaderContext, code string) (string, error) {
	// The fixed preset runs this loader on the emitted module as well; that
	// module does not emit itself again.
	if path.Base(ctx.Path) == l.name {
		return code, nil
	}
	ctx.EmitModule(l.name, l.code, l.dirPath)
	return code, nil
}

func (emittingLoader) Cacheable() bool { return true }
func (emittingLoader) Cleanup()        {}

type fixedLoaderPreset struct{ loaders []Transpiler }

func (p fixedLoaderPreset) GetLoaders(m *module.Module, query string) ([]Transpiler, error) {
	return p.loaders, nil
}

func (fixedLoaderPreset) GetAliasedPath(specifier string) string { return specifier }

func TestEmitModuleRegistersChildAndDependency(t *testing.T) {
	preset := fixedLoaderPreset{loaders: []Transpiler{emittingLoader{name: "child.js", code: "exports.x = 1"}}}
	m := NewManager("test", preset)
	a := mustMod("/a.js", "")
	m.UpdateData([]*module.Module{a})
	entry := m.AddTranspiledModule(a, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}

	child, ok := m.nodes[idOf("/child.js", "")]
	if !ok {
		t.Fatal("emitted module was not registered at the node's own directory")
	}
	if child.parent != entry {
		t.Fatal("emitted module's parent was not set to the emitting node")
	}
	if len(entry.childModules) != 1 || entry.childModules[0] != child {
		t.Fatalf("emitting node's childModules = %v, want [child]", entry.childModules)
	}
	if !entry.HasDependency(child) {
		t.Fatal("emitted module was not linked as a dependency")
	}
}

func TestEmitModuleWithExplicitDirPath(t *testing.T) {
	preset := fixedLoaderPreset{loaders: []Transpiler{emittingLoader{name: "child.js", code: "exports.x = 1", dirPath: "/sub"}}}
	m := NewManager("test", preset)
	a := mustMod("/a.js", "")
	m.UpdateData([]*module.Module{a})
	entry := m.AddTranspiledModule(a, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}

	if _, ok := m.nodes[idOf("/sub/child.js", "")]; !ok {
		t.Fatal("emitted module ignored the explicit dirPath")
	}
}

func TestEmitModuleCascadesOnReset(t *testing.T) {
	preset := fixedLoaderPreset{loaders: []Transpiler{emittingLoader{name: "child.js", code: "exports.x = 1"}}}
	m := NewManager("test", preset)
	a := mustMod("/a.js", "")
	m.UpdateData([]*module.Module{a})
	entry := m.AddTranspiledModule(a, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	child := entry.childModules[0]
	if child.Source == nil {
		t.Fatal("child was not transpiled")
	}

	entry.reset()
	if child.Source != nil {
		t.Fatal("resetting the parent did not cascade into the emitted child")
	}
}

// requireScannerAbs registers a single dependency with the given
// isAbsolute flag, exercising addDependency's root-relative join.
type requireScannerAbs struct {
	specifier  string
	isAbsolute bool
}

func (l requireScannerAbs) Transpile(ctx *LoaderContext, code string) (string, error) {
	if _, err := ctx.AddDependency(l.specifier, l.isAbsolute); err != nil {
		return "", err
	}
	return code, nil
}

func (requireScannerAbs) Cacheable() bool { return true }
func (requireScannerAbs) Cleanup()        {}

func TestAddDependencyIsAbsoluteJoinsAgainstRoot(t *testing.T) {
	preset := fixedLoaderPreset{loaders: []Transpiler{requireScannerAbs{specifier: "other.js", isAbsolute: true}}}
	m := NewManager("test", preset)
	fromRoot := mustMod("/other.js", "exports.x = 1")
	nested := mustMod("/dir/a.js", "")
	m.UpdateData([]*module.Module{nested, fromRoot})
	entry := m.AddTranspiledModule(nested, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}

	dep, ok := m.nodes[idOf("/other.js", "")]
	if !ok || !entry.HasDependency(dep) {
		t.Fatal("isAbsolute dependency did not resolve against the sandbox root")
	}
}

func TestAddDependencyRelativeJoinsAgainstOwnDirectory(t *testing.T) {
	preset := fixedLoaderPreset{loaders: []Transpiler{requireScannerAbs{specifier: "other.js", isAbsolute: false}}}
	m := NewManager("test", preset)
	sibling := mustMod("/dir/other.js", "exports.x = 1")
	nested := mustMod("/dir/a.js", "")
	m.UpdateData([]*module.Module{nested, sibling})
	entry := m.AddTranspiledModule(nested, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}

	dep, ok := m.nodes[idOf("/dir/other.js", "")]
	if !ok || !entry.HasDependency(dep) {
		t.Fatal("relative dependency did not resolve against its own directory")
	}
}
