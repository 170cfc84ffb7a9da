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
	"testing"

	"sandgraph.dev/bundle/module"
	"sandgraph.dev/bundle/store"
)

// TestSaveThenLoadRestoresGraph exercises the public save/restore path a
// sandbox takes between two compile requests: Save serializes the current
// node table to a shared store, and a fresh Manager's Load against that
// same store and sandbox id rebuilds the node table (and its edges)
// without re-transpiling anything.
func TestSaveThenLoadRestoresGraph(t *testing.T) {
	backing := store.NewMemoryStore(10)

	first := newTestManager(WithStore(backing))
	a := mustMod("/a.js", "module.exports = require('./b').x * 2")
	b := mustMod("/b.js", "exports.x = 21")
	first.UpdateData([]*module.Module{a, b})
	entry := first.AddTranspiledModule(a, "")
	if err := first.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	if _, err := first.EvaluateModule(entry); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if err := first.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := NewManager(first.id, testPreset{}, WithStore(backing))
	if err := second.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	restored, ok := second.nodes[idOf("/a.js", "")]
	if !ok {
		t.Fatal("restored graph is missing /a.js")
	}
	if restored.Source == nil {
		t.Fatal("restored node lost its transpiled source")
	}
	depB, ok := second.nodes[idOf("/b.js", "")]
	if !ok {
		t.Fatal("restored graph is missing /b.js")
	}
	if !restored.HasDependency(depB) {
		t.Fatal("restored /a.js lost its dependency edge on /b.js")
	}
}

// TestLoadOnEmptyStoreIsANoOp exercises the spec's best-effort restore
// policy: a sandbox id the store has never seen leaves the manager with an
// empty graph instead of failing construction.
func TestLoadOnEmptyStoreIsANoOp(t *testing.T) {
	m := newTestManager(WithStore(store.NewMemoryStore(10)))
	if err := m.Load(); err != nil {
		t.Fatalf("load on empty store: %v", err)
	}
	if len(m.nodes) != 0 {
		t.Fatalf("expected an empty graph, got %d nodes", len(m.nodes))
	}
}
