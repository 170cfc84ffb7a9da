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
	"testing"

	"sandgraph.dev/bundle/module"
)

// S1: single-file evaluation.
func TestScenarioSingleFileEvaluation(t *testing.T) {
	m := newTestManager()
	idx := mustMod("/index.js", "module.exports = 1 + 2")
	m.UpdateData([]*module.Module{idx})
	entry := m.AddTranspiledModule(idx, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	exports, err := m.EvaluateModule(entry)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := exports["default"]; got != int64(3) && got != float64(3) {
		t.Fatalf("exports = %#v, want 3", exports)
	}
}

// S2: two-file linkage.
func TestScenarioTwoFileLinkage(t *testing.T) {
	m := newTestManager()
	a := mustMod("/a.js", "module.exports = require('./b').x * 2")
	b := mustMod("/b.js", "exports.x = 21")
	m.UpdateData([]*module.Module{a, b})

	entry := m.AddTranspiledModule(a, "")
	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	exports, err := m.EvaluateModule(entry)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := exports["default"]; got != int64(42) && got != float64(42) {
		t.Fatalf("exports = %#v, want 42", exports)
	}

	bNode, ok := m.nodes[idOf("/b.js", "")]
	if !ok {
		t.Fatal("b.js node missing")
	}
	if !entry.HasDependency(bNode) {
		t.Fatal("a -> b dependency edge missing")
	}
	if _, ok := bNode.initiators[entry]; !ok {
		t.Fatal("b -> a initiator edge missing")
	}
	if entry.Source == nil || entry.compilation == nil {
		t.Fatal("entry missing source/compilation")
	}
	if bNode.Source == nil || bNode.compilation == nil {
		t.Fatal("b.js missing source/compilation")
	}
}

// S3: cycle tolerance.
func TestScenarioCycleTolerance(t *testing.T) {
	m := newTestManager()
	a := mustMod("/a.js", "exports.a=1; exports.b=require('./b').b")
	b := mustMod("/b.js", "exports.b=2; exports.a=require('./a').a")
	m.UpdateData([]*module.Module{a, b})

	entry := m.AddTranspiledModule(a, "")
	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	exports, err := m.EvaluateModule(entry)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := exports["b"]; got != int64(2) && got != float64(2) {
		t.Fatalf("a.b = %#v, want 2", exports)
	}
}

// S4: edit invalidation.
func TestScenarioEditInvalidation(t *testing.T) {
	m := newTestManager()
	a := mustMod("/a.js", "module.exports = require('./b').x * 2")
	b := mustMod("/b.js", "exports.x = 21")
	m.UpdateData([]*module.Module{a, b})

	entry := m.AddTranspiledModule(a, "")
	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	if _, err := m.EvaluateModule(entry); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	bNode := m.nodes[idOf("/b.js", "")]
	newB := mustMod("/b.js", "exports.x = 100")
	m.UpdateData([]*module.Module{a, newB})

	if bNode.Source != nil {
		t.Fatal("b.source was not cleared after update")
	}
	if entry.compilation != nil {
		t.Fatal("a.compilation was not cleared by resetCompilation cascade")
	}

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("re-transpile: %v", err)
	}
	exports, err := m.EvaluateModule(entry)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if got := exports["default"]; got != int64(200) && got != float64(200) {
		t.Fatalf("exports = %#v, want 200", exports)
	}
}

// S5: HMR accept.
func TestScenarioHMRAccept(t *testing.T) {
	reloaded := false
	m := newTestManager(WithReload(func() { reloaded = true }))

	a := mustMod("/a.js", "module.hot.accept(); module.exports = require('./b').x")
	b := mustMod("/b.js", "exports.x = 1")
	m.UpdateData([]*module.Module{a, b})

	entry := m.AddTranspiledModule(a, "")
	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	if _, err := m.EvaluateModule(entry); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !entry.hmr.SelfAccepting() {
		t.Fatal("module.hot.accept() should have marked the entry self-accepting")
	}

	bNode := m.nodes[idOf("/b.js", "")]
	newB := mustMod("/b.js", "exports.x = 2")
	m.UpdateData([]*module.Module{a, newB})

	if entry.Source == nil {
		t.Fatal("entry.source cleared even though it is HMR-enabled")
	}
	if !entry.changed {
		t.Fatal("a.changed was not set true by the HMR-short-circuited resetCompilation")
	}
	if bNode.Source != nil {
		t.Fatal("b.source should have been cleared by update")
	}

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("re-transpile: %v", err)
	}
	exports, err := m.EvaluateModule(entry)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if got := exports["default"]; got != int64(2) && got != float64(2) {
		t.Fatalf("exports = %#v, want 2", exports)
	}
	if reloaded {
		t.Fatal("location.reload should not have been requested for an HMR-accepting entry")
	}
}

// S6: async dependency recovery.
type fakeDownloader struct {
	specifier, fromPath string
	seed                *TranspiledModuleSeed
	err                 error
}

func (d *fakeDownloader) Download(specifier, fromPath string) (*TranspiledModuleSeed, error) {
	d.specifier, d.fromPath = specifier, fromPath
	if d.err != nil {
		return nil, d.err
	}
	return d.seed, nil
}

func TestScenarioAsyncDependencyRecovery(t *testing.T) {
	downloader := &fakeDownloader{
		seed: &TranspiledModuleSeed{Path: "/missing-pkg/index.js", Code: "module.exports = 7"},
	}
	m := newTestManager(WithDownloader(downloader))

	a := mustMod("/a.js", "module.exports = require('missing-pkg')")
	m.UpdateData([]*module.Module{a})
	entry := m.AddTranspiledModule(a, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}
	if downloader.specifier != "missing-pkg" || downloader.fromPath != "/a.js" {
		t.Fatalf("downloader called with (%q, %q), want (missing-pkg, /a.js)", downloader.specifier, downloader.fromPath)
	}

	depNode, ok := m.nodes[idOf("/missing-pkg/index.js", "")]
	if !ok {
		t.Fatal("downloaded module did not get a node")
	}
	if !entry.HasDependency(depNode) {
		t.Fatal("a -> missing-pkg dependency edge missing after recovery")
	}

	exports, err := m.EvaluateModule(entry)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := exports["default"]; got != int64(7) && got != float64(7) {
		t.Fatalf("exports = %#v, want 7", exports)
	}
}

func TestScenarioAsyncDependencyRecoveryFailure(t *testing.T) {
	downloader := &fakeDownloader{err: errors.New("registry unreachable")}
	m := newTestManager(WithDownloader(downloader))

	a := mustMod("/a.js", "module.exports = require('missing-pkg')")
	m.UpdateData([]*module.Module{a})
	entry := m.AddTranspiledModule(a, "")

	if err := m.TranspileModules(entry); err != nil {
		t.Fatalf("transpile: %v", err)
	}

	_, err := m.EvaluateModule(entry)
	if err == nil {
		t.Fatal("expected evaluation to fail when the dependency could not be recovered")
	}
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("error = %#v, want *EvalError", err)
	}
	if evalErr.FileName != "/a.js" {
		t.Fatalf("evalErr.FileName = %q, want /a.js", evalErr.FileName)
	}
}
