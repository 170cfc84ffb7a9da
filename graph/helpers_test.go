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
	"regexp"

	"sandgraph.dev/bundle/eval"
	"sandgraph.dev/bundle/module"
)

// testPreset is the minimal Preset a scenario test needs: no aliasing, one
// loader in the chain.
type testPreset struct{}

func (testPreset) GetLoaders(m *module.Module, query string) ([]Transpiler, error) {
	return []Transpiler{requireScanner{}}, nil
}

func (testPreset) GetAliasedPath(specifier string) string { return specifier }

var requireRe = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)

// requireScanner is a stand-in for a real parser-backed loader: it finds
// every require('...') call textually and registers it as a runtime
// dependency, leaving the source otherwise untouched so the evaluator sees
// plain CommonJS.
type requireScanner struct{}

func (requireScanner) Transpile(ctx *LoaderContext, code string) (string, error) {
	for _, m := range requireRe.FindAllStringSubmatch(code, -1) {
		if _, err := ctx.AddDependency(m[1], false); err != nil {
			return "", err
		}
	}
	return code, nil
}

func (requireScanner) Cacheable() bool { return true }
func (requireScanner) Cleanup()        {}

// newTestManager builds a Manager wired with a real JS evaluator (so
// evaluate() actually runs the given source through goja) and the
// require-scanning test preset, plus any additional options a scenario
// needs (a downloader for S6, WithReload for the webpack-HMR path, etc).
func newTestManager(opts ...Option) *Manager {
	full := append([]Option{WithEvaluator(eval.NewGojaEvaluator())}, opts...)
	return NewManager("test", testPreset{}, full...)
}

func mustMod(path, code string) *module.Module { return &module.Module{Path: path, Code: code} }
