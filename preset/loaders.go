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
package preset

import (
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"sandgraph.dev/bundle/graph"
)

// esbuildLoader strips TypeScript/JSX syntax down to plain JavaScript via
// esbuild's single-file Transform API, then always hands the *output* to a
// require/import scan: esbuild's Transform mode doesn't resolve modules, so
// dependency discovery is layered on top rather than owned by the
// transform step.
//
// Grounded on bennypowers-cem's transform.TransformTypeScript, which
// follows the exact same "esbuild strips syntax, tree-sitter finds deps"
// split.
type esbuildLoader struct{}

func (esbuildLoader) Transpile(ctx *graph.LoaderContext, code string) (string, error) {
	loader := esbuildLoaderFor(ctx.Path)
	result := api.Transform(code, api.TransformOptions{
		Loader:      loader,
		Target:      api.ESNext,
		Sourcemap:   sourcemapMode(ctx.SourceMap),
		Sourcefile:  ctx.Path,
		TsconfigRaw: `{"compilerOptions":{"importHelpers":false}}`,
	})
	for _, e := range result.Errors {
		ctx.EmitError(e.Text, locationOf(e.Location))
	}
	for _, w := range result.Warnings {
		ctx.EmitWarning(w.Text, locationOf(w.Location))
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("esbuild: %s", result.Errors[0].Text)
	}

	out := string(result.Code)
	if err := scanAndRegister(ctx, out); err != nil {
		return "", err
	}
	return out, nil
}

func (esbuildLoader) Cacheable() bool { return true }
func (esbuildLoader) Cleanup()        {}

func esbuildLoaderFor(modulePath string) api.Loader {
	switch ext(modulePath) {
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

func sourcemapMode(enabled bool) api.SourceMap {
	if enabled {
		return api.SourceMapInline
	}
	return api.SourceMapNone
}

func locationOf(loc *api.Location) graph.Location {
	if loc == nil {
		return graph.Location{}
	}
	return graph.Location{Line: loc.Line, Column: loc.Column}
}

// requireScanLoader registers every statically discoverable ESM or
// CommonJS specifier as a dependency and emits the source unchanged: the
// identity transformer used for files that need dependency discovery but
// no syntax transform (and the tail step esbuildLoader always runs).
type requireScanLoader struct{}

func (requireScanLoader) Transpile(ctx *graph.LoaderContext, code string) (string, error) {
	if err := scanAndRegister(ctx, code); err != nil {
		return "", err
	}
	return code, nil
}

func (requireScanLoader) Cacheable() bool { return true }
func (requireScanLoader) Cleanup()        {}

func scanAndRegister(ctx *graph.LoaderContext, code string) error {
	content := []byte(code)

	imports, err := scanImports(content)
	if err != nil {
		return err
	}
	requires, err := scanRequires(content)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(imports)+len(requires))
	for _, s := range append(imports, requires...) {
		if seen[s.Text] {
			continue
		}
		seen[s.Text] = true
		if _, err := ctx.AddDependency(s.Text, false); err != nil {
			ctx.EmitWarning(err.Error(), graph.Location{Line: s.Line})
		}
	}
	return nil
}

// jsonLoader wraps JSON content as a CommonJS export. It never discovers
// dependencies.
type jsonLoader struct{}

func (jsonLoader) Transpile(ctx *graph.LoaderContext, code string) (string, error) {
	return "module.exports = " + strings.TrimSpace(code) + ";", nil
}

func (jsonLoader) Cacheable() bool { return true }
func (jsonLoader) Cleanup()        {}

func ext(modulePath string) string {
	return strings.ToLower(path.Ext(modulePath))
}
