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
	"sandgraph.dev/bundle/graph"
	"sandgraph.dev/bundle/module"
)

// VanillaPreset is the default template: loader selection by file
// extension (ignoring any trailing loader-chain query), with an optional
// alias table for bare-specifier rewriting.
type VanillaPreset struct {
	aliases map[string]string
}

// NewVanillaPreset returns an empty-alias VanillaPreset.
func NewVanillaPreset() *VanillaPreset {
	return &VanillaPreset{aliases: make(map[string]string)}
}

// WithAlias registers a bare-specifier rewrite rule and returns the
// preset, for chained configuration.
func (p *VanillaPreset) WithAlias(from, to string) *VanillaPreset {
	p.aliases[from] = to
	return p
}

// GetAliasedPath rewrites specifier through the alias table, or returns it
// unchanged if no rule matches.
func (p *VanillaPreset) GetAliasedPath(specifier string) string {
	if to, ok := p.aliases[specifier]; ok {
		return to
	}
	return specifier
}

// GetLoaders selects the loader chain by file extension:
//   - .ts/.tsx/.jsx/.mjs/.cjs/.js -> esbuildLoader
//   - .json -> jsonLoader
//   - anything else -> requireScanLoader (the identity transformer: emits
//     source unchanged, still discovers dependencies)
func (p *VanillaPreset) GetLoaders(m *module.Module, query string) ([]graph.Transpiler, error) {
	switch ext(m.Path) {
	case ".ts", ".tsx", ".jsx", ".mjs", ".cjs", ".js":
		return []graph.Transpiler{esbuildLoader{}}, nil
	case ".json":
		return []graph.Transpiler{jsonLoader{}}, nil
	default:
		return []graph.Transpiler{requireScanLoader{}}, nil
	}
}
