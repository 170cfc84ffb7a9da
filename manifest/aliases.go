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
package manifest

import (
	"maps"

	"sandgraph.dev/bundle/importmap"
)

// AliasesFromImportMap turns an import map's top-level "imports" entries
// into a bare-specifier rewrite table for preset.VanillaPreset.WithAlias:
// a host page's <script type="importmap"> already expresses exactly the
// "specifier -> preferred target" rewrite a Preset's GetAliasedPath needs,
// so this reuses the import map shape directly rather than inventing a
// parallel one. Scoped entries are not carried: VanillaPreset's alias
// table has no notion of a referrer-relative scope.
func AliasesFromImportMap(im *importmap.ImportMap) map[string]string {
	if im == nil {
		return nil
	}
	return maps.Clone(im.Imports)
}

// ExternalsFromImportMap reports which aliased targets should be treated
// as host externals rather than followed into the graph: any import map
// target that is itself a bare specifier (not a relative path or URL) is
// a signal that the host, not this graph, supplies that module — e.g. an
// import map entry like "react": "react" naming a global the host
// injects under module.hot-free semantics.
func ExternalsFromImportMap(im *importmap.ImportMap, isBareSpecifier func(string) bool) []string {
	if im == nil {
		return nil
	}
	var externals []string
	for specifier, target := range im.Imports {
		if isBareSpecifier(target) {
			externals = append(externals, specifier)
		}
	}
	return externals
}
