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

// Package manifest resolves bare specifiers to module content, standing in
// for the out-of-scope real npm/CDN client: a Registry answers
// graph.Manifest lookups from package.json-shaped fixtures held in memory,
// and a Catalog answers graph.DependencyDownloader requests the same way
// for packages a Registry doesn't yet know about, driving the async
// download path without a real network client.
//
// Grounded on the teacher's packagejson package for the PackageJSON shape
// and export-conditions resolution, and on resolve/cdn.Resolver for the
// "registry of packages, looked up by name, keyed off package.json" shape
// — generalized from "produce import map entries pointing at a CDN" to
// "produce graph.TranspiledModuleSeed values the graph can adopt as
// modules directly", since the graph does not resolve across HTTP.
package manifest

import (
	"sync"

	"sandgraph.dev/bundle/graph"
	"sandgraph.dev/bundle/packagejson"
)

// Package is one resolved npm-shaped package: its package.json metadata
// plus the literal source of every file a consumer might request.
type Package struct {
	JSON  *packagejson.PackageJSON
	Files map[string]string // path (relative to package root) -> source code
}

// NewPackage builds a Package from parsed package.json metadata and a file
// set. Paths in files are package-root-relative, without a leading "./".
func NewPackage(json *packagejson.PackageJSON, files map[string]string) *Package {
	return &Package{JSON: json, Files: files}
}

// Main implements graph.ManifestEntry. Uses the "main" field, then the
// "module" field, and falls back to "index.js" when package.json carries
// neither.
func (p *Package) Main() string {
	if p.JSON.Main != "" {
		return p.JSON.Main
	}
	if p.JSON.Module != "" {
		return p.JSON.Module
	}
	return "index.js"
}

// Module implements graph.ManifestEntry. path is package-root-relative; a
// leading "./" or "/" is trimmed so callers can pass either form.
func (p *Package) Module(reqPath string) (*graph.TranspiledModuleSeed, bool) {
	clean := trimRelative(reqPath)
	code, ok := p.Files[clean]
	if !ok {
		return nil, false
	}
	return &graph.TranspiledModuleSeed{Path: clean, Code: code}, true
}

func trimRelative(p string) string {
	for len(p) > 0 && (p[0] == '.' || p[0] == '/') {
		p = p[1:]
	}
	return p
}

// Registry is an in-memory package.json-shaped catalog satisfying
// graph.Manifest, seeded up front (or grown incrementally) by test
// fixtures or a composition root.
type Registry struct {
	mu       sync.RWMutex
	packages map[string]*Package
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{packages: make(map[string]*Package)}
}

// Add registers pkg under its package.json name, overwriting any existing
// entry of the same name.
func (r *Registry) Add(pkg *Package) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[pkg.JSON.Name] = pkg
}

// Lookup implements graph.Manifest.
func (r *Registry) Lookup(packageName string) (graph.ManifestEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[packageName]
	if !ok {
		return nil, false
	}
	return pkg, true
}
