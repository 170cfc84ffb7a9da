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
	"fmt"
	"sync"

	"sandgraph.dev/bundle/graph"
	"sandgraph.dev/bundle/resolver"
)

// Catalog satisfies graph.DependencyDownloader: it answers a "download"
// request for a bare specifier the current Registry doesn't carry yet, by
// looking the package up in its own, separate package set. A Manager's
// addDependency path tries the manifest first and only ever calls Download
// on a miss, so keeping Catalog's packages disjoint from the Registry's
// models "resolve what's already installed synchronously, fetch anything
// else asynchronously" without a real network round trip.
type Catalog struct {
	mu       sync.RWMutex
	packages map[string]*Package
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{packages: make(map[string]*Package)}
}

// Add registers pkg as downloadable under its package.json name.
func (c *Catalog) Add(pkg *Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packages[pkg.JSON.Name] = pkg
}

// Download implements graph.DependencyDownloader.
func (c *Catalog) Download(specifier, fromPath string) (*graph.TranspiledModuleSeed, error) {
	pkgName := resolver.PackageName(specifier)

	c.mu.RLock()
	pkg, ok := c.packages[pkgName]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("manifest: %s not found in catalog", pkgName)
	}

	subpath := resolver.Subpath(specifier, pkgName)
	seedPath := subpath
	if subpath == "." {
		seedPath = pkg.Main()
	}
	seed, ok := pkg.Module(seedPath)
	if !ok {
		return nil, fmt.Errorf("manifest: %s has no module at %q", pkgName, seedPath)
	}
	return seed, nil
}

// Promote copies a package from this Catalog into reg (the Catalog keeps
// it too), so a later
// require() of the same specifier resolves through the fast synchronous
// manifest path instead of downloading again. Mirrors the "installed
// once, cached thereafter" behavior an npm-backed DependencyDownloader
// would give for free.
func (c *Catalog) Promote(reg *Registry, packageName string) {
	c.mu.RLock()
	pkg, ok := c.packages[packageName]
	c.mu.RUnlock()
	if !ok {
		return
	}
	reg.Add(pkg)
}
