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

// Package resolver implements the stateless half of module specifier
// resolution: joining relative paths, trying the extension/index fallback
// chain, and classifying bare package specifiers. It holds no graph state;
// the graph package drives it with callbacks into the live file set,
// externals, and manifest so that resolution stays a pure function of its
// inputs and is independently testable.
//
// Grounded on bennypowers-mappa's trace.Tracer.resolvePath /
// resolveBareSpecifier / isBareSpecifier / getPackageName, generalized from
// a single-purpose HTML/JS tracer into a general (specifier, fromPath)
// resolver.
package resolver

import (
	"fmt"
	"path"
	"strings"
)

// ScriptExtensions is the fallback suffix list tried, in order, against a
// bare path and against "<path>/index" when an exact file is not found.
var ScriptExtensions = []string{"", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".json"}

// NotFoundError is returned when no candidate path exists in the file set.
// IsDependency marks a bare specifier whose package is unknown to either
// externals or the manifest, signalling the caller (graph.Manager) to
// attempt an async download.
type NotFoundError struct {
	Specifier    string
	IsDependency bool
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module-not-found: %q", e.Specifier)
}

// Exists abstracts "does this exact path exist in the current file set",
// letting callers answer from an in-memory map without resolver knowing
// about Module or Manager types.
type Exists func(path string) bool

// IsBareSpecifier reports whether specifier is a bare package specifier:
// it does not start with "./", "../", or "/", and is not a URL.
func IsBareSpecifier(specifier string) bool {
	if specifier == "" {
		return false
	}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return false
	}
	if strings.HasPrefix(specifier, "/") {
		return false
	}
	if strings.Contains(specifier, "://") {
		return false
	}
	return true
}

// PackageName extracts the package name from a bare specifier, honoring
// scoped packages ("@scope/pkg/sub" -> "@scope/pkg").
func PackageName(specifier string) string {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			return path.Join(parts[0], parts[1])
		}
		return specifier
	}
	parts := strings.SplitN(specifier, "/", 2)
	return parts[0]
}

// SplitLoaderChain splits a "loader!loader?opt=1!./final/path" specifier
// into its loader-chain prefix (the query, verbatim) and the trailing path
// component. ok is false when specifier has no "!" separator, in which case
// path equals specifier and query is empty.
func SplitLoaderChain(specifier string) (query, path string, ok bool) {
	idx := strings.LastIndex(specifier, "!")
	if idx < 0 {
		return "", specifier, false
	}
	return specifier[:idx], specifier[idx+1:], true
}

// JoinRelative resolves a relative or web-absolute specifier against a
// base directory and a root directory: "/foo" is rooted at rootDir
// (web-style absolute), everything else is joined against baseDir.
func JoinRelative(rootDir, baseDir, specifier string) string {
	if strings.HasPrefix(specifier, "/") {
		return path.Join(rootDir, specifier)
	}
	return path.Join(baseDir, specifier)
}

// ResolveFile tries candidate, then candidate+ext for each of exts, then
// candidate+"/index"+ext for each of exts, returning the first path for
// which exists reports true. Returns a *NotFoundError when nothing matches.
func ResolveFile(candidate string, exts []string, exists Exists) (string, error) {
	for _, ext := range exts {
		p := candidate + ext
		if exists(p) {
			return p, nil
		}
	}
	for _, ext := range exts {
		p := path.Join(candidate, "index"+ext)
		if exists(p) {
			return p, nil
		}
	}
	return "", &NotFoundError{Specifier: candidate}
}

// Subpath converts a bare specifier and its package name into the
// package-relative subpath used for package.json "exports" resolution:
// "lit/decorators.js" with package "lit" -> "./decorators.js"; "lit" with
// package "lit" -> ".".
func Subpath(specifier, pkgName string) string {
	sub := strings.TrimPrefix(specifier, pkgName)
	if sub == "" {
		return "."
	}
	return "." + sub
}
