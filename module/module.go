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

// Package module holds the immutable input and output value types that flow
// through the sandbox compiler: the source Module a caller hands in, and the
// ModuleSource a loader chain produces from it.
package module

// Module is the immutable input unit of a compile request: one source file
// as supplied by the caller. Path is an absolute, slash-separated string.
//
// Requires, when non-nil, is an authoritative precomputed dependency list.
// Its presence short-circuits transformation entirely: the loader-chain
// runner treats Code as already-final and registers each entry as a runtime
// dependency instead of invoking any transformer. This is how an upstream
// service (e.g. a prebuilt dependency bundle) hands the graph manager code
// that must not be re-transpiled.
type Module struct {
	Path     string
	Code     string
	Requires []string
}

// HasAuthoritativeRequires reports whether Requires was supplied, meaning the
// loader chain must be skipped in favor of registering Requires directly.
func (m *Module) HasAuthoritativeRequires() bool {
	return m != nil && m.Requires != nil
}

// Source is the post-transform output of one loader-chain run: the code a
// TranspiledModule will hand to the evaluator, plus an optional source map
// for devtools. FileName is the virtual path the "//# sourceURL=" trailer
// will attribute the code to.
type Source struct {
	FileName     string
	CompiledCode string
	SourceMap    string
}

// SourceURLOrigin is the scheme+host prefix the graph manager appends ahead
// of a module's path when building the "//# sourceURL=" trailer, so that
// evaluated code is attributable to a stable, origin-qualified virtual URL
// in host devtools.
const SourceURLOrigin = "sandgraph://"

// WithSourceURL returns code with a "//# sourceURL=<origin><path>" trailer
// appended, matching the convention browser devtools use to attribute
// evaluated (non-fetched) code to a virtual file path.
func WithSourceURL(code, path string) string {
	return code + "\n//# sourceURL=" + SourceURLOrigin + path
}
