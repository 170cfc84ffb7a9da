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

// External describes one dependency whose code the host injects rather
// than the graph transpiling in-place: a runtime helper or a host API
// exposed directly as an export record.
type External struct {
	Exports map[string]any
}

// Manifest is the resolved mapping from external package specifiers to
// downloadable module records, adopted via Manager.SetManifest.
type Manifest interface {
	Lookup(packageName string) (ManifestEntry, bool)
}

// ManifestEntry is one resolved package entry: the set of its module paths
// and a way to fetch any one of them by path.
type ManifestEntry interface {
	Main() string
	Module(path string) (*TranspiledModuleSeed, bool)
}

// TranspiledModuleSeed is the raw material a manifest hands back for a path
// inside a resolved package, turned into a graph node via
// Manager.AddTranspiledModule.
type TranspiledModuleSeed struct {
	Path string
	Code string
}

// DependencyDownloader resolves a bare specifier unknown to the current
// manifest, standing in for the out-of-scope "dependency downloader"
// collaborator.
type DependencyDownloader interface {
	Download(specifier, fromPath string) (*TranspiledModuleSeed, error)
}

// Sink receives diagnostics flushed from a loader context, standing in for
// the out-of-scope "correction.show(message, loc)" collaborator.
type Sink interface {
	Warn(msg string, loc Location)
	Error(msg string, loc Location)
}

// nullSink discards every diagnostic; used when a Manager is built with no
// sink configured.
type nullSink struct{}

func (nullSink) Warn(string, Location)  {}
func (nullSink) Error(string, Location) {}

// Store persists and restores an opaque serialized-graph blob keyed by
// sandbox id.
type Store interface {
	Save(sandboxID string, blob []byte) error
	Load(sandboxID string) ([]byte, bool, error)
	Clear(sandboxID string) error
}

// nullStore never persists anything; Load always reports "not found".
type nullStore struct{}

func (nullStore) Save(string, []byte) error            { return nil }
func (nullStore) Load(string) ([]byte, bool, error)     { return nil, false, nil }
func (nullStore) Clear(string) error                    { return nil }
