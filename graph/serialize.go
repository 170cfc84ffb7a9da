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
	"bytes"
	"encoding/gob"

	"sandgraph.dev/bundle/module"
)

// idString is the id a serialized node is keyed and cross-referenced by:
// "path:query", exactly the identity pair a NodeID carries.
func idString(id NodeID) string { return id.Path + ":" + id.Query }

type serializedNode struct {
	Path     string
	Code     string
	Requires []string
	Query    string

	Source        *module.Source
	Assets        map[string]*module.Source
	EmittedAssets []string
	IsEntry       bool

	Dependencies              []string
	TranspilationDependencies []string
}

type blob struct {
	ByID map[string]serializedNode
}

// Serialize converts the live node table into an id-referenced plain
// record. Only dependency and transpilation-dependency edges are stored;
// their inverses (initiators, transpilation-initiators) are rebuilt by
// Deserialize from those, and async-dependency edges are dropped entirely
// since a restored graph has none pending.
func Serialize(nodes map[NodeID]*TranspiledModule) ([]byte, error) {
	b := blob{ByID: make(map[string]serializedNode, len(nodes))}
	for id, n := range nodes {
		sn := serializedNode{
			Path:          n.Module.Path,
			Code:          n.Module.Code,
			Requires:      n.Module.Requires,
			Query:         n.Query,
			Source:        n.Source,
			Assets:        n.Assets,
			EmittedAssets: n.EmittedAssets,
			IsEntry:       n.IsEntry,
		}
		for dep := range n.dependencies {
			sn.Dependencies = append(sn.Dependencies, idString(dep.ID()))
		}
		for dep := range n.transpilationDependencies {
			sn.TranspilationDependencies = append(sn.TranspilationDependencies, idString(dep.ID()))
		}
		b.ByID[idString(id)] = sn
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize restores a node table from a blob produced by Serialize:
// every id gets an empty node first, then edges (and their inverses) are
// relinked by id lookup. A dependency id with no matching node is silently
// skipped, matching the spec's "rediscover it later" policy.
func Deserialize(data []byte) (map[NodeID]*TranspiledModule, error) {
	var b blob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, err
	}

	nodes := make(map[NodeID]*TranspiledModule, len(b.ByID))
	byKey := make(map[string]*TranspiledModule, len(b.ByID))
	for key, sn := range b.ByID {
		id := NodeID{Path: sn.Path, Query: sn.Query}
		n := newTranspiledModule(&module.Module{Path: sn.Path, Code: sn.Code, Requires: sn.Requires}, sn.Query)
		n.Source = sn.Source
		n.Assets = sn.Assets
		if n.Assets == nil {
			n.Assets = make(map[string]*module.Source)
		}
		n.EmittedAssets = sn.EmittedAssets
		n.IsEntry = sn.IsEntry
		nodes[id] = n
		byKey[key] = n
	}

	for key, sn := range b.ByID {
		n := byKey[key]
		for _, depKey := range sn.Dependencies {
			if dep, ok := byKey[depKey]; ok {
				n.linkDependency(dep)
			}
		}
		for _, depKey := range sn.TranspilationDependencies {
			if dep, ok := byKey[depKey]; ok {
				n.linkTranspilationDependency(dep)
			}
		}
	}

	return nodes, nil
}
