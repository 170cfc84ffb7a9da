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

// Package preset is the default vanilla template: a file-extension-driven
// loader chain (esbuild for JS/TS, a tree-sitter dependency scanner, a JSON
// wrapper) satisfying the graph package's Preset/Transpiler interfaces.
//
// Grounded on bennypowers-mappa's trace package: the pooled tree-sitter
// parser and embedded-query-file pattern (trace/queries.go) generalized
// from its two purposes (HTML script-tag scan, ESM import scan) down to a
// single TypeScript grammar serving two queries — the teacher's own
// import-scan query plus a new require-call query this package adds.
package preset

import (
	"embed"
	"fmt"
	"path"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

var tsLanguage = ts.NewLanguage(tsTypescript.LanguageTypescript())

var tsParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(tsLanguage); err != nil {
			panic("preset: failed to set TypeScript language: " + err.Error())
		}
		return parser
	},
}

func getTSParser() *ts.Parser { return tsParserPool.Get().(*ts.Parser) }

func putTSParser(p *ts.Parser) {
	p.Reset()
	tsParserPool.Put(p)
}

type queryManager struct {
	mu      sync.Mutex
	queries map[string]*ts.Query
}

func (qm *queryManager) load(name string) (*ts.Query, error) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	if q, ok := qm.queries[name]; ok {
		return q, nil
	}
	data, err := queryFiles.ReadFile(path.Join("queries", "typescript", name+".scm"))
	if err != nil {
		return nil, fmt.Errorf("preset: read query %s: %w", name, err)
	}
	q, err := ts.NewQuery(tsLanguage, string(data))
	if err != nil {
		return nil, fmt.Errorf("preset: parse query %s: %w", name, err)
	}
	if qm.queries == nil {
		qm.queries = make(map[string]*ts.Query)
	}
	qm.queries[name] = q
	return q, nil
}

var globalQM = &queryManager{}
