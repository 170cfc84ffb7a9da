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
	ts "github.com/tree-sitter/go-tree-sitter"
)

// specifier is one statically-discoverable specifier found by scanning
// source text, with the 1-based line it was found on for diagnostics.
type specifier struct {
	Text string
	Line int
}

// scanSpecifiers parses content with the TypeScript grammar and runs every
// named query in queryNames, collecting every capture named captureName
// across all of them. A query whose content never matches the source
// (e.g. requires.scm against an ESM-only file) contributes nothing.
func scanSpecifiers(content []byte, queryNames []string, captureName string) ([]specifier, error) {
	parser := getTSParser()
	defer putTSParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	var found []specifier
	for _, name := range queryNames {
		query, err := globalQM.load(name)
		if err != nil {
			return nil, err
		}

		cursor := ts.NewQueryCursor()
		matches := cursor.Matches(query, tree.RootNode(), content)
		captureNames := query.CaptureNames()

		for {
			match := matches.Next()
			if match == nil {
				break
			}
			for _, capture := range match.Captures {
				if captureNames[capture.Index] != captureName {
					continue
				}
				found = append(found, specifier{
					Text: capture.Node.Utf8Text(content),
					Line: int(capture.Node.StartPosition().Row) + 1,
				})
			}
		}
		cursor.Close()
	}
	return found, nil
}

// scanImports finds ESM static import/export-from/dynamic-import
// specifiers.
func scanImports(content []byte) ([]specifier, error) {
	imports, err := scanSpecifiers(content, []string{"imports"}, "import.spec")
	if err != nil {
		return nil, err
	}
	reexports, err := scanSpecifiers(content, []string{"imports"}, "reexport.spec")
	if err != nil {
		return nil, err
	}
	dynamic, err := scanSpecifiers(content, []string{"imports"}, "dynamicImport.spec")
	if err != nil {
		return nil, err
	}
	return append(append(imports, reexports...), dynamic...), nil
}

// scanRequires finds CommonJS require("...") call specifiers with a
// literal string argument. require(expr) calls whose argument is not a
// literal are invisible to this query by construction, not swallowed.
func scanRequires(content []byte) ([]specifier, error) {
	return scanSpecifiers(content, []string{"requires"}, "require.spec")
}
