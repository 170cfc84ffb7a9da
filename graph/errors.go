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

import "fmt"

// Location is a source position a diagnostic can be attributed to. Line and
// Column are 1-indexed; a zero value means "unknown position".
type Location struct {
	Line   int
	Column int
}

// Diagnostic is a single warning or error emitted by a loader during
// transpilation, carrying enough position information for a diagnostics
// sink to point a user at it.
type Diagnostic struct {
	Message string
	Loc     Location
}

// TranspileError wraps a transpiler failure with the node and file it
// occurred in, so the caller can abort the current transpile walk and still
// report which module and source path failed.
type TranspileError struct {
	FileName string
	Module   *TranspiledModule
	Err      error
}

func (e *TranspileError) Error() string {
	return fmt.Sprintf("transpile %s: %v", e.FileName, e.Err)
}

func (e *TranspileError) Unwrap() error { return e.Err }

// EvalError wraps an evaluation failure with the originating node.
type EvalError struct {
	FileName string
	Module   *TranspiledModule
	Err      error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.FileName, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// SelfImportError is returned by require() when a node imports its own
// source path.
type SelfImportError struct {
	Path string
}

func (e *SelfImportError) Error() string {
	return fmt.Sprintf("module %q cannot require itself", e.Path)
}
