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

// RequireFunc is the require(specifier) closure built per-evaluation,
// capturing the manager, the requesting node, and the parent stack used for
// cycle-breaking.
type RequireFunc func(specifier string) (map[string]any, error)

// Evaluator compiles code text into an executable unit and runs it with the
// standard module globals injected, reporting whatever the unit assigned to
// module.exports / exports back through compilation.Exports.
type Evaluator interface {
	Evaluate(compiledCode string, require RequireFunc, compilation *Compilation, env map[string]string) error
}
