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

// Package diagnostics provides graph.Sink backends for loader warnings
// and errors: StderrSink prints them the way the teacher's trace package
// does, and CollectingSink accumulates them for tests and for bridging to
// a hostchannel.Channel.
package diagnostics

import (
	"fmt"
	"io"
	"sync"

	"sandgraph.dev/bundle/graph"
)

// StderrSink writes diagnostics to w, grounded on trace/graph.go's
// "Warning: failed to parse %s: %v\n" style.
type StderrSink struct {
	w io.Writer
}

// NewStderrSink returns a StderrSink writing through w (typically
// os.Stderr).
func NewStderrSink(w io.Writer) *StderrSink { return &StderrSink{w: w} }

func (s *StderrSink) Warn(msg string, loc graph.Location) {
	fmt.Fprintf(s.w, "Warning: %s%s\n", msg, locSuffix(loc))
}

func (s *StderrSink) Error(msg string, loc graph.Location) {
	fmt.Fprintf(s.w, "Error: %s%s\n", msg, locSuffix(loc))
}

func locSuffix(loc graph.Location) string {
	switch {
	case loc.Line == 0:
		return ""
	case loc.Column == 0:
		return fmt.Sprintf(" (line %d)", loc.Line)
	default:
		return fmt.Sprintf(" (line %d, col %d)", loc.Line, loc.Column)
	}
}

// CollectingSink accumulates diagnostics instead of printing them, for
// tests and for forwarding into a hostchannel.Channel.
type CollectingSink struct {
	mu       sync.Mutex
	Warnings []graph.Diagnostic
	Errors   []graph.Diagnostic
}

func (s *CollectingSink) Warn(msg string, loc graph.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Warnings = append(s.Warnings, graph.Diagnostic{Message: msg, Loc: loc})
}

func (s *CollectingSink) Error(msg string, loc graph.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, graph.Diagnostic{Message: msg, Loc: loc})
}

// Drain returns and clears the accumulated diagnostics, for a
// hostchannel bridge that flushes periodically.
func (s *CollectingSink) Drain() (warnings, errors []graph.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	warnings, s.Warnings = s.Warnings, nil
	errors, s.Errors = s.Errors, nil
	return warnings, errors
}
