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

// Package requestqueue is the CLI-only stand-in for the out-of-scope
// "command queue" collaborator: a one-slot coalescing queue that never
// lets two compile requests overlap against the same sandbox.Sandbox,
// matching the graph manager's single-caller discipline.
package requestqueue

import (
	"sandgraph.dev/bundle/sandbox"
)

// Result is what one drained request produced: the compiled exports or
// the error sandbox.Compile returned.
type Result struct {
	Request sandbox.CompileRequest
	Exports map[string]any
	Err     error
}

// Queue holds at most one pending request per sandbox; submitting a new
// one while a previous one hasn't been picked up yet replaces it outright
// rather than queueing both, so a burst of file-watcher events collapses
// to the latest state.
type Queue struct {
	box     *sandbox.Sandbox
	pending chan sandbox.CompileRequest
	results chan Result
	done    chan struct{}
}

// New starts a worker goroutine draining requests against box one at a
// time, and returns the Queue controlling it. Call Stop to shut the
// worker down.
func New(box *sandbox.Sandbox) *Queue {
	q := &Queue{
		box:     box,
		pending: make(chan sandbox.CompileRequest, 1),
		results: make(chan Result, 1),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit replaces any still-pending request with req. The worker goroutine
// is never blocked waiting for a slow Submit caller: the channel buffer of
// 1 plus the drain-before-send below guarantees this call never blocks
// for longer than it takes to drain one stale, already-superseded value.
func (q *Queue) Submit(req sandbox.CompileRequest) {
	select {
	case <-q.pending:
	default:
	}
	select {
	case q.pending <- req:
	case <-q.done:
	}
}

// Results returns the channel a caller can range over for completed
// compiles, one Result per request that actually ran (a superseded
// request that was replaced before the worker picked it up never
// produces a Result).
func (q *Queue) Results() <-chan Result { return q.results }

// Stop shuts the worker down. Safe to call once.
func (q *Queue) Stop() { close(q.done) }

func (q *Queue) run() {
	for {
		select {
		case req := <-q.pending:
			exports, err := q.box.Compile(req)
			select {
			case q.results <- Result{Request: req, Exports: exports, Err: err}:
			case <-q.done:
				return
			}
		case <-q.done:
			return
		}
	}
}
