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
package hostchannel

import (
	"sandgraph.dev/bundle/diagnostics"
)

// DiagnosticsBridge drains a diagnostics.CollectingSink on each Flush and
// forwards each entry to a Channel as an error event, so a websocket
// overlay sees loader warnings/errors without the graph package knowing
// anything about channels.
type DiagnosticsBridge struct {
	sink    *diagnostics.CollectingSink
	channel Channel
}

// NewDiagnosticsBridge returns a bridge forwarding sink's drained
// diagnostics to channel.
func NewDiagnosticsBridge(sink *diagnostics.CollectingSink, channel Channel) *DiagnosticsBridge {
	return &DiagnosticsBridge{sink: sink, channel: channel}
}

// Flush drains the sink and emits one error event per diagnostic.
// Warnings and errors are both surfaced as error events: the host overlay
// this feeds distinguishes severity by the message text, matching
// spec.md's single untyped "error" DOM event for all loader diagnostics.
func (b *DiagnosticsBridge) Flush() error {
	warnings, errs := b.sink.Drain()
	for _, d := range warnings {
		if err := b.channel.Emit(Error(d.Message, "", "")); err != nil {
			return err
		}
	}
	for _, d := range errs {
		if err := b.channel.Emit(Error(d.Message, "", "")); err != nil {
			return err
		}
	}
	return nil
}
