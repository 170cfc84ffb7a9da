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

// Package hostchannel carries the three events a compile run emits toward
// whatever is hosting the sandbox (an error-overlay UI, a CLI watcher): a
// viewport resize hint, a success signal, and an error carrying the
// module/file that threw.
package hostchannel

import "encoding/json"

// EventType tags which of the three event shapes an Event carries.
type EventType string

const (
	EventResize  EventType = "resize"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Event is the tagged union emitted over a Channel. Only the fields
// matching Type are meaningful; the others are zero.
type Event struct {
	Type EventType `json:"type"`

	// Height is set on EventResize.
	Height int `json:"height,omitempty"`

	// Message, Module, and FileName are set on EventError.
	Message  string `json:"message,omitempty"`
	Module   string `json:"module,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Resize builds a resize event.
func Resize(height int) Event { return Event{Type: EventResize, Height: height} }

// Success builds a success event.
func Success() Event { return Event{Type: EventSuccess} }

// Error builds an error event tagged with the originating module.
func Error(message, module, fileName string) Event {
	return Event{Type: EventError, Message: message, Module: module, FileName: fileName}
}

// MarshalJSON encodes the event exactly as the host-side overlay expects
// to receive it.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(alias(e))
}

// Channel delivers events to whatever is hosting the sandbox.
type Channel interface {
	Emit(event Event) error
}

// NullChannel discards every event; used where no host is listening
// (tests, headless single-shot compiles).
type NullChannel struct{}

func (NullChannel) Emit(Event) error { return nil }
