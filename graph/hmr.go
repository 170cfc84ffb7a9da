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

// AcceptCallback is invoked when an external consumer registers itself as
// the HMR acceptor for a node's updates, via module.hot.accept(path, cb).
type AcceptCallback func(exports map[string]any)

// hmrKind tags which of the three states a node's HMR enablement is in: off,
// self-accepting (module.hot.accept() with no path), or externally accepted
// by a callback. Modeling this as a bare nilable function would conflate
// "off" with "self-accept" under Go's truthy/function rules, so it's a
// tagged variant instead.
type hmrKind int

const (
	hmrOff hmrKind = iota
	hmrSelfAccept
	hmrAccept
)

// HMRState is the tagged three-state variant of a node's hot-module-reload
// enablement, replacing a raw `any` that could be absent, true, or a
// callback.
type HMRState struct {
	kind     hmrKind
	callback AcceptCallback
}

// Enabled reports whether this node participates in HMR at all (self-accept
// or external-accept), used throughout resetTranspilation/resetCompilation
// to decide whether invalidation may stop at this node instead of cascading.
func (h HMRState) Enabled() bool { return h.kind != hmrOff }

// SelfAccepting reports whether the node itself called module.hot.accept()
// with no path argument.
func (h HMRState) SelfAccepting() bool { return h.kind == hmrSelfAccept }

// Callback returns the external accept callback and true, or nil, false if
// this node is not externally accepted.
func (h HMRState) Callback() (AcceptCallback, bool) {
	if h.kind == hmrAccept {
		return h.callback, true
	}
	return nil, false
}

// SetSelfAccept marks the node as self-accepting all HMR updates.
func (h *HMRState) SetSelfAccept() { *h = HMRState{kind: hmrSelfAccept} }

// SetAccept marks the node as externally accepted via cb.
func (h *HMRState) SetAccept(cb AcceptCallback) { *h = HMRState{kind: hmrAccept, callback: cb} }
