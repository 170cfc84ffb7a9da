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
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSChannel broadcasts Events to every currently-connected websocket
// client as JSON text frames. Grounded on bennypowers-cem's
// websocketManager: a snapshot-then-write broadcast loop so a slow client
// can't hold the connection-set lock, a per-connection write mutex, and a
// CheckOrigin policy that accepts same-origin and localhost connections
// only.
type WSChannel struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]*sync.Mutex
	upgrader    websocket.Upgrader
}

// NewWSChannel returns an empty WSChannel ready to accept connections via
// HandleConnection.
func NewWSChannel() *WSChannel {
	c := &WSChannel{connections: make(map[*websocket.Conn]*sync.Mutex)}
	c.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     isLocalOrigin,
	}
	return c
}

// Emit implements Channel: marshals event to JSON and fans it out to
// every connection, dropping any that fail to write.
func (c *WSChannel) Emit(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.RLock()
	type conn struct {
		ws   *websocket.Conn
		lock *sync.Mutex
	}
	snapshot := make([]conn, 0, len(c.connections))
	for ws, lock := range c.connections {
		snapshot = append(snapshot, conn{ws, lock})
	}
	c.mu.RUnlock()

	var dead []*websocket.Conn
	for _, cn := range snapshot {
		cn.lock.Lock()
		err := cn.ws.WriteMessage(websocket.TextMessage, payload)
		cn.lock.Unlock()
		if err != nil {
			dead = append(dead, cn.ws)
		}
	}

	if len(dead) > 0 {
		c.mu.Lock()
		for _, ws := range dead {
			delete(c.connections, ws)
			_ = ws.Close()
		}
		c.mu.Unlock()
	}
	return nil
}

// HandleConnection upgrades an HTTP request to a websocket and registers
// it as a broadcast target until the client disconnects.
func (c *WSChannel) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := conn.UnderlyingConn().SetDeadline(time.Time{}); err != nil {
		_ = conn.Close()
		return
	}

	c.mu.Lock()
	c.connections[conn] = &sync.Mutex{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.connections, conn)
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close sends a close frame to every connection and clears the set.
func (c *WSChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ws, lock := range c.connections {
		lock.Lock()
		_ = ws.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
		lock.Unlock()
		_ = ws.Close()
	}
	c.connections = make(map[*websocket.Conn]*sync.Mutex)
	return nil
}

func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := originURL.Hostname()

	requestHost := r.Host
	if i := strings.IndexByte(requestHost, ':'); i != -1 {
		requestHost = requestHost[:i]
	}
	if originHost == requestHost {
		return true
	}
	if originHost == "localhost" || originHost == "127.0.0.1" || originHost == "::1" {
		return true
	}
	if strings.HasSuffix(originHost, ".localhost") {
		return true
	}
	return strings.HasPrefix(originHost, "127.")
}
