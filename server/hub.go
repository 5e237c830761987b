// Copyright (C) 2008-2019 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Request is a message sent by a client on the websocket: an action to
// perform on a named server object.
type Request struct {
	ID     int             `json:"id"`
	Object string          `json:"object"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Message types sent back to clients.
const (
	TypeResponse     = "response"
	TypeNotification = "notification"
)

// Response is a message sent by the server to a client, either in
// reply to a Request (matching ID) or as an unsolicited notification.
type Response struct {
	ID      int             `json:"id"`
	MsgType string          `json:"msgType"`
	Data    json.RawMessage `json:"data"`
}

// NewResponse builds a response carrying raw JSON data.
func NewResponse(id int, data json.RawMessage) *Response {
	return &Response{ID: id, MsgType: TypeResponse, Data: data}
}

// NewOkResponse builds a successful status response with a message.
func NewOkResponse(id int, msg string) *Response {
	data, _ := json.Marshal(map[string]string{"status": "OK", "message": msg})
	return NewResponse(id, data)
}

// NewErrorResponse builds a failed status response from an error.
func NewErrorResponse(id int, err error) *Response {
	data, _ := json.Marshal(map[string]string{"status": "FAIL", "message": err.Error()})
	return NewResponse(id, data)
}

// NewNotification builds an unsolicited event message.
func NewNotification(name string, obj interface{}) *Response {
	data, _ := json.Marshal(map[string]interface{}{"name": name, "object": obj})
	return &Response{MsgType: TypeNotification, Data: data}
}

// hubObject is the interface of server objects requests dispatch to.
type hubObject interface {
	dispatch(h *Hub, req Request, conn *connection)
}

// connection wraps one websocket client. Responses and notifications
// are queued on pushChan and written by a dedicated goroutine.
type connection struct {
	ws       *websocket.Conn
	pushChan chan *Response
}

type connectionRequest struct {
	req  Request
	conn *connection
}

// Hub routes client requests to registered objects and broadcasts
// notifications to all connections.
type Hub struct {
	connections    map[*connection]bool
	registerChan   chan *connection
	unregisterChan chan *connection
	readChan       chan connectionRequest
	broadcastChan  chan *Response
	objects        map[string]hubObject
}

var hub = &Hub{
	connections:    make(map[*connection]bool),
	registerChan:   make(chan *connection),
	unregisterChan: make(chan *connection),
	readChan:       make(chan connectionRequest, 64),
	broadcastChan:  make(chan *Response, 64),
	objects:        make(map[string]hubObject),
}

// run is the hub main loop. It signals hubUp once ready.
func (h *Hub) run(hubUp chan bool) {
	logger.Info("Hub starting", "submodule", "hub")
	hubUp <- true
	for {
		select {
		case conn := <-h.registerChan:
			h.connections[conn] = true
			logger.Debug("Client registered", "submodule", "hub", "remote", conn.ws.RemoteAddr())
		case conn := <-h.unregisterChan:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.pushChan)
				logger.Debug("Client unregistered", "submodule", "hub", "remote", conn.ws.RemoteAddr())
			}
		case cr := <-h.readChan:
			h.dispatch(cr.req, cr.conn)
		case resp := <-h.broadcastChan:
			h.deliver(resp)
		}
	}
}

func (h *Hub) dispatch(req Request, conn *connection) {
	obj, ok := h.objects[req.Object]
	if !ok {
		conn.pushChan <- NewErrorResponse(req.ID, fmt.Errorf("unknown object %s", req.Object))
		logger.Debug("Request for unknown object received", "submodule", "hub", "object", req.Object)
		return
	}
	obj.dispatch(h, req, conn)
}

// broadcast hands a notification to the hub loop for delivery. It is
// safe to call from any goroutine; the notification is dropped when
// the hub is saturated.
func (h *Hub) broadcast(resp *Response) {
	select {
	case h.broadcastChan <- resp:
	default:
	}
}

// deliver queues a notification on every connection, dropping it for
// clients that cannot keep up. Only the hub loop calls it.
func (h *Hub) deliver(resp *Response) {
	for conn := range h.connections {
		select {
		case conn.pushChan <- resp:
		default:
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWs upgrades an HTTP connection and attaches it to the hub.
func serveWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed", "submodule", "hub", "error", err)
		return
	}
	conn := &connection{ws: ws, pushChan: make(chan *Response, 256)}
	hub.registerChan <- conn
	go conn.writePump()
	conn.readPump()
}

func (c *connection) readPump() {
	defer func() {
		hub.unregisterChan <- c
		c.ws.Close()
	}()
	for {
		var req Request
		if err := c.ws.ReadJSON(&req); err != nil {
			logger.Debug("Client read error", "submodule", "hub", "error", err)
			return
		}
		hub.readChan <- connectionRequest{req: req, conn: c}
	}
}

func (c *connection) writePump() {
	defer c.ws.Close()
	for resp := range c.pushChan {
		if err := c.ws.WriteJSON(resp); err != nil {
			return
		}
	}
}
