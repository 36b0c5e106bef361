// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is sent by clients.
type WSMessage struct {
	Action string `json:"action"` // start, stop
}

// WSResponse is sent to clients.
type WSResponse struct {
	Type    string           `json:"type"` // labels, error
	Labels  *pipeline.Labels `json:"labels,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Hub streams label updates to websocket clients and accepts recording
// start/stop actions from them.
type Hub struct {
	src    LabelSource
	logger *zap.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub(src LabelSource, logger *zap.Logger) *Hub {
	return &Hub{src: src, logger: logger, conns: make(map[*websocket.Conn]struct{})}
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close drops every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
		delete(h.conns, c)
	}
}

// ServeHTTP upgrades the request and streams labels until either side
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	updates, cancel := h.src.Subscribe()
	defer func() {
		cancel()
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	send := func(resp WSResponse) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(resp)
	}

	current := h.src.Current()
	if err := send(WSResponse{Type: "labels", Labels: &current}); err != nil {
		return
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			var rerr error
			switch msg.Action {
			case "start":
				rerr = h.src.SetRecording(true)
			case "stop":
				rerr = h.src.SetRecording(false)
			default:
				send(WSResponse{Type: "error", Message: "unknown action " + msg.Action})
				continue
			}
			if rerr != nil {
				send(WSResponse{Type: "error", Message: rerr.Error()})
				continue
			}
			l := h.src.Current()
			send(WSResponse{Type: "labels", Labels: &l})
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case l, ok := <-updates:
			if !ok {
				return
			}
			if err := send(WSResponse{Type: "labels", Labels: &l}); err != nil {
				h.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}
