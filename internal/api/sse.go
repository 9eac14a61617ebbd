package api

import (
	"sync"

	"leelaaverse/internal/metrics"

	"github.com/sirupsen/logrus"
)

type sseMessage struct {
	event string
	data  interface{}
}

type sseClient struct {
	id string
	ch chan sseMessage
}

// sseHub 按用户分发事件, 一个用户可以同时打开多个连接;
// 带 client id 的事件只发给对应连接, 该连接不存在时广播给该用户
type sseHub struct {
	mu      sync.Mutex
	clients map[uint][]sseClient
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[uint][]sseClient)}
}

func (h *sseHub) register(userID uint, clientID string, ch chan sseMessage) {
	if h == nil || ch == nil || userID == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[userID] = append(h.clients[userID], sseClient{id: clientID, ch: ch})
	metrics.SSEClients.Inc()
}

func (h *sseHub) unregister(userID uint, target chan sseMessage) {
	if h == nil || target == nil || userID == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.clients[userID]
	if len(current) == 0 {
		return
	}

	remaining := current[:0]
	for _, client := range current {
		if client.ch == target {
			metrics.SSEClients.Dec()
			continue
		}
		remaining = append(remaining, client)
	}

	if len(remaining) == 0 {
		delete(h.clients, userID)
		return
	}

	h.clients[userID] = remaining
}

func (h *sseHub) publish(userID uint, clientID string, msg sseMessage) {
	if h == nil || userID == 0 {
		return
	}

	h.mu.Lock()
	var targeted, all []chan sseMessage
	for _, client := range h.clients[userID] {
		all = append(all, client.ch)
		if clientID != "" && client.id == clientID {
			targeted = append(targeted, client.ch)
		}
	}
	h.mu.Unlock()

	channels := all
	if len(targeted) > 0 {
		channels = targeted
	}
	for _, ch := range channels {
		select {
		case ch <- msg:
		default:
			logrus.WithFields(logrus.Fields{
				"user_id":   userID,
				"client_id": clientID,
				"event":     msg.event,
			}).Warn("dropping sse message due to slow consumer")
		}
	}
}

func (h *sseHub) count(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}
