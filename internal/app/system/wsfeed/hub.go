// internal/app/system/wsfeed/hub.go

// Package wsfeed pushes inbox notifications to connected browsers over
// websockets. A change stream on the messages collection feeds the hub,
// which fans each insert out to the recipient's open connections.
package wsfeed

import (
	"encoding/json"
	"sync"

	"github.com/peerhub/peerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Hub tracks connected clients by user id and routes messages to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan models.Message

	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan models.Message, 64),
		log:        log,
	}
}

// Run processes register/unregister/deliver events until the channel feed
// stops. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[c.userID]; ok && conns[c] {
				delete(conns, c)
				close(c.send)
				if len(conns) == 0 {
					delete(h.clients, c.userID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.deliver:
			h.sendToUser(msg)
		}
	}
}

// Deliver queues a notification for the recipient's open connections. A
// full hub queue drops the message; the inbox poll remains the source of
// truth and the socket feed is best effort.
func (h *Hub) Deliver(msg models.Message) {
	select {
	case h.deliver <- msg:
	default:
		h.log.Warn("feed queue full, dropping push",
			zap.String("recipient_id", msg.RecipientID.Hex()),
			zap.String("type", msg.Type),
		)
	}
}

// ConnectedUsers returns how many distinct users have an open connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendToUser(msg models.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode feed message", zap.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[msg.RecipientID]))
	for c := range h.clients[msg.RecipientID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- payload:
		default:
			// Slow consumer: drop the connection rather than block the hub.
			h.mu.Lock()
			if set, ok := h.clients[msg.RecipientID]; ok && set[c] {
				delete(set, c)
				close(c.send)
				if len(set) == 0 {
					delete(h.clients, msg.RecipientID)
				}
			}
			h.mu.Unlock()
		}
	}
}
