package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SSEClient represents a connected SSE client
type SSEClient struct {
	DatasetID string
	Channel   chan ProgressEvent
}

// ProgressEvent is one profiling progress update streamed to the dashboard
type ProgressEvent struct {
	DatasetID string    `json:"dataset_id"`
	State     string    `json:"state"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

// SSEHub manages Server-Sent Events for live profiling progress
type SSEHub struct {
	clients    map[string]map[chan ProgressEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan ProgressEvent
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:    make(map[string]map[chan ProgressEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan ProgressEvent, 100),
	}

	go hub.run()
	return hub
}

// run processes SSE hub operations
func (h *SSEHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.DatasetID] == nil {
				h.clients[client.DatasetID] = make(map[chan ProgressEvent]bool)
			}
			h.clients[client.DatasetID][client.Channel] = true
			log.Printf("[SSE] Client registered for dataset %s (total clients: %d)",
				client.DatasetID, len(h.clients[client.DatasetID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.DatasetID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				log.Printf("[SSE] Client unregistered from dataset %s (remaining clients: %d)",
					client.DatasetID, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.DatasetID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			if clients, exists := h.clients[event.DatasetID]; exists {
				for clientChan := range clients {
					select {
					case clientChan <- event:
						// Event sent successfully
					default:
						// Client channel is full, skip
						log.Printf("[SSE] Client channel full for dataset %s, skipping event",
							event.DatasetID)
					}
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast sends an event to all clients listening to a dataset
func (h *SSEHub) Broadcast(event ProgressEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping event for dataset %s", event.DatasetID)
	}
}

// PublishProgress forwards a pipeline state transition to listening clients
func (h *SSEHub) PublishProgress(datasetID string, state string, percent int) {
	h.Broadcast(ProgressEvent{
		DatasetID: datasetID,
		State:     state,
		Percent:   percent,
		Timestamp: time.Now(),
	})
}

// HandleSSE handles the Server-Sent Events endpoint
func (h *SSEHub) HandleSSE(c *gin.Context) {
	datasetID := c.Query("dataset_id")
	if datasetID == "" {
		c.JSON(400, gin.H{"error": "dataset_id parameter required"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")

	clientChan := make(chan ProgressEvent, 10)

	select {
	case h.register <- SSEClient{DatasetID: datasetID, Channel: clientChan}:
	default:
		c.JSON(500, gin.H{"error": "SSE hub registration failed"})
		return
	}

	defer func() {
		select {
		case h.unregister <- SSEClient{DatasetID: datasetID, Channel: clientChan}:
		default:
			// Hub might be overloaded, just close channel
		}
	}()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-clientChan:
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}

			c.SSEvent("progress", string(eventJSON))
			return true

		case <-time.After(30 * time.Second):
			// Send ping to keep connection alive
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			// Client disconnected
			return false
		}
	})
}

// ActiveDatasets returns dataset IDs with connected SSE clients
func (h *SSEHub) ActiveDatasets() []string {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
