package websocket

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/models"
)

// TopicAll receives every message regardless of category.
const TopicAll = "all"

const broadcastBuffer = 256

type outbound struct {
	topic   string
	payload []byte
}

// Hub maintains the set of active clients and fans feed messages out to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Topic to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		broadcast:     make(chan outbound, broadcastBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
	}
}

// Topic maps a category query value to a subscription topic. Empty subscribes to everything.
func Topic(category string) (string, bool) {
	if strings.TrimSpace(category) == "" || strings.EqualFold(category, TopicAll) {
		return TopicAll, true
	}
	c, ok := models.ParseCategory(category)
	return string(c), ok
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("Feed hub stopped")
			return
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Feed client connected")
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Feed client disconnected")
			}
		case msg := <-h.broadcast:
			h.deliver(msg.topic, msg.payload)
			if msg.topic != TopicAll {
				h.deliver(TopicAll, msg.payload)
			}
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds client to the hub. It reports false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a feed message for category subscribers and TopicAll. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Publish(action string, category models.Category, payload any) {
	b, err := json.Marshal(Message{Action: action, Category: category, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Error encoding feed message")
		return
	}

	topic := string(category)
	if topic == "" {
		topic = TopicAll
	}
	select {
	case h.broadcast <- outbound{topic: topic, payload: b}:
	default:
		log.Warn().Str("action", action).Msg("Feed queue full, dropping message")
	}
}

func (h *Hub) deliver(topic string, message []byte) {
	for client := range h.subscriptions[topic] {
		select {
		case client.Send <- message:
		default:
			// Too slow to keep up.
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.removeSubscription(client)
	close(client.Send)
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.Topic] == nil {
		h.subscriptions[client.Topic] = make(map[*Client]bool)
	}
	h.subscriptions[client.Topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	subs := h.subscriptions[client.Topic]
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.subscriptions, client.Topic)
	}
}
