package websocket

import "github.com/isdelr/blogpost-be/internal/models"

// Message defines the structure for feed messages.
type Message struct {
	Action   string          `json:"action"`
	Category models.Category `json:"category,omitempty"`
	Payload  interface{}     `json:"payload"`
}
