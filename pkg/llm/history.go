package llm

import (
	"sync"
)

// ChatHistory is the append-only turn log of one conversation.
// Appended messages are never reordered or merged; reads return copies.
type ChatHistory struct {
	messages []Message
	mu       sync.RWMutex
}

// NewChatHistory creates an empty history.
func NewChatHistory() *ChatHistory {
	return &ChatHistory{
		messages: make([]Message, 0),
	}
}

// Add appends msgs in order.
func (h *ChatHistory) Add(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range msgs {
		h.messages = append(h.messages, m.Clone())
	}
}

// GetMessages returns a copy of the history in append order.
func (h *ChatHistory) GetMessages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cp := make([]Message, len(h.messages))
	for i, m := range h.messages {
		cp[i] = m.Clone()
	}
	return cp
}

// Len returns the number of stored turns.
func (h *ChatHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Reset drops every stored turn.
func (h *ChatHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]Message, 0)
}
