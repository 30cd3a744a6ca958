package llm

import (
	"sort"
	"sync"
)

// Store is the per-conversation turn log used by the orchestrator.
// SessionManager is the in-memory implementation; a persistent backend
// only has to satisfy this interface.
type Store interface {
	Append(conversationID string, msgs ...Message)
	Messages(conversationID string) []Message
	Clear(conversationID string)
}

// SessionManager manages multiple conversation histories isolated by
// conversation ID. Histories are created on first reference and live for
// the process lifetime unless cleared.
type SessionManager struct {
	histories map[string]*ChatHistory
	mu        sync.RWMutex
}

// NewSessionManager initializes an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		histories: make(map[string]*ChatHistory),
	}
}

// History retrieves the ChatHistory for a conversation, creating it if needed.
func (sm *SessionManager) History(conversationID string) *ChatHistory {
	sm.mu.RLock()
	h, ok := sm.histories[conversationID]
	sm.mu.RUnlock()

	if ok {
		return h
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Double check under lock
	if h, ok = sm.histories[conversationID]; ok {
		return h
	}

	h = NewChatHistory()
	sm.histories[conversationID] = h
	return h
}

// Append adds msgs to the end of a conversation.
func (sm *SessionManager) Append(conversationID string, msgs ...Message) {
	sm.History(conversationID).Add(msgs...)
}

// Messages returns the ordered turns of a conversation. An unknown id yields
// an empty slice and creates the conversation.
func (sm *SessionManager) Messages(conversationID string) []Message {
	return sm.History(conversationID).GetMessages()
}

// Clear empties a conversation. The id stays known.
func (sm *SessionManager) Clear(conversationID string) {
	sm.History(conversationID).Reset()
}

// IDs lists the known conversation ids in sorted order.
func (sm *SessionManager) IDs() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.histories))
	for id := range sm.histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
