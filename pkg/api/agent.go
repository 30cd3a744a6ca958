package api

import "context"

// AgentEngine answers one user turn of a conversation.
type AgentEngine interface {
	// Reply runs the dialogue loop for text and returns the final answer.
	Reply(ctx context.Context, conversationID, text string) (string, error)
	// Clear forgets the history of conversationID.
	Clear(conversationID string)
}
