// studybuddy/utils/types/chat.go
package types

type ChatRequest struct {
	Content string `json:"content"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}

type ConversationSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type ConversationCreated struct {
	ID string `json:"id"`
}

type ExportResponse struct {
	Key string `json:"key"`
}

// StreamFrame is one websocket frame of a streamed reply. Type is "chunk",
// "done" or "error".
type StreamFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StreamRequest is the first websocket frame; the socket authenticates with
// the token it carries.
type StreamRequest struct {
	Token   string `json:"token"`
	Content string `json:"content"`
}
