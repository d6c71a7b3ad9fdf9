// studybuddy/types/message.go
package types

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a transcript. Hidden messages are sent to the model
// but never rendered.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Hidden  bool   `json:"hidden,omitempty"`
}

// Visible drops hidden messages.
func Visible(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.Hidden {
			out = append(out, m)
		}
	}
	return out
}
