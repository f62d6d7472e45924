package events

// KindUserMessage identifies a typed user message that starts a turn.
const KindUserMessage Kind = "user_input.message"

// UserMessage carries the text the user sent.
type UserMessage struct {
	Base
	TurnID string
	Text   string
}

// NewUserMessage creates a user message event.
func NewUserMessage(turnID, text string) UserMessage {
	return UserMessage{Base: NewBase(KindUserMessage), TurnID: turnID, Text: text}
}
