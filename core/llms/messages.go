package llms

// MessageRole describes who a message in the conversation is from.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single entry of the conversation sent to the model.
//
// Assistant messages keep their directive markup (e.g. "[happy]") so the
// model sees the same format it is asked to produce.
type Message struct {
	Role    MessageRole
	Content string
}

func NewUserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: MessageRoleAssistant, Content: content}
}
