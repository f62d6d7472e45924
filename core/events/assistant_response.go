package events

const (
	// KindAssistantResponseSegment identifies streamed assistant response text.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies assistant response stream completion.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseSegment carries a streamed assistant response text segment.
// Segment keeps emotion tags, DisplaySegment has them removed.
type AssistantResponseSegment struct {
	Base
	TurnID         string
	Segment        string
	DisplaySegment string
}

// NewAssistantResponseSegment creates an assistant response segment event.
func NewAssistantResponseSegment(turnID, segment, displaySegment string) AssistantResponseSegment {
	return AssistantResponseSegment{
		Base:           NewBase(KindAssistantResponseSegment),
		TurnID:         turnID,
		Segment:        segment,
		DisplaySegment: displaySegment,
	}
}

// AssistantResponseFinal marks assistant response stream completion and
// carries the full raw reply.
type AssistantResponseFinal struct {
	Base
	TurnID   string
	Response string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(turnID, response string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), TurnID: turnID, Response: response}
}
