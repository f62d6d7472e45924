package events

const (
	// KindTurnStarted identifies the start of a turn.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies a turn whose reply was fully generated.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies a turn ended by an error.
	KindTurnFailed Kind = "turn_state.failed"
	// KindTurnCancelled identifies turn cancellation.
	KindTurnCancelled Kind = "turn_state.cancelled"
)

type TurnStarted struct {
	Base
	TurnID string
}

func NewTurnStarted(turnID string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID}
}

type TurnCompleted struct {
	Base
	TurnID string
}

func NewTurnCompleted(turnID string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID}
}

// TurnFailed carries the error that ended the turn.
type TurnFailed struct {
	Base
	TurnID string
	Err    error
}

func NewTurnFailed(turnID string, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Err: err}
}

// TurnCancelled marks cancellation of the current turn.
type TurnCancelled struct {
	Base
	TurnID string
}

func NewTurnCancelled(turnID string) TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled), TurnID: turnID}
}
