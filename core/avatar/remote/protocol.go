package remote

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-avatar/core/screenplay"
)

type messageType string

const (
	messageTypeSpeak  messageType = "speak"
	messageTypePlayed messageType = "played"
	messageTypeError  messageType = "error"
)

// SpeakMessage is sent to the avatar for every unit. The avatar answers with
// a PlayedMessage carrying the same ID once the unit has been performed.
type SpeakMessage struct {
	Type       messageType           `json:"type" jsonschema:"enum=speak"`
	ID         string                `json:"id"`
	Screenplay screenplay.Screenplay `json:"screenplay"`
	// Audio is the base64 encoded clip. Empty for silent units.
	Audio    string `json:"audio,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// PlayedMessage is sent by the avatar. An error message fails the unit with
// the given ID.
type PlayedMessage struct {
	Type  messageType `json:"type" jsonschema:"enum=played,enum=error"`
	ID    string      `json:"id"`
	Error string      `json:"error,omitempty"`
}

// Schema describes the messages exchanged with a remote avatar, for clients
// implemented in other languages.
func Schema() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return map[string]*jsonschema.Schema{
		"speak":  reflector.ReflectFromType(reflect.TypeOf(SpeakMessage{})),
		"played": reflector.ReflectFromType(reflect.TypeOf(PlayedMessage{})),
	}
}
