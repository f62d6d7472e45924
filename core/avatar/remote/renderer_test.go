package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/screenplay"
)

func newAvatarServer(t *testing.T, handle func(conn *websocket.Conn, msg SpeakMessage) bool) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg SpeakMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if !handle(conn, msg) {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func happy(message string) screenplay.Screenplay {
	return screenplay.Screenplay{
		Expression: screenplay.EmotionHappy,
		Talk:       screenplay.Talk{Style: screenplay.TalkStyleHappy, Message: message},
	}
}

func TestSpeakWaitsForAcknowledgement(t *testing.T) {
	received := make(chan SpeakMessage, 1)
	url := newAvatarServer(t, func(conn *websocket.Conn, msg SpeakMessage) bool {
		received <- msg
		return conn.WriteJSON(PlayedMessage{Type: messageTypePlayed, ID: msg.ID}) == nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := Dial(ctx, url, WithMIMEType("audio/pcm"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer r.Close()

	if err := r.Speak(ctx, []byte{1, 2, 3}, happy("Hi!")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	msg := <-received
	if msg.Type != messageTypeSpeak || msg.Screenplay.Talk.Message != "Hi!" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.MIMEType != "audio/pcm" || msg.Audio != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Fatalf("expected encoded audio, got %+v", msg)
	}
}

func TestSpeakSilentUnitOmitsAudio(t *testing.T) {
	received := make(chan SpeakMessage, 1)
	url := newAvatarServer(t, func(conn *websocket.Conn, msg SpeakMessage) bool {
		received <- msg
		return conn.WriteJSON(PlayedMessage{Type: messageTypePlayed, ID: msg.ID}) == nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer r.Close()

	if err := r.Speak(ctx, nil, happy("Quiet.")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg := <-received; msg.Audio != "" || msg.MIMEType != "" {
		t.Fatalf("expected no audio for a silent unit, got %+v", msg)
	}
}

func TestSpeakReportsAvatarError(t *testing.T) {
	url := newAvatarServer(t, func(conn *websocket.Conn, msg SpeakMessage) bool {
		return conn.WriteJSON(PlayedMessage{Type: messageTypeError, ID: msg.ID, Error: "model not loaded"}) == nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer r.Close()

	if err := r.Speak(ctx, nil, happy("Hi!")); !errors.Is(err, ErrAvatarFailed) {
		t.Fatalf("expected ErrAvatarFailed, got %v", err)
	}
}

func TestSpeakFailsWhenConnectionDrops(t *testing.T) {
	url := newAvatarServer(t, func(*websocket.Conn, SpeakMessage) bool { return false })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer r.Close()

	if err := r.Speak(ctx, nil, happy("Hi!")); !errors.Is(err, ErrRendererClosed) {
		t.Fatalf("expected ErrRendererClosed, got %v", err)
	}
}

func TestSpeakAfterClose(t *testing.T) {
	url := newAvatarServer(t, func(*websocket.Conn, SpeakMessage) bool { return true })

	r, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := r.Speak(context.Background(), nil, happy("Hi!")); !errors.Is(err, ErrRendererClosed) {
		t.Fatalf("expected ErrRendererClosed, got %v", err)
	}
}

func TestSchemaDescribesMessages(t *testing.T) {
	schemas := Schema()
	speak, ok := schemas["speak"]
	if !ok || speak.Properties == nil {
		t.Fatalf("expected speak schema with properties")
	}
	if _, ok := speak.Properties.Get("screenplay"); !ok {
		t.Fatalf("expected screenplay property in speak schema")
	}
	if _, ok := schemas["played"]; !ok {
		t.Fatalf("expected played schema")
	}
}
