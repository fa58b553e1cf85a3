// Package gateway exposes the tutor over a websocket for browser clients.
// Each connection gets its own tutor, so conversation history is naturally
// scoped to the socket's lifetime.
package gateway

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/websocket"

	voicecall "github.com/lingualive/tutor-core/core"
	"github.com/lingualive/tutor-core/store"
)

// audioMimeType describes the PCM stream the speech model produces.
const audioMimeType = "audio/L16;rate=24000"

const (
	eventSendMessage    = "sendMessage"
	eventClearHistory   = "clearHistory"
	eventAIResponse     = "aiResponse"
	eventAIAudio        = "aiAudio"
	eventError          = "error"
	eventHistoryCleared = "historyCleared"
)

// defaultAudioInMimeType is assumed for spoken input when the client does not
// say otherwise; browser recorders produce webm by default.
const defaultAudioInMimeType = "audio/webm"

// Tutor produces replies and their spoken renditions for one conversation.
type Tutor interface {
	Chat(ctx context.Context, message string) (string, error)
	ChatAudio(ctx context.Context, audioData []byte, mimeType string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
	ClearHistory()
}

// TutorFactory builds a fresh tutor for each websocket connection.
type TutorFactory func() (Tutor, error)

// SessionRecorder persists the turns relayed over a connection. *store.Store
// satisfies it.
type SessionRecorder interface {
	CreateSession(ctx context.Context, learningLanguage, userID string) (*store.Session, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) (*store.Message, error)
}

var _ SessionRecorder = (*store.Store)(nil)

type clientMessage struct {
	Event   string `json:"event"`
	Content string `json:"content"`
	// Type is "text" (default) or "audio"; audio content is base64.
	Type     string `json:"type,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type responseEvent struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

type audioEvent struct {
	Event      string `json:"event"`
	Base64Data string `json:"base64Data"`
	MimeType   string `json:"mimeType"`
}

type noticeEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Handler upgrades requests to websockets and relays tutor turns.
type Handler struct {
	newTutor TutorFactory
	upgrader websocket.Upgrader

	recorder SessionRecorder
	language string
}

type HandlerOption func(*Handler)

// WithRecorder persists each connection's turns as a stored session in the
// given learning language.
func WithRecorder(recorder SessionRecorder, learningLanguage string) HandlerOption {
	return func(h *Handler) {
		h.recorder = recorder
		h.language = learningLanguage
	}
}

func NewHandler(newTutor TutorFactory, opts ...HandlerOption) *Handler {
	h := &Handler{
		newTutor: newTutor,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	tutor, err := h.newTutor()
	if err != nil {
		logger.Error("Failed to build a tutor for the connection", "error", err)
		conn.WriteJSON(noticeEvent{Event: eventError, Message: "The tutor is unavailable right now."})
		return
	}

	logger.Info("Client connected", "remote", conn.RemoteAddr().String())
	defer logger.Info("Client disconnected", "remote", conn.RemoteAddr().String())

	var sessionID string
	if h.recorder != nil {
		session, err := h.recorder.CreateSession(r.Context(), h.language, "")
		if err != nil {
			logger.Warn("Failed to create a stored session, turns will not be persisted", "error", err)
		} else {
			sessionID = session.ID
		}
	}

	for {
		var message clientMessage
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Connection closed unexpectedly", "error", err)
			}
			return
		}

		switch message.Event {
		case eventSendMessage:
			h.handleSendMessage(r.Context(), conn, tutor, sessionID, message)
		case eventClearHistory:
			tutor.ClearHistory()
			conn.WriteJSON(noticeEvent{Event: eventHistoryCleared, Message: "Conversation history has been cleared."})
		default:
			conn.WriteJSON(noticeEvent{Event: eventError, Message: "Unknown event: " + message.Event})
		}
	}
}

func (h *Handler) handleSendMessage(ctx context.Context, conn *websocket.Conn, tutor Tutor, sessionID string, message clientMessage) {
	ctx, span := tracer.Start(ctx, "relay message")
	defer span.End()

	var reply string
	var err error
	if message.Type == "audio" {
		var audioIn []byte
		audioIn, err = base64.StdEncoding.DecodeString(message.Content)
		if err != nil {
			conn.WriteJSON(noticeEvent{Event: eventError, Message: "Audio content must be base64."})
			return
		}
		mimeType := message.MimeType
		if mimeType == "" {
			mimeType = defaultAudioInMimeType
		}
		h.record(ctx, sessionID, store.RoleUser, "[voice message]")
		reply, err = tutor.ChatAudio(ctx, audioIn, mimeType)
	} else {
		h.record(ctx, sessionID, store.RoleUser, message.Content)
		reply, err = tutor.Chat(ctx, message.Content)
	}
	if err != nil {
		span.RecordError(err)
		conn.WriteJSON(noticeEvent{Event: eventError, Message: "The tutor failed to reply."})
		return
	}
	h.record(ctx, sessionID, store.RoleModel, reply)
	conn.WriteJSON(responseEvent{Event: eventAIResponse, Text: reply})

	audio, err := tutor.Synthesize(ctx, voicecall.CleanMarkdown(reply))
	if err != nil {
		span.RecordError(err)
	}
	if err != nil || len(audio) == 0 {
		conn.WriteJSON(noticeEvent{Event: eventError, Message: "AI voice failed to generate."})
		return
	}

	conn.WriteJSON(audioEvent{
		Event:      eventAIAudio,
		Base64Data: base64.StdEncoding.EncodeToString(audio),
		MimeType:   audioMimeType,
	})
}

func (h *Handler) record(ctx context.Context, sessionID, role, content string) {
	if h.recorder == nil || sessionID == "" {
		return
	}
	if _, err := h.recorder.AppendMessage(ctx, sessionID, role, content); err != nil {
		logger.Warn("Failed to persist a turn", "role", role, "error", err)
	}
}
