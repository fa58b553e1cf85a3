// Package deepgram streams audio to Deepgram's realtime transcription API
// over a websocket and maps its responses onto transcription callbacks.
package deepgram

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type TranscriptionClient struct {
	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time

	// closing marks an intentional teardown so the read loop reports a clean
	// stream end instead of a connectivity failure.
	closing atomic.Bool

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}

// Close finalizes the stream and tears down the websocket.
func (s *TranscriptionClient) Close() error {
	s.closing.Store(true)

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}

	if err := s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "CloseStream"}); err != nil {
		logger.Warn("Failed to finalize deepgram stream", "error", err)
	}

	conn := s.conn
	s.conn = nil
	return conn.Close()
}
