package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/lingualive/tutor-core/core/audio"
	"github.com/lingualive/tutor-core/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type websocketMessage struct {
	Type string `json:"type"`
}

var (
	sendTextMsg = func(text string) struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} {
		return struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "Speak", Text: text}
	}
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

// Speak synthesizes one utterance. Audio chunks stream through the configured
// callback; exactly one of the ended and error callbacks fires afterwards.
// Cancelling the context aborts synthesis mid-utterance.
func (c *TextToSpeechClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	span.SetAttributes(attribute.Int("request.text_length", len(text)))

	options := &texttospeech.SpeechOptions{
		SpeechAudioCallback: func([]byte) {},
		SpeechEndedCallback: func() {},
		ErrorCallback:       func(error) {},
		EncodingInfo:        audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(options)
	}

	conn, err := connectWebsocket(c.voice, options.EncodingInfo)
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open websocket")
		span.End()
		return err
	}

	for _, msg := range []any{sendTextMsg(text), flushMsg} {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			err = fmt.Errorf("failed to send text to deepgram: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to send text")
			span.End()
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteJSON(clearMsg)
			_ = conn.WriteJSON(closeMsg)
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer span.End()
		defer close(done)
		c.readSpeechAudio(ctx, conn, *options)
	}()

	return nil
}

func (c *TextToSpeechClient) readSpeechAudio(ctx context.Context, conn *websocket.Conn, options texttospeech.SpeechOptions) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				options.ErrorCallback(ctxErr)
			} else {
				options.ErrorCallback(fmt.Errorf("speech stream terminated: %w", err))
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			options.SpeechAudioCallback(msg)
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("Failed to unmarshal deepgram message", "error", err)
				continue
			}

			if parsedMsg.Type == "Flushed" {
				_ = conn.WriteJSON(closeMsg)
				conn.Close()
				options.SpeechEndedCallback()
				return
			}
		}
	}
}

func connectWebsocket(voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Encoding.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.Dial(
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}
