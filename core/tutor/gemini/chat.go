package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type generateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}

// Chat sends one user message and returns the tutor's reply, retrying with
// backoff on failure. After the retry budget is exhausted the connectivity
// apology is returned instead of an error, so the conversation keeps going.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.chat(ctx, Content{Role: "user", Parts: []Part{{Text: message}}})
}

// ChatAudio sends a spoken user turn as inline audio instead of text. The
// audio stays in history like any other turn, so follow-ups keep context.
func (c *Client) ChatAudio(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	return c.chat(ctx, Content{Role: "user", Parts: []Part{{InlineData: &InlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(audioData),
	}}}})
}

func (c *Client) chat(ctx context.Context, userTurn Content) (string, error) {
	ctx, span := tracer.Start(ctx, "tutor chat")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	c.appendContent(userTurn)

	request := generateRequest{
		Contents:          c.conversation(),
		SystemInstruction: &Content{Parts: []Part{{Text: tutorInstruction(c.language)}}},
	}

	var reply string
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		response, err := c.generate(ctx, c.model, request)
		if err != nil {
			logger.Warn("Tutor chat attempt failed", "attempt", attempt, "error", err)
			return err
		}

		reply = firstText(response)
		if reply == "" {
			return fmt.Errorf("empty response from model")
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat retries exhausted")
		return connectivityFallback, nil
	}

	c.appendTurn("model", reply)
	return reply, nil
}

func (c *Client) generate(ctx context.Context, model string, request generateRequest) (*generateResponse, error) {
	requestBodyBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(errorBody))
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &response, nil
}

func firstText(response *generateResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}
	for _, p := range response.Candidates[0].Content.Parts {
		if text := strings.TrimSpace(p.Text); text != "" {
			return text
		}
	}
	return ""
}
