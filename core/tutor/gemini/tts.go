package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Synthesize renders text to speech audio with the voice matching the tutor's
// language. Exhausting the retry budget returns no audio and no error, letting
// the caller degrade to a text-only reply.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "tutor synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", speechModel))

	request := generateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{
						VoiceName: voiceForLanguage(c.language),
					},
				},
			},
		},
	}

	var audio []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		response, err := c.generate(ctx, speechModel, request)
		if err != nil {
			logger.Warn("Speech synthesis attempt failed", "attempt", attempt, "error", err)
			return err
		}

		audio, err = firstAudio(response)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis retries exhausted")
		return nil, nil
	}

	return audio, nil
}

func firstAudio(response *generateResponse) ([]byte, error) {
	if response == nil || len(response.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	for _, p := range response.Candidates[0].Content.Parts {
		if p.InlineData == nil {
			continue
		}
		audio, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("error decoding audio data: %w", err)
		}
		return audio, nil
	}
	return nil, fmt.Errorf("no audio in response")
}

func voiceForLanguage(language string) string {
	switch {
	case strings.HasPrefix(language, "fr"):
		return "Puck"
	case strings.HasPrefix(language, "es"):
		return "Fenrir"
	default:
		return "Kore"
	}
}
