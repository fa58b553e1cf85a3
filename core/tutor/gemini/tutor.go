package gemini

import (
	"context"

	voicecall "github.com/lingualive/tutor-core/core"
)

var _ voicecall.Tutor = (*Client)(nil)

// Respond produces the tutor's next turn: a chat reply plus, when synthesis
// succeeds, its spoken rendition. Markdown is stripped before synthesis so
// formatting never leaks into the audio.
func (c *Client) Respond(ctx context.Context, message string) (*voicecall.TutorReply, error) {
	text, err := c.Chat(ctx, message)
	if err != nil {
		return nil, err
	}

	audio, err := c.Synthesize(ctx, voicecall.CleanMarkdown(text))
	if err != nil {
		return nil, err
	}

	return &voicecall.TutorReply{Text: text, Audio: audio}, nil
}
