// Package gemini talks to Google's generative language API to produce tutor
// replies and their spoken renditions. It degrades rather than fails: when
// the API stays unreachable through the retry budget, chat falls back to an
// apology and synthesis falls back to text-only.
package gemini

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lingualive/tutor-core/internal/retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	speechModel    = "gemini-2.5-flash-preview-tts"

	// connectivityFallback is the reply used when the API stays unreachable
	// through the whole retry budget.
	connectivityFallback = "I'm experiencing connectivity issues. Please try again later."

	retryAttempts  = 3
	retryBaseDelay = 2 * time.Second
)

// Content mirrors the API's conversation turn shape.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type Client struct {
	apiKey   string
	model    string
	baseURL  string
	language string

	httpClient *http.Client
	retry      retry.Policy

	historyMu sync.Mutex
	history   []Content
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithLanguage sets the BCP-47 tag of the language the tutor teaches.
func WithLanguage(language string) ClientOption {
	return func(c *Client) { c.language = language }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

func WithRetryPolicy(policy retry.Policy) ClientOption {
	return func(c *Client) { c.retry = policy }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not found")
	}

	c := &Client{
		apiKey:   apiKey,
		model:    defaultModel,
		baseURL:  defaultBaseURL,
		language: "en-US",
		retry:    retry.NewPolicy(retryAttempts, retry.ExponentialBackoff(retryBaseDelay)),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// History returns a copy of the conversation so far.
func (c *Client) History() []Content {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	var snapshot []Content
	if err := copier.Copy(&snapshot, &c.history); err != nil {
		logger.Warn("Failed to copy conversation history", "error", err)
		return nil
	}
	return snapshot
}

// ClearHistory starts the conversation over.
func (c *Client) ClearHistory() {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = nil
}

func (c *Client) appendTurn(role, text string) {
	c.appendContent(Content{Role: role, Parts: []Part{{Text: text}}})
}

func (c *Client) appendContent(turn Content) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = append(c.history, turn)
}

func (c *Client) conversation() []Content {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return append([]Content(nil), c.history...)
}

// tutorInstruction is the system prompt shaping replies into short spoken
// tutoring turns in the target language.
func tutorInstruction(language string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are a friendly and patient language tutor helping the user practice %s through conversation.", languageName(language)),
		fmt.Sprintf("Always respond in %s, keeping your replies short and conversational, as they will be spoken aloud.", languageName(language)),
		"Gently correct the user's mistakes, then continue the conversation naturally.",
		"Adapt your vocabulary to the user's level and encourage them to keep talking.",
	}, " ")
}

func languageName(tag string) string {
	switch {
	case strings.HasPrefix(tag, "fr"):
		return "French"
	case strings.HasPrefix(tag, "es"):
		return "Spanish"
	case strings.HasPrefix(tag, "de"):
		return "German"
	case strings.HasPrefix(tag, "it"):
		return "Italian"
	default:
		return "English"
	}
}
