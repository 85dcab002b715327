// Package analysis condenses long article descriptions with an OpenAI chat
// model before they are sent as notifications.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	maxInputRunes   = 4000
	maxSummaryRunes = 600
)

var errDisabled = errors.New("openai client disabled: missing OPENAI_API_KEY")

// Client summarizes text through the OpenAI chat completion API.
type Client struct {
	client    *openai.Client
	model     string
	logger    *log.Logger
	activated bool
}

// NewClient builds a Client. With an empty apiKey it is not Ready and every
// Summarize call fails.
func NewClient(apiKey, model, baseURL string, logger *log.Logger) *Client {
	var cli *openai.Client
	activated := apiKey != ""
	if activated {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		cli = openai.NewClientWithConfig(cfg)
	}
	return &Client{
		client:    cli,
		model:     model,
		logger:    logger,
		activated: activated,
	}
}

// Ready reports whether the client has credentials.
func (c *Client) Ready() bool {
	return c.activated && c.client != nil
}

// Summarize asks the model for a short neutral summary of a crypto news
// article.
func (c *Client) Summarize(ctx context.Context, title, text string) (string, error) {
	if !c.Ready() {
		return "", errDisabled
	}

	systemPrompt := "You summarize cryptocurrency news for a chat channel. " +
		"Reply with two or three plain sentences, no markdown, no headings, no price predictions. " +
		"Keep names of assets, companies and regulators as written."
	userPrompt := fmt.Sprintf("Title: %s\nArticle: %s", title, trimText(text, maxInputRunes))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", title, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned by OpenAI")
	}

	summary := trimText(cleanupResponse(resp.Choices[0].Message.Content), maxSummaryRunes)
	if summary == "" {
		c.logger.Printf("empty summary for %q", title)
		return "", errors.New("empty summary returned by OpenAI")
	}
	return summary, nil
}

func trimText(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max])
}

// cleanupResponse strips code fences and wrapping quotes the model sometimes
// adds, and joins the lines into one paragraph.
func cleanupResponse(s string) string {
	c := strings.TrimSpace(s)
	if strings.HasPrefix(c, "```") {
		if idx := strings.Index(c, "\n"); idx != -1 {
			c = c[idx+1:]
		} else {
			c = strings.TrimPrefix(c, "```")
		}
		c = strings.TrimSuffix(c, "```")
	}
	c = strings.TrimSpace(c)
	if len(c) >= 2 && c[0] == '"' && c[len(c)-1] == '"' {
		c = c[1 : len(c)-1]
	}
	return strings.Join(strings.Fields(c), " ")
}
