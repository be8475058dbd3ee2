// Package chat wraps the LLM chat-completion API behind the Setsuna persona.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config configures a chat Client.
type Config struct {
	APIKey    string
	Model     string
	Persona   string
	MaxTurns  int    // exchanges kept in the sliding window
	SocksAddr string // optional SOCKS5 proxy, host:port
}

type turn struct {
	role    string
	content string
}

// Client keeps a sliding window of conversation turns and produces
// assistant replies.
type Client struct {
	api      openai.Client
	model    string
	persona  string
	maxTurns int

	mu    sync.Mutex
	turns []turn
}

// New creates a Client. Extra request options are appended after the
// ones derived from cfg.
func New(cfg Config, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("chat: API key is empty")
	}
	if cfg.MaxTurns < 1 {
		cfg.MaxTurns = 1
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.SocksAddr != "" {
		httpClient, err := newSocksClient(cfg.SocksAddr)
		if err != nil {
			return nil, fmt.Errorf("chat: dial socks proxy %s: %w", cfg.SocksAddr, err)
		}
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	reqOpts = append(reqOpts, opts...)

	return &Client{
		api:      openai.NewClient(reqOpts...),
		model:    cfg.Model,
		persona:  cfg.Persona,
		maxTurns: cfg.MaxTurns,
	}, nil
}

// Reply sends userText with the persona and the recent window, records
// both turns, and returns the assistant text.
func (c *Client) Reply(ctx context.Context, userText string) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", errors.New("chat: empty user text")
	}

	c.mu.Lock()
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(c.turns)+2)
	messages = append(messages, openai.SystemMessage(c.persona))
	for _, t := range c.turns {
		switch t.role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(t.content))
		default:
			messages = append(messages, openai.UserMessage(t.content))
		}
	}
	messages = append(messages, openai.UserMessage(userText))
	c.mu.Unlock()

	reply, err := c.complete(ctx, messages)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.turns = append(c.turns, turn{"user", userText}, turn{"assistant", reply})
	if max := c.maxTurns * 2; len(c.turns) > max {
		c.turns = append([]turn(nil), c.turns[len(c.turns)-max:]...)
	}
	c.mu.Unlock()

	return reply, nil
}

// Summarize produces a short summary of a video's metadata for the
// knowledge base. It does not touch the conversation window.
func (c *Client) Summarize(ctx context.Context, title, description string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", errors.New("chat: empty title")
	}

	const prompt = `Summarize the following YouTube video metadata in two or
three sentences so a voice assistant can mention the video naturally in
conversation. Reply with plain text only.`

	return c.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt),
		openai.UserMessage("Title: " + title + "\nDescription: " + description),
	})
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// WindowLen returns the number of turns currently retained.
func (c *Client) WindowLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Reset drops the conversation window.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat: no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("chat: empty message content")
	}
	return content, nil
}
