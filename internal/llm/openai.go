package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

const (
	completeAttempts = 3
	retryBaseDelay   = 400 * time.Millisecond
)

// OpenAIClient implements Client on the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient wraps an existing API client. The embedding layer owns
// client construction so both share one connection.
func NewOpenAIClient(client *openai.Client, model string) *OpenAIClient {
	return &OpenAIClient{client: client, model: model}
}

// Complete requests one completion, retrying transient failures with a
// short linear backoff.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	params := c.params(messages, temperature)

	var lastErr error
	for attempt := 0; attempt < completeAttempts; attempt++ {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("completion returned no choices")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryBaseDelay * time.Duration(attempt+1)):
		}
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", completeAttempts, lastErr)
}

// Stream emits the answer incrementally. If the stream fails or produces no
// text, it falls back to a single non-streaming completion and emits that
// as one increment, so callers never see a silent empty success.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, temperature float64, onDelta func(string)) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages, temperature))

	var b strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		b.WriteString(token)
		if onDelta != nil {
			onDelta(token)
		}
	}

	// Emitted text cannot be retracted, so a partial stream is returned
	// as-is even when the stream ended with an error.
	if b.Len() > 0 {
		return b.String(), nil
	}

	answer, err := c.Complete(ctx, messages, temperature)
	if err != nil {
		return "", err
	}
	if answer != "" && onDelta != nil {
		onDelta(answer)
	}
	return answer, nil
}

func (c *OpenAIClient) params(messages []Message, temperature float64) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    converted,
		Temperature: openai.Float(temperature),
	}
}
