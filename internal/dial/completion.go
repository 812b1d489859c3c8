package dial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dial-go/internal/chat"

	"go.uber.org/zap"
)

// Complete sends messages and returns the first choice as an assistant
// message. A response without choices yields an empty assistant message.
// The message's FinishReason tells whether the reply was cut off ("length").
func (c *Client) Complete(ctx context.Context, messages []chat.Message, opts ...Option) (chat.Message, error) {
	if len(messages) == 0 {
		return chat.Message{}, ErrNoMessages
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := newCompletionRequest(messages, false, opts)
	var resp completionResponse
	if err := c.do(ctx, payload, &resp); err != nil {
		return chat.Message{}, err
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("no choices in response")
		return chat.NewMessage(chat.AI, ""), nil
	}
	choice := resp.Choices[0]
	msg := chat.NewMessage(chat.AI, "")
	if choice.Message.Content != nil {
		msg.Content = *choice.Message.Content
	}
	msg.FinishReason = choice.FinishReason
	return msg, nil
}

// GetCompletion is Complete without an error result: failures are logged
// and returned as the content of the assistant message.
func (c *Client) GetCompletion(ctx context.Context, messages []chat.Message, opts ...Option) chat.Message {
	msg, err := c.Complete(ctx, messages, opts...)
	if err != nil {
		return chat.NewMessage(chat.AI, diagnostic("Request failed", err))
	}
	return msg
}

func (c *Client) do(ctx context.Context, payload completionRequest, out *completionResponse) error {
	httpResp, err := c.send(ctx, payload)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return c.statusError(httpResp)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		c.logger.Error("decode response failed", zap.Error(err))
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, payload completionRequest) (*http.Response, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Debug("sending chat completion request",
		zap.String("endpoint", c.endpoint),
		zap.Int("messages", len(payload.Messages)),
		zap.Bool("stream", payload.Stream),
	)
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("dial request failed", zap.Error(err))
		return nil, fmt.Errorf("dial request: %w", err)
	}
	return httpResp, nil
}

func (c *Client) statusError(httpResp *http.Response) error {
	err := readStatusError(httpResp.Body, httpResp.StatusCode)
	c.logger.Warn("dial request rejected",
		zap.Int("status", httpResp.StatusCode),
		zap.String("body", err.Body),
	)
	return err
}
