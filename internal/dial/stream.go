package dial

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"dial-go/internal/chat"

	"go.uber.org/zap"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Stream sends messages with streaming enabled and concatenates every
// content delta into one assistant message. Chunks that cannot be decoded
// are logged and skipped. If the stream breaks before [DONE], the text
// received so far is returned together with a *StreamError.
func (c *Client) Stream(ctx context.Context, messages []chat.Message, handle StreamHandler, opts ...Option) (chat.Message, error) {
	if len(messages) == 0 {
		return chat.Message{}, ErrNoMessages
	}
	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	defer cancel()

	payload := newCompletionRequest(messages, true, opts)
	httpResp, err := c.send(ctx, payload)
	if err != nil {
		return chat.Message{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return chat.Message{}, c.statusError(httpResp)
	}

	var content strings.Builder
	var finishReason string
	reply := func() chat.Message {
		msg := chat.NewMessage(chat.AI, content.String())
		msg.FinishReason = finishReason
		return msg
	}
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data, ok := c.payload(scanner.Bytes())
		if !ok {
			continue
		}
		if data == doneSentinel {
			return reply(), nil
		}
		delta, reason := c.delta(data)
		if reason != "" {
			finishReason = reason
		}
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if handle != nil {
			if err := handle(delta); err != nil {
				return reply(), &HandlerError{Err: err}
			}
		}
	}
	partial := reply()
	if err := scanner.Err(); err != nil {
		c.logger.Warn("stream interrupted",
			zap.Error(err),
			zap.Int("received", content.Len()),
		)
		return partial, &StreamError{Err: err}
	}
	return partial, nil
}

// StreamCompletion is Stream without an error result. An interrupted stream
// yields the text received so far. A handler failure yields that text
// followed by the diagnostic. Other failures are returned as the content of
// the assistant message.
func (c *Client) StreamCompletion(ctx context.Context, messages []chat.Message, handle StreamHandler, opts ...Option) chat.Message {
	msg, err := c.Stream(ctx, messages, handle, opts...)
	if err == nil {
		return msg
	}
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return msg
	}
	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		c.logger.Warn("stream handler failed", zap.Error(handlerErr.Err))
		msg.Content += "\n" + diagnostic("Streaming request failed", err)
		return msg
	}
	return chat.NewMessage(chat.AI, diagnostic("Streaming request failed", err))
}

// payload extracts the data of an SSE "data: " line. Blank lines, other SSE
// fields and lines that are not valid UTF-8 are reported as not ok.
func (c *Client) payload(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		c.logger.Warn("skipping stream line with invalid utf-8")
		return "", false
	}
	line := strings.TrimSpace(string(raw))
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return strings.TrimPrefix(line, dataPrefix), true
}

// delta returns the content delta and finish reason carried by a chunk.
func (c *Client) delta(data string) (string, string) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		c.logger.Warn("skipping malformed stream chunk",
			zap.Error(err),
			zap.String("data", truncate(data, 200)),
		)
		return "", ""
	}
	if len(chunk.Choices) == 0 {
		return "", ""
	}
	choice := chunk.Choices[0]
	var content, reason string
	if choice.Delta.Content != nil {
		content = *choice.Delta.Content
	}
	if choice.FinishReason != nil {
		reason = *choice.FinishReason
	}
	return content, reason
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
