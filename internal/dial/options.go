package dial

import "dial-go/internal/chat"

// Option sets a model parameter on a completion request. Parameters left
// unset are omitted from the request body.
type Option func(*completionRequest)

func WithMaxTokens(n int) Option {
	return func(r *completionRequest) { r.MaxTokens = &n }
}

func WithTemperature(t float64) Option {
	return func(r *completionRequest) { r.Temperature = &t }
}

func WithTopP(p float64) Option {
	return func(r *completionRequest) { r.TopP = &p }
}

// WithN asks for n choices. Only the first choice is read back.
func WithN(n int) Option {
	return func(r *completionRequest) { r.N = &n }
}

func WithStop(stop ...string) Option {
	return func(r *completionRequest) { r.Stop = append(r.Stop, stop...) }
}

func WithSeed(seed int64) Option {
	return func(r *completionRequest) { r.Seed = &seed }
}

func WithPresencePenalty(p float64) Option {
	return func(r *completionRequest) { r.PresencePenalty = &p }
}

func WithFrequencyPenalty(p float64) Option {
	return func(r *completionRequest) { r.FrequencyPenalty = &p }
}

type completionRequest struct {
	Messages         []chat.Message `json:"messages"`
	Stream           bool           `json:"stream,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	N                *int           `json:"n,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Seed             *int64         `json:"seed,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
}

func newCompletionRequest(messages []chat.Message, stream bool, opts []Option) completionRequest {
	req := completionRequest{
		Messages: messages,
		Stream:   stream,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}
	return req
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// streamChunk is one decoded "data:" line of a streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}
