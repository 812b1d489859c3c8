package chat

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

type Role string

const (
	System Role = "system"
	User   Role = "user"
	AI     Role = "assistant"
)

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// Message is a single chat message. A message is structured when Parts is
// non-nil and textual otherwise; Content is ignored for structured messages.
// FinishReason is set on replies only and is never sent back to the model.
type Message struct {
	Role          Role
	Content       string
	Parts         []Part
	CustomContent *CustomContent
	FinishReason  string
}

type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// Attachment references content previously uploaded to a bucket.
type Attachment struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

type CustomContent struct {
	Attachments []Attachment `json:"attachments"`
}

func NewMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

func NewPartsMessage(role Role, parts ...Part) Message {
	copied := make([]Part, len(parts))
	copy(copied, parts)
	return Message{Role: role, Parts: copied}
}

func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

func ImagePart(url string) Part {
	return Part{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// ImageDataPart embeds data inline as a base64 data URI.
func ImageDataPart(mimeType string, data []byte) Part {
	return ImagePart(DataURI(mimeType, data))
}

func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// WithAttachments returns a copy of m carrying the given attachments after
// any it already had.
func (m Message) WithAttachments(attachments ...Attachment) Message {
	var existing []Attachment
	if m.CustomContent != nil {
		existing = m.CustomContent.Attachments
	}
	merged := make([]Attachment, 0, len(existing)+len(attachments))
	merged = append(merged, existing...)
	merged = append(merged, attachments...)
	m.CustomContent = &CustomContent{Attachments: merged}
	return m
}

func (m Message) IsStructured() bool {
	return m.Parts != nil
}

// Text returns the textual content of the message. For structured messages
// the text parts are concatenated in order.
func (m Message) Text() string {
	if !m.IsStructured() {
		return m.Content
	}
	var builder strings.Builder
	for _, part := range m.Parts {
		if part.Type != PartTypeText {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String()
}

type wireMessage struct {
	Role          Role           `json:"role"`
	Content       any            `json:"content"`
	CustomContent *CustomContent `json:"custom_content,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	wire := wireMessage{
		Role:          m.Role,
		Content:       m.Content,
		CustomContent: m.CustomContent,
	}
	if m.IsStructured() {
		wire.Content = m.Parts
	}
	return json.Marshal(wire)
}
