package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// ImageURL references an image by URL or data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentBlock is one typed piece of a multimodal message.
type ContentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`

	// bare marks a block that arrived as a plain string inside a list.
	bare bool
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentTypeText, Text: text}
}

func ImageBlock(url string) ContentBlock {
	return ContentBlock{Type: ContentTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

func (b ContentBlock) validate() error {
	switch b.Type {
	case ContentTypeText, ContentTypeImageURL:
		return nil
	default:
		return fmt.Errorf("unsupported content block type %q", b.Type)
	}
}

func (b ContentBlock) isImage() bool {
	return b.Type == ContentTypeImageURL && b.ImageURL != nil && b.ImageURL.URL != ""
}

type contentShape uint8

const (
	shapeText contentShape = iota
	shapeBlock
	shapeList
)

// Content is a message body: a plain string, a single block, or an
// ordered list of blocks and strings. The JSON shape survives a
// decode/encode round trip.
type Content struct {
	shape  contentShape
	text   string
	blocks []ContentBlock
}

func TextContent(text string) Content {
	return Content{shape: shapeText, text: text}
}

func BlockContent(block ContentBlock) Content {
	return Content{shape: shapeBlock, blocks: []ContentBlock{block}}
}

func ListContent(blocks ...ContentBlock) Content {
	return Content{shape: shapeList, blocks: blocks}
}

// IsText reports whether the content is a plain string.
func (c Content) IsText() bool { return c.shape == shapeText }

// Blocks returns the content as blocks; plain text becomes one text block.
func (c Content) Blocks() []ContentBlock {
	if c.shape == shapeText {
		return []ContentBlock{TextBlock(c.text)}
	}
	out := make([]ContentBlock, len(c.blocks))
	copy(out, c.blocks)
	return out
}

func (c Content) HasImage() bool {
	for _, b := range c.blocks {
		if b.isImage() {
			return true
		}
	}
	return false
}

// PlainText joins the text parts, dropping images.
func (c Content) PlainText() string {
	if c.shape == shapeText {
		return c.text
	}
	parts := make([]string, 0, len(c.blocks))
	for _, b := range c.blocks {
		if b.Type == ContentTypeText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.PlainText()) == "" && !c.HasImage()
}

func (c Content) MarshalJSON() ([]byte, error) {
	switch c.shape {
	case shapeBlock:
		if len(c.blocks) == 1 {
			return json.Marshal(c.blocks[0])
		}
		return json.Marshal(c.blocks)
	case shapeList:
		items := make([]any, 0, len(c.blocks))
		for _, b := range c.blocks {
			if b.bare {
				items = append(items, b.Text)
				continue
			}
			items = append(items, b)
		}
		return json.Marshal(items)
	default:
		return json.Marshal(c.text)
	}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty content")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextContent(s)
	case '{':
		var b ContentBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if err := b.validate(); err != nil {
			return err
		}
		*c = BlockContent(b)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		blocks := make([]ContentBlock, 0, len(raw))
		for _, item := range raw {
			item = bytes.TrimSpace(item)
			if len(item) > 0 && item[0] == '"' {
				var s string
				if err := json.Unmarshal(item, &s); err != nil {
					return err
				}
				blocks = append(blocks, ContentBlock{Type: ContentTypeText, Text: s, bare: true})
				continue
			}
			var b ContentBlock
			if err := json.Unmarshal(item, &b); err != nil {
				return err
			}
			if err := b.validate(); err != nil {
				return err
			}
			blocks = append(blocks, b)
		}
		*c = ListContent(blocks...)
	default:
		return fmt.Errorf("content must be a string, block or list, got %s", data)
	}
	return nil
}

// Message is the provider-neutral chat message handed to adapters.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Parameters are the sampling settings attached to a send.
type Parameters struct {
	Temperature      float32 `json:"temperature" yaml:"temperature"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens"`
	PresencePenalty  float32 `json:"presence_penalty" yaml:"presence_penalty"`
	FrequencyPenalty float32 `json:"frequency_penalty" yaml:"frequency_penalty"`
	SystemPrompt     string  `json:"system_prompt" yaml:"system_prompt"`
}

const DefaultSystemPrompt = "Respond to the user's questions concisely and helpfully."

func DefaultParameters() Parameters {
	return Parameters{
		Temperature:  0.7,
		MaxTokens:    1000,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// WithSystemPrompt prepends the system prompt unless the conversation
// already opens with a system message.
func WithSystemPrompt(messages []Message, prompt string) []Message {
	if prompt == "" || (len(messages) > 0 && messages[0].Role == RoleSystem) {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: TextContent(prompt)})
	return append(out, messages...)
}

func normalizeRole(role string) string {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return role
	default:
		return RoleUser
	}
}
