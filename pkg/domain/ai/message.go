package ai

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType distinguishes text from inline images.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// ContentBlock is one segment of a message.
type ContentBlock struct {
	Type BlockType
	Text string
	// ImageURL is an http(s) URL or a data: URL.
	ImageURL string
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// Conversation is an ordered sequence of messages.
type Conversation []Message

// Text builds a message with a single text block.
func Text(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// Image builds an image content block.
func Image(url string) ContentBlock {
	return ContentBlock{Type: BlockImage, ImageURL: url}
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// PlainText joins the text blocks of m with newlines, skipping images.
func (m Message) PlainText() string {
	parts := make([]string, 0, len(m.Content))
	for _, b := range m.Content {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasImages reports whether any block is an image.
func (m Message) HasImages() bool {
	for _, b := range m.Content {
		if b.Type == BlockImage {
			return true
		}
	}
	return false
}
