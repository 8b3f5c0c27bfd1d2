// Package chat defines the minimal chat-message, tool, and planner
// vocabulary formflow consumes from the surrounding agent framework. It is a
// contract package: formflow never instantiates the LLM client itself, it
// only reads and writes these shapes.
package chat

import "encoding/json"

// Role identifies the sender of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleAI        Role = "ai"
	RoleFunction  Role = "function"
	RoleTool      Role = "tool"
)

// ContentType enumerates the kinds of content a ContentItem can carry.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeResource ContentType = "resource"
	ContentTypeBinary   ContentType = "binary"
)

// ContentItem is a single piece of content inside a Message.
type ContentItem struct {
	Type     ContentType            `json:"type"`
	Data     string                 `json:"data,omitempty"`
	MimeType string                 `json:"mimeType,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall is a structured tool invocation emitted by the assistant.
type ToolCall struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Message is a single turn in a conversation.
type Message struct {
	Role       Role                   `json:"role"`
	Content    string                 `json:"content,omitempty"`
	Items      []ContentItem          `json:"items,omitempty"`
	Name       string                 `json:"name,omitempty"`
	ToolCalls  []ToolCall             `json:"toolCalls,omitempty"`
	ToolCallID string                 `json:"toolCallId,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewUserMessage creates a user-role text message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role text message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewSystemMessage creates a system-role text message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewToolResultMessage creates a tool-role message carrying a call's result.
func NewToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Name: call.Name, ToolCallID: call.ID, Content: content}
}

// Text returns the plain-text payload of the message, preferring Content
// but falling back to the first text content item.
func (m Message) Text() string {
	if m.Content != "" {
		return m.Content
	}
	for _, it := range m.Items {
		if it.Type == ContentTypeText {
			return it.Data
		}
	}
	return ""
}

// MarshalPayload renders an arbitrary value into the map shape used by
// tool arguments / form parameters throughout formflow.
func MarshalPayload(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
