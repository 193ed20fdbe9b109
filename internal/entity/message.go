package entity

import (
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

type ContentPart struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// Message holds either plain Content or multimodal Parts.
type Message struct {
	Role    Role
	Content string
	Parts   []ContentPart
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	Stream      bool
}

type StreamChunk struct {
	Content          string
	ReasoningContent string
	FinishReason     string
}

const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
)

type ToolCall struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Args GUIToolArgs `json:"arguments"`
}

type GUIToolArgs struct {
	Action         string  `json:"action"`
	Thought        string  `json:"thought,omitempty"`
	OperatorAction *Action `json:"operator_action,omitempty"`
	ErrorMessage   string  `json:"errorMessage,omitempty"`
}

// ModelResponse is one finalized model turn.
type ModelResponse struct {
	Content          string
	RawContent       string
	ReasoningContent string
	ToolCalls        []ToolCall
	FinishReason     string
}

// ToolResult keeps one shape for success and failure.
type ToolResult struct {
	Success          bool      `json:"success"`
	Action           string    `json:"action"`
	NormalizedAction *UIAction `json:"normalizedAction"`
	Observation      any       `json:"observation"`
	Error            string    `json:"error,omitempty"`
}

type ToolResultRecord struct {
	ToolCallID string
	ToolName   string
	Result     ToolResult
}

// UIAction is the front-end view of an action, with coordinates in percent.
type UIAction struct {
	Type      ActionType `json:"type"`
	StartX    *float64   `json:"startX,omitempty"`
	StartY    *float64   `json:"startY,omitempty"`
	EndX      *float64   `json:"endX,omitempty"`
	EndY      *float64   `json:"endY,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
	Content   string     `json:"content,omitempty"`
	Key       string     `json:"key,omitempty"`
	URL       string     `json:"url,omitempty"`
}

type EventType string

const (
	EventUserMessage        EventType = "user_message"
	EventAssistantStreaming EventType = "assistant_streaming_message"
	EventAssistantMessage   EventType = "assistant_message"
	EventToolCall           EventType = "tool_call"
	EventToolResult         EventType = "tool_result"
	EventEnvironmentInput   EventType = "environment_input"
	EventSystem             EventType = "system"
)

type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Content   string            `json:"content,omitempty"`
	Parts     []ContentPart     `json:"parts,omitempty"`
	ToolCall  *ToolCall         `json:"toolCall,omitempty"`
	Result    *ToolResult       `json:"result,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
