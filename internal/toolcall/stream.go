package toolcall

import (
	"gui-agent/internal/entity"
)

// StreamState accumulates one streamed model turn.
type StreamState struct {
	Content          string
	ReasoningContent string
	FinishReason     string
}

// ChunkResult is the incremental text surfaced to the UI for one chunk.
// Tool calls are never detected mid-stream.
type ChunkResult struct {
	Content           string
	ReasoningContent  string
	HasToolCallUpdate bool
}

func InitState() StreamState {
	return StreamState{}
}

func Reduce(state StreamState, chunk entity.StreamChunk) (StreamState, ChunkResult) {
	state.Content += chunk.Content
	state.ReasoningContent += chunk.ReasoningContent

	if chunk.FinishReason != "" {
		state.FinishReason = chunk.FinishReason
	}

	return state, ChunkResult{
		Content:          chunk.Content,
		ReasoningContent: chunk.ReasoningContent,
	}
}
