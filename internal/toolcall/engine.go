package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"gui-agent/internal/entity"
	"gui-agent/internal/parser"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	GUIToolName = "gui_action"

	engineName         = "ToolCallEngine"
	engineTracer       = "toolcall.engine"
	defaultTemperature = 0.7
)

type Engine struct {
	logger *zap.Logger
	tracer trace.Tracer
	parser parser.Parser
	newID  func() string
}

type Params struct {
	fx.In

	Logger *zap.Logger
	Parser parser.Parser
}

func NewEngine(params Params) *Engine {
	return &Engine{
		logger: params.Logger.With(zap.String(logg.Layer, engineName)),
		tracer: otel.Tracer(engineTracer),
		parser: params.Parser,
		newID:  newToolCallID,
	}
}

func newToolCallID() string {
	return fmt.Sprintf("call_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (e *Engine) PrepareRequest(model string, messages []entity.Message, temperature float32) entity.ChatRequest {
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	return entity.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      true,
	}
}

// Finalize parses the accumulated turn and shapes it into tool calls. A parse
// failure yields exactly one tool call carrying the error message.
func (e *Engine) Finalize(ctx context.Context, state StreamState) (resp *entity.ModelResponse) {
	const op = "Finalize"
	logger := e.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, e.tracer, logger, op,
		attribute.Int("content_length", len(state.Content)))
	defer func() {
		step.End(nil)
	}()

	parsed := e.parser.Parse(state.Content)

	if parsed == nil || parsed.Failed() {
		message := parser.ErrorMessagePrefix
		if parsed != nil {
			message = parsed.ErrorMessage
		}

		logger.Warn("Model output could not be parsed", zap.String("error_message", message))
		step.AddEvent("parse failed")

		return &entity.ModelResponse{
			RawContent: state.Content,
			ToolCalls: []entity.ToolCall{{
				ID:   e.newID(),
				Name: GUIToolName,
				Args: entity.GUIToolArgs{ErrorMessage: message},
			}},
			FinishReason: entity.FinishReasonToolCalls,
		}
	}

	reasoning := parsed.ReasoningContent
	if reasoning == "" {
		reasoning = state.ReasoningContent
	}

	var (
		toolCalls     []entity.ToolCall
		finished      bool
		finishMessage string
	)

	for _, action := range parsed.Actions {
		if action.Type == entity.ActionFinished {
			finished = true
			finishMessage = action.Content()

			continue
		}

		toolCalls = append(toolCalls, entity.ToolCall{
			ID:   e.newID(),
			Name: GUIToolName,
			Args: entity.GUIToolArgs{
				Action:         parser.Serialize(action),
				Thought:        reasoning,
				OperatorAction: &action,
			},
		})
	}

	finishReason := entity.FinishReasonStop
	if len(toolCalls) > 0 && !finished {
		finishReason = entity.FinishReasonToolCalls
	}

	step.SetAttributes(attribute.Int("tool_calls", len(toolCalls)), attribute.Bool("finished", finished))

	return &entity.ModelResponse{
		Content:          finishMessage,
		RawContent:       state.Content,
		ReasoningContent: reasoning,
		ToolCalls:        toolCalls,
		FinishReason:     finishReason,
	}
}

// BuildHistoricalAssistantMessage replays the raw model text, not the parsed actions.
func BuildHistoricalAssistantMessage(resp *entity.ModelResponse) entity.Message {
	content := resp.RawContent
	if content == "" {
		content = resp.Content
	}

	return entity.Message{Role: entity.RoleAssistant, Content: content}
}

// BuildHistoricalToolResultMessages renders tool results as plain user text.
func BuildHistoricalToolResultMessages(results []entity.ToolResultRecord) []entity.Message {
	messages := make([]entity.Message, 0, len(results))

	for _, r := range results {
		body, err := json.Marshal(r.Result)
		if err != nil {
			body = []byte(r.Result.Error)
		}

		messages = append(messages, entity.Message{
			Role:    entity.RoleUser,
			Content: fmt.Sprintf("Tool %q result:\n%s", r.ToolName, body),
		})
	}

	return messages
}
