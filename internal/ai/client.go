package ai

import (
	"context"
	"errors"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/ports"
	"gui-agent/pkg/apperr"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	aiClientName = "AIClient"
	aiTracer     = "ai.client"
)

// Client streams chat completions from an OpenAI-compatible endpoint serving the
// vision model.
type Client struct {
	config *config.AIConfig
	logger *zap.Logger
	tracer trace.Tracer
	api    *openai.Client
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	cfg := openai.DefaultConfig(params.Config.AIConfig.APIKey)
	if params.Config.AIConfig.BaseURL != "" {
		cfg.BaseURL = params.Config.AIConfig.BaseURL
	}

	return &Client{
		config: params.Config.AIConfig,
		logger: params.Logger.With(zap.String(logg.Layer, aiClientName)),
		tracer: otel.Tracer(aiTracer),
		api:    openai.NewClientWithConfig(cfg),
	}
}

func (c *Client) StreamChat(ctx context.Context, req entity.ChatRequest) (_ ports.ChunkStream, err error) {
	const op = "StreamChat"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("model", req.Model),
		attribute.Int("messages", len(req.Messages)))
	defer func() {
		step.End(err)
	}()

	apiReq := c.buildRequest(req)

	logger.Debug("Sending streaming request",
		zap.String("model", apiReq.Model),
		zap.Int("messages", len(apiReq.Messages)),
	)

	stream, err := c.api.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason: reason(err),
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	return &chunkStream{stream: stream}, nil
}

func (c *Client) buildRequest(req entity.ChatRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, toMessage(m))
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		Stream:      true,
	}
}

func toMessage(m entity.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: string(m.Role)}

	if len(m.Parts) == 0 {
		msg.Content = m.Content

		return msg
	}

	msg.MultiContent = make([]openai.ChatMessagePart, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case entity.PartImage:
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL,
					Detail: openai.ImageURLDetail(p.Detail),
				},
			})
		default:
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}

	return msg
}

func reason(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return "api_error"
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return "request_failed"
	}

	return "stream_open_failed"
}

type chunkStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next non-empty chunk, or io.EOF once the stream is done.
func (s *chunkStream) Recv() (entity.StreamChunk, error) {
	const op = "Recv"

	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return entity.StreamChunk{}, io.EOF
		}

		if err != nil {
			return entity.StreamChunk{}, apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
				apperr.MetaReason: "stream_read_failed",
				apperr.MetaStage:  apperr.StageAI,
			})
		}

		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]

		return entity.StreamChunk{
			Content:          choice.Delta.Content,
			ReasoningContent: choice.Delta.ReasoningContent,
			FinishReason:     string(choice.FinishReason),
		}, nil
	}
}

func (s *chunkStream) Close() error {
	return s.stream.Close()
}
