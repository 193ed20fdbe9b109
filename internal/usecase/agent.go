package usecase

import (
	"context"
	"errors"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/coords"
	"gui-agent/internal/entity"
	"gui-agent/internal/operator"
	"gui-agent/internal/ports"
	"gui-agent/internal/toolcall"
	"gui-agent/pkg/apperr"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	agentServiceName        = "AgentService"
	agentTracer             = "usecase.agent"
	maxConsecutiveErrors    = 3
	modelRetryDelay         = 2 * time.Second
	screenshotsKeptInPrompt = 5
)

var errStopped = errors.New("stopped by user")

// AgentService runs the screenshot-driven loop for one session: ask the model, execute
// its GUI actions, feed the new screen back.
type AgentService struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	provider   ports.OperatorProvider
	model      ports.ModelClient
	engine     *toolcall.Engine
	events     ports.EventSink
	compressor ports.Compressor
	recorder   ports.MetricsRecorder
	normalizer coords.Normalizer

	sleep       func(ctx context.Context, d time.Duration) error
	retryDelay  time.Duration
	presetDelay time.Duration

	mu         sync.Mutex
	cancel     context.CancelCauseFunc
	presetDone bool
}

type AgentServiceParams struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Provider   ports.OperatorProvider
	Model      ports.ModelClient
	Engine     *toolcall.Engine
	Events     ports.EventSink
	Compressor ports.Compressor
	Recorder   ports.MetricsRecorder
}

func NewAgentService(params AgentServiceParams) *AgentService {
	return &AgentService{
		config:      params.Config,
		logger:      params.Logger.With(zap.String(logg.Layer, agentServiceName)),
		tracer:      otel.Tracer(agentTracer),
		provider:    params.Provider,
		model:       params.Model,
		engine:      params.Engine,
		events:      params.Events,
		compressor:  params.Compressor,
		recorder:    params.Recorder,
		normalizer:  coords.New(params.Config.AgentConfig.CoordinateDivisor),
		sleep:       operator.Sleep,
		retryDelay:  modelRetryDelay,
		presetDelay: gamePresetDelay,
	}
}

func (s *AgentService) Execute(ctx context.Context, taskDescription string) (task *entity.Task, err error) {
	const op = "Execute"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("task_description", taskDescription))
	defer func() {
		step.End(err)
	}()

	if taskDescription == "" {
		return nil, apperr.InvalidReqError(op, "task_description", errors.New("task description cannot be empty"))
	}

	task = &entity.Task{
		ID:          uuid.New(),
		Description: taskDescription,
		Status:      entity.TaskStatusInProgress,
		CreatedAt:   time.Now(),
		Steps:       make([]entity.Step, 0),
	}

	logger = logger.With(zap.String(logg.TaskID, task.ID.String()))
	step.AddEvent("task created")

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	instance, err := s.provider.GetInstance(ctx)
	if err != nil {
		task.Fail(err.Error())

		return task, err
	}

	messages := []entity.Message{{
		Role:    entity.RoleSystem,
		Content: buildSystemPrompt(s.config.AgentConfig.SystemPrompt, instance.SupportedActions()),
	}}

	preset, err := s.gamePreset(ctx, instance)
	if err != nil {
		return s.cancelled(ctx, op, task)
	}

	messages = append(messages, preset...)

	s.events.Append(entity.Event{Type: entity.EventUserMessage, Content: taskDescription})
	messages = append(messages, entity.Message{Role: entity.RoleUser, Content: taskDescription})

	if msg, _, ok := s.observe(ctx, instance); ok {
		messages = append(messages, msg)
	}

	return s.loop(ctx, logger, step, task, instance, messages)
}

func (s *AgentService) loop(
	ctx context.Context,
	logger *zap.Logger,
	step *tracing.Span,
	task *entity.Task,
	instance ports.Operator,
	messages []entity.Message,
) (*entity.Task, error) {
	const op = "Execute"

	maxIterations := s.config.AgentConfig.MaxIterations
	mode := s.provider.GetMode().ID
	consecutiveErrors := 0
	lastURL := ""

	for iteration := 1; maxIterations <= 0 || iteration <= maxIterations; iteration++ {
		if ctx.Err() != nil {
			return s.cancelled(ctx, op, task)
		}

		s.recorder.IncIteration(mode)
		iterLogger := logger.With(zap.Int(logg.Iteration, iteration))
		step.AddEvent("sending message to model", attribute.Int("iteration", iteration))

		pruneScreenshots(messages, screenshotsKeptInPrompt)

		resp, err := s.requestModel(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				return s.cancelled(ctx, op, task)
			}

			iterLogger.Error("Model request failed", zap.Error(err))
			consecutiveErrors++

			if consecutiveErrors >= maxConsecutiveErrors {
				task.Fail(fmt.Sprintf("too many model errors: %v", err))

				return task, apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
					apperr.MetaReason: "too_many_ai_errors",
					apperr.MetaStage:  apperr.StageAI,
				})
			}

			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return s.cancelled(ctx, op, task)
			}

			continue
		}

		consecutiveErrors = 0

		s.events.Append(entity.Event{
			Type:    entity.EventAssistantMessage,
			Content: resp.RawContent,
			Metadata: map[string]string{
				"finishReason": resp.FinishReason,
				"reasoning":    resp.ReasoningContent,
			},
		})
		messages = append(messages, toolcall.BuildHistoricalAssistantMessage(resp))

		for _, call := range resp.ToolCalls {
			s.events.Append(entity.Event{Type: entity.EventToolCall, ToolCall: &call})

			result, out := s.callGUITool(ctx, instance, call)
			s.events.Append(entity.Event{
				Type:     entity.EventToolResult,
				Result:   &result,
				Metadata: map[string]string{"toolCallId": call.ID},
			})

			task.Steps = append(task.Steps, entity.Step{
				ID:          uuid.New(),
				Iteration:   iteration,
				Action:      call.Args.Action,
				Description: call.Args.Thought,
				Timestamp:   time.Now(),
				Success:     result.Success,
				Error:       result.Error,
				URL:         lastURL,
			})

			messages = append(messages, toolcall.BuildHistoricalToolResultMessages([]entity.ToolResultRecord{{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Result:     result,
			}})...)

			if out != nil && out.Status == entity.StatusCallUser {
				iterLogger.Info("Model asked for user assistance")
				task.Complete(entity.TaskStatusNeedsUser, resp.ReasoningContent)

				return task, nil
			}

			if ctx.Err() != nil {
				return s.cancelled(ctx, op, task)
			}

			if err := s.sleep(ctx, s.config.AgentConfig.LoopInterval); err != nil {
				return s.cancelled(ctx, op, task)
			}

			if msg, url, ok := s.observe(ctx, instance); ok {
				messages = append(messages, msg)
				lastURL = url
			}
		}

		if resp.FinishReason == entity.FinishReasonStop {
			iterLogger.Info("Task finished", zap.String("result", resp.Content))
			task.Complete(entity.TaskStatusCompleted, resp.Content)
			step.AddEvent("task completed")

			return task, nil
		}
	}

	task.Fail("max iterations reached")

	return task, apperr.WrapErrorWithReason(op, apperr.CodeMaxIterations, "max_iterations_reached")
}

// requestModel streams one model turn, publishing the text as it arrives.
func (s *AgentService) requestModel(ctx context.Context, messages []entity.Message) (*entity.ModelResponse, error) {
	req := s.engine.PrepareRequest(s.config.AIConfig.Model, messages, s.config.AIConfig.Temperature)
	req.MaxTokens = s.config.AIConfig.MaxTokens

	stream, err := s.model.StreamChat(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	state := toolcall.InitState()
	messageID := uuid.NewString()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		var delta toolcall.ChunkResult
		state, delta = toolcall.Reduce(state, chunk)

		if delta.Content == "" && delta.ReasoningContent == "" {
			continue
		}

		metadata := map[string]string{"messageId": messageID}
		if delta.ReasoningContent != "" {
			metadata["reasoning"] = delta.ReasoningContent
		}

		s.events.Append(entity.Event{
			Type:     entity.EventAssistantStreaming,
			Content:  delta.Content,
			Metadata: metadata,
		})
	}

	return s.engine.Finalize(ctx, state), nil
}

func (s *AgentService) cancelled(ctx context.Context, op string, task *entity.Task) (*entity.Task, error) {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}

	task.Fail(cause.Error())

	reason := "context_cancelled"
	if errors.Is(cause, errStopped) {
		reason = "stopped_by_user"
	}

	return task, apperr.Wrap(op, apperr.CodeCancelledByUser, cause, map[string]any{
		apperr.MetaReason: reason,
	})
}

// Stop aborts the running task, if any.
func (s *AgentService) Stop() {
	const op = "Stop"
	logger := s.logger.With(zap.String(logg.Operation, op))

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	logger.Info("Stopping agent...")
	cancel(errStopped)
}
