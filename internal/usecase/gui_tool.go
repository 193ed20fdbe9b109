package usecase

import (
	"context"
	"errors"
	"gui-agent/internal/coords"
	"gui-agent/internal/entity"
	"gui-agent/internal/ports"
	"gui-agent/pkg/logg"
	"gui-agent/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var errNoOperatorAction = errors.New("tool call carries no operator action")

func failedResult(action, message string) entity.ToolResult {
	return entity.ToolResult{Success: false, Action: action, Error: message}
}

// callGUITool runs one tool call against the operator. Parse and execution errors are
// reported in the result so the model can react to them; only the returned output
// status steers the loop.
func (s *AgentService) callGUITool(ctx context.Context, op ports.Operator, call entity.ToolCall) (result entity.ToolResult, out *entity.ExecuteOutput) {
	const opName = "callGUITool"
	logger := s.logger.With(zap.String(logg.Operation, opName), zap.String(logg.ToolCall, call.ID))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, opName,
		attribute.String("action", call.Args.Action))
	defer func() {
		var err error
		if !result.Success {
			err = errors.New(result.Error)
		}

		step.End(err)
	}()

	if call.Args.ErrorMessage != "" {
		s.recorder.IncParseFailure()

		return failedResult(call.Args.Action, call.Args.ErrorMessage), nil
	}

	if call.Args.OperatorAction == nil {
		return failedResult(call.Args.Action, errNoOperatorAction.Error()), nil
	}

	action := s.normalizer.NormalizeAction(*call.Args.OperatorAction)
	logger.Info("Executing action", zap.String(logg.Action, call.Args.Action))

	out, err := op.Execute(ctx, entity.ExecuteParams{
		Actions:          []entity.Action{action},
		ReasoningContent: call.Args.Thought,
	})
	if err != nil {
		logger.Warn("Action failed", zap.Error(err))

		return failedResult(call.Args.Action, err.Error()), nil
	}

	if out.ErrorMessage != "" {
		return failedResult(call.Args.Action, out.ErrorMessage), out
	}

	return entity.ToolResult{
		Success:          true,
		Action:           call.Args.Action,
		NormalizedAction: coords.ToUIAction(action),
	}, out
}
