package parser

import (
	"encoding/json"
	"fmt"
	"gui-agent/internal/entity"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const ErrorMessagePrefix = "Failed to parse GUI Action from output"

var (
	thinkPattern  = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	answerPattern = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)
	envPattern    = regexp.MustCompile(`(?s)<computer_env>(.*?)</computer_env>`)
)

// Parser turns one model turn into actions. Implementations report failures through
// ParsedResponse.ErrorMessage and never panic on malformed input.
type Parser interface {
	Parse(text string) *entity.ParsedResponse
}

// CustomParser is an integrator-supplied parser. A nil result hands the text to the default parser.
type CustomParser func(text string) *entity.ParsedResponse

type DefaultParser struct {
	logger *zap.Logger
}

func NewDefaultParser(logger *zap.Logger) *DefaultParser {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DefaultParser{logger: logger.Named("parser")}
}

func (p *DefaultParser) Parse(text string) *entity.ParsedResponse {
	reasoning, section, answer := splitSections(text)

	resp := &entity.ParsedResponse{ReasoningContent: reasoning}

	calls, err := scanCalls(section, CanonicalType)
	if err != nil {
		return p.fail(resp, err.Error())
	}

	actions := make([]entity.Action, 0, len(calls)+1)
	for _, call := range calls {
		action, err := standardize(call)
		if err != nil {
			return p.fail(resp, err.Error())
		}

		actions = append(actions, action)
	}

	if answer != nil && !endsWithFinished(actions) {
		actions = append(actions, entity.Action{
			Type:   entity.ActionFinished,
			Inputs: entity.FinishedInputs{Content: *answer},
		})
	}

	if len(actions) == 0 {
		return p.fail(resp, "no action found")
	}

	resp.Actions = actions

	return resp
}

// ParseToolCall handles structured tool-call payloads. The arguments either carry an
// "action" string in the text grammar or the action fields themselves.
func (p *DefaultParser) ParseToolCall(name, arguments string) *entity.ParsedResponse {
	var raw map[string]any

	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return p.fail(&entity.ParsedResponse{}, fmt.Sprintf("tool arguments: %v", err))
	}

	thought, _ := raw["thought"].(string)

	if text, ok := raw["action"].(string); ok && strings.Contains(text, "(") {
		resp := p.Parse(text)
		if resp.ReasoningContent == "" {
			resp.ReasoningContent = thought
		}

		return resp
	}

	call := roughCall{name: strings.ToLower(name)}
	if actionType, ok := raw["action_type"].(string); ok {
		call.name = strings.ToLower(actionType)
	}

	for key, value := range raw {
		if key == "thought" || key == "action_type" {
			continue
		}

		call.args = append(call.args, roughArg{key: strings.ToLower(key), value: stringifyArg(value)})
	}

	resp := &entity.ParsedResponse{ReasoningContent: thought}

	action, err := standardize(call)
	if err != nil {
		return p.fail(resp, err.Error())
	}

	resp.Actions = []entity.Action{action}

	return resp
}

func (p *DefaultParser) fail(resp *entity.ParsedResponse, detail string) *entity.ParsedResponse {
	p.logger.Debug("model output rejected", zap.String("detail", detail))

	resp.Actions = nil
	resp.ErrorMessage = ErrorMessagePrefix + ": " + detail

	return resp
}

// Strategy picks the custom parser first and falls back to the default one.
type Strategy struct {
	Custom  CustomParser
	Default Parser
}

func NewStrategy(custom CustomParser, fallback Parser) *Strategy {
	return &Strategy{Custom: custom, Default: fallback}
}

func (s *Strategy) Parse(text string) *entity.ParsedResponse {
	if s.Custom != nil {
		if resp := s.Custom(text); resp != nil {
			return resp
		}
	}

	return s.Default.Parse(text)
}

// splitSections separates reasoning from the action section and extracts an
// <answer> block when present.
func splitSections(text string) (reasoning string, section string, answer *string) {
	var thoughts []string

	for _, m := range thinkPattern.FindAllStringSubmatch(text, -1) {
		if t := strings.TrimSpace(m[1]); t != "" {
			thoughts = append(thoughts, t)
		}
	}

	body := thinkPattern.ReplaceAllString(text, "")

	if m := answerPattern.FindStringSubmatch(body); m != nil {
		a := strings.TrimSpace(m[1])
		answer = &a
		body = answerPattern.ReplaceAllString(body, "")
	}

	if m := envPattern.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	section = body
	if idx := strings.Index(body, "Action:"); idx >= 0 {
		if t := cleanThought(body[:idx]); t != "" {
			thoughts = append(thoughts, t)
		}

		section = body[idx+len("Action:"):]
	}

	return strings.Join(thoughts, "\n"), section, answer
}

func cleanThought(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range []string{"Thought:", "Reflection:", "Action_Summary:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}

	return s
}

func endsWithFinished(actions []entity.Action) bool {
	return len(actions) > 0 && actions[len(actions)-1].Type == entity.ActionFinished
}

func stringifyArg(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringifyArg(item))
		}

		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
