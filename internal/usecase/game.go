package usecase

import (
	"context"
	"fmt"
	"gui-agent/internal/entity"
	"gui-agent/internal/ports"
	"time"

	"go.uber.org/zap"
)

const (
	gamePresetDelay = 4 * time.Second
	gameWaitMessage = "Just tell me which game you want me to play, and I’ll begin!"
)

func (s *AgentService) hasEvent(t entity.EventType) bool {
	return len(s.events.Events(t)) > 0
}

// gamePreset seeds a game session once: with a link the conversation opens on the
// loaded game, without one the agent asks which game to play. It returns the
// messages to prepend to the model conversation.
func (s *AgentService) gamePreset(ctx context.Context, op ports.Operator) ([]entity.Message, error) {
	mode := s.provider.GetMode()
	if mode.ID != entity.ModeGame || s.presetDone {
		return nil, nil
	}

	s.presetDone = true

	if mode.Link == "" {
		if !s.hasEvent(entity.EventAssistantMessage) {
			s.events.Append(entity.Event{Type: entity.EventAssistantMessage, Content: gameWaitMessage})
		}

		return nil, nil
	}

	var messages []entity.Message

	if !s.hasEvent(entity.EventUserMessage) {
		query := fmt.Sprintf("Goto: %s", mode.Link)
		s.events.Append(entity.Event{Type: entity.EventUserMessage, Content: query})
		messages = append(messages, entity.Message{Role: entity.RoleUser, Content: query})
	}

	if err := s.sleep(ctx, s.presetDelay); err != nil {
		return nil, err
	}

	if msg, _, ok := s.observe(ctx, op); ok {
		messages = append(messages, msg)
	}

	if !s.hasEvent(entity.EventAssistantMessage) {
		reply := fmt.Sprintf("Successfully navigated to %s, and the page has loaded.", mode.Link)
		s.events.Append(entity.Event{Type: entity.EventAssistantMessage, Content: reply})
		messages = append(messages, entity.Message{Role: entity.RoleAssistant, Content: reply})
	}

	s.logger.Info("Game session preset emitted", zap.String("link", mode.Link))

	return messages, nil
}
