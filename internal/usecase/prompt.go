package usecase

import (
	"gui-agent/internal/entity"
	"gui-agent/internal/parser"
)

const defaultSystemPrompt = `You are a GUI agent. You are given a task and your action history, with screenshots. You need to perform the next action to complete the task.

## Output Format
` + "```" + `
Thought: ...
Action: ...
` + "```" + `

## Action Space

` + parser.ActionSpacePlaceholder + `

## Note
- Write a small plan and finally summarize your next action (with its target element) in one sentence in ` + "`Thought`" + ` part.
- Coordinates are given on a 0-1000 grid relative to the screenshot.

## User Instruction
`

// buildSystemPrompt fills the action space of template with the operator's actions.
func buildSystemPrompt(template string, supported []entity.ActionType) string {
	if template == "" {
		template = defaultSystemPrompt
	}

	return parser.AssemblePrompt(template, supported)
}
