package entity

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID
	SessionID   string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	Steps       []Step
	Result      string
	Error       string
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusNeedsUser  TaskStatus = "needs_user"
	TaskStatusFailed     TaskStatus = "failed"
)

func (t *Task) Complete(status TaskStatus, result string) {
	now := time.Now()
	t.Status = status
	t.Result = result
	t.CompletedAt = &now
}

func (t *Task) Fail(reason string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Error = reason
	t.CompletedAt = &now
}

type Step struct {
	ID          uuid.UUID
	Iteration   int
	Action      string
	Description string
	Timestamp   time.Time
	Success     bool
	Error       string
	URL         string
}

type ModeID string

const (
	ModeGUI  ModeID = "gui"
	ModeGame ModeID = "game"
)

type BrowserMode string

const (
	BrowserModeHybrid  BrowserMode = "hybrid"
	BrowserModeLocal   BrowserMode = "local"
	BrowserModeRemote  BrowserMode = "remote"
	BrowserModeDesktop BrowserMode = "desktop"
	BrowserModeAndroid BrowserMode = "android"
)

type AgentMode struct {
	ID          ModeID      `json:"id"`
	BrowserMode BrowserMode `json:"browserMode,omitempty"`
	Link        string      `json:"link,omitempty"`
}

func DefaultAgentMode() AgentMode {
	return AgentMode{ID: ModeGUI, BrowserMode: BrowserModeHybrid}
}
