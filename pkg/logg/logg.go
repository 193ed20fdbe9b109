package logg

const (
	Layer     = "layer"
	Operation = "operation"
	TaskID    = "task_id"
	SessionID = "session_id"
	Action    = "action"
	URL       = "url"
	Mode      = "mode"
	Backend   = "backend"
	Iteration = "iteration"
	ToolCall  = "tool_call_id"
	Event     = "event"
)
