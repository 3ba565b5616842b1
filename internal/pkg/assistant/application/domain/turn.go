package assistant

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn is one entry of a user's rolling conversation context. Tool turns only
// exist transiently inside a reply-generation round; the persisted context
// holds user and assistant turns.
type Turn struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall mirrors the model's function-call request so it can be echoed back
// in the follow-up round.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// LastAssistantContent returns the content of the most recent assistant turn,
// or empty when none exists. The classifier uses it as conversational context.
func LastAssistantContent(history []Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant && history[i].Content != "" {
			return history[i].Content
		}
	}
	return ""
}
