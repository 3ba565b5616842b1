package port

import "context"

// Message is one turn in a chat completion request. ToolCalls and ToolCallID
// carry the tool-use protocol between assistant and tool roles.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Tool describes a function the model may call. Parameters is a JSON schema
// object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ChatRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float32
	Tools       []Tool
}

// Completion is the model's answer. When ToolCalls is non-empty the caller is
// expected to execute them and follow up with tool messages.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Client abstracts the model provider.
type Client interface {
	// ClassifyJSON runs a single-shot completion constrained to a JSON
	// object response and returns the raw JSON text.
	ClassifyJSON(ctx context.Context, model, system, user string) (string, error)

	// Chat runs a chat completion, optionally with tools.
	Chat(ctx context.Context, req ChatRequest) (Completion, error)

	// AnalyzeImage describes an image given as raw JPEG/PNG bytes.
	AnalyzeImage(ctx context.Context, model, system, instruction string, image []byte) (string, error)

	// Embed returns the embedding vector for a text.
	Embed(ctx context.Context, model, text string) ([]float32, error)
}
