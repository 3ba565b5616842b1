package usecase

// Task types and payloads shared between the use cases that enqueue work and
// the task bindings that consume it.
const (
	ProcessBatchTaskType = "assistant:process_batch"
	AnalyzeImageTaskType = "assistant:analyze_image"
)

type ProcessBatchPayload struct {
	UserID  string `json:"user_id"`
	Attempt int    `json:"attempt"`
}

type AnalyzeImagePayload struct {
	UserID   string `json:"user_id"`
	ImageURL string `json:"image_url"`
	Ordinal  int    `json:"ordinal"`
}
