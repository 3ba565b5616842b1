package task

import (
	"context"
	"encoding/json"
	"fmt"

	queueport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/usecase"
)

// RegisterAnalyzeImageTask binds the image analysis task to its use case.
func RegisterAnalyzeImageTask(srv queueport.Server, uc *usecase.AnalyzeImageUseCase) {
	srv.Register(usecase.AnalyzeImageTaskType, func(ctx context.Context, t queueport.Task) error {
		var payload usecase.AnalyzeImagePayload
		if err := json.Unmarshal(t.Payload, &payload); err != nil {
			return fmt.Errorf("task: decode analysis payload: %w", err)
		}
		return uc.Execute(ctx, payload.UserID, payload.ImageURL, payload.Ordinal)
	})
}
