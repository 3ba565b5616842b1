package task

import (
	"context"
	"encoding/json"
	"fmt"

	queueport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/usecase"
)

// RegisterProcessBatchTask binds the delayed batch task to its use case.
func RegisterProcessBatchTask(srv queueport.Server, uc *usecase.ProcessBatchUseCase) {
	srv.Register(usecase.ProcessBatchTaskType, func(ctx context.Context, t queueport.Task) error {
		var payload usecase.ProcessBatchPayload
		if err := json.Unmarshal(t.Payload, &payload); err != nil {
			return fmt.Errorf("task: decode batch payload: %w", err)
		}
		return uc.Execute(ctx, payload.UserID, payload.Attempt)
	})
}
