package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
)

// EnqueueMessageUseCase appends an incoming message to the user's queue and
// arms the grace window. Muted users are dropped before any state changes.
type EnqueueMessageUseCase struct {
	states   repository.StateRepository
	schedule *ScheduleProcessingUseCase
	log      *slog.Logger
}

func NewEnqueueMessageUseCase(states repository.StateRepository, schedule *ScheduleProcessingUseCase, log *slog.Logger) *EnqueueMessageUseCase {
	return &EnqueueMessageUseCase{states: states, schedule: schedule, log: log.With(sl.Module("enqueue"))}
}

func (uc *EnqueueMessageUseCase) Execute(ctx context.Context, userID string, m assistant.QueuedMessage) error {
	muted, err := uc.states.IsMuted(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: mute check: %v", ErrPersistence, err)
	}
	if muted {
		uc.log.Debug("dropping message from muted user", sl.User(userID))
		return nil
	}

	if err := uc.states.EnqueueMessage(ctx, userID, m); err != nil {
		return fmt.Errorf("%w: enqueue: %v", ErrPersistence, err)
	}
	return uc.schedule.Execute(ctx, userID)
}
