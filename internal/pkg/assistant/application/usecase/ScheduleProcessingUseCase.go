package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	queueport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
)

const assistantQueue = "assistant"

// ScheduleProcessingUseCase arms the per-user grace window. The first
// message of a burst schedules one delayed batch task; messages arriving
// while the window is armed only join the queue.
type ScheduleProcessingUseCase struct {
	states repository.StateRepository
	queue  queueport.Client
	cfg    *config.Config
	log    *slog.Logger
}

func NewScheduleProcessingUseCase(states repository.StateRepository, queue queueport.Client, cfg *config.Config, log *slog.Logger) *ScheduleProcessingUseCase {
	return &ScheduleProcessingUseCase{states: states, queue: queue, cfg: cfg, log: log.With(sl.Module("schedule"))}
}

func (uc *ScheduleProcessingUseCase) Execute(ctx context.Context, userID string) error {
	grace := uc.graceWindow()

	// The flag outlives the grace window by a small buffer so a crashed
	// worker cannot leave a user permanently unscheduled.
	armed, err := uc.states.SetScheduled(ctx, userID, grace+uc.cfg.Batching.FlagBuffer)
	if err != nil {
		return fmt.Errorf("%w: arm window: %v", ErrPersistence, err)
	}
	if !armed {
		return nil
	}

	payload, err := json.Marshal(ProcessBatchPayload{UserID: userID})
	if err != nil {
		return fmt.Errorf("schedule: encode payload: %w", err)
	}
	id, err := uc.queue.Enqueue(ctx, queueport.Task{Type: ProcessBatchTaskType, Payload: payload},
		queueport.EnqueueOption{Queue: assistantQueue, ProcessIn: grace})
	if err != nil {
		// Disarm so the next message can try again instead of waiting
		// out the flag TTL.
		if clearErr := uc.states.ClearScheduled(ctx, userID); clearErr != nil {
			uc.log.Error("could not disarm window", sl.User(userID), sl.Err(clearErr))
		}
		return fmt.Errorf("schedule: enqueue batch: %w", err)
	}

	uc.log.Debug("batch scheduled", sl.User(userID), slog.String("task_id", id), slog.Duration("grace", grace))
	return nil
}

// graceWindow is the base window plus one to ten seconds of jitter.
func (uc *ScheduleProcessingUseCase) graceWindow() time.Duration {
	jitter := time.Duration(rand.IntN(uc.cfg.Batching.GraceJitterMax)+1) * time.Second
	return uc.cfg.Batching.GraceWindow + jitter
}
