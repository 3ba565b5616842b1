package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
)

// MuteUserUseCase silences the assistant for a conversation after a staff
// takeover signal. Any queued, unprocessed messages are discarded.
type MuteUserUseCase struct {
	states repository.StateRepository
	cfg    *config.Config
	log    *slog.Logger
}

func NewMuteUserUseCase(states repository.StateRepository, cfg *config.Config, log *slog.Logger) *MuteUserUseCase {
	return &MuteUserUseCase{states: states, cfg: cfg, log: log.With(sl.Module("mute"))}
}

func (uc *MuteUserUseCase) Execute(ctx context.Context, userID string) error {
	if err := uc.states.Mute(ctx, userID, uc.cfg.Conversation.MuteDuration); err != nil {
		return fmt.Errorf("%w: mute: %v", ErrPersistence, err)
	}
	if err := uc.states.ClearQueue(ctx, userID); err != nil {
		uc.log.Error("could not clear queue on mute", sl.User(userID), sl.Err(err))
	}
	if err := uc.states.ClearScheduled(ctx, userID); err != nil {
		uc.log.Error("could not disarm window on mute", sl.User(userID), sl.Err(err))
	}
	uc.log.Info("conversation muted", sl.User(userID), slog.Duration("for", uc.cfg.Conversation.MuteDuration))
	return nil
}
