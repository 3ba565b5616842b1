package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	queueport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
)

const fallbackReply = "⚠️ Προέκυψε πρόβλημα. Δοκίμασε ξανά σε λίγο ή στείλε μήνυμα στο studio."

// ReplySender delivers the generated reply to the user.
type ReplySender interface {
	SendLong(ctx context.Context, recipientID, text string) error
}

// ProcessBatchUseCase drains a user's message queue after the grace window
// and answers the whole burst with one reply. Exactly one worker processes a
// user at a time; a second task firing for the same user is a no-op.
type ProcessBatchUseCase struct {
	states   repository.StateRepository
	queue    queueport.Client
	generate *GenerateReplyUseCase
	sender   ReplySender
	cfg      *config.Config
	log      *slog.Logger
}

func NewProcessBatchUseCase(states repository.StateRepository, queue queueport.Client, generate *GenerateReplyUseCase, sender ReplySender, cfg *config.Config, log *slog.Logger) *ProcessBatchUseCase {
	return &ProcessBatchUseCase{states: states, queue: queue, generate: generate, sender: sender, cfg: cfg, log: log.With(sl.Module("batch"))}
}

func (uc *ProcessBatchUseCase) Execute(ctx context.Context, userID string, attempt int) error {
	locked, err := uc.states.TryLock(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: lock: %v", ErrPersistence, err)
	}
	if !locked {
		uc.log.Debug("another worker holds the lock", sl.User(userID))
		return nil
	}
	defer func() {
		if err := uc.states.Unlock(ctx, userID); err != nil {
			uc.log.Error("could not release lock", sl.User(userID), sl.Err(err))
		}
	}()

	muted, err := uc.states.IsMuted(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: mute check: %v", ErrPersistence, err)
	}
	if muted {
		return nil
	}

	if err := uc.states.ClearScheduled(ctx, userID); err != nil {
		uc.log.Error("could not disarm window", sl.User(userID), sl.Err(err))
	}

	pending, err := uc.states.PendingImages(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: pending check: %v", ErrPersistence, err)
	}
	if pending > 0 && attempt < uc.maxPendingAttempts() {
		return uc.retryLater(ctx, userID, attempt+1)
	}
	if pending > 0 {
		uc.log.Warn("proceeding with unanalyzed images", sl.User(userID), slog.Int("pending", pending))
	}

	messages, err := uc.states.QueuedMessages(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: drain queue: %v", ErrPersistence, err)
	}
	if len(messages) == 0 {
		return nil
	}

	analyses, err := uc.states.Analyses(ctx, userID)
	if err != nil {
		uc.log.Error("could not read image analyses", sl.User(userID), sl.Err(err))
		analyses = nil
	}
	combined := combineBatch(messages, analyses)

	if err := uc.states.AppendTurn(ctx, userID, assistant.Turn{Role: assistant.RoleUser, Content: combined}); err != nil {
		uc.log.Error("could not persist user turn", sl.User(userID), sl.Err(err))
	}

	reply, err := uc.generate.Execute(ctx, userID, combined, len(analyses) > 0)
	if err != nil {
		uc.log.Error("reply generation failed", sl.User(userID), sl.Err(err))
		reply = fallbackReply
	}

	if err := uc.sender.SendLong(ctx, userID, reply); err != nil {
		return fmt.Errorf("batch: send reply: %w", err)
	}

	if err := uc.states.AppendTurn(ctx, userID, assistant.Turn{Role: assistant.RoleAssistant, Content: reply}); err != nil {
		uc.log.Error("could not persist assistant turn", sl.User(userID), sl.Err(err))
	}
	if err := uc.states.ClearAnalyses(ctx, userID); err != nil {
		uc.log.Error("could not clear analyses", sl.User(userID), sl.Err(err))
	}
	if err := uc.states.ClearQueue(ctx, userID); err != nil {
		return fmt.Errorf("%w: clear queue: %v", ErrPersistence, err)
	}

	uc.log.Info("batch processed", sl.User(userID), slog.Int("messages", len(messages)))
	return nil
}

// maxPendingAttempts bounds how long a batch waits for image analyses to
// settle before proceeding without them.
func (uc *ProcessBatchUseCase) maxPendingAttempts() int {
	wait := uc.cfg.Batching.PendingPollWait
	if wait <= 0 {
		return 0
	}
	return int(uc.cfg.Batching.PendingTTL / wait)
}

func (uc *ProcessBatchUseCase) retryLater(ctx context.Context, userID string, attempt int) error {
	payload, err := json.Marshal(ProcessBatchPayload{UserID: userID, Attempt: attempt})
	if err != nil {
		return fmt.Errorf("batch: encode retry payload: %w", err)
	}
	if _, err := uc.queue.Enqueue(ctx, queueport.Task{Type: ProcessBatchTaskType, Payload: payload},
		queueport.EnqueueOption{Queue: assistantQueue, ProcessIn: uc.cfg.Batching.PendingPollWait}); err != nil {
		return fmt.Errorf("batch: reschedule for pending images: %w", err)
	}
	uc.log.Debug("waiting for image analyses", sl.User(userID), slog.Int("attempt", attempt))
	return nil
}

// combineBatch flattens a burst into a single user message. Texts keep their
// arrival order; image-bearing messages are marked, and the stored analyses
// follow as a block.
func combineBatch(messages []assistant.QueuedMessage, analyses []string) string {
	var parts []string
	for _, m := range messages {
		text := ""
		if m.Data.Message != nil {
			text = strings.TrimSpace(m.Data.Message.Text)
		}
		switch {
		case text != "" && m.HasImage:
			parts = append(parts, text+"\n[Ο χρήστης έστειλε μια φωτογραφία]")
		case text != "":
			parts = append(parts, text)
		case m.HasImage:
			parts = append(parts, "[Ο χρήστης έστειλε μια φωτογραφία]")
		}
	}
	combined := strings.Join(parts, "\n")
	if len(analyses) > 0 {
		combined += "\n\nΑνάλυση φωτογραφιών:\n" + strings.Join(analyses, "\n")
	}
	return combined
}
