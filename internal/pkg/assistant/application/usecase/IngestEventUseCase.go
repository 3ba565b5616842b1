package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	queueport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
)

// IngestEventUseCase routes a webhook messaging event: staff reactions mute
// the conversation, image attachments fan out to analysis tasks, and the
// message itself joins the user's batch queue.
type IngestEventUseCase struct {
	enqueue *EnqueueMessageUseCase
	mute    *MuteUserUseCase
	queue   queueport.Client
	states  pendingImageStore
	cfg     *config.Config
	log     *slog.Logger
}

type pendingImageStore interface {
	AddPendingImages(ctx context.Context, userID string, n int) error
}

func NewIngestEventUseCase(enqueue *EnqueueMessageUseCase, mute *MuteUserUseCase, queue queueport.Client, states pendingImageStore, cfg *config.Config, log *slog.Logger) *IngestEventUseCase {
	return &IngestEventUseCase{enqueue: enqueue, mute: mute, queue: queue, states: states, cfg: cfg, log: log.With(sl.Module("ingest"))}
}

func (uc *IngestEventUseCase) Execute(ctx context.Context, event assistant.Messaging) error {
	senderID := event.Sender.ID

	if event.Reaction != nil {
		if uc.isMuteTrigger(senderID, event.Reaction) {
			return uc.mute.Execute(ctx, event.Recipient.ID)
		}
		return nil
	}
	if event.Message == nil {
		return nil
	}

	imageURLs := uc.imageURLs(event)
	if event.Message.Text == "" && len(imageURLs) == 0 {
		return nil
	}

	if len(imageURLs) > 0 {
		if err := uc.states.AddPendingImages(ctx, senderID, len(imageURLs)); err != nil {
			return fmt.Errorf("%w: pending counter: %v", ErrPersistence, err)
		}
		for i, url := range imageURLs {
			payload, err := json.Marshal(AnalyzeImagePayload{UserID: senderID, ImageURL: url, Ordinal: i + 1})
			if err != nil {
				return fmt.Errorf("ingest: encode analysis payload: %w", err)
			}
			if _, err := uc.queue.Enqueue(ctx, queueport.Task{Type: AnalyzeImageTaskType, Payload: payload},
				queueport.EnqueueOption{Queue: assistantQueue}); err != nil {
				return fmt.Errorf("ingest: enqueue analysis: %w", err)
			}
		}
		uc.log.Debug("image analyses queued", sl.User(senderID), slog.Int("count", len(imageURLs)))
	}

	return uc.enqueue.Execute(ctx, senderID, assistant.QueuedMessage{
		Timestamp: event.Timestamp,
		Data:      event,
		HasImage:  len(imageURLs) > 0,
	})
}

// isMuteTrigger reports whether a reaction is the staff takeover signal: the
// mute emoji, reacted by an admin account or the studio's reaction bot.
func (uc *IngestEventUseCase) isMuteTrigger(senderID string, r *assistant.Reaction) bool {
	if r.Action != "react" || r.Emoji != uc.cfg.Instagram.MuteEmoji {
		return false
	}
	return senderID == uc.cfg.Instagram.ReactionBotSenderID ||
		slices.Contains(uc.cfg.Instagram.AdminSenderIDs, senderID)
}

func (uc *IngestEventUseCase) imageURLs(event assistant.Messaging) []string {
	var urls []string
	for _, a := range event.Message.Attachments {
		if a.Type == assistant.AttachmentTypeImage && a.Payload.URL != "" {
			urls = append(urls, a.Payload.URL)
		}
	}
	return urls
}
