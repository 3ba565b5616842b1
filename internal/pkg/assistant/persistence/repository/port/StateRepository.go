package repository

import (
	"context"
	"time"

	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
)

// StateRepository defines the per-user coordination state operations backing
// the batching pipeline. Everything lives in the shared store with explicit
// expiry so the design tolerates multiple worker processes; there is no
// separate persistence layer.
type StateRepository interface {
	// Message queue: ordered buffer of raw inbound events awaiting a batch run.
	EnqueueMessage(ctx context.Context, userID string, m assistant.QueuedMessage) error
	QueuedMessages(ctx context.Context, userID string) ([]assistant.QueuedMessage, error)
	ClearQueue(ctx context.Context, userID string) error

	// Scheduled flag: best-effort dedup marker that a debounce timer is armed.
	// SetScheduled reports whether the flag was newly set; false means a timer
	// is already pending and the caller must not arm another.
	SetScheduled(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	ClearScheduled(ctx context.Context, userID string) error

	// Processing lock: at most one batch run per user system-wide.
	TryLock(ctx context.Context, userID string) (bool, error)
	Unlock(ctx context.Context, userID string) error

	// Mute flag: human-override suppression of all automated processing.
	Mute(ctx context.Context, userID string, d time.Duration) error
	IsMuted(ctx context.Context, userID string) (bool, error)

	// Pending-image counter: gates batch processing until analysis completes.
	AddPendingImages(ctx context.Context, userID string, n int) error
	DecrPendingImages(ctx context.Context, userID string) error
	PendingImages(ctx context.Context, userID string) (int, error)

	// Image analysis results, in attachment order.
	AppendAnalysis(ctx context.Context, userID string, analysis string) error
	Analyses(ctx context.Context, userID string) ([]string, error)
	ClearAnalyses(ctx context.Context, userID string) error

	// Conversation context: rolling window of prior turns.
	History(ctx context.Context, userID string) ([]assistant.Turn, error)
	AppendTurn(ctx context.Context, userID string, t assistant.Turn) error
}
