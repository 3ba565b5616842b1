package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	cacheport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/cache/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
)

// Key layout in the shared store. Keys are per-user except holds, which are
// keyed by slot start time so they are naturally slot-scoped.
func queueKey(userID string) string     { return "message_queue:" + userID }
func scheduledKey(userID string) string { return "scheduled:" + userID }
func lockKey(userID string) string      { return "processing_lock:" + userID }
func pendingKey(userID string) string   { return "images_pending:" + userID }
func analysisKey(userID string) string  { return "image_analysis:" + userID }
func chatKey(userID string) string      { return "chat:" + userID }
func muteKey(userID string) string      { return "mute:" + userID }

// holdKey formats a slot hold key at minute resolution.
func holdKey(start time.Time) string {
	return "hold:" + start.Format("2006-01-02T15:04")
}

// RedisStateRepository implements the StateRepository and slot HoldStore
// contracts over the cache port. TTLs come from configuration; the adapter
// never keeps state in process memory.
type RedisStateRepository struct {
	cache cacheport.Cache
	cfg   *config.Config
	log   *slog.Logger
}

func NewRedisStateRepository(cache cacheport.Cache, cfg *config.Config, log *slog.Logger) *RedisStateRepository {
	return &RedisStateRepository{cache: cache, cfg: cfg, log: log.With(sl.Module("state"))}
}

var _ repository.StateRepository = (*RedisStateRepository)(nil)

// ===================== Message queue =====================

func (r *RedisStateRepository) EnqueueMessage(ctx context.Context, userID string, m assistant.QueuedMessage) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("state: encode queued message: %w", err)
	}
	key := queueKey(userID)
	if err := r.cache.RPush(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("state: queue push: %w", err)
	}
	// Refresh the window on every push so an active burst never expires
	// mid-accumulation.
	if err := r.cache.Expire(ctx, key, r.cfg.Batching.QueueTTL); err != nil {
		return fmt.Errorf("state: queue expire: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) QueuedMessages(ctx context.Context, userID string) ([]assistant.QueuedMessage, error) {
	raws, err := r.cache.LRange(ctx, queueKey(userID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("state: queue read: %w", err)
	}
	msgs := make([]assistant.QueuedMessage, 0, len(raws))
	for _, raw := range raws {
		var m assistant.QueuedMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			r.log.Warn("dropping undecodable queue entry", sl.User(userID), sl.Err(err))
			continue
		}
		msgs = append(msgs, m)
	}
	assistant.SortMessages(msgs)
	return msgs, nil
}

func (r *RedisStateRepository) ClearQueue(ctx context.Context, userID string) error {
	_, err := r.cache.Del(ctx, queueKey(userID))
	return err
}

// ===================== Scheduled flag =====================

func (r *RedisStateRepository) SetScheduled(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	return r.cache.SetNX(ctx, scheduledKey(userID), "1", ttl)
}

func (r *RedisStateRepository) ClearScheduled(ctx context.Context, userID string) error {
	_, err := r.cache.Del(ctx, scheduledKey(userID))
	return err
}

// ===================== Processing lock =====================

func (r *RedisStateRepository) TryLock(ctx context.Context, userID string) (bool, error) {
	// The TTL bounds how long a crashed worker can hold the lock.
	return r.cache.SetNX(ctx, lockKey(userID), "1", r.cfg.Batching.LockTTL)
}

func (r *RedisStateRepository) Unlock(ctx context.Context, userID string) error {
	_, err := r.cache.Del(ctx, lockKey(userID))
	return err
}

// ===================== Mute flag =====================

func (r *RedisStateRepository) Mute(ctx context.Context, userID string, d time.Duration) error {
	return r.cache.Set(ctx, muteKey(userID), "1", d)
}

func (r *RedisStateRepository) IsMuted(ctx context.Context, userID string) (bool, error) {
	return r.cache.Exists(ctx, muteKey(userID))
}

// ===================== Pending images =====================

func (r *RedisStateRepository) AddPendingImages(ctx context.Context, userID string, n int) error {
	if n <= 0 {
		return nil
	}
	key := pendingKey(userID)
	if _, err := r.cache.IncrBy(ctx, key, int64(n)); err != nil {
		return fmt.Errorf("state: pending incr: %w", err)
	}
	return r.cache.Expire(ctx, key, r.cfg.Batching.PendingTTL)
}

func (r *RedisStateRepository) DecrPendingImages(ctx context.Context, userID string) error {
	_, err := r.cache.IncrBy(ctx, pendingKey(userID), -1)
	return err
}

func (r *RedisStateRepository) PendingImages(ctx context.Context, userID string) (int, error) {
	raw, err := r.cache.Get(ctx, pendingKey(userID))
	if errors.Is(err, cacheport.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		// A negative count means the key expired between increments and
		// decrements; treat it as settled.
		return 0, nil
	}
	return n, nil
}

// ===================== Image analyses =====================

func (r *RedisStateRepository) AppendAnalysis(ctx context.Context, userID string, analysis string) error {
	key := analysisKey(userID)
	if err := r.cache.RPush(ctx, key, analysis); err != nil {
		return fmt.Errorf("state: analysis push: %w", err)
	}
	return r.cache.Expire(ctx, key, r.cfg.Batching.AnalysisTTL)
}

func (r *RedisStateRepository) Analyses(ctx context.Context, userID string) ([]string, error) {
	return r.cache.LRange(ctx, analysisKey(userID), 0, -1)
}

func (r *RedisStateRepository) ClearAnalyses(ctx context.Context, userID string) error {
	_, err := r.cache.Del(ctx, analysisKey(userID))
	return err
}

// ===================== Conversation context =====================

func (r *RedisStateRepository) History(ctx context.Context, userID string) ([]assistant.Turn, error) {
	raw, err := r.cache.Get(ctx, chatKey(userID))
	if errors.Is(err, cacheport.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: context read: %w", err)
	}
	var turns []assistant.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("state: decode context: %w", err)
	}
	return turns, nil
}

func (r *RedisStateRepository) AppendTurn(ctx context.Context, userID string, t assistant.Turn) error {
	turns, err := r.History(ctx, userID)
	if err != nil {
		return err
	}
	turns = append(turns, t)
	if max := r.cfg.Conversation.MaxHistory; max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("state: encode context: %w", err)
	}
	return r.cache.Set(ctx, chatKey(userID), string(raw), r.cfg.Conversation.ContextTTL)
}

// ===================== Slot holds =====================

// The hold methods satisfy the calendar package's HoldStore port so the same
// store client arbitrates both batching state and slot claims.

func (r *RedisStateRepository) Hold(ctx context.Context, start time.Time, userID string) error {
	return r.cache.Set(ctx, holdKey(start), userID, r.cfg.Calendar.HoldTTL)
}

func (r *RedisStateRepository) Holder(ctx context.Context, start time.Time) (string, error) {
	v, err := r.cache.Get(ctx, holdKey(start))
	if errors.Is(err, cacheport.ErrMiss) {
		return "", nil
	}
	return v, err
}

func (r *RedisStateRepository) Release(ctx context.Context, start time.Time) error {
	_, err := r.cache.Del(ctx, holdKey(start))
	return err
}
