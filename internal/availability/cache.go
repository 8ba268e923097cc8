package availability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

func parseUUIDOrNil(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

// PracticeHoursCache is a read-through cache in front of
// GetPracticeHours. It is never a source of truth — a cache miss or a
// Redis outage falls back to the store directly, and InvalidatePractice
// lets staff-side edits evict stale entries immediately rather than
// waiting out the TTL.
type PracticeHoursCache struct {
	store  *Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewPracticeHoursCache wraps store with a Redis read-through cache. A
// nil redis client disables caching entirely (every call falls through
// to store), which keeps this safe to wire unconditionally in cmd/api.
func NewPracticeHoursCache(store *Store, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *PracticeHoursCache {
	return &PracticeHoursCache{store: store, redis: redisClient, ttl: ttl, logger: logger}
}

type cachedPracticeHours struct {
	Weekday        int     `json:"weekday"`
	OpenHour       *int    `json:"open_hour,omitempty"`
	OpenMinute     *int    `json:"open_minute,omitempty"`
	CloseHour      *int    `json:"close_hour,omitempty"`
	CloseMinute    *int    `json:"close_minute,omitempty"`
	EffectiveFrom  time.Time `json:"effective_from"`
	EffectiveUntil time.Time `json:"effective_until"`
	IsActive       bool    `json:"is_active"`
	ID             string  `json:"id"`
	PracticeID     string  `json:"practice_id"`
}

// GetPracticeHours serves from Redis when available, falling back to
// the store on a miss or any cache error. Results (including the "no
// record" outcome) are cached for ttl.
func (c *PracticeHoursCache) GetPracticeHours(ctx context.Context, practiceID string, localDate time.Time) (*PracticeHours, error) {
	if c.redis == nil {
		return c.store.GetPracticeHours(ctx, practiceID, localDate)
	}

	key := cacheKey(practiceID, localDate)
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		if len(raw) == 0 {
			return nil, ErrNoPracticeHours
		}
		var cached cachedPracticeHours
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return fromCached(cached), nil
		}
		c.logger.Warn("practice hours cache: corrupt entry, falling back to store", "practice_id", practiceID)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("practice hours cache: redis get failed, falling back to store", "error", err.Error())
	}

	hours, storeErr := c.store.GetPracticeHours(ctx, practiceID, localDate)
	if storeErr != nil && !errors.Is(storeErr, ErrNoPracticeHours) {
		return nil, storeErr
	}

	if setErr := c.set(ctx, key, hours); setErr != nil {
		c.logger.Warn("practice hours cache: set failed", "error", setErr.Error())
	}
	return hours, storeErr
}

// ListVetAvailability passes straight through to the store. Only the
// practice-hours leg of slotengine.Source is cached (practice hours
// change rarely and are read on every slot query; vet availability and
// appointments are read over a narrower window and change far more
// often, so caching them would trade correctness for little benefit).
func (c *PracticeHoursCache) ListVetAvailability(ctx context.Context, practiceID string, vetID *string, window Window) ([]VetAvailability, error) {
	return c.store.ListVetAvailability(ctx, practiceID, vetID, window)
}

// ListAppointments passes straight through to the store, for the same
// reason as ListVetAvailability.
func (c *PracticeHoursCache) ListAppointments(ctx context.Context, practiceID string, vetID *string, window Window, includeStatuses []AppointmentStatus) ([]Appointment, error) {
	return c.store.ListAppointments(ctx, practiceID, vetID, window, includeStatuses)
}

func (c *PracticeHoursCache) set(ctx context.Context, key string, hours *PracticeHours) error {
	if hours == nil {
		return c.redis.Set(ctx, key, []byte{}, c.ttl).Err()
	}
	payload, err := json.Marshal(toCached(hours))
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, payload, c.ttl).Err()
}

// InvalidatePractice evicts every cached day for a practice. Staff
// edits to practice hours call this so changes take effect immediately
// rather than waiting out the TTL.
func (c *PracticeHoursCache) InvalidatePractice(ctx context.Context, practiceID string) error {
	if c.redis == nil {
		return nil
	}
	pattern := "sbc:practice_hours:" + practiceID + ":*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func cacheKey(practiceID string, localDate time.Time) string {
	return "sbc:practice_hours:" + practiceID + ":" + localDate.Format("2006-01-02")
}

func toCached(h *PracticeHours) cachedPracticeHours {
	c := cachedPracticeHours{
		Weekday:        int(h.Weekday),
		EffectiveFrom:  h.EffectiveFrom,
		EffectiveUntil: h.EffectiveUntil,
		IsActive:       h.IsActive,
		ID:             h.ID.String(),
		PracticeID:     h.PracticeID,
	}
	if h.OpenTimeLocal != nil {
		c.OpenHour = &h.OpenTimeLocal.Hour
		c.OpenMinute = &h.OpenTimeLocal.Minute
	}
	if h.CloseTimeLocal != nil {
		c.CloseHour = &h.CloseTimeLocal.Hour
		c.CloseMinute = &h.CloseTimeLocal.Minute
	}
	return c
}

func fromCached(c cachedPracticeHours) *PracticeHours {
	id, _ := parseUUIDOrNil(c.ID)
	h := &PracticeHours{
		ID:             id,
		PracticeID:     c.PracticeID,
		Weekday:        time.Weekday(c.Weekday),
		EffectiveFrom:  c.EffectiveFrom,
		EffectiveUntil: c.EffectiveUntil,
		IsActive:       c.IsActive,
	}
	if c.OpenHour != nil && c.OpenMinute != nil {
		h.OpenTimeLocal = &WallClock{Hour: *c.OpenHour, Minute: *c.OpenMinute}
	}
	if c.CloseHour != nil && c.CloseMinute != nil {
		h.CloseTimeLocal = &WallClock{Hour: *c.CloseHour, Minute: *c.CloseMinute}
	}
	return h
}
