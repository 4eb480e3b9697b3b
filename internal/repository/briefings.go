package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

// DefaultBriefingTTL is how long persisted briefings stay retrievable.
const DefaultBriefingTTL = 7 * 24 * time.Hour

// BriefingRepository persists briefings under exact keys with a retention window.
type BriefingRepository struct {
	kv  ports.KVStore
	ttl time.Duration
}

// NewBriefingRepository wraps the briefing namespace; ttl <= 0 uses DefaultBriefingTTL.
func NewBriefingRepository(kv ports.KVStore, ttl time.Duration) *BriefingRepository {
	if ttl <= 0 {
		ttl = DefaultBriefingTTL
	}
	return &BriefingRepository{kv: kv, ttl: ttl}
}

// Save stores the briefing under its key derived from user and generation time.
func (r *BriefingRepository) Save(ctx context.Context, briefing domain.Briefing) (string, error) {
	key := domain.BriefingKey(briefing.UserID, briefing.GeneratedAt)
	payload, err := json.Marshal(briefing)
	if err != nil {
		return "", fmt.Errorf("marshal briefing: %w", err)
	}
	if err := r.kv.Put(ctx, key, payload, r.ttl); err != nil {
		return "", fmt.Errorf("store briefing %s: %w", key, err)
	}
	return key, nil
}

// Get loads the briefing stored under key or reports domain.ErrNotFound.
func (r *BriefingRepository) Get(ctx context.Context, key string) (domain.Briefing, error) {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotFound) {
			return domain.Briefing{}, fmt.Errorf("briefing %s: %w", key, domain.ErrNotFound)
		}
		return domain.Briefing{}, fmt.Errorf("load briefing %s: %w", key, err)
	}

	var briefing domain.Briefing
	if err := json.Unmarshal(raw, &briefing); err != nil {
		return domain.Briefing{}, fmt.Errorf("decode briefing %s: %w", key, err)
	}
	return briefing, nil
}
