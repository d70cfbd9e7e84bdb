package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/model"
	kvrepo "github.com/diorder/diorder/repository/kv"
	"github.com/diorder/diorder/utils/logger"
	"go.uber.org/zap"
)

// Staleness partitions: the global settings record, the aggregate merchant
// list, and one partition per merchant.
const (
	PartitionSettings  = "settings"
	PartitionMerchants = "merchants"
)

func MerchantPartition(id uint64) string {
	return fmt.Sprintf("merchant:%d", id)
}

// Tracker maps a cache partition to the remote timestamp last seen for it and
// the wall-clock time of the last remote check.
type Tracker struct {
	kv       kvrepo.Repository
	debounce time.Duration
	now      func() time.Time
}

func NewTracker(kv kvrepo.Repository, debounce time.Duration) *Tracker {
	return &Tracker{
		kv:       kv,
		debounce: debounce,
		now:      time.Now,
	}
}

// NewTrackerWithClock injects the clock, for tests.
func NewTrackerWithClock(kv kvrepo.Repository, debounce time.Duration, now func() time.Time) *Tracker {
	t := NewTracker(kv, debounce)
	t.now = now
	return t
}

// IsStale compares a freshly fetched remote timestamp with the stored one. A
// missing record or a differing timestamp means the partition must be
// re-fetched in full.
func (t *Tracker) IsStale(ctx context.Context, partition string, remote time.Time) bool {
	rec, ok := t.load(ctx, partition)
	if !ok {
		return true
	}
	return !rec.LastModified.Equal(remote)
}

// ShouldCheck is the debounce gate: even stale partitions are not re-checked
// against the remote more often than the debounce interval, unless the cache
// for that partition is empty.
func (t *Tracker) ShouldCheck(ctx context.Context, partition string, cacheEmpty bool) bool {
	if cacheEmpty {
		return true
	}
	rec, ok := t.load(ctx, partition)
	if !ok {
		return true
	}
	return t.now().Sub(rec.CheckedAt) >= t.debounce
}

// MarkChecked stores the observed remote timestamp and the check time.
func (t *Tracker) MarkChecked(ctx context.Context, partition string, remote time.Time) error {
	rec := model.StalenessRecord{
		LastModified: remote,
		CheckedAt:    t.now(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return t.kv.Set(ctx, constant.StalePrefix+partition, string(raw))
}

// Invalidate forgets a partition so its next check is a full re-fetch.
func (t *Tracker) Invalidate(ctx context.Context, partition string) error {
	return t.kv.Delete(ctx, constant.StalePrefix+partition)
}

// InvalidateMerchantPartitions is the settings-change cascade: a settings
// change may correlate with backend migrations touching merchant and menu
// records, so the merchant list and every per-merchant partition are forced
// to re-fetch.
func (t *Tracker) InvalidateMerchantPartitions(ctx context.Context) error {
	if err := t.kv.Delete(ctx, constant.StalePrefix+PartitionMerchants); err != nil {
		return err
	}
	return t.kv.DeleteByPrefix(ctx, constant.StalePrefix+"merchant:")
}

func (t *Tracker) load(ctx context.Context, partition string) (model.StalenessRecord, bool) {
	var rec model.StalenessRecord

	raw, err := t.kv.Get(ctx, constant.StalePrefix+partition)
	if err != nil {
		if !errors.Is(err, kvrepo.ErrNotFound) {
			logger.Warn("[Tracker] err kv.Get", zap.String("partition", partition), zap.String("error", err.Error()))
		}
		return rec, false
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.Warn("[Tracker] corrupt staleness record", zap.String("partition", partition), zap.String("error", err.Error()))
		return rec, false
	}
	return rec, true
}
