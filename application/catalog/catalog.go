package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/diorder/diorder/application/availability"
	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/model"
	menurepo "github.com/diorder/diorder/repository/menucache"
	merchantrepo "github.com/diorder/diorder/repository/merchantcache"
	txrepo "github.com/diorder/diorder/repository/tx"
	cerrors "github.com/diorder/diorder/utils/errors"
	"github.com/diorder/diorder/utils/logger"
	"go.uber.org/zap"
)

// Source is the remote catalog contract this app consumes.
type Source interface {
	GetMerchant(ctx context.Context, id uint64) (*model.Merchant, error)
	ListMerchants(ctx context.Context) ([]model.Merchant, error)
	ListMenu(ctx context.Context, merchantID uint64, activeOnly bool) ([]model.MenuItem, error)
	GetSettings(ctx context.Context) (*model.Settings, error)
}

// CatalogApp serves catalog reads from the local cache, refreshing it behind
// the staleness gate. Reads fail open: when the remote is unreachable the
// cached answer is returned with offline=true.
type CatalogApp interface {
	Merchants(ctx context.Context) (merchants []model.Merchant, offline bool, err error)
	Menu(ctx context.Context, merchantID uint64) (items []model.MenuItem, offline bool, err error)
	MenuItem(ctx context.Context, merchantID, itemID uint64) (*model.MenuItem, error)
	Merchant(ctx context.Context, merchantID uint64) (*model.Merchant, error)
	RefreshSettings(ctx context.Context) error
	ApplyChange(ctx context.Context, event model.ChangeEvent)
}

type catalogAppImpl struct {
	source       Source
	tracker      *Tracker
	txRepo       txrepo.TxRepository
	merchantRepo merchantrepo.MerchantCacheRepository
	menuRepo     menurepo.MenuCacheRepository
	evaluator    *availability.Evaluator
}

func NewCatalogApp(source Source, tracker *Tracker, txRepo txrepo.TxRepository, merchantRepo merchantrepo.MerchantCacheRepository, menuRepo menurepo.MenuCacheRepository, evaluator *availability.Evaluator) CatalogApp {
	return &catalogAppImpl{
		source:       source,
		tracker:      tracker,
		txRepo:       txRepo,
		merchantRepo: merchantRepo,
		menuRepo:     menuRepo,
		evaluator:    evaluator,
	}
}

// Merchants returns the merchant list, re-fetching it when the staleness gate
// says so. Remote records always overwrite the cache (last-write-wins).
func (s *catalogAppImpl) Merchants(ctx context.Context) ([]model.Merchant, bool, error) {
	cached, err := s.getCachedMerchants(ctx)
	if err != nil {
		return nil, false, err
	}

	if !s.tracker.ShouldCheck(ctx, PartitionMerchants, len(cached) == 0) {
		return cached, false, nil
	}

	remote, err := s.source.ListMerchants(ctx)
	if err != nil {
		logger.Warn("[Merchants] remote fetch failed, serving cache", zap.String("error", err.Error()))
		return cached, true, nil
	}

	latest := latestMerchantTimestamp(remote)
	if s.merchantRepo != nil && s.tracker.IsStale(ctx, PartitionMerchants, latest) {
		for i := range remote {
			if err := s.merchantRepo.Put(ctx, &remote[i]); err != nil {
				logger.Error("[Merchants] err merchantRepo.Put", zap.Uint64("merchant_id", remote[i].ID), zap.String("error", err.Error()))
			}
		}
	}
	if err := s.tracker.MarkChecked(ctx, PartitionMerchants, latest); err != nil {
		logger.Warn("[Merchants] err tracker.MarkChecked", zap.String("error", err.Error()))
	}

	return remote, false, nil
}

// Menu returns one merchant's menu, staleness-gated on that merchant's
// partition. The merchant record's last-modified timestamp is the freshness
// signal for its menu.
func (s *catalogAppImpl) Menu(ctx context.Context, merchantID uint64) ([]model.MenuItem, bool, error) {
	cached, err := s.getCachedMenu(ctx, merchantID)
	if err != nil {
		return nil, false, err
	}

	partition := MerchantPartition(merchantID)
	if !s.tracker.ShouldCheck(ctx, partition, len(cached) == 0) {
		return cached, false, nil
	}

	merchant, err := s.source.GetMerchant(ctx, merchantID)
	if err != nil {
		logger.Warn("[Menu] remote fetch failed, serving cache", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
		return cached, true, nil
	}

	if !s.tracker.IsStale(ctx, partition, merchant.LastModified) {
		if err := s.tracker.MarkChecked(ctx, partition, merchant.LastModified); err != nil {
			logger.Warn("[Menu] err tracker.MarkChecked", zap.String("error", err.Error()))
		}
		return cached, false, nil
	}

	items, err := s.source.ListMenu(ctx, merchantID, true)
	if err != nil {
		logger.Warn("[Menu] menu fetch failed, serving cache", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
		return cached, true, nil
	}

	if err := s.replaceMenu(ctx, merchantID, items); err != nil {
		logger.Error("[Menu] err replacing cached menu", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
	}
	if s.merchantRepo != nil {
		if err := s.merchantRepo.Put(ctx, merchant); err != nil {
			logger.Error("[Menu] err merchantRepo.Put", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
		}
	}
	if err := s.tracker.MarkChecked(ctx, partition, merchant.LastModified); err != nil {
		logger.Warn("[Menu] err tracker.MarkChecked", zap.String("error", err.Error()))
	}

	return items, false, nil
}

func (s *catalogAppImpl) MenuItem(ctx context.Context, merchantID, itemID uint64) (*model.MenuItem, error) {
	if s.menuRepo == nil {
		return nil, cerrors.SetCustomError(constant.ErrPersistence)
	}
	item, err := s.menuRepo.GetByID(ctx, itemID)
	if err != nil {
		logger.Error("[MenuItem] err menuRepo.GetByID", zap.Uint64("item_id", itemID), zap.String("error", err.Error()))
		return nil, cerrors.SetCustomError(constant.ErrInternal)
	}
	if item == nil || item.MerchantID != merchantID {
		return nil, cerrors.SetCustomError(constant.ErrNotFound)
	}
	return item, nil
}

func (s *catalogAppImpl) Merchant(ctx context.Context, merchantID uint64) (*model.Merchant, error) {
	if s.merchantRepo == nil {
		return nil, cerrors.SetCustomError(constant.ErrPersistence)
	}
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		logger.Error("[Merchant] err merchantRepo.GetByID", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
		return nil, cerrors.SetCustomError(constant.ErrInternal)
	}
	if merchant == nil {
		return nil, cerrors.SetCustomError(constant.ErrNotFound)
	}
	return merchant, nil
}

// RefreshSettings pulls the global settings record and pushes the service
// flag into the evaluator. A changed settings timestamp cascades: the
// merchant-list partition and every per-merchant partition are invalidated.
func (s *catalogAppImpl) RefreshSettings(ctx context.Context) error {
	settings, err := s.source.GetSettings(ctx)
	if err != nil {
		logger.Warn("[RefreshSettings] remote fetch failed, keeping current flag", zap.String("error", err.Error()))
		return cerrors.SetCustomError(constant.ErrRemoteFetch)
	}

	s.applySettings(ctx, settings)
	return nil
}

// ApplyChange handles one push notification carrying the full updated record.
func (s *catalogAppImpl) ApplyChange(ctx context.Context, event model.ChangeEvent) {
	switch event.Table {
	case constant.ChangeTableSettings:
		var settings model.Settings
		if err := json.Unmarshal(event.Record, &settings); err != nil {
			logger.Warn("[ApplyChange] malformed settings record", zap.String("error", err.Error()))
			return
		}
		s.applySettings(ctx, &settings)

	case constant.ChangeTableMerchants:
		var merchant model.Merchant
		if err := json.Unmarshal(event.Record, &merchant); err != nil || merchant.ID == 0 {
			logger.Warn("[ApplyChange] malformed merchant record", zap.Error(err))
			return
		}
		if s.merchantRepo != nil {
			if err := s.merchantRepo.Put(ctx, &merchant); err != nil {
				logger.Error("[ApplyChange] err merchantRepo.Put", zap.Uint64("merchant_id", merchant.ID), zap.String("error", err.Error()))
			}
		}

	case constant.ChangeTableMenu:
		var item model.MenuItem
		if err := json.Unmarshal(event.Record, &item); err != nil || item.ID == 0 {
			logger.Warn("[ApplyChange] malformed menu record", zap.Error(err))
			return
		}
		if s.menuRepo != nil {
			if err := s.menuRepo.Put(ctx, &item); err != nil {
				logger.Error("[ApplyChange] err menuRepo.Put", zap.Uint64("item_id", item.ID), zap.String("error", err.Error()))
			}
		}

	default:
		logger.Debug("[ApplyChange] ignoring unknown table", zap.String("table", event.Table))
	}
}

func (s *catalogAppImpl) applySettings(ctx context.Context, settings *model.Settings) {
	s.evaluator.SetServiceOpen(settings.IsOpen)

	if s.tracker.IsStale(ctx, PartitionSettings, settings.LastModified) {
		if err := s.tracker.InvalidateMerchantPartitions(ctx); err != nil {
			logger.Warn("[applySettings] err cascade invalidation", zap.String("error", err.Error()))
		}
	}
	if err := s.tracker.MarkChecked(ctx, PartitionSettings, settings.LastModified); err != nil {
		logger.Warn("[applySettings] err tracker.MarkChecked", zap.String("error", err.Error()))
	}
}

// replaceMenu swaps the merchant's cached menu inside a short-lived
// transaction.
func (s *catalogAppImpl) replaceMenu(ctx context.Context, merchantID uint64, items []model.MenuItem) error {
	if s.txRepo == nil || s.menuRepo == nil {
		return nil
	}

	tx, err := s.txRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = s.txRepo.RollbackTx(tx)
		}
	}()

	if err := s.menuRepo.ReplaceMerchantMenuTx(ctx, tx, merchantID, items); err != nil {
		return err
	}

	if err := s.txRepo.CommitTx(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *catalogAppImpl) getCachedMerchants(ctx context.Context) ([]model.Merchant, error) {
	if s.merchantRepo == nil {
		return nil, nil
	}
	cached, err := s.merchantRepo.GetAll(ctx)
	if err != nil {
		logger.Error("[getCachedMerchants] err merchantRepo.GetAll", zap.String("error", err.Error()))
		return nil, cerrors.SetCustomError(constant.ErrInternal)
	}
	return cached, nil
}

func (s *catalogAppImpl) getCachedMenu(ctx context.Context, merchantID uint64) ([]model.MenuItem, error) {
	if s.menuRepo == nil {
		return nil, nil
	}
	cached, err := s.menuRepo.ListByMerchant(ctx, merchantID)
	if err != nil {
		logger.Error("[getCachedMenu] err menuRepo.ListByMerchant", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
		return nil, cerrors.SetCustomError(constant.ErrInternal)
	}
	return cached, nil
}

func latestMerchantTimestamp(merchants []model.Merchant) time.Time {
	var latest time.Time
	for _, m := range merchants {
		if m.LastModified.After(latest) {
			latest = m.LastModified
		}
	}
	return latest
}
