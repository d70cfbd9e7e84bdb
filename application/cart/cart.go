package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/model"
	cartlinerepo "github.com/diorder/diorder/repository/cartline"
	kvrepo "github.com/diorder/diorder/repository/kv"
	cerrors "github.com/diorder/diorder/utils/errors"
	"github.com/diorder/diorder/utils/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartApp owns the authoritative in-memory cart: per-merchant buckets of
// ordered line items plus the customer record. Every mutation is applied to
// memory first and then written through to the local store; a failed write
// costs cross-session durability only, never in-memory consistency.
type CartApp interface {
	Hydrate(ctx context.Context) error
	AddItem(ctx context.Context, item *model.MenuItem, merchantID uint64, selected *model.SelectedOptions, quantity int) error
	RemoveItem(ctx context.Context, itemID, merchantID uint64) error
	SetQuantity(ctx context.Context, itemID, merchantID uint64, quantity int) error
	SetNotes(ctx context.Context, itemID, merchantID uint64, notes string) error
	ClearMerchant(ctx context.Context, merchantID uint64) error
	ClearAll(ctx context.Context) error
	UpdateCustomerInfo(ctx context.Context, info *model.CustomerInfo) error

	CustomerInfo() model.CustomerInfo
	ItemsFor(merchantID uint64) []model.CartLineItem
	Snapshot() map[uint64][]model.CartLineItem
	MerchantIDs() []uint64
	SubtotalFor(merchantID uint64) int64
	QuantityOf(itemID uint64) int
	TotalItemCount() int
	OrderableSubtotal(orderable func(merchantID uint64) bool) int64
}

type cartAppImpl struct {
	mu       sync.RWMutex
	buckets  map[uint64][]*model.CartLineItem
	customer model.CustomerInfo

	// lineRepo may be nil: memory-only degradation when the local store
	// could not be opened.
	lineRepo cartlinerepo.CartLineRepository
	kvRepo   kvrepo.Repository
}

func NewCartApp(lineRepo cartlinerepo.CartLineRepository, kvRepo kvrepo.Repository) CartApp {
	return &cartAppImpl{
		buckets:  make(map[uint64][]*model.CartLineItem),
		lineRepo: lineRepo,
		kvRepo:   kvRepo,
	}
}

// Hydrate restores the last persisted cart state at cold start. Nothing is
// merged from the network; the store is the only source here.
func (s *cartAppImpl) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[uint64][]*model.CartLineItem)

	if s.lineRepo != nil {
		lines, err := s.lineRepo.GetAll(ctx)
		if err != nil {
			logger.Error("[Hydrate] err lineRepo.GetAll", zap.String("error", err.Error()))
			return cerrors.SetCustomError(constant.ErrPersistence)
		}
		for i := range lines {
			line := lines[i]
			s.buckets[line.MerchantID] = append(s.buckets[line.MerchantID], &line)
		}
	}

	if s.kvRepo != nil {
		raw, err := s.kvRepo.Get(ctx, constant.KeyCustomerInfo)
		if err != nil && !errors.Is(err, kvrepo.ErrNotFound) {
			logger.Warn("[Hydrate] err kvRepo.Get customer info", zap.String("error", err.Error()))
		}
		if err == nil && raw != "" {
			var info model.CustomerInfo
			if err := json.Unmarshal([]byte(raw), &info); err != nil {
				logger.Warn("[Hydrate] corrupt customer info, ignoring", zap.String("error", err.Error()))
			} else {
				s.customer = info
			}
		}
	}

	return nil
}

// AddItem appends or increments. Re-adding the same item without options
// increments the existing line; any selected options always open a new line,
// since distinct selections must not collapse into one price.
func (s *cartAppImpl) AddItem(ctx context.Context, item *model.MenuItem, merchantID uint64, selected *model.SelectedOptions, quantity int) error {
	if item == nil {
		return cerrors.SetCustomError(constant.ErrInvalidRequest)
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[merchantID]

	if selected == nil {
		for _, line := range bucket {
			if line.MenuItemID == item.ID && line.Selected == nil {
				line.Quantity += quantity
				s.persistLine(ctx, line)
				return nil
			}
		}
	}

	line := &model.CartLineItem{
		Key:        newLineKey(merchantID, item.ID, selected),
		MerchantID: merchantID,
		MenuItemID: item.ID,
		Name:       item.Name,
		Price:      item.Price,
		Image:      item.Image,
		Category:   item.Category,
		Quantity:   quantity,
		Notes:      "",
		Selected:   selected,
	}
	s.buckets[merchantID] = append(bucket, line)
	s.persistLine(ctx, line)
	return nil
}

// RemoveItem decrements the first matching line by one, deleting it at the
// quantity floor. A miss is a no-op.
func (s *cartAppImpl) RemoveItem(ctx context.Context, itemID, merchantID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[merchantID]
	for i, line := range bucket {
		if line.MenuItemID != itemID {
			continue
		}
		if line.Quantity > 1 {
			line.Quantity--
			s.persistLine(ctx, line)
		} else {
			s.dropLine(ctx, merchantID, i, line)
		}
		return nil
	}
	return nil
}

// SetQuantity overwrites the quantity directly; anything at or below zero
// removes the line entirely.
func (s *cartAppImpl) SetQuantity(ctx context.Context, itemID, merchantID uint64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[merchantID]
	for i, line := range bucket {
		if line.MenuItemID != itemID {
			continue
		}
		if quantity <= 0 {
			s.dropLine(ctx, merchantID, i, line)
		} else {
			line.Quantity = quantity
			s.persistLine(ctx, line)
		}
		return nil
	}
	return nil
}

func (s *cartAppImpl) SetNotes(ctx context.Context, itemID, merchantID uint64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range s.buckets[merchantID] {
		if line.MenuItemID != itemID {
			continue
		}
		line.Notes = notes
		s.persistLine(ctx, line)
		return nil
	}
	return nil
}

func (s *cartAppImpl) ClearMerchant(ctx context.Context, merchantID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, merchantID)

	if s.lineRepo != nil {
		if err := s.lineRepo.DeleteByMerchant(ctx, merchantID); err != nil {
			logger.Error("[ClearMerchant] err lineRepo.DeleteByMerchant", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
		}
	}
	return nil
}

// ClearAll empties every bucket and deletes every persisted line, so nothing
// resurrects on the next hydration.
func (s *cartAppImpl) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[uint64][]*model.CartLineItem)

	if s.lineRepo != nil {
		if err := s.lineRepo.DeleteAll(ctx); err != nil {
			logger.Error("[ClearAll] err lineRepo.DeleteAll", zap.String("error", err.Error()))
		}
	}
	return nil
}

func (s *cartAppImpl) UpdateCustomerInfo(ctx context.Context, info *model.CustomerInfo) error {
	if info == nil {
		return cerrors.SetCustomError(constant.ErrInvalidRequest)
	}

	s.mu.Lock()
	s.customer = *info
	s.mu.Unlock()

	if s.kvRepo != nil {
		raw, err := json.Marshal(info)
		if err != nil {
			return cerrors.SetCustomError(constant.ErrInternal)
		}
		if err := s.kvRepo.Set(ctx, constant.KeyCustomerInfo, string(raw)); err != nil {
			logger.Error("[UpdateCustomerInfo] err kvRepo.Set", zap.String("error", err.Error()))
		}
	}
	return nil
}

func (s *cartAppImpl) CustomerInfo() model.CustomerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customer
}

func (s *cartAppImpl) ItemsFor(merchantID uint64) []model.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBucket(s.buckets[merchantID])
}

// Snapshot returns a deep copy of every bucket, safe to read while mutations
// continue.
func (s *cartAppImpl) Snapshot() map[uint64][]model.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[uint64][]model.CartLineItem, len(s.buckets))
	for merchantID, bucket := range s.buckets {
		if len(bucket) == 0 {
			continue
		}
		snapshot[merchantID] = copyBucket(bucket)
	}
	return snapshot
}

func (s *cartAppImpl) MerchantIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.buckets))
	for merchantID, bucket := range s.buckets {
		if len(bucket) > 0 {
			ids = append(ids, merchantID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *cartAppImpl) SubtotalFor(merchantID uint64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return subtotal(s.buckets[merchantID])
}

// QuantityOf scans every bucket and returns the first match; item ids are
// globally unique across merchants.
func (s *cartAppImpl) QuantityOf(itemID uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, bucket := range s.buckets {
		for _, line := range bucket {
			if line.MenuItemID == itemID {
				return line.Quantity
			}
		}
	}
	return 0
}

func (s *cartAppImpl) TotalItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, bucket := range s.buckets {
		for _, line := range bucket {
			count += line.Quantity
		}
	}
	return count
}

// OrderableSubtotal sums per-merchant subtotals restricted to merchants the
// predicate reports as orderable.
func (s *cartAppImpl) OrderableSubtotal(orderable func(merchantID uint64) bool) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for merchantID, bucket := range s.buckets {
		if orderable != nil && !orderable(merchantID) {
			continue
		}
		total += subtotal(bucket)
	}
	return total
}

// persistLine writes one changed line through to the store. Failures are
// logged and swallowed: durability degrades, memory state does not.
func (s *cartAppImpl) persistLine(ctx context.Context, line *model.CartLineItem) {
	if s.lineRepo == nil {
		return
	}
	if err := s.lineRepo.Put(ctx, line); err != nil {
		logger.Error("[persistLine] err lineRepo.Put", zap.String("line_key", line.Key), zap.String("error", err.Error()))
	}
}

func (s *cartAppImpl) dropLine(ctx context.Context, merchantID uint64, index int, line *model.CartLineItem) {
	bucket := s.buckets[merchantID]
	s.buckets[merchantID] = append(bucket[:index], bucket[index+1:]...)
	if len(s.buckets[merchantID]) == 0 {
		delete(s.buckets, merchantID)
	}

	if s.lineRepo != nil {
		if err := s.lineRepo.Delete(ctx, line.Key); err != nil {
			logger.Error("[dropLine] err lineRepo.Delete", zap.String("line_key", line.Key), zap.String("error", err.Error()))
		}
	}
}

func subtotal(bucket []*model.CartLineItem) int64 {
	var total int64
	for _, line := range bucket {
		total += line.LineTotal()
	}
	return total
}

func copyBucket(bucket []*model.CartLineItem) []model.CartLineItem {
	out := make([]model.CartLineItem, 0, len(bucket))
	for _, line := range bucket {
		out = append(out, *line)
	}
	return out
}

// newLineKey builds the stable store identity of a line. Option lines get a
// random suffix so distinct selections of the same item stay separate rows.
func newLineKey(merchantID, itemID uint64, selected *model.SelectedOptions) string {
	if selected == nil {
		return fmt.Sprintf("%d:%d", merchantID, itemID)
	}
	return fmt.Sprintf("%d:%d:%s", merchantID, itemID, uuid.NewString()[:8])
}
