package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/diorder/diorder/application/availability"
	"github.com/diorder/diorder/application/cart"
	"github.com/diorder/diorder/cmd/config"
	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/model"
	merchantrepo "github.com/diorder/diorder/repository/merchantcache"
	"github.com/diorder/diorder/thirdparty/whatsapp"
	utilsContext "github.com/diorder/diorder/utils/context"
	cerrors "github.com/diorder/diorder/utils/errors"
	"github.com/diorder/diorder/utils/logger"
	validatorx "github.com/diorder/diorder/utils/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutApp reads a consistent snapshot of the cart, validates the customer
// record, filters out merchants that are not currently orderable, formats the
// order message and hands it off to the external channel. A successful
// hand-off clears the entire cart.
type CheckoutApp interface {
	Validate(info *model.CustomerInfo) error
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
}

type checkoutAppImpl struct {
	config       *config.Config
	cartApp      cart.CartApp
	merchantRepo merchantrepo.MerchantCacheRepository
	evaluator    *availability.Evaluator
	channel      whatsapp.Channel
	newOrderRef  func() string
}

func NewCheckoutApp(config *config.Config, cartApp cart.CartApp, merchantRepo merchantrepo.MerchantCacheRepository, evaluator *availability.Evaluator, channel whatsapp.Channel) CheckoutApp {
	return &checkoutAppImpl{
		config:       config,
		cartApp:      cartApp,
		merchantRepo: merchantRepo,
		evaluator:    evaluator,
		channel:      channel,
		newOrderRef:  uuid.NewString,
	}
}

// Validate reports every invalid delivery field at once, so the UI can
// highlight all of them rather than just the first. The village must be one
// of the configured delivery-area villages.
func (s *checkoutAppImpl) Validate(info *model.CustomerInfo) error {
	if info == nil {
		return cerrors.SetCustomError(constant.ErrInvalidRequest)
	}
	fields := validatorx.InvalidFields(info)
	if info.Village != "" && !s.knownVillage(info.Village) {
		fields = append(fields, "village")
	}
	if len(fields) > 0 {
		return cerrors.SetFieldError(constant.ErrValidation, fields...)
	}
	return nil
}

func (s *checkoutAppImpl) knownVillage(village string) bool {
	for _, v := range s.config.Order.Villages {
		if v == village {
			return true
		}
	}
	return false
}

func (s *checkoutAppImpl) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if req == nil {
		req = &model.CheckoutRequest{}
	}

	info := s.cartApp.CustomerInfo()
	if err := s.Validate(&info); err != nil {
		return nil, err
	}

	snapshot := s.cartApp.Snapshot()
	if len(snapshot) == 0 {
		return nil, cerrors.SetCustomError(constant.ErrInvalidRequest)
	}

	orderable, skipped := s.partition(ctx, snapshot)
	if len(orderable) == 0 {
		return nil, cerrors.SetCustomError(constant.ErrNoOrderableMerchant)
	}
	if len(skipped) > 0 && !req.ConfirmPartial {
		// confirmable, not fatal: the shopper must acknowledge that these
		// merchants' lines stay behind
		return nil, cerrors.SetCustomError(constant.ErrPartialFulfillment)
	}

	var subtotal int64
	for _, section := range orderable {
		subtotal += section.subtotal
	}
	total := subtotal + s.config.Order.DeliveryFee

	message := s.composeMessage(orderable, &info, subtotal, total)

	if err := s.channel.Send(s.config.Order.WhatsAppNumber, message); err != nil {
		logger.Error("[Checkout] err channel.Send", zap.String("error", err.Error()))
		return nil, cerrors.SetCustomError(constant.ErrHandOffFailed)
	}

	// hand-off initiated; the whole cart is cleared, including lines of
	// merchants that were skipped
	if err := s.cartApp.ClearAll(ctx); err != nil {
		logger.Error("[Checkout] err cartApp.ClearAll", zap.String("error", err.Error()))
	}

	orderRef := s.newOrderRef()
	fields := []zap.Field{
		zap.String("order_ref", orderRef),
		zap.Int64("total", total),
		zap.Int("merchants", len(orderable)),
		zap.Int("skipped", len(skipped)),
	}
	if requestID, ok := utilsContext.GetRequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", requestID))
	}
	logger.Info("[Checkout] order handed off", fields...)

	return &model.CheckoutResponse{
		OrderRef:    orderRef,
		Subtotal:    subtotal,
		DeliveryFee: s.config.Order.DeliveryFee,
		Total:       total,
		Skipped:     skipped,
		Message:     message,
	}, nil
}

type merchantSection struct {
	merchantID uint64
	name       string
	lines      []model.CartLineItem
	subtotal   int64
}

// partition splits the cart's merchant buckets into orderable sections
// (sorted by merchant id for a deterministic message) and skipped ids.
func (s *checkoutAppImpl) partition(ctx context.Context, snapshot map[uint64][]model.CartLineItem) ([]merchantSection, []uint64) {
	sections := make([]merchantSection, 0, len(snapshot))
	skipped := make([]uint64, 0)

	for _, merchantID := range sortedKeys(snapshot) {
		lines := snapshot[merchantID]

		var merchant *model.Merchant
		if s.merchantRepo != nil {
			var err error
			merchant, err = s.merchantRepo.GetByID(ctx, merchantID)
			if err != nil {
				logger.Error("[partition] err merchantRepo.GetByID", zap.Uint64("merchant_id", merchantID), zap.String("error", err.Error()))
			}
		}
		if merchant == nil || !s.evaluator.Orderable(merchant) {
			skipped = append(skipped, merchantID)
			continue
		}

		var subtotal int64
		for i := range lines {
			subtotal += lines[i].LineTotal()
		}
		sections = append(sections, merchantSection{
			merchantID: merchantID,
			name:       merchant.Name,
			lines:      lines,
			subtotal:   subtotal,
		})
	}

	return sections, skipped
}

// composeMessage renders the deterministic, human-readable order summary that
// is handed to the messaging channel.
func (s *checkoutAppImpl) composeMessage(sections []merchantSection, info *model.CustomerInfo, subtotal, total int64) string {
	var b strings.Builder

	b.WriteString("*Pesanan Baru dari DiOrder*\n\n")
	b.WriteString(fmt.Sprintf("*Nama*: %s\n", info.Name))
	b.WriteString("*Alamat*:\n")
	b.WriteString(fmt.Sprintf("Kecamatan: %s\n", s.config.Order.District))
	b.WriteString(fmt.Sprintf("Desa: %s\n", info.Village))
	b.WriteString(fmt.Sprintf("Detail Alamat: %s\n\n", info.AddressDetail))

	for _, section := range sections {
		b.WriteString(fmt.Sprintf("*Detail Pesanan dari %s*:\n", section.name))
		for i := range section.lines {
			line := &section.lines[i]
			b.WriteString(fmt.Sprintf("- %s (%dx) = %s\n", lineLabel(line), line.Quantity, FormatIDR(line.LineTotal())))
			if line.Notes != "" {
				b.WriteString(fmt.Sprintf("  Catatan: %s\n", line.Notes))
			}
		}
		b.WriteString(fmt.Sprintf("Subtotal: %s\n\n", FormatIDR(section.subtotal)))
	}

	b.WriteString(fmt.Sprintf("Subtotal Pesanan: %s\n", FormatIDR(subtotal)))
	b.WriteString(fmt.Sprintf("Ongkir: %s\n", FormatIDR(s.config.Order.DeliveryFee)))
	b.WriteString(fmt.Sprintf("*Total Keseluruhan*: %s\n\n", FormatIDR(total)))

	if info.Notes != "" {
		b.WriteString(fmt.Sprintf("*Catatan*: %s\n\n", info.Notes))
	}

	b.WriteString("Terima kasih telah memesan!")
	return b.String()
}

// lineLabel appends selected-option labels to the item name.
func lineLabel(line *model.CartLineItem) string {
	if line.Selected == nil {
		return line.Name
	}

	labels := make([]string, 0, 1+len(line.Selected.Toppings))
	if line.Selected.Level != nil {
		labels = append(labels, line.Selected.Level.Label)
	}
	for _, t := range line.Selected.Toppings {
		labels = append(labels, t.Label)
	}
	if len(labels) == 0 {
		return line.Name
	}
	return fmt.Sprintf("%s (%s)", line.Name, strings.Join(labels, ", "))
}

// FormatIDR renders an amount in the smallest currency unit as rupiah with
// dot thousand separators, e.g. 10000 -> "Rp10.000".
func FormatIDR(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	if negative {
		return "-Rp" + b.String()
	}
	return "Rp" + b.String()
}

func sortedKeys(snapshot map[uint64][]model.CartLineItem) []uint64 {
	keys := make([]uint64, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
