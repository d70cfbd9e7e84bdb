package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	cartapp "github.com/diorder/diorder/application/cart"
	catalogapp "github.com/diorder/diorder/application/catalog"
	checkoutapp "github.com/diorder/diorder/application/checkout"
	"github.com/diorder/diorder/constant"
	"github.com/diorder/diorder/model"
	"github.com/diorder/diorder/utils/errors"
	validatorx "github.com/diorder/diorder/utils/validator"
	"github.com/gorilla/mux"
)

type RestHandler struct {
	CartApp     cartapp.CartApp
	CatalogApp  catalogapp.CatalogApp
	CheckoutApp checkoutapp.CheckoutApp
	// Orderable answers whether a merchant can take orders right now; the
	// cart subtotal shown to the shopper excludes merchants that cannot.
	Orderable func(merchantID uint64) bool
}

func NewTransport(CartApp cartapp.CartApp, CatalogApp catalogapp.CatalogApp, CheckoutApp checkoutapp.CheckoutApp, Orderable func(merchantID uint64) bool) http.Handler {
	mux := mux.NewRouter()

	rh := &RestHandler{
		CartApp:     CartApp,
		CatalogApp:  CatalogApp,
		CheckoutApp: CheckoutApp,
		Orderable:   Orderable,
	}

	// catalog reads
	mux.HandleFunc("/merchants", rh.ListMerchants).Methods(http.MethodGet)
	mux.HandleFunc("/merchants/{merchantId}/menu", rh.ListMenu).Methods(http.MethodGet)

	// cart mutations and reads
	mux.HandleFunc("/cart", rh.GetCart).Methods(http.MethodGet)
	mux.HandleFunc("/cart", rh.ClearCart).Methods(http.MethodDelete)
	mux.HandleFunc("/cart/items", rh.AddItem).Methods(http.MethodPost)
	mux.HandleFunc("/cart/merchants/{merchantId}", rh.ClearMerchant).Methods(http.MethodDelete)
	mux.HandleFunc("/cart/merchants/{merchantId}/items/{itemId}", rh.RemoveItem).Methods(http.MethodDelete)
	mux.HandleFunc("/cart/merchants/{merchantId}/items/{itemId}/quantity", rh.SetQuantity).Methods(http.MethodPut)
	mux.HandleFunc("/cart/merchants/{merchantId}/items/{itemId}/notes", rh.SetNotes).Methods(http.MethodPut)

	// customer info and checkout
	mux.HandleFunc("/customer-info", rh.UpdateCustomerInfo).Methods(http.MethodPut)
	mux.HandleFunc("/checkout", rh.Checkout).Methods(http.MethodPost)

	mux.Use(LoggingMiddleware())

	return mux
}

func (s *RestHandler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchants, offline, err := s.CatalogApp.Merchants(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccessOffline(w, merchants, offline)
}

func (s *RestHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantID, err := pathID(r, "merchantId")
	if err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	items, offline, err := s.CatalogApp.Menu(ctx, merchantID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccessOffline(w, items, offline)
}

func (s *RestHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	snapshot := s.CartApp.Snapshot()

	merchants := make([]model.CartLineResponse, 0, len(snapshot))
	for _, merchantID := range s.CartApp.MerchantIDs() {
		merchants = append(merchants, model.CartLineResponse{
			MerchantID: merchantID,
			Items:      snapshot[merchantID],
			Subtotal:   s.CartApp.SubtotalFor(merchantID),
		})
	}

	res := model.CartResponse{
		Merchants: merchants,
		ItemCount: s.CartApp.TotalItemCount(),
		Subtotal:  s.CartApp.OrderableSubtotal(s.Orderable),
		Customer:  s.CartApp.CustomerInfo(),
	}

	writeSuccess(w, res)
}

func (s *RestHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := validatorx.ValidateStruct(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	item, err := s.CatalogApp.MenuItem(ctx, req.MerchantID, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.CartApp.AddItem(ctx, item, req.MerchantID, req.Selected, req.Quantity); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantID, itemID, err := pathMerchantItem(r)
	if err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := s.CartApp.RemoveItem(ctx, itemID, merchantID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantID, itemID, err := pathMerchantItem(r)
	if err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	var req model.SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := s.CartApp.SetQuantity(ctx, itemID, merchantID, req.Quantity); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantID, itemID, err := pathMerchantItem(r)
	if err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	var req model.SetNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := s.CartApp.SetNotes(ctx, itemID, merchantID, req.Notes); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) ClearMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantID, err := pathID(r, "merchantId")
	if err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := s.CartApp.ClearMerchant(ctx, merchantID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.CartApp.ClearAll(ctx); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) UpdateCustomerInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CustomerInfo
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	if err := s.CartApp.UpdateCustomerInfo(ctx, &req); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

func (s *RestHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.SetCustomError(constant.ErrInvalidRequest))
		return
	}

	res, err := s.CheckoutApp.Checkout(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

func pathID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)[name], 10, 64)
}

func pathMerchantItem(r *http.Request) (uint64, uint64, error) {
	merchantID, err := pathID(r, "merchantId")
	if err != nil {
		return 0, 0, err
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		return 0, 0, err
	}
	return merchantID, itemID, nil
}
