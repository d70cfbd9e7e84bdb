package model

// SelectedOptions is the shopper's choice for a single cart line: at most one
// level plus zero or more toppings, each carrying its own extra price.
type SelectedOptions struct {
	Level    *Option  `json:"level,omitempty"`
	Toppings []Option `json:"toppings,omitempty"`
}

// ExtraPrice sums the per-unit surcharge of every selected option.
func (s *SelectedOptions) ExtraPrice() int64 {
	if s == nil {
		return 0
	}
	var total int64
	if s.Level != nil {
		total += s.Level.ExtraPrice
	}
	for _, t := range s.Toppings {
		total += t.ExtraPrice
	}
	return total
}

// CartLineItem is one row of the cart: a copy of the menu item's display
// fields plus quantity, free-text notes and the selected options. Key is the
// stable identity of the line inside the persistent store.
type CartLineItem struct {
	Key        string           `json:"key"`
	MerchantID uint64           `json:"merchant_id"`
	MenuItemID uint64           `json:"menu_item_id"`
	Name       string           `json:"name"`
	Price      int64            `json:"price"`
	Image      string           `json:"image"`
	Category   string           `json:"category"`
	Quantity   int              `json:"quantity"`
	Notes      string           `json:"notes"`
	Selected   *SelectedOptions `json:"selected,omitempty"`
}

// UnitPrice is the base price plus every selected option surcharge.
func (l *CartLineItem) UnitPrice() int64 {
	return l.Price + l.Selected.ExtraPrice()
}

func (l *CartLineItem) LineTotal() int64 {
	return l.UnitPrice() * int64(l.Quantity)
}

type CustomerInfo struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone"`
	Village       string `json:"village" validate:"required"`
	AddressDetail string `json:"address_detail" validate:"required"`
	Notes         string `json:"notes"`
}

type AddItemRequest struct {
	MerchantID uint64           `json:"merchant_id" validate:"required"`
	ItemID     uint64           `json:"item_id" validate:"required"`
	Quantity   int              `json:"quantity"`
	Selected   *SelectedOptions `json:"selected,omitempty"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type SetNotesRequest struct {
	Notes string `json:"notes"`
}

type CartLineResponse struct {
	MerchantID uint64         `json:"merchant_id"`
	Items      []CartLineItem `json:"items"`
	Subtotal   int64          `json:"subtotal"`
}

type CartResponse struct {
	Merchants []CartLineResponse `json:"merchants"`
	ItemCount int                `json:"item_count"`
	Subtotal  int64              `json:"subtotal"`
	Customer  CustomerInfo       `json:"customer"`
}
