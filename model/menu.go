package model

import "time"

// Option is one selectable sub-option of a menu item. Values starting with
// "level" form the single-choice level group, everything else is a topping.
type Option struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	ExtraPrice int64  `json:"extra_price"`
}

// MenuItem is remote-sourced catalog data, immutable from the cart's
// perspective. Price is in the smallest currency unit (IDR, no decimals).
type MenuItem struct {
	ID           uint64    `json:"id"`
	MerchantID   uint64    `json:"merchant_id"`
	Name         string    `json:"name"`
	Price        int64     `json:"price"`
	Image        string    `json:"image"`
	Category     string    `json:"category"`
	Options      []Option  `json:"options,omitempty"`
	Active       bool      `json:"active"`
	LastModified time.Time `json:"last_modified"`
}
