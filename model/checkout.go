package model

type CheckoutRequest struct {
	// ConfirmPartial acknowledges that closed merchants' lines will be left
	// out of the composed order.
	ConfirmPartial bool `json:"confirm_partial"`
}

type CheckoutResponse struct {
	OrderRef    string   `json:"order_ref"`
	Subtotal    int64    `json:"subtotal"`
	DeliveryFee int64    `json:"delivery_fee"`
	Total       int64    `json:"total"`
	Skipped     []uint64 `json:"skipped,omitempty"`
	Message     string   `json:"message"`
}
