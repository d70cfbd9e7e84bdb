package constant

type ctxKey int

const (
	RequestIDKey ctxKey = iota
)

// Schema version of the local store. Bumping it drops and recreates every
// collection on next start.
const SchemaVersion = 3

const (
	TableCartLines     = "cart_line"
	TableMenuCache     = "menu_cache"
	TableMerchantCache = "merchant_cache"
	TableSchemaVersion = "schema_version"
)

// Keys of the lightweight key-value area.
const (
	KeyCustomerInfo = "customer_info"
	StalePrefix     = "stale:"
)

// Change-notification table names carried by catalog change events.
const (
	ChangeTableMerchants = "merchants"
	ChangeTableMenu      = "menu"
	ChangeTableSettings  = "settings"
)
