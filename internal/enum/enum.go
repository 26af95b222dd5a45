package enum

// ── Terminal roles (carried in the JWT) ──

const (
	RolePOS     = "POS"
	RoleStation = "STATION"
	RoleAdmin   = "ADMIN"
)

// ── Configurable labels (no DB constraint) ──

// StationDefault is where items land when their category names no station.
const StationDefault = "Mutfak"

const (
	DiscountTypeFixed   = "fixed"
	DiscountTypePercent = "percent"
)

// ── Change signal types ──

const (
	SignalOrdersChanged = "orders.changed"
	SignalOrdersResync  = "orders.resync"
)

const (
	ChangeCreated       = "created"
	ChangeItemsAppended = "items_appended"
	ChangeItemStatus    = "item_status"
	ChangeOrderStatus   = "order_status"
	ChangePayment       = "payment"
	ChangeSettled       = "settled"
)
