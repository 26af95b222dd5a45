package terminal

import (
	"time"

	"github.com/google/uuid"
)

// Order is an order as terminals see it over the command surface.
type Order struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	TableLabel   string     `json:"table_label"`
	Status       string     `json:"status"`
	TotalAmount  string     `json:"total_amount"`
	IsPaid       bool       `json:"is_paid"`
	CustomerNote *string    `json:"customer_note"`
	Revision     int32      `json:"revision"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	Items        []Item     `json:"items"`
	AllReady     *bool      `json:"all_ready,omitempty"`
}

type Item struct {
	ID        uuid.UUID         `json:"id"`
	ProductID *string           `json:"product_id"`
	Name      string            `json:"name"`
	Price     string            `json:"price"`
	Quantity  int32             `json:"quantity"`
	LineTotal string            `json:"line_total"`
	Options   map[string]string `json:"options"`
	Status    string            `json:"status"`
	Station   string            `json:"station"`
	Position  int32             `json:"position"`

	// Pending is set while an optimistic change to this item awaits
	// confirmation. Never sent by the server.
	Pending bool `json:"-"`
}

type Payment struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	Amount         string    `json:"amount"`
	PaymentMethod  string    `json:"payment_method"`
	DiscountAmount string    `json:"discount_amount"`
	AmountReceived string    `json:"amount_received"`
	ChangeAmount   string    `json:"change_amount"`
	IsFinal        bool      `json:"is_final"`
	Terminal       *string   `json:"terminal"`
	CreatedAt      time.Time `json:"created_at"`
}

type Bill struct {
	Total       string `json:"total"`
	Collected   string `json:"collected"`
	Discounted  string `json:"discounted"`
	Outstanding string `json:"outstanding"`
}

// OrderDetail is the single-order view with its ledger.
type OrderDetail struct {
	Order
	Payments []Payment `json:"payments"`
	Bill     Bill      `json:"bill"`
}

type PaymentResult struct {
	Payment Payment `json:"payment"`
	Order   Order   `json:"order"`
	Bill    Bill    `json:"bill"`
	Final   bool    `json:"final"`
}

// ItemInput is one line of a create or append command.
type ItemInput struct {
	ProductID string            `json:"product_id,omitempty"`
	Name      string            `json:"name,omitempty"`
	Price     string            `json:"price,omitempty"`
	Quantity  int32             `json:"quantity"`
	Options   map[string]string `json:"options,omitempty"`
}

type PaymentInput struct {
	Amount         string `json:"amount,omitempty"`
	PaymentMethod  string `json:"payment_method"`
	DiscountType   string `json:"discount_type,omitempty"`
	DiscountValue  string `json:"discount_value,omitempty"`
	AmountReceived string `json:"amount_received,omitempty"`
}

// Credentials is the result of a terminal login.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Terminal    string    `json:"terminal"`
	Role        string    `json:"role"`
	Station     string    `json:"station"`
}
