package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/enum"
	"github.com/menuboard/api/internal/middleware"
	"github.com/menuboard/api/internal/service"
	"github.com/sirupsen/logrus"
)

// PaymentServicer defines the billing methods needed by payment handlers.
// Satisfied by *service.OrderService.
type PaymentServicer interface {
	RecordPayment(ctx context.Context, actor service.Actor, orderID uuid.UUID, req service.PaymentRequest) (*service.PaymentResult, error)
	PreviewBill(ctx context.Context, actor service.Actor, orderID uuid.UUID) (*service.Bill, error)
	ListPayments(ctx context.Context, actor service.Actor, orderID uuid.UUID) ([]database.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc PaymentServicer
	log logrus.FieldLogger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log.WithField("component", "payment_handler")}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /tenants/{tid}/orders/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RolePOS)).Post("/", h.Add)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type addPaymentRequest struct {
	Amount         string `json:"amount"`
	PaymentMethod  string `json:"payment_method"`
	DiscountType   string `json:"discount_type"`
	DiscountValue  string `json:"discount_value"`
	AmountReceived string `json:"amount_received"`
}

type paymentResponse struct {
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

type billResponse struct {
	Total       string `json:"total"`
	Collected   string `json:"collected"`
	Discounted  string `json:"discounted"`
	Outstanding string `json:"outstanding"`
}

type paymentResultResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
	Bill    billResponse    `json:"bill"`
	Final   bool            `json:"final"`
}

// --- Handlers ---

// Add handles POST /tenants/{tid}/orders/{id}/payments.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order ID")
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "payment_method is required")
		return
	}

	result, err := h.svc.RecordPayment(r.Context(), actorFrom(claims), orderID, service.PaymentRequest{
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		AmountReceived: req.AmountReceived,
	})
	if err != nil {
		writeServiceError(w, h.log, "record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, paymentResultResponse{
		Payment: toPaymentResponse(result.Payment),
		Order:   toOrderResponse(result.Order, nil),
		Bill:    toBillResponse(result.Bill),
		Final:   result.Final,
	})
}

// List handles GET /tenants/{tid}/orders/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order ID")
		return
	}

	payments, err := h.svc.ListPayments(r.Context(), actorFrom(claims), orderID)
	if err != nil {
		writeServiceError(w, h.log, "list payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toPaymentResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         numericToString(p.Amount),
		PaymentMethod:  string(p.PaymentMethod),
		DiscountAmount: numericToString(p.DiscountAmount),
		AmountReceived: numericToString(p.AmountReceived),
		ChangeAmount:   numericToString(p.ChangeAmount),
		IsFinal:        p.IsFinal,
		CreatedAt:      p.CreatedAt,
	}
	if p.Terminal.Valid {
		resp.Terminal = &p.Terminal.String
	}
	return resp
}

func toBillResponse(b service.Bill) billResponse {
	return billResponse{
		Total:       b.Total.StringFixed(2),
		Collected:   b.Collected.StringFixed(2),
		Discounted:  b.Discounted.StringFixed(2),
		Outstanding: b.Outstanding.StringFixed(2),
	}
}
