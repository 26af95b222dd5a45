package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/enum"
	"github.com/menuboard/api/internal/middleware"
	"github.com/menuboard/api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, actor service.Actor, req service.CreateOrderRequest) (*service.OrderResult, error)
	AppendItems(ctx context.Context, actor service.Actor, orderID uuid.UUID, items []service.ItemInput) (*service.OrderResult, error)
	SetItemStatus(ctx context.Context, actor service.Actor, orderID, itemID uuid.UUID, status string) (*service.OrderResult, error)
	SetOrderStatus(ctx context.Context, actor service.Actor, orderID uuid.UUID, status string) (*service.OrderResult, error)
	GetOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) (*service.OrderResult, error)
	GetActiveOrderForTable(ctx context.Context, actor service.Actor, table string) (*service.OrderResult, error)
	ListActiveOrders(ctx context.Context, actor service.Actor, station string) ([]service.OrderResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	billing PaymentServicer
	log     logrus.FieldLogger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, billing PaymentServicer, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{svc: svc, billing: billing, log: log.WithField("component", "order_handler")}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	pos := middleware.RequireRole(enum.RolePOS)
	kitchen := middleware.RequireRole(enum.RolePOS, enum.RoleStation)

	r.With(pos).Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Get("/tables/{table}/order", h.GetForTable)
	r.With(pos).Post("/orders/{id}/items", h.AppendItems)
	r.With(kitchen).Patch("/orders/{id}/items/{itemId}/status", h.UpdateItemStatus)
	r.With(kitchen).Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableLabel   string             `json:"table_label"`
	CustomerNote string             `json:"customer_note"`
	Items        []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string            `json:"product_id"`
	Name      string            `json:"name"`
	Price     string            `json:"price"`
	Quantity  int32             `json:"quantity"`
	Options   map[string]string `json:"options"`
}

type appendItemsRequest struct {
	Items []orderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	TenantID     uuid.UUID           `json:"tenant_id"`
	TableLabel   string              `json:"table_label"`
	Status       string              `json:"status"`
	TotalAmount  string              `json:"total_amount"`
	IsPaid       bool                `json:"is_paid"`
	CustomerNote *string             `json:"customer_note"`
	Revision     int32               `json:"revision"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	CompletedAt  *time.Time          `json:"completed_at"`
	Items        []orderItemResponse `json:"items"`
	AllReady     *bool               `json:"all_ready,omitempty"`
}

type orderItemResponse struct {
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
}

// orderDetailResponse extends orderResponse with the ledger and bill for the
// GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse `json:"payments"`
	Bill     billResponse      `json:"bill"`
}

type orderListResponse struct {
	Orders  []orderResponse `json:"orders"`
	Station string          `json:"station,omitempty"`
}

// --- Handlers ---

// Create handles POST /tenants/{tid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), actorFrom(claims), service.CreateOrderRequest{
		TableLabel:   req.TableLabel,
		CustomerNote: req.CustomerNote,
		Items:        toItemInputs(req.Items),
	})
	if err != nil {
		writeServiceError(w, h.log, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// List handles GET /tenants/{tid}/orders. Station terminals default to their
// own station.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	station := r.URL.Query().Get("station")
	if station == "" && claims.Role == enum.RoleStation {
		station = claims.Station
	}

	results, err := h.svc.ListActiveOrders(r.Context(), actorFrom(claims), station)
	if err != nil {
		writeServiceError(w, h.log, "list orders", err)
		return
	}

	resp := orderListResponse{Orders: make([]orderResponse, len(results)), Station: station}
	for i, res := range results {
		resp.Orders[i] = toOrderResponse(res.Order, res.Items)
		if station != "" {
			ready := service.AllReady(res.Items, station)
			resp.Orders[i].AllReady = &ready
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tenants/{tid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	actor := actorFrom(claims)
	result, err := h.svc.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, h.log, "get order", err)
		return
	}

	payments, err := h.billing.ListPayments(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, h.log, "list payments", err)
		return
	}
	bill, err := h.billing.PreviewBill(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, h.log, "preview bill", err)
		return
	}

	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: toOrderResponse(result.Order, result.Items),
		Payments:      paymentResps,
		Bill:          toBillResponse(*bill),
	})
}

// GetForTable handles GET /tenants/{tid}/tables/{table}/order.
func (h *OrderHandler) GetForTable(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	result, err := h.svc.GetActiveOrderForTable(r.Context(), actorFrom(claims), chi.URLParam(r, "table"))
	if err != nil {
		writeServiceError(w, h.log, "get table order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Items))
}

// AppendItems handles POST /tenants/{tid}/orders/{id}/items.
func (h *OrderHandler) AppendItems(w http.ResponseWriter, r *http.Request) {
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

	var req appendItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	result, err := h.svc.AppendItems(r.Context(), actorFrom(claims), orderID, toItemInputs(req.Items))
	if err != nil {
		writeServiceError(w, h.log, "append items", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Items))
}

// UpdateItemStatus handles PATCH /tenants/{tid}/orders/{id}/items/{itemId}/status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
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
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid item ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "status is required")
		return
	}

	result, err := h.svc.SetItemStatus(r.Context(), actorFrom(claims), orderID, itemID, req.Status)
	if err != nil {
		writeServiceError(w, h.log, "set item status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Items))
}

// UpdateStatus handles PATCH /tenants/{tid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "status is required")
		return
	}

	result, err := h.svc.SetOrderStatus(r.Context(), actorFrom(claims), orderID, req.Status)
	if err != nil {
		writeServiceError(w, h.log, "set order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Items))
}

// --- Helpers ---

func toItemInputs(items []orderItemRequest) []service.ItemInput {
	inputs := make([]service.ItemInput, len(items))
	for i, it := range items {
		inputs[i] = service.ItemInput{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Options:   it.Options,
		}
	}
	return inputs
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		TenantID:    o.TenantID,
		TableLabel:  o.TableLabel,
		Status:      string(o.Status),
		TotalAmount: numericToString(o.TotalAmount),
		IsPaid:      o.IsPaid,
		Revision:    o.Revision,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.CustomerNote.Valid {
		resp.CustomerNote = &o.CustomerNote.String
	}
	if o.CompletedAt.Valid {
		resp.CompletedAt = &o.CompletedAt.Time
	}

	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = toOrderItemResponse(item)
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	price := service.NumericToDecimal(item.Price)
	resp := orderItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Price:     price.StringFixed(2),
		Quantity:  item.Quantity,
		LineTotal: price.Mul(decimal.NewFromInt32(item.Quantity)).StringFixed(2),
		Options:   map[string]string{},
		Status:    string(item.Status),
		Station:   item.Station,
		Position:  item.Position,
	}
	if item.ProductID.Valid {
		s := uuid.UUID(item.ProductID.Bytes).String()
		resp.ProductID = &s
	}
	if len(item.Options) > 0 {
		// Options are written by the engine as a flat string map.
		_ = json.Unmarshal(item.Options, &resp.Options)
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	return service.NumericToDecimal(n).StringFixed(2)
}
