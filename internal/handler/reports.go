package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/middleware"
	"github.com/menuboard/api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	loc   *time.Location
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewReportsHandler creates a new ReportsHandler. Business days are cut at
// midnight in loc.
func NewReportsHandler(store ReportsStore, loc *time.Location, log logrus.FieldLogger) *ReportsHandler {
	return &ReportsHandler{store: store, loc: loc, now: time.Now, log: log.WithField("component", "reports_handler")}
}

// RegisterRoutes registers tenant-scoped report endpoints.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type paymentSummaryRow struct {
	PaymentMethod    string `json:"payment_method"`
	TransactionCount int64  `json:"transaction_count"`
	TotalAmount      string `json:"total_amount"`
	TotalDiscount    string `json:"total_discount"`
}

type paymentSummaryResponse struct {
	From          time.Time           `json:"from"`
	To            time.Time           `json:"to"`
	Methods       []paymentSummaryRow `json:"methods"`
	TotalAmount   string              `json:"total_amount"`
	TotalDiscount string              `json:"total_discount"`
}

// --- Handlers ---

// PaymentSummary returns collected amounts per payment method for one
// business day (?date=) or a range (?start_date=&end_date=).
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid tenant ID")
		return
	}

	from, to, err := h.parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		TenantID:    tenantID,
		CreatedAt:   from,
		CreatedAt_2: to,
	})
	if err != nil {
		h.log.WithError(err).Error("get payment summary")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}

	amount, discount := decimal.Zero, decimal.Zero
	methods := make([]paymentSummaryRow, len(rows))
	for i, row := range rows {
		methods[i] = paymentSummaryRow{
			PaymentMethod:    string(row.PaymentMethod),
			TransactionCount: row.TransactionCount,
			TotalAmount:      numericToString(row.TotalAmount),
			TotalDiscount:    numericToString(row.TotalDiscount),
		}
		amount = amount.Add(service.NumericToDecimal(row.TotalAmount))
		discount = discount.Add(service.NumericToDecimal(row.TotalDiscount))
	}

	writeJSON(w, http.StatusOK, paymentSummaryResponse{
		From:          from,
		To:            to,
		Methods:       methods,
		TotalAmount:   amount.StringFixed(2),
		TotalDiscount: discount.StringFixed(2),
	})
}

// --- Helpers ---

// parseDateRange returns [from, to) in the report timezone. ?date= selects a
// single day; start_date/end_date select an inclusive range of days. With no
// parameters the current business day is used.
func (h *ReportsHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	q := r.URL.Query()

	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)

	if s := q.Get("date"); s != "" {
		d, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		return d, d.AddDate(0, 0, 1), nil
	}

	from, to := today, today.AddDate(0, 0, 1)
	if s := q.Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		from = t
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		// Make end_date exclusive by adding 1 day
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must not be after end_date")
	}
	return from, to, nil
}

// LoadLocation resolves the report timezone, falling back to UTC+3 when the
// zone database is missing from the image.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("TRT", 3*3600)
	}
	return loc
}
