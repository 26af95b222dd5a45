package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menuboard/api/internal/database"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MenuStore defines the database methods needed by the menu handler.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListCategoriesByTenant(ctx context.Context, tenantID uuid.UUID) ([]database.Category, error)
	ListActiveProductsByTenant(ctx context.Context, tenantID uuid.UUID) ([]database.Product, error)
}

// MenuHandler serves the read-only catalog terminals order from. Catalog
// rows are maintained by the admin application.
type MenuHandler struct {
	store          MenuStore
	defaultStation string
	log            logrus.FieldLogger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, defaultStation string, log logrus.FieldLogger) *MenuHandler {
	return &MenuHandler{store: store, defaultStation: defaultStation, log: log.WithField("component", "menu_handler")}
}

// RegisterRoutes registers the menu endpoint.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Get)
}

// --- Response types ---

type menuProductResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
}

type menuCategoryResponse struct {
	ID       *uuid.UUID            `json:"id"`
	Name     string                `json:"name"`
	Station  string                `json:"station"`
	Products []menuProductResponse `json:"products"`
}

// --- Handlers ---

// Get returns categories with their active products. Products without a
// category are grouped last under the default station.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid tenant ID")
		return
	}

	var (
		categories []database.Category
		products   []database.Product
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		categories, err = h.store.ListCategoriesByTenant(ctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = h.store.ListActiveProductsByTenant(ctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.log.WithError(err).Error("load menu")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}

	index := make(map[uuid.UUID]int, len(categories))
	resp := make([]menuCategoryResponse, 0, len(categories)+1)
	for _, c := range categories {
		id := c.ID
		station := h.defaultStation
		if c.StationName.Valid && c.StationName.String != "" {
			station = c.StationName.String
		}
		index[c.ID] = len(resp)
		resp = append(resp, menuCategoryResponse{ID: &id, Name: c.Name, Station: station, Products: []menuProductResponse{}})
	}

	var uncategorized []menuProductResponse
	for _, p := range products {
		item := menuProductResponse{ID: p.ID, Name: p.Name, Price: numericToString(p.Price)}
		if p.CategoryID.Valid {
			if i, ok := index[uuid.UUID(p.CategoryID.Bytes)]; ok {
				resp[i].Products = append(resp[i].Products, item)
				continue
			}
		}
		uncategorized = append(uncategorized, item)
	}
	if len(uncategorized) > 0 {
		resp = append(resp, menuCategoryResponse{Name: "Other", Station: h.defaultStation, Products: uncategorized})
	}

	writeJSON(w, http.StatusOK, resp)
}
