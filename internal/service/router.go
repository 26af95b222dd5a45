package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menuboard/api/internal/database"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Catalog is the read-only view of products and categories.
// Satisfied by *database.Queries.
type Catalog interface {
	GetProductForOrder(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error)
	GetCategoryStation(ctx context.Context, arg database.GetCategoryStationParams) (pgtype.Text, error)
}

// ProductInfo is the catalog snapshot taken for a new line item.
type ProductInfo struct {
	Found   bool
	Name    string
	Price   decimal.Decimal
	Station string
}

// ItemRouter resolves which preparation station a line item belongs to.
type ItemRouter struct {
	catalog        Catalog
	defaultStation string
	log            logrus.FieldLogger
}

func NewItemRouter(catalog Catalog, defaultStation string, log logrus.FieldLogger) *ItemRouter {
	if strings.TrimSpace(defaultStation) == "" {
		defaultStation = "Mutfak"
	}
	return &ItemRouter{catalog: catalog, defaultStation: defaultStation, log: log}
}

func (r *ItemRouter) DefaultStation() string { return r.defaultStation }

// Lookup reads product -> category -> station. Lookups that fail for any
// reason route to the default station; an item is never dropped.
func (r *ItemRouter) Lookup(ctx context.Context, tenantID, productID uuid.UUID) ProductInfo {
	info := ProductInfo{Station: r.defaultStation}

	product, err := r.catalog.GetProductForOrder(ctx, database.GetProductForOrderParams{
		ID:       productID,
		TenantID: tenantID,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.WithError(err).WithField("product_id", productID).Warn("product lookup failed, using default station")
		}
		return info
	}
	info.Found = true
	info.Name = product.Name
	info.Price = numericToDecimal(product.Price)

	if !product.CategoryID.Valid {
		return info
	}
	station, err := r.catalog.GetCategoryStation(ctx, database.GetCategoryStationParams{
		ID:       uuid.UUID(product.CategoryID.Bytes),
		TenantID: tenantID,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.WithError(err).WithField("category_id", uuid.UUID(product.CategoryID.Bytes)).Warn("category lookup failed, using default station")
		}
		return info
	}
	if station.Valid && strings.TrimSpace(station.String) != "" {
		info.Station = strings.TrimSpace(station.String)
	}
	return info
}

func (r *ItemRouter) ResolveStation(ctx context.Context, tenantID, productID uuid.UUID) string {
	return r.Lookup(ctx, tenantID, productID).Station
}

// FilterByStation keeps the items routed to station, in ticket order.
func FilterByStation(items []database.OrderItem, station string) []database.OrderItem {
	out := make([]database.OrderItem, 0, len(items))
	for _, it := range items {
		if it.Station == station {
			out = append(out, it)
		}
	}
	return out
}

// AllReady reports whether every item routed to station is past pending.
// False when the station has nothing on the order.
func AllReady(items []database.OrderItem, station string) bool {
	seen := false
	for _, it := range items {
		if it.Station != station {
			continue
		}
		seen = true
		if it.Status == database.OrderItemStatusPending {
			return false
		}
	}
	return seen
}
