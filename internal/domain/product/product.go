package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a sellable catalog item. Stock never goes negative: every
// decrement is a conditional update at the datastore.
type Product struct {
	ID       string
	SellerID string
	Name     string
	Price    decimal.Decimal

	Stock             int
	LowStockThreshold int
	SalesCount        int
	Active            bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LowStockAfter reports whether selling qty units would leave the product at
// or below its low-stock threshold.
func (p *Product) LowStockAfter(qty int) bool {
	return p.Stock-qty <= p.LowStockThreshold
}

// Repository defines read operations for the product catalog. Stock
// mutations happen inside the order repository's transaction, never here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns products matching any of the given IDs, active or not.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// GetActiveByIDs returns only active products matching the given IDs.
	GetActiveByIDs(ctx context.Context, ids []string) ([]Product, error)
}
