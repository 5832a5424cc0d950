package sharecart

import (
	"context"

	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

// Cart is the storefront cart of one session.
type Cart interface {
	Items(ctx context.Context, sessionID string) ([]types.CartLine, error)
	// Add returns false when the storefront refuses the line, e.g. out of stock.
	Add(ctx context.Context, sessionID string, line types.CartLine) (bool, error)
	Empty(ctx context.Context, sessionID string) error
	URL() string
}

// Catalog looks up products for display. Missing products return nil, nil.
type Catalog interface {
	Product(ctx context.Context, productID int64) (*models.Product, error)
}

// Session carries per-visitor values across requests. Absent values report ok=false.
type Session interface {
	Get(ctx context.Context, sessionID, name string) (string, bool, error)
	Set(ctx context.Context, sessionID, name, value string) error
	Clear(ctx context.Context, sessionID, name string) error
}

// AddressHasher turns a caller address into its stored form.
type AddressHasher interface {
	Hash(addr string) (*string, error)
}
