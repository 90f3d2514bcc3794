package store

import (
	"context"
	"time"

	"commerce-backend/internal/domain"
)

// ListParams holds pagination parameters for simple listings.
type ListParams struct {
	Limit  int
	Offset int
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, params ListParams) ([]domain.Category, int, error) // Returns categories and total count for pagination
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// BrandStorer defines the database operations for brands.
type BrandStorer interface {
	CreateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error)
	GetBrandByID(ctx context.Context, id int64) (*domain.Brand, error)
	ListBrands(ctx context.Context, params ListParams) ([]domain.Brand, int, error)
	UpdateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id int64) error
}

// ListProductsParams holds parameters for listing products (pagination,
// filtering, sorting).
type ListProductsParams struct {
	Limit       int
	Offset      int
	SearchQuery *string // For searching by name/description
	CategoryID  *int64
	BrandID     *int64
	MinPrice    *float64
	MaxPrice    *float64
	IsActive    *bool
	SortBy      string // e.g., "base_price", "name", "created_at"
	SortOrder   string // "asc" or "desc"
}

// VariantDetail joins a variant with the product fields the cart needs to
// snapshot a line: display name and the effective unit price.
type VariantDetail struct {
	Variant       domain.ProductVariant
	ProductID     int64
	ProductName   string
	UnitPrice     float64 // product current price + variant additional price
	ProductActive bool
}

// ProductStorer defines the database operations for products and their owned
// variants and images. Children are written only together with the root.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetVariantDetail(ctx context.Context, variantID int64) (*VariantDetail, error)
}

// ClientStorer defines the database operations for client accounts.
type ClientStorer interface {
	CreateClient(ctx context.Context, client *domain.Client) (*domain.Client, error)
	GetClientByID(ctx context.Context, id int64) (*domain.Client, error)
	GetClientByEmail(ctx context.Context, email string) (*domain.Client, error)
	MarkClientVerified(ctx context.Context, clientID int64, at time.Time) error
}

// AddressStorer defines the database operations for client addresses.
// Deleted addresses keep their rows but are excluded from listings.
type AddressStorer interface {
	CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
	GetAddressByID(ctx context.Context, id int64) (*domain.Address, error)
	ListAddressesByClient(ctx context.Context, clientID int64) ([]domain.Address, error)
	UpdateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
}

// TokenStorer defines the database operations for one-time-use tokens.
type TokenStorer interface {
	CreateVerificationToken(ctx context.Context, token *domain.EmailVerificationToken) (*domain.EmailVerificationToken, error)
	GetVerificationTokenByHash(ctx context.Context, hash string) (*domain.EmailVerificationToken, error)
	DeleteVerificationToken(ctx context.Context, id int64) error
	CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) (*domain.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id int64, at time.Time) error
}

// CartStorer defines the database operations for carts. Cart items are
// replaced wholesale from the aggregate's state.
type CartStorer interface {
	GetCartByClientID(ctx context.Context, clientID int64) (*domain.Cart, error)
	CreateCart(ctx context.Context, clientID int64) (*domain.Cart, error)
	ReplaceCartItems(ctx context.Context, cartID int64, items []domain.CartItem) error
}

// OrderStorer defines the database operations for orders, their items,
// address snapshots and payments.
type OrderStorer interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByClient(ctx context.Context, clientID int64, params ListParams) ([]domain.Order, int, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	UpdateOrderTotals(ctx context.Context, order *domain.Order) error
	CreatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, payment *domain.Payment) error
}

// CouponStorer defines the database operations for coupons.
type CouponStorer interface {
	CreateCoupon(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	UpdateCouponUsage(ctx context.Context, couponID int64, usageCount int) error
}

// ReviewStorer defines the database operations for product reviews.
type ReviewStorer interface {
	CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error)
	ListReviewsByProduct(ctx context.Context, productID int64, params ListParams) ([]domain.Review, int, error)
}

// Tx is a transaction-bound store: the same repository operations, executed
// inside one SQL transaction, plus the unit-of-work controls.
type Tx interface {
	CategoryStorer
	BrandStorer
	ProductStorer
	ClientStorer
	AddressStorer
	TokenStorer
	CartStorer
	OrderStorer
	CouponStorer
	ReviewStorer

	Commit() error
	// Rollback is a no-op after Commit, so it is safe to defer
	// unconditionally.
	Rollback() error
	HasActiveTransaction() bool
}

// UnitOfWork opens per-request transaction boundaries. Every mutating
// use-case wraps its repository writes in one Tx.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}
