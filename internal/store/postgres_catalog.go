package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"commerce-backend/internal/domain"
)

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO shop.categories (name, slug, description, parent_category_id, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, slug, description, parent_category_id, sort_order, is_active, created_at, updated_at;
	`
	row := s.q.QueryRowContext(ctx, query,
		category.Name, category.Slug, category.Description, category.ParentCategoryID,
		category.SortOrder, category.IsActive,
	)

	var created domain.Category
	err := row.Scan(
		&created.ID, &created.Name, &created.Slug, &created.Description,
		&created.ParentCategoryID, &created.SortOrder, &created.IsActive,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // Unique violation
			if strings.Contains(pqErr.Constraint, "categories_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
				return nil, ErrCategorySlugExists
			}
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, name, slug, description, parent_category_id, sort_order, is_active, created_at, updated_at
		FROM shop.categories
		WHERE id = $1;
	`
	var category domain.Category
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&category.ID, &category.Name, &category.Slug, &category.Description,
		&category.ParentCategoryID, &category.SortOrder, &category.IsActive,
		&category.CreatedAt, &category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, params ListParams) ([]domain.Category, int, error) {
	countQuery := `SELECT COUNT(*) FROM shop.categories;`
	var totalCount int
	if err := s.q.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to count categories: %w", err)
	}

	if totalCount == 0 {
		return []domain.Category{}, 0, nil
	}

	query := `
		SELECT id, name, slug, description, parent_category_id, sort_order, is_active, created_at, updated_at
		FROM shop.categories
		ORDER BY sort_order ASC, name ASC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.q.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, params.Limit)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentCategoryID,
			&c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}

	return categories, totalCount, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE shop.categories
		SET name = $1, slug = $2, description = $3, parent_category_id = $4, sort_order = $5, is_active = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING id, name, slug, description, parent_category_id, sort_order, is_active, created_at, updated_at;
	`
	var updated domain.Category
	err := s.q.QueryRowContext(ctx, query,
		category.Name, category.Slug, category.Description, category.ParentCategoryID,
		category.SortOrder, category.IsActive, category.ID,
	).Scan(
		&updated.ID, &updated.Name, &updated.Slug, &updated.Description,
		&updated.ParentCategoryID, &updated.SortOrder, &updated.IsActive,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "categories_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
				return nil, ErrCategorySlugExists
			}
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM shop.categories WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// --- BrandStorer Implementation ---

func (s *PostgresStore) CreateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error) {
	query := `
		INSERT INTO shop.brands (name, slug, logo_url, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, logo_url, is_active, created_at, updated_at;
	`
	var created domain.Brand
	err := s.q.QueryRowContext(ctx, query, brand.Name, brand.Slug, brand.LogoURL, brand.IsActive).Scan(
		&created.ID, &created.Name, &created.Slug, &created.LogoURL, &created.IsActive,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "brands_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
				return nil, ErrBrandSlugExists
			}
		}
		return nil, fmt.Errorf("store: CreateBrand failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetBrandByID(ctx context.Context, id int64) (*domain.Brand, error) {
	query := `
		SELECT id, name, slug, logo_url, is_active, created_at, updated_at
		FROM shop.brands
		WHERE id = $1;
	`
	var brand domain.Brand
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&brand.ID, &brand.Name, &brand.Slug, &brand.LogoURL, &brand.IsActive,
		&brand.CreatedAt, &brand.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("store: GetBrandByID failed to scan row: %w", err)
	}
	return &brand, nil
}

func (s *PostgresStore) ListBrands(ctx context.Context, params ListParams) ([]domain.Brand, int, error) {
	countQuery := `SELECT COUNT(*) FROM shop.brands;`
	var totalCount int
	if err := s.q.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListBrands failed to count brands: %w", err)
	}
	if totalCount == 0 {
		return []domain.Brand{}, 0, nil
	}

	query := `
		SELECT id, name, slug, logo_url, is_active, created_at, updated_at
		FROM shop.brands
		ORDER BY name ASC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.q.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListBrands failed to query brands: %w", err)
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0, params.Limit)
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("store: ListBrands failed to scan brand row: %w", err)
		}
		brands = append(brands, b)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListBrands iteration error: %w", err)
	}
	return brands, totalCount, nil
}

func (s *PostgresStore) UpdateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error) {
	query := `
		UPDATE shop.brands
		SET name = $1, slug = $2, logo_url = $3, is_active = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING id, name, slug, logo_url, is_active, created_at, updated_at;
	`
	var updated domain.Brand
	err := s.q.QueryRowContext(ctx, query, brand.Name, brand.Slug, brand.LogoURL, brand.IsActive, brand.ID).Scan(
		&updated.ID, &updated.Name, &updated.Slug, &updated.LogoURL, &updated.IsActive,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrBrandSlugExists
		}
		return nil, fmt.Errorf("store: UpdateBrand failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteBrand(ctx context.Context, id int64) error {
	query := `DELETE FROM shop.brands WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteBrand failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteBrand failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBrandNotFound
	}
	return nil
}

// --- ProductStorer Implementation ---

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO shop.products (category_id, brand_id, name, slug, description, base_price, sale_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, category_id, brand_id, name, slug, description, base_price, sale_price, is_active, created_at, updated_at;
	`
	var created domain.Product
	err := s.q.QueryRowContext(ctx, query,
		product.CategoryID, product.BrandID, product.Name, product.Slug, product.Description,
		product.BasePrice, product.SalePrice, product.IsActive,
	).Scan(
		&created.ID, &created.CategoryID, &created.BrandID, &created.Name, &created.Slug,
		&created.Description, &created.BasePrice, &created.SalePrice, &created.IsActive,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code == "23505" {
				if strings.Contains(pqErr.Constraint, "products_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
					return nil, ErrProductSlugExists
				}
			}
			if pqErr.Code == "23503" { // FK violation on category/brand
				return nil, ErrCategoryNotFound
			}
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}

	if err := s.insertProductChildren(ctx, created.ID, product.Variants, product.Images, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// insertProductChildren writes the owned variants and images and appends the
// created rows to dst. Callers wanting atomicity run this inside a Tx.
func (s *PostgresStore) insertProductChildren(ctx context.Context, productID int64, variants []domain.ProductVariant, images []domain.ProductImage, dst *domain.Product) error {
	variantQuery := `
		INSERT INTO shop.product_variants (product_id, sku, stock_quantity, additional_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, sku, stock_quantity, additional_price;
	`
	for _, v := range variants {
		var created domain.ProductVariant
		err := s.q.QueryRowContext(ctx, variantQuery, productID, v.SKU, v.StockQuantity, v.AdditionalPrice).Scan(
			&created.ID, &created.ProductID, &created.SKU, &created.StockQuantity, &created.AdditionalPrice,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrVariantSKUExists
			}
			return fmt.Errorf("store: failed to insert product variant: %w", err)
		}
		dst.Variants = append(dst.Variants, created)
	}

	imageQuery := `
		INSERT INTO shop.product_images (product_id, url, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id, product_id, url, sort_order;
	`
	for _, img := range images {
		var created domain.ProductImage
		err := s.q.QueryRowContext(ctx, imageQuery, productID, img.URL, img.SortOrder).Scan(
			&created.ID, &created.ProductID, &created.URL, &created.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("store: failed to insert product image: %w", err)
		}
		dst.Images = append(dst.Images, created)
	}
	return nil
}

func (s *PostgresStore) loadProductChildren(ctx context.Context, product *domain.Product) error {
	variantQuery := `
		SELECT id, product_id, sku, stock_quantity, additional_price
		FROM shop.product_variants
		WHERE product_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, variantQuery, product.ID)
	if err != nil {
		return fmt.Errorf("store: failed to query product variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.StockQuantity, &v.AdditionalPrice); err != nil {
			return fmt.Errorf("store: failed to scan product variant: %w", err)
		}
		product.Variants = append(product.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: product variant iteration error: %w", err)
	}

	imageQuery := `
		SELECT id, product_id, url, sort_order
		FROM shop.product_images
		WHERE product_id = $1
		ORDER BY sort_order ASC, id ASC;
	`
	imgRows, err := s.q.QueryContext(ctx, imageQuery, product.ID)
	if err != nil {
		return fmt.Errorf("store: failed to query product images: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var img domain.ProductImage
		if err := imgRows.Scan(&img.ID, &img.ProductID, &img.URL, &img.SortOrder); err != nil {
			return fmt.Errorf("store: failed to scan product image: %w", err)
		}
		product.Images = append(product.Images, img)
	}
	return imgRows.Err()
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, category_id, brand_id, name, slug, description, base_price, sale_price, is_active, created_at, updated_at
		FROM shop.products
		WHERE id = $1;
	`
	var product domain.Product
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.CategoryID, &product.BrandID, &product.Name, &product.Slug,
		&product.Description, &product.BasePrice, &product.SalePrice, &product.IsActive,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	if err := s.loadProductChildren(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) {
	var queryArgs []interface{}
	var whereClauses []string
	argID := 1

	if params.SearchQuery != nil && *params.SearchQuery != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argID, argID+1))
		searchTerm := "%" + *params.SearchQuery + "%"
		queryArgs = append(queryArgs, searchTerm, searchTerm)
		argID += 2
	}
	if params.CategoryID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("category_id = $%d", argID))
		queryArgs = append(queryArgs, *params.CategoryID)
		argID++
	}
	if params.BrandID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("brand_id = $%d", argID))
		queryArgs = append(queryArgs, *params.BrandID)
		argID++
	}
	if params.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("base_price >= $%d", argID))
		queryArgs = append(queryArgs, *params.MinPrice)
		argID++
	}
	if params.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("base_price <= $%d", argID))
		queryArgs = append(queryArgs, *params.MaxPrice)
		argID++
	}
	if params.IsActive != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("is_active = $%d", argID))
		queryArgs = append(queryArgs, *params.IsActive)
		argID++
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM shop.products" + whereCondition
	var totalCount int
	if err := s.q.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	sortColumn := "created_at"
	allowedSortColumns := map[string]string{
		"name":       "name",
		"base_price": "base_price",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	if col, ok := allowedSortColumns[strings.ToLower(params.SortBy)]; ok {
		sortColumn = col
	}
	sortOrder := "ASC"
	if strings.ToUpper(params.SortOrder) == "DESC" {
		sortOrder = "DESC"
	}

	dataQueryPreamble := `
		SELECT id, category_id, brand_id, name, slug, description, base_price, sale_price, is_active, created_at, updated_at
		FROM shop.products
	`
	dataQuery := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		dataQueryPreamble, whereCondition, sortColumn, sortOrder, argID, argID+1)

	finalQueryArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := s.q.QueryContext(ctx, dataQuery, finalQueryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, params.Limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.CategoryID, &p.BrandID, &p.Name, &p.Slug, &p.Description,
			&p.BasePrice, &p.SalePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}

	// Listings return the product roots only; variants and images are loaded
	// on the detail query.
	return products, totalCount, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE shop.products
		SET category_id = $1, brand_id = $2, name = $3, slug = $4, description = $5,
			base_price = $6, sale_price = $7, is_active = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $9
		RETURNING id, category_id, brand_id, name, slug, description, base_price, sale_price, is_active, created_at, updated_at;
	`
	var updated domain.Product
	err := s.q.QueryRowContext(ctx, query,
		product.CategoryID, product.BrandID, product.Name, product.Slug, product.Description,
		product.BasePrice, product.SalePrice, product.IsActive, product.ID,
	).Scan(
		&updated.ID, &updated.CategoryID, &updated.BrandID, &updated.Name, &updated.Slug,
		&updated.Description, &updated.BasePrice, &updated.SalePrice, &updated.IsActive,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrProductSlugExists
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}

	// Children are replaced wholesale from the aggregate's state.
	if _, err := s.q.ExecContext(ctx, `DELETE FROM shop.product_variants WHERE product_id = $1;`, product.ID); err != nil {
		return nil, fmt.Errorf("store: UpdateProduct failed to clear variants: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM shop.product_images WHERE product_id = $1;`, product.ID); err != nil {
		return nil, fmt.Errorf("store: UpdateProduct failed to clear images: %w", err)
	}
	if err := s.insertProductChildren(ctx, product.ID, product.Variants, product.Images, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	query := `DELETE FROM shop.products WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) GetVariantDetail(ctx context.Context, variantID int64) (*VariantDetail, error) {
	query := `
		SELECT v.id, v.product_id, v.sku, v.stock_quantity, v.additional_price,
			p.id, p.name, p.base_price, p.sale_price, p.is_active
		FROM shop.product_variants v
		JOIN shop.products p ON p.id = v.product_id
		WHERE v.id = $1;
	`
	var (
		d         VariantDetail
		basePrice float64
		salePrice sql.NullFloat64
	)
	err := s.q.QueryRowContext(ctx, query, variantID).Scan(
		&d.Variant.ID, &d.Variant.ProductID, &d.Variant.SKU, &d.Variant.StockQuantity, &d.Variant.AdditionalPrice,
		&d.ProductID, &d.ProductName, &basePrice, &salePrice, &d.ProductActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("store: GetVariantDetail failed to scan row: %w", err)
	}
	price := basePrice
	if salePrice.Valid {
		price = salePrice.Float64
	}
	d.UnitPrice = price + d.Variant.AdditionalPrice
	return &d, nil
}
