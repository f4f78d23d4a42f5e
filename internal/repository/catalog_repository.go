package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// CatalogRepository defines the interface for catalog data access. The
// service is the single id authority, so ids are assigned before rows
// reach the repository and never by callers outside the service.
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	FindProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// CreateCategory appends a category to the product's sequence and
	// returns the updated parent, which is what the wire contract echoes
	// back to clients.
	CreateCategory(ctx context.Context, productID string, category *domain.Category) (*domain.Product, error)
	DeleteCategory(ctx context.Context, productID, categoryID string) error
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// ListProducts retrieves all products with their categories nested in
// insertion order.
func (r *catalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, title, logo
		FROM products
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	index := map[string]int{}
	for rows.Next() {
		var p domain.Product
		var logo sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &logo); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Logo = logo.String
		p.Categories = []domain.Category{}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	catQuery := `
		SELECT id, product_id, title, description, price, image
		FROM categories
		ORDER BY product_id, position ASC
	`

	catRows, err := r.db.QueryContext(ctx, catQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var c domain.Category
		var productID string
		var image sql.NullString
		if err := catRows.Scan(&c.ID, &productID, &c.Title, &c.Description, &c.Price, &image); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Image = image.String
		if i, ok := index[productID]; ok {
			products[i].Categories = append(products[i].Categories, c)
		}
	}
	if err = catRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return products, nil
}

// FindProduct retrieves a single product with its categories.
func (r *catalogRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, title, logo
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	var logo sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&product.ID, &product.Title, &logo)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	product.Logo = logo.String

	categories, err := r.productCategories(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Categories = categories

	return product, nil
}

// CreateProduct inserts a new product using parameterized queries.
func (r *catalogRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, title, logo, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`

	_, err := r.db.ExecContext(ctx, query, product.ID, product.Title, product.Logo, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	if product.Categories == nil {
		product.Categories = []domain.Category{}
	}
	return nil
}

// DeleteProduct removes a product; its categories go with it via the
// foreign key cascade.
func (r *catalogRepository) DeleteProduct(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// CreateCategory appends a category at the end of the parent's sequence
// and returns the updated parent.
func (r *catalogRepository) CreateCategory(ctx context.Context, productID string, category *domain.Category) (*domain.Product, error) {
	query := `
		INSERT INTO categories (id, product_id, title, description, price, image, position, created_at)
		VALUES (
			$1, $2, $3, $4, $5, NULLIF($6, ''),
			COALESCE((SELECT MAX(position) + 1 FROM categories WHERE product_id = $2), 0),
			$7
		)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		productID,
		category.Title,
		category.Description,
		category.Price,
		category.Image,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return r.FindProduct(ctx, productID)
}

// DeleteCategory removes a category scoped to its parent product.
func (r *catalogRepository) DeleteCategory(ctx context.Context, productID, categoryID string) error {
	query := `DELETE FROM categories WHERE id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, categoryID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

func (r *catalogRepository) productCategories(ctx context.Context, productID string) ([]domain.Category, error) {
	query := `
		SELECT id, title, description, price, image
		FROM categories
		WHERE product_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		var image sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Price, &image); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Image = image.String
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
