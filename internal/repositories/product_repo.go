package repositories

import (
	"context"
	"errors"

	"productmanager/internal/models"
)

// ErrProductNotFound reports that no product matches the requested ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// GetAll returns every product ordered by ascending price.
	GetAll(ctx context.Context) ([]models.ProductSummary, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	// Create inserts product and sets its ID.
	Create(ctx context.Context, product *models.Product) error
	// Update overwrites every column of an existing product.
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
}
