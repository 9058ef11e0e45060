package services

import (
	"context"
	"encoding/json"
	"time"

	"productmanager/internal/models"
	"productmanager/internal/repositories"

	"github.com/rs/zerolog"
)

// Routing keys of the product lifecycle events.
const (
	EventProductCreated             = "product.created"
	EventProductUpdated             = "product.updated"
	EventProductAvailabilityToggled = "product.availability_toggled"
	EventProductDeleted             = "product.deleted"
)

// EventPublisher sends a message to a broker exchange.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// ProductEvent is the message published after a product mutation.
type ProductEvent struct {
	Event      string         `json:"event"`
	Product    models.Product `json:"product"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	exchange  string
	logger    zerolog.Logger
}

// NewProductService creates a new ProductService. publisher may be nil, in
// which case no events are published.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher, exchange string, logger zerolog.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		exchange:  exchange,
		logger:    logger,
	}
}

// GetAllProducts retrieves all products ordered by ascending price.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.ProductSummary, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores a new, available product.
func (s *ProductService) CreateProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:         input.Name,
		Price:        input.Price,
		Availability: true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.publish(EventProductCreated, *product)
	return product, nil
}

// ReplaceProduct overwrites name, price and availability of an existing
// product.
func (s *ProductService) ReplaceProduct(ctx context.Context, id uint, input models.ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Price = input.Price
	product.Availability = input.Availability

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.publish(EventProductUpdated, *product)
	return product, nil
}

// ToggleAvailability inverts the availability flag of a product and leaves
// every other field untouched.
func (s *ProductService) ToggleAvailability(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Availability = !product.Availability

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.publish(EventProductAvailabilityToggled, *product)
	return product, nil
}

// DeleteProduct removes a product permanently.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(EventProductDeleted, *product)
	return nil
}

// publish emits a lifecycle event. Failures are logged and never reach the
// caller.
func (s *ProductService) publish(event string, product models.Product) {
	if s.publisher == nil {
		s.logger.Debug().Str("event", event).Msg("event publisher not configured, skipping")
		return
	}

	body, err := json.Marshal(ProductEvent{
		Event:      event,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("failed to marshal product event")
		return
	}

	if err := s.publisher.Publish(s.exchange, event, body); err != nil {
		s.logger.Warn().Err(err).
			Str("event", event).
			Uint("product_id", product.ID).
			Msg("failed to publish product event")
		return
	}
	s.logger.Debug().Str("event", event).Uint("product_id", product.ID).Msg("published product event")
}
