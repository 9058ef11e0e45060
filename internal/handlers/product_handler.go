package handlers

import (
	"errors"
	"strconv"
	"strings"

	"productmanager/internal/models"
	"productmanager/internal/repositories"
	"productmanager/internal/services"
	"productmanager/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Response bodies shared by the product routes.
const (
	msgProductNotFound = "Product not found"
	msgProductRemoved  = "The product has been removed"
	msgServerError     = "Server error"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the product routes under /products. Each route
// runs its validation chain before the handler.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", validation.Handle(validation.ProductID), h.HandleGetProductByID)
	productRoutes.Post("/", validation.Handle(validation.CreateProduct), h.HandleCreateProduct)
	productRoutes.Put("/:id", validation.Handle(validation.ReplaceProduct), h.HandleReplaceProduct)
	productRoutes.Patch("/:id", validation.Handle(validation.ProductID), h.HandleToggleAvailability)
	productRoutes.Delete("/:id", validation.Handle(validation.ProductID), h.HandleDeleteProduct)
}

// HandleGetProducts lists every product, cheapest first.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return h.serverError(c, err, "list products", 0)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": products})
}

// HandleGetProductByID returns a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		return h.failure(c, err, "get product", id)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": product})
}

// HandleCreateProduct creates a new product from name and price.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	body := validation.InputFrom(c).Body
	input := models.ProductInput{
		Name:  validation.Stringify(body[validation.FieldName]),
		Price: validation.Float(body[validation.FieldPrice]),
	}

	product, err := h.service.CreateProduct(c.UserContext(), input)
	if err != nil {
		return h.serverError(c, err, "create product", 0)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": product})
}

// HandleReplaceProduct overwrites name, price and availability.
// Success is reported with 201, like creation.
func (h *ProductHandler) HandleReplaceProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	body := validation.InputFrom(c).Body
	input := models.ProductInput{
		Name:         validation.Stringify(body[validation.FieldName]),
		Price:        validation.Float(body[validation.FieldPrice]),
		Availability: validation.Bool(body[validation.FieldAvailability]),
	}

	product, err := h.service.ReplaceProduct(c.UserContext(), id, input)
	if err != nil {
		return h.failure(c, err, "replace product", id)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": product})
}

// HandleToggleAvailability flips the availability flag.
func (h *ProductHandler) HandleToggleAvailability(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	product, err := h.service.ToggleAvailability(c.UserContext(), id)
	if err != nil {
		return h.failure(c, err, "toggle availability", id)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": product})
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return notFound(c)
	}

	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return h.failure(c, err, "delete product", id)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": msgProductRemoved})
}

// productID parses the validated :id segment. Integers that cannot name a
// stored product report false: zero, negatives and anything past the
// signed 64-bit range of the id column.
func productID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(c.Params("id"), "+"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msgProductNotFound})
}

// failure maps a service error to 404 or 500.
func (h *ProductHandler) failure(c *fiber.Ctx, err error, op string, id uint) error {
	if errors.Is(err, repositories.ErrProductNotFound) {
		return notFound(c)
	}
	return h.serverError(c, err, op, id)
}

func (h *ProductHandler) serverError(c *fiber.Ctx, err error, op string, id uint) error {
	event := h.logger.Error().Err(err).Str("op", op)
	if id != 0 {
		event = event.Uint("product_id", id)
	}
	event.Msg("product request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": msgServerError})
}
