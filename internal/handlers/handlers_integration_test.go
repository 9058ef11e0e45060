package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"productmanager/internal/config"
	"productmanager/internal/handlers"
	"productmanager/internal/models"
	"productmanager/internal/repositories"
	"productmanager/internal/server"
	"productmanager/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorsResponse struct {
	Errors []struct {
		Msg      string `json:"msg"`
		Path     string `json:"path"`
		Location string `json:"location"`
	} `json:"errors"`
}

type notFoundResponse struct {
	Error string `json:"error"`
}

// setupApp sets up a Fiber app backed by an in-memory SQLite database.
func setupApp(t *testing.T) (*fiber.App, repositories.ProductRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repositories.NewGORMProductRepository(db)
	return newApp(repo), repo
}

func newApp(repo repositories.ProductRepository) *fiber.App {
	productService := services.NewProductService(repo, nil, "products", zerolog.Nop())
	productHandler := handlers.NewProductHandler(productService, zerolog.Nop())
	return server.New(config.ServerConfig{FrontEndURL: "*"}, productHandler, zerolog.Nop())
}

// seedProductsForTest populates the product repository for tests.
func seedProductsForTest(t *testing.T, repo repositories.ProductRepository) []models.Product {
	t.Helper()
	products := []models.Product{
		{Name: "Test Laptop", Price: 1000.00, Availability: true},
		{Name: "Test Monitor", Price: 200.00, Availability: true},
		{Name: "Test Mouse", Price: 20.00, Availability: true},
	}
	for i := range products {
		require.NoError(t, repo.Create(context.Background(), &products[i]))
	}
	return products
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeProduct(t *testing.T, resp *http.Response) models.Product {
	t.Helper()
	body := decode[dataResponse](t, resp)
	var product models.Product
	require.NoError(t, json.Unmarshal(body.Data, &product))
	return product
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/products", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, decode[errorsResponse](t, resp).Errors, 4)

	resp = doRequest(t, app, http.MethodPost, "/api/products", map[string]any{
		"name":  "Screen Curve 65 UHD test price",
		"price": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := decode[errorsResponse](t, resp).Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid price", errs[0].Msg)

	resp = doRequest(t, app, http.MethodPost, "/api/products", map[string]any{
		"name":  "Screen Curve 65 UHD test price",
		"price": "Hola",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, decode[errorsResponse](t, resp).Errors, 2)
}

func TestCreateProduct(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/products", map[string]any{
		"name":  "Screen Curve 65 UHD testing",
		"price": 499.99,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	product := decodeProduct(t, resp)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "Screen Curve 65 UHD testing", product.Name)
	assert.Equal(t, 499.99, product.Price)
	assert.True(t, product.Availability)
}

func TestCreateProduct_LeadingDotPrice(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/products", map[string]any{"name": "Cable", "price": ".5"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 0.5, decodeProduct(t, resp).Price)
}

func TestReplaceProduct_RejectsLooseBooleans(t *testing.T) {
	app, repo := setupApp(t)
	seeded := seedProductsForTest(t, repo)
	path := fmt.Sprintf("/api/products/%d", seeded[0].ID)

	for _, value := range []string{"T", "True", "f"} {
		resp := doRequest(t, app, http.MethodPut, path, map[string]any{
			"name": "Curve UHD 42", "price": 599.99, "availability": value,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "availability %q", value)
	}

	resp := doRequest(t, app, http.MethodPut, path, map[string]any{
		"name": "Curve UHD 42", "price": 599.99, "availability": "0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, decodeProduct(t, resp).Availability)
}

func TestGetProducts(t *testing.T) {
	app, repo := setupApp(t)
	seedProductsForTest(t, repo)

	resp := doRequest(t, app, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "json")

	body := decode[dataResponse](t, resp)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &products))
	require.Len(t, products, 3)

	var prices []float64
	for _, p := range products {
		prices = append(prices, p["price"].(float64))
		assert.NotContains(t, p, "createdAt")
		assert.NotContains(t, p, "updatedAt")
	}
	assert.Equal(t, []float64{20, 200, 1000}, prices)
}

func TestGetProducts_Empty(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(decode[dataResponse](t, resp).Data))
}

func TestGetProductByID(t *testing.T) {
	app, repo := setupApp(t)
	seeded := seedProductsForTest(t, repo)

	resp := doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/products/%d", seeded[0].ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	product := decodeProduct(t, resp)
	assert.Equal(t, seeded[0].ID, product.ID)
	assert.Equal(t, "Test Laptop", product.Name)
	assert.False(t, product.CreatedAt.IsZero())
}

func TestGetProductByID_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/products/2000", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", decode[notFoundResponse](t, resp).Error)
}

func TestInvalidID(t *testing.T) {
	app, _ := setupApp(t)
	validBody := map[string]any{"name": "Curve UHD 42", "price": 599.99, "availability": true}

	tests := []struct {
		method string
		body   any
	}{
		{method: http.MethodGet},
		{method: http.MethodPut, body: validBody},
		{method: http.MethodPatch},
		{method: http.MethodDelete},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := doRequest(t, app, tt.method, "/api/products/not-valid-url", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			errs := decode[errorsResponse](t, resp).Errors
			require.Len(t, errs, 1)
			assert.Equal(t, "Invalid ID", errs[0].Msg)
			assert.Equal(t, "params", errs[0].Location)
		})
	}
}

func TestNegativeID_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/products/-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnstorableID_NotFound(t *testing.T) {
	app, _ := setupApp(t)
	body := map[string]any{"name": "Curve UHD 42", "price": 599.99, "availability": true}

	for _, id := range []string{"0", "9223372036854775808", "18446744073709551616"} {
		path := "/api/products/" + id
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			var payload any
			if method == http.MethodPut {
				payload = body
			}
			resp := doRequest(t, app, method, path, payload)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", method, path)
			assert.Equal(t, "Product not found", decode[notFoundResponse](t, resp).Error)
		}
	}
}

func TestReplaceProduct_ValidationErrors(t *testing.T) {
	app, repo := setupApp(t)
	seeded := seedProductsForTest(t, repo)
	path := fmt.Sprintf("/api/products/%d", seeded[0].ID)

	resp := doRequest(t, app, http.MethodPut, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, decode[errorsResponse](t, resp).Errors, 5)

	resp = doRequest(t, app, http.MethodPut, path, map[string]any{
		"name":         "Curve UHD 42",
		"price":        -599.99,
		"availability": true,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := decode[errorsResponse](t, resp).Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid price", errs[0].Msg)
}

func TestReplaceProduct(t *testing.T) {
	app, repo := setupApp(t)
	seeded := seedProductsForTest(t, repo)

	resp := doRequest(t, app, http.MethodPut, fmt.Sprintf("/api/products/%d", seeded[1].ID), map[string]any{
		"name":         "Curve UHD 42",
		"price":        599.99,
		"availability": false,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	product := decodeProduct(t, resp)
	assert.Equal(t, seeded[1].ID, product.ID)
	assert.Equal(t, "Curve UHD 42", product.Name)
	assert.Equal(t, 599.99, product.Price)
	assert.False(t, product.Availability)

	stored, err := repo.GetByID(context.Background(), seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Curve UHD 42", stored.Name)
	assert.False(t, stored.Availability)
}

func TestReplaceProduct_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodPut, "/api/products/1000", map[string]any{
		"name":         "Curve UHD 42",
		"price":        599.99,
		"availability": true,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", decode[notFoundResponse](t, resp).Error)
}

func TestToggleAvailability(t *testing.T) {
	app, repo := setupApp(t)
	seeded := seedProductsForTest(t, repo)
	path := fmt.Sprintf("/api/products/%d", seeded[0].ID)

	resp := doRequest(t, app, http.MethodPatch, path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	product := decodeProduct(t, resp)
	assert.False(t, product.Availability)
	assert.Equal(t, seeded[0].Name, product.Name)
	assert.Equal(t, seeded[0].Price, product.Price)

	resp = doRequest(t, app, http.MethodPatch, path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeProduct(t, resp).Availability)
}

func TestToggleAvailability_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodPatch, "/api/products/2000", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", decode[notFoundResponse](t, resp).Error)
}

func TestDeleteProduct(t *testing.T) {
	app, repo := setupApp(t)
	seeded := seedProductsForTest(t, repo)
	path := fmt.Sprintf("/api/products/%d", seeded[0].ID)

	resp := doRequest(t, app, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `"The product has been removed"`, string(decode[dataResponse](t, resp).Data))

	resp = doRequest(t, app, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodDelete, "/api/products/5", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", decode[notFoundResponse](t, resp).Error)
}

func TestProductLifecycle(t *testing.T) {
	app, _ := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/products", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, decode[errorsResponse](t, resp).Errors, 4)

	resp = doRequest(t, app, http.MethodPost, "/api/products", map[string]any{"name": "X", "price": 499.99})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeProduct(t, resp)
	assert.Equal(t, 499.99, created.Price)
	path := fmt.Sprintf("/api/products/%d", created.ID)

	resp = doRequest(t, app, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeProduct(t, resp)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, created.Price, fetched.Price)
	assert.True(t, fetched.Availability)

	resp = doRequest(t, app, http.MethodPatch, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeProduct(t, resp).Availability)

	resp = doRequest(t, app, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPersistenceFailure_ReturnsServerError(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	app := newApp(repositories.NewGORMProductRepository(db))

	// Closing the pool makes every query fail.
	require.NoError(t, sqlDB.Close())

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{method: http.MethodGet, path: "/api/products"},
		{method: http.MethodGet, path: "/api/products/1"},
		{method: http.MethodPost, path: "/api/products", body: map[string]any{"name": "X", "price": 10}},
		{method: http.MethodPut, path: "/api/products/1", body: map[string]any{"name": "X", "price": 10, "availability": true}},
		{method: http.MethodPatch, path: "/api/products/1"},
		{method: http.MethodDelete, path: "/api/products/1"},
	}

	for _, r := range requests {
		resp := doRequest(t, app, r.method, r.path, r.body)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, "%s %s", r.method, r.path)
		body := decode[map[string]any](t, resp)
		assert.Equal(t, "Server error", body["message"])
		assert.NotContains(t, body, "error")
	}
}

func TestMemoryRepositoryBackend(t *testing.T) {
	app := newApp(repositories.NewMemoryProductRepository())

	resp := doRequest(t, app, http.MethodPost, "/api/products", map[string]any{"name": "Keyboard", "price": "75"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeProduct(t, resp)
	assert.Equal(t, 75.0, created.Price)

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := newApp(repositories.NewMemoryProductRepository())

	resp := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]any](t, resp)["status"])

	resp = doRequest(t, app, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode[map[string]any](t, resp), "message")
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	productService := services.NewProductService(repositories.NewMemoryProductRepository(), nil, "products", zerolog.Nop())
	productHandler := handlers.NewProductHandler(productService, zerolog.Nop())
	app := server.New(config.ServerConfig{FrontEndURL: "http://front.example"}, productHandler, zerolog.Nop())

	tests := []struct {
		origin string
		want   string
	}{
		{origin: "http://front.example", want: "http://front.example"},
		{origin: "http://evil.example", want: ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", tt.origin)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, "origin %s", tt.origin)
		assert.Equal(t, tt.want, resp.Header.Get("Access-Control-Allow-Origin"), "origin %s", tt.origin)
	}
}
