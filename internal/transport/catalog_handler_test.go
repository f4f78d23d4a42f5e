package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/uploads"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// mockCatalogRepository keeps the catalog in memory for handler tests.
type mockCatalogRepository struct {
	products []domain.Product
}

func (m *mockCatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return domain.CloneAll(m.products), nil
}

func (m *mockCatalogRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			cp := p.Clone()
			return &cp, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockCatalogRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.Categories == nil {
		product.Categories = []domain.Category{}
	}
	m.products = append(m.products, product.Clone())
	return nil
}

func (m *mockCatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockCatalogRepository) CreateCategory(ctx context.Context, productID string, category *domain.Category) (*domain.Product, error) {
	for i := range m.products {
		if m.products[i].ID == productID {
			m.products[i].Categories = append(m.products[i].Categories, *category)
			cp := m.products[i].Clone()
			return &cp, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockCatalogRepository) DeleteCategory(ctx context.Context, productID, categoryID string) error {
	for i := range m.products {
		if m.products[i].ID != productID {
			continue
		}
		for j, c := range m.products[i].Categories {
			if c.ID == categoryID {
				m.products[i].Categories = append(m.products[i].Categories[:j], m.products[i].Categories[j+1:]...)
				return nil
			}
		}
	}
	return repository.ErrCategoryNotFound
}

func newTestRouter(t *testing.T, repo repository.CatalogRepository) *chi.Mux {
	t.Helper()

	uploadStore, err := uploads.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	handler := NewCatalogHandler(repo, uploadStore, logger)

	router := chi.NewRouter()
	handler.RegisterRoutes(router, custommiddleware.AuthMiddleware(testSecret, logger))
	return router
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin"})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	if fileField != "" {
		part, err := form.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		part.Write(fileData)
	}
	form.Close()
	return &body, form.FormDataContentType()
}

func TestListProductsIsPublic(t *testing.T) {
	repo := &mockCatalogRepository{products: []domain.Product{
		{ID: "P1", Title: "Nivea", Categories: []domain.Category{{ID: "C1", Description: "Shampoo", Price: 5}}},
	}}
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var products []domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(products) != 1 || products[0].Categories[0].ID != "C1" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestCreateProductRequiresAuth(t *testing.T) {
	router := newTestRouter(t, &mockCatalogRepository{})

	body, contentType := multipartBody(t, map[string]string{"title": "Persil"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateProductAssignsIDAndStoresLogo(t *testing.T) {
	repo := &mockCatalogRepository{}
	router := newTestRouter(t, repo)

	body, contentType := multipartBody(t, map[string]string{"title": "Persil"}, "logo", "logo.png", []byte{1, 2, 3})
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if created.ID == "" {
		t.Fatal("service must assign the id")
	}
	if created.Logo == "" {
		t.Fatal("logo reference missing from response")
	}
	if len(repo.products) != 1 {
		t.Fatalf("product not persisted: %+v", repo.products)
	}
}

func TestCreateProductMissingTitleIsValidationError(t *testing.T) {
	router := newTestRouter(t, &mockCatalogRepository{})

	body, contentType := multipartBody(t, map[string]string{}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp custommiddleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error.Message != "validation failed" {
		t.Fatalf("unexpected error message: %q", resp.Error.Message)
	}
}

func TestCreateCategoryReturnsUpdatedParent(t *testing.T) {
	repo := &mockCatalogRepository{products: []domain.Product{
		{ID: "P1", Title: "Nivea", Categories: []domain.Category{}},
	}}
	router := newTestRouter(t, repo)

	fields := map[string]string{
		"title":       "Classic",
		"description": "Shampoo",
		"price":       "5.5",
	}
	body, contentType := multipartBody(t, fields, "image", "img.png", []byte{1})
	req := httptest.NewRequest(http.MethodPost, "/api/products/P1/categories", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var parent domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &parent); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if parent.ID != "P1" || len(parent.Categories) != 1 {
		t.Fatalf("expected the updated parent back, got %+v", parent)
	}
	category := parent.Categories[0]
	if category.ID == "" || category.Image == "" || category.Price != 5.5 {
		t.Fatalf("category missing service-assigned fields: %+v", category)
	}
}

func TestCreateCategoryRequiresImage(t *testing.T) {
	repo := &mockCatalogRepository{products: []domain.Product{{ID: "P1", Title: "Nivea"}}}
	router := newTestRouter(t, repo)

	fields := map[string]string{"description": "Shampoo", "price": "5"}
	body, contentType := multipartBody(t, fields, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products/P1/categories", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateCategoryUnknownProductIs404(t *testing.T) {
	router := newTestRouter(t, &mockCatalogRepository{})

	fields := map[string]string{"description": "Shampoo", "price": "5"}
	body, contentType := multipartBody(t, fields, "image", "img.png", []byte{1})
	req := httptest.NewRequest(http.MethodPost, "/api/products/nope/categories", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteProduct(t *testing.T) {
	repo := &mockCatalogRepository{products: []domain.Product{{ID: "P1", Title: "Nivea"}}}
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/products/P1", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(repo.products) != 0 {
		t.Fatalf("product not deleted: %+v", repo.products)
	}
}

func TestDeleteCategoryScopedToParent(t *testing.T) {
	repo := &mockCatalogRepository{products: []domain.Product{
		{ID: "P1", Title: "Nivea", Categories: []domain.Category{{ID: "C1", Description: "Shampoo", Price: 5}}},
		{ID: "P2", Title: "Fa", Categories: []domain.Category{{ID: "C2", Description: "Gel", Price: 3}}},
	}}
	router := newTestRouter(t, repo)

	// C2 belongs to P2, not P1.
	req := httptest.NewRequest(http.MethodDelete, "/api/products/P1/categories/C2", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for category outside the parent, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/products/P1/categories/C1", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(repo.products[0].Categories) != 0 {
		t.Fatalf("category not deleted: %+v", repo.products[0].Categories)
	}
}
