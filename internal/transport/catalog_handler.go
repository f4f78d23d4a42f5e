package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/uploads"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadSize caps a multipart create request body (10 MB).
const maxUploadSize = 10 << 20

// createProductForm carries the multipart fields of a product create
// request.
type createProductForm struct {
	Title string `validate:"required,max=255"`
}

// createCategoryForm carries the multipart fields of a category create
// request.
type createCategoryForm struct {
	Title       string  `validate:"max=255"`
	Description string  `validate:"required"`
	Price       float64 `validate:"gte=0"`
}

// CatalogHandler handles HTTP requests for catalog operations
type CatalogHandler struct {
	repo    repository.CatalogRepository
	uploads *uploads.Store
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(repo repository.CatalogRepository, uploads *uploads.Store, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		repo:    repo,
		uploads: uploads,
		logger:  logger,
	}
}

// RegisterRoutes registers the catalog routes. Listing is public;
// mutations go through the auth middleware and, when provided, the rate
// limiter.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, extra ...func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			for _, mw := range extra {
				r.Use(mw)
			}
			r.Post("/", h.CreateProduct)
			r.Delete("/{productID}", h.DeleteProduct)
			r.Post("/{productID}/categories", h.CreateCategory)
			r.Delete("/{productID}/categories/{categoryID}", h.DeleteCategory)
		})
	})

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", h.uploads.Handler()))
}

// ListProducts returns the full catalog with nested categories in server
// order.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// CreateProduct accepts a multipart form with a title and an optional
// logo file and responds with the created product, id assigned here.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	form := createProductForm{Title: r.FormValue("title")}
	if err := middleware.ValidateRequest(form); err != nil {
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return
	}

	product := &domain.Product{
		ID:    uuid.NewString(),
		Title: form.Title,
	}

	if file, header, err := r.FormFile("logo"); err == nil {
		defer file.Close()
		ref, err := h.uploads.Save(file, header)
		if err != nil {
			h.logger.Error("Failed to store logo", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store logo")
			return
		}
		product.Logo = ref
	}

	if err := h.repo.CreateProduct(r.Context(), product); err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("title", product.Title),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// DeleteProduct removes a product and its categories.
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.repo.FindProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to find product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	if err := h.repo.DeleteProduct(r.Context(), productID); err != nil {
		h.logger.Error("Failed to delete product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	// Image cleanup is best effort; the rows are already gone.
	h.removeImage(product.Logo)
	for _, c := range product.Categories {
		h.removeImage(c.Image)
	}

	h.logger.Info("Product deleted", zap.String("product_id", productID))
	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory accepts a multipart form with title, description, price
// and an image file, appends the category under the parent product, and
// responds with the updated parent.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid price")
		return
	}

	form := createCategoryForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       price,
	}
	if err := middleware.ValidateRequest(form); err != nil {
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return
	}

	if _, err := h.repo.FindProduct(r.Context(), productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to find product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "category image is required")
		return
	}
	defer file.Close()

	ref, err := h.uploads.Save(file, header)
	if err != nil {
		h.logger.Error("Failed to store image", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	category := &domain.Category{
		ID:          uuid.NewString(),
		Title:       form.Title,
		Description: form.Description,
		Price:       form.Price,
		Image:       ref,
	}

	parent, err := h.repo.CreateCategory(r.Context(), productID, category)
	if err != nil {
		h.removeImage(ref)
		h.logger.Error("Failed to create category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	h.logger.Info("Category created",
		zap.String("product_id", productID),
		zap.String("category_id", category.ID),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, parent)
}

// DeleteCategory removes a category scoped to its parent product.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	categoryID := chi.URLParam(r, "categoryID")

	var image string
	if product, err := h.repo.FindProduct(r.Context(), productID); err == nil {
		if category, ok := product.Category(categoryID); ok {
			image = category.Image
		}
	}

	if err := h.repo.DeleteCategory(r.Context(), productID, categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "category not found")
			return
		}
		h.logger.Error("Failed to delete category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	h.removeImage(image)

	h.logger.Info("Category deleted",
		zap.String("product_id", productID),
		zap.String("category_id", categoryID),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) removeImage(ref string) {
	if err := h.uploads.Remove(ref); err != nil {
		h.logger.Warn("Failed to remove upload", zap.String("ref", ref), zap.Error(err))
	}
}
