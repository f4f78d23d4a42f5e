package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"storefront/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrLoad reports a failed catalog listing. The previous local state
	// is left untouched.
	ErrLoad = errors.New("catalog load failed")

	// ErrValidation reports a precondition caught before any request was
	// sent to the service.
	ErrValidation = errors.New("validation failed")

	// ErrMutation reports a create or delete the service rejected or that
	// failed in transit. No distinction between the two is surfaced.
	ErrMutation = errors.New("catalog mutation failed")

	// ErrBusy reports a create submitted while the same form already has
	// a request in flight.
	ErrBusy = errors.New("a submission is already in flight")
)

// Validator instance shared by all stores
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Service is the remote catalog authority the store synchronizes with.
// *client.Client satisfies it; tests substitute fakes.
type Service interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, title string, logo *domain.Upload) (domain.Product, error)
	CreateCategory(ctx context.Context, productID string, draft domain.CategoryDraft, image domain.Upload) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	DeleteCategory(ctx context.Context, productID, categoryID string) error
}

// ConfirmFunc gates destructive operations. It blocks until the user
// answers; returning false abandons the operation before any request is
// sent. Injected so the store stays testable without a real UI.
type ConfirmFunc func(prompt string) bool

// Store holds the in-memory product list and performs all create/delete
// synchronization with the remote service. Nothing enters or leaves the
// list without service confirmation: the state visible to callers changes
// only after a successful response (confirm-then-apply), so no rollback
// path exists or is needed.
//
// The mutex guards only the merge of a completed response, never a
// request in flight. Mutations therefore apply in completion order, not
// issue order; concurrent mutations targeting the same product are
// unordered and the last-applied response wins.
type Store struct {
	svc     Service
	confirm ConfirmFunc
	logger  *zap.Logger

	// onProductCreated hands a freshly created product off to the
	// selection layer. Optional.
	onProductCreated func(id string)

	mu       sync.Mutex
	products []domain.Product

	productForm  gate
	categoryForm gate
}

// New creates an empty store synchronizing through svc. confirm may be
// nil, in which case deletions proceed without a gate.
func New(svc Service, confirm ConfirmFunc, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		svc:     svc,
		confirm: confirm,
		logger:  logger,
	}
}

// OnProductCreated registers the hook invoked after a product has been
// created and merged. Call once during wiring, before the store is used.
func (s *Store) OnProductCreated(fn func(id string)) {
	s.onProductCreated = fn
}

// Load fetches the full catalog and replaces the local list with the
// fetched sequence, preserving server order. On failure the prior list is
// untouched; the caller may simply re-invoke.
func (s *Store) Load(ctx context.Context) error {
	products, err := s.svc.ListProducts(ctx)
	if err != nil {
		s.logger.Error("Catalog load failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()

	s.logger.Info("Catalog loaded", zap.Int("products", len(products)))
	return nil
}

// CreateProduct submits a new product and, on success, appends the
// service-returned representation verbatim to the end of the list. The
// logo is optional. A second submission while one is pending is rejected
// with ErrBusy; the guard is the product form's own, not a store-wide
// lock.
func (s *Store) CreateProduct(ctx context.Context, title string, logo *domain.Upload) (domain.Product, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Product{}, fmt.Errorf("%w: product title is required", ErrValidation)
	}

	if !s.productForm.tryAcquire() {
		return domain.Product{}, ErrBusy
	}
	defer s.productForm.release()

	created, err := s.svc.CreateProduct(ctx, title, logo)
	if err != nil {
		s.logger.Error("Product creation failed", zap.String("title", title), zap.Error(err))
		return domain.Product{}, fmt.Errorf("%w: %v", ErrMutation, err)
	}

	s.mu.Lock()
	s.products = append(s.products, created)
	s.mu.Unlock()

	s.logger.Info("Product created",
		zap.String("product_id", created.ID),
		zap.String("title", created.Title),
	)

	if s.onProductCreated != nil {
		s.onProductCreated(created.ID)
	}
	return created.Clone(), nil
}

// DeleteProduct removes a product after the confirmation gate passes and
// the service acknowledges the deletion. A declined confirmation is a
// silent no-op. Clearing a selection that pointed at the deleted product
// is the caller's responsibility; the store knows nothing about selection
// state.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := s.Product(id); !ok {
		return fmt.Errorf("%w: unknown product %q", ErrValidation, id)
	}

	if s.confirm != nil && !s.confirm("Delete this product?") {
		s.logger.Debug("Product deletion cancelled", zap.String("product_id", id))
		return nil
	}

	if err := s.svc.DeleteProduct(ctx, id); err != nil {
		s.logger.Error("Product deletion failed", zap.String("product_id", id), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMutation, err)
	}

	s.mu.Lock()
	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.products = kept
	s.mu.Unlock()

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// CreateCategory submits a new category under the named product. The
// service responds with the updated parent product; the store replaces
// its copy in place by id rather than splicing the draft in locally, so
// service-assigned fields (id, stored image filename) can never drift.
func (s *Store) CreateCategory(ctx context.Context, productID string, draft domain.CategoryDraft, image domain.Upload) (domain.Product, error) {
	if _, ok := s.Product(productID); !ok {
		return domain.Product{}, fmt.Errorf("%w: unknown product %q", ErrValidation, productID)
	}
	if err := validate.Struct(draft); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(image.Data) == 0 {
		return domain.Product{}, fmt.Errorf("%w: category image is required", ErrValidation)
	}

	if !s.categoryForm.tryAcquire() {
		return domain.Product{}, ErrBusy
	}
	defer s.categoryForm.release()

	parent, err := s.svc.CreateCategory(ctx, productID, draft, image)
	if err != nil {
		s.logger.Error("Category creation failed", zap.String("product_id", productID), zap.Error(err))
		return domain.Product{}, fmt.Errorf("%w: %v", ErrMutation, err)
	}

	// Replace in place by id. If the product vanished while the request
	// was in flight the merge is a no-op: responses apply in completion
	// order and nothing re-adds a product the list no longer holds.
	s.mu.Lock()
	for i := range s.products {
		if s.products[i].ID == parent.ID {
			s.products[i] = parent
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("Category created",
		zap.String("product_id", parent.ID),
		zap.Int("categories", len(parent.Categories)),
	)
	return parent.Clone(), nil
}

// DeleteCategory removes a category from its parent's sequence once the
// service confirms the deletion. The removal is applied locally; no full
// refetch of the parent is needed.
func (s *Store) DeleteCategory(ctx context.Context, productID, categoryID string) error {
	parent, ok := s.Product(productID)
	if !ok {
		return fmt.Errorf("%w: unknown product %q", ErrValidation, productID)
	}
	if _, ok := parent.Category(categoryID); !ok {
		return fmt.Errorf("%w: product %q has no category %q", ErrValidation, productID, categoryID)
	}

	if s.confirm != nil && !s.confirm("Delete this category?") {
		s.logger.Debug("Category deletion cancelled",
			zap.String("product_id", productID),
			zap.String("category_id", categoryID),
		)
		return nil
	}

	if err := s.svc.DeleteCategory(ctx, productID, categoryID); err != nil {
		s.logger.Error("Category deletion failed",
			zap.String("product_id", productID),
			zap.String("category_id", categoryID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrMutation, err)
	}

	s.mu.Lock()
	for i := range s.products {
		if s.products[i].ID != productID {
			continue
		}
		kept := make([]domain.Category, 0, len(s.products[i].Categories))
		for _, c := range s.products[i].Categories {
			if c.ID != categoryID {
				kept = append(kept, c)
			}
		}
		s.products[i].Categories = kept
		break
	}
	s.mu.Unlock()

	s.logger.Info("Category deleted",
		zap.String("product_id", productID),
		zap.String("category_id", categoryID),
	)
	return nil
}

// Products returns a deep-copied snapshot of the list in server order.
func (s *Store) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAll(s.products)
}

// Product returns a deep copy of the product with the given id.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.Product{}, false
}

// gate is a per-form submit guard: at most one create request per form is
// ever in flight. Deliberately not a store-wide lock.
type gate struct {
	mu   sync.Mutex
	busy bool
}

func (g *gate) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

func (g *gate) release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}
