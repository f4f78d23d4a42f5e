// Package selection tracks which product is currently displayed and
// whether a category detail overlay is open. It consumes catalog
// contents and never mutates them.
package selection

import (
	"errors"

	"storefront/internal/domain"
)

var (
	ErrUnknownProduct  = errors.New("product is not in the catalog")
	ErrNoActiveProduct = errors.New("no product is active")
	ErrNotInProduct    = errors.New("category does not belong to the active product")
)

// State names the display mode of the storefront.
type State int

const (
	// Idle means no product is active.
	Idle State = iota
	// ProductActive means one product's categories are displayed.
	ProductActive
	// CategoryOverlay means a modal detail view is open over the active
	// product.
	CategoryOverlay
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ProductActive:
		return "product-active"
	case CategoryOverlay:
		return "category-overlay"
	default:
		return "unknown"
	}
}

// Catalog is the read-only view transitions are validated against. The
// catalog store satisfies it.
type Catalog interface {
	Product(id string) (domain.Product, bool)
}

// Machine is the selection state machine. Initial state is Idle; the
// machine is session-scoped and has no terminal state. It is driven from
// a single logical thread of control and is not safe for concurrent use.
type Machine struct {
	catalog Catalog

	// resetViewport is invoked on entering ProductActive so the
	// presentation layer can scroll the content area back to its origin.
	// The scroll itself is not the machine's concern.
	resetViewport func()

	state      State
	productID  string
	categoryID string
}

// New creates a machine in the Idle state. resetViewport may be nil.
func New(catalog Catalog, resetViewport func()) *Machine {
	return &Machine{catalog: catalog, resetViewport: resetViewport}
}

// SelectProduct activates the product with the given id, closing any
// open overlay. Re-selecting the already active product is a no-op: the
// machine stays in ProductActive and does not toggle back to Idle.
func (m *Machine) SelectProduct(id string) error {
	if _, ok := m.catalog.Product(id); !ok {
		return ErrUnknownProduct
	}
	if m.state == ProductActive && m.productID == id {
		return nil
	}

	m.state = ProductActive
	m.productID = id
	m.categoryID = ""
	if m.resetViewport != nil {
		m.resetViewport()
	}
	return nil
}

// OpenCategory opens the detail overlay for a category of the active
// product. The category must belong to the active product.
func (m *Machine) OpenCategory(categoryID string) error {
	if m.state != ProductActive {
		return ErrNoActiveProduct
	}
	product, ok := m.catalog.Product(m.productID)
	if !ok {
		return ErrUnknownProduct
	}
	if _, ok := product.Category(categoryID); !ok {
		return ErrNotInProduct
	}

	m.state = CategoryOverlay
	m.categoryID = categoryID
	return nil
}

// CloseModal dismisses the category overlay, returning to the active
// product. In any other state it is a no-op.
func (m *Machine) CloseModal() {
	if m.state != CategoryOverlay {
		return
	}
	m.state = ProductActive
	m.categoryID = ""
}

// ProductDeleted clears the selection when the product it references has
// been deleted out from under it, so the machine never points at a
// dangling id. The catalog store does not call this itself; the wiring
// layer does.
func (m *Machine) ProductDeleted(id string) {
	if m.productID != id {
		return
	}
	m.state = Idle
	m.productID = ""
	m.categoryID = ""
}

// State reports the current display mode.
func (m *Machine) State() State {
	return m.state
}

// ActiveProduct returns the active product id, if any.
func (m *Machine) ActiveProduct() (string, bool) {
	if m.state == Idle {
		return "", false
	}
	return m.productID, true
}

// OpenedCategory returns the category shown in the overlay, if one is
// open.
func (m *Machine) OpenedCategory() (string, bool) {
	if m.state != CategoryOverlay {
		return "", false
	}
	return m.categoryID, true
}
