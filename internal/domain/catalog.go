package domain

// Product is a brand grouping in the catalog. Ids are assigned by the
// remote catalog service; a Product never exists locally before the
// service has confirmed it.
type Product struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Logo       string     `json:"logo,omitempty"`
	Categories []Category `json:"categories"`
}

// Category is an orderable item that belongs to exactly one Product.
// It is never represented detached from its parent.
type Category struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
}

// CategoryDraft carries the operator-submitted fields for a new category.
// The service echoes back the authoritative representation; the draft is
// never stored locally.
type CategoryDraft struct {
	Title       string  `validate:"max=255"`
	Description string  `validate:"required"`
	Price       float64 `validate:"gte=0"`
}

// Upload is an opaque image payload attached to a create request. The
// catalog core never inspects the bytes; it only tracks the filename
// reference the service derives from them.
type Upload struct {
	Filename string
	Data     []byte
}

// Category returns the category with the given id, if the product contains it.
func (p *Product) Category(id string) (Category, bool) {
	for _, c := range p.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Clone returns a deep copy so callers cannot alias the original's
// categories slice.
func (p Product) Clone() Product {
	cp := p
	if p.Categories != nil {
		cp.Categories = make([]Category, len(p.Categories))
		copy(cp.Categories, p.Categories)
	}
	return cp
}

// CloneAll deep-copies a product list.
func CloneAll(products []Product) []Product {
	if products == nil {
		return nil
	}
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
