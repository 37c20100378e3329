package activity

import "time"

const (
	MaxViewedProducts = 50
	MaxSearchHistory  = 20

	// MaxLineQuantity caps a single cart line. Keep in sync with the
	// CartLine.Quantity validate tag.
	MaxLineQuantity = 999
)

// CartLine is one product in a cart. Title, Price and Image are a display
// snapshot taken when the line was first added and are never refreshed.
type CartLine struct {
	ID       string    `json:"id" validate:"required,max=128"`
	Title    string    `json:"title" validate:"max=512"`
	Price    float64   `json:"price" validate:"gte=0"`
	Image    string    `json:"image,omitempty" validate:"max=2048"`
	Quantity int       `json:"quantity" validate:"min=1,max=999"`
	AddedAt  time.Time `json:"addedAt"`
}

// Record is the activity state attached to either a guest session or an
// account. ViewedProducts and SearchHistory are most-recent-first.
type Record struct {
	Cart           []CartLine `json:"cart" validate:"dive"`
	ViewedProducts []string   `json:"viewedProducts" validate:"dive,required,max=128"`
	SearchHistory  []string   `json:"searchHistory" validate:"dive,required,max=256"`
	LastActivity   time.Time  `json:"lastActivity"`
}

// Empty returns a record with no activity, stamped at now.
func Empty(now time.Time) Record {
	return Record{
		Cart:           []CartLine{},
		ViewedProducts: []string{},
		SearchHistory:  []string{},
		LastActivity:   now,
	}
}

// IsEmpty reports whether the record carries no cart lines, views or searches.
// LastActivity is ignored.
func (r Record) IsEmpty() bool {
	return len(r.Cart) == 0 && len(r.ViewedProducts) == 0 && len(r.SearchHistory) == 0
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := Record{LastActivity: r.LastActivity}
	out.Cart = append(make([]CartLine, 0, len(r.Cart)), r.Cart...)
	out.ViewedProducts = append(make([]string, 0, len(r.ViewedProducts)), r.ViewedProducts...)
	out.SearchHistory = append(make([]string, 0, len(r.SearchHistory)), r.SearchHistory...)
	return out
}

// Normalize replaces nil slices with empty ones so the record always encodes
// lists as [] rather than null.
func (r *Record) Normalize() {
	if r.Cart == nil {
		r.Cart = []CartLine{}
	}
	if r.ViewedProducts == nil {
		r.ViewedProducts = []string{}
	}
	if r.SearchHistory == nil {
		r.SearchHistory = []string{}
	}
}

// Line returns the cart line with the given product id.
func (r Record) Line(id string) (CartLine, bool) {
	for _, line := range r.Cart {
		if line.ID == id {
			return line, true
		}
	}
	return CartLine{}, false
}

// clampQuantity keeps a line quantity within [1, MaxLineQuantity].
func clampQuantity(qty int) int {
	switch {
	case qty < 1:
		return 1
	case qty > MaxLineQuantity:
		return MaxLineQuantity
	}
	return qty
}

// addQuantity sums two line quantities without leaving [1, MaxLineQuantity].
// Operands are clamped first so the sum cannot overflow.
func addQuantity(a, b int) int {
	return clampQuantity(clampQuantity(a) + clampQuantity(b))
}

// ItemCount is the total quantity across all cart lines.
func (r Record) ItemCount() int {
	total := 0
	for _, line := range r.Cart {
		total += line.Quantity
	}
	return total
}
