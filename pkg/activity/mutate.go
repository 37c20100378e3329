package activity

import (
	"strings"
	"time"
)

// AddToCart adds quantity units of the product. An existing line has its
// quantity increased and keeps its snapshot; a new line is appended with
// AddedAt set to now. Quantities are held within [1, MaxLineQuantity].
func (r *Record) AddToCart(line CartLine, now time.Time) {
	qty := clampQuantity(line.Quantity)
	for i := range r.Cart {
		if r.Cart[i].ID == line.ID {
			r.Cart[i].Quantity = addQuantity(r.Cart[i].Quantity, qty)
			r.LastActivity = now
			return
		}
	}
	line.Quantity = qty
	line.AddedAt = now
	r.Cart = append(r.Cart, line)
	r.LastActivity = now
}

// UpdateQuantity sets the quantity of a line, capped at MaxLineQuantity. Zero
// or negative removes it.
// Returns false when no line has that id.
func (r *Record) UpdateQuantity(id string, quantity int, now time.Time) bool {
	if quantity <= 0 {
		return r.RemoveFromCart(id, now)
	}
	for i := range r.Cart {
		if r.Cart[i].ID == id {
			r.Cart[i].Quantity = clampQuantity(quantity)
			r.LastActivity = now
			return true
		}
	}
	return false
}

func (r *Record) RemoveFromCart(id string, now time.Time) bool {
	for i := range r.Cart {
		if r.Cart[i].ID == id {
			r.Cart = append(r.Cart[:i], r.Cart[i+1:]...)
			r.LastActivity = now
			return true
		}
	}
	return false
}

// ReplaceCart swaps the whole cart. Views and searches are untouched.
func (r *Record) ReplaceCart(lines []CartLine, now time.Time) {
	r.Cart = append(make([]CartLine, 0, len(lines)), lines...)
	r.LastActivity = now
}

func (r *Record) ClearCart(now time.Time) {
	r.ReplaceCart(nil, now)
}

// TrackView moves productID to the front of the viewed list.
func (r *Record) TrackView(productID string, now time.Time) bool {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false
	}
	r.ViewedProducts = moveToFront(r.ViewedProducts, productID, MaxViewedProducts)
	r.LastActivity = now
	return true
}

// TrackSearch moves the trimmed query to the front of the search history.
func (r *Record) TrackSearch(query string, now time.Time) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}
	r.SearchHistory = moveToFront(r.SearchHistory, query, MaxSearchHistory)
	r.LastActivity = now
	return true
}

func moveToFront(list []string, item string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, item)
	for _, existing := range list {
		if existing == item {
			continue
		}
		out = append(out, existing)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
