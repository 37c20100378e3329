package shopper

import (
	"context"
	"strings"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

type mutation func(rec *activity.Record, now time.Time) error

// AddProduct looks the product up and adds one unit, snapshotting its title,
// price and first image.
func (s *Shopper) AddProduct(ctx context.Context, productID string) (activity.Record, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return activity.Record{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	p, err := s.api.Product(ctx, productID)
	if err != nil {
		return activity.Record{}, err
	}
	line := activity.CartLine{ID: p.ID, Title: p.Title, Price: p.Price, Quantity: 1}
	if len(p.Images) > 0 {
		line.Image = p.Images[0]
	}
	return s.AddToCart(ctx, line)
}

func (s *Shopper) AddToCart(ctx context.Context, line activity.CartLine) (activity.Record, error) {
	return s.mutateCart(ctx, func(rec *activity.Record, now time.Time) error {
		rec.AddToCart(line, now)
		return nil
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *Shopper) UpdateQuantity(ctx context.Context, productID string, quantity int) (activity.Record, error) {
	return s.mutateCart(ctx, func(rec *activity.Record, now time.Time) error {
		if !rec.UpdateQuantity(productID, quantity, now) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s is not in the cart", productID)
		}
		return nil
	})
}

func (s *Shopper) RemoveFromCart(ctx context.Context, productID string) (activity.Record, error) {
	return s.mutateCart(ctx, func(rec *activity.Record, now time.Time) error {
		if !rec.RemoveFromCart(productID, now) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s is not in the cart", productID)
		}
		return nil
	})
}

func (s *Shopper) ClearCart(ctx context.Context) (activity.Record, error) {
	return s.mutateCart(ctx, func(rec *activity.Record, now time.Time) error {
		rec.ClearCart(now)
		return nil
	})
}

// TrackView records a product view in the active view.
func (s *Shopper) TrackView(ctx context.Context, productID string) (activity.Record, error) {
	return s.mutateLocal(func(rec *activity.Record, now time.Time) error {
		if !rec.TrackView(productID, now) {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		return nil
	})
}

// TrackSearch records a search; blank queries are rejected.
func (s *Shopper) TrackSearch(ctx context.Context, query string) (activity.Record, error) {
	return s.mutateLocal(func(rec *activity.Record, now time.Time) error {
		if !rec.TrackSearch(query, now) {
			return pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
		}
		return nil
	})
}

// mutateCart applies fn to the guest session, or, when signed in, to a copy
// of the account view which is then pushed with Cart Sync. The server's
// answer replaces the account view; on failure nothing local changes.
func (s *Shopper) mutateCart(ctx context.Context, fn mutation) (activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.Credentials()
	if err != nil {
		return activity.Record{}, err
	}
	if creds == nil {
		return s.store.Update(fn)
	}

	view, err := s.accountView()
	if err != nil {
		return activity.Record{}, err
	}
	next := view.Clone()
	if err := fn(&next, s.now()); err != nil {
		return activity.Record{}, err
	}

	var synced activity.Record
	err = s.withToken(ctx, creds, func(token string) error {
		var callErr error
		synced, callErr = s.api.SyncCart(ctx, token, next.Cart)
		return callErr
	})
	if err != nil {
		return activity.Record{}, err
	}
	// Views and searches made while signed in live only in the local view.
	synced.ViewedProducts = next.ViewedProducts
	synced.SearchHistory = next.SearchHistory
	if err := s.setAccountView(synced); err != nil {
		return activity.Record{}, err
	}
	return synced, nil
}

func (s *Shopper) mutateLocal(fn mutation) (activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.Credentials()
	if err != nil {
		return activity.Record{}, err
	}
	if creds == nil {
		return s.store.Update(fn)
	}
	view, err := s.accountView()
	if err != nil {
		return activity.Record{}, err
	}
	if err := fn(&view, s.now()); err != nil {
		return activity.Record{}, err
	}
	if err := s.setAccountView(view); err != nil {
		return activity.Record{}, err
	}
	return view, nil
}
