package activity

import "time"

// MergeStats summarises what a merge changed.
type MergeStats struct {
	LinesCombined int  `json:"linesCombined"`
	LinesAdded    int  `json:"linesAdded"`
	ViewsAdded    int  `json:"viewsAdded"`
	SearchesAdded int  `json:"searchesAdded"`
	Noop          bool `json:"noop"`
}

// Merge folds a guest session record into an account record.
//
// A nil account is treated as an empty record stamped at now. An empty session
// returns the account unchanged, LastActivity included.
//
// Cart lines sharing an id have their quantities summed, capped at
// MaxLineQuantity, and keep the later AddedAt. Lines only present in the session are appended in session order.
// Views and searches not already in the account are prepended in session order
// and the result is truncated to its cap, dropping the oldest entries.
//
// Merge is additive: applying the same session twice counts its quantities
// twice. Callers that need replay safety must guard at a higher level.
func Merge(account *Record, session Record, now time.Time) (Record, MergeStats) {
	var base Record
	if account == nil {
		base = Empty(now)
	} else {
		base = account.Clone()
	}
	base.Normalize()

	if session.IsEmpty() {
		return base, MergeStats{Noop: true}
	}

	var stats MergeStats
	base.Cart, stats.LinesCombined, stats.LinesAdded = mergeCart(base.Cart, session.Cart)
	base.ViewedProducts, stats.ViewsAdded = prependUnique(base.ViewedProducts, session.ViewedProducts, MaxViewedProducts)
	base.SearchHistory, stats.SearchesAdded = prependUnique(base.SearchHistory, session.SearchHistory, MaxSearchHistory)
	base.LastActivity = now

	return base, stats
}

func mergeCart(account, session []CartLine) ([]CartLine, int, int) {
	out := append(make([]CartLine, 0, len(account)+len(session)), account...)
	index := make(map[string]int, len(out))
	for i, line := range out {
		index[line.ID] = i
	}

	combined, added := 0, 0
	for _, line := range session {
		if i, ok := index[line.ID]; ok {
			out[i].Quantity = addQuantity(out[i].Quantity, line.Quantity)
			if line.AddedAt.After(out[i].AddedAt) {
				out[i].AddedAt = line.AddedAt
			}
			combined++
			continue
		}
		index[line.ID] = len(out)
		out = append(out, line)
		added++
	}
	return out, combined, added
}

// prependUnique places the items of incoming that are absent from existing in
// front of existing, keeping incoming order, then caps the result.
func prependUnique(existing, incoming []string, limit int) ([]string, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, item := range existing {
		seen[item] = struct{}{}
	}

	fresh := make([]string, 0, len(incoming))
	for _, item := range incoming {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		fresh = append(fresh, item)
	}

	out := append(fresh, existing...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, len(fresh)
}
