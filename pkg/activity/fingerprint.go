package activity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type fingerprintLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"q"`
	AddedAt  int64  `json:"a"`
}

type fingerprintDoc struct {
	SessionID string            `json:"s"`
	Cart      []fingerprintLine `json:"c"`
	Views     []string          `json:"v"`
	Searches  []string          `json:"q"`
}

// Fingerprint identifies a (session id, session contents) pair. Snapshot
// fields and LastActivity are excluded so re-sending the same session with a
// refreshed timestamp still matches.
func Fingerprint(sessionID string, session Record) string {
	doc := fingerprintDoc{
		SessionID: sessionID,
		Cart:      make([]fingerprintLine, 0, len(session.Cart)),
		Views:     session.ViewedProducts,
		Searches:  session.SearchHistory,
	}
	for _, line := range session.Cart {
		doc.Cart = append(doc.Cart, fingerprintLine{
			ID:       line.ID,
			Quantity: line.Quantity,
			AddedAt:  line.AddedAt.UTC().Truncate(time.Millisecond).UnixMilli(),
		})
	}
	// Marshal of these plain types cannot fail.
	raw, _ := json.Marshal(doc)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
