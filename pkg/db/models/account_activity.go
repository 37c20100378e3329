package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
)

// AccountActivity is the persisted activity record of one user. The whole row
// is written in a single statement guarded by Version.
type AccountActivity struct {
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;primaryKey"`
	Cart           []activity.CartLine `gorm:"column:cart;type:jsonb;serializer:json;not null"`
	ViewedProducts []string            `gorm:"column:viewed_products;type:jsonb;serializer:json;not null"`
	SearchHistory  []string            `gorm:"column:search_history;type:jsonb;serializer:json;not null"`
	// MergedSessions holds fingerprints of recently applied guest sessions,
	// newest first.
	MergedSessions []string  `gorm:"column:merged_sessions;type:jsonb;serializer:json;not null"`
	LastActivity   time.Time `gorm:"column:last_activity;not null"`
	Version        int64     `gorm:"column:version;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (AccountActivity) TableName() string {
	return "account_activity"
}

// Record converts the row to the domain record.
func (a AccountActivity) Record() activity.Record {
	rec := activity.Record{
		Cart:           a.Cart,
		ViewedProducts: a.ViewedProducts,
		SearchHistory:  a.SearchHistory,
		LastActivity:   a.LastActivity,
	}
	rec.Normalize()
	return rec
}

// Apply copies a domain record onto the row.
func (a *AccountActivity) Apply(rec activity.Record) {
	rec.Normalize()
	a.Cart = rec.Cart
	a.ViewedProducts = rec.ViewedProducts
	a.SearchHistory = rec.SearchHistory
	a.LastActivity = rec.LastActivity
	if a.MergedSessions == nil {
		a.MergedSessions = []string{}
	}
}

// HasMerged reports whether a session fingerprint was already applied.
func (a AccountActivity) HasMerged(fingerprint string) bool {
	for _, fp := range a.MergedSessions {
		if fp == fingerprint {
			return true
		}
	}
	return false
}

// RememberMerge records a fingerprint, keeping at most limit entries.
func (a *AccountActivity) RememberMerge(fingerprint string, limit int) {
	out := make([]string, 0, len(a.MergedSessions)+1)
	out = append(out, fingerprint)
	for _, fp := range a.MergedSessions {
		if fp != fingerprint {
			out = append(out, fp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	a.MergedSessions = out
}
