package models

import (
	"testing"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
)

func TestRememberMergeKeepsNewestAndCaps(t *testing.T) {
	var row AccountActivity
	row.RememberMerge("a", 2)
	row.RememberMerge("b", 2)
	row.RememberMerge("c", 2)

	if len(row.MergedSessions) != 2 || row.MergedSessions[0] != "c" || row.MergedSessions[1] != "b" {
		t.Fatalf("unexpected fingerprints %v", row.MergedSessions)
	}
	if row.HasMerged("a") {
		t.Fatal("evicted fingerprint still reported")
	}
	if !row.HasMerged("b") {
		t.Fatal("expected b to be remembered")
	}
}

func TestApplyAndRecordRoundTrip(t *testing.T) {
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	var row AccountActivity
	row.Apply(activity.Record{SearchHistory: []string{"tv"}, LastActivity: at})

	rec := row.Record()
	if rec.Cart == nil || rec.ViewedProducts == nil {
		t.Fatal("expected normalized slices")
	}
	if len(rec.SearchHistory) != 1 || !rec.LastActivity.Equal(at) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if row.MergedSessions == nil {
		t.Fatal("expected merged sessions initialised")
	}
}
