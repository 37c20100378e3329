package pagination

import (
	"testing"
	"time"
)

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit {
		t.Fatalf("expected default limit")
	}
	if NormalizeLimit(MaxLimit+10) != MaxLimit {
		t.Fatalf("expected max limit")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffered limit")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 7, 1, 8, 0, 0, 123, time.UTC)
	encoded := EncodeCursor(Cursor{CreatedAt: at, ID: "sku-1|a"})

	decoded, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !decoded.CreatedAt.Equal(at) || decoded.ID != "sku-1|a" {
		t.Fatalf("unexpected cursor %+v", decoded)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); c != nil || err != nil {
		t.Fatalf("empty cursor should be nil, nil")
	}
	if _, err := ParseCursor("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
}
