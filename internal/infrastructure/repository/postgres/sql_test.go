package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatalf("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatalf("foreign key violation must not classify as unique violation")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatalf("plain errors must not classify as unique violation")
	}
	wrapped := errors.Join(errors.New("insert identity"), &pq.Error{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected unique violation through wrapping")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("expected not-found for sql.ErrNoRows")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatalf("unexpected not-found classification")
	}
}

func TestNullableString(t *testing.T) {
	if nullableString("") != nil {
		t.Fatalf("empty string must map to nil")
	}
	if v := nullableString("BOS"); v == nil || *v != "BOS" {
		t.Fatalf("unexpected pointer value: %v", v)
	}
}

func TestJSONMapRoundTrip(t *testing.T) {
	if got := encodeJSONMap(nil); got != "{}" {
		t.Fatalf("nil map must encode to {}, got %q", got)
	}
	if got := decodeJSONMap(""); len(got) != 0 {
		t.Fatalf("empty payload must decode to empty map, got %v", got)
	}
	if got := decodeJSONMap("not-json"); len(got) != 0 {
		t.Fatalf("bad payload must decode to empty map, got %v", got)
	}

	decoded := decodeJSONMap(encodeJSONMap(map[string]any{"true_shooting_pct": 0.563}))
	if v, ok := decoded["true_shooting_pct"].(float64); !ok || v != 0.563 {
		t.Fatalf("unexpected round trip value: %v", decoded)
	}
}
