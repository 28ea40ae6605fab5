package identity

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"LeBron James", "lebron james"},
		{"  LeBron   James  ", "lebron james"},
		{"BOSTON CELTICS", "boston celtics"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeKey(tc.raw); got != tc.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestCompositeKey(t *testing.T) {
	got := CompositeKey("2025-01-10", "Boston  Celtics", "LA Lakers")
	want := "2025-01-10|boston celtics|la lakers"
	if got != want {
		t.Fatalf("CompositeKey = %q, want %q", got, want)
	}
}
