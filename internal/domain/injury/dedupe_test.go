package injury

import (
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Out", StatusOut},
		{"  day-to-day ", StatusQuestionable},
		{"Doubtful", StatusQuestionable},
		{"GTD", StatusQuestionable},
		{"probable", StatusProbable},
		{"Active", StatusAvailable},
		{"left ankle soreness", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tc := range tests {
		if got := NormalizeStatus(tc.raw); got != tc.want {
			t.Fatalf("NormalizeStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestDedupeLaterObservationWins(t *testing.T) {
	earlier := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	later := earlier.Add(3 * time.Hour)

	reports := []Report{
		{RawPlayerName: "Jalen Smith", Status: StatusOut, Source: "espn", Detail: "ankle", ObservedAt: earlier},
		{RawPlayerName: "jalen  SMITH", Status: StatusOut, Source: "rotowire", Detail: "ankle, re-eval", ObservedAt: later},
	}

	got := Dedupe(reports, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 canonical report, got %d", len(got))
	}
	if got[0].Source != "rotowire" {
		t.Fatalf("expected later observation to win, got source %s", got[0].Source)
	}
}

func TestDedupeTieBreaksBySourceRank(t *testing.T) {
	at := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	reports := []Report{
		{RawPlayerName: "Marcus Lee", Status: StatusQuestionable, Source: "rotowire", ObservedAt: at},
		{RawPlayerName: "Marcus Lee", Status: StatusQuestionable, Source: "espn", ObservedAt: at},
	}
	ranks := map[string]int{"espn": 2, "rotowire": 1}

	got := Dedupe(reports, ranks)
	if len(got) != 1 {
		t.Fatalf("expected 1 canonical report, got %d", len(got))
	}
	if got[0].Source != "espn" {
		t.Fatalf("expected trusted source to win the tie, got %s", got[0].Source)
	}

	// Without ranks the smaller source name decides, independent of order.
	got = Dedupe(reports, nil)
	if got[0].Source != "espn" {
		t.Fatalf("expected deterministic fallback winner espn, got %s", got[0].Source)
	}
}

func TestDedupeKeepsDistinctStatuses(t *testing.T) {
	at := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	reports := []Report{
		{PlayerID: "pl-1", RawPlayerName: "A. Carter", Status: StatusOut, Source: "espn", ObservedAt: at},
		{PlayerID: "pl-1", RawPlayerName: "A. Carter", Status: StatusQuestionable, Source: "espn", ObservedAt: at},
	}

	got := Dedupe(reports, nil)
	if len(got) != 2 {
		t.Fatalf("distinct statuses must both survive, got %d reports", len(got))
	}
}

func TestDedupePrefersResolvedIdentityOverName(t *testing.T) {
	at := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	// Same resolved player under two raw spellings collapses to one row.
	reports := []Report{
		{PlayerID: "pl-9", RawPlayerName: "Nic Claxton", Status: StatusOut, Source: "espn", ObservedAt: at},
		{PlayerID: "pl-9", RawPlayerName: "Nicolas Claxton", Status: StatusOut, Source: "rotowire", ObservedAt: at.Add(time.Minute)},
	}

	got := Dedupe(reports, nil)
	if len(got) != 1 {
		t.Fatalf("expected resolved identity to collapse spellings, got %d", len(got))
	}
	if got[0].RawPlayerName != "Nicolas Claxton" {
		t.Fatalf("expected the later row to win, got %q", got[0].RawPlayerName)
	}
}
