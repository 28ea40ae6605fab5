package injury

import "sort"

// Dedupe collapses reports that describe the same player availability
// into one canonical report per equivalence key. The later observation
// wins; on equal timestamps the source with the higher trust rank wins,
// and as a final tie-break the lexicographically smaller source name, so
// the outcome never depends on input order. Sources absent from ranks
// carry rank 0. Output is sorted by key for deterministic downstream
// writes.
func Dedupe(reports []Report, ranks map[string]int) []Report {
	winners := make(map[string]Report, len(reports))
	for _, r := range reports {
		key := r.identityKey()
		cur, ok := winners[key]
		if !ok || beats(r, cur, ranks) {
			winners[key] = r
		}
	}

	keys := make([]string, 0, len(winners))
	for k := range winners {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Report, 0, len(winners))
	for _, k := range keys {
		out = append(out, winners[k])
	}
	return out
}

func beats(a, b Report, ranks map[string]int) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	if ranks[a.Source] != ranks[b.Source] {
		return ranks[a.Source] > ranks[b.Source]
	}
	return a.Source < b.Source
}
