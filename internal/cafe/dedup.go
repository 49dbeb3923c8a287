package cafe

// Dedup collapses outcomes that share a place ID. The first occurrence in
// input order is kept and later ones are dropped; the result preserves the
// order of the kept outcomes, so Dedup(Dedup(x)) equals Dedup(x).
func Dedup(outcomes []Outcome) []Outcome {
	seen := make(map[string]struct{}, len(outcomes))
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if _, ok := seen[o.Record.ID]; ok {
			continue
		}
		seen[o.Record.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}
