package places

// cafeCategories are the place types that mark a candidate as a café.
var cafeCategories = []string{"cafe", "coffee_shop"}

// SelectBestMatch picks the first candidate, in server order, whose types
// include a café category, falling back to the first candidate. ok is false
// only for an empty list.
func SelectBestMatch(candidates []Candidate) (best Candidate, ok bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	for _, c := range candidates {
		if c.isCafe() {
			return c, true
		}
	}
	return candidates[0], true
}
