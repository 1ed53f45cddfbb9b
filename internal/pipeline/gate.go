package pipeline

// Select clamps the confirmed block count into [1, len(eligible)] and
// returns that prefix of the eligible list. An empty eligible list yields
// nil: there is nothing to confirm and the executor is never invoked.
//
// Select only shapes the list; the confirmation itself is the caller's
// responsibility and must be a separate signal from the one that triggered
// the scan.
func Select(eligible []Candidate, requested int) []Candidate {
	if len(eligible) == 0 {
		return nil
	}
	if requested < 1 {
		requested = 1
	}
	if requested > len(eligible) {
		requested = len(eligible)
	}
	return eligible[:requested]
}
