package pipeline

// Filter returns the followers eligible for blocking: follows count at or
// above threshold and not already in the block set. Pure and
// order-preserving; the result is always a subsequence of followers.
func Filter(followers []Candidate, blocked BlockSet, threshold int64) []Candidate {
	var eligible []Candidate
	for _, c := range followers {
		if c.FollowsCount < threshold {
			continue
		}
		if blocked.Contains(c.DID) {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible
}
