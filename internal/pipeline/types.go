// Package pipeline implements the acquisition, dedup, selection and
// execution stages of a blocking run: fetch followers, snapshot existing
// blocks, filter by follows-count threshold, clamp to a confirmed count,
// then block sequentially under a rate limit with per-item isolation.
package pipeline

import (
	"github.com/aykute/skywall/internal/atproto"
)

// Candidate is a follower under consideration for blocking. FollowsCount is
// 0 when the remote view omitted it, which keeps it below any practical
// threshold.
type Candidate struct {
	Handle       string      `json:"handle"`
	DID          atproto.DID `json:"did"`
	FollowsCount int64       `json:"followsCount"`
}

// candidateFromView converts the remote profile view.
func candidateFromView(v atproto.ProfileView) Candidate {
	return Candidate{
		Handle:       v.Handle,
		DID:          v.DID,
		FollowsCount: v.FollowsCount,
	}
}

// BlockSet is a membership snapshot of the account's existing blocks, taken
// once at the start of a run and frozen for its duration.
type BlockSet map[atproto.DID]struct{}

// NewBlockSet builds a set from blocked profile views.
func NewBlockSet(views []atproto.ProfileView) BlockSet {
	set := make(BlockSet, len(views))
	for _, v := range views {
		set[v.DID] = struct{}{}
	}
	return set
}

// Contains reports whether did is already blocked.
func (b BlockSet) Contains(did atproto.DID) bool {
	_, ok := b[did]
	return ok
}

// Len returns the snapshot size.
func (b BlockSet) Len() int { return len(b) }

// Warning is a recoverable failure surfaced alongside the run summary
// instead of aborting the pipeline.
type Warning struct {
	Stage  string `json:"stage"`            // "followers", "blocks", "hydrate", "block", "audit"
	Handle string `json:"handle,omitempty"` // set for per-candidate failures
	Err    string `json:"error"`
}

func (w Warning) String() string {
	if w.Handle != "" {
		return w.Stage + " @" + w.Handle + ": " + w.Err
	}
	return w.Stage + ": " + w.Err
}
