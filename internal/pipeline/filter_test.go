package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aykute/skywall/internal/atproto"
)

func follower(handle string, did string, follows int64) Candidate {
	return Candidate{Handle: handle, DID: atproto.DID(did), FollowsCount: follows}
}

func TestFilter_ThresholdOnly(t *testing.T) {
	followers := []Candidate{
		follower("a.bsky.social", "did:plc:a", 500),
		follower("b.bsky.social", "did:plc:b", 1200),
		follower("c.bsky.social", "did:plc:c", 3000),
		follower("d.bsky.social", "did:plc:d", 9999),
		follower("e.bsky.social", "did:plc:e", 50),
	}

	eligible := Filter(followers, BlockSet{}, 1000)

	require.Len(t, eligible, 3)
	assert.Equal(t, "b.bsky.social", eligible[0].Handle)
	assert.Equal(t, "c.bsky.social", eligible[1].Handle)
	assert.Equal(t, "d.bsky.social", eligible[2].Handle)
}

func TestFilter_ExcludesBlockSet(t *testing.T) {
	followers := []Candidate{
		follower("b.bsky.social", "did:plc:b", 1200),
		follower("c.bsky.social", "did:plc:c", 3000),
		follower("d.bsky.social", "did:plc:d", 9999),
	}
	blocked := BlockSet{"did:plc:c": {}}

	eligible := Filter(followers, blocked, 1000)

	require.Len(t, eligible, 2)
	assert.Equal(t, "b.bsky.social", eligible[0].Handle)
	assert.Equal(t, "d.bsky.social", eligible[1].Handle)
	for _, c := range eligible {
		assert.False(t, blocked.Contains(c.DID))
	}
}

func TestFilter_ThresholdBoundaryInclusive(t *testing.T) {
	followers := []Candidate{follower("x.bsky.social", "did:plc:x", 1000)}
	eligible := Filter(followers, BlockSet{}, 1000)
	assert.Len(t, eligible, 1)
}

func TestFilter_AbsentFollowsCountNeverEligible(t *testing.T) {
	// A follower view that omitted followsCount decodes to 0.
	followers := []Candidate{follower("ghost.bsky.social", "did:plc:g", 0)}
	eligible := Filter(followers, BlockSet{}, 1000)
	assert.Empty(t, eligible)
}

func TestFilter_Pure(t *testing.T) {
	followers := []Candidate{
		follower("b.bsky.social", "did:plc:b", 1200),
		follower("a.bsky.social", "did:plc:a", 100),
	}
	input := make([]Candidate, len(followers))
	copy(input, followers)

	Filter(followers, BlockSet{}, 1000)
	assert.Equal(t, input, followers, "input must not be reordered or mutated")
}

func TestNewBlockSet(t *testing.T) {
	set := NewBlockSet([]atproto.ProfileView{
		{DID: "did:plc:a"},
		{DID: "did:plc:b"},
		{DID: "did:plc:a"}, // duplicate
	})
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("did:plc:a"))
	assert.False(t, set.Contains("did:plc:z"))
}
