package atproto

// DID is a decentralized identifier, the stable primary key for an account.
// Handles can change; DIDs cannot.
type DID string

// Session holds the credentials returned by com.atproto.server.createSession.
type Session struct {
	DID       DID    `json:"did"`
	Handle    string `json:"handle"`
	AccessJWT string `json:"accessJwt"`
}

// ProfileView is the subset of an actor profile the pipeline cares about.
// Follower listings return abbreviated views that omit FollowsCount, in
// which case it decodes to 0; app.bsky.actor.getProfile always carries it.
type ProfileView struct {
	DID          DID    `json:"did"`
	Handle       string `json:"handle"`
	DisplayName  string `json:"displayName,omitempty"`
	FollowsCount int64  `json:"followsCount,omitempty"`
}

// FollowerPage is one page of app.bsky.graph.getFollowers.
type FollowerPage struct {
	Followers []ProfileView `json:"followers"`
	Cursor    string        `json:"cursor,omitempty"`
}

// BlockPage is one page of app.bsky.graph.getBlocks.
type BlockPage struct {
	Blocks []ProfileView `json:"blocks"`
	Cursor string        `json:"cursor,omitempty"`
}

// BlockAck is the record reference returned by a successful block creation.
type BlockAck struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}
