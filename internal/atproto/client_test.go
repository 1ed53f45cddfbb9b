package atproto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		ServiceURL:     srv.URL,
		RequestTimeout: 2 * time.Second,
		ReadRPS:        1000,
		ReadBurst:      1000,
	})
}

func TestLogin_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.server.createSession", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice.bsky.social", body["identifier"])

		json.NewEncoder(w).Encode(Session{
			DID:       "did:plc:alice",
			Handle:    "alice.bsky.social",
			AccessJWT: "jwt-token",
		})
	})

	sess, err := client.Login(context.Background(), "alice.bsky.social", "app-pass")
	require.NoError(t, err)
	assert.Equal(t, DID("did:plc:alice"), sess.DID)
	assert.Equal(t, sess, client.Session())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(xrpcError{
			Code:    "AuthenticationRequired",
			Message: "Invalid identifier or password",
		})
	})

	_, err := client.Login(context.Background(), "alice.bsky.social", "wrong")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "AuthenticationRequired")
}

func TestListFollowers_PassesCursorAndLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/app.bsky.graph.getFollowers", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "seed.bsky.social", q.Get("actor"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "page2", q.Get("cursor"))

		json.NewEncoder(w).Encode(FollowerPage{
			Followers: []ProfileView{
				{DID: "did:plc:bob", Handle: "bob.bsky.social", FollowsCount: 4200},
				{DID: "did:plc:eve", Handle: "eve.bsky.social"},
			},
			Cursor: "page3",
		})
	})

	page, err := client.ListFollowers(context.Background(), "seed.bsky.social", "page2", 50)
	require.NoError(t, err)
	require.Len(t, page.Followers, 2)
	assert.Equal(t, int64(4200), page.Followers[0].FollowsCount)
	assert.Zero(t, page.Followers[1].FollowsCount, "absent followsCount decodes to 0")
	assert.Equal(t, "page3", page.Cursor)
}

func TestListBlocks_FetchErrorKind(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListBlocks(context.Background(), "", 100)
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "app.bsky.graph.getBlocks", fe.Op)
}

func TestCreateBlock_WritesRecord(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/xrpc/com.atproto.server.createSession" {
			json.NewEncoder(w).Encode(Session{DID: "did:plc:me", Handle: "me", AccessJWT: "tok"})
			return
		}
		require.Equal(t, "/xrpc/com.atproto.repo.createRecord", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(BlockAck{URI: "at://did:plc:me/app.bsky.graph.block/abc", CID: "cid123"})
	})

	_, err := client.Login(context.Background(), "me", "pw")
	require.NoError(t, err)

	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ack, err := client.CreateBlock(context.Background(), "did:plc:spam", createdAt)
	require.NoError(t, err)
	assert.NotEmpty(t, ack.URI)

	assert.Equal(t, "did:plc:me", got["repo"])
	assert.Equal(t, "app.bsky.graph.block", got["collection"])
	record := got["record"].(map[string]any)
	assert.Equal(t, "did:plc:spam", record["subject"])
	assert.Equal(t, "2025-06-01T12:00:00Z", record["createdAt"])
}

func TestCreateBlock_RequiresSession(t *testing.T) {
	client := NewClient(ClientConfig{ServiceURL: "http://127.0.0.1:0"})

	_, err := client.CreateBlock(context.Background(), "did:plc:spam", time.Now())
	require.Error(t, err)
	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, DID("did:plc:spam"), be.Subject)
}

func TestCreateBlock_ConflictIsBlockError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/xrpc/com.atproto.server.createSession" {
			json.NewEncoder(w).Encode(Session{DID: "did:plc:me", AccessJWT: "tok"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(xrpcError{Code: "InvalidRequest", Message: "duplicate record"})
	})

	_, err := client.Login(context.Background(), "me", "pw")
	require.NoError(t, err)

	_, err = client.CreateBlock(context.Background(), "did:plc:already", time.Now())
	var be *BlockError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Error(), "duplicate record")
}
