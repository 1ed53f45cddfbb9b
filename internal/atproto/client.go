package atproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultServiceURL is the public Bluesky PDS entrypoint.
	DefaultServiceURL = "https://bsky.social"

	blockCollection = "app.bsky.graph.block"
	blockRecordType = "app.bsky.graph.block"
)

// ClientConfig tunes the XRPC transport. Zero values fall back to
// conservative defaults suitable for the public PDS.
type ClientConfig struct {
	ServiceURL     string
	RequestTimeout time.Duration
	// ReadRPS bounds GET traffic (follower/block pagination, profile
	// hydration). Block creation is paced by the executor, not here.
	ReadRPS   float64
	ReadBurst int
}

// Client is a minimal XRPC client for the handful of Bluesky calls the
// blocking pipeline needs. It is safe for use from a single run at a time.
type Client struct {
	baseURL     string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	readLimiter *rate.Limiter
	session     *Session
}

// NewClient creates a client against cfg.ServiceURL. Login must be called
// before any other operation.
func NewClient(cfg ClientConfig) *Client {
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = DefaultServiceURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.ReadRPS == 0 {
		cfg.ReadRPS = 8
	}
	if cfg.ReadBurst == 0 {
		cfg.ReadBurst = 4
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "xrpc",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		baseURL: cfg.ServiceURL,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		breaker:     breaker,
		readLimiter: rate.NewLimiter(rate.Limit(cfg.ReadRPS), cfg.ReadBurst),
	}
}

// Session returns the active session, or nil before Login.
func (c *Client) Session() *Session { return c.session }

// Login exchanges an identifier and app password for a session. Any failure
// is an AuthError: the pipeline must not proceed without a session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var sess Session
	if err := c.post(ctx, "com.atproto.server.createSession", body, &sess); err != nil {
		return nil, &AuthError{Identifier: identifier, Err: err}
	}

	c.session = &sess
	log.Info().Str("handle", sess.Handle).Str("did", string(sess.DID)).Msg("session established")
	return &sess, nil
}

// ListFollowers fetches one page of accounts following actor.
func (c *Client) ListFollowers(ctx context.Context, actor, cursor string, limit int) (*FollowerPage, error) {
	params := url.Values{}
	params.Set("actor", actor)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var page FollowerPage
	if err := c.get(ctx, "app.bsky.graph.getFollowers", params, &page); err != nil {
		return nil, &FetchError{Op: "app.bsky.graph.getFollowers", Err: err}
	}
	return &page, nil
}

// ListBlocks fetches one page of the session account's existing blocks.
func (c *Client) ListBlocks(ctx context.Context, cursor string, limit int) (*BlockPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var page BlockPage
	if err := c.get(ctx, "app.bsky.graph.getBlocks", params, &page); err != nil {
		return nil, &FetchError{Op: "app.bsky.graph.getBlocks", Err: err}
	}
	return &page, nil
}

// GetProfile fetches the detailed profile view for actor, including the
// follows count that follower listings omit.
func (c *Client) GetProfile(ctx context.Context, actor string) (*ProfileView, error) {
	params := url.Values{}
	params.Set("actor", actor)

	var view ProfileView
	if err := c.get(ctx, "app.bsky.actor.getProfile", params, &view); err != nil {
		return nil, &FetchError{Op: "app.bsky.actor.getProfile", Err: err}
	}
	return &view, nil
}

// CreateBlock writes one app.bsky.graph.block record into the session
// account's repo. The remote may reject duplicates; callers treat any
// failure here as isolated to the subject.
func (c *Client) CreateBlock(ctx context.Context, subject DID, createdAt time.Time) (*BlockAck, error) {
	if c.session == nil {
		return nil, &BlockError{Subject: subject, Err: fmt.Errorf("no active session")}
	}

	body := map[string]any{
		"repo":       c.session.DID,
		"collection": blockCollection,
		"record": map[string]any{
			"$type":     blockRecordType,
			"subject":   subject,
			"createdAt": createdAt.UTC().Format(time.RFC3339),
		},
	}

	var ack BlockAck
	if err := c.post(ctx, "com.atproto.repo.createRecord", body, &ack); err != nil {
		return nil, &BlockError{Subject: subject, Err: err}
	}
	return &ack, nil
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	if err := c.readLimiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/xrpc/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/xrpc/%s", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// xrpcError is the standard error envelope returned by XRPC endpoints.
type xrpcError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(req *http.Request, out any) error {
	if c.session != nil {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessJWT)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			var xe xrpcError
			if json.Unmarshal(data, &xe) == nil && xe.Code != "" {
				return nil, fmt.Errorf("%s: %s (HTTP %d)", xe.Code, xe.Message, resp.StatusCode)
			}
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}
