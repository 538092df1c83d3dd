package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// User is a platform account as seen by the discovery pipeline.
type User struct {
	ID             string
	Username       string
	Name           string
	Description    string
	Verified       bool
	FollowersCount int
	FollowingCount int
	TweetCount     int
	CreatedAt      time.Time
}

// Tweet is a platform post as seen by the discovery pipeline.
type Tweet struct {
	ID           string
	AuthorID     string
	Text         string
	Language     string
	LikeCount    int
	ReplyCount   int
	RetweetCount int
	QuoteCount   int
	CreatedAt    time.Time
}

// Client is the slice of the platform API the engine depends on. Read
// endpoints retry transparently; write endpoints surface RateLimitError so the
// scheduler can back off.
type Client interface {
	GetMe(ctx context.Context) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	SearchRecentTweets(ctx context.Context, query string, limit int) ([]Tweet, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
	GetFollowers(ctx context.Context, userID string, limit int) ([]User, error)
	PostTweet(ctx context.Context, text, inReplyTo string) (string, error)
	Follow(ctx context.Context, targetUserID string) error
	Like(ctx context.Context, tweetID string) error
	Retweet(ctx context.Context, tweetID string) error
}

// HTTPClient talks to X API v2. bearerToken authorizes reads; userToken is an
// OAuth2 user-context token that authorizes writes.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	userToken   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration

	selfOnce sync.Once
	selfID   string
	selfErr  error
}

func NewHTTPClient(bearerToken, userToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		userToken:   userToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// SetBaseURL points the client at a different API root. Tests use this with
// an httptest server.
func (c *HTTPClient) SetBaseURL(u string) { c.baseURL = u }

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *HTTPClient) userAuth(req *http.Request) {
	token := c.userToken
	if token == "" {
		token = c.bearerToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}

type rawUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	CreatedAt     time.Time `json:"created_at"`
	Verified      bool      `json:"verified"`
	Description   string    `json:"description"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
		FollowingCount int `json:"following_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

func (r rawUser) toUser() User {
	return User{
		ID:             r.ID,
		Username:       r.Username,
		Name:           r.Name,
		CreatedAt:      r.CreatedAt,
		Verified:       r.Verified,
		Description:    r.Description,
		FollowersCount: r.PublicMetrics.FollowersCount,
		FollowingCount: r.PublicMetrics.FollowingCount,
		TweetCount:     r.PublicMetrics.TweetCount,
	}
}

type rawTweet struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
	Lang          string    `json:"lang"`
	AuthorID      string    `json:"author_id"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
		RetweetCount int `json:"retweet_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
}

func (r rawTweet) toTweet() Tweet {
	return Tweet{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Text:         r.Text,
		CreatedAt:    r.CreatedAt,
		Language:     r.Lang,
		LikeCount:    r.PublicMetrics.LikeCount,
		ReplyCount:   r.PublicMetrics.ReplyCount,
		RetweetCount: r.PublicMetrics.RetweetCount,
		QuoteCount:   r.PublicMetrics.QuoteCount,
	}
}

const userFields = "user.fields=public_metrics,created_at,verified,description"

// GetMe resolves the authenticated account. Cached after the first call.
func (c *HTTPClient) GetMe(ctx context.Context) (User, error) {
	var out User
	u := fmt.Sprintf("%s/users/me?%s", c.baseURL, userFields)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.userAuth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return out, &APIError{Status: resp.StatusCode}
	}
	var raw struct {
		Data rawUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, err
	}
	return raw.Data.toUser(), nil
}

func (c *HTTPClient) selfUserID(ctx context.Context) (string, error) {
	c.selfOnce.Do(func() {
		me, err := c.GetMe(ctx)
		if err != nil {
			c.selfErr = err
			return
		}
		c.selfID = me.ID
	})
	return c.selfID, c.selfErr
}

func (c *HTTPClient) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var out User
	if username == "" {
		return out, errors.New("empty username")
	}
	u := fmt.Sprintf("%s/users/by/username/%s?%s", c.baseURL, url.PathEscape(username), userFields)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return out, &APIError{Status: resp.StatusCode}
	}
	var raw struct {
		Data rawUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, err
	}
	return raw.Data.toUser(), nil
}

// SearchRecentTweets searches last-week tweets matching query, most engaged
// first.
func (c *HTTPClient) SearchRecentTweets(ctx context.Context, query string, limit int) ([]Tweet, error) {
	u := fmt.Sprintf("%s/tweets/search/recent?max_results=%d&sort_order=relevancy&tweet.fields=created_at,public_metrics,lang,author_id&query=%s",
		c.baseURL, clamp(limit, 10, 100), url.QueryEscape(query))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode}
	}
	var raw struct {
		Data []rawTweet `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]Tweet, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, d.toTweet())
	}
	return out, nil
}

// SearchUsers finds accounts matching a keyword query.
func (c *HTTPClient) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	u := fmt.Sprintf("%s/users/search?max_results=%d&%s&query=%s",
		c.baseURL, clamp(limit, 1, 100), userFields, url.QueryEscape(query))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode}
	}
	var raw struct {
		Data []rawUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]User, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, d.toUser())
	}
	return out, nil
}

// GetFollowers lists accounts following userID.
func (c *HTTPClient) GetFollowers(ctx context.Context, userID string, limit int) ([]User, error) {
	u := fmt.Sprintf("%s/users/%s/followers?max_results=%d&%s",
		c.baseURL, url.PathEscape(userID), clamp(limit, 10, 1000), userFields)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode}
	}
	var raw struct {
		Data []rawUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]User, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, d.toUser())
	}
	return out, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// doWithRetry retries 429 and 5xx responses with capped exponential backoff,
// honoring Retry-After. Read endpoints only.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				wait := retryAfter(resp, backoff)
				_ = resp.Body.Close()
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
