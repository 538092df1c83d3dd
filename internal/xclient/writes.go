package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Rate-limit window length used when a 429 carries no Retry-After header.
const defaultRetryAfter = 90 * time.Second

// doWrite performs one attempt of a mutating call. 429 maps to RateLimitError
// and is never retried here; the task queue owns the reschedule.
func (c *HTTPClient) doWrite(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, err
	}
	c.userAuth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp, defaultRetryAfter)
		_ = resp.Body.Close()
		return nil, &RateLimitError{RetryAfter: wait}
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// PostTweet publishes text, optionally as a reply, and returns the new tweet
// id.
func (c *HTTPClient) PostTweet(ctx context.Context, text, inReplyTo string) (string, error) {
	body := map[string]any{"text": text}
	if inReplyTo != "" {
		body["reply"] = map[string]string{"in_reply_to_tweet_id": inReplyTo}
	}
	resp, err := c.doWrite(ctx, http.MethodPost, c.baseURL+"/tweets", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var raw struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", err
	}
	return raw.Data.ID, nil
}

// Follow makes the authenticated account follow targetUserID.
func (c *HTTPClient) Follow(ctx context.Context, targetUserID string) error {
	self, err := c.selfUserID(ctx)
	if err != nil {
		return err
	}
	resp, err := c.doWrite(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%s/following", c.baseURL, self),
		map[string]string{"target_user_id": targetUserID})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Like makes the authenticated account like tweetID.
func (c *HTTPClient) Like(ctx context.Context, tweetID string) error {
	self, err := c.selfUserID(ctx)
	if err != nil {
		return err
	}
	resp, err := c.doWrite(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%s/likes", c.baseURL, self),
		map[string]string{"tweet_id": tweetID})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Retweet makes the authenticated account retweet tweetID.
func (c *HTTPClient) Retweet(ctx context.Context, tweetID string) error {
	self, err := c.selfUserID(ctx)
	if err != nil {
		return err
	}
	resp, err := c.doWrite(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%s/retweets", c.baseURL, self),
		map[string]string{"tweet_id": tweetID})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
