package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/subsight/core/internal/config"
	pkgredis "github.com/subsight/core/internal/pkg/redis"
	"go.uber.org/zap"
)

const (
	domainMarker    = "reddit.com"
	jsonSuffix      = ".json"
	maxComments     = 50
	deletedSentinel = "[deleted]"
	removedSentinel = "[removed]"

	threadCachePrefix = "ss:thread:"
)

// Client fetches public discussion threads.
type Client struct {
	http      *http.Client
	cache     *pkgredis.Client
	userAgent string
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewClient builds a thread fetcher. cache may be nil; httpClient may be nil
// to use a default with the configured timeout.
func NewClient(cfg config.RedditConfig, cache *pkgredis.Client, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(cfg.CacheMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		http:      httpClient,
		cache:     cache,
		userAgent: cfg.UserAgent,
		cacheTTL:  ttl,
		logger:    logger,
	}
}

// IsValidURL reports whether the input points at the discussion domain.
func IsValidURL(url string) bool {
	return strings.Contains(url, domainMarker)
}

// CanonicalURL strips the trailing machine-readable format suffix, returning
// the URL as stored and displayed.
func CanonicalURL(url string) string {
	return strings.TrimSuffix(url, jsonSuffix)
}

// Fetch retrieves and flattens a discussion thread. The parsed result is
// cached for the configured TTL so repeated analyses of the same URL skip the
// upstream call; cache failures fall through to a live fetch.
func (c *Client) Fetch(ctx context.Context, url string) (*Thread, error) {
	if !IsValidURL(url) {
		return nil, ErrInvalidURL
	}

	apiURL := url
	if !strings.HasSuffix(apiURL, jsonSuffix) {
		apiURL += jsonSuffix
	}

	cacheKey := threadCachePrefix + apiURL
	if t := c.readCache(ctx, cacheKey); t != nil {
		return t, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "max-age=3600")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Status: 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	var payload []listing
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ErrPostNotFound
	}

	thread, err := flatten(payload)
	if err != nil {
		return nil, err
	}

	c.writeCache(ctx, cacheKey, thread)
	return thread, nil
}

func flatten(payload []listing) (*Thread, error) {
	if len(payload) == 0 || len(payload[0].Data.Children) == 0 {
		return nil, ErrPostNotFound
	}
	post := payload[0].Data.Children[0].Data
	if post.Title == "" && post.Selftext == "" {
		return nil, ErrPostNotFound
	}

	comments := []string{}
	if len(payload) > 1 {
		for _, child := range payload[1].Data.Children {
			body := child.Data.Body
			if body == "" || body == deletedSentinel || body == removedSentinel {
				continue
			}
			comments = append(comments, body)
			if len(comments) == maxComments {
				break
			}
		}
	}

	return &Thread{
		Title:    post.Title,
		Content:  post.Selftext,
		Comments: comments,
	}, nil
}

func (c *Client) readCache(ctx context.Context, key string) *Thread {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil
	}
	var t Thread
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil
	}
	if t.Comments == nil {
		t.Comments = []string{}
	}
	return &t
}

func (c *Client) writeCache(ctx context.Context, key string, t *Thread) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("thread cache write failed", zap.Error(err))
	}
}
