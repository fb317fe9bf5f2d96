// Package feed implements the local cache of the upstream OS version feed.
// The cache keeps the last downloaded document with its entity tag, and refreshes it with
// conditional requests so an unchanged document is never downloaded twice.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/macdeacon99/jamf-rings/internal/constants"
	"github.com/macdeacon99/jamf-rings/internal/fileutils"
	"github.com/tidwall/gjson"
	"github.com/ubuntu/decorate"
)

var (
	// ErrFeedUnavailable is returned when the feed could not be fetched and no cached copy exists.
	ErrFeedUnavailable = errors.New("feed unavailable and no cached copy exists")
	// ErrCacheWrite is returned when the fetched document could not be persisted.
	ErrCacheWrite = errors.New("could not write feed cache")
)

// maxDocumentSize bounds the size of a downloaded feed document.
const maxDocumentSize = 64 << 20

// Outcome describes where the document returned by Fetch comes from.
type Outcome int

const (
	// OutcomeUpdated means a new document was downloaded and cached.
	OutcomeUpdated Outcome = iota
	// OutcomeUnchanged means the server sent a full response identical to the cache.
	OutcomeUnchanged
	// OutcomeNotModified means the server confirmed the cached entity tag.
	OutcomeNotModified
	// OutcomeStale means the fetch failed and the cached document was used.
	OutcomeStale
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNotModified:
		return "not-modified"
	case OutcomeStale:
		return "stale"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Config holds the settings of a Cache.
// Section is the index of the OS version, in feed order, the releases are read from.
type Config struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Section   int           `mapstructure:"section"`
}

// CacheConfig holds the location of the cached files.
type CacheConfig struct {
	Dir      string `mapstructure:"dir"`
	FeedFile string `mapstructure:"feed_file"`
	ETagFile string `mapstructure:"etag_file"`
}

// Cache is a file backed copy of the feed document.
type Cache struct {
	url       string
	userAgent string

	dir      string
	feedPath string
	etagPath string

	client *http.Client
	log    *slog.Logger
	write  func(path string, data []byte) error
}

type options struct {
	client *http.Client
	log    *slog.Logger
	write  func(path string, data []byte) error
}

// Options represents an optional function to override Cache default values.
type Options func(*options)

// WithHTTPClient sets the HTTP client used to fetch the feed. Its timeout overrides the configured one.
func WithHTTPClient(c *http.Client) Options {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger sets the logger of the cache.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a new Cache.
func New(cfg Config, cacheCfg CacheConfig, args ...Options) (*Cache, error) {
	if cfg.URL == "" {
		return nil, errors.New("feed URL cannot be empty")
	}
	if cacheCfg.Dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if cacheCfg.FeedFile == "" {
		cacheCfg.FeedFile = constants.DefaultFeedFile
	}
	if cacheCfg.ETagFile == "" {
		cacheCfg.ETagFile = constants.DefaultETagFile
	}
	if cacheCfg.FeedFile == cacheCfg.ETagFile {
		return nil, fmt.Errorf("feed file and entity tag file cannot both be %q", cacheCfg.FeedFile)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultFeedTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.DefaultUserAgent
	}

	opts := options{
		client: &http.Client{Timeout: cfg.Timeout},
		log:    slog.Default(),
		write:  fileutils.AtomicWrite,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Cache{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,

		dir:      cacheCfg.Dir,
		feedPath: filepath.Join(cacheCfg.Dir, cacheCfg.FeedFile),
		etagPath: filepath.Join(cacheCfg.Dir, cacheCfg.ETagFile),

		client: opts.client,
		log:    opts.log,
		write:  opts.write,
	}, nil
}

// Fetch returns the most recent available copy of the feed document.
//
// The cached entity tag is sent along the request. A not modified answer returns the cached
// document as is, a full answer replaces the cache. When the request fails, the cached document
// is returned if there is one, otherwise ErrFeedUnavailable is returned.
func (c Cache) Fetch(ctx context.Context) (doc []byte, outcome Outcome, err error) {
	defer decorate.OnError(&err, "feed fetch failed")

	if err := os.MkdirAll(c.dir, 0750); err != nil {
		return nil, 0, errors.Join(ErrCacheWrite, fmt.Errorf("could not create cache directory: %v", err))
	}

	cached, hasCache, err := fileutils.ReadFileIfExists(c.feedPath)
	if err != nil {
		c.log.Warn("Failed to read cached feed, ignoring it", "file", c.feedPath, "error", err)
		cached, hasCache = nil, false
	}

	// A tag is only meaningful along the body it was received with.
	var etag string
	if hasCache {
		etag = fileutils.ReadTrimmedLogError(c.etagPath, c.log)
	}

	resp, err := c.get(ctx, etag)
	if err != nil {
		return c.fallback(cached, hasCache, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !hasCache {
			return c.fallback(cached, hasCache, errors.New("server answered not modified without a cached document"))
		}
		c.log.Info("Cached entity tag matched, cached feed is up to date", "etag", etag)
		return cached, OutcomeNotModified, nil

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
		if err != nil {
			return c.fallback(cached, hasCache, fmt.Errorf("could not read response body: %v", err))
		}
		if len(body) > maxDocumentSize {
			return c.fallback(cached, hasCache, fmt.Errorf("response body exceeds %d bytes", maxDocumentSize))
		}
		if !gjson.ValidBytes(body) {
			return c.fallback(cached, hasCache, errors.New("response body is not valid JSON"))
		}

		newTag := resp.Header.Get("ETag")
		if hasCache && newTag == etag && bytes.Equal(body, cached) {
			c.log.Info("Downloaded feed matches the cache", "etag", etag)
			return cached, OutcomeUnchanged, nil
		}

		if err := c.persist(body, newTag); err != nil {
			return nil, 0, errors.Join(ErrCacheWrite, err)
		}
		if newTag == "" {
			c.log.Info("No entity tag returned, feed cache updated without one")
		} else {
			c.log.Info("Downloaded new feed", "etag", newTag, "previous_etag", etag)
		}
		return body, OutcomeUpdated, nil

	default:
		return c.fallback(cached, hasCache, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
}

func (c Cache) get(ctx context.Context, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	c.log.Debug("Fetching feed", "url", c.url, "etag", etag)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %v", err)
	}
	return resp, nil
}

// persist replaces the cached document and its entity tag.
//
// The old tag is removed before the document is replaced and the new one is only written once
// the document is in place, so the tag on disk never describes another document.
func (c Cache) persist(body []byte, etag string) error {
	if err := fileutils.RemoveIfExists(c.etagPath); err != nil {
		return fmt.Errorf("could not remove previous entity tag: %v", err)
	}
	if err := c.write(c.feedPath, body); err != nil {
		return fmt.Errorf("could not write feed document: %v", err)
	}
	if etag == "" {
		return nil
	}
	if err := c.write(c.etagPath, []byte(etag)); err != nil {
		return fmt.Errorf("could not write entity tag: %v", err)
	}
	return nil
}

func (c Cache) fallback(cached []byte, hasCache bool, cause error) ([]byte, Outcome, error) {
	if !hasCache {
		return nil, 0, errors.Join(ErrFeedUnavailable, cause)
	}
	c.log.Warn("Failed to fetch feed, using cached copy", "url", c.url, "error", cause)
	return cached, OutcomeStale, nil
}
