// Package jamf is a minimal Jamf Pro client, covering the calls needed to roll out an OS update
// to computer groups.
package jamf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrDownstream is returned when Jamf Pro rejects or fails a call.
	ErrDownstream = errors.New("jamf pro request failed")
	// ErrInvalidConfig is returned when the client configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid jamf pro configuration")
)

const (
	tokenPath = "/api/oauth/token"
	// maxErrorBody is the number of bytes of a failed response kept in the returned error.
	maxErrorBody = 512
)

// Config is the configuration of the Jamf Pro tenant.
type Config struct {
	URL          string        `mapstructure:"url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`

	SmartGroupID int `mapstructure:"smart_group_id"`
	PolicyID     int `mapstructure:"policy_id"`
}

// Validate checks that the tenant can be reached and authenticated against.
func (c Config) Validate() error {
	var errs error
	if c.URL == "" {
		errs = errors.Join(errs, errors.New("url is required"))
	} else if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = errors.Join(errs, fmt.Errorf("url %q is not absolute", c.URL))
	}
	if c.ClientID == "" {
		errs = errors.Join(errs, errors.New("client_id is required"))
	}
	if c.ClientSecret == "" {
		errs = errors.Join(errs, errors.New("client_secret is required"))
	}
	if c.Timeout < 0 {
		errs = errors.Join(errs, errors.New("timeout cannot be negative"))
	}
	if errs != nil {
		return errors.Join(ErrInvalidConfig, errs)
	}
	return nil
}

// Client calls the Jamf Pro classic and modern APIs with an OAuth2 API client.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

type options struct {
	httpClient *http.Client
	log        *slog.Logger
}

// Options represents an optional function to override Client default values.
type Options func(*options)

// WithHTTPClient sets the HTTP client used to get tokens and to send the authenticated requests.
func WithHTTPClient(c *http.Client) Options {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger of the client.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a Client authenticating with the client credentials grant.
// Tokens are requested lazily, on the first call, and refreshed when they expire.
func New(ctx context.Context, cfg Config, args ...Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := options{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	base := strings.TrimRight(cfg.URL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	hc := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, opts.httpClient))
	hc.Timeout = cfg.Timeout

	return &Client{
		baseURL: base,
		http:    hc,
		log:     opts.log,
	}, nil
}

// do sends a request named call to Jamf Pro and returns the response body.
// Any non 2xx status is an ErrDownstream.
func (c Client) do(ctx context.Context, call, method, path, contentType string, body []byte) ([]byte, error) {
	c.log.Debug("Sending request to Jamf Pro", "call", call, "method", method, "path", path)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %v", call, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrDownstream, fmt.Errorf("%s: failed to send HTTP request: %v", call, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrDownstream, fmt.Errorf("%s: failed to read response: %v", call, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, errors.Join(ErrDownstream,
			fmt.Errorf("%s: unexpected status code %d: %s", call, resp.StatusCode, strings.TrimSpace(string(data))))
	}

	c.log.Debug("Jamf Pro request succeeded", "call", call, "status", resp.StatusCode)
	return data, nil
}
