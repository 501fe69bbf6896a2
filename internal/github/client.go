package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"golang.org/x/oauth2"

	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/retry"
)

const defaultAPIURL = "https://api.github.com"

// Client represents a GitHub API client whose calls go through a retry policy
type Client struct {
	client *github.Client
	retry  retry.Policy
	logger *loggy.Logger
}

// NewClient creates a new GitHub API client authenticated with the configured token
func NewClient(cfg config.GitHubConfig, policy retry.Policy, logger *loggy.Logger) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = timeout

	client := github.NewClient(tc)
	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if apiURL != "" && apiURL != defaultAPIURL {
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.APIURL, err)
		}
	}

	return newClient(client, policy, logger), nil
}

func newClient(client *github.Client, policy retry.Policy, logger *loggy.Logger) *Client {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	return &Client{client: client, retry: policy, logger: logger}
}

// call runs fn under the retry policy. Rate limiting and 5xx answers are
// retried, everything else fails on the first attempt.
func (c *Client) call(ctx context.Context, op string, fn func() (*github.Response, error)) error {
	attempt := 0
	err := c.retry.Notify(ctx, func() error {
		attempt++
		resp, err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		if isTransient(resp, err) {
			return err
		}
		return retry.Permanent(err)
	}, func(err error, wait time.Duration) {
		c.logger.Warn("Retrying GitHub request", "op", op, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		return fmt.Errorf("github %s: %w", op, err)
	}
	return nil
}

func isTransient(resp *github.Response, err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return retry.IsTransientStatus(errResp.Response.StatusCode)
	}

	if resp != nil && resp.Response != nil {
		return retry.IsTransientStatus(resp.StatusCode)
	}

	// Transport failures never reached the server
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// StatusCode extracts the HTTP status from a GitHub error, 0 when there is none
func StatusCode(err error) int {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
