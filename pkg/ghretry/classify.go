package ghretry

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
)

type errKind int

const (
	kindFatal errKind = iota
	kindPrimary
	kindSecondary
	kindTransient
)

// classification is the tagged view of a remote call error, decided once
// when the result comes back rather than re-inspected at each call site.
type classification struct {
	kind errKind

	remaining    int
	hasRemaining bool
	reset        time.Time
	hasReset     bool
	retryAfter   *time.Duration

	// Diagnostic headers, kept for the retry-exhausted report.
	resource string
	limit    string
	used     string
}

func (c classification) reason() string {
	switch c.kind {
	case kindPrimary:
		return "primary rate limit"
	case kindSecondary:
		return "secondary rate limit"
	case kindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

func classify(err error) classification {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		cls := classification{
			kind:         kindPrimary,
			remaining:    rateErr.Rate.Remaining,
			hasRemaining: true,
		}
		if !rateErr.Rate.Reset.Time.IsZero() {
			cls.reset = rateErr.Rate.Reset.Time
			cls.hasReset = true
		}
		cls.readHeaders(rateErr.Response)
		return cls
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		cls := classification{
			kind:       kindSecondary,
			retryAfter: abuseErr.RetryAfter,
		}
		cls.readHeaders(abuseErr.Response)
		return cls
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		msg := strings.ToLower(respErr.Message)
		status := 0
		if respErr.Response != nil {
			status = respErr.Response.StatusCode
		}
		switch {
		case strings.Contains(msg, "secondary rate limit"):
			cls := classification{kind: kindSecondary}
			cls.readHeaders(respErr.Response)
			return cls
		case status == http.StatusForbidden, status == http.StatusTooManyRequests,
			strings.Contains(msg, "rate limit"):
			cls := classification{kind: kindTransient}
			cls.readHeaders(respErr.Response)
			return cls
		default:
			return classification{kind: kindFatal}
		}
	}

	// Errors from other layers only qualify via the rate-limit marker.
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return classification{kind: kindTransient}
	}
	return classification{kind: kindFatal}
}

func (c *classification) readHeaders(resp *http.Response) {
	if resp == nil {
		return
	}
	c.resource = resp.Header.Get("X-RateLimit-Resource")
	c.limit = resp.Header.Get("X-RateLimit-Limit")
	c.used = resp.Header.Get("X-RateLimit-Used")
}
