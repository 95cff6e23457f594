package crawl

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/websum/websum"
)

// Outcome is the classification of a single fetch attempt, consumed by the
// dispatcher to decide between retrying, backing off, and giving up.
type Outcome int

// Fetch outcomes.
const (
	// OutcomeSuccess: the page was fetched; record it and follow its links.
	OutcomeSuccess Outcome = iota

	// OutcomeRetry: transient failure (timeout, connection reset, 5xx);
	// retry up to the configured maximum.
	OutcomeRetry

	// OutcomeRateLimited: the server asked us to slow down; back the
	// domain off and re-enqueue the task without charging its retry budget.
	OutcomeRateLimited

	// OutcomePermanent: not-found, access denied, malformed URL; terminal,
	// never retried.
	OutcomePermanent
)

// String returns a short label for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomePermanent:
		return "permanent"
	}
	return "unknown"
}

// Classifier maps raw fetch results and errors to outcomes.
type Classifier struct {
	rateLimit map[int]struct{}
}

// NewClassifier creates a Classifier treating the given status codes
// (typically 429 and 503) as rate-limit responses.
func NewClassifier(rateLimitCodes []int) *Classifier {
	rl := make(map[int]struct{}, len(rateLimitCodes))
	for _, code := range rateLimitCodes {
		rl[code] = struct{}{}
	}
	return &Classifier{rateLimit: rl}
}

// Classify decides the outcome of a fetch attempt. Errors take precedence
// over the result; a nil result with a nil error is treated as transient.
func (c *Classifier) Classify(result *websum.FetchResult, err error) Outcome {
	if err != nil {
		return c.classifyError(err)
	}
	if result == nil {
		return OutcomeRetry
	}

	code := result.StatusCode
	if _, ok := c.rateLimit[code]; ok {
		return OutcomeRateLimited
	}

	switch {
	case code >= 200 && code < 300:
		return OutcomeSuccess
	case code == 408 || code == 425:
		return OutcomeRetry
	case code >= 500:
		return OutcomeRetry
	default:
		// Remaining 3xx/4xx: the server answered definitively; retrying
		// the same URL will not change the answer.
		return OutcomePermanent
	}
}

func (c *Classifier) classifyError(err error) Outcome {
	// Malformed input never gets better on retry.
	if websum.ErrorCode(err) == websum.EINVALID {
		return OutcomePermanent
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeRetry
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return OutcomeRetry
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeRetry
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return OutcomePermanent
	}

	// Unknown failure: assume transient and let the retry budget bound it.
	return OutcomeRetry
}
