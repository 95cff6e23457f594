package crawl

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/websum/websum"
)

// Limiter enforces politeness: a minimum interval between requests to the
// same domain, exponential backoff with cooldowns after rate-limit
// responses, and an optional global requests-per-minute token bucket.
// The two limits compose; neither overrides the other.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	mu      sync.Mutex
	domains map[string]*domainState

	base      time.Duration
	max       time.Duration
	factor    float64
	maxErrors int

	global *rate.Limiter // nil when no global cap is configured
}

// domainState mirrors websum.DomainState; owned exclusively by the Limiter.
type domainState struct {
	lastRequest       time.Time // next-permitted-request reservation point
	delay             time.Duration
	cooldownUntil     time.Time
	consecutiveErrors int
	skipped           bool
}

// NewLimiter creates a Limiter from the run configuration.
func NewLimiter(cfg websum.Config) *Limiter {
	l := &Limiter{
		domains:   make(map[string]*domainState),
		base:      cfg.BaseDelay,
		max:       cfg.MaxDelay,
		factor:    cfg.BackoffFactor,
		maxErrors: cfg.MaxDomainErrors,
	}
	if cfg.GlobalRPM > 0 {
		l.global = rate.NewLimiter(rate.Limit(float64(cfg.GlobalRPM)/60.0), 1)
	}
	return l
}

// Wait blocks until a request to the domain is permitted: past the
// domain's cooldown, at least the current delay after its previous
// request, and within the global bucket. The permitted slot is reserved
// under the lock, so concurrent workers hitting one domain space out and
// the domain's next permitted time never moves backwards.
// Returns an error if the context is canceled before the wait completes.
func (l *Limiter) Wait(ctx context.Context, domain string) error {
	l.mu.Lock()
	d := l.domain(domain)

	now := time.Now()
	target := d.lastRequest.Add(d.delay)
	if d.cooldownUntil.After(d.lastRequest) {
		// An unconsumed cooldown replaces the normal request spacing; the
		// grown delay only spaces requests after the cooldown slot is taken.
		// Cooldowns never precede the last reserved slot, so the next
		// permitted time stays monotonically non-decreasing.
		target = d.cooldownUntil
	}
	if target.Before(now) {
		target = now
	}
	d.lastRequest = target
	l.mu.Unlock()

	if wait := time.Until(target); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if l.global != nil {
		return l.global.Wait(ctx)
	}
	return nil
}

// Observe updates a domain's state after a fetch. A rate-limited outcome
// starts a cooldown of the current delay and then grows the delay by the
// backoff factor, capped at the maximum, so consecutive rate limits
// produce waits of base, base×factor, base×factor², ... Any other outcome
// resets the domain to its base delay.
func (l *Limiter) Observe(domain string, outcome Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.domain(domain)

	if outcome != OutcomeRateLimited {
		d.delay = l.base
		d.consecutiveErrors = 0
		return
	}

	d.cooldownUntil = time.Now().Add(d.delay)
	next := time.Duration(float64(d.delay) * l.factor)
	if l.max > 0 && next > l.max {
		next = l.max
	}
	d.delay = next
	d.consecutiveErrors++
	if d.consecutiveErrors > l.maxErrors {
		d.skipped = true
	}
}

// Skipped reports whether the domain has been permanently skipped after
// too many consecutive rate-limit errors.
func (l *Limiter) Skipped(domain string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.domains[domain]
	return ok && d.skipped
}

// Snapshot returns all domain states, sorted by domain, for checkpointing.
func (l *Limiter) Snapshot() []websum.DomainState {
	l.mu.Lock()
	defer l.mu.Unlock()

	states := make([]websum.DomainState, 0, len(l.domains))
	for name, d := range l.domains {
		states = append(states, websum.DomainState{
			Domain:            name,
			LastRequest:       d.lastRequest,
			CurrentDelay:      d.delay,
			CooldownUntil:     d.cooldownUntil,
			ConsecutiveErrors: d.consecutiveErrors,
			Skipped:           d.skipped,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Domain < states[j].Domain })
	return states
}

// Restore rehydrates domain states from a checkpoint.
func (l *Limiter) Restore(states []websum.DomainState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range states {
		if s.Domain == "" {
			continue
		}
		delay := s.CurrentDelay
		if delay < l.base {
			delay = l.base
		}
		l.domains[s.Domain] = &domainState{
			lastRequest:       s.LastRequest,
			delay:             delay,
			cooldownUntil:     s.CooldownUntil,
			consecutiveErrors: s.ConsecutiveErrors,
			skipped:           s.Skipped,
		}
	}
}

// domain returns the state for a domain, creating it at the base delay.
// Caller must hold l.mu.
func (l *Limiter) domain(name string) *domainState {
	d, ok := l.domains[name]
	if !ok {
		d = &domainState{delay: l.base}
		l.domains[name] = d
	}
	return d
}
