package providers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter measured in requests
// per minute.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	windowSeconds     float64

	// Token bucket state
	tokens     float64
	lastUpdate time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a new rate limiter. Non-positive values use 150 RPM.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 150
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		windowSeconds:     60.0,
		tokens:            float64(requestsPerMinute),
		lastUpdate:        time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}

		waitTime := r.timeUntilToken()
		r.mu.Unlock()

		// Wait outside lock
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			r.mu.Lock()
			r.totalWaited += waitTime
			r.mu.Unlock()
		}
	}
}

// TryConsume attempts to consume a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1.0 {
		r.tokens--
		r.totalConsumed++
		return true
	}
	return false
}

// Record429 notes a rate-limit response from the provider. A positive
// retryAfter drains the bucket.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = time.Now()
	if retryAfter > 0 {
		r.tokens = 0
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	utilization := 1.0 - (r.tokens / float64(r.requestsPerMinute))
	if utilization < 0 {
		utilization = 0
	}

	var timeUntilToken time.Duration
	if r.tokens < 1.0 {
		timeUntilToken = r.timeUntilToken()
	}

	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.requestsPerMinute,
		Utilization:     utilization,
		TimeUntilToken:  timeUntilToken,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// timeUntilToken must be called with lock held.
func (r *RateLimiter) timeUntilToken() time.Duration {
	tokensNeeded := 1.0 - r.tokens
	refillRate := float64(r.requestsPerMinute) / r.windowSeconds
	return time.Duration(tokensNeeded/refillRate*1000) * time.Millisecond
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	refillRate := float64(r.requestsPerMinute) / r.windowSeconds
	r.tokens += elapsed * refillRate

	if r.tokens > float64(r.requestsPerMinute) {
		r.tokens = float64(r.requestsPerMinute)
	}
}

// RateLimitedClient wraps an LLMClient so every Chat call first takes a token
// from a shared limiter.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *RateLimiter
}

// NewRateLimitedClient wraps inner with limiter.
func NewRateLimitedClient(inner LLMClient, limiter *RateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// Name returns the wrapped client's name.
func (c *RateLimitedClient) Name() string {
	return c.inner.Name()
}

// Unwrap returns the wrapped client.
func (c *RateLimitedClient) Unwrap() LLMClient {
	return c.inner
}

// Limiter returns the shared limiter.
func (c *RateLimitedClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat waits for a token and forwards the request.
func (c *RateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.inner.Chat(ctx, req)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		c.limiter.Record429(time.Second)
	}
	return result, err
}

// Verify interface
var _ LLMClient = (*RateLimitedClient)(nil)
