// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// TokenRateLimiter budgets AI API token usage over a one-minute window.
// Reserve is called with an estimate before each request; Record reports
// the actual usage afterwards so the window tracks what the API billed.
type TokenRateLimiter struct {
	mu              sync.Mutex
	tokensPerMinute int
	used            int
	windowStart     time.Time

	// now is the clock; tests substitute it.
	now func() time.Time
}

const defaultTokensPerMinute = 6000

// NewTokenRateLimiter creates a limiter with the given per-minute budget.
// A non-positive budget falls back to the default (6000).
func NewTokenRateLimiter(tokensPerMinute int) *TokenRateLimiter {
	if tokensPerMinute <= 0 {
		tokensPerMinute = defaultTokensPerMinute
	}
	l := &TokenRateLimiter{
		tokensPerMinute: tokensPerMinute,
		now:             time.Now,
	}
	l.windowStart = l.now()
	return l
}

// Reserve reports how long the caller must wait before issuing a request
// estimated to consume the given tokens. Zero means the request may
// proceed immediately. When a full minute has elapsed since the window
// started the counter resets.
func (l *TokenRateLimiter) Reserve(estimated int) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) > time.Minute {
		l.used = 0
		l.windowStart = now
		return 0
	}

	if l.tokensPerMinute-l.used >= estimated {
		return 0
	}

	return time.Minute - now.Sub(l.windowStart)
}

// Record adds actual token usage to the current window.
func (l *TokenRateLimiter) Record(used int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used += used
}

// promptOverheadFactor inflates the word count to approximate tokens.
const promptOverheadFactor = 1.3

// EstimateTokens approximates the token cost of composing for a lead:
// the rendered prompt's word count scaled by the overhead factor, plus
// the full output budget. The profile must be the one the backend will
// render with, or the estimate undercounts.
func EstimateTokens(lead types.Lead, profile types.SenderProfile, maxTokens int) int {
	prompt, err := renderPrompt(lead, profile)
	if err != nil {
		return maxTokens * 2
	}
	words := len(strings.Fields(prompt))
	return int(float64(words)*promptOverheadFactor) + maxTokens
}
