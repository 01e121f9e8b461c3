// Package ratelimit enforces sliding-window request limits declared on API operations.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// MetadataKey is the huma operation metadata key holding the operation's []Rule.
const MetadataKey = "rateLimit"

// Rule allows at most Max requests per client within Window.
type Rule struct {
	Max    int64
	Window time.Duration
}

// PerMinute returns the rules for a per-minute limit, or nil when max is not positive.
func PerMinute(max int64) []Rule {
	if max <= 0 {
		return nil
	}

	return []Rule{{Max: max, Window: time.Minute}}
}

// RulesFor returns the rules attached to op.
func RulesFor(op *huma.Operation) []Rule {
	if op == nil || op.Metadata == nil {
		return nil
	}

	rules, _ := op.Metadata[MetadataKey].([]Rule)

	return rules
}

// Exceeded describes the rule a request broke.
type Exceeded struct {
	Rule  Rule
	Count int64
}

func (e *Exceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d/%d requests in %s", e.Count, e.Rule.Max, e.Rule.Window)
}

// Limiter checks requests against sliding-window rules.
type Limiter struct {
	store Store
}

// NewLimiter creates a limiter counting requests in store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check records a request for key against every rule. It returns the first rule exceeded,
// or nil when the request is allowed.
func (l *Limiter) Check(ctx context.Context, key string, rules []Rule) (*Exceeded, error) {
	for _, rule := range rules {
		ruleKey := fmt.Sprintf("%s:%d", key, rule.Window.Milliseconds())

		count, err := l.store.Record(ctx, ruleKey, rule.Window)
		if err != nil {
			return nil, fmt.Errorf("record request: %w", err)
		}

		if count > rule.Max {
			return &Exceeded{Rule: rule, Count: count}, nil
		}
	}

	return nil, nil
}
