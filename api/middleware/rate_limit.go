package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/api/responses"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

type counterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RateLimitPolicy is a fixed window shared by an IP ceiling and a per-owner
// ceiling. A zero limit turns that ceiling off.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	ownerLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, ownerLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "api"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit, ownerLimit: ownerLimit}
}

type limitScope struct {
	kind  string
	limit int
	id    func(*http.Request) string
}

func (p RateLimitPolicy) scopes() []limitScope {
	if p.window <= 0 {
		return nil
	}
	var out []limitScope
	if p.ipLimit > 0 {
		out = append(out, limitScope{kind: "ip", limit: p.ipLimit, id: clientIP})
	}
	if p.ownerLimit > 0 {
		out = append(out, limitScope{kind: "owner", limit: p.ownerLimit, id: func(r *http.Request) string {
			if owner := OwnerIDFromContext(r.Context()); owner != uuid.Nil {
				return owner.String()
			}
			return ""
		}})
	}
	return out
}

// RateLimit counts each request against every active scope of policy. The
// owner scope only applies once Auth has put an owner on the context.
func RateLimit(policy RateLimitPolicy, store counterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	scopes := policy.scopes()
	return func(next http.Handler) http.Handler {
		if len(scopes) == 0 || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, s := range scopes {
				id := s.id(r)
				if id == "" {
					continue
				}
				count, err := store.IncrWithTTL(ctx, "rl:"+s.kind+":"+policy.name+":"+id, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				remaining := int64(s.limit) - count
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(remaining, 0), 10))
				if remaining < 0 {
					rejectOverLimit(ctx, logg, w, policy, s, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectOverLimit(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, s limitScope, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.name,
			"scope":    s.kind,
			"attempts": count,
			"limit":    s.limit,
		}), "rate limit exceeded")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP prefers the first X-Forwarded-For hop, as set by the load
// balancer in front of the api.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
