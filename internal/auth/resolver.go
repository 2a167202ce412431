package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/domain"
)

var (
	// ErrSkip means the strategy does not apply to this request.
	ErrSkip = errors.New("auth: strategy not applicable")
	// ErrCredentialRejected means the stored credential is no longer usable
	// and must be discarded.
	ErrCredentialRejected = errors.New("auth: stored credential rejected")
)

// Request is everything a strategy may look at.
type Request struct {
	Header     http.Header
	Credential *domain.StoredCredential
}

type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) (*domain.Identity, error)
}

type Resolution struct {
	Identity *domain.Identity
	Strategy string
	// DiscardCredential is set when the stored credential failed validation.
	DiscardCredential bool
}

func (r Resolution) Authenticated() bool { return r.Identity != nil }

type Resolver struct {
	strategies []Strategy
	metrics    *metrics.AuthMetrics
}

func NewResolver(m *metrics.AuthMetrics, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, metrics: m}
}

// Names lists the configured strategies in evaluation order.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Resolve evaluates strategies in order until one succeeds. Failures are not
// retried and transient errors are treated like permanent ones.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	var res Resolution

	for _, s := range r.strategies {
		id, err := s.Resolve(ctx, req)
		switch {
		case err == nil:
			r.metrics.Resolved(s.Name(), "success")
			res.Identity = id
			res.Strategy = s.Name()
			return res
		case errors.Is(err, ErrSkip):
			continue
		case errors.Is(err, ErrCredentialRejected):
			r.metrics.Resolved(s.Name(), "rejected")
			slog.InfoContext(ctx, "Stored credential rejected, discarding", "strategy", s.Name(), "error", err)
			res.DiscardCredential = true
			req.Credential = nil
		default:
			r.metrics.Resolved(s.Name(), "failure")
			slog.WarnContext(ctx, "Auth strategy failed", "strategy", s.Name(), "error", err)
		}
	}

	r.metrics.Resolved("none", "unauthenticated")
	return res
}
