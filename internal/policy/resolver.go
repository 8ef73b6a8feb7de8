package policy

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"chat-session/internal/observability"
)

// Resolution is the outcome of one Resolve call. Degraded lists the sources
// that failed and were merged as absent.
type Resolution struct {
	Policy     EffectivePolicy
	Generation uint64
	// Published is false when a newer resolution had already been published.
	Published bool
	Degraded  []*ConfigFetchDegradedError
}

// Resolver fetches, merges and publishes the EffectivePolicy.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
	emitter *observability.Emitter
	tracer  trace.Tracer

	current atomic.Pointer[EffectivePolicy]
	issued  atomic.Uint64

	mu            sync.Mutex
	published     uint64
	applicationID int
	companyID     int
	// requestedApp is the application of the latest issued resolution.
	requestedApp int
	observers     []func(EffectivePolicy)
}

func NewResolver(fetcher Fetcher, logger *slog.Logger, emitter *observability.Emitter) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		fetcher: fetcher,
		logger:  logger.With("component", "policy"),
		emitter: emitter,
		tracer:  otel.Tracer("chat-session/policy"),
	}
	initial := Merge(nil, nil)
	r.current.Store(&initial)
	return r
}

// Current returns the latest published policy.
func (r *Resolver) Current() EffectivePolicy {
	return *r.current.Load()
}

// OnChange registers fn to run after each publish.
func (r *Resolver) OnChange(fn func(EffectivePolicy)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Bound returns the application and company ids of the published policy.
func (r *Resolver) Bound() (applicationID, companyID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applicationID, r.companyID
}

// BindCompany switches the session company and re-resolves.
func (r *Resolver) BindCompany(ctx context.Context, companyID int) Resolution {
	r.mu.Lock()
	appID := r.requestedApp
	r.mu.Unlock()
	return r.Resolve(ctx, appID, companyID)
}

// Resolve fetches both sources concurrently and publishes their merge. It
// never fails: a source that cannot be loaded is merged as absent. The
// company source is skipped when companyID is not positive.
func (r *Resolver) Resolve(ctx context.Context, applicationID, companyID int) Resolution {
	gen := r.issued.Add(1)
	r.mu.Lock()
	r.requestedApp = applicationID
	r.mu.Unlock()

	ctx, span := r.tracer.Start(ctx, "policy.resolve", trace.WithAttributes(
		attribute.Int("application_id", applicationID),
		attribute.Int("company_id", companyID),
	))
	defer span.End()

	var (
		app, company       *SourceConfig
		appErr, companyErr error
		g                  errgroup.Group
	)
	if applicationID > 0 {
		g.Go(func() error {
			app, appErr = r.fetcher.ApplicationConfig(ctx, applicationID)
			return nil
		})
	}
	if companyID > 0 {
		g.Go(func() error {
			company, companyErr = r.fetcher.CompanyConfig(ctx, companyID)
			return nil
		})
	}
	_ = g.Wait()

	res := Resolution{Generation: gen}
	if appErr != nil {
		app = nil
		res.Degraded = append(res.Degraded, r.degraded(SourceApplication, applicationID, appErr))
	}
	if companyErr != nil {
		company = nil
		res.Degraded = append(res.Degraded, r.degraded(SourceCompany, companyID, companyErr))
	}
	span.SetAttributes(attribute.Int("degraded_sources", len(res.Degraded)))

	res.Policy = Merge(app, company)
	res.Published = r.publish(gen, applicationID, companyID, res.Policy)
	if res.Published {
		r.emitter.Emit(ctx, observability.EventPolicyResolved, map[string]any{
			"application_id":   applicationID,
			"company_id":       companyID,
			"degraded_sources": len(res.Degraded),
		})
	}
	return res
}

func (r *Resolver) degraded(source string, id int, err error) *ConfigFetchDegradedError {
	observability.IncConfigDegraded(source)
	r.logger.Warn("configuration source unavailable", "source", source, "id", id, "error", err)
	return &ConfigFetchDegradedError{Source: source, ID: id, Err: err}
}

// publish stores p and its bound ids unless a newer generation is already
// visible.
func (r *Resolver) publish(gen uint64, applicationID, companyID int, p EffectivePolicy) bool {
	r.mu.Lock()
	if gen <= r.published {
		r.mu.Unlock()
		r.logger.Debug("discarding stale policy resolution", "generation", gen)
		return false
	}
	r.published = gen
	r.applicationID, r.companyID = applicationID, companyID
	r.current.Store(&p)
	observers := slices.Clone(r.observers)
	r.mu.Unlock()

	for _, fn := range observers {
		fn(p)
	}
	return true
}
