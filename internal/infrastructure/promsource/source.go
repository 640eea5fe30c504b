// Package promsource implements [domain.MetricsSource] backed by a
// Prometheus-compatible metrics backend.
package promsource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// queryAPI is the slice of the Prometheus v1 API the source uses.
type queryAPI interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

// Queries are the instant-query templates the source evaluates per
// observation tick. Each template receives one %s argument: a
// pipe-joined unit ID list suitable for a label regex match.
type Queries struct {
	ErrorRate   string
	LatencyP99  string
	Performance string
}

// DefaultQueries returns query templates against the serving layer's
// standard metric names.
func DefaultQueries() Queries {
	return Queries{
		ErrorRate: `sum(rate(model_requests_failed_total{unit=~"%s"}[1m]))` +
			` / sum(rate(model_requests_total{unit=~"%s"}[1m]))`,
		LatencyP99: `histogram_quantile(0.99,` +
			` sum by (le) (rate(model_request_duration_ms_bucket{unit=~"%s"}[1m])))`,
		Performance: `avg(model_performance_score{unit=~"%s"})`,
	}
}

// Source implements [domain.MetricsSource] by evaluating instant
// queries against Prometheus. Baseline snapshots are the same queries
// shifted back by BaselineOffset, which must cover the point before the
// rollout started mutating the unit set.
type Source struct {
	API     queryAPI
	Queries Queries

	// BaselineOffset is how far back the baseline queries look.
	// Defaults to one hour.
	BaselineOffset time.Duration

	Now func() time.Time
}

// New creates a Source from a Prometheus API client.
func New(client api.Client) *Source {
	return &Source{API: v1.NewAPI(client), Queries: DefaultQueries()}
}

func (s *Source) Snapshot(ctx context.Context, units []domain.UnitID) (domain.HealthSnapshot, error) {
	return s.snapshotAt(ctx, units, s.now())
}

func (s *Source) Baseline(ctx context.Context, units []domain.UnitID) (domain.HealthSnapshot, error) {
	offset := s.BaselineOffset
	if offset <= 0 {
		offset = time.Hour
	}
	return s.snapshotAt(ctx, units, s.now().Add(-offset))
}

func (s *Source) snapshotAt(ctx context.Context, units []domain.UnitID, ts time.Time) (domain.HealthSnapshot, error) {
	if len(units) == 0 {
		return domain.HealthSnapshot{}, fmt.Errorf("%w: no units to observe", domain.ErrInvalidConfig)
	}
	selector := unitSelector(units)

	errorRate, err := s.scalar(ctx, expand(s.Queries.ErrorRate, selector), ts)
	if err != nil {
		return domain.HealthSnapshot{}, fmt.Errorf("query error rate: %w", err)
	}
	latency, err := s.scalar(ctx, expand(s.Queries.LatencyP99, selector), ts)
	if err != nil {
		return domain.HealthSnapshot{}, fmt.Errorf("query latency: %w", err)
	}
	performance, err := s.scalar(ctx, expand(s.Queries.Performance, selector), ts)
	if err != nil {
		return domain.HealthSnapshot{}, fmt.Errorf("query performance: %w", err)
	}

	return domain.HealthSnapshot{
		ErrorRate:   errorRate,
		LatencyP99:  latency,
		Performance: performance,
		Timestamp:   ts,
	}, nil
}

// scalar evaluates an instant query and reduces the result to a single
// float. An empty result reads as zero, which the evaluator treats the
// same as a missing metric.
func (s *Source) scalar(ctx context.Context, query string, ts time.Time) (float64, error) {
	value, _, err := s.API.Query(ctx, query, ts)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case *model.Scalar:
		return float64(v.Value), nil
	case model.Vector:
		if len(v) == 0 {
			return 0, nil
		}
		if len(v) > 1 {
			return 0, fmt.Errorf("query %q returned %d series, want 1", query, len(v))
		}
		return float64(v[0].Value), nil
	default:
		return 0, fmt.Errorf("query %q returned unexpected type %s", query, value.Type())
	}
}

// expand substitutes the unit selector for every %s in the template.
func expand(template, selector string) string {
	n := strings.Count(template, "%s")
	args := make([]any, n)
	for i := range args {
		args[i] = selector
	}
	return fmt.Sprintf(template, args...)
}

func unitSelector(units []domain.UnitID) string {
	ids := make([]string, len(units))
	for i, id := range units {
		ids[i] = string(id)
	}
	return strings.Join(ids, "|")
}

func (s *Source) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
