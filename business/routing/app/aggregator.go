package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const instrumentationName = "github.com/fd1az/swap-router/business/routing/app"

// Aggregator fans a request out to every eligible venue and ranks the
// usable answers.
type Aggregator struct {
	adapters []VenueAdapter
	log      logger.LoggerInterface
	tracer   trace.Tracer

	failures metric.Int64Counter
	usable   metric.Int64Histogram
}

// NewAggregator creates an aggregator. Adapter order is the tie-break order.
func NewAggregator(adapters []VenueAdapter, log logger.LoggerInterface) (*Aggregator, error) {
	meter := otel.Meter(instrumentationName)

	failures, err := meter.Int64Counter("aggregator_venue_failures_total",
		metric.WithDescription("Venue quotes dropped because the venue was unavailable"),
		metric.WithUnit("{failure}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	usable, err := meter.Int64Histogram("aggregator_usable_quotes",
		metric.WithDescription("Venues with liquidity per request"),
		metric.WithUnit("{quote}"))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Aggregator{
		adapters: append([]VenueAdapter(nil), adapters...),
		log:      log,
		tracer:   otel.Tracer(instrumentationName),
		failures: failures,
		usable:   usable,
	}, nil
}

// Adapters returns the registered adapters in order.
func (a *Aggregator) Adapters() []VenueAdapter {
	return append([]VenueAdapter(nil), a.adapters...)
}

// Quote queries every adapter whose family is eligible for cls and waits
// for all of them. The result holds only usable quotes, sorted by amountOut
// descending with registration order breaking ties. An empty result means
// no liquidity; it is not an error.
func (a *Aggregator) Quote(ctx context.Context, cls domain.TokenClassification, amountIn *big.Int) []domain.VenueQuote {
	ctx, span := a.tracer.Start(ctx, "routing.aggregate",
		trace.WithAttributes(
			attribute.String("direction", cls.Direction.String()),
			attribute.String("eligible", cls.EligibleFamilies.String()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	req := QuoteRequest{
		TokenIn:     cls.VenueTokenIn,
		TokenOut:    cls.VenueTokenOut,
		AmountIn:    amountIn,
		Direction:   cls.Direction,
		TargetToken: cls.TargetToken,
	}

	eligible := make([]VenueAdapter, 0, len(a.adapters))
	for _, ad := range a.adapters {
		if cls.Eligible(ad.Family()) {
			eligible = append(eligible, ad)
		}
	}

	quotes := make([]domain.VenueQuote, len(eligible))
	errs := make([]error, len(eligible))

	var g errgroup.Group
	for i, ad := range eligible {
		g.Go(func() error {
			quotes[i], errs[i] = ad.Quote(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	ranked := make([]domain.VenueQuote, 0, len(eligible))
	for i, ad := range eligible {
		if errs[i] != nil {
			a.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", ad.Name())))
			venueErr := apperror.Wrap(errs[i], apperror.CodeVenueUnavailable, ad.Name())
			a.log.Warn(ctx, "venue unavailable", append([]any{"venue", ad.Name()}, venueErr.LogFields()...)...)
			continue
		}
		if !quotes[i].Usable() {
			a.log.Debug(ctx, "venue has no liquidity", "venue", quotes[i].VenueName)
			continue
		}
		ranked = append(ranked, quotes[i])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AmountOut.Cmp(ranked[j].AmountOut) > 0
	})

	a.usable.Record(ctx, int64(len(ranked)))
	span.SetAttributes(
		attribute.Int("venues_queried", len(eligible)),
		attribute.Int("venues_usable", len(ranked)),
	)
	return ranked
}
