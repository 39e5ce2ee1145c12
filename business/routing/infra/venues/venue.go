// Package venues implements one VenueAdapter per liquidity family on top
// of read-only contract calls.
package venues

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/routing/infra/venues"
	meterName  = "github.com/fd1az/swap-router/business/routing/infra/venues"

	defaultCallTimeout = 5 * time.Second
)

// venueMetrics holds OTEL metric instruments shared by all adapters.
type venueMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
}

func newVenueMetrics() (*venueMetrics, error) {
	meter := otel.Meter(meterName)
	m := &venueMetrics{}
	var err error

	m.quotesTotal, err = meter.Int64Counter(
		"venue_quotes_total",
		metric.WithDescription("Venue quote attempts by outcome"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return nil, err
	}

	m.quoteLatency, err = meter.Float64Histogram(
		"venue_quote_latency_ms",
		metric.WithDescription("Venue quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// base carries what every adapter shares.
type base struct {
	id          domain.VenueID
	name        string
	family      domain.Family
	ledger      app.LedgerReader
	callTimeout time.Duration

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *venueMetrics
}

func newBase(id domain.VenueID, name string, family domain.Family, ledger app.LedgerReader, opts Options) (base, error) {
	m, err := newVenueMetrics()
	if err != nil {
		return base{}, fmt.Errorf("init metrics: %w", err)
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.New(io.Discard, logger.LevelError, "venues", nil)
	}
	return base{
		id:          id,
		name:        name,
		family:      family,
		ledger:      ledger,
		callTimeout: timeout,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
		metrics:     m,
	}, nil
}

func (b *base) ID() domain.VenueID    { return b.id }
func (b *base) Name() string          { return b.name }
func (b *base) Family() domain.Family { return b.family }

// start opens the adapter span and bounds ctx by the per-call timeout.
func (b *base) start(ctx context.Context, req app.QuoteRequest) (context.Context, trace.Span, context.CancelFunc) {
	ctx, span := b.tracer.Start(ctx, "venue.quote",
		trace.WithAttributes(
			attribute.String("venue", b.name),
			attribute.Int("venue_id", int(b.id)),
			attribute.String("family", b.family.String()),
			attribute.String("token_in", req.TokenIn.Hex()),
			attribute.String("token_out", req.TokenOut.Hex()),
			attribute.String("amount_in", req.AmountIn.String()),
		),
	)
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	return ctx, span, cancel
}

// finish records the outcome. A non-nil err becomes VENUE_UNAVAILABLE and
// the returned quote is forced to no liquidity.
func (b *base) finish(ctx context.Context, span trace.Span, started time.Time, q domain.VenueQuote, err error) (domain.VenueQuote, error) {
	b.metrics.quoteLatency.Record(ctx, float64(time.Since(started).Microseconds())/1000,
		metric.WithAttributes(attribute.String("venue", b.name)))

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "unavailable"
		span.RecordError(err)
		span.SetStatus(codes.Error, "venue unavailable")
		q = domain.NoLiquidity(b.id, b.name)
		err = apperror.New(apperror.CodeVenueUnavailable,
			apperror.WithCause(err),
			apperror.WithContextf("venue %s", b.name))
	case !q.Usable():
		outcome = "no_liquidity"
		q = domain.NoLiquidity(b.id, q.VenueName)
		span.SetStatus(codes.Ok, "no liquidity")
	default:
		span.SetAttributes(
			attribute.String("amount_out", q.AmountOut.String()),
			attribute.Int("fee_tier", int(q.FeeTier)),
		)
		span.SetStatus(codes.Ok, "quoted")
	}

	b.metrics.quotesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", b.name),
		attribute.String("outcome", outcome),
	))
	return q, err
}

// call packs method, performs the ledger read and unpacks the outputs.
func (b *base) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeABIEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContextf("pack %s", method))
	}

	raw, err := b.ledger.Call(ctx, to, data)
	if err != nil {
		return nil, err
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeABIDecodingFailed,
			apperror.WithCause(err),
			apperror.WithContextf("unpack %s from %s", method, to.Hex()))
	}
	return out, nil
}

func bigAt(out []any, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("output %d missing", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d: unexpected type %T", i, out[i])
	}
	return v, nil
}

func addressAt(out []any, i int) (common.Address, error) {
	if i >= len(out) {
		return common.Address{}, fmt.Errorf("output %d missing", i)
	}
	v, ok := out[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("output %d: unexpected type %T", i, out[i])
	}
	return v, nil
}

func boolAt(out []any, i int) (bool, error) {
	if i >= len(out) {
		return false, fmt.Errorf("output %d missing", i)
	}
	v, ok := out[i].(bool)
	if !ok {
		return false, fmt.Errorf("output %d: unexpected type %T", i, out[i])
	}
	return v, nil
}

// quoter calls quoteExactInputSingle on a QuoterV2 deployment.
type quoter struct {
	b       *base
	address common.Address
}

func (q quoter) quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error) {
	out, err := q.b.call(ctx, quoterABI, q.address, "quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: new(big.Int), // No price limit
	})
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0)
}
