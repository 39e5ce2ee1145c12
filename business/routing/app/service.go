package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
)

// AutoDecimals asks the service to look the input token's decimals up.
const AutoDecimals = -1

const defaultRequestTimeout = 10 * time.Second

// RouteRequest is the caller-facing input. AmountIn is a human decimal
// string scaled once with TokenInDecimals.
type RouteRequest struct {
	TokenIn         string
	TokenOut        string
	AmountIn        string
	TokenInDecimals int
	SlippageBps     int
}

// ServiceConfig tunes the routing pipeline.
type ServiceConfig struct {
	ProtocolFeeBps     uint32
	DefaultSlippageBps uint32
	SplitThresholdBps  uint32
	PrimarySplitPct    uint8
	// RequestTimeout bounds a whole call; a sooner caller deadline wins.
	RequestTimeout time.Duration
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ProtocolFeeBps:     DefaultProtocolFeeBps,
		DefaultSlippageBps: 50,
		SplitThresholdBps:  DefaultSplitThresholdBps,
		PrimarySplitPct:    DefaultPrimarySplitPct,
		RequestTimeout:     defaultRequestTimeout,
	}
}

type serviceMetrics struct {
	routes  metric.Int64Counter
	latency metric.Float64Histogram
	invalid metric.Int64Counter
}

// RoutingService finds execution plans for swaps.
type RoutingService struct {
	registry   *asset.Registry
	classifier *Classifier
	aggregator *Aggregator
	optimizer  *Optimizer
	calc       Calculator
	multiHop   *MultiHopFinder
	inspector  HybridInspector
	metadata   TokenMetadata

	cfg     ServiceConfig
	log     logger.LoggerInterface
	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewRoutingService wires the pipeline over adapters, which must be in
// registration order.
func NewRoutingService(
	registry *asset.Registry,
	adapters []VenueAdapter,
	rules ClassifierRules,
	metadata TokenMetadata,
	cfg ServiceConfig,
	log logger.LoggerInterface,
) (*RoutingService, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ProtocolFeeBps > domain.BpsDenominator {
		return nil, fmt.Errorf("protocol fee %d bps above 100%%", cfg.ProtocolFeeBps)
	}

	optimizer, err := NewOptimizer(cfg.SplitThresholdBps, cfg.PrimarySplitPct)
	if err != nil {
		return nil, err
	}
	aggregator, err := NewAggregator(adapters, log)
	if err != nil {
		return nil, err
	}

	classifier := NewClassifier(registry, rules)
	calc := NewCalculator(cfg.ProtocolFeeBps)

	s := &RoutingService{
		registry:   registry,
		classifier: classifier,
		aggregator: aggregator,
		optimizer:  optimizer,
		calc:       calc,
		multiHop:   NewMultiHopFinder(adapters, classifier, calc, registry.WrappedNative().Address(), log),
		metadata:   metadata,
		cfg:        cfg,
		log:        log,
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, a := range adapters {
		if hi, ok := a.(HybridInspector); ok {
			s.inspector = hi
			break
		}
	}

	meter := otel.Meter(instrumentationName)
	m := &serviceMetrics{}
	if m.routes, err = meter.Int64Counter("routes_found_total",
		metric.WithDescription("Route requests by plan shape"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if m.latency, err = meter.Float64Histogram("route_latency_ms",
		metric.WithDescription("End to end route search latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if m.invalid, err = meter.Int64Counter("route_requests_rejected_total",
		metric.WithDescription("Route requests rejected before any venue call"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	s.metrics = m

	return s, nil
}

// DefaultSlippageBps is used by callers that have no tolerance of their own.
func (s *RoutingService) DefaultSlippageBps() uint32 { return s.cfg.DefaultSlippageBps }

// Registry exposes the known assets.
func (s *RoutingService) Registry() *asset.Registry { return s.registry }

// parsed is a validated RouteRequest.
type parsed struct {
	tokenIn, tokenOut common.Address
	amountIn          *big.Int
	decimals          uint8
	slippageBps       uint32
}

func (s *RoutingService) parse(ctx context.Context, req RouteRequest) (parsed, error) {
	var p parsed

	tokenIn, err := parseAddress("tokenIn", req.TokenIn)
	if err != nil {
		return p, err
	}
	tokenOut, err := parseAddress("tokenOut", req.TokenOut)
	if err != nil {
		return p, err
	}
	if tokenIn == tokenOut {
		return p, apperror.New(apperror.CodeIdenticalTokens,
			apperror.WithContextf("token %s", tokenIn.Hex()))
	}

	if req.SlippageBps < 0 || req.SlippageBps > domain.BpsDenominator {
		return p, apperror.New(apperror.CodeInvalidSlippage,
			apperror.WithContextf("slippage %d bps outside [0, %d]", req.SlippageBps, domain.BpsDenominator))
	}

	decimals, err := s.inputDecimals(ctx, tokenIn, req.TokenInDecimals)
	if err != nil {
		return p, err
	}

	amountIn, err := asset.ParseUnits(req.AmountIn, decimals)
	if err != nil {
		return p, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithCause(err),
			apperror.WithContextf("amount %q with %d decimals", req.AmountIn, decimals))
	}
	if amountIn.Sign() <= 0 {
		return p, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContextf("amount %q must be positive", req.AmountIn))
	}
	if _, err := domain.ToUint256(amountIn); err != nil {
		return p, apperror.New(apperror.CodeArithmeticOverflow,
			apperror.WithCause(err),
			apperror.WithContextf("amount %q", req.AmountIn))
	}

	return parsed{
		tokenIn:     tokenIn,
		tokenOut:    tokenOut,
		amountIn:    amountIn,
		decimals:    decimals,
		slippageBps: uint32(req.SlippageBps),
	}, nil
}

// inputDecimals forces the native decimals for the native and wrapped-native
// assets; AutoDecimals resolves through token metadata.
func (s *RoutingService) inputDecimals(ctx context.Context, token common.Address, requested int) (uint8, error) {
	if s.registry.IsNative(token) || s.registry.IsWrappedNative(token) {
		return s.registry.Native().Decimals(), nil
	}
	if requested == AutoDecimals {
		if s.metadata == nil {
			return 0, apperror.New(apperror.CodeInvalidDecimals,
				apperror.WithContext("no token metadata source to resolve decimals"))
		}
		return s.metadata.Decimals(ctx, token)
	}
	if requested < 0 || requested > asset.MaxDecimals {
		return 0, apperror.New(apperror.CodeInvalidDecimals,
			apperror.WithContextf("decimals %d outside [0, %d]", requested, asset.MaxDecimals))
	}
	return uint8(requested), nil
}

func parseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContextf("%s %q", field, s))
	}
	return common.HexToAddress(s), nil
}

// withDeadline bounds ctx by the request timeout, keeping an earlier
// caller deadline.
func (s *RoutingService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

// FindRoute returns the execution plan for req. A pair without liquidity
// yields an empty plan, not an error; errors mean the request was invalid
// or the arithmetic overflowed.
func (s *RoutingService) FindRoute(ctx context.Context, req RouteRequest) (*domain.RoutePlan, error) {
	started := time.Now()
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "routing.find_route",
		trace.WithAttributes(
			attribute.String("token_in", req.TokenIn),
			attribute.String("token_out", req.TokenOut),
			attribute.String("amount_in", req.AmountIn),
			attribute.Int("slippage_bps", req.SlippageBps),
		),
	)
	defer span.End()

	p, err := s.parse(ctx, req)
	if err != nil {
		return nil, s.reject(ctx, span, err)
	}

	plan, err := s.findRoute(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "route failed")
		return nil, err
	}

	shape := planShape(plan)
	s.metrics.routes.Add(ctx, 1, metric.WithAttributes(attribute.String("shape", shape)))
	s.metrics.latency.Record(ctx, float64(time.Since(started).Microseconds())/1000)
	span.SetAttributes(
		attribute.String("shape", shape),
		attribute.String("total_expected_out", plan.TotalExpectedOut.String()),
	)
	span.SetStatus(codes.Ok, "route found")

	s.log.Info(ctx, "route computed",
		"token_in", p.tokenIn.Hex(),
		"token_out", p.tokenOut.Hex(),
		"amount_in", p.amountIn.String(),
		"shape", shape,
		"best", plan.BestSingleVenueName,
		"total_expected_out", plan.TotalExpectedOut.String(),
		"total_min_out", plan.TotalMinOut.String(),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return plan, nil
}

func (s *RoutingService) findRoute(ctx context.Context, p parsed) (*domain.RoutePlan, error) {
	cls := s.classifier.Classify(p.tokenIn, p.tokenOut)
	if cls.IsWrapUnwrap {
		return s.wrapUnwrapPlan(cls, p)
	}

	effective, fee, err := s.calc.EffectiveAmountIn(p.amountIn, s.registry.IsNative(p.tokenIn))
	if err != nil {
		return nil, overflow(err)
	}
	if effective.Sign() == 0 {
		return domain.EmptyPlan(p.amountIn, effective, fee, p.slippageBps), nil
	}

	quotes := s.aggregator.Quote(ctx, cls, effective)
	if len(quotes) == 0 {
		return domain.EmptyPlan(p.amountIn, effective, fee, p.slippageBps), nil
	}

	routes, err := s.optimizer.Optimize(quotes, effective)
	if err != nil {
		return nil, overflow(err)
	}
	totalExpected, totalMin, err := s.calc.ApplySlippage(routes, p.slippageBps)
	if err != nil {
		return nil, overflow(err)
	}

	plan := &domain.RoutePlan{
		Routes:              routes,
		TotalExpectedOut:    totalExpected,
		TotalMinOut:         totalMin,
		BestSingleVenueName: quotes[0].VenueName,
		IsSplitBetter:       len(routes) > 1 && totalExpected.Cmp(quotes[0].AmountOut) > 0,
		PriceImpactEstimate: domain.EstimatePriceImpact(effective, p.decimals),
		AmountIn:            p.amountIn,
		EffectiveAmountIn:   effective,
		ProtocolFee:         fee,
		SlippageBps:         p.slippageBps,
	}
	if err := plan.CheckInvariants(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("route plan"))
	}
	return plan, nil
}

// wrapUnwrapPlan converts 1:1 without touching any venue or charging a fee.
func (s *RoutingService) wrapUnwrapPlan(cls domain.TokenClassification, p parsed) (*domain.RoutePlan, error) {
	name := "Unwrap " + s.registry.WrappedNative().Symbol()
	if cls.Wrap {
		name = "Wrap " + s.registry.Native().Symbol()
	}

	minOut, err := domain.MinOut(p.amountIn, p.slippageBps)
	if err != nil {
		return nil, overflow(err)
	}

	plan := domain.EmptyPlan(p.amountIn, p.amountIn, new(big.Int), p.slippageBps)
	plan.Routes = []domain.Route{{
		VenueID:     domain.WrapUnwrapVenueID,
		VenueName:   name,
		AmountIn:    new(big.Int).Set(p.amountIn),
		ExpectedOut: new(big.Int).Set(p.amountIn),
		MinOut:      minOut,
		Percentage:  100,
	}}
	plan.TotalExpectedOut = new(big.Int).Set(p.amountIn)
	plan.TotalMinOut = new(big.Int).Set(minOut)
	plan.BestSingleVenueName = name
	plan.IsWrapUnwrap = true
	return plan, nil
}

// FindMultiHopRoute routes through the wrapped native asset. A nil route
// with a nil error means no route exists.
func (s *RoutingService) FindMultiHopRoute(ctx context.Context, req RouteRequest) (*domain.MultiHopRoute, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "routing.find_multihop_route")
	defer span.End()

	p, err := s.parse(ctx, req)
	if err != nil {
		return nil, s.reject(ctx, span, err)
	}

	route, err := s.multiHop.Find(ctx, p.tokenIn, p.tokenOut, p.amountIn, p.slippageBps, p.decimals)
	if err != nil {
		span.RecordError(err)
		return nil, overflow(err)
	}
	if route == nil {
		s.metrics.routes.Add(ctx, 1, metric.WithAttributes(attribute.String("shape", "multihop_none")))
		return nil, nil
	}
	s.metrics.routes.Add(ctx, 1, metric.WithAttributes(attribute.String("shape", "multihop")))
	return route, nil
}

// FindTokenToTokenRoute tries the direct venues first and falls back to
// the multi-hop search when they have no liquidity.
func (s *RoutingService) FindTokenToTokenRoute(ctx context.Context, req RouteRequest) (*domain.TokenToTokenResult, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	direct, err := s.FindRoute(ctx, req)
	if err != nil {
		return nil, err
	}
	if direct.HasRoute() {
		return &domain.TokenToTokenResult{Direct: direct, Recommendation: domain.RecommendDirect}, nil
	}

	multi, err := s.FindMultiHopRoute(ctx, req)
	if err != nil {
		return nil, err
	}
	if multi != nil && multi.ExpectedOut.Sign() > 0 {
		return &domain.TokenToTokenResult{Direct: direct, MultiHop: multi, Recommendation: domain.RecommendMultiHop}, nil
	}
	return &domain.TokenToTokenResult{Direct: direct, Recommendation: domain.RecommendNone}, nil
}

// InspectHybridToken reports whether token trades on the hybrid venue.
func (s *RoutingService) InspectHybridToken(ctx context.Context, token string) (*domain.HybridTokenInfo, error) {
	addr, err := parseAddress("token", token)
	if err != nil {
		return nil, err
	}
	if s.inspector == nil {
		return nil, apperror.New(apperror.CodeUnknownVenue,
			apperror.WithContext("no hybrid venue registered"))
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	info, err := s.inspector.Inspect(ctx, addr)
	if err != nil {
		return nil, apperror.New(apperror.CodeVenueUnavailable,
			apperror.WithCause(err),
			apperror.WithContextf("inspect %s", addr.Hex()))
	}
	return &info, nil
}

// ResolveDecimals returns a token's decimals through the metadata cache.
func (s *RoutingService) ResolveDecimals(ctx context.Context, token string) (uint8, error) {
	addr, err := parseAddress("token", token)
	if err != nil {
		return 0, err
	}
	return s.inputDecimals(ctx, addr, AutoDecimals)
}

func (s *RoutingService) reject(ctx context.Context, span trace.Span, err error) error {
	code := apperror.GetCode(err)
	s.metrics.invalid.Add(ctx, 1, metric.WithAttributes(attribute.String("code", string(code))))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	s.log.Warn(ctx, "route request rejected", apperror.LogFields(err)...)
	return err
}

func overflow(err error) error {
	if errors.Is(err, domain.ErrOverflow) {
		return apperror.New(apperror.CodeArithmeticOverflow, apperror.WithCause(err))
	}
	return err
}

func planShape(p *domain.RoutePlan) string {
	switch {
	case p.IsWrapUnwrap:
		return "wrap_unwrap"
	case !p.HasRoute():
		return "none"
	case p.IsSplit():
		return "split"
	default:
		return "single"
	}
}
