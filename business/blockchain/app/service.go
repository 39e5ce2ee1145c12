package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/logger"
)

const instrumentationName = "github.com/fd1az/swap-router/business/blockchain/app"

type serviceMetrics struct {
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	lookupFails metric.Int64Counter
}

// BlockchainService is the read-only view of the ledger used by routing:
// raw contract calls and cached token metadata.
type BlockchainService struct {
	caller   ContractCaller
	tokens   TokenReader
	registry *asset.Registry
	log      logger.LoggerInterface

	decimals    *cache.Cache[common.Address, uint8]
	decimalsTTL time.Duration

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewBlockchainService creates a new BlockchainService. The cache is owned
// by the caller so tests can supply a fresh one per case.
func NewBlockchainService(
	caller ContractCaller,
	tokens TokenReader,
	registry *asset.Registry,
	decimals *cache.Cache[common.Address, uint8],
	decimalsTTL time.Duration,
	log logger.LoggerInterface,
) (*BlockchainService, error) {
	s := &BlockchainService{
		caller:      caller,
		tokens:      tokens,
		registry:    registry,
		log:         log,
		decimals:    decimals,
		decimalsTTL: decimalsTTL,
		tracer:      otel.Tracer(instrumentationName),
	}

	meter := otel.Meter(instrumentationName)
	m := &serviceMetrics{}
	var err error

	if m.cacheHits, err = meter.Int64Counter("token_metadata_cache_hits_total",
		metric.WithDescription("Token metadata cache hits"),
		metric.WithUnit("{hit}")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if m.cacheMisses, err = meter.Int64Counter("token_metadata_cache_misses_total",
		metric.WithDescription("Token metadata cache misses"),
		metric.WithUnit("{miss}")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if m.lookupFails, err = meter.Int64Counter("token_metadata_failures_total",
		metric.WithDescription("Failed decimals() lookups"),
		metric.WithUnit("{failure}")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	s.metrics = m

	return s, nil
}

// Call executes a read-only contract call.
func (s *BlockchainService) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return s.caller.CallContract(ctx, to, data)
}

// Status returns the ledger connection status.
func (s *BlockchainService) Status() domain.ConnectionStatus {
	return s.caller.Status()
}

// TokenMetadata resolves decimals for token. The native asset, its wrapped
// form and configured tokens never hit the chain.
func (s *BlockchainService) TokenMetadata(ctx context.Context, token common.Address) (domain.TokenMetadata, error) {
	if a, ok := s.registry.Get(token); ok {
		return domain.TokenMetadata{Address: token, Decimals: a.Decimals(), Known: true}, nil
	}

	ctx, span := s.tracer.Start(ctx, "token.decimals",
		trace.WithAttributes(attribute.String("token", token.Hex())),
	)
	defer span.End()

	if d, ok := s.decimals.Get(ctx, token); ok {
		s.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return domain.TokenMetadata{Address: token, Decimals: d}, nil
	}
	s.metrics.cacheMisses.Add(ctx, 1)

	d, err := s.tokens.Decimals(ctx, token)
	if err == nil && d > asset.MaxDecimals {
		err = fmt.Errorf("decimals %d out of range", d)
	}
	if err != nil {
		s.metrics.lookupFails.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decimals lookup failed")
		return domain.TokenMetadata{}, apperror.New(apperror.CodeTokenMetadataFailed,
			apperror.WithCause(err),
			apperror.WithContextf("decimals() for %s", token.Hex()))
	}

	s.decimals.Set(ctx, token, d, s.decimalsTTL)
	span.SetAttributes(attribute.Int("decimals", int(d)))
	span.SetStatus(codes.Ok, "fetched")

	return domain.TokenMetadata{Address: token, Decimals: d}, nil
}

// Decimals is TokenMetadata reduced to the decimals.
func (s *BlockchainService) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	md, err := s.TokenMetadata(ctx, token)
	if err != nil {
		return 0, err
	}
	return md.Decimals, nil
}

// InvalidateToken drops cached metadata for one token.
func (s *BlockchainService) InvalidateToken(ctx context.Context, token common.Address) {
	s.decimals.Invalidate(ctx, token)
	s.log.Debug(ctx, "token metadata invalidated", "token", token.Hex())
}

// PurgeMetadata drops every cached entry.
func (s *BlockchainService) PurgeMetadata() {
	s.decimals.Purge()
}
