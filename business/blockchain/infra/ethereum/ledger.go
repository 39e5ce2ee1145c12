// Package ethereum provides the JSON-RPC ledger adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/httpclient"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/swap-router/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/swap-router/business/blockchain/infra/ethereum"

	// revertErrorCode is the JSON-RPC code nodes use for execution reverted.
	revertErrorCode = 3
)

// LedgerConfig holds configuration for the ledger client.
type LedgerConfig struct {
	RPCURL            string
	ChainID           uint64 // expected chain id, zero skips the check
	CallTimeout       time.Duration
	RequestsPerMinute int
	MaxConnsPerHost   int
}

// DefaultLedgerConfig returns sensible defaults.
func DefaultLedgerConfig(rpcURL string) LedgerConfig {
	return LedgerConfig{
		RPCURL:            rpcURL,
		CallTimeout:       5 * time.Second,
		RequestsPerMinute: 6000,
		MaxConnsPerHost:   32,
	}
}

type ledgerMetrics struct {
	calls        metric.Int64Counter
	callDuration metric.Float64Histogram
	breakerState metric.Int64Gauge
}

// Ledger is a read-only eth_call client over a pooled HTTP transport.
type Ledger struct {
	config LedgerConfig
	logger logger.LoggerInterface

	client   *ethclient.Client
	clientMu sync.RWMutex

	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	chainID     atomic.Uint64
	calls       atomic.Uint64
	failures    atomic.Uint64
	lastLatency atomic.Int64
	lastCall    atomic.Int64

	tracer  trace.Tracer
	metrics *ledgerMetrics
}

// NewLedger creates a ledger client. Connect must be called before use.
func NewLedger(cfg LedgerConfig, log logger.LoggerInterface) (*Ledger, error) {
	l := &Ledger{
		config:  cfg,
		logger:  log,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		tracer:  otel.Tracer(tracerName),
	}

	if err := l.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	l.initCircuitBreaker()

	return l, nil
}

func (l *Ledger) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	l.metrics = &ledgerMetrics{}

	l.metrics.calls, err = meter.Int64Counter(
		"ledger_calls_total",
		metric.WithDescription("Total eth_call requests by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	l.metrics.callDuration, err = meter.Float64Histogram(
		"ledger_call_duration_ms",
		metric.WithDescription("eth_call round trip latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	l.metrics.breakerState, err = meter.Int64Gauge(
		"ledger_circuit_state",
		metric.WithDescription("Ledger circuit breaker state (0=closed, 1=half-open, 2=open)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	return nil
}

func (l *Ledger) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("ledger")
	// Reverts mean "no pool", not an unhealthy node.
	cfg.IsSuccessful = func(err error) bool {
		var aborted *callerAbortedError
		return err == nil || IsRevert(err) || errors.Is(err, context.Canceled) || errors.As(err, &aborted)
	}
	cfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		l.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
		l.metrics.breakerState.Record(context.Background(), int64(to))
	}
	l.cb = circuitbreaker.New[[]byte](cfg)
}

// Connect builds the RPC client and, when configured, verifies the chain id.
func (l *Ledger) Connect(ctx context.Context) error {
	ctx, span := l.tracer.Start(ctx, "ledger.connect",
		trace.WithAttributes(attribute.String("url", l.config.RPCURL)),
	)
	defer span.End()

	hc, err := httpclient.New(
		httpclient.WithProviderName("ledger"),
		httpclient.WithMaxConnsPerHost(l.config.MaxConnsPerHost),
	)
	if err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to build http client"))
	}

	rc, err := rpc.DialOptions(ctx, l.config.RPCURL, rpc.WithHTTPClient(hc))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContextf("failed to dial %s", l.config.RPCURL))
	}
	client := ethclient.NewClient(rc)

	if l.config.ChainID != 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, "chain id failed")
			return apperror.New(apperror.CodeLedgerConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to read chain id"))
		}
		if !id.IsUint64() || id.Uint64() != l.config.ChainID {
			client.Close()
			return apperror.New(apperror.CodeConfigurationError,
				apperror.WithContextf("chain id mismatch: node reports %s, expected %d", id, l.config.ChainID))
		}
		l.chainID.Store(id.Uint64())
	}

	l.clientMu.Lock()
	if l.client != nil {
		l.client.Close()
	}
	l.client = client
	l.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	l.logger.Info(ctx, "ledger connected", "url", l.config.RPCURL, "chain_id", l.chainID.Load())

	return nil
}

// CallContract executes eth_call at the latest block. Reverts come back as
// CONTRACT_CALL_FAILED, an open breaker as CIRCUIT_OPEN and deadline
// expiry as SERVICE_TIMEOUT.
func (l *Ledger) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.call",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	l.clientMu.RLock()
	client := l.client
	l.clientMu.RUnlock()

	if client == nil {
		err := apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithContext("ledger not connected"))
		span.RecordError(err)
		return nil, err
	}

	// The caller's own deadline is not a node failure.
	parent := ctx
	if l.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.CallTimeout)
		defer cancel()
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, l.fail(ctx, span, "rate_limited", apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("ledger rate limit wait aborted")))
	}

	start := time.Now()
	out, err := l.cb.Execute(func() ([]byte, error) {
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil && parent.Err() != nil {
			return nil, &callerAbortedError{err: err}
		}
		return out, err
	})
	elapsed := time.Since(start)

	l.calls.Add(1)
	l.lastLatency.Store(int64(elapsed))
	l.lastCall.Store(time.Now().UnixNano())
	l.metrics.callDuration.Record(ctx, float64(elapsed.Microseconds())/1000)

	if err != nil {
		return nil, l.fail(ctx, span, outcome(err), l.classify(to, err))
	}

	l.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	span.SetStatus(codes.Ok, "called")
	return out, nil
}

// callerAbortedError marks a call cut short by the caller's context.
type callerAbortedError struct{ err error }

func (e *callerAbortedError) Error() string { return e.err.Error() }
func (e *callerAbortedError) Unwrap() error { return e.err }

func (l *Ledger) fail(ctx context.Context, span trace.Span, outcome string, err error) error {
	l.failures.Add(1)
	l.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	return err
}

func (l *Ledger) classify(to common.Address, err error) error {
	switch {
	case circuitbreaker.IsOpenError(err):
		return apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext("ledger circuit open"))
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.New(apperror.CodeServiceTimeout,
			apperror.WithCause(err),
			apperror.WithContextf("eth_call to %s timed out", to.Hex()))
	case IsRevert(err):
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContextf("eth_call to %s reverted", to.Hex()))
	default:
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContextf("eth_call to %s failed", to.Hex()))
	}
}

func outcome(err error) string {
	switch {
	case circuitbreaker.IsOpenError(err):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case IsRevert(err):
		return "reverted"
	default:
		return "error"
	}
}

// IsRevert reports whether err is an execution revert from the node.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// Status returns the connection state derived from the breaker.
func (l *Ledger) Status() domain.ConnectionStatus {
	l.clientMu.RLock()
	connected := l.client != nil
	l.clientMu.RUnlock()

	st := domain.ConnectionStatus{
		State:       domain.StateDisconnected,
		ChainID:     l.chainID.Load(),
		LastLatency: time.Duration(l.lastLatency.Load()),
		Calls:       l.calls.Load(),
		Failures:    l.failures.Load(),
	}
	if ts := l.lastCall.Load(); ts != 0 {
		st.LastCall = time.Unix(0, ts)
	}
	if !connected {
		return st
	}

	switch l.cb.State() {
	case circuitbreaker.StateOpen:
		st.State = domain.StateOpen
	case circuitbreaker.StateHalfOpen:
		st.State = domain.StateDegraded
	default:
		st.State = domain.StateConnected
	}
	return st
}

// Close closes the ledger client.
func (l *Ledger) Close() error {
	l.clientMu.Lock()
	defer l.clientMu.Unlock()

	if l.client != nil {
		l.client.Close()
		l.client = nil
	}
	return nil
}
