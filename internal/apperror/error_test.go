package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fd1az/swap-router/internal/apperror"
)

func TestNew_KindFromCode(t *testing.T) {
	tests := []struct {
		code apperror.Code
		kind apperror.Kind
	}{
		{apperror.CodeInvalidAmount, apperror.KindInput},
		{apperror.CodeIdenticalTokens, apperror.KindInput},
		{apperror.CodeArithmeticOverflow, apperror.KindInput},
		{apperror.CodeUnknownVenue, apperror.KindInput},
		{apperror.CodeVenueUnavailable, apperror.KindUpstream},
		{apperror.CodeServiceTimeout, apperror.KindUpstream},
		{apperror.CodeRateLimitExceeded, apperror.KindUpstream},
		{apperror.CodeContractCallFailed, apperror.KindUpstream},
		{apperror.CodeABIEncodingFailed, apperror.KindInternal},
		{apperror.CodeInternalError, apperror.KindInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := apperror.New(tt.code)
			if err.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, err.Kind)
			}
			if err.Message == "" || err.Message == string(tt.code) {
				t.Errorf("expected a message for %s", tt.code)
			}
		})
	}
}

func TestAppError_IsMatchesCodeThroughWrapping(t *testing.T) {
	base := apperror.New(apperror.CodeNoLiquidity, apperror.WithContext("MON->USDC"))
	wrapped := fmt.Errorf("find route: %w", base)

	if !apperror.HasCode(wrapped, apperror.CodeNoLiquidity) {
		t.Error("expected HasCode to see through fmt wrapping")
	}
	if apperror.HasCode(wrapped, apperror.CodeInvalidAmount) {
		t.Error("unexpected match on different code")
	}
	if apperror.GetCode(wrapped) != apperror.CodeNoLiquidity {
		t.Errorf("unexpected code %s", apperror.GetCode(wrapped))
	}
}

func TestAppError_CauseIsUnwrapped(t *testing.T) {
	cause := errors.New("execution reverted")
	err := apperror.New(apperror.CodeContractCallFailed,
		apperror.WithContext("getAmountsOut"), apperror.WithCause(cause))

	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	fields := fieldMap(apperror.LogFields(fmt.Errorf("quote: %w", err)))
	if fields["cause"] != "execution reverted" || fields["context"] != "getAmountsOut" {
		t.Errorf("unexpected log fields %v", fields)
	}
	if fields["kind"] != "upstream" {
		t.Errorf("unexpected kind field %v", fields["kind"])
	}
}

func TestIsInput(t *testing.T) {
	if !apperror.IsInput(fmt.Errorf("cli: %w", apperror.New(apperror.CodeInvalidSlippage))) {
		t.Error("expected slippage error to be an input error")
	}
	if apperror.IsInput(apperror.New(apperror.CodeLedgerConnectionFailed)) {
		t.Error("ledger errors are not input errors")
	}
	if apperror.IsInput(errors.New("plain")) || apperror.IsInput(nil) {
		t.Error("plain and nil errors are not input errors")
	}
}

func fieldMap(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestWrap_KeepsExistingAppError(t *testing.T) {
	orig := apperror.New(apperror.CodeInvalidSlippage)
	got := apperror.Wrap(orig, apperror.CodeInternalError, "validate")

	if got != orig {
		t.Error("expected the same AppError")
	}
	if got.Context != "validate" {
		t.Errorf("expected context to be filled, got %q", got.Context)
	}
	if apperror.Wrap(nil, apperror.CodeInternalError, "") != nil {
		t.Error("expected nil for nil error")
	}

	plain := apperror.Wrap(errors.New("dial tcp: refused"), apperror.CodeVenueUnavailable, "Uniswap V2")
	if plain.Code != apperror.CodeVenueUnavailable || plain.Kind != apperror.KindUpstream {
		t.Errorf("unexpected wrap of plain error: %v", plain)
	}
}
