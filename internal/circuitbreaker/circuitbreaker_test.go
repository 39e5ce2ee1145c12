package circuitbreaker_test

import (
	"errors"
	"testing"

	"github.com/fd1az/swap-router/internal/circuitbreaker"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cb := circuitbreaker.New[int](cfg)

	fail := func() (int, error) { return 0, errUpstream }

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	if cb.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !circuitbreaker.IsOpenError(err) {
		t.Errorf("expected open-state error, got %v", err)
	}
}

func TestBreaker_IsSuccessfulKeepsClosed(t *testing.T) {
	errRevert := errors.New("execution reverted")

	cfg := circuitbreaker.DefaultConfig("revert")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errRevert)
	}
	cb := circuitbreaker.New[[]byte](cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() ([]byte, error) { return nil, errRevert })
	}

	if cb.State() != circuitbreaker.StateClosed {
		t.Errorf("reverts must not trip the breaker, state=%s", cb.State())
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []circuitbreaker.State

	cfg := circuitbreaker.DefaultConfig("cb")
	cfg.ConsecutiveFailures = 1
	cfg.OnStateChange = func(_ string, _, to circuitbreaker.State) {
		transitions = append(transitions, to)
	}
	cb := circuitbreaker.New[int](cfg)

	_, _ = cb.Execute(func() (int, error) { return 0, errUpstream })

	if len(transitions) != 1 || transitions[0] != circuitbreaker.StateOpen {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}
