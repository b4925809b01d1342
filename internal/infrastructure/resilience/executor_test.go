package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}, discardLogger())

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}, discardLogger())

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}, discardLogger())

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestDefaultConfigDoesNotRetry(t *testing.T) {
	exec := NewExecutor(DefaultConfig(), discardLogger())

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return &StatusError{Service: "qdrant", Operation: "search", StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt by default, got %d", attempts)
	}
}

func TestCallReturnsValue(t *testing.T) {
	exec := NewExecutor(DefaultConfig(), discardLogger())
	got, err := Call(context.Background(), exec, "op", func(context.Context) (int, error) {
		return 42, nil
	}, nil)
	if err != nil || got != 42 {
		t.Fatalf("Call() = %d, %v", got, err)
	}
}

func TestNewStatusErrorIncludesBody(t *testing.T) {
	rec := httptest.NewRecorder()
	http.Error(rec, "collection not found", http.StatusNotFound)
	err := NewStatusError("qdrant", "search", rec.Result())

	if err.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code %d", err.StatusCode)
	}
	if !strings.Contains(err.Error(), "qdrant search status") || !strings.Contains(err.Error(), "collection not found") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestClassifyUpstreamError(t *testing.T) {
	retryable := ClassifyUpstreamError(&StatusError{StatusCode: http.StatusBadGateway})
	if !retryable.Retryable || !retryable.RecordFailure {
		t.Fatalf("expected 502 to be retryable, got %+v", retryable)
	}
	client := ClassifyUpstreamError(&StatusError{StatusCode: http.StatusBadRequest})
	if client.Retryable || client.RecordFailure {
		t.Fatalf("expected 400 to be a caller error, got %+v", client)
	}
	canceled := ClassifyUpstreamError(context.Canceled)
	if canceled.RecordFailure {
		t.Fatalf("expected cancellation not to trip the breaker")
	}
}

func TestWrapUpstreamAssignsKinds(t *testing.T) {
	temp := WrapUpstream("ollama chat", &StatusError{StatusCode: http.StatusServiceUnavailable})
	if !domain.IsKind(temp, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", temp)
	}
	transport := WrapUpstream("ollama chat", &StatusError{StatusCode: http.StatusNotFound})
	if !domain.IsKind(transport, domain.ErrTransport) {
		t.Fatalf("expected transport kind, got %v", transport)
	}
	open := WrapUpstream("qdrant search", gobreaker.ErrOpenState)
	if !domain.IsKind(open, domain.ErrTemporary) {
		t.Fatalf("expected open circuit to be temporary, got %v", open)
	}
	if err := WrapUpstream("op", context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) || domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected deadline to pass through, got %v", err)
	}
}
