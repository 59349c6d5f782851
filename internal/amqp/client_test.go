package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{64, 30 * time.Second}, // no shift overflow
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("write: broken pipe"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("Circuit breaker should be closed initially")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("Circuit breaker should be open after max failures")
	}

	client.failMu.Lock()
	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	client.failMu.Unlock()
	if client.isCircuitOpen() {
		t.Fatal("Circuit should transition to half-open after timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatal("State should be StateHalfOpen after timeout")
	}

	// A failure while half-open reopens immediately.
	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("half-open failure should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishTransactionCreated(t *testing.T) {
	t.Run("fails fast when circuit is open", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q"}
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishTransactionCreated(context.Background(), "t1", "u1", 1)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishTransactionCreated(ctx, "t1", "u1", 1); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("retries with backoff when not connected", func(t *testing.T) {
		var waits []time.Duration
		client := &Client{
			url:          "amqp://127.0.0.1:1/",
			exchangeName: "x",
			queueName:    "q",
			sleep: func(_ context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			},
		}

		err := client.PublishTransactionCreated(context.Background(), "t1", "u1", 1)
		if err == nil {
			t.Fatal("expected error without a broker")
		}
		if len(waits) != maxPublishTry-1 || waits[0] != time.Second || waits[1] != 2*time.Second {
			t.Fatalf("unexpected backoff sequence: %v", waits)
		}
	})
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestDispatch(t *testing.T) {
	good := []byte(`{"id":"t1","user_id":"u1","version":1,"timestamp":"2025-01-01T00:00:00Z"}`)

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var got *TransactionCreatedMessage
		dispatch(context.Background(), good, ack, func(_ context.Context, m *TransactionCreatedMessage) error {
			got = m
			return nil
		})
		if !ack.acked || ack.nacked || got == nil || got.ID != "t1" || got.UserID != "u1" {
			t.Fatalf("unexpected state: ack=%+v msg=%+v", ack, got)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		dispatch(context.Background(), good, ack, func(context.Context, *TransactionCreatedMessage) error {
			return errors.New("sheets down")
		})
		if !ack.nacked || !ack.requeued || ack.acked {
			t.Fatalf("expected requeue, got %+v", ack)
		}
	})

	t.Run("drop malformed body", func(t *testing.T) {
		for _, body := range [][]byte{[]byte(`not json`), []byte(`{"version":1}`)} {
			ack := &fakeAck{}
			called := false
			dispatch(context.Background(), body, ack, func(context.Context, *TransactionCreatedMessage) error {
				called = true
				return nil
			})
			if called || !ack.nacked || ack.requeued {
				t.Fatalf("expected drop for %q, got %+v", body, ack)
			}
		}
	})
}

func TestNewTransactionCreatedMessage(t *testing.T) {
	msg := NewTransactionCreatedMessage("t1", "u1", 2)
	if msg.ID != "t1" || msg.UserID != "u1" || msg.Version != 2 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := TransactionCreatedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.ID != msg.ID || !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("round trip mismatch: %+v vs %+v", parsed, msg)
	}
}
