package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSubmitReturnsResult(t *testing.T) {
	p := NewPool("test", 2, testLogger())
	p.Start()
	defer p.Drain()

	got, err := p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %v, want ok", got)
	}
}

func TestSubmitPropagatesTaskError(t *testing.T) {
	p := NewPool("test", 1, testLogger())
	p.Start()
	defer p.Drain()

	wantErr := errors.New("boom")
	_, err := p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestSubmitTimeoutDiscardsLateResult(t *testing.T) {
	p := NewPool("test", 1, testLogger())
	p.Start()
	defer p.Drain()

	done := make(chan struct{})
	start := time.Now()
	_, err := p.Submit(context.Background(), 30*time.Millisecond, func(ctx context.Context) (any, error) {
		defer close(done)
		select {
		case <-time.After(200 * time.Millisecond):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Submit blocked %s past the deadline", elapsed)
	}

	// The worker must be able to finish and move on even though nobody
	// reads its result.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never finished after abandonment")
	}
}

func TestSubmitQueueFull(t *testing.T) {
	p := NewPool("test", 1, testLogger())
	p.Start()
	defer p.Drain()

	release := make(chan struct{})
	started := make(chan struct{})
	go p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	// Fill the queue (capacity workers*2 = 2), then one more must fail.
	for i := 0; i < 2; i++ {
		go p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
			<-release
			return nil, nil
		})
	}
	time.Sleep(20 * time.Millisecond)

	_, err := p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("got %v, want ErrQueueFull", err)
	}
	close(release)
}

func TestSubmitAfterDrain(t *testing.T) {
	p := NewPool("test", 1, testLogger())
	p.Start()
	p.Drain()

	_, err := p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrStopped) {
		t.Errorf("got %v, want ErrStopped", err)
	}
}

func TestDrainWaitsForInflight(t *testing.T) {
	p := NewPool("test", 1, testLogger())
	p.Start()

	finished := false
	done := make(chan struct{})
	go func() {
		p.Submit(context.Background(), time.Second, func(ctx context.Context) (any, error) {
			time.Sleep(50 * time.Millisecond)
			finished = true
			return nil, nil
		})
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	p.Drain()
	<-done
	if !finished {
		t.Error("Drain returned before in-flight task finished")
	}
}
