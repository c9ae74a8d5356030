package worker

import (
	"context"
	"testing"
	"time"

	"github.com/latitude36/cvps-gateway/internal/ratelimit"
)

func TestLimiterJanitor_EvictsIdleBuckets(t *testing.T) {
	t.Parallel()
	reg := ratelimit.NewRegistry()
	reg.GetOrCreate("idle:site", ratelimit.Limits{Capacity: 10, RefillPerMin: 10})

	j := NewLimiterJanitor(reg, time.Nanosecond, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if reg.Len() == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("idle limiter was not evicted")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestLimiterJanitor_DisabledByZeroIdle(t *testing.T) {
	t.Parallel()
	reg := ratelimit.NewRegistry()
	reg.GetOrCreate("key:site", ratelimit.Limits{Capacity: 10, RefillPerMin: 10})

	j := NewLimiterJanitor(reg, 0, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if reg.Len() != 1 {
		t.Errorf("len = %d, want 1 (janitor disabled)", reg.Len())
	}
}
