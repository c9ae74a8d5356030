package circuitbreaker

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		ErrorThreshold: 0.30,
		MinSamples:     10,
		WindowSeconds:  60,
		OpenTimeout:    20 * time.Millisecond,
	}
}

func TestWindow_WeightedRate(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(60)
	now := time.Now()
	for range 8 {
		w.Record(0, now)
	}
	w.Record(1.0, now)
	w.Record(0.5, now) // rate limited counts half

	rate, samples := w.ErrorRate(now)
	if samples != 10 {
		t.Fatalf("samples = %d, want 10", samples)
	}
	if rate < 0.14 || rate > 0.16 {
		t.Fatalf("rate = %f, want 0.15", rate)
	}
}

func TestWindow_OldBucketsExpire(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(5)
	base := time.Now()
	w.Record(1.0, base)

	if rate, samples := w.ErrorRate(base.Add(6 * time.Second)); samples != 0 || rate != 0 {
		t.Fatalf("after expiry: rate=%f samples=%d, want zeros", rate, samples)
	}
}

func TestBreaker_TripsAtThresholdWithEnoughSamples(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())

	// All failures but below the sample floor: stays closed.
	for range 9 {
		b.RecordError(1.0)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v before min samples, want closed", b.State())
	}

	b.RecordError(1.0)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.Allow() {
		t.Fatal("open breaker admitted a request")
	}
}

func TestBreaker_StaysClosedUnderThreshold(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())
	for range 20 {
		b.RecordSuccess()
	}
	for range 5 {
		b.RecordError(1.0) // 5/25 = 20%, under the 30% trip point
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_ProbeRecoversAfterCoolOff(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())
	for range 10 {
		b.RecordError(1.0)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(25 * time.Millisecond)

	// First request after cool-off becomes the probe; a second concurrent
	// request is still rejected.
	if !b.Allow() {
		t.Fatal("probe request rejected after cool-off")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if b.Allow() {
		t.Fatal("second probe admitted while one is in flight")
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Fatalf("state = %v after good probe, want closed", b.State())
	}
	if !b.Allow() {
		t.Fatal("closed breaker rejected a request")
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())
	for range 10 {
		b.RecordError(1.0)
	}
	time.Sleep(25 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("probe request rejected after cool-off")
	}

	b.RecordError(1.0)
	if b.State() != StateOpen {
		t.Fatalf("state = %v after failed probe, want open", b.State())
	}
}
