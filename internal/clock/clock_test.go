package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRealSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Real{}.Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancelled sleep blocked")
	}
}

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	var seen time.Time
	f.OnSleep = func(now time.Time) { seen = now }

	if err := f.Sleep(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if !f.Now().Equal(start.Add(2 * time.Second)) {
		t.Fatalf("Now = %v", f.Now())
	}
	if !seen.Equal(f.Now()) {
		t.Fatalf("hook saw %v", seen)
	}
	if len(f.Sleeps()) != 1 {
		t.Fatalf("Sleeps = %v", f.Sleeps())
	}
}
