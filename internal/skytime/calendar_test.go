package skytime

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "0d 00h 00m 00s"},
		{90061000, "1d 01h 01m 01s"},
		{999, "0d 00h 00m 00s"},
		{59 * 60 * 1000, "0d 00h 59m 00s"},
		{15 * 86400 * 1000, "15d 00h 00m 00s"},
		{-5000, "0d 00h 00m 00s"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.ms); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
	if got := Format(90*time.Second); got != "0d 00h 01m 30s" {
		t.Errorf("Format(90s) = %q", got)
	}
}

func TestNextWindowStartKnownValues(t *testing.T) {
	c := Default()
	epoch := c.EraEpochMs

	if got := c.NextWindowStart(epoch + 600000); got != epoch+c.CadenceMs {
		t.Fatalf("mid-slot: got %d, want %d", got, epoch+c.CadenceMs)
	}
	// exactly on a boundary moves to the next one
	if got := c.NextWindowStart(epoch + c.CadenceMs); got != epoch+2*c.CadenceMs {
		t.Fatalf("on boundary: got %d, want %d", got, epoch+2*c.CadenceMs)
	}
	// last instant of a year rolls into the next year
	if got := c.NextWindowStart(epoch + c.YearMs - 1); got != epoch+c.YearMs {
		t.Fatalf("year wrap: got %d, want %d", got, epoch+c.YearMs)
	}
}

func TestNextWindowStartInvariants(t *testing.T) {
	c := Default()
	rng := rand.New(rand.NewPCG(1, 2))
	wantPhase := floorMod(c.EraEpochMs, c.CadenceMs)

	for i := 0; i < 5000; i++ {
		now := c.EraEpochMs + rng.Int64N(20*c.YearMs) - c.YearMs
		next := c.NextWindowStart(now)
		if next <= now {
			t.Fatalf("NextWindowStart(%d) = %d, not in the future", now, next)
		}
		if next-now > c.CadenceMs {
			t.Fatalf("NextWindowStart(%d) = %d, skipped a window", now, next)
		}
		if floorMod(next, c.CadenceMs) != wantPhase {
			t.Fatalf("NextWindowStart(%d) = %d, not era aligned", now, next)
		}
	}
}

func TestPhaseIdempotent(t *testing.T) {
	c := Default()
	now := time.Date(2026, 10, 19, 12, 34, 56, 0, time.UTC).UnixMilli()
	o1, s1 := c.Phase(now)
	o2, s2 := c.Phase(now)
	if o1 != o2 || s1 != s2 {
		t.Fatalf("Phase not idempotent: (%d,%d) vs (%d,%d)", o1, s1, o2, s2)
	}
	if o1 < 0 || o1 >= c.YearMs || s1+o1 != now {
		t.Fatalf("Phase(%d) = (%d,%d) out of range", now, o1, s1)
	}
}

func TestPhaseBeforeEpoch(t *testing.T) {
	c := Default()
	offset, start := c.Phase(c.EraEpochMs - 1)
	if offset != c.YearMs-1 {
		t.Fatalf("offset = %d, want %d", offset, c.YearMs-1)
	}
	if start != c.EraEpochMs-c.YearMs {
		t.Fatalf("eraStart = %d", start)
	}
}

func TestLastBoundary(t *testing.T) {
	c := Default()
	T := time.Date(2026, 10, 19, 14, 37, 12, 0, time.UTC).UnixMilli()
	want := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC).UnixMilli()
	if got := c.LastBoundary(T); got != want {
		t.Fatalf("LastBoundary = %d, want %d", got, want)
	}
	if got := c.LastBoundary(want); got != want {
		t.Fatalf("LastBoundary on boundary = %d, want %d", got, want)
	}
}

func TestUpcoming(t *testing.T) {
	c := Default()
	now := c.EraEpochMs + 10
	got := c.Upcoming(now, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i, w := range got {
		if want := c.EraEpochMs + int64(i+1)*c.CadenceMs; w != want {
			t.Fatalf("window %d = %d, want %d", i, w, want)
		}
	}
	if len(c.Upcoming(now, 0)) != 0 {
		t.Fatal("Upcoming(0) should be empty")
	}
}

func TestDate(t *testing.T) {
	c := Default()
	d := c.Date(c.EraEpochMs)
	if d.Year != 1 || d.Month != 1 || d.Day != 1 {
		t.Fatalf("epoch date = %+v", d)
	}
	d = c.Date(c.EraEpochMs + 3*c.YearMs + monthMs + 2*dayMs + 5)
	if d.Year != 4 || d.Month != 2 || d.Day != 3 {
		t.Fatalf("date = %+v", d)
	}
	if d.String() != "Spring 3, Year 4" {
		t.Fatalf("String = %q", d.String())
	}
}
