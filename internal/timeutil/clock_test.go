package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		// Ticker fired as expected
	case <-time.After(100 * time.Millisecond):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)
	now := clock.Now()

	if !now.Equal(fixedTime) {
		t.Errorf("got %v, want %v", now, fixedTime)
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Time{})
	newTime := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(newTime)

	if !clock.Now().Equal(newTime) {
		t.Errorf("got %v, want %v", clock.Now(), newTime)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(90 * time.Second)

	want := start.Add(90 * time.Second)
	if !clock.Now().Equal(want) {
		t.Errorf("got %v, want %v", clock.Now(), want)
	}
}

func TestMockClock_Tickers(t *testing.T) {
	clock := NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := clock.Tickers(); got != 0 {
		t.Errorf("fresh clock has %d tickers, want 0", got)
	}

	first := clock.NewTicker(time.Second)
	defer first.Stop()
	second := clock.NewTicker(time.Minute)
	defer second.Stop()

	if got := clock.Tickers(); got != 2 {
		t.Errorf("got %d tickers, want 2", got)
	}
}

func TestMockClock_Ticker_OneTickPerPeriod(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(5 * time.Second)
	defer ticker.Stop()

	// Advancing across three periods queues three ticks at the period
	// boundaries, not one tick at the final time.
	clock.Advance(15 * time.Second)

	for i := 1; i <= 3; i++ {
		select {
		case tick := <-ticker.C():
			want := start.Add(time.Duration(i) * 5 * time.Second)
			if !tick.Equal(want) {
				t.Errorf("tick %d at %v, want %v", i, tick, want)
			}
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	select {
	case tick := <-ticker.C():
		t.Errorf("unexpected extra tick at %v", tick)
	default:
	}
}

func TestMockClock_Ticker_Reset(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	ticker.Stop()
	clock.Advance(30 * time.Second)
	ticker.Reset(10 * time.Second)

	// The next tick is a full new period after Reset, not on the old 1s
	// schedule.
	clock.Advance(5 * time.Second)
	select {
	case tick := <-ticker.C():
		t.Errorf("ticker fired at %v before its new period elapsed", tick)
	default:
	}

	clock.Advance(5 * time.Second)
	select {
	case tick := <-ticker.C():
		want := start.Add(40 * time.Second)
		if !tick.Equal(want) {
			t.Errorf("tick at %v, want %v", tick, want)
		}
	default:
		t.Fatal("ticker did not fire after its new period")
	}
}

func TestMockClock_Ticker_StopAndTrigger(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	ticker.Stop()
	clock.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Error("stopped ticker fired on Advance")
	default:
	}

	// Trigger bypasses the schedule entirely.
	mt := ticker.(*MockTicker)
	mt.Trigger(start)
	select {
	case tick := <-ticker.C():
		if !tick.Equal(start) {
			t.Errorf("triggered tick at %v, want %v", tick, start)
		}
	default:
		t.Error("Trigger did not deliver a tick")
	}
}
