package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock is advanced by the returned func.
func fakeClock(l *Limiter) func(time.Duration) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestAllow(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		burst int
		// each step advances the clock, then calls Allow
		steps []time.Duration
		want  []bool
	}{
		{
			name:  "burst then reject",
			rate:  1,
			burst: 2,
			steps: []time.Duration{0, 0, 0},
			want:  []bool{true, true, false},
		},
		{
			name:  "refill after wait",
			rate:  10,
			burst: 2,
			steps: []time.Duration{0, 0, 0, 200 * time.Millisecond},
			want:  []bool{true, true, false, true},
		},
		{
			name:  "refill capped at burst",
			rate:  100,
			burst: 1,
			steps: []time.Duration{0, 10 * time.Second, 0},
			want:  []bool{true, true, false},
		},
		{
			name:  "zero rate never refills",
			rate:  0,
			burst: 1,
			steps: []time.Duration{0, time.Hour},
			want:  []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.rate, tt.burst)
			advance := fakeClock(l)
			for i, d := range tt.steps {
				advance(d)
				if got := l.Allow("k"); got != tt.want[i] {
					t.Errorf("call %d: Allow() = %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(0, 1)
	if !l.Allow("a") || l.Allow("a") {
		t.Fatal("key a should allow exactly once")
	}
	if !l.Allow("b") {
		t.Error("key b has its own bucket")
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d, want 50", allowed)
	}
}

func TestProgress(t *testing.T) {
	p := NewProgress()
	advance := fakeClock(p[KindStep])

	if !p.Allow(KindStep) {
		t.Error("first step line should pass")
	}
	if p.Allow(KindStep) {
		t.Error("second step line in the same instant should be throttled")
	}
	advance(250 * time.Millisecond)
	if !p.Allow(KindStep) {
		t.Error("step line should pass after a quarter second")
	}
	for i := 0; i < 3; i++ {
		if !p.Allow("goal") {
			t.Error("unthrottled kinds always pass")
		}
	}
}
