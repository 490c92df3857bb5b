package frame

import (
	"testing"
	"time"
)

func TestMillis(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want int64
	}{
		{"whole", 1000, 1_000_000},
		{"fraction", 1.25, 1250},
		{"negative", -2.5, -2500},
		{"rounds up", 0.0009765625, 1},
		{"rounds down", 0.00048828125, 0},
		{"negative rounds away", -0.0009765625, -1},
		{"negative rounds toward zero", -0.00048828125, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Millis(tt.ms)
			if got.Value != tt.want || got.Scale != 1_000_000 {
				t.Errorf("Millis(%v) = %v, want %d/1000000", tt.ms, got, tt.want)
			}
		})
	}
}

func TestTimestamp_CompareAcrossScales(t *testing.T) {
	tests := []struct {
		name string
		a, b Timestamp
		want int
	}{
		{"equal", Timestamp{2, 4}, Timestamp{500_000, 1_000_000}, 0},
		{"third above truncation", Timestamp{1, 3}, Timestamp{333_333_333, NanosecondScale}, 1},
		{"earlier", Timestamp{29_999, 30_000}, Timestamp{1, 1}, -1},
		{"invalid scale is zero", Timestamp{5, 0}, Timestamp{0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTimestamp_Sub(t *testing.T) {
	tests := []struct {
		name string
		a, b Timestamp
		want time.Duration
	}{
		{"same scale", Millis(1005), Millis(1000), 5 * time.Millisecond},
		{"mixed scales", Timestamp{30_000, 30_000}, Timestamp{1_000_500, 1_000_000}, -500 * time.Microsecond},
		{"truncates to nanoseconds", Timestamp{1, 3}, Timestamp{0, 1}, 333_333_333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Sub(tt.b); got != tt.want {
				t.Errorf("Sub() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestamp_WithinTolerance(t *testing.T) {
	third := Timestamp{1, 3}
	zero := Timestamp{0, 1}

	if third.WithinTolerance(zero, 333_333_333) {
		t.Error("1/3 s should exceed a 333333333ns tolerance")
	}
	if !third.WithinTolerance(zero, 333_333_334) {
		t.Error("1/3 s should be within a 333333334ns tolerance")
	}
	if !zero.WithinTolerance(third, 333_333_334) {
		t.Error("tolerance should be symmetric")
	}
}

func TestFromDuration(t *testing.T) {
	ts := FromDuration(1500 * time.Millisecond)
	if ts.Duration() != 1500*time.Millisecond {
		t.Errorf("round trip = %v", ts.Duration())
	}
	if ts.Seconds() != 1.5 {
		t.Errorf("Seconds() = %v", ts.Seconds())
	}
	if !ts.Valid() || (Timestamp{}).Valid() {
		t.Error("unexpected Valid() result")
	}
}
