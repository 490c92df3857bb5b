package frame

import (
	"fmt"
	"math/big"
	"time"
)

// Timestamp is a rational presentation time: Value/Scale seconds on the
// capture device's monotonic clock.
type Timestamp struct {
	Value int64
	Scale int32
}

// NanosecondScale is the scale used by FromDuration.
const NanosecondScale int32 = 1_000_000_000

// FromDuration converts a duration since the clock origin into a Timestamp.
func FromDuration(d time.Duration) Timestamp {
	return Timestamp{Value: int64(d), Scale: NanosecondScale}
}

// Millis builds a Timestamp from fractional milliseconds with microsecond resolution.
func Millis(ms float64) Timestamp {
	return Timestamp{Value: int64(ms*1000 + 0.5*sign(ms)), Scale: 1_000_000}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Valid reports whether the timestamp has a usable scale.
func (t Timestamp) Valid() bool {
	return t.Scale > 0
}

// rat returns the exact rational value in seconds.
func (t Timestamp) rat() *big.Rat {
	if t.Scale <= 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac64(t.Value, int64(t.Scale))
}

// Duration returns the timestamp as a duration since the clock origin,
// truncated to nanoseconds.
func (t Timestamp) Duration() time.Duration {
	return ratToDuration(t.rat())
}

// Seconds returns the timestamp in floating point seconds.
func (t Timestamp) Seconds() float64 {
	f, _ := t.rat().Float64()
	return f
}

// Compare returns -1, 0 or +1 comparing t to o exactly.
func (t Timestamp) Compare(o Timestamp) int {
	return t.rat().Cmp(o.rat())
}

// Sub returns t - o as a duration.
func (t Timestamp) Sub(o Timestamp) time.Duration {
	return ratToDuration(new(big.Rat).Sub(t.rat(), o.rat()))
}

// AbsDelta returns |t - o| as an exact rational in seconds.
func (t Timestamp) AbsDelta(o Timestamp) *big.Rat {
	return new(big.Rat).Abs(new(big.Rat).Sub(t.rat(), o.rat()))
}

// WithinTolerance reports whether |t - o| <= tol, compared exactly.
func (t Timestamp) WithinTolerance(o Timestamp, tol time.Duration) bool {
	limit := new(big.Rat).SetFrac64(int64(tol), int64(time.Second))
	return t.AbsDelta(o).Cmp(limit) <= 0
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d/%d", t.Value, t.Scale)
}

func ratToDuration(r *big.Rat) time.Duration {
	ns := new(big.Rat).Mul(r, new(big.Rat).SetInt64(int64(time.Second)))
	q := new(big.Int).Quo(ns.Num(), ns.Denom())
	return time.Duration(q.Int64())
}
