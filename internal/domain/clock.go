package domain

import "time"

// DateOf returns the civil date of t in loc, as midnight UTC.
// Visit dates are stored as SQL dates and compared in this form.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RandomSource is the injectable randomness used for exam results and
// fallback prices. *math/rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}
