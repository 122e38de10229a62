package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// ratio passes the first num events of every window of den. A zero ratio
// passes everything.
type ratio struct {
	window atomic.Uint64 // num<<32 | den
	seq    atomic.Uint64
}

func newRatio(num, den int) *ratio {
	r := &ratio{}
	r.Set(num, den)
	return r
}

func (r *ratio) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	num = min(num, den)
	r.window.Store(uint64(num)<<32 | uint64(uint32(den)))
	r.seq.Store(0)
}

func (r *ratio) Allow() bool {
	w := r.window.Load()
	num, den := w>>32, w&0xffffffff
	if den == 0 {
		return true
	}
	return (r.seq.Add(1)-1)%den < num
}

// parseRatio reads "n/d" or a bare "d" meaning 1/d. ok is false for
// malformed input; "0" disables sampling.
func parseRatio(raw string) (num, den int, ok bool) {
	raw = strings.TrimSpace(raw)
	n, d, hasSlash := strings.Cut(raw, "/")
	if !hasSlash {
		n, d = "1", raw
	}
	num, errN := strconv.Atoi(strings.TrimSpace(n))
	den, errD := strconv.Atoi(strings.TrimSpace(d))
	if errN != nil || errD != nil {
		return 0, 0, false
	}
	if num <= 0 || den <= 0 {
		return 0, 0, true
	}
	return num, den, true
}

// Took returns the time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to milliseconds, clamping negatives to zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports truncation.
func SummarizeStrings(values []string, limit int) (string, bool) {
	limit = max(limit, 0)
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
