package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets through num out of every den calls.
type ratioSampler struct {
	ratio atomic.Uint64 // num<<32 | den
	n     atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set changes the ratio. Non-positive values disable sampling.
func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
		return
	}
	num = min(num, den)
	s.ratio.Store(uint64(num)<<32 | uint64(uint32(den)))
	s.n.Store(0)
}

// Allow reports whether the next call passes.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	return (s.n.Add(1)-1)%den < num
}

// parseRatio accepts "num/den" or "den" (meaning 1/den).
func parseRatio(raw string) (num, den int, ok bool) {
	raw = strings.TrimSpace(raw)
	if a, b, found := strings.Cut(raw, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		return n, d, err1 == nil && err2 == nil
	}
	d, err := strconv.Atoi(raw)
	return 1, d, err == nil
}
