package service

import (
	"strconv"
	"sync"
	"time"
)

// idSource hands out prefix + unix milliseconds, bumped by one when the clock has not moved
// so ids stay strictly increasing within the process.
type idSource struct {
	mu     sync.Mutex
	prefix string
	last   int64
	now    func() time.Time
}

func newIDSource(prefix string, now func() time.Time) *idSource {
	return &idSource{prefix: prefix, now: now}
}

func (s *idSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}

	s.last = ms

	return s.prefix + strconv.FormatInt(ms, 10)
}
