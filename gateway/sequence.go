package gateway

import "go.uber.org/atomic"

// Sequence tracks the last observed dispatch sequence number. Zero means no
// dispatch has been seen yet; heartbeats then carry null.
type Sequence struct {
	atomic.Int64
}

func NewSequence() *Sequence {
	return &Sequence{}
}

// Advance moves the sequence up to seq. It reports false if seq regressed
// below the stored value, which is a protocol error and forces a resume.
func (s *Sequence) Advance(seq int64) bool {
	for {
		prior := s.Load()
		if seq < prior {
			return false
		}
		if s.CAS(prior, seq) {
			return true
		}
	}
}
