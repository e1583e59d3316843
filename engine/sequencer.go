package engine

// Sequencer orders the responses of one request stream. Responses complete
// in arbitrary order; only a response newer than the last applied one, and
// issued after the last invalidation, is accepted.
type Sequencer struct {
	issued  uint64
	applied uint64
	floor   uint64
}

// Issue numbers the next request.
func (s *Sequencer) Issue() uint64 {
	s.issued++
	return s.issued
}

// Accept reports whether the response to request seq may be applied and, if
// so, records it as the newest applied response.
func (s *Sequencer) Accept(seq uint64) bool {
	if seq <= s.applied || seq <= s.floor {
		return false
	}
	s.applied = seq
	return true
}

// Invalidate marks every request issued so far as stale.
func (s *Sequencer) Invalidate() {
	s.floor = s.issued
}
