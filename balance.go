package jobsched

// accepts reports whether a worker with mask can run a job of type t.
func (r MatchRule) accepts(mask, t JobType) bool {
	if r == MatchTier {
		return t <= mask
	}
	return t != 0 && t&^mask == 0
}

// pickQueue returns the index of the least loaded queue whose worker
// accepts t, or -1 when no worker does. Ties go to the lowest index.
//
// Occupancy is read from each queue's depth mirror without locking,
// so the choice is a snapshot: concurrent submitters may pick the same
// queue.
func (s *Scheduler[T, M]) pickQueue(t JobType) int {
	best, bestLen := -1, 0
	for i, w := range s.workers {
		if !s.opts.Match.accepts(w.mask, t) {
			continue
		}
		n := s.queues[i].len()
		if best < 0 || n < bestLen {
			best, bestLen = i, n
		}
	}
	return best
}
