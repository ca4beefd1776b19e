package orchestrator

import (
	"sort"
	"sync"
)

// snippetState is the orchestrator's per-request shared mutable state
// (spec §4.7/§5): the accumulating snippet set and the need_to_respond
// gate, both guarded by one mutex so the "check then launch" compare-and-
// swap is atomic.
type snippetState struct {
	mu            sync.Mutex
	snippets      []Snippet
	needToRespond bool
}

func newSnippetState() *snippetState {
	return &snippetState{needToRespond: true}
}

// push inserts snip, re-sorts descending (ties broken by insertion order,
// per spec §9), truncates to SnippetNumber, and returns the resulting mean
// score.
func (s *snippetState) push(snip Snippet) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushLocked(snip)
}

// pushLocked does the work of push assuming s.mu is already held.
func (s *snippetState) pushLocked(snip Snippet) float64 {
	s.snippets = append(s.snippets, snip)
	sort.SliceStable(s.snippets, func(i, j int) bool { return s.snippets[i].Score > s.snippets[j].Score })
	if len(s.snippets) > SnippetNumber {
		s.snippets = s.snippets[:SnippetNumber]
	}
	return meanOf(s.snippets)
}

func meanOf(snippets []Snippet) float64 {
	if len(snippets) == 0 {
		return 0
	}
	sum := 0.0
	for _, sn := range snippets {
		sum += sn.Score
	}
	return sum / float64(len(snippets))
}

// snapshot returns a copy of the current snippet set.
func (s *snippetState) snapshot() []Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Snippet, len(s.snippets))
	copy(cp, s.snippets)
	return cp
}

// tryTrigger flips needToRespond to false and returns true if mean crosses
// MinConfidence and the flag has not already been flipped; otherwise it
// returns false without changing state. Matches P5: at most one caller
// ever observes true.
func (s *snippetState) tryTrigger(mean float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tryTriggerLocked(mean)
}

// tryTriggerLocked does the work of tryTrigger assuming s.mu is already held.
func (s *snippetState) tryTriggerLocked(mean float64) bool {
	if s.needToRespond && mean > MinConfidence {
		s.needToRespond = false
		return true
	}
	return false
}

// pushAndTryTrigger pushes snip and evaluates the confidence gate against
// the resulting mean in one critical section, per spec §5: push, sort,
// truncate, mean-score, and the need_to_respond compare-and-swap all happen
// under a single lock acquisition so no concurrent push can stale the mean.
func (s *snippetState) pushAndTryTrigger(snip Snippet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	mean := s.pushLocked(snip)
	return s.tryTriggerLocked(mean)
}

// pushBatchAndTryTrigger pushes snips one at a time and evaluates the
// confidence gate against the mean after the last push, all under one lock
// acquisition (spec §5).
func (s *snippetState) pushBatchAndTryTrigger(snips []Snippet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mean float64
	for _, snip := range snips {
		mean = s.pushLocked(snip)
	}
	return s.tryTriggerLocked(mean)
}

// forceTrigger unconditionally flips needToRespond to false if still true,
// used at end-of-fan-out (spec §4.7 step 7f) regardless of confidence.
func (s *snippetState) forceTrigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.needToRespond {
		s.needToRespond = false
		return true
	}
	return false
}

// stillNeeded reports whether a summary has not yet been triggered.
func (s *snippetState) stillNeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needToRespond
}

// triggered reports whether a summary has been launched for this request,
// for metrics purposes. A launch by the confidence gate and a launch by
// forceTrigger at end of fan-out both count; the two are not distinguished.
func (s *snippetState) triggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.needToRespond
}
