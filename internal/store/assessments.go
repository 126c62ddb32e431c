// Package store holds the in-process mirrors of backend state. Both stores
// are replaced or merged from server responses only; nothing mutates them
// optimistically.
package store

import (
	"encoding/json"
	"sync"

	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/metrics"
)

// Assessments holds the known assessment collection and the currently
// selected assessment id. Writes notify registered subscribers so dependent
// views (stat gauges, charts) re-derive.
type Assessments struct {
	mu       sync.RWMutex
	items    []api.Assessment
	index    map[string]int
	selected string

	subMu sync.Mutex
	subs  []func()
}

func NewAssessments() *Assessments {
	return &Assessments{index: make(map[string]int)}
}

// OnChange registers a subscriber invoked after every successful write.
// Subscribers run outside the store lock.
func (s *Assessments) OnChange(fn func()) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

func (s *Assessments) notify() {
	s.subMu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// ReplaceAll replaces the full collection after a list fetch. Selection is
// left untouched.
func (s *Assessments) ReplaceAll(list []api.Assessment) {
	s.mu.Lock()
	s.items = make([]api.Assessment, len(list))
	copy(s.items, list)
	s.index = make(map[string]int, len(list))
	for i, a := range s.items {
		s.index[a.ID] = i
	}
	s.mu.Unlock()
	s.notify()
}

// MergeOne applies a partial assessment record from the live channel. Fields
// present in the partial overwrite; absent fields survive. Unknown ids are a
// no-op; live merges are only accepted for records the store already knows.
// Once a record is terminal its status never regresses: a later-arriving
// non-terminal update for it is discarded whole.
func (s *Assessments) MergeOne(partial json.RawMessage) (api.Assessment, bool) {
	var probe struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(partial, &probe); err != nil || probe.ID == "" {
		metrics.StoreMergesTotal.WithLabelValues("malformed").Inc()
		return api.Assessment{}, false
	}

	s.mu.Lock()
	i, ok := s.index[probe.ID]
	if !ok {
		s.mu.Unlock()
		metrics.StoreMergesTotal.WithLabelValues("unknown_id").Inc()
		return api.Assessment{}, false
	}

	current := s.items[i]
	if api.IsTerminal(current.Status) && probe.Status != "" && !api.IsTerminal(probe.Status) {
		s.mu.Unlock()
		metrics.TerminalLatchRejectsTotal.Inc()
		metrics.StoreMergesTotal.WithLabelValues("latch_reject").Inc()
		return current, true
	}

	merged := current
	// encoding/json merges into non-nil maps key by key; the contract is a
	// shallow merge where a present field overwrites wholesale.
	var counts struct {
		FindingCounts json.RawMessage `json:"finding_counts"`
	}
	if err := json.Unmarshal(partial, &counts); err == nil && len(counts.FindingCounts) > 0 {
		merged.FindingCounts = nil
	}
	if err := json.Unmarshal(partial, &merged); err != nil {
		s.mu.Unlock()
		metrics.StoreMergesTotal.WithLabelValues("malformed").Inc()
		return api.Assessment{}, false
	}
	merged.ID = current.ID
	s.items[i] = merged
	s.mu.Unlock()

	metrics.StoreMergesTotal.WithLabelValues("applied").Inc()
	s.notify()
	return merged, true
}

// All returns a copy of the collection in server-provided order.
func (s *Assessments) All() []api.Assessment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Assessment, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Assessments) Get(id string) (api.Assessment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return api.Assessment{}, false
	}
	return s.items[i], true
}

func (s *Assessments) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Select marks an assessment as the one currently displayed.
func (s *Assessments) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.notify()
}

func (s *Assessments) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}
