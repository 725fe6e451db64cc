package service

import (
	"sync"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
)

// CycleStatsStore keeps the most recent scan cycle's counters. The risk
// consumer adds its decisions to the cycle that produced the signal.
type CycleStatsStore struct {
	mu     sync.RWMutex
	latest *dto.CycleStats
}

func NewCycleStatsStore() *CycleStatsStore {
	return &CycleStatsStore{}
}

// Publish replaces the latest cycle. Decision counters already observed for
// the same cycle are kept.
func (s *CycleStatsStore) Publish(stats dto.CycleStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && s.latest.CycleID == stats.CycleID {
		stats.Approved = s.latest.Approved
		stats.Modified = s.latest.Modified
		stats.Rejections = s.latest.Rejections
	}
	s.latest = &stats
}

// ObserveDecision counts a risk decision against its cycle, if it is still the latest.
func (s *CycleStatsStore) ObserveDecision(cycleID string, kind entity.DecisionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || s.latest.CycleID != cycleID {
		return
	}
	switch kind {
	case entity.DecisionApprove:
		s.latest.Approved++
	case entity.DecisionModify:
		s.latest.Modified++
	case entity.DecisionReject:
		s.latest.Rejections++
	}
}

// Latest returns a copy of the latest cycle, or nil before the first scan.
func (s *CycleStatsStore) Latest() *dto.CycleStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	c := *s.latest
	return &c
}
