// Package optimizer runs the assignment engine: priority-ordered
// greedy placement over a fallback ladder, then local-search
// post-optimization. It owns all mutable assignment state; filtering
// and scoring in pkg/decision stay pure.
package optimizer

import (
	"fmt"
	"sort"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// AssignmentStore is the single owner of the mutable assignment table
// and the per-technician counters. All mutation goes through Commit
// and Unassign on the serial optimizer goroutine; scoring workers only
// ever see count snapshots.
type AssignmentStore struct {
	byDispatch map[string]*models.Assignment
	byTech     map[string][]*models.Assignment

	// counts carry each technician's running assignment total,
	// seeded from the ingested current_assignments baseline.
	counts  map[string]int
	initial map[string]int
}

// NewAssignmentStore seeds the counters from the technicians'
// pre-existing assignment totals.
func NewAssignmentStore(techs []models.Technician) *AssignmentStore {
	s := &AssignmentStore{
		byDispatch: make(map[string]*models.Assignment),
		byTech:     make(map[string][]*models.Assignment),
		counts:     make(map[string]int, len(techs)),
		initial:    make(map[string]int, len(techs)),
	}
	for _, t := range techs {
		s.counts[t.TechnicianID] = t.CurrentAssignments
		s.initial[t.TechnicianID] = t.CurrentAssignments
	}
	return s
}

// Commit stores an assignment and increments the technician's counter.
// Replacing an existing assignment for the dispatch is a bug in the
// caller; it must Unassign first.
func (s *AssignmentStore) Commit(a *models.Assignment) error {
	if _, exists := s.byDispatch[a.DispatchID]; exists {
		return fmt.Errorf("dispatch %s is already assigned", a.DispatchID)
	}
	s.byDispatch[a.DispatchID] = a
	s.byTech[a.TechnicianID] = append(s.byTech[a.TechnicianID], a)
	s.counts[a.TechnicianID]++
	return nil
}

// Unassign removes a dispatch's assignment and decrements the counter,
// returning the removed row so the caller can restore it.
func (s *AssignmentStore) Unassign(dispatchID string) (*models.Assignment, bool) {
	a, ok := s.byDispatch[dispatchID]
	if !ok {
		return nil, false
	}
	delete(s.byDispatch, dispatchID)

	list := s.byTech[a.TechnicianID]
	for i, cur := range list {
		if cur.DispatchID == dispatchID {
			s.byTech[a.TechnicianID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.counts[a.TechnicianID]--
	return a, true
}

// Get returns the assignment for a dispatch, if any.
func (s *AssignmentStore) Get(dispatchID string) (*models.Assignment, bool) {
	a, ok := s.byDispatch[dispatchID]
	return a, ok
}

// Count returns the technician's current assignment total.
func (s *AssignmentStore) Count(technicianID string) int {
	return s.counts[technicianID]
}

// Snapshot returns an immutable copy of the counters for the scoring
// fan-out.
func (s *AssignmentStore) Snapshot() func(string) int {
	copied := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		copied[k] = v
	}
	return func(id string) int { return copied[id] }
}

// TechAssignments returns the technician's committed assignments. The
// slice is owned by the store; callers must not mutate it.
func (s *AssignmentStore) TechAssignments(technicianID string) []*models.Assignment {
	return s.byTech[technicianID]
}

// Len returns the number of committed assignments.
func (s *AssignmentStore) Len() int {
	return len(s.byDispatch)
}

// Assignments returns all committed rows ordered by dispatch id.
func (s *AssignmentStore) Assignments() []*models.Assignment {
	out := make([]*models.Assignment, 0, len(s.byDispatch))
	for _, a := range s.byDispatch {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DispatchID < out[j].DispatchID })
	return out
}

// CheckConsistency verifies that the counter deltas add up to the
// number of committed assignments. A failure here is a fatal bug, not
// a data problem.
func (s *AssignmentStore) CheckConsistency() error {
	delta := 0
	for id, count := range s.counts {
		delta += count - s.initial[id]
	}
	if delta != len(s.byDispatch) {
		return fmt.Errorf("assignment counters out of sync: counter delta %d, committed %d", delta, len(s.byDispatch))
	}
	for techID, list := range s.byTech {
		for _, a := range list {
			if got, ok := s.byDispatch[a.DispatchID]; !ok || got != a {
				return fmt.Errorf("technician index for %s references a stale assignment %s", techID, a.DispatchID)
			}
		}
	}
	return nil
}
