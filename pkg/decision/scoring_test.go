package decision

import (
	"math"
	"testing"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

func TestDispatchGradePerfectNearbyJob(t *testing.T) {
	// Zero distance, on-time, certain success: 30 + 30 + 25 + 15 = 100.
	grade := DispatchGrade(0, 0, 1.0)
	if grade != 100 {
		t.Fatalf("expected 100, got %v", grade)
	}
}

func TestDispatchGradeDistanceDecay(t *testing.T) {
	near := DispatchGrade(5, 0, 0.5)
	far := DispatchGrade(150, 0, 0.5)
	if far >= near {
		t.Fatalf("distance decay missing: near=%v far=%v", near, far)
	}
	// 30*exp(-0.02*5) + 30 + 40*0.5
	want := 30*math.Exp(-0.1) + 30 + 20
	if math.Abs(near-want) > 1e-9 {
		t.Fatalf("near grade = %v, want %v", near, want)
	}
}

func TestDispatchGradeEarlyBonusCapped(t *testing.T) {
	// 90 minutes early would earn an 18-point bonus uncapped; it is
	// capped at 6.
	grade := DispatchGrade(0, -90, 0)
	if grade != 30+36 {
		t.Fatalf("expected 66, got %v", grade)
	}
}

func TestDispatchGradeLatePenaltyCapped(t *testing.T) {
	// 90 minutes over wipes the duration component exactly.
	g90 := DispatchGrade(0, 90, 0)
	g300 := DispatchGrade(0, 300, 0)
	if g90 != 30 || g300 != 30 {
		t.Fatalf("expected 30/30, got %v/%v", g90, g300)
	}
}

func TestDispatchGradeClampedAtZero(t *testing.T) {
	if g := DispatchGrade(500, 300, 0); g != 0 {
		t.Fatalf("expected 0, got %v", g)
	}
}

func TestWorkloadComponentBands(t *testing.T) {
	if v := workloadComponent(0.5); v != 1 {
		t.Fatalf("light load = %v, want 1", v)
	}
	if v := workloadComponent(0.90); math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("mid load = %v, want 0.5", v)
	}
	if v := workloadComponent(1.05); v != overloadPenalty {
		t.Fatalf("overload = %v, want %v", v, overloadPenalty)
	}
}

func TestOverrunComponent(t *testing.T) {
	if v := overrunComponent(-10); v != 1 {
		t.Fatalf("early finish = %v, want 1", v)
	}
	if v := overrunComponent(60); math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("60-min overrun = %v, want 0.5", v)
	}
	if v := overrunComponent(500); v != 0 {
		t.Fatalf("huge overrun = %v, want 0", v)
	}
}

func TestSortCandidatesTotalOrder(t *testing.T) {
	mk := func(id string, score, dist float64, warnings ...string) Candidate {
		return Candidate{
			Technician: models.Technician{TechnicianID: id},
			Score:      score,
			DistanceKm: dist,
			Warnings:   warnings,
		}
	}

	candidates := []Candidate{
		mk("T3", 0.9, 10, "overtime"),
		mk("T1", 0.8, 10),
		mk("T2", 0.8, 5),
		mk("T5", 0.8, 5),
		mk("T4", 0.95, 30),
	}
	SortCandidates(candidates)

	got := make([]string, len(candidates))
	for i, c := range candidates {
		got[i] = c.Technician.TechnicianID
	}
	// Clean first (T4 best score, then T2/T5 by id tiebreak, then T1
	// by distance), warned T3 last despite the higher score.
	want := []string{"T4", "T2", "T5", "T1", "T3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
