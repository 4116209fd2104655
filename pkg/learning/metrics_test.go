package learning

import (
	"math"
	"testing"
)

func TestEvaluateRegression_PerfectFit(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	m := EvaluateRegression(actual, actual)
	if m.MAE != 0 || m.RMSE != 0 {
		t.Errorf("perfect fit should have zero error, got %+v", m)
	}
	if m.R2 != 1 {
		t.Errorf("perfect fit should have R2=1, got %f", m.R2)
	}
}

func TestEvaluateRegression_KnownErrors(t *testing.T) {
	actual := []float64{0, 0, 0, 0}
	predicted := []float64{1, -1, 1, -1}
	m := EvaluateRegression(actual, predicted)
	if m.MAE != 1 {
		t.Errorf("expected MAE 1, got %f", m.MAE)
	}
	if m.RMSE != 1 {
		t.Errorf("expected RMSE 1, got %f", m.RMSE)
	}
}

func TestAccuracy(t *testing.T) {
	actual := []float64{1, 0, 1, 0}
	probs := []float64{0.9, 0.2, 0.4, 0.6}
	if acc := Accuracy(actual, probs); acc != 0.5 {
		t.Errorf("expected accuracy 0.5, got %f", acc)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	if p := Percentile(values, 0); p != 10 {
		t.Errorf("p0 should be min, got %f", p)
	}
	if p := Percentile(values, 100); p != 50 {
		t.Errorf("p100 should be max, got %f", p)
	}
	if p := Percentile(values, 50); p != 30 {
		t.Errorf("p50 should be median, got %f", p)
	}
	if p := Percentile(values, 25); p != 20 {
		t.Errorf("p25 should be 20, got %f", p)
	}
}

func TestZScores(t *testing.T) {
	values := []float64{10, 10, 10}
	for _, z := range ZScores(values) {
		if z != 0 {
			t.Errorf("constant slice should produce zero z-scores, got %f", z)
		}
	}

	zs := ZScores([]float64{0, 10})
	if math.Abs(zs[0]+1) > 1e-9 || math.Abs(zs[1]-1) > 1e-9 {
		t.Errorf("expected [-1, 1], got %v", zs)
	}
}

func TestStd(t *testing.T) {
	if sd := Std([]float64{2, 4, 4, 4, 5, 5, 7, 9}); math.Abs(sd-2) > 1e-9 {
		t.Errorf("expected std 2, got %f", sd)
	}
}

func TestClip(t *testing.T) {
	if Clip(5, 0, 1) != 1 || Clip(-5, 0, 1) != 0 || Clip(0.5, 0, 1) != 0.5 {
		t.Error("Clip bounds not honored")
	}
}

func TestGridSearchGBDT_PicksAUsableCandidate(t *testing.T) {
	X, y := linearDataset(60)
	grid := GBDTGrid{
		NEstimators:   []int{20},
		MaxDepths:     []int{3, 4},
		LearningRates: []float64{0.1},
		Subsamples:    []float64{1.0},
	}

	result, err := GridSearchGBDT(X, y, grid, 3, 42)
	if err != nil {
		t.Fatalf("GridSearchGBDT failed: %v", err)
	}
	if result.Candidates != 2 {
		t.Errorf("expected 2 candidates, got %d", result.Candidates)
	}
	if result.BestCVMAE < 0 {
		t.Errorf("expected non-negative CV MAE, got %f", result.BestCVMAE)
	}
	if result.BestParams.NEstimators != 20 {
		t.Errorf("unexpected winning params: %+v", result.BestParams)
	}
}

func TestGridSearchGBDT_Deterministic(t *testing.T) {
	X, y := linearDataset(40)
	grid := GBDTGrid{
		NEstimators:   []int{10},
		MaxDepths:     []int{3},
		LearningRates: []float64{0.1},
		Subsamples:    []float64{0.8},
	}

	r1, err := GridSearchGBDT(X, y, grid, 3, 99)
	if err != nil {
		t.Fatalf("GridSearchGBDT failed: %v", err)
	}
	r2, err := GridSearchGBDT(X, y, grid, 3, 99)
	if err != nil {
		t.Fatalf("GridSearchGBDT failed: %v", err)
	}
	if r1.BestCVMAE != r2.BestCVMAE {
		t.Errorf("same seed should repeat: %f vs %f", r1.BestCVMAE, r2.BestCVMAE)
	}
}
