package learning

import (
	"fmt"
	"math/rand"
)

// GridSearchResult records the outcome of a hyperparameter search
type GridSearchResult struct {
	BestParams GBDTParams `json:"best_params"`
	// BestCVMAE is the mean absolute error of the winning candidate,
	// averaged over folds.
	BestCVMAE  float64 `json:"best_cv_mae"`
	CVMAEStd   float64 `json:"cv_mae_std"`
	Candidates int     `json:"candidates"`
}

// GBDTGrid enumerates the candidate hyperparameter combinations.
// DefaultGBDTGrid mirrors the reference search space.
type GBDTGrid struct {
	NEstimators   []int
	MaxDepths     []int
	LearningRates []float64
	Subsamples    []float64
}

// DefaultGBDTGrid returns the reference duration-model search space
func DefaultGBDTGrid() GBDTGrid {
	return GBDTGrid{
		NEstimators:   []int{100, 200},
		MaxDepths:     []int{4, 6, 8},
		LearningRates: []float64{0.05, 0.1},
		Subsamples:    []float64{0.8, 1.0},
	}
}

// combinations expands the grid in a fixed order so the search is
// deterministic.
func (g GBDTGrid) combinations() []GBDTParams {
	var out []GBDTParams
	for _, n := range g.NEstimators {
		for _, d := range g.MaxDepths {
			for _, lr := range g.LearningRates {
				for _, ss := range g.Subsamples {
					out = append(out, GBDTParams{
						NEstimators:    n,
						MaxDepth:       d,
						LearningRate:   lr,
						Subsample:      ss,
						MinSamplesLeaf: 2,
					})
				}
			}
		}
	}
	return out
}

// GridSearchGBDT evaluates every grid combination with k-fold
// cross-validation scored by mean absolute error, and returns the
// winning parameters. Folds are assigned by a shuffle of the given
// seed, so results repeat for identical inputs.
func GridSearchGBDT(X [][]float64, y []float64, grid GBDTGrid, folds int, seed int64) (GridSearchResult, error) {
	if len(X) == 0 || len(X) != len(y) {
		return GridSearchResult{}, fmt.Errorf("invalid training set: %d samples, %d targets", len(X), len(y))
	}
	if folds < 2 {
		folds = 3
	}
	if len(X) < folds {
		return GridSearchResult{}, fmt.Errorf("not enough samples (%d) for %d folds", len(X), folds)
	}

	candidates := grid.combinations()
	if len(candidates) == 0 {
		return GridSearchResult{}, fmt.Errorf("empty hyperparameter grid")
	}

	// One fold assignment shared by all candidates.
	perm := rand.New(rand.NewSource(seed)).Perm(len(X))
	foldOf := make([]int, len(X))
	for pos, i := range perm {
		foldOf[i] = pos % folds
	}

	best := GridSearchResult{BestCVMAE: -1, Candidates: len(candidates)}
	for ci, params := range candidates {
		foldMAE := make([]float64, 0, folds)

		for f := 0; f < folds; f++ {
			var trainX, valX [][]float64
			var trainY, valY []float64
			for i := range X {
				if foldOf[i] == f {
					valX = append(valX, X[i])
					valY = append(valY, y[i])
				} else {
					trainX = append(trainX, X[i])
					trainY = append(trainY, y[i])
				}
			}
			if len(trainX) == 0 || len(valX) == 0 {
				continue
			}

			model := NewGBDTRegressor(params)
			rng := rand.New(rand.NewSource(seed + int64(ci*folds+f)))
			if err := model.Fit(trainX, trainY, rng); err != nil {
				return GridSearchResult{}, fmt.Errorf("fold %d fit failed: %w", f, err)
			}

			predicted := make([]float64, len(valX))
			for i, row := range valX {
				predicted[i] = model.Predict(row)
			}
			foldMAE = append(foldMAE, EvaluateRegression(valY, predicted).MAE)
		}

		if len(foldMAE) == 0 {
			continue
		}
		cvMAE := Mean(foldMAE)
		if best.BestCVMAE < 0 || cvMAE < best.BestCVMAE {
			best.BestParams = params
			best.BestCVMAE = cvMAE
			best.CVMAEStd = Std(foldMAE)
		}
	}

	if best.BestCVMAE < 0 {
		return GridSearchResult{}, fmt.Errorf("grid search produced no usable candidate")
	}
	return best, nil
}
