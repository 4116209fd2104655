package learning

import (
	"fmt"
	"math"
	"math/rand"
)

// GBDTParams are the hyperparameters of a gradient-boosted tree
// ensemble.
type GBDTParams struct {
	NEstimators  int     `json:"n_estimators"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	Subsample    float64 `json:"subsample"`
	MinSamplesLeaf int   `json:"min_samples_leaf"`
}

// DefaultGBDTParams mirrors the reference configuration: 100 trees,
// depth 6, learning rate 0.1, no row subsampling.
func DefaultGBDTParams() GBDTParams {
	return GBDTParams{
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.1,
		Subsample:      1.0,
		MinSamplesLeaf: 2,
	}
}

func (p *GBDTParams) normalize() {
	if p.NEstimators < 1 {
		p.NEstimators = 100
	}
	if p.MaxDepth < 1 {
		p.MaxDepth = 6
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = 1.0
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 2
	}
}

// GBDTRegressor is a gradient-boosted regression ensemble with
// squared-error loss.
type GBDTRegressor struct {
	params  GBDTParams
	initial float64
	trees   []*regressionTree
	fitted  bool
}

// NewGBDTRegressor creates an unfitted regressor
func NewGBDTRegressor(params GBDTParams) *GBDTRegressor {
	params.normalize()
	return &GBDTRegressor{params: params}
}

// Fit trains the ensemble. The rng drives row subsampling; passing a
// seeded source makes training deterministic.
func (g *GBDTRegressor) Fit(X [][]float64, y []float64, rng *rand.Rand) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d samples, %d targets", len(X), len(y))
	}

	g.initial = mean(y)
	g.trees = make([]*regressionTree, 0, g.params.NEstimators)

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.initial
	}

	residuals := make([]float64, len(y))
	for m := 0; m < g.params.NEstimators; m++ {
		for i := range y {
			residuals[i] = y[i] - pred[i]
		}

		indices := subsampleIndices(len(y), g.params.Subsample, rng)
		tree := newRegressionTree(g.params.MaxDepth, g.params.MinSamplesLeaf)
		tree.fit(X, residuals, indices)
		g.trees = append(g.trees, tree)

		for i := range pred {
			pred[i] += g.params.LearningRate * tree.predict(X[i])
		}
	}

	g.fitted = true
	return nil
}

// Predict returns the regression estimate for one sample
func (g *GBDTRegressor) Predict(x []float64) float64 {
	out := g.initial
	for _, tree := range g.trees {
		out += g.params.LearningRate * tree.predict(x)
	}
	return out
}

// Fitted reports whether Fit has completed
func (g *GBDTRegressor) Fitted() bool {
	return g.fitted
}

// Params returns the hyperparameters in use
func (g *GBDTRegressor) Params() GBDTParams {
	return g.params
}

// GBDTClassifier is a gradient-boosted binary classifier with
// logistic loss. Trees are fit to the probability residuals and the
// ensemble output passes through a sigmoid.
type GBDTClassifier struct {
	params  GBDTParams
	initial float64 // initial log-odds
	trees   []*regressionTree
	fitted  bool
}

// NewGBDTClassifier creates an unfitted classifier
func NewGBDTClassifier(params GBDTParams) *GBDTClassifier {
	params.normalize()
	return &GBDTClassifier{params: params}
}

// Fit trains the ensemble on binary labels (0 or 1)
func (g *GBDTClassifier) Fit(X [][]float64, y []float64, rng *rand.Rand) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d samples, %d targets", len(X), len(y))
	}

	positive := 0.0
	for _, v := range y {
		positive += v
	}
	p := positive / float64(len(y))
	// Clamp so the initial log-odds stay finite on degenerate labels.
	if p < 1e-4 {
		p = 1e-4
	}
	if p > 1-1e-4 {
		p = 1 - 1e-4
	}
	g.initial = math.Log(p / (1 - p))
	g.trees = make([]*regressionTree, 0, g.params.NEstimators)

	score := make([]float64, len(y))
	for i := range score {
		score[i] = g.initial
	}

	residuals := make([]float64, len(y))
	for m := 0; m < g.params.NEstimators; m++ {
		for i := range y {
			residuals[i] = y[i] - sigmoid(score[i])
		}

		indices := subsampleIndices(len(y), g.params.Subsample, rng)
		tree := newRegressionTree(g.params.MaxDepth, g.params.MinSamplesLeaf)
		tree.fit(X, residuals, indices)
		g.trees = append(g.trees, tree)

		for i := range score {
			score[i] += g.params.LearningRate * tree.predict(X[i])
		}
	}

	g.fitted = true
	return nil
}

// PredictProba returns P(label=1) for one sample
func (g *GBDTClassifier) PredictProba(x []float64) float64 {
	score := g.initial
	for _, tree := range g.trees {
		score += g.params.LearningRate * tree.predict(x)
	}
	return sigmoid(score)
}

// Fitted reports whether Fit has completed
func (g *GBDTClassifier) Fitted() bool {
	return g.fitted
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// subsampleIndices draws a deterministic sample of row indices. With
// fraction 1.0 (or a nil rng) every row is used.
func subsampleIndices(n int, fraction float64, rng *rand.Rand) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if fraction >= 1.0 || rng == nil {
		return indices
	}

	k := int(float64(n) * fraction)
	if k < 1 {
		k = 1
	}
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices[:k]
}
