package learning

import (
	"fmt"
	"math"
)

// LogisticParams are the hyperparameters of the logistic regression
// fallback model.
type LogisticParams struct {
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`
	Tolerance    float64 `json:"tolerance"`
}

// DefaultLogisticParams returns the standard fallback configuration
func DefaultLogisticParams() LogisticParams {
	return LogisticParams{
		LearningRate: 0.1,
		Epochs:       500,
		L2:           1e-4,
		Tolerance:    1e-6,
	}
}

// LogisticRegression is a binary classifier trained by full-batch
// gradient descent. It serves as the low-data fallback for the
// success predictor.
type LogisticRegression struct {
	params  LogisticParams
	weights []float64
	bias    float64

	// Convergence tracking
	costHistory []float64
	converged   bool
	fitted      bool
}

// NewLogisticRegression creates an unfitted model
func NewLogisticRegression(params LogisticParams) *LogisticRegression {
	if params.LearningRate <= 0 {
		params.LearningRate = 0.1
	}
	if params.Epochs < 1 {
		params.Epochs = 500
	}
	if params.Tolerance <= 0 {
		params.Tolerance = 1e-6
	}
	return &LogisticRegression{params: params}
}

// Fit trains the model on binary labels (0 or 1). Training is
// full-batch and therefore deterministic for identical inputs.
func (lr *LogisticRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d samples, %d targets", len(X), len(y))
	}

	features := len(X[0])
	lr.weights = make([]float64, features)
	lr.bias = 0
	lr.costHistory = lr.costHistory[:0]
	lr.converged = false

	n := float64(len(X))
	grad := make([]float64, features)

	prevCost := math.Inf(1)
	for epoch := 0; epoch < lr.params.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		cost := 0.0

		for i, row := range X {
			if len(row) != features {
				return fmt.Errorf("inconsistent feature width at row %d", i)
			}
			z := lr.bias
			for j, v := range row {
				z += lr.weights[j] * v
			}
			p := sigmoid(z)
			err := p - y[i]
			for j, v := range row {
				grad[j] += err * v
			}
			gradBias += err
			cost += logLoss(y[i], p)
		}

		cost /= n
		for j := range grad {
			grad[j] = grad[j]/n + lr.params.L2*lr.weights[j]
			lr.weights[j] -= lr.params.LearningRate * grad[j]
		}
		lr.bias -= lr.params.LearningRate * gradBias / n

		lr.costHistory = append(lr.costHistory, cost)
		if math.Abs(prevCost-cost) < lr.params.Tolerance {
			lr.converged = true
			break
		}
		prevCost = cost
	}

	lr.fitted = true
	return nil
}

// PredictProba returns P(label=1) for one sample
func (lr *LogisticRegression) PredictProba(x []float64) float64 {
	z := lr.bias
	for j, v := range x {
		if j < len(lr.weights) {
			z += lr.weights[j] * v
		}
	}
	return sigmoid(z)
}

// Fitted reports whether Fit has completed
func (lr *LogisticRegression) Fitted() bool {
	return lr.fitted
}

// Converged reports whether training stopped on the tolerance check
func (lr *LogisticRegression) Converged() bool {
	return lr.converged
}

// CostHistory returns a copy of the per-epoch training cost
func (lr *LogisticRegression) CostHistory() []float64 {
	out := make([]float64, len(lr.costHistory))
	copy(out, lr.costHistory)
	return out
}

func logLoss(y, p float64) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}
