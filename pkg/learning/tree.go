package learning

import (
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the
// prediction value; internal nodes split on feature <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	isLeaf    bool
}

// regressionTree is a CART-style tree fit by variance reduction.
// It is the weak learner used by the gradient boosters.
type regressionTree struct {
	root           *treeNode
	maxDepth       int
	minSamplesLeaf int
}

// maxSplitCandidates caps the number of thresholds evaluated per
// feature; candidates are taken at evenly spaced quantiles.
const maxSplitCandidates = 16

func newRegressionTree(maxDepth, minSamplesLeaf int) *regressionTree {
	if maxDepth < 1 {
		maxDepth = 3
	}
	if minSamplesLeaf < 1 {
		minSamplesLeaf = 1
	}
	return &regressionTree{maxDepth: maxDepth, minSamplesLeaf: minSamplesLeaf}
}

// fit builds the tree over the given sample indices
func (t *regressionTree) fit(X [][]float64, y []float64, indices []int) {
	t.root = t.build(X, y, indices, 0)
}

func (t *regressionTree) build(X [][]float64, y []float64, indices []int, depth int) *treeNode {
	if len(indices) == 0 {
		return &treeNode{isLeaf: true, value: 0}
	}

	mean := meanAt(y, indices)
	if depth >= t.maxDepth || len(indices) < 2*t.minSamplesLeaf {
		return &treeNode{isLeaf: true, value: mean}
	}

	feature, threshold, ok := t.bestSplit(X, y, indices)
	if !ok {
		return &treeNode{isLeaf: true, value: mean}
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.minSamplesLeaf || len(right) < t.minSamplesLeaf {
		return &treeNode{isLeaf: true, value: mean}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.build(X, y, left, depth+1),
		right:     t.build(X, y, right, depth+1),
	}
}

// bestSplit scans every feature for the threshold minimizing the
// weighted sum of squared errors of the two children.
func (t *regressionTree) bestSplit(X [][]float64, y []float64, indices []int) (int, float64, bool) {
	if len(indices) == 0 || len(X[indices[0]]) == 0 {
		return 0, 0, false
	}

	baseSSE := sseAt(y, indices)
	bestGain := 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	features := len(X[indices[0]])
	values := make([]float64, 0, len(indices))

	for f := 0; f < features; f++ {
		values = values[:0]
		for _, i := range indices {
			values = append(values, X[i][f])
		}
		sort.Float64s(values)
		if values[0] == values[len(values)-1] {
			continue
		}

		for _, threshold := range splitCandidates(values) {
			var sumL, sumR, sqL, sqR float64
			var nL, nR int
			for _, i := range indices {
				v := y[i]
				if X[i][f] <= threshold {
					sumL += v
					sqL += v * v
					nL++
				} else {
					sumR += v
					sqR += v * v
					nR++
				}
			}
			if nL < t.minSamplesLeaf || nR < t.minSamplesLeaf {
				continue
			}
			sseL := sqL - sumL*sumL/float64(nL)
			sseR := sqR - sumR*sumR/float64(nR)
			gain := baseSSE - sseL - sseR
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// splitCandidates returns up to maxSplitCandidates midpoints from the
// sorted value slice.
func splitCandidates(sorted []float64) []float64 {
	var candidates []float64
	n := len(sorted)
	if n < 2 {
		return candidates
	}

	step := 1
	if n-1 > maxSplitCandidates {
		step = (n - 1) / maxSplitCandidates
	}
	for i := step; i < n; i += step {
		if sorted[i] != sorted[i-1] {
			candidates = append(candidates, (sorted[i]+sorted[i-1])/2)
		}
	}
	return candidates
}

// predict walks the tree for one sample
func (t *regressionTree) predict(x []float64) float64 {
	node := t.root
	for node != nil && !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	if node == nil {
		return 0
	}
	return node.value
}

func meanAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range indices {
		sum += y[i]
	}
	return sum / float64(len(indices))
}

func sseAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	var sum, sq float64
	for _, i := range indices {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return sq - sum*sum/float64(len(indices))
}
